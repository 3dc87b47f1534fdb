//go:generate mockgen -destination=./mocks/download.go . Client
package download

import (
	"context"
	"io"
	"time"

	"github.com/cperrin88/reposync/pkg/auth"
	"github.com/cperrin88/reposync/pkg/model"
)

// Client performs the HTTP requests of a download against the mirrors of a repository.
type Client interface {
	// Head probes the file and returns its change-detection headers.
	Head(ctx context.Context, req Request) (Head, error)

	// Get opens the file body starting at offset. A non-zero offset sends a Range header;
	// the returned Body reports whether the server honoured it.
	Get(ctx context.Context, req Request, offset int64) (*Body, error)
}

// Request describes one file to fetch from a repository.
type Request struct {
	// File is the path relative to the mirror base URL plus the expected hash and size.
	File    model.File
	Mirrors []model.Mirror
	Auth    auth.Authenticator
	// TryFirst is attempted before the shuffled remainder when it is among Mirrors.
	TryFirst *model.Mirror
}

// Head holds the result of a metadata probe.
type Head struct {
	ETag         string
	LastModified time.Time
	// ContentLength is -1 when the server did not announce a length.
	ContentLength int64
}

// CalculatedTag derives a change tag from Last-Modified and Content-Length for servers that
// do not send ETags. It is empty when either value is unknown.
func (h Head) CalculatedTag() string {
	if h.LastModified.IsZero() || h.ContentLength < 0 {
		return ""
	}
	return calculatedTag(h.LastModified, h.ContentLength)
}

// Body is an open response body.
type Body struct {
	io.ReadCloser
	// Partial is set for 206 Partial Content responses.
	Partial       bool
	ContentLength int64
	ETag          string
}

// ProgressFunc receives the bytes written so far and the expected total, -1 when unknown.
type ProgressFunc func(bytesRead, totalBytes int64)
