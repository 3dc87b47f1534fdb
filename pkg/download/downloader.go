package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cperrin88/reposync/internal/logger"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/fsutil"
	"github.com/cperrin88/reposync/pkg/metrics"
)

const chunkSize = 8 * 1024

// Downloader fetches one file into a destination path. A partial file left by an earlier
// attempt is resumed when the server supports range requests.
type Downloader struct {
	client   Client
	req      Request
	dest     string
	throttle *throttle
	cacheTag string
	changed  bool
}

// NewDownloader creates a Downloader writing req.File to dest.
func NewDownloader(client Client, req Request, dest string) *Downloader {
	return &Downloader{client: client, req: req, dest: dest}
}

// SetProgress installs a progress callback. Reports are throttled to one per 100ms except
// for the final one.
func (d *Downloader) SetProgress(fn ProgressFunc) {
	d.throttle = newThrottle(fn, time.Now)
}

// SetCacheTag sets the tag of the previously downloaded version of the file.
func (d *Downloader) SetCacheTag(tag string) {
	d.cacheTag = tag
}

// CacheTag returns the tag of the file after Download: the server ETag, or a tag calculated
// from Last-Modified and Content-Length.
func (d *Downloader) CacheTag() string {
	return d.cacheTag
}

// HasChanged reports whether the last Download fetched new content.
func (d *Downloader) HasChanged() bool {
	return d.changed
}

// Download probes the file and downloads it when its tag differs from the cached one.
func (d *Downloader) Download(ctx context.Context) error {
	d.changed = false

	head, err := d.client.Head(ctx, d.req)
	if err != nil {
		return err
	}
	calculated := head.CalculatedTag()
	if d.cacheTag != "" && (head.ETag == d.cacheTag || calculated == d.cacheTag) {
		logger.Debug("file unchanged", logger.Fields{"file": d.req.File.Name, "tag": d.cacheTag})
		return nil
	}

	total := head.ContentLength
	if total < 0 && d.req.File.Size > 0 {
		total = d.req.File.Size
	}

	if err := d.fetch(ctx, total); err != nil {
		return err
	}

	d.changed = true
	d.cacheTag = head.ETag
	if d.cacheTag == "" {
		d.cacheTag = calculated
	}
	return nil
}

// fetch transfers the body, resuming when possible, and verifies the result.
func (d *Downloader) fetch(ctx context.Context, total int64) error {
	existing, err := fsutil.FileSize(d.dest)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to stat download destination")
	}
	if total >= 0 && existing > total {
		logger.Debug("discarding oversized partial file", logger.Fields{"file": d.dest, "size": existing, "expected": total})
		if err := fsutil.RemoveIfExists(d.dest); err != nil {
			return err
		}
		existing = 0
	}
	if existing > 0 && existing == total {
		if err := d.verify(existing, nil); err == nil {
			d.throttle.report(existing, total, true)
			return nil
		}
		if err := fsutil.RemoveIfExists(d.dest); err != nil {
			return err
		}
		existing = 0
	}

	body, err := d.client.Get(ctx, d.req, existing)
	if err != nil {
		return err
	}
	if existing > 0 && !body.Partial {
		_ = body.Close()
		logger.Debug("restarting download", logger.Fields{"file": d.req.File.Name, "reason": pkgerrors.ErrNoResume.Error()})
		if err := fsutil.RemoveIfExists(d.dest); err != nil {
			return err
		}
		existing = 0
		if body, err = d.client.Get(ctx, d.req, 0); err != nil {
			return err
		}
	}
	defer func() { _ = body.Close() }()

	if total < 0 && body.ContentLength >= 0 {
		total = existing + body.ContentLength
	}

	h := sha256.New()
	written, err := d.write(ctx, body, h, existing, total)
	if err != nil {
		return err
	}
	return d.verify(written, h)
}

// write appends body to the destination after hashing the bytes already on disk.
// The file is closed before write returns, also on cancellation.
func (d *Downloader) write(ctx context.Context, body io.Reader, h hash.Hash, existing, total int64) (int64, error) {
	if err := fsutil.EnsureFileDir(d.dest); err != nil {
		return 0, pkgerrors.Wrap(err, "could not create download dir")
	}
	f, err := os.OpenFile(d.dest, os.O_RDWR|os.O_CREATE, fsutil.FileModeSecure)
	if err != nil {
		return 0, pkgerrors.Wrap(err, "could not open download destination")
	}
	defer func() { _ = f.Close() }()

	if existing > 0 {
		if _, err := io.CopyN(h, f, existing); err != nil {
			return 0, pkgerrors.Wrap(err, "could not hash partial file")
		}
	} else if err := f.Truncate(0); err != nil {
		return 0, pkgerrors.Wrap(err, "could not truncate download destination")
	}

	written := existing
	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return written, pkgerrors.Wrap(err, "could not write file")
			}
			h.Write(buf[:n])
			written += int64(n)
			metrics.AddDownloadedBytes(n)
			d.throttle.report(written, total, false)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			return written, pkgerrors.Transport(readErr)
		}
	}
	if err := f.Sync(); err != nil {
		return written, pkgerrors.Wrap(err, "could not sync file")
	}
	d.throttle.report(written, total, true)
	return written, f.Close()
}

// verify checks size and hash of the complete file. A nil hash is computed from disk.
// The file is removed when verification fails.
func (d *Downloader) verify(size int64, h hash.Hash) error {
	want := d.req.File
	if want.Size > 0 && size != want.Size {
		_ = fsutil.RemoveIfExists(d.dest)
		return fmt.Errorf("%s: got %d bytes, want %d: %w", want.Name, size, want.Size, pkgerrors.ErrFileSizeMismatch)
	}
	if want.SHA256 == "" {
		return nil
	}
	if h == nil {
		var err error
		if h, err = hashFile(d.dest); err != nil {
			return err
		}
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, strings.TrimSpace(want.SHA256)) {
		_ = fsutil.RemoveIfExists(d.dest)
		return fmt.Errorf("%s: got sha256 %s: %w", want.Name, got, pkgerrors.ErrFileHashMismatch)
	}
	return nil
}

func hashFile(path string) (hash.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, pkgerrors.Wrap(err, "hashing")
	}
	return h, nil
}

func calculatedTag(lastModified time.Time, contentLength int64) string {
	return fmt.Sprintf("%x-%x", lastModified.Unix(), contentLength)
}
