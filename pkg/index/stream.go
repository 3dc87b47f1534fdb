// Package index streams repository index documents into a receiver. Full snapshots, merge-patch
// diffs and the legacy v1 format are read token by token so that only one package record is
// held in memory at a time.
package index

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

// Top-level keys of an index document.
const (
	keyRepo     = "repo"
	keyPackages = "packages"
	keyRequests = "requests"
	keyApps     = "apps"
)

//go:generate mockgen -destination=./mocks/index.go . Receiver,DiffReceiver,LegacyReceiver

// Receiver consumes a full index snapshot.
type Receiver interface {
	ReceiveRepo(repo model.RepoIndex, version int64) error
	ReceivePackage(packageName string, pkg model.Package) error
	OnStreamEnded() error
}

// counter counts the packages handed to a receiver so far.
type counter struct {
	n          atomic.Int64
	onProgress func(processed int64)
}

// Processed returns the number of packages processed so far. The total is unknown while
// streaming, so callers show it as "x packages" rather than a percentage.
func (c *counter) Processed() int64 { return c.n.Load() }

// SetProgress installs a callback invoked after every processed package. It must be set
// before Process is called.
func (c *counter) SetProgress(fn func(processed int64)) { c.onProgress = fn }

func (c *counter) inc() {
	n := c.n.Add(1)
	if c.onProgress != nil {
		c.onProgress(n)
	}
}

// StreamProcessor reads a full v2 index. The "repo" and "packages" sections may appear in
// either order; other top-level keys are skipped.
type StreamProcessor struct {
	counter
	receiver Receiver
	version  int64
}

// NewStreamProcessor creates a processor for an index of the given entry version.
func NewStreamProcessor(receiver Receiver, version int64) *StreamProcessor {
	return &StreamProcessor{receiver: receiver, version: version}
}

// Process streams r into the receiver.
func (p *StreamProcessor) Process(ctx context.Context, r io.Reader) error {
	dec := json.NewDecoder(r)
	seenRepo := false
	err := walkObject(dec, func(key string) error {
		switch key {
		case keyRepo:
			var repo model.RepoIndex
			if err := dec.Decode(&repo); err != nil {
				return decodeErr(err, keyRepo)
			}
			seenRepo = true
			return p.receiver.ReceiveRepo(repo, p.version)
		case keyPackages:
			return walkObject(dec, func(name string) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				var pkg model.Package
				if err := dec.Decode(&pkg); err != nil {
					return decodeErr(err, "packages."+name)
				}
				if err := p.receiver.ReceivePackage(name, pkg); err != nil {
					return err
				}
				p.inc()
				return nil
			})
		default:
			return skip(dec, key)
		}
	})
	if err != nil {
		return err
	}
	if !seenRepo {
		return pkgerrors.ErrDecodef("index has no %q section", keyRepo)
	}
	return p.receiver.OnStreamEnded()
}

// walkObject consumes one JSON object from dec and calls fn for each key with the decoder
// positioned before the value. fn must consume the value.
func walkObject(dec *json.Decoder, fn func(key string) error) error {
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return decodeErr(err, "key")
		}
		key, ok := tok.(string)
		if !ok {
			return pkgerrors.ErrDecodef("unexpected token %v", tok)
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

// walkArray consumes one JSON array from dec and calls fn with the decoder positioned
// before each element.
func walkArray(dec *json.Decoder, fn func() error) error {
	if err := expectDelim(dec, '['); err != nil {
		return err
	}
	for dec.More() {
		if err := fn(); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return decodeErr(err, string(want))
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return pkgerrors.ErrDecodef("expected %q, got %v", want, tok)
	}
	return nil
}

func skip(dec *json.Decoder, key string) error {
	var discard json.RawMessage
	if err := dec.Decode(&discard); err != nil {
		return decodeErr(err, key)
	}
	return nil
}

func decodeErr(err error, where string) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return pkgerrors.Wrapf(pkgerrors.ErrDecode, "%s: %v", where, err)
}
