package download

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/auth"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/metrics"
	"github.com/cperrin88/reposync/pkg/mirror"
	"github.com/cperrin88/reposync/pkg/model"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "reposync/1.0"

// Options configure an HTTPManager.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// Proxy routes every mirror except local ones through the given proxy URL.
	Proxy   *url.URL
	Chooser mirror.Chooser
}

// HTTPManager implements Client on top of net/http with mirror failover.
type HTTPManager struct {
	direct    *http.Client
	proxied   *http.Client
	proxy     *url.URL
	chooser   mirror.Chooser
	userAgent string
}

// NewHTTPManager creates an HTTPManager.
func NewHTTPManager(opts Options) *HTTPManager {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Chooser == nil {
		opts.Chooser = mirror.NewRandomChooser(nil)
	}
	m := &HTTPManager{
		direct:    &http.Client{Timeout: opts.Timeout, Transport: newTransport(nil)},
		proxy:     opts.Proxy,
		chooser:   opts.Chooser,
		userAgent: opts.UserAgent,
	}
	m.proxied = m.direct
	if opts.Proxy != nil {
		m.proxied = &http.Client{Timeout: opts.Timeout, Transport: newTransport(opts.Proxy)}
	}
	return m
}

func newTransport(proxy *url.URL) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	if proxy != nil {
		t.Proxy = http.ProxyURL(proxy)
	}
	return t
}

// clientFor returns the client for m. Local mirrors never go through the proxy.
func (h *HTTPManager) clientFor(m model.Mirror) *http.Client {
	if m.IsLocal() {
		return h.direct
	}
	return h.proxied
}

// Head implements Client.
func (h *HTTPManager) Head(ctx context.Context, req Request) (Head, error) {
	return mirror.Request(ctx, h.chooser, req.Mirrors, h.proxy, req.TryFirst,
		func(ctx context.Context, m model.Mirror) (Head, error) {
			resp, err := h.do(ctx, m, http.MethodHead, req, 0)
			if err != nil {
				return Head{}, err
			}
			_ = resp.Body.Close()

			head := Head{ETag: resp.Header.Get("ETag"), ContentLength: resp.ContentLength}
			if lm := resp.Header.Get("Last-Modified"); lm != "" {
				if t, err := http.ParseTime(lm); err == nil {
					head.LastModified = t
				}
			}
			return head, nil
		})
}

// Get implements Client.
func (h *HTTPManager) Get(ctx context.Context, req Request, offset int64) (*Body, error) {
	return mirror.Request(ctx, h.chooser, req.Mirrors, h.proxy, req.TryFirst,
		func(ctx context.Context, m model.Mirror) (*Body, error) {
			resp, err := h.do(ctx, m, http.MethodGet, req, offset)
			if err != nil {
				return nil, err
			}
			return &Body{
				ReadCloser:    resp.Body,
				Partial:       resp.StatusCode == http.StatusPartialContent,
				ContentLength: resp.ContentLength,
				ETag:          resp.Header.Get("ETag"),
			}, nil
		})
}

func (h *HTTPManager) do(ctx context.Context, m model.Mirror, method string, req Request, offset int64) (*http.Response, error) {
	u, err := m.URL(req.File.Name)
	if err != nil {
		return nil, pkgerrors.Transport(fmt.Errorf("invalid mirror url %q: %w", m.BaseURL, err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("User-Agent", h.userAgent)
	if offset > 0 {
		httpReq.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	if err := auth.ApplyTo(httpReq, req.Auth); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to apply credentials")
	}

	logger.Debug("requesting file", logger.Fields{"method": method, "url": u.Redacted(), "offset": offset})
	resp, err := h.clientFor(m).Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.IncMirrorFailure(m.Host())
		return nil, pkgerrors.Transport(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, pkgerrors.Transport(fmt.Errorf("%s: %w", u.Redacted(), pkgerrors.ErrNotFound))
	default:
		_ = resp.Body.Close()
		metrics.IncMirrorFailure(m.Host())
		return nil, pkgerrors.Transport(fmt.Errorf("%s: %w", u.Redacted(), pkgerrors.ErrUnexpectedStatus(resp.StatusCode)))
	}
}
