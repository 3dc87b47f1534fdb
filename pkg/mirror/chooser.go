// Package mirror orders the mirrors of a repository and runs requests against them until
// one succeeds.
package mirror

import (
	"context"
	"math/rand/v2"
	"net/url"
	"sync"

	"github.com/cperrin88/reposync/internal/logger"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

// Chooser decides the order in which mirrors are tried.
type Chooser interface {
	OrderMirrors(mirrors []model.Mirror, proxy *url.URL, tryFirst *model.Mirror) []model.Mirror
}

// RandomChooser shuffles mirrors on every attempt. Onion mirrors are only used when a
// proxy is configured.
type RandomChooser struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomChooser creates a chooser. A nil source uses a randomly seeded one.
func NewRandomChooser(src rand.Source) *RandomChooser {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomChooser{rnd: rand.New(src)}
}

// OrderMirrors returns the usable mirrors in the order they should be tried.
func (c *RandomChooser) OrderMirrors(mirrors []model.Mirror, proxy *url.URL, tryFirst *model.Mirror) []model.Mirror {
	usable := make([]model.Mirror, 0, len(mirrors))
	for _, m := range mirrors {
		if m.IsOnion() && proxy == nil {
			continue
		}
		usable = append(usable, m)
	}

	c.mu.Lock()
	c.rnd.Shuffle(len(usable), func(i, j int) { usable[i], usable[j] = usable[j], usable[i] })
	c.mu.Unlock()

	if tryFirst != nil {
		for i, m := range usable {
			if m.BaseURL == tryFirst.BaseURL {
				copy(usable[1:i+1], usable[:i])
				usable[0] = m
				break
			}
		}
	}
	return usable
}

// Request runs action against each mirror in the order chosen by c. Only transport errors
// move on to the next mirror; any other error is returned at once. When all mirrors fail
// the last error is returned.
func Request[T any](ctx context.Context, c Chooser, mirrors []model.Mirror, proxy *url.URL, tryFirst *model.Mirror,
	action func(ctx context.Context, m model.Mirror) (T, error)) (T, error) {
	var zero T
	ordered := c.OrderMirrors(mirrors, proxy, tryFirst)
	if len(ordered) == 0 {
		return zero, pkgerrors.ErrNoMirrors
	}

	var lastErr error
	for i, m := range ordered {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		res, err := action(ctx, m)
		if err == nil {
			return res, nil
		}
		if !pkgerrors.IsTransport(err) {
			return zero, err
		}
		lastErr = err
		if i < len(ordered)-1 {
			logger.Debug("mirror failed, trying next", logger.Fields{"mirror": m.BaseURL, "error": err.Error()})
		}
	}
	return zero, lastErr
}
