package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/model"
)

type inOrder struct{}

func (inOrder) OrderMirrors(mirrors []model.Mirror, _ *url.URL, _ *model.Mirror) []model.Mirror {
	return mirrors
}

var testMirrors = []model.Mirror{
	{BaseURL: "https://one.example.org/repo"},
	{BaseURL: "https://two.example.org/repo"},
	{BaseURL: "http://abcdefghijklmnop.onion/repo"},
	{BaseURL: "https://three.example.org/repo"},
}

func TestRandomChooser_OrderMirrors(t *testing.T) {
	proxy, _ := url.Parse("socks5://127.0.0.1:9050")

	tests := []struct {
		name      string
		proxy     *url.URL
		tryFirst  *model.Mirror
		wantLen   int
		wantFirst string
	}{
		{name: "onion skipped without proxy", proxy: nil, wantLen: 3},
		{name: "onion kept with proxy", proxy: proxy, wantLen: 4},
		{name: "try first hint", proxy: nil, tryFirst: &model.Mirror{BaseURL: "https://three.example.org/repo"}, wantLen: 3, wantFirst: "https://three.example.org/repo"},
		{name: "unknown hint ignored", proxy: nil, tryFirst: &model.Mirror{BaseURL: "https://nope.example.org"}, wantLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRandomChooser(rand.NewPCG(1, 2))
			for i := 0; i < 20; i++ {
				ordered := c.OrderMirrors(testMirrors, tt.proxy, tt.tryFirst)
				require.Len(t, ordered, tt.wantLen)
				if tt.wantFirst != "" {
					assert.Equal(t, tt.wantFirst, ordered[0].BaseURL)
				}
				if tt.proxy == nil {
					for _, m := range ordered {
						assert.False(t, m.IsOnion())
					}
				}
			}
		})
	}
}

func TestRandomChooser_Randomizes(t *testing.T) {
	c := NewRandomChooser(rand.NewPCG(7, 7))
	firsts := map[string]bool{}
	for i := 0; i < 50; i++ {
		firsts[c.OrderMirrors(testMirrors, nil, nil)[0].BaseURL] = true
	}
	assert.Greater(t, len(firsts), 1, "mirror order should vary between attempts")
}

func TestRequest_FailsOverOnTransportErrors(t *testing.T) {
	defer gock.OffAll()

	client := &http.Client{}
	gock.InterceptClient(client)
	defer gock.RestoreClient(client)

	gock.New("https://one.example.org").Get("/repo/entry.jar").Reply(http.StatusServiceUnavailable)
	gock.New("https://two.example.org").Get("/repo/entry.jar").Reply(http.StatusOK).BodyString("signed")

	var tried []string
	body, err := Request(context.Background(), inOrder{}, testMirrors[:2], nil, nil,
		func(ctx context.Context, m model.Mirror) (string, error) {
			tried = append(tried, m.BaseURL)
			u, err := m.URL("entry.jar")
			if err != nil {
				return "", err
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
			if err != nil {
				return "", err
			}
			resp, err := client.Do(req)
			if err != nil {
				return "", pkgerrors.Transport(err)
			}
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusOK {
				return "", pkgerrors.Transport(pkgerrors.ErrUnexpectedStatus(resp.StatusCode))
			}
			b, err := io.ReadAll(resp.Body)
			return string(b), err
		})

	require.NoError(t, err)
	assert.Equal(t, "signed", body)
	assert.Equal(t, []string{"https://one.example.org/repo", "https://two.example.org/repo"}, tried)
	assert.True(t, gock.IsDone())
}

func TestRequest_ErrorHandling(t *testing.T) {
	programming := errors.New("nil pointer")

	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantErr   error
	}{
		{
			name:      "non transport error is not retried",
			results:   []error{programming, nil},
			wantCalls: 1,
			wantErr:   programming,
		},
		{
			name:      "last transport error is returned",
			results:   []error{pkgerrors.Transport(errors.New("first")), pkgerrors.Transport(fmt.Errorf("last"))},
			wantCalls: 2,
			wantErr:   pkgerrors.ErrTransport,
		},
		{
			name:      "not found stops failover",
			results:   []error{pkgerrors.ErrNotFound, nil},
			wantCalls: 1,
			wantErr:   pkgerrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Request(context.Background(), inOrder{}, testMirrors[:2], nil, nil,
				func(context.Context, model.Mirror) (int, error) {
					err := tt.results[calls]
					calls++
					return calls, err
				})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantCalls == 2 {
				assert.Contains(t, err.Error(), "last")
			}
		})
	}
}

func TestRequest_NoMirrors(t *testing.T) {
	_, err := Request(context.Background(), NewRandomChooser(nil), testMirrors[2:3], nil, nil,
		func(context.Context, model.Mirror) (int, error) { return 0, nil })
	assert.ErrorIs(t, err, pkgerrors.ErrNoMirrors)
}

func TestRequest_StopsWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Request(ctx, inOrder{}, testMirrors[:2], nil, nil,
		func(context.Context, model.Mirror) (int, error) {
			calls++
			cancel()
			return 0, pkgerrors.Transport(errors.New("reset"))
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
