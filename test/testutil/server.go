// Package testutil serves signed repositories to end-to-end tests.
package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cperrin88/reposync/pkg/jarsign/jarsigntest"
)

// RepoServer is an in-memory repository host.
type RepoServer struct {
	URL string

	mu    sync.Mutex
	files map[string][]byte
	gets  map[string]int
	srv   *httptest.Server
}

// NewRepoServer starts a server that is closed when the test finishes.
func NewRepoServer(t testing.TB) *RepoServer {
	t.Helper()
	s := &RepoServer{files: map[string][]byte{}, gets: map[string]int{}}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

func (s *RepoServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data, ok := s.files[r.URL.Path]
	if r.Method == http.MethodGet {
		s.gets[r.URL.Path]++
	}
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	sum := sha256.Sum256(data)
	w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:8])+`"`)
	http.ServeContent(w, r, r.URL.Path, time.Unix(1700000000, 0), bytes.NewReader(data))
}

// Put publishes data under path.
func (s *RepoServer) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
}

// Gets returns how often path was downloaded.
func (s *RepoServer) Gets(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[path]
}

// PublishV2 publishes index as the full index-v2.json together with an entry.jar signed by
// signer that points at it.
func (s *RepoServer) PublishV2(t testing.TB, signer *jarsigntest.Signer, timestamp int64, index string, numPackages int) {
	t.Helper()
	sum := sha256.Sum256([]byte(index))
	entry := fmt.Sprintf(`{"timestamp": %d, "version": 20001, "index": {"name": "/index-v2.json", "sha256": %q, "size": %d, "numPackages": %d}}`,
		timestamp, hex.EncodeToString(sum[:]), len(index), numPackages)
	s.Put("/index-v2.json", []byte(index))
	s.Put("/entry.jar", signer.JAR(t, "entry.json", []byte(entry)))
}
