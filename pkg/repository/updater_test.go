package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/reposync/pkg/auth"
	"github.com/cperrin88/reposync/pkg/catalog"
	"github.com/cperrin88/reposync/pkg/download"
	pkgerrors "github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/jarsign/jarsigntest"
	"github.com/cperrin88/reposync/pkg/model"
)

const fullIndexDoc = `{
	"repo": {"address": "https://ignored.example.org/repo", "timestamp": 1000, "name": {"en-US": "Test Repo"}},
	"packages": {
		"com.example.app": {
			"metadata": {"added": 1, "lastUpdated": 2, "name": {"en-US": "App"}},
			"versions": {
				"v1": {"added": 1, "file": {"name": "/app_1.apk", "sha256": "v1"}, "manifest": {"versionName": "1.0", "versionCode": 1}}
			}
		}
	}
}`

const diffDoc = `{
	"repo": {"timestamp": 2000},
	"packages": {
		"com.example.app": null,
		"com.example.new": {"metadata": {"added": 5, "lastUpdated": 5}}
	}
}`

const legacyDoc = `{
	"repo": {"timestamp": 1700000000000, "version": 21, "name": "Legacy", "address": "https://legacy.example.org/repo"},
	"requests": {"install": [], "uninstall": []},
	"apps": [{"packageName": "org.example.old", "suggestedVersionCode": "1", "name": "Old", "added": 1, "lastUpdated": 1}],
	"packages": {
		"org.example.old": [
			{"added": 1, "apkName": "old_1.apk", "hash": "h1", "hashType": "sha256", "packageName": "org.example.old",
			 "signer": "sig", "size": 10, "versionCode": 1, "versionName": "1"}
		]
	}
}`

// repoServer serves repository files and counts GET requests per path.
type repoServer struct {
	mu    sync.Mutex
	files map[string][]byte
	gets  map[string]int
	auth  map[string]bool
	srv   *httptest.Server
}

func newRepoServer(t *testing.T) *repoServer {
	t.Helper()
	s := &repoServer{files: map[string][]byte{}, gets: map[string]int{}, auth: map[string]bool{}}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		data, ok := s.files[r.URL.Path]
		if r.Method == http.MethodGet {
			s.gets[r.URL.Path]++
		}
		s.auth[r.Header.Get("Authorization")] = true
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		sum := sha256.Sum256(data)
		w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:8])+`"`)
		http.ServeContent(w, r, r.URL.Path, time.Unix(1700000000, 0), bytes.NewReader(data))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *repoServer) put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
}

func (s *repoServer) getCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[path]
}

func fileOf(name, content string, numPackages int) model.EntryFile {
	sum := sha256.Sum256([]byte(content))
	return model.EntryFile{
		File:        model.File{Name: name, SHA256: hex.EncodeToString(sum[:]), Size: int64(len(content))},
		NumPackages: numPackages,
	}
}

func entryJSON(t *testing.T, timestamp int64, idx model.EntryFile, diffs map[string]model.EntryFile) []byte {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, `{"timestamp": %d, "version": 20001, "index": {"name": %q, "sha256": %q, "size": %d, "numPackages": %d}`,
		timestamp, idx.Name, idx.SHA256, idx.Size, idx.NumPackages)
	if len(diffs) > 0 {
		b.WriteString(`, "diffs": {`)
		first := true
		for from, d := range diffs {
			if !first {
				b.WriteString(", ")
			}
			first = false
			fmt.Fprintf(&b, `%q: {"name": %q, "sha256": %q, "size": %d, "numPackages": %d}`, from, d.Name, d.SHA256, d.Size, d.NumPackages)
		}
		b.WriteString("}")
	}
	b.WriteString("}")
	return []byte(b.String())
}

type fixture struct {
	catalog  *catalog.Catalog
	server   *repoServer
	updater  *Updater
	progress []Progress
	repoID   int64
}

func newFixture(t *testing.T, repo model.Repository) *fixture {
	t.Helper()
	ctx := context.Background()
	c, err := catalog.Open(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	f := &fixture{catalog: c, server: newRepoServer(t)}
	repo.Address = f.server.srv.URL
	repo.Enabled = true
	f.repoID, err = c.InsertOrReplace(ctx, repo)
	require.NoError(t, err)

	client := download.NewHTTPManager(download.Options{Timeout: 5 * time.Second})
	f.updater = NewUpdater(c, client, Options{CacheDir: t.TempDir()})
	return f
}

func (f *fixture) hooks() Hooks {
	return Hooks{OnProgress: func(p Progress) { f.progress = append(f.progress, p) }}
}

func (f *fixture) repo(t *testing.T) model.Repository {
	t.Helper()
	repo, err := f.catalog.GetRepository(context.Background(), f.repoID)
	require.NoError(t, err)
	return repo
}

func (f *fixture) update(t *testing.T) Result {
	t.Helper()
	f.progress = nil
	return f.updater.Update(context.Background(), f.repo(t), f.hooks())
}

func (f *fixture) states() []string {
	var out []string
	for _, p := range f.progress {
		if len(out) == 0 || out[len(out)-1] != p.State {
			out = append(out, p.State)
		}
	}
	return out
}

func (f *fixture) publishFull(t *testing.T, signer *jarsigntest.Signer, timestamp int64, diffs map[string]model.EntryFile) {
	t.Helper()
	idx := fileOf("/index-v2.json", fullIndexDoc, 1)
	f.server.put("/index-v2.json", []byte(fullIndexDoc))
	f.server.put("/entry.jar", signer.JAR(t, EntryJSON, entryJSON(t, timestamp, idx, diffs)))
}

func TestUpdate_FullIndexTrustsFirstCertificate(t *testing.T) {
	f := newFixture(t, model.Repository{})
	signer := jarsigntest.NewSigner(t, "repo")
	f.publishFull(t, signer, 1000, nil)

	res := f.update(t)
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.Equal(t, []string{StateConnecting, StateDownloading, StateCommitting, StateProcessed}, f.states())
	last := f.progress[len(f.progress)-1]
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, f.repoID, last.RepoID)

	repo := f.repo(t)
	assert.Equal(t, signer.Certificate(), repo.Certificate)
	assert.Equal(t, signer.Fingerprint(), repo.Fingerprint)
	assert.Equal(t, model.FormatV2, repo.FormatVersion)
	assert.Equal(t, int64(1000), repo.Timestamp)
	assert.Equal(t, "Test Repo", repo.DisplayName())
	assert.NotEmpty(t, repo.LastETag)
	assert.NotZero(t, repo.LastUpdated)
	assert.Empty(t, repo.LastError)

	app, err := f.catalog.GetApp(context.Background(), f.repoID, "com.example.app")
	require.NoError(t, err)
	assert.Equal(t, model.LocalizedText{"en-US": "App"}, app.Metadata.Name)
}

func TestUpdate_UsesConfiguredCredentials(t *testing.T) {
	f := newFixture(t, model.Repository{Username: "stored", Password: "pw"})
	f.publishFull(t, jarsigntest.NewSigner(t, "repo"), 1000, nil)
	client := download.NewHTTPManager(download.Options{Timeout: 5 * time.Second})
	f.updater = NewUpdater(f.catalog, client, Options{
		CacheDir:    t.TempDir(),
		Credentials: map[string]auth.Authenticator{f.server.srv.URL: auth.BearerAuth{Token: "secret"}},
	})

	require.Equal(t, OutcomeProcessed, f.update(t).Outcome)
	assert.Equal(t, map[string]bool{"Bearer secret": true}, f.server.auth)
}

func TestUpdate_UnchangedEntry(t *testing.T) {
	f := newFixture(t, model.Repository{})
	f.publishFull(t, jarsigntest.NewSigner(t, "repo"), 1000, nil)
	require.Equal(t, OutcomeProcessed, f.update(t).Outcome)

	res := f.update(t)
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.Equal(t, []string{StateConnecting, StateUnchanged}, f.states())
	assert.Equal(t, 1, f.server.getCount("/entry.jar"))
	assert.Equal(t, 1, f.server.getCount("/index-v2.json"))
}

func TestUpdate_AppliesDiff(t *testing.T) {
	f := newFixture(t, model.Repository{})
	signer := jarsigntest.NewSigner(t, "repo")
	f.publishFull(t, signer, 1000, nil)
	require.Equal(t, OutcomeProcessed, f.update(t).Outcome)

	diff := fileOf("/diff/1000.json", diffDoc, 2)
	f.server.put("/diff/1000.json", []byte(diffDoc))
	f.publishFull(t, signer, 2000, map[string]model.EntryFile{"1000": diff})

	res := f.update(t)
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	assert.Equal(t, 1, f.server.getCount("/index-v2.json"), "full index must not be fetched again")
	assert.Equal(t, 1, f.server.getCount("/diff/1000.json"))

	ctx := context.Background()
	_, err := f.catalog.GetApp(ctx, f.repoID, "com.example.app")
	assert.ErrorIs(t, err, pkgerrors.ErrAppNotFound)
	versions, err := f.catalog.GetVersions(ctx, f.repoID, "com.example.app")
	require.NoError(t, err)
	assert.Empty(t, versions)
	_, err = f.catalog.GetApp(ctx, f.repoID, "com.example.new")
	assert.NoError(t, err)
	assert.Equal(t, int64(2000), f.repo(t).Timestamp)
}

func TestUpdate_CertificateMismatchCommitsNothing(t *testing.T) {
	f := newFixture(t, model.Repository{})
	f.publishFull(t, jarsigntest.NewSigner(t, "repo"), 1000, nil)
	require.Equal(t, OutcomeProcessed, f.update(t).Outcome)

	f.publishFull(t, jarsigntest.NewSigner(t, "attacker"), 3000, nil)
	res := f.update(t)
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.ErrCertificateMismatch)
	assert.Equal(t, StateError, f.states()[len(f.states())-1])

	repo := f.repo(t)
	assert.Equal(t, int64(1000), repo.Timestamp)
	assert.NotEmpty(t, repo.LastError)
	assert.True(t, repo.Enabled)
}

func TestUpdate_PinnedFingerprint(t *testing.T) {
	signer := jarsigntest.NewSigner(t, "repo")

	t.Run("mismatch", func(t *testing.T) {
		f := newFixture(t, model.Repository{Fingerprint: strings.Repeat("ab", 32)})
		f.publishFull(t, signer, 1000, nil)
		res := f.update(t)
		assert.ErrorIs(t, res.Err, pkgerrors.ErrCertificateMismatch)
		assert.Empty(t, f.repo(t).Certificate)
	})

	t.Run("match with separators", func(t *testing.T) {
		fp := strings.ToUpper(signer.Fingerprint())
		f := newFixture(t, model.Repository{Fingerprint: fp[:2] + ":" + fp[2:]})
		f.publishFull(t, signer, 1000, nil)
		res := f.update(t)
		require.NoError(t, res.Err)
		assert.Equal(t, signer.Certificate(), f.repo(t).Certificate)
	})
}

func TestUpdate_HashMismatch(t *testing.T) {
	f := newFixture(t, model.Repository{})
	signer := jarsigntest.NewSigner(t, "repo")
	idx := fileOf("/index-v2.json", fullIndexDoc, 1)
	f.server.put("/index-v2.json", []byte(strings.Replace(fullIndexDoc, "Test Repo", "Evil Repo", 1)))
	f.server.put("/entry.jar", signer.JAR(t, EntryJSON, entryJSON(t, 1000, idx, nil)))

	res := f.update(t)
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.ErrFileHashMismatch)
	repo := f.repo(t)
	assert.Empty(t, repo.Certificate)
	assert.Zero(t, repo.Timestamp)
}

func TestUpdate_LegacyFallback(t *testing.T) {
	f := newFixture(t, model.Repository{})
	signer := jarsigntest.NewSigner(t, "legacy")
	f.server.put("/index-v1.jar", signer.JAR(t, LegacyIndex, []byte(legacyDoc)))

	res := f.update(t)
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)
	repo := f.repo(t)
	assert.Equal(t, model.FormatV1, repo.FormatVersion)
	assert.Equal(t, signer.Certificate(), repo.Certificate)
	assert.Equal(t, int64(1700000000000), repo.Timestamp)
	_, err := f.catalog.GetApp(context.Background(), f.repoID, "org.example.old")
	assert.NoError(t, err)

	// Same document again without a cache tag: the index is parsed and found to be old.
	repo.LastETag = ""
	res = f.updater.Update(context.Background(), repo, f.hooks())
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
}

func TestUpdate_V2RepositoryDoesNotFallBack(t *testing.T) {
	f := newFixture(t, model.Repository{FormatVersion: model.FormatV2})
	f.server.put("/index-v1.jar", []byte("unused"))

	res := f.update(t)
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.ErrNotFound)
	assert.Zero(t, f.server.getCount("/index-v1.jar"))
}

func TestUpdate_Disabled(t *testing.T) {
	f := newFixture(t, model.Repository{})
	repo := f.repo(t)
	repo.Enabled = false

	res := f.updater.Update(context.Background(), repo, f.hooks())
	assert.ErrorIs(t, res.Err, ErrRepositoryDisabled)
	assert.Empty(t, f.progress)
	assert.Zero(t, f.server.getCount("/entry.jar"))
}

func TestUpdate_CanceledIsNotAFailure(t *testing.T) {
	f := newFixture(t, model.Repository{})
	f.publishFull(t, jarsigntest.NewSigner(t, "repo"), 1000, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := f.updater.Update(ctx, f.repo(t), f.hooks())
	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, f.repo(t).LastError)
	assert.Equal(t, StateCanceled, f.states()[len(f.states())-1])
}
