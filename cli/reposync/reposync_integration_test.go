//go:build integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cperrin88/reposync/pkg/config"
	"github.com/cperrin88/reposync/pkg/jarsign/jarsigntest"
	"github.com/cperrin88/reposync/test/testutil"
)

const appIndex = `{
	"repo": {"address": "https://ignored.example.org/repo", "timestamp": 1000, "name": {"en-US": "Fixture"}},
	"packages": {
		"com.example.app": {
			"metadata": {"added": 1, "lastUpdated": 2, "name": {"en-US": "Example"}},
			"versions": {
				"v2": {"added": 2, "file": {"name": "/app_2.apk", "sha256": "v2", "size": 2048}, "manifest": {"versionName": "2.0", "versionCode": 2}}
			}
		}
	}
}`

// run executes the root command and returns what it printed to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	cmd := newRootCmd()
	cmd.SetArgs(args)
	runErr := cmd.ExecuteContext(context.Background())

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String(), runErr
}

// writeConfig writes a configuration keeping all state below dir.
func writeConfig(t *testing.T, dir string, repos ...*config.RepositoryConfig) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Settings.DataDir = filepath.Join(dir, "data")
	cfg.Settings.CacheDir = filepath.Join(dir, "cache")
	cfg.Settings.HooksDir = filepath.Join(dir, "hooks")
	cfg.Repositories = repos
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.SaveConfig(path))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "reposync version")
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands")
	assert.Contains(t, out, "daemon")
}

func TestConfigInitSetGet(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")

	_, err := run(t, "--config", cfgPath, "config", "init")
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "config", "init")
	require.Error(t, err, "init must not overwrite without --force")

	_, err = run(t, "--config", cfgPath, "config", "set", "parallel_repos", "3")
	require.NoError(t, err)
	out, err := run(t, "--config", cfgPath, "config", "get", "parallel_repos")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	_, err = run(t, "--config", cfgPath, "config", "set", "update_interval", "10s")
	require.Error(t, err)

	raw, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "settings")
}

func TestRepoCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := run(t, "--config", cfgPath, "repo", "add", "https://repo.example.org/repo/?fingerprint=AB:CD", "--name", "Example", "--save")
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "repo", "add", "https://repo.example.org/repo")
	require.Error(t, err, "adding the same address twice must fail")

	out, err := run(t, "--config", cfgPath, "-o", "json", "repo", "list")
	require.NoError(t, err)
	var repos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	require.Len(t, repos, 1)
	assert.Equal(t, "https://repo.example.org/repo", repos[0]["address"])
	assert.Equal(t, "abcd", repos[0]["fingerprint"])
	assert.Equal(t, true, repos[0]["enabled"])

	_, err = run(t, "--config", cfgPath, "repo", "disable", "Example")
	require.NoError(t, err)
	_, err = run(t, "--config", cfgPath, "repo", "mirror", "add", "1", "https://mirror.example.net/repo/")
	require.NoError(t, err)

	out, err = run(t, "--config", cfgPath, "-o", "json", "repo", "list")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &repos))
	assert.Equal(t, false, repos[0]["enabled"])
	assert.EqualValues(t, 2, repos[0]["mirrors"])

	cfg, err := config.LoadConfig(cfgPath)
	require.NoError(t, err)
	require.NotNil(t, cfg.GetRepository("Example"))

	_, err = run(t, "--config", cfgPath, "repo", "remove", "https://repo.example.org/repo")
	require.NoError(t, err)
	cfg, err = config.LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Nil(t, cfg.GetRepository("Example"))
}

func TestSyncFindsUpdates(t *testing.T) {
	dir := t.TempDir()
	srv := testutil.NewRepoServer(t)
	srv.PublishV2(t, jarsigntest.NewSigner(t, "fixture"), 1000, appIndex, 1)
	cfgPath := writeConfig(t, dir, &config.RepositoryConfig{Name: "Fixture", Address: srv.URL})

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "hooks"), 0o755))
	marker := filepath.Join(dir, "updates.txt")
	hook := `os := import("os")
fmt := import("fmt")
f := os.create(` + "`" + marker + "`" + `)
f.write_string(fmt.sprintf("%d", count))
f.close()
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hooks", "updates-available.tengo"), []byte(hook), 0o644))

	_, err := run(t, "--config", cfgPath, "installed", "set", "com.example.app", "1", "--version-name", "1.0")
	require.NoError(t, err)

	out, err := run(t, "--config", cfgPath, "-o", "json", "sync")
	require.NoError(t, err)
	var pass struct {
		Results []struct {
			Name    string `json:"name"`
			Outcome string `json:"outcome"`
		} `json:"results"`
		Updates struct {
			Count int `json:"count"`
			Apps  []struct {
				PackageName string `json:"packageName"`
				ToVersion   string `json:"toVersion"`
			} `json:"apps"`
		} `json:"updates"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pass))
	require.Len(t, pass.Results, 1)
	assert.Equal(t, "processed", pass.Results[0].Outcome)
	require.Equal(t, 1, pass.Updates.Count)
	assert.Equal(t, "com.example.app", pass.Updates.Apps[0].PackageName)
	assert.Equal(t, "2.0", pass.Updates.Apps[0].ToVersion)

	written, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, "1", string(written))

	_, err = run(t, "--config", cfgPath, "ignore", "com.example.app", "--version", "2")
	require.NoError(t, err)
	out, err = run(t, "--config", cfgPath, "-o", "json", "updates")
	require.NoError(t, err)
	assert.Contains(t, out, `"count": 0`)

	out, err = run(t, "--config", cfgPath, "show", "com.example.app")
	require.NoError(t, err)
	assert.Contains(t, out, "Example (com.example.app)")
	assert.Contains(t, out, "2.0 kB")

	// a second process sees the entry unchanged
	out, err = run(t, "--config", cfgPath, "-o", "json", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, `"unchanged"`)
	assert.Equal(t, 1, srv.Gets("/index-v2.json"))
}

func TestSyncReportsFailedRepositories(t *testing.T) {
	dir := t.TempDir()
	srv := testutil.NewRepoServer(t)
	cfgPath := writeConfig(t, dir, &config.RepositoryConfig{Name: "Empty", Address: srv.URL})

	out, err := run(t, "--config", cfgPath, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 repositories failed")
	assert.Contains(t, out, "error")
}
