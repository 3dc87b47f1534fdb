package hooks_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/reposync/pkg/hooks"
)

func TestTengoExecutor(t *testing.T) {
	executor := hooks.NewTengoExecutor()
	ctx := context.Background()
	hc := hooks.HookContext{
		Vars: map[string]interface{}{
			"repo":    "Main",
			"message": "certificate mismatch",
		},
	}

	t.Run("valid script", func(t *testing.T) {
		executor.AddScript(hooks.SyncDone, `// does nothing`)
		assert.NoError(t, executor.Execute(ctx, hooks.SyncDone, hc))
	})

	t.Run("runtime error", func(t *testing.T) {
		executor.AddScript(hooks.SyncError, `non_existent_function()`)
		err := executor.Execute(ctx, hooks.SyncError, hc)
		require.Error(t, err)
		assert.ErrorIs(t, err, hooks.ErrHookExecution)
	})

	t.Run("missing script", func(t *testing.T) {
		assert.NoError(t, executor.Execute(ctx, "non-existent", hc))
	})

	t.Run("script reports err", func(t *testing.T) {
		executor.AddScript(hooks.SyncError, `
			if repo == "Main" {
				err = "saw " + message
			}
		`)
		err := executor.Execute(ctx, hooks.SyncError, hc)
		require.Error(t, err)
		assert.ErrorIs(t, err, hooks.ErrHookScript)
		assert.Contains(t, err.Error(), "saw certificate mismatch")
	})

	t.Run("script reports error value", func(t *testing.T) {
		executor.AddScript(hooks.SyncError, `err = error("boom")`)
		err := executor.Execute(ctx, hooks.SyncError, hc)
		require.Error(t, err)
		assert.ErrorIs(t, err, hooks.ErrHookScript)
	})

	t.Run("hook type is visible", func(t *testing.T) {
		executor.AddScript(hooks.SyncDone, `if hook != "sync-done" { err = "wrong hook " + hook }`)
		assert.NoError(t, executor.Execute(ctx, hooks.SyncDone, hc))
	})

	t.Run("stops on context deadline", func(t *testing.T) {
		executor.AddScript(hooks.SyncDone, `for {}`)
		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		assert.Error(t, executor.Execute(ctx, hooks.SyncDone, hc))
	})

	t.Run("HasScript", func(t *testing.T) {
		hookType := hooks.HookType("test-hook")
		assert.False(t, executor.HasScript(hookType))
		executor.AddScript(hookType, "// test script")
		assert.True(t, executor.HasScript(hookType))
		executor.RemoveScript(hookType)
		assert.False(t, executor.HasScript(hookType))
	})
}
