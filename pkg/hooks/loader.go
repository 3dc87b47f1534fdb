package hooks

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/errors"
)

// HookFileExtension is the extension of hook script files.
const HookFileExtension = ".tengo"

// LoadHooksFromDir registers every <hook-type>.tengo file in dir. A missing directory loads
// nothing; files for unknown hook types are skipped.
func LoadHooksFromDir(manager HookManager, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "failed to read hooks directory %s", dir)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != HookFileExtension {
			continue
		}

		hookType := HookType(strings.TrimSuffix(entry.Name(), HookFileExtension))
		if !Known(hookType) {
			logger.Warn("Skipping unknown hook", logger.Fields{"file": entry.Name()})
			continue
		}

		hookPath := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(hookPath)
		if err != nil {
			return loaded, errors.Wrapf(ErrHookLoad, "error reading hook file %s: %v", hookPath, err)
		}
		if err := manager.AddHook(Hook{Type: hookType, Content: string(content)}); err != nil {
			return loaded, errors.Wrapf(err, "error adding hook %s", hookType)
		}
		loaded++
		logger.Debug("Loaded hook", logger.Fields{"type": string(hookType), "path": hookPath})
	}
	return loaded, nil
}

// HookTemplate returns a starter script for a hook type.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case SyncDone:
		return `// sync-done runs after an update pass in which every repository succeeded.
// Available variables:
// - hook: string - the hook type
// - message: string - summary of the pass
// Assign a string or error to err to report a failure.

fmt := import("fmt")
fmt.println("repositories synchronized")
`

	case SyncError:
		return `// sync-error runs once per update pass when repositories failed.
// Available variables:
// - hook: string - the hook type
// - repo: string - the failing repository, empty for a pass summary
// - message: string - the error messages, one per line
// Assign a string or error to err to report a failure.

fmt := import("fmt")
fmt.println("sync failed: " + message)
`

	case UpdatesAvailable:
		return `// updates-available runs after an update scan found updates.
// Available variables:
// - hook: string - the hook type
// - count: int - number of apps with an update
// - apps: array of maps with packageName, name, fromVersion, toVersion, versionCode
// Assign a string or error to err to report a failure.

fmt := import("fmt")
for app in apps {
	fmt.printf("%s %s -> %s\n", app.name, app.fromVersion, app.toVersion)
}
`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
