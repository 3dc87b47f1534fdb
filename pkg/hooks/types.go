package hooks

import "context"

// HookType names the event a hook script runs on.
type HookType string

// Supported hook types. A script is loaded from <hooks dir>/<type>.tengo.
const (
	SyncDone         HookType = "sync-done"
	SyncError        HookType = "sync-error"
	UpdatesAvailable HookType = "updates-available"
)

// Known reports whether t is a supported hook type.
func Known(t HookType) bool {
	switch t {
	case SyncDone, SyncError, UpdatesAvailable:
		return true
	default:
		return false
	}
}

// Hook is a script bound to a hook type.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext holds the variables a script sees. Values must be convertible by tengo:
// strings, numbers, booleans, slices and maps of those.
type HookContext struct {
	Vars map[string]interface{}
}

// HookManager manages hook scripts.
type HookManager interface {
	// Execute runs the script registered for hookType, if any.
	Execute(ctx context.Context, hookType HookType, hc HookContext) error

	AddHook(hook Hook) error
	RemoveHook(hookType HookType) error
	HasHook(hookType HookType) bool
}
