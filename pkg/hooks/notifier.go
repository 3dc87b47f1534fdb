package hooks

import (
	"context"
	"time"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/orchestrator"
)

// DefaultTimeout bounds a single hook script run.
const DefaultTimeout = 30 * time.Second

// Notifier runs hook scripts for update pass notifications. It implements
// orchestrator.Notifier, and HandleEvent can be installed as orchestrator.Hooks.OnEvent.
type Notifier struct {
	manager HookManager
	timeout time.Duration
}

// NewNotifier creates a Notifier. A zero timeout uses DefaultTimeout.
func NewNotifier(manager HookManager, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{manager: manager, timeout: timeout}
}

// NotifyUpdates runs the updates-available hook.
func (n *Notifier) NotifyUpdates(ctx context.Context, u orchestrator.UpdatesNotification) error {
	apps := make([]interface{}, 0, len(u.Apps))
	for _, a := range u.Apps {
		apps = append(apps, map[string]interface{}{
			"packageName": a.PackageName,
			"name":        a.Name,
			"fromVersion": a.FromVersion,
			"toVersion":   a.ToVersion,
			"versionCode": a.VersionCode,
		})
	}
	return n.run(ctx, UpdatesAvailable, HookContext{Vars: map[string]interface{}{
		"count": u.Count,
		"apps":  apps,
	}})
}

// HandleEvent runs the sync-done or sync-error hook for the terminal events of a pass.
// Other events are ignored. Script failures are logged.
func (n *Notifier) HandleEvent(e orchestrator.Event) {
	var hookType HookType
	switch e.Phase {
	case orchestrator.PhaseDone:
		hookType = SyncDone
	case orchestrator.PhaseError:
		hookType = SyncError
	default:
		return
	}

	msg := e.Msg
	if msg == "" {
		msg = "update pass finished"
	}
	err := n.run(context.Background(), hookType, HookContext{Vars: map[string]interface{}{
		"repo":    e.ID,
		"message": msg,
	}})
	if err != nil {
		logger.Warn("Hook failed", logger.Fields{"hook": string(hookType), "error": err.Error()})
	}
}

func (n *Notifier) run(ctx context.Context, hookType HookType, hc HookContext) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.manager.Execute(ctx, hookType, hc)
}
