package hooks

import (
	"context"
	"sync"
)

// DefaultHookManager is the default implementation of HookManager.
type DefaultHookManager struct {
	executor *TengoExecutor
	mutex    sync.RWMutex
}

// NewHookManager creates a new hook manager.
func NewHookManager() *DefaultHookManager {
	return &DefaultHookManager{
		executor: NewTengoExecutor(),
	}
}

// Execute runs the hook of the given type. Without a registered hook it does nothing.
func (m *DefaultHookManager) Execute(ctx context.Context, hookType HookType, hc HookContext) error {
	if !m.HasHook(hookType) {
		return nil
	}
	if hc.Vars == nil {
		hc.Vars = make(map[string]interface{})
	}
	return m.executor.Execute(ctx, hookType, hc)
}

// AddHook adds or replaces a hook.
func (m *DefaultHookManager) AddHook(hook Hook) error {
	if hook.Type == "" {
		return ErrHookTypeEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.executor.AddScript(hook.Type, hook.Content)
	return nil
}

// RemoveHook removes the hook of the given type.
func (m *DefaultHookManager) RemoveHook(hookType HookType) error {
	if hookType == "" {
		return ErrHookTypeEmpty
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.executor.RemoveScript(hookType)
	return nil
}

// HasHook checks if a hook of the given type exists.
func (m *DefaultHookManager) HasHook(hookType HookType) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.executor.HasScript(hookType)
}
