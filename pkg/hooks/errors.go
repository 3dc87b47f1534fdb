package hooks

import (
	"fmt"

	"github.com/cperrin88/reposync/pkg/errors"
)

// Common hook errors.
var (
	// ErrHookTypeEmpty is returned when a hook type is empty.
	ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")

	ErrHookExecution = errors.ErrHookExecution
	ErrHookScript    = errors.ErrHookScript

	// ErrHookLoad is returned when a hook file cannot be read.
	ErrHookLoad = fmt.Errorf("failed to load hook")
)

// ErrUnsupportedHookType is returned for hook types outside the supported set.
func ErrUnsupportedHookType(t HookType) error {
	return errors.Wrapf(ErrHookLoad, "unsupported hook type: %s", t)
}
