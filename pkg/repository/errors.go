package repository

import (
	"fmt"

	"github.com/cperrin88/reposync/pkg/errors"
)

// Common repository errors.
var (
	// ErrRepositoryDisabled is returned when an update is requested for a disabled repository.
	ErrRepositoryDisabled = fmt.Errorf("repository is disabled")

	// ErrNoCertificate is returned when a signed index carries no certificate.
	ErrNoCertificate = fmt.Errorf("index is signed without a certificate")

	// ErrUnexpectedState is returned when the update state machine rejects a transition.
	ErrUnexpectedState = fmt.Errorf("unexpected update state")
)

// Wrap wraps an error with additional context specific to the repository package.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, "repository: "+msg)
}

// Wrapf wraps an error with additional formatted context specific to the repository package.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, "repository: "+format, args...)
}
