// Package errors holds the sentinel errors shared across reposync packages and the
// helpers used to wrap them with context.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrConfigFileChmod   = fmt.Errorf("failed to set config file permissions")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config")

	// Config validation errors.
	ErrHTTPTimeoutNegative   = fmt.Errorf("http_timeout cannot be negative")
	ErrUpdateIntervalInvalid = fmt.Errorf("update_interval must be at least one minute")
	ErrParallelReposInvalid  = fmt.Errorf("parallel_repos cannot be negative")
	ErrInvalidProxy          = fmt.Errorf("invalid proxy URL")
	ErrInvalidRepository     = fmt.Errorf("invalid repository")
	ErrInvalidURL            = fmt.Errorf("invalid repository URL")

	// Transport errors. Anything wrapping ErrTransport is retried on the next mirror.
	ErrTransport      = fmt.Errorf("transport error")
	ErrNotFound       = fmt.Errorf("resource not found")
	ErrNoMirrors      = fmt.Errorf("no usable mirror")
	ErrNoResume       = fmt.Errorf("server does not support resuming")
	ErrDownloadFailed = fmt.Errorf("download failed")

	// Integrity errors.
	ErrFileHashMismatch    = fmt.Errorf("file hash mismatch")
	ErrFileSizeMismatch    = fmt.Errorf("file size mismatch")
	ErrSigning             = fmt.Errorf("invalid signature")
	ErrCertificateMismatch = fmt.Errorf("certificate mismatch")

	// Decode errors.
	ErrDecode = fmt.Errorf("malformed index data")

	// Catalog errors.
	ErrRepositoryNotFound = fmt.Errorf("repository not found")
	ErrAppNotFound        = fmt.Errorf("app not found")
	ErrInvalidPath        = fmt.Errorf("invalid path")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Transport marks err as a transport failure so that mirror failover picks it up.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// IsTransport reports whether err is a transport failure.
// Cancellation is never a transport failure, even when the HTTP client reports it as one.
func IsTransport(err error) bool {
	if err == nil || IsCanceled(err) {
		return false
	}
	return stderrors.Is(err, ErrTransport)
}

// IsCanceled reports whether err stems from a cancelled or expired context.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// ErrRepositoryNotFoundWithID returns ErrRepositoryNotFound annotated with the repository id.
func ErrRepositoryNotFoundWithID(id int64) error {
	return fmt.Errorf("%w: %d", ErrRepositoryNotFound, id)
}

// ErrDecodef returns ErrDecode with a formatted reason.
func ErrDecodef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

// ErrUnexpectedStatus is returned for HTTP responses outside the expected range.
func ErrUnexpectedStatus(code int) error {
	return fmt.Errorf("unexpected status code: %d: %w", code, ErrDownloadFailed)
}

// ErrEmptyRepositoryNameWithIndex reports a configured repository without a name.
func ErrEmptyRepositoryNameWithIndex(index int) error {
	return fmt.Errorf("%w: repository at index %d has no name", ErrInvalidRepository, index)
}

// ErrRepositoryAddressEmptyWithName reports a configured repository without an address.
func ErrRepositoryAddressEmptyWithName(name string) error {
	return fmt.Errorf("%w: repository %q has no address", ErrInvalidRepository, name)
}

// ErrRepositoryExistsWithName reports a duplicate repository name.
func ErrRepositoryExistsWithName(name string) error {
	return fmt.Errorf("%w: repository %q already exists", ErrInvalidRepository, name)
}

// ErrInvalidLogLevelWithDetails reports an unsupported log level.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: invalid log level %q (must be one of: debug, info, warn, error)", ErrConfigValidation, level)
}

// ErrInvalidOutputFormatWithDetails reports an unsupported output format.
func ErrInvalidOutputFormatWithDetails(format string) error {
	return fmt.Errorf("%w: invalid output format %q (must be one of: text, json)", ErrConfigValidation, format)
}
