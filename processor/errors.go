package processor

import (
	"errors"
	"fmt"
)

// ErrIntegrityUnknown is reported when the remote service declared no checksum.
// It is informational, the entry still counts as processed.
var ErrIntegrityUnknown = errors.New("remote service did not provide a checksum")

// ResolutionError aborts a whole run: a folder listing could not be fetched or parsed
type ResolutionError struct {
	ID  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve folder %s: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// TransferError reports a failed byte transfer for a single file
type TransferError struct {
	Path string
	Err  error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %q failed: %v", e.Path, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IntegrityError reports a checksum mismatch for a file on disk
type IntegrityError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("MD5 checksum for %q does NOT match (expected %s, got %s)", e.Path, e.Expected, e.Actual)
}

// IsResolutionError reports whether err aborted resolution
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}
