package errors

import (
	"errors"
	"fmt"
)

// Common error types for session persistence
var (
	ErrCorruptRecord   = errors.New("corrupt session record")
	ErrInvalidKey      = errors.New("invalid encryption key")
	ErrInvalidTable    = errors.New("invalid table name")
	ErrUnsupportedKind = errors.New("unsupported session store kind")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}
