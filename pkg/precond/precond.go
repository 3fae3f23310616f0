// Package precond carries the error returned when a caller breaks an API
// contract: a bad thermometer code, a mask of the wrong length, a sweep with
// fewer than two bias points. These are configuration faults, detected before
// any simulation is dispatched.
package precond

import "github.com/pkg/errors"

var ErrViolation = errors.New("precondition violated")

// Errorf returns an error wrapping ErrViolation with the formatted message.
func Errorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrViolation, format, args...)
}
