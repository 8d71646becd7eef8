// Package fatal marks errors that must end the process with exit code 1
// instead of returning the operator to the menu.
package fatal

import "github.com/cockroachdb/errors"

var errFatal = errors.New("fatal")

// Mark tags err as unrecoverable. A nil err stays nil.
func Mark(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errFatal)
}

// Newf creates a new unrecoverable error.
func Newf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), errFatal)
}

func Is(err error) bool {
	return errors.Is(err, errFatal)
}
