// Package repository defines error types that are reused across the
// repository and its callers.  Handlers inspect the failed stage to decide
// how to describe a database error to the client.
package repository

import "errors"

// Stages of a database call that can fail.
const (
	OpInsert = "insert"
	OpFind   = "find"
	OpCursor = "cursor"
)

// OpError records which stage of a database call failed.  Its message is
// the driver's own error text so it can be shown to clients unchanged.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return e.Err.Error() }

func (e *OpError) Unwrap() error { return e.Err }

// FailedOp reports the stage recorded in err, or "" when err did not come
// from this package.
func FailedOp(err error) string {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Op
	}
	return ""
}
