package scanner

import (
	"errors"
	"fmt"
)

// errStaleSession is returned when a session was reset while a
// workflow call was in flight; the caller should drop the result.
var errStaleSession = errors.New("scan session no longer current")

func newConfirmStateError(step Step) error {
	return fmt.Errorf("cannot confirm from step %s", step)
}

// IsStaleSession reports whether an error means the session was reset
// mid-operation.
func IsStaleSession(err error) bool {
	return errors.Is(err, errStaleSession)
}
