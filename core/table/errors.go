package table

import (
	"errors"
	"fmt"
)

// NotFoundError reports an update against a missing record id.
// Get, Delete, and Exists never return it; absence is an explicit
// nil/false result for them.
type NotFoundError struct {
	Plugin string
	Table  string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %q not found in %s.%s", e.ID, e.Plugin, e.Table)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
