// Package resource validates resource names before any locking attempt.
// A name that fails validation is a bug in the task declarations, not a
// transient condition, so violations carry errors.ErrInvariant.
package resource

import (
	"fmt"
	"regexp"

	reserrors "github.com/testforge/reslock/v1/errors"
	"github.com/testforge/reslock/v1/task"
)

// Resource names are shared verbatim between cooperating processes, so the
// accepted syntax is deliberately narrow.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidName reports whether name is a syntactically valid resource name.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidateName returns an invariant error if name is not a valid resource name.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid resource name %q", reserrors.ErrInvariant, name)
	}
	return nil
}

// ValidateTask checks every resource name declared by t.
func ValidateTask(t task.Task) error {
	for _, name := range t.Resources {
		if !namePattern.MatchString(name) {
			return fmt.Errorf("%w: task %q declares invalid resource name %q",
				reserrors.ErrInvariant, t.ID, name)
		}
	}
	return nil
}
