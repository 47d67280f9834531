package merge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLocalRequired       = errors.New("merge: local root is required")
	ErrStrategyUnsupported = errors.New("merge: unsupported strategy")
	ErrUnresolvedConflicts = errors.New("merge: unresolved conflicts")
)

// UnresolvedConflictsError reports the conflicts left after applying
// caller-supplied resolutions.
type UnresolvedConflictsError struct {
	Conflicts []Conflict
}

func (e *UnresolvedConflictsError) Error() string {
	paths := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		paths = append(paths, c.Path)
	}
	return fmt.Sprintf("merge: %d unresolved conflicts: %s", len(e.Conflicts), strings.Join(paths, ", "))
}

func (e *UnresolvedConflictsError) Unwrap() error { return ErrUnresolvedConflicts }
