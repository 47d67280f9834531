package markdown

import (
	"errors"
	"fmt"
)

var (
	ErrRootRequired    = errors.New("markdown: root is required")
	ErrInvalidDocument = errors.New("markdown: invalid document")
)

// ParseError reports a structurally invalid document. Line is 1-based
// and refers to the original text, including any front-matter block.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("markdown: parse error at line %d: %s", e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrInvalidDocument }

func parseErrorf(line int, format string, args ...any) error {
	return &ParseError{Line: line, Reason: fmt.Sprintf(format, args...)}
}
