package analyzer

import "fmt"

// ParseError reports source that could not be parsed. The analysis of the
// resource degrades to whatever was collected before the error.
type ParseError struct {
	Resource string
	Line     int
	Column   int
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("parsing %s: syntax error at %d:%d", e.Resource, e.Line, e.Column)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConflictingDeclarationError reports a file whose main module cannot be
// determined unambiguously.
type ConflictingDeclarationError struct {
	Resource string
	Message  string
}

func (e *ConflictingDeclarationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Resource, e.Message)
}
