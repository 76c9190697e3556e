package importer

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrParse is the cause of every *ParseError.
var ErrParse = errors.New("file is not a readable spreadsheet")

type ParseError struct {
	Filename string
	Err      error
}

func newParseError(filename string, err error) error {
	return &ParseError{Filename: filename, Err: err}
}

func (e *ParseError) Error() string {
	msg := ErrParse.Error()
	if e.Filename != "" {
		msg = e.Filename + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Cause makes errors.Cause return ErrParse.
func (e *ParseError) Cause() error { return ErrParse }
func (e *ParseError) Unwrap() error { return ErrParse }

// MissingColumnError lists every mandatory column the header lacks.
type MissingColumnError struct {
	Missing []Role
	// Suggestions maps a missing role to the closest header text, if any.
	Suggestions map[Role]string
}

func (e *MissingColumnError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, role := range e.Missing {
		part := string(role)
		if hint, ok := e.Suggestions[role]; ok {
			part += fmt.Sprintf(" (did you mean %q?)", hint)
		}
		parts = append(parts, part)
	}
	return "missing required column(s): " + strings.Join(parts, ", ")
}

// PartialCommitError reports an import that stopped part way.
// Committed classes are fully saved; the Failed class may be partially saved.
// Re-running the same import is safe.
type PartialCommitError struct {
	Committed []string
	Failed    string
	Err       error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("import stopped at class %q after committing %d class(es): %v", e.Failed, len(e.Committed), e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }
