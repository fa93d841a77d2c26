package source

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSnapshot    = errors.New("no snapshot file")
	ErrMissingColumn = errors.New("required column missing")
	ErrEmptySource   = errors.New("source has no data rows")
)

// SourceError attaches the failing source, file line and patient identifier
// to a fatal error. Row and Identifier are zero when not applicable.
type SourceError struct {
	Source     string
	Row        int
	Identifier string
	Err        error
}

func (e *SourceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Source)
	if e.Row > 0 {
		fmt.Fprintf(&b, " row %d", e.Row)
	}
	if e.Identifier != "" {
		fmt.Fprintf(&b, " (MR No. %s)", e.Identifier)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
