package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"
)

// DiagnosticKind classifies a recoverable data-quality finding.
type DiagnosticKind string

const (
	// StaleOverride: a carry-forward correction names a patient missing
	// from the current mortality snapshot.
	StaleOverride DiagnosticKind = "stale_override"
	// UnmappedFacility: a facility has no region; its rows keep a null region.
	UnmappedFacility DiagnosticKind = "unmapped_facility"
	// SponsorUnresolved: an active haemodialysis sponsor row has no name in
	// any candidate column.
	SponsorUnresolved DiagnosticKind = "sponsor_unresolved"
)

// Diagnostic is a non-fatal finding reported after a run.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	Source     string         `json:"source"`
	Identifier string         `json:"identifier"`
	Detail     string         `json:"detail"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s [%s] %s: %s", d.Kind, d.Source, d.Identifier, d.Detail)
}

// Diagnostics is an ordered collection of findings.
type Diagnostics []Diagnostic

// Count returns how many findings are of kind k.
func (ds Diagnostics) Count(k DiagnosticKind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Log writes one warning per finding.
func (ds Diagnostics) Log(logger zerolog.Logger) {
	for _, d := range ds {
		logger.Warn().
			Str("kind", string(d.Kind)).
			Str("source", d.Source).
			Str("identifier", d.Identifier).
			Msg(d.Detail)
	}
}
