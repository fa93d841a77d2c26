package model

import "fmt"

// Scope is the grouping granularity of an aggregate table.
type Scope int

const (
	National Scope = iota
	Regional
	Facility
)

// Scopes lists every granularity in output order.
var Scopes = []Scope{National, Regional, Facility}

func (s Scope) String() string {
	switch s {
	case National:
		return "national"
	case Regional:
		return "regional"
	case Facility:
		return "facility"
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// ParseScope accepts the names produced by String.
func ParseScope(s string) (Scope, error) {
	for _, sc := range Scopes {
		if sc.String() == s {
			return sc, nil
		}
	}
	return 0, fmt.Errorf("unknown scope %q", s)
}
