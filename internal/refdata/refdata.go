package refdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var monthRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Override is a manual carry-forward correction: the death of MRNo is
// reported in Month instead of the month of its death date.
type Override struct {
	MRNo  string
	Month string
}

// Reference is the static lookup data for a run. It is immutable once built
// and safe for concurrent readers.
type Reference struct {
	regions   map[string]string
	overrides map[string]string
}

// New copies the given maps and validates override months.
func New(regions, overrides map[string]string) (*Reference, error) {
	r := &Reference{
		regions:   make(map[string]string, len(regions)),
		overrides: make(map[string]string, len(overrides)),
	}
	for facility, region := range regions {
		r.regions[strings.TrimSpace(facility)] = strings.TrimSpace(region)
	}
	for id, month := range overrides {
		month = strings.TrimSpace(month)
		if !monthRe.MatchString(month) {
			return nil, fmt.Errorf("override for %s: month %q is not YYYY-MM", id, month)
		}
		r.overrides[strings.TrimSpace(id)] = month
	}
	return r, nil
}

// Load reads the facility->region mapping and the override table. An empty
// overridePath means no overrides.
func Load(regionPath, overridePath string) (*Reference, error) {
	regions, err := readMap(regionPath)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}

	overrides := map[string]string{}
	if overridePath != "" {
		overrides, err = readMap(overridePath)
		if err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	return New(regions, overrides)
}

// readMap decodes a flat string->string object from JSON or YAML, chosen by
// file extension.
func readMap(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	m := map[string]string{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported reference file %s", path)
	}
	return m, nil
}

// Region returns the region of a facility.
func (r *Reference) Region(facility string) (string, bool) {
	region, ok := r.regions[facility]
	return region, ok
}

// Override returns the corrected month for a patient.
func (r *Reference) Override(mrNo string) (string, bool) {
	month, ok := r.overrides[mrNo]
	return month, ok
}

// Overrides returns every correction sorted by MR No.
func (r *Reference) Overrides() []Override {
	out := make([]Override, 0, len(r.overrides))
	for id, month := range r.overrides {
		out = append(out, Override{MRNo: id, Month: month})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MRNo < out[j].MRNo })
	return out
}
