// Package fieldspec holds the static tables of extractable fields. Adding an
// analyte or a label attribute is a data change here, not a code change in the
// resolvers.
package fieldspec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/medscan/constants"
)

// reValueAfterLabel reads the first number within a short non-digit gap after a label.
var reValueAfterLabel = regexp.MustCompile(`^[^\d\n]{0,24}?(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`)

// Unit is a recognized measurement unit and the spelling it is reported in.
type Unit struct {
	Canonical string
	Pattern   *regexp.Regexp
}

// FieldSpec defines one multi-value field (a lab analyte).
type FieldSpec struct {
	Key         constants.FieldKey
	DisplayName string
	Matchers    []*regexp.Regexp
	Excludes    []*regexp.Regexp // a line matching any of these never yields this field
	Units       []Unit           // in precedence order
}

// Match is a successful read of a field from one line.
type Match struct {
	Value float64
	Raw   string // numeric token as it appeared
	Unit  string // canonical unit, "" when none was recognized
}

// HasUnit reports whether a recognized unit accompanied the value.
func (m Match) HasUnit() bool { return m.Unit != "" }

// Match tests line against every matcher. A label without a parsable number
// after it is not a match.
func (f FieldSpec) Match(line string) (Match, bool) {
	for _, ex := range f.Excludes {
		if ex.MatchString(line) {
			return Match{}, false
		}
	}
	for _, re := range f.Matchers {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			v := reValueAfterLabel.FindStringSubmatch(line[loc[1]:])
			if v == nil {
				continue
			}
			value, ok := ParseNumber(v[1])
			if !ok {
				continue
			}
			return Match{Value: value, Raw: v[1], Unit: f.unitIn(line)}, true
		}
	}
	return Match{}, false
}

func (f FieldSpec) unitIn(line string) string {
	for _, u := range f.Units {
		if u.Pattern.MatchString(line) {
			return u.Canonical
		}
	}
	return ""
}

// ParseNumber parses a numeric token, tolerating thousands separators.
func ParseNumber(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Registry is an ordered, read-only list of field specs.
type Registry []FieldSpec

// Lookup returns the spec for key.
func (r Registry) Lookup(key constants.FieldKey) (FieldSpec, bool) {
	for _, f := range r {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Keys returns the field keys in registry order.
func (r Registry) Keys() []constants.FieldKey {
	out := make([]constants.FieldKey, len(r))
	for i, f := range r {
		out[i] = f.Key
	}
	return out
}

func res(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
