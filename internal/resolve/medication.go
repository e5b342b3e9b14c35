package resolve

import (
	"strings"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/anchor"
	"github.com/joseph-ayodele/medscan/internal/classify"
	"github.com/joseph-ayodele/medscan/internal/fieldspec"
	"github.com/joseph-ayodele/medscan/internal/textnorm"
)

const (
	// patient fallback only looks at the top of the label
	patientWindow = 8
	// longest directions block, in lines
	maxDirections = 6
)

// Role is a value resolved from one or more document lines.
type Role struct {
	Value string
	Lines []int
}

// MedicationResolution is the single-record result for a pharmacy label.
// Role fields are nil when nothing was found; anchors carry ok flags.
type MedicationResolution struct {
	Name       *Role
	Pharmacy   *Role
	Patient    *Role
	Prescriber *Role
	Directions *Role

	Strength      string
	PharmacyPhone string
	RxNumber      string
	NDC           string
	FillDate      string
	Quantity      int
	Refills       int

	HasStrength, HasPharmacyPhone, HasRxNumber, HasNDC, HasFillDate bool
	HasQuantity, HasRefills                                         bool

	Confidence constants.Tier
}

// claims tracks line indexes already assigned to a role.
type claims map[int]struct{}

func (c claims) taken(i int) bool {
	_, ok := c[i]
	return ok
}

func (c claims) claim(r *Role) *Role {
	if r != nil {
		for _, i := range r.Lines {
			c[i] = struct{}{}
		}
	}
	return r
}

// Medication resolves the label roles in a fixed order: name, pharmacy,
// directions, patient, prescriber. A line claimed by one role is skipped by
// every later role, so short continuation lines ("WITH MEALS") stay in the
// directions instead of being read as the patient.
func Medication(doc textnorm.Document) MedicationResolution {
	var res MedicationResolution
	used := claims{}

	res.Name = used.claim(resolveName(doc.Lines))
	res.Pharmacy = used.claim(resolvePharmacy(doc.Lines, used))
	res.Directions = used.claim(resolveDirections(doc.Lines, used))
	res.Patient = used.claim(resolvePatient(doc.Lines, used))
	res.Prescriber = used.claim(resolvePrescriber(doc.Lines, used))

	text := doc.Joined()
	res.Strength, res.HasStrength = classify.Strength(text)
	res.PharmacyPhone, res.HasPharmacyPhone = pharmacyPhone(doc.Lines, res.Pharmacy, text)
	res.RxNumber, res.HasRxNumber = anchor.RxNumber(text)
	res.NDC, res.HasNDC = anchor.NDC(text)
	res.Quantity, res.HasQuantity = anchor.Quantity(text)
	res.Refills, res.HasRefills = anchor.Refills(text)
	res.FillDate, res.HasFillDate = anchor.Date(text)

	res.Confidence = medicationConfidence(res.Name != nil, res.HasStrength, res.Directions != nil)
	return res
}

// resolveName takes the best ranked line that still has text once the
// dosage unit is removed. A line holding only the strength ("10 MG") is
// passed over for the next candidate.
func resolveName(lines []string) *Role {
	for _, c := range classify.RankNameLines(lines) {
		if name := classify.StripDosageUnit(c.Line); name != "" {
			return &Role{Value: name, Lines: []int{c.Index}}
		}
	}
	return nil
}

func resolvePharmacy(lines []string, used claims) *Role {
	for i, line := range lines {
		if used.taken(i) {
			continue
		}
		if name, ok := classify.MatchPharmacy(line); ok {
			return &Role{Value: name, Lines: []int{i}}
		}
	}
	return nil
}

func resolvePatient(lines []string, used claims) *Role {
	if r := labeledRole(fieldspec.AttrPatientName, lines, used); r != nil {
		return r
	}
	for i, line := range lines {
		if i >= patientWindow {
			break
		}
		if !used.taken(i) && classify.IsPatientCandidate(line) {
			return &Role{Value: line, Lines: []int{i}}
		}
	}
	return nil
}

func resolvePrescriber(lines []string, used claims) *Role {
	if r := labeledRole(fieldspec.AttrPrescriber, lines, used); r != nil {
		return r
	}
	for i, line := range lines {
		if !used.taken(i) && classify.HasDoctorToken(line) {
			return &Role{Value: line, Lines: []int{i}}
		}
	}
	return nil
}

func labeledRole(key fieldspec.Attribute, lines []string, used claims) *Role {
	for i, line := range lines {
		if used.taken(i) {
			continue
		}
		if v, ok := fieldspec.Labeled(key, line); ok {
			return &Role{Value: v, Lines: []int{i}}
		}
	}
	return nil
}

// resolveDirections starts at the first unclaimed action-verb line and runs
// until a line that belongs to some other part of the label.
func resolveDirections(lines []string, used claims) *Role {
	start := -1
	for i, line := range lines {
		if !used.taken(i) && classify.HasActionVerb(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	r := &Role{Lines: []int{start}}
	parts := []string{lines[start]}
	for i := start + 1; i < len(lines) && len(parts) < maxDirections; i++ {
		if used.taken(i) || endsDirections(lines[i]) {
			break
		}
		parts = append(parts, lines[i])
		r.Lines = append(r.Lines, i)
	}
	r.Value = strings.Join(parts, " ")
	return r
}

func endsDirections(line string) bool {
	if classify.HasDirectionsStop(line) || anchor.HasIdentifier(line) || anchor.HasPhone(line) {
		return true
	}
	if classify.IsAddressLine(line) || classify.IsPharmacyLine(line) {
		return true
	}
	_, dated := anchor.Date(line)
	return dated
}

func pharmacyPhone(lines []string, pharmacy *Role, text string) (string, bool) {
	if pharmacy != nil {
		for _, i := range pharmacy.Lines {
			if p, ok := anchor.Phone(lines[i]); ok {
				return p, true
			}
		}
	}
	return anchor.Phone(text)
}

func medicationConfidence(name, strength, directions bool) constants.Tier {
	switch {
	case name && strength && directions:
		return constants.TierHigh
	case name && (strength || directions):
		return constants.TierMedium
	default:
		return constants.TierLow
	}
}
