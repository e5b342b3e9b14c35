// Package classify ranks OCR lines for roles that are ambiguous on a pharmacy
// label: the drug name, the patient, the pharmacy and the directions.
package classify

import (
	"sort"

	"github.com/joseph-ayodele/medscan/internal/anchor"
)

// Score weights, applied per line.
const (
	WeightDosageUnit  = 10
	WeightDosageForm  = 2
	WeightDrugSuffix  = 2
	PenaltyManyDigits = -4
	PenaltyStreet     = -6
	PenaltyFirstLine  = -5
	PenaltySecondLine = -2

	manyDigits = 10
)

// ScoredLine is a candidate line for an ambiguous role.
type ScoredLine struct {
	Line  string
	Index int
	Score int
}

// Score rates line as the source of the medication name. Higher is better.
// The first two lines are penalized because labels put the patient or
// pharmacy header there. documentLength does not change the weights.
func Score(line string, lineIndex, documentLength int) int {
	score := 0
	if HasDosageUnit(line) {
		score += WeightDosageUnit
	}
	if HasDosageForm(line) {
		score += WeightDosageForm
	}
	if HasDrugSuffix(line) {
		score += WeightDrugSuffix
	}
	if DigitCount(line) > manyDigits {
		score += PenaltyManyDigits
	}
	if HasStreetKeyword(line) {
		score += PenaltyStreet
	}
	switch lineIndex {
	case 0:
		score += PenaltyFirstLine
	case 1:
		score += PenaltySecondLine
	}
	return score
}

// IsNameCandidate drops lines that cannot be the medication name: addresses,
// phone numbers, administrative boilerplate, pharmacy names and lines shaped
// like a person's name (the patient line is the usual false winner).
func IsNameCandidate(line string) bool {
	switch {
	case letterCount(line) < 2:
		return false
	case IsAddressLine(line), anchor.HasPhone(line):
		return false
	case HasAdminKeyword(line), IsPharmacyLine(line):
		return false
	case IsPersonName(line):
		return false
	}
	return true
}

// RankNameLines filters and scores lines, best first. Equal scores keep
// document order.
func RankNameLines(lines []string) []ScoredLine {
	out := make([]ScoredLine, 0, len(lines))
	for i, line := range lines {
		if !IsNameCandidate(line) {
			continue
		}
		out = append(out, ScoredLine{Line: line, Index: i, Score: Score(line, i, len(lines))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// IsPatientCandidate reports a person-shaped line that carries no role keyword.
func IsPatientCandidate(line string) bool {
	return IsPersonName(line) &&
		!HasAdminKeyword(line) &&
		!HasActionVerb(line) &&
		!IsPharmacyLine(line) &&
		!IsAddressLine(line)
}
