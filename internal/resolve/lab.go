// Package resolve turns a normalized document into role and field
// candidates. It never fails; a missing field is just absent.
package resolve

import (
	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/anchor"
	"github.com/joseph-ayodele/medscan/internal/fieldspec"
	"github.com/joseph-ayodele/medscan/internal/textnorm"
)

// LabCandidate is one analyte value found on one line.
type LabCandidate struct {
	FieldKey    constants.FieldKey
	DisplayName string
	Value       float64
	Raw         string
	Unit        string
	SourceLine  string
	LineIndex   int
	Tier        constants.Tier
}

// LabResolution holds at most one candidate per field key, in registry order.
type LabResolution struct {
	Candidates   []LabCandidate
	DetectedDate string
	HasDate      bool
}

// Lab tests every line against every field spec in reg. Per key, a higher
// tier replaces a lower one; at equal tier the earlier line is kept.
func Lab(doc textnorm.Document, reg fieldspec.Registry) LabResolution {
	best := make(map[constants.FieldKey]LabCandidate, len(reg))
	for i, line := range doc.Lines {
		for _, spec := range reg {
			m, ok := spec.Match(line)
			if !ok {
				continue
			}
			c := LabCandidate{
				FieldKey:    spec.Key,
				DisplayName: spec.DisplayName,
				Value:       m.Value,
				Raw:         m.Raw,
				Unit:        m.Unit,
				SourceLine:  line,
				LineIndex:   i,
				Tier:        labTier(m),
			}
			if prev, seen := best[spec.Key]; !seen || c.Tier.Outranks(prev.Tier) {
				best[spec.Key] = c
			}
		}
	}

	out := LabResolution{Candidates: make([]LabCandidate, 0, len(best))}
	for _, spec := range reg {
		if c, ok := best[spec.Key]; ok {
			out.Candidates = append(out.Candidates, c)
		}
	}
	out.DetectedDate, out.HasDate = anchor.Date(doc.Joined())
	return out
}

// labTier never yields low: a unit on the line is high, a bare value medium.
func labTier(m fieldspec.Match) constants.Tier {
	if m.HasUnit() {
		return constants.TierHigh
	}
	return constants.TierMedium
}
