package extract

import (
	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/anchor"
	"github.com/joseph-ayodele/medscan/internal/classify"
	"github.com/joseph-ayodele/medscan/internal/fieldspec"
	"github.com/joseph-ayodele/medscan/internal/textnorm"
)

// DetectKind guesses whether doc is a lab report or a pharmacy label. It
// counts lines matched by the lab registry against lines carrying label
// signals (dose, directions verb, chain name, Rx or NDC). Lab lines are not
// counted twice: "LDL 130 mg/dL" reads as a dose too. Ties go to LAB only
// when at least one lab line was found.
func DetectKind(doc textnorm.Document, labs fieldspec.Registry) constants.DocumentKind {
	var labLines, medLines int
	for _, line := range doc.Lines {
		if matchesAny(labs, line) {
			labLines++
			continue
		}
		if medicationSignal(line) {
			medLines++
		}
	}
	if labLines > 0 && labLines >= medLines {
		return constants.KindLab
	}
	return constants.KindMedication
}

func matchesAny(reg fieldspec.Registry, line string) bool {
	for _, spec := range reg {
		if _, ok := spec.Match(line); ok {
			return true
		}
	}
	return false
}

func medicationSignal(line string) bool {
	if classify.HasDosageUnit(line) || classify.HasActionVerb(line) {
		return true
	}
	if _, ok := classify.ChainName(line); ok {
		return true
	}
	if _, ok := anchor.RxNumber(line); ok {
		return true
	}
	_, ok := anchor.NDC(line)
	return ok
}
