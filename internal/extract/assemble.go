package extract

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/resolve"
	"github.com/joseph-ayodele/medscan/internal/textnorm"
)

// documentNamespace seeds name-based document IDs.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("medscan.document"))

// DocumentID derives a stable ID from the kind and normalized text, so the
// same transcript always maps to the same proposal.
func DocumentID(kind constants.DocumentKind, doc textnorm.Document) string {
	return uuid.NewSHA1(documentNamespace, []byte(string(kind)+"\n"+doc.RawText)).String()
}

func assembleLab(doc textnorm.Document, r resolve.LabResolution) LabResult {
	out := LabResult{
		DocumentID: DocumentID(constants.KindLab, doc),
		Kind:       constants.KindLab,
		Candidates: make([]Candidate, 0, len(r.Candidates)),
		RawText:    doc.RawText,
	}
	if r.HasDate {
		out.DetectedDate = ptr(r.DetectedDate)
	}
	out.RequiresDateEntry = out.DetectedDate == nil

	for _, c := range r.Candidates {
		cand := Candidate{
			FieldKey:       c.FieldKey,
			DisplayName:    c.DisplayName,
			Value:          c.Value,
			SourceLine:     c.SourceLine,
			LineIndex:      c.LineIndex,
			ConfidenceTier: c.Tier,
		}
		if c.Unit != "" {
			cand.Unit = ptr(c.Unit)
		}
		out.Candidates = append(out.Candidates, cand)
	}
	out.Confidence = labConfidence(out.Candidates, out.DetectedDate != nil)
	return out
}

// labConfidence: low without candidates, high when every candidate is high
// and a date was found, medium otherwise.
func labConfidence(cands []Candidate, dated bool) constants.Tier {
	if len(cands) == 0 {
		return constants.TierLow
	}
	if !dated {
		return constants.TierMedium
	}
	for _, c := range cands {
		if c.ConfidenceTier != constants.TierHigh {
			return constants.TierMedium
		}
	}
	return constants.TierHigh
}

func emptyLab(doc textnorm.Document) LabResult {
	return LabResult{
		DocumentID:        DocumentID(constants.KindLab, doc),
		Kind:              constants.KindLab,
		RequiresDateEntry: true,
		Candidates:        []Candidate{},
		Confidence:        constants.TierLow,
		RawText:           doc.RawText,
	}
}

func assembleMedication(doc textnorm.Document, r resolve.MedicationResolution) MedicationLabelResult {
	out := MedicationLabelResult{
		DocumentID:    DocumentID(constants.KindMedication, doc),
		Kind:          constants.KindMedication,
		DisplayName:   roleValue(r.Name),
		Directions:    roleValue(r.Directions),
		Pharmacy:      roleValue(r.Pharmacy),
		PatientName:   roleValue(r.Patient),
		Prescriber:    roleValue(r.Prescriber),
		Strength:      optional(r.Strength, r.HasStrength),
		PharmacyPhone: optional(r.PharmacyPhone, r.HasPharmacyPhone),
		RxNumber:      optional(r.RxNumber, r.HasRxNumber),
		NDC:           optional(r.NDC, r.HasNDC),
		Quantity:      optional(r.Quantity, r.HasQuantity),
		Refills:       optional(r.Refills, r.HasRefills),
		FillDate:      optional(r.FillDate, r.HasFillDate),
		RawOCRText:    doc.RawText,
		Confidence:    r.Confidence,
	}
	return out
}

func emptyMedication(doc textnorm.Document) MedicationLabelResult {
	return MedicationLabelResult{
		DocumentID: DocumentID(constants.KindMedication, doc),
		Kind:       constants.KindMedication,
		RawOCRText: doc.RawText,
		Confidence: constants.TierLow,
	}
}

func roleValue(r *resolve.Role) *string {
	if r == nil {
		return nil
	}
	return ptr(r.Value)
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

func ptr[T any](v T) *T { return &v }
