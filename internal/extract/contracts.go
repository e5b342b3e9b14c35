package extract

import (
	"context"
	"time"

	"github.com/joseph-ayodele/medscan/constants"
)

// TextExtractor is the OCR stage: file -> transcript.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // "PDF" | "IMAGE" | "TXT"
	Method     string // "text" | "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Candidate is a proposed lab value awaiting confirmation.
type Candidate struct {
	FieldKey       constants.FieldKey `json:"fieldKey"`
	DisplayName    string             `json:"displayName"`
	Value          float64            `json:"value"`
	Unit           *string            `json:"unit,omitempty"`
	SourceLine     string             `json:"sourceLine"`
	LineIndex      int                `json:"lineIndex"`
	ConfidenceTier constants.Tier     `json:"confidenceTier"`
}

// LabResult is the multi-value result for a lab report. Candidates holds at
// most one entry per field key and is never nil.
type LabResult struct {
	DocumentID        string                 `json:"documentId"`
	Kind              constants.DocumentKind `json:"kind"`
	DetectedDate      *string                `json:"detectedDate,omitempty"`
	RequiresDateEntry bool                   `json:"requiresDateEntry"`
	Candidates        []Candidate            `json:"candidates"`
	Confidence        constants.Tier         `json:"confidence"`
	RawText           string                 `json:"rawText"`
}

// MedicationLabelResult is the single-record result for a pharmacy label.
type MedicationLabelResult struct {
	DocumentID    string                 `json:"documentId"`
	Kind          constants.DocumentKind `json:"kind"`
	DisplayName   *string                `json:"displayName,omitempty"`
	Strength      *string                `json:"strength,omitempty"`
	Directions    *string                `json:"directions,omitempty"`
	Pharmacy      *string                `json:"pharmacy,omitempty"`
	PharmacyPhone *string                `json:"pharmacyPhone,omitempty"`
	RxNumber      *string                `json:"rxNumber,omitempty"`
	NDC           *string                `json:"ndc,omitempty"`
	Quantity      *int                   `json:"quantity,omitempty"`
	Refills       *int                   `json:"refills,omitempty"`
	FillDate      *string                `json:"fillDate,omitempty"`
	PatientName   *string                `json:"patientName,omitempty"`
	Prescriber    *string                `json:"prescriber,omitempty"`
	RawOCRText    string                 `json:"rawOcrText"`
	Confidence    constants.Tier         `json:"confidence"`
}

// Result carries exactly one of Lab or Medication, matching Kind.
type Result struct {
	Kind       constants.DocumentKind
	Lab        *LabResult
	Medication *MedicationLabelResult
}

// DocumentID returns the ID of whichever result is set.
func (r Result) DocumentID() string {
	switch {
	case r.Lab != nil:
		return r.Lab.DocumentID
	case r.Medication != nil:
		return r.Medication.DocumentID
	}
	return ""
}

// Confidence returns the overall tier of whichever result is set.
func (r Result) Confidence() constants.Tier {
	switch {
	case r.Lab != nil:
		return r.Lab.Confidence
	case r.Medication != nil:
		return r.Medication.Confidence
	}
	return constants.TierLow
}

// Payload returns the set result for encoding.
func (r Result) Payload() any {
	if r.Lab != nil {
		return r.Lab
	}
	return r.Medication
}
