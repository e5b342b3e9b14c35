package repository

import (
	"time"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/extract"
)

// Proposal is an extraction result waiting on (or past) human review.
// Exactly one of Lab or Medication is set, matching Kind.
type Proposal struct {
	ID           string
	Kind         constants.DocumentKind
	SourcePath   string
	Status       constants.ReviewStatus
	Confidence   constants.Tier
	DetectedDate *string
	Lab          *extract.LabResult
	Medication   *extract.MedicationLabelResult
	Reason       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DecidedAt    *time.Time
}

// Result rebuilds the engine result the proposal was saved from.
func (p *Proposal) Result() extract.Result {
	return extract.Result{Kind: p.Kind, Lab: p.Lab, Medication: p.Medication}
}

// LabEdits are reviewer changes applied when confirming a lab proposal.
type LabEdits struct {
	// CollectedOn (YYYY-MM-DD) overrides the detected date. Required when
	// the report carried none.
	CollectedOn string
	Values      map[constants.FieldKey]float64
	Units       map[constants.FieldKey]string
	Drop        []constants.FieldKey
}

func (e LabEdits) empty() bool {
	return e.CollectedOn == "" && len(e.Values) == 0 && len(e.Units) == 0 && len(e.Drop) == 0
}

// MedicationEdits override proposed medication fields. Nil means keep, an
// empty string clears. ClearQuantity and ClearRefills clear the counts.
type MedicationEdits struct {
	DisplayName   *string
	Strength      *string
	Directions    *string
	Pharmacy      *string
	PharmacyPhone *string
	RxNumber      *string
	NDC           *string
	Quantity      *int
	Refills       *int
	FillDate      *string
	PatientName   *string
	Prescriber    *string

	ClearQuantity bool
	ClearRefills  bool
}

func (e MedicationEdits) empty() bool {
	return e == MedicationEdits{}
}

type ConfirmedLabValue struct {
	ID          string
	ProposalID  string
	FieldKey    constants.FieldKey
	DisplayName string
	Value       float64
	Unit        *string
	CollectedOn string
	SourceLine  string
	CreatedAt   time.Time
}

type ConfirmedMedication struct {
	ID            string
	ProposalID    string
	DisplayName   string
	Strength      *string
	Directions    *string
	Pharmacy      *string
	PharmacyPhone *string
	RxNumber      *string
	NDC           *string
	Quantity      *int
	Refills       *int
	FillDate      *string
	PatientName   *string
	Prescriber    *string
	CreatedAt     time.Time
}

// AuditEvent records one state change of a proposal. Detail is JSON.
type AuditEvent struct {
	ID         string
	ProposalID string
	Action     string
	Detail     string
	CreatedAt  time.Time
}
