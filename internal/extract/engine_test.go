package extract

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/fieldspec"
	"github.com/joseph-ayodele/medscan/internal/textnorm"
)

const (
	labReport = "QUEST DIAGNOSTICS\nCollected: 2024-03-01\nA1c: 7.2 %\nLDL 130 mg/dL\n"
	rxLabel   = "JOHN A WHITEHEAD\nPROGESTERONE MICRO 100MG\nTAKE ONE CAPSULE NIGHTLY\nWALGREENS PHARMACY"
)

func TestExtractLab_UnitsAndDate(t *testing.T) {
	res := NewEngine().ExtractLab(labReport)

	require.NotNil(t, res.DetectedDate)
	assert.Equal(t, "2024-03-01", *res.DetectedDate)
	assert.False(t, res.RequiresDateEntry)
	require.Len(t, res.Candidates, 2)

	a1c, ldl := res.Candidates[0], res.Candidates[1]
	assert.Equal(t, constants.FieldA1C, a1c.FieldKey)
	assert.InDelta(t, 7.2, a1c.Value, 1e-9)
	require.NotNil(t, a1c.Unit)
	assert.Equal(t, "%", *a1c.Unit)
	assert.Equal(t, constants.TierHigh, a1c.ConfidenceTier)

	assert.Equal(t, constants.FieldLDL, ldl.FieldKey)
	assert.InDelta(t, 130.0, ldl.Value, 1e-9)
	require.NotNil(t, ldl.Unit)
	assert.Equal(t, "mg/dL", *ldl.Unit)
	assert.Equal(t, constants.TierHigh, ldl.ConfidenceTier)

	assert.Equal(t, constants.TierHigh, res.Confidence)
	assert.Equal(t, constants.KindLab, res.Kind)
}

func TestExtractLab_NoUnit(t *testing.T) {
	res := NewEngine().ExtractLab("Creatinine 1.1")

	require.Len(t, res.Candidates, 1)
	c := res.Candidates[0]
	assert.Equal(t, constants.FieldCreatinine, c.FieldKey)
	assert.InDelta(t, 1.1, c.Value, 1e-9)
	assert.Nil(t, c.Unit)
	assert.Equal(t, constants.TierMedium, c.ConfidenceTier)
	assert.Nil(t, res.DetectedDate)
	assert.True(t, res.RequiresDateEntry)
	assert.Equal(t, constants.TierMedium, res.Confidence)

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `"unit"`)
}

func TestExtractLab_Confidence(t *testing.T) {
	tests := []struct {
		name string
		text string
		want constants.Tier
	}{
		{name: "nothing matched", text: "PATIENT COPY\nPlease retain for your records", want: constants.TierLow},
		{name: "all high but no date", text: "HDL 55 mg/dL\nLDL 99 mg/dL", want: constants.TierMedium},
		{name: "dated with a bare value", text: "03/02/2024\nHDL 55 mg/dL\nLDL 99", want: constants.TierMedium},
		{name: "dated and all high", text: "03/02/2024\nHDL 55 mg/dL\nLDL 99 mg/dL", want: constants.TierHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewEngine().ExtractLab(tt.text).Confidence)
		})
	}
}

func TestExtractLab_AtMostOnePerKey(t *testing.T) {
	fixtures := []string{
		"LDL 128\nLDL 130 mg/dL\nLDL 131 mg/dL",
		"A1c 6.1\nHemoglobin A1c 6.2 %\nA1c 6.3 %\nHDL 40\nHDL 41",
		labReport + labReport,
	}
	for _, text := range fixtures {
		res := NewEngine().ExtractLab(text)
		seen := map[constants.FieldKey]bool{}
		for _, c := range res.Candidates {
			assert.False(t, seen[c.FieldKey], "duplicate %s in %q", c.FieldKey, text)
			seen[c.FieldKey] = true
		}
	}
}

func TestExtractLab_Sparse(t *testing.T) {
	for _, text := range []string{"", "   \n\t\n", "#1"} {
		res := NewEngine().ExtractLab(text)
		assert.NotNil(t, res.Candidates)
		assert.Empty(t, res.Candidates)
		assert.Equal(t, constants.TierLow, res.Confidence)
		assert.True(t, res.RequiresDateEntry)
	}
}

func TestExtractLab_CustomRegistry(t *testing.T) {
	ldl, ok := fieldspec.LabRegistry().Lookup(constants.FieldLDL)
	require.True(t, ok)

	e := NewEngine(WithLabRegistry(fieldspec.Registry{ldl}))
	res := e.ExtractLab(labReport)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, constants.FieldLDL, res.Candidates[0].FieldKey)
}

func TestExtractMedicationLabel_FullLabel(t *testing.T) {
	res := NewEngine().ExtractMedicationLabel(rxLabel)

	require.NotNil(t, res.DisplayName)
	assert.Equal(t, "PROGESTERONE MICRO", *res.DisplayName)
	require.NotNil(t, res.Strength)
	assert.Equal(t, "100 mg", *res.Strength)
	require.NotNil(t, res.Directions)
	assert.Contains(t, *res.Directions, "TAKE ONE CAPSULE NIGHTLY")
	require.NotNil(t, res.Pharmacy)
	assert.Equal(t, "Walgreens", *res.Pharmacy)
	require.NotNil(t, res.PatientName)
	assert.NotEqual(t, *res.DisplayName, *res.PatientName)
	assert.Equal(t, constants.TierHigh, res.Confidence)
	assert.Equal(t, rxLabel, res.RawOCRText)
}

func TestExtractMedicationLabel_StrengthOnOwnLine(t *testing.T) {
	res := NewEngine().ExtractMedicationLabel("JOHN A DOE\nLISINOPRIL TABLET\n10 MG\nTAKE ONE TABLET BY MOUTH DAILY\nCVS PHARMACY")

	require.NotNil(t, res.DisplayName)
	assert.Equal(t, "LISINOPRIL TABLET", *res.DisplayName)
	require.NotNil(t, res.Strength)
	assert.Equal(t, "10 mg", *res.Strength)
	require.NotNil(t, res.Pharmacy)
	assert.Equal(t, "CVS", *res.Pharmacy)
	assert.Equal(t, constants.TierHigh, res.Confidence)
}

func TestExtractMedicationLabel_WeakInput(t *testing.T) {
	res := NewEngine().ExtractMedicationLabel("ASPIRIN")
	assert.Equal(t, constants.TierLow, res.Confidence)
	assert.Nil(t, res.Strength)
	assert.Nil(t, res.Directions)
}

func TestExtractMedicationLabel_Sparse(t *testing.T) {
	res := NewEngine().ExtractMedicationLabel(" \r\n ")
	assert.Equal(t, constants.TierLow, res.Confidence)
	assert.Nil(t, res.DisplayName)
	assert.Nil(t, res.Strength)
	assert.Nil(t, res.Quantity)
	assert.Nil(t, res.PatientName)
	assert.Empty(t, res.RawOCRText)
}

func TestEngine_Deterministic(t *testing.T) {
	e := NewEngine()
	for _, text := range []string{labReport, rxLabel, "Creatinine 1.1", ""} {
		a, err := json.Marshal(e.ExtractLab(text))
		require.NoError(t, err)
		b, err := json.Marshal(NewEngine().ExtractLab(text))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))

		m1, err := json.Marshal(e.ExtractMedicationLabel(text))
		require.NoError(t, err)
		m2, err := json.Marshal(e.ExtractMedicationLabel(text))
		require.NoError(t, err)
		assert.Equal(t, string(m1), string(m2))
	}
}

func TestEngine_ConcurrentCallsAgree(t *testing.T) {
	e := NewEngine()
	want := e.ExtractMedicationLabel(rxLabel)

	var wg sync.WaitGroup
	results := make([]MedicationLabelResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.ExtractMedicationLabel(rxLabel)
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestExtract_Kinds(t *testing.T) {
	e := NewEngine()

	res, err := e.Extract(constants.KindLab, labReport)
	require.NoError(t, err)
	require.NotNil(t, res.Lab)
	assert.Nil(t, res.Medication)
	assert.Equal(t, res.Lab.DocumentID, res.DocumentID())
	assert.Equal(t, res.Lab, res.Payload())

	res, err = e.Extract(constants.KindMedication, rxLabel)
	require.NoError(t, err)
	require.NotNil(t, res.Medication)
	assert.Equal(t, constants.TierHigh, res.Confidence())

	res, err = e.Extract(constants.KindAuto, labReport)
	require.NoError(t, err)
	assert.Equal(t, constants.KindLab, res.Kind)

	res, err = e.Extract(constants.KindAuto, rxLabel)
	require.NoError(t, err)
	assert.Equal(t, constants.KindMedication, res.Kind)

	_, err = e.Extract("XRAY", "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		text string
		want constants.DocumentKind
	}{
		{name: "lipid panel", text: "LIPID PANEL\nTotal Cholesterol 190 mg/dL\nHDL 55 mg/dL\nLDL 110 mg/dL", want: constants.KindLab},
		{name: "label", text: "CVS PHARMACY\nMETFORMIN 500 MG\nTAKE 1 TABLET TWICE DAILY\nRx# 7654321", want: constants.KindMedication},
		{name: "nothing either way", text: "HELLO WORLD", want: constants.KindMedication},
		{name: "single analyte", text: "Creatinine 1.1", want: constants.KindLab},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(textnorm.Normalize(tt.text), fieldspec.LabRegistry()))
		})
	}
}

func TestDocumentID(t *testing.T) {
	doc := textnorm.Normalize(rxLabel)
	id := DocumentID(constants.KindMedication, doc)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
	assert.Equal(t, id, DocumentID(constants.KindMedication, textnorm.Normalize(rxLabel+"\r\n\r\n")))
	assert.NotEqual(t, id, DocumentID(constants.KindLab, doc))
}
