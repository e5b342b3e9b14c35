package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/extract"
)

var fixtures = []string{
	"",
	"ASPIRIN",
	"Creatinine 1.1",
	"QUEST DIAGNOSTICS\nCollected: 2024-03-01\nA1c: 7.2 %\nLDL 130 mg/dL",
	"JOHN A WHITEHEAD\nPROGESTERONE MICRO 100MG\nTAKE ONE CAPSULE NIGHTLY\nWALGREENS PHARMACY",
	"CVS PHARMACY (555) 123-4567\nPatient: JANE Q DOE\nLISINOPRIL 10 MG TABLET\nTAKE ONE TABLET BY MOUTH\nQTY: 30 REFILLS: 2\nRx# 1234567\nNDC 0093-1111-01\nFILLED 03/15/2024",
}

func TestEngineOutputMatchesSchemas(t *testing.T) {
	e := extract.NewEngine()
	for _, text := range fixtures {
		lab := e.ExtractLab(text)
		assert.NoError(t, ValidateResult(lab), "lab result for %q", text)
		assert.NoError(t, ValidateResult(&lab))

		med := e.ExtractMedicationLabel(text)
		assert.NoError(t, ValidateResult(med), "medication result for %q", text)

		res, err := e.Extract(constants.KindAuto, text)
		require.NoError(t, err)
		assert.NoError(t, ValidateResult(res))
	}
}

func TestValidateResult_RejectsBadRecords(t *testing.T) {
	e := extract.NewEngine()

	lab := e.ExtractLab("HDL 55 mg/dL")
	lab.Candidates[0].ConfidenceTier = constants.TierLow
	err := ValidateResult(lab)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Equal(t, "SCHEMA_MISMATCH", common.ErrorCode(err))

	med := e.ExtractMedicationLabel("SERTRALINE 50 MG")
	bad := "555-1234"
	med.PharmacyPhone = &bad
	assert.Error(t, ValidateResult(med))

	neg := -1
	med = e.ExtractMedicationLabel("SERTRALINE 50 MG")
	med.Refills = &neg
	assert.Error(t, ValidateResult(med))
}

func TestValidateResult_Unsupported(t *testing.T) {
	err := ValidateResult(map[string]string{"a": "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnsupported))
}

func TestValidate_Generic(t *testing.T) {
	s := map[string]any{
		"type":     "object",
		"required": []string{"n"},
		"properties": map[string]any{
			"n": map[string]any{"type": "integer"},
		},
	}
	assert.NoError(t, Validate(s, []byte(`{"n": 3}`)))
	assert.Error(t, Validate(s, []byte(`{"n": "3"}`)))
	assert.Error(t, Validate(s, []byte(`{`)))
}
