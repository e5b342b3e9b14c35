package constants

// FieldKey identifies a laboratory analyte. The set is closed.
type FieldKey string

const (
	FieldA1C        FieldKey = "A1C"
	FieldLDL        FieldKey = "LDL"
	FieldHDL        FieldKey = "HDL"
	FieldTotalChol  FieldKey = "TOTAL_CHOL"
	FieldCreatinine FieldKey = "CREATININE"
	FieldEGFR       FieldKey = "EGFR"
)

var allFieldKeys = []FieldKey{FieldA1C, FieldLDL, FieldHDL, FieldTotalChol, FieldCreatinine, FieldEGFR}

// FieldKeysAsStringSlice returns the analyte keys in registry order.
func FieldKeysAsStringSlice() []string {
	result := make([]string, len(allFieldKeys))
	for i, k := range allFieldKeys {
		result[i] = string(k)
	}
	return result
}

// IsFieldKey reports whether s names a known analyte.
func IsFieldKey(s string) bool {
	for _, k := range allFieldKeys {
		if string(k) == s {
			return true
		}
	}
	return false
}
