package fieldspec

import (
	"regexp"
	"strings"
)

// Attribute names a slot of the single-record medication label result.
type Attribute string

const (
	AttrDisplayName   Attribute = "displayName"
	AttrStrength      Attribute = "strength"
	AttrDirections    Attribute = "directions"
	AttrPharmacy      Attribute = "pharmacy"
	AttrPharmacyPhone Attribute = "pharmacyPhone"
	AttrRxNumber      Attribute = "rxNumber"
	AttrNDC           Attribute = "ndc"
	AttrQuantity      Attribute = "quantity"
	AttrRefills       Attribute = "refills"
	AttrFillDate      Attribute = "fillDate"
	AttrPatientName   Attribute = "patientName"
	AttrPrescriber    Attribute = "prescriber"
)

// LabelAttribute describes one medication-label slot. Label is set for
// attributes that may appear as an explicit "Label: value" line.
type LabelAttribute struct {
	Key         Attribute
	DisplayName string
	Label       *regexp.Regexp // first submatch is the value
}

var labelAttributes = []LabelAttribute{
	{Key: AttrDisplayName, DisplayName: "Medication"},
	{Key: AttrStrength, DisplayName: "Strength"},
	{Key: AttrDirections, DisplayName: "Directions"},
	{Key: AttrPharmacy, DisplayName: "Pharmacy"},
	{Key: AttrPharmacyPhone, DisplayName: "Pharmacy Phone"},
	{Key: AttrRxNumber, DisplayName: "Rx Number"},
	{Key: AttrNDC, DisplayName: "NDC"},
	{Key: AttrQuantity, DisplayName: "Quantity"},
	{Key: AttrRefills, DisplayName: "Refills"},
	{Key: AttrFillDate, DisplayName: "Fill Date"},
	{
		Key:         AttrPatientName,
		DisplayName: "Patient",
		Label:       regexp.MustCompile(`(?i)^(?:patient|pt)(?:\s+name)?\s*[:#]\s*(.+)$`),
	},
	{
		Key:         AttrPrescriber,
		DisplayName: "Prescriber",
		Label:       regexp.MustCompile(`(?i)^(?:prescriber|prescribing\s+(?:doctor|physician)|physician|doctor|dr\.?)\s*[:#]\s*(.+)$|^(?:prescriber|prescribed\s+by)\s*:?\s+(.+)$`),
	},
}

// LabelAttributes returns the medication-label attribute table.
func LabelAttributes() []LabelAttribute { return labelAttributes }

// LookupAttribute returns the attribute definition for key.
func LookupAttribute(key Attribute) (LabelAttribute, bool) {
	for _, a := range labelAttributes {
		if a.Key == key {
			return a, true
		}
	}
	return LabelAttribute{}, false
}

// Labeled returns the value of an explicitly labeled line for key, e.g.
// "Patient: JANE DOE" -> "JANE DOE".
func Labeled(key Attribute, line string) (string, bool) {
	a, ok := LookupAttribute(key)
	if !ok || a.Label == nil {
		return "", false
	}
	m := a.Label.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if v := strings.TrimSpace(g); v != "" {
			return v, true
		}
	}
	return "", false
}
