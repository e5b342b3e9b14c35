package fieldspec

import (
	"regexp"

	"github.com/joseph-ayodele/medscan/constants"
)

var (
	unitPercent  = Unit{Canonical: "%", Pattern: regexp.MustCompile(`%`)}
	unitMmolMol  = Unit{Canonical: "mmol/mol", Pattern: regexp.MustCompile(`(?i)\bmmol\s*/\s*mol\b`)}
	unitMgDL     = Unit{Canonical: "mg/dL", Pattern: regexp.MustCompile(`(?i)\bmg\s*/\s*dl\b`)}
	unitMmolL    = Unit{Canonical: "mmol/L", Pattern: regexp.MustCompile(`(?i)\bmmol\s*/\s*l\b`)}
	unitUmolL    = Unit{Canonical: "umol/L", Pattern: regexp.MustCompile(`(?i)(?:\bu|µ|μ)mol\s*/\s*l\b`)}
	unitMLMinBSA = Unit{Canonical: "mL/min/1.73m2", Pattern: regexp.MustCompile(`(?i)\bml\s*/\s*min\s*/\s*1\.73\s*m`)}
	unitMLMin    = Unit{Canonical: "mL/min", Pattern: regexp.MustCompile(`(?i)\bml\s*/\s*min\b`)}
)

var labRegistry = Registry{
	{
		Key:         constants.FieldA1C,
		DisplayName: "Hemoglobin A1c",
		Matchers: res(
			`(?i)\b(?:hb\s*|hgb\s*|hemoglobin\s+)?a1c\b`,
			`(?i)\bglyc(?:ated|osylated)\s+ha?emoglobin\b`,
		),
		Units: []Unit{unitPercent, unitMmolMol},
	},
	{
		Key:         constants.FieldLDL,
		DisplayName: "LDL Cholesterol",
		Matchers: res(
			`(?i)\bldl\b`,
			`(?i)\blow[\s-]density\s+lipoprotein\b`,
		),
		Excludes: res(`(?i)\bldl\s*/\s*hdl\b`, `(?i)\bratio\b`),
		Units:    []Unit{unitMgDL, unitMmolL},
	},
	{
		Key:         constants.FieldHDL,
		DisplayName: "HDL Cholesterol",
		Matchers: res(
			`(?i)\bhdl\b`,
			`(?i)\bhigh[\s-]density\s+lipoprotein\b`,
		),
		Excludes: res(`(?i)\bnon[\s-]*hdl\b`, `(?i)/\s*hdl\b`, `(?i)\bratio\b`),
		Units:    []Unit{unitMgDL, unitMmolL},
	},
	{
		Key:         constants.FieldTotalChol,
		DisplayName: "Total Cholesterol",
		Matchers: res(
			`(?i)\btotal\s+cholesterol\b`,
			`(?i)\bcholesterol,?\s+total\b`,
			`(?i)^cholesterol\b`,
		),
		Excludes: res(`(?i)\b(?:v?ldl|hdl)\b`, `(?i)\bratio\b`),
		Units:    []Unit{unitMgDL, unitMmolL},
	},
	{
		Key:         constants.FieldCreatinine,
		DisplayName: "Creatinine",
		Matchers: res(
			`(?i)\bcreatinine\b`,
			`(?i)\bcreat\b`,
		),
		Excludes: res(`(?i)\be?gfr\b`, `(?i)\bclearance\b`, `(?i)\bratio\b`, `(?i)\burine\b`),
		Units:    []Unit{unitMgDL, unitUmolL},
	},
	{
		Key:         constants.FieldEGFR,
		DisplayName: "eGFR",
		Matchers: res(
			`(?i)\begfr\b`,
			`(?i)\bestimated\s+gfr\b`,
			`(?i)\bgfr,?\s+estimated\b`,
		),
		Units: []Unit{unitMLMinBSA, unitMLMin},
	},
}

// LabRegistry returns the analyte table in reporting order.
func LabRegistry() Registry { return labRegistry }
