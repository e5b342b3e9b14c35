package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/medscan/constants"
	"github.com/joseph-ayodele/medscan/internal/common"
	"github.com/joseph-ayodele/medscan/internal/repository"
)

func splitPair(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return "", "", common.InvalidInputErrorf("expected KEY=VALUE, got %q", s)
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), nil
}

func fieldKey(s string) (constants.FieldKey, error) {
	k := strings.ToUpper(strings.TrimSpace(s))
	if !constants.IsFieldKey(k) {
		return "", common.InvalidInputErrorf("unknown analyte %q (want one of %v)", s, constants.FieldKeysAsStringSlice())
	}
	return constants.FieldKey(k), nil
}

func parseLabEdits(date string, values, units, drop []string) (repository.LabEdits, error) {
	edits := repository.LabEdits{CollectedOn: strings.TrimSpace(date)}
	for _, s := range values {
		k, v, err := splitPair(s)
		if err != nil {
			return edits, err
		}
		key, err := fieldKey(k)
		if err != nil {
			return edits, err
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return edits, common.InvalidInputErrorf("value for %s is not a number: %q", key, v)
		}
		if edits.Values == nil {
			edits.Values = map[constants.FieldKey]float64{}
		}
		edits.Values[key] = n
	}
	for _, s := range units {
		k, v, err := splitPair(s)
		if err != nil {
			return edits, err
		}
		key, err := fieldKey(k)
		if err != nil {
			return edits, err
		}
		if edits.Units == nil {
			edits.Units = map[constants.FieldKey]string{}
		}
		edits.Units[key] = v
	}
	for _, s := range drop {
		key, err := fieldKey(s)
		if err != nil {
			return edits, err
		}
		edits.Drop = append(edits.Drop, key)
	}
	return edits, nil
}

func parseMedicationEdits(pairs []string) (repository.MedicationEdits, error) {
	var e repository.MedicationEdits
	for _, s := range pairs {
		k, v, err := splitPair(s)
		if err != nil {
			return e, err
		}
		val := v
		switch strings.ToLower(k) {
		case "name", "displayname":
			e.DisplayName = &val
		case "strength":
			e.Strength = &val
		case "directions":
			e.Directions = &val
		case "pharmacy":
			e.Pharmacy = &val
		case "phone", "pharmacyphone":
			e.PharmacyPhone = &val
		case "rx", "rxnumber":
			e.RxNumber = &val
		case "ndc":
			e.NDC = &val
		case "filldate":
			e.FillDate = &val
		case "patient", "patientname":
			e.PatientName = &val
		case "prescriber":
			e.Prescriber = &val
		case "quantity", "qty", "refills":
			refills := strings.ToLower(k) == "refills"
			if val == "" {
				if refills {
					e.ClearRefills, e.Refills = true, nil
				} else {
					e.ClearQuantity, e.Quantity = true, nil
				}
				continue
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return e, common.InvalidInputErrorf("%s must be a whole number, got %q", k, val)
			}
			if refills {
				e.Refills, e.ClearRefills = &n, false
			} else {
				e.Quantity, e.ClearQuantity = &n, false
			}
		default:
			return e, fmt.Errorf("unknown medication field %q", k)
		}
	}
	return e, nil
}
