package anchor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{name: "iso", in: "Collected 2024-03-01 08:15", want: "2024-03-01", ok: true},
		{name: "us four digit year", in: "Filled: 3/1/2024", want: "2024-03-01", ok: true},
		{name: "us two digit year", in: "DATE 12/05/23", want: "2023-12-05", ok: true},
		{name: "us dashes", in: "03-09-2025", want: "2025-03-09", ok: true},
		{name: "first in document order wins", in: "Reported 04/02/2024\nCollected 2024-03-01", want: "2024-04-02", ok: true},
		{name: "invalid month skipped", in: "13/45/2024 then 1/2/2024", want: "2024-01-02", ok: true},
		{name: "impossible day skipped", in: "2024-02-30", ok: false},
		{name: "none", in: "LDL 130 mg/dL", ok: false},
		{name: "phone is not a date", in: "555-123-4567", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Date(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "WALGREENS (555) 123-4567", want: "(555) 123-4567", ok: true},
		{in: "Ph:(555)123-4567", want: "(555) 123-4567", ok: true},
		{in: "CALL 555-123-4567", want: "(555) 123-4567", ok: true},
		{in: "555.123.4567", want: "(555) 123-4567", ok: true},
		{in: "NDC 12345-6789-01", ok: false},
		{in: "2024-03-01", ok: false},
		{in: "no digits here", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Phone(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, HasPhone(tt.in))
		})
	}
}

func TestRxNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "RX# 1234567", want: "1234567", ok: true},
		{in: "Rx No: 0123456-01234", want: "0123456-01234", ok: true},
		{in: "Prescription Number: 98765432", want: "98765432", ok: true},
		{in: "RX 12345", ok: false},
		{in: "6012345-09876 WALGREENS", want: "6012345-09876", ok: true},
		{in: "NDC 12345-6789-01", ok: false},
		{in: "TAKE ONE TABLET", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := RxNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNDC(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "NDC: 0093-7214-01", want: "0093-7214-01", ok: true},
		{in: "NDC# 00093721401", want: "00093721401", ok: true},
		{in: "MFG TEVA 12345-6789-01", want: "12345-6789-01", ok: true},
		{in: "1234-567-8", ok: false},
		{in: "555-123-4567", ok: false},
		{in: "2024-03-01", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NDC(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuantityAndRefills(t *testing.T) {
	q, ok := Quantity("QTY: 30 CAPSULES")
	assert.True(t, ok)
	assert.Equal(t, 30, q)

	q, ok = Quantity("Quantity Dispensed 90")
	assert.True(t, ok)
	assert.Equal(t, 90, q)

	_, ok = Quantity("30 CAPSULES")
	assert.False(t, ok)

	r, ok := Refills("REFILLS: 2 BEFORE 03/01/2025")
	assert.True(t, ok)
	assert.Equal(t, 2, r)

	r, ok = Refills("Refills remaining 5")
	assert.True(t, ok)
	assert.Equal(t, 5, r)

	r, ok = Refills("NO REFILLS - DR AUTH REQUIRED")
	assert.True(t, ok)
	assert.Equal(t, 0, r)

	_, ok = Refills("TAKE 2 TABLETS")
	assert.False(t, ok)
}

func TestHasIdentifier(t *testing.T) {
	assert.True(t, HasIdentifier("RX# 1234567"))
	assert.True(t, HasIdentifier("NDC 0093-7214-01"))
	assert.True(t, HasIdentifier("LOT 884213"))
	assert.False(t, HasIdentifier("TAKE 1 TABLET BY MOUTH DAILY"))
	assert.False(t, HasIdentifier("WITH FOOD"))
}
