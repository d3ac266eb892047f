package models

import (
	"errors"
	"testing"
)

func TestRecordSetEnforcesSchema(t *testing.T) {
	rec := NewRecord()
	if err := rec.Set(DocTypeContract, FieldClientName, "Иванов"); err != nil {
		t.Fatalf("valid contract key rejected: %v", err)
	}
	if err := rec.Set(DocTypeAct, FieldTotalSum, "100000"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("act should not accept TOTAL_SUM, got %v", err)
	}
	if err := rec.Set(DocType("invoice"), FieldClientName, "x"); !errors.Is(err, ErrInvalidDocType) {
		t.Errorf("unknown doc type should fail, got %v", err)
	}
}

func TestRecordHasTracksExplicitBlanks(t *testing.T) {
	rec := NewRecord()
	if rec.Has(FieldEndDate) {
		t.Error("unset key reported as present")
	}
	if err := rec.Set(DocTypeContract, FieldEndDate, ""); err != nil {
		t.Fatalf("Set blank: %v", err)
	}
	if !rec.Has(FieldEndDate) {
		t.Error("explicit blank should be present")
	}
	if rec.Get(FieldEndDate) != "" {
		t.Error("explicit blank should read as empty")
	}
}

func TestRecordCloneIsIndependent(t *testing.T) {
	rec := NewRecord()
	rec[FieldClientName] = "до"
	clone := rec.Clone()
	clone[FieldClientName] = "после"
	if rec.Get(FieldClientName) != "до" {
		t.Error("mutating the clone leaked into the original")
	}
}

func TestFieldsForCounts(t *testing.T) {
	tests := []struct {
		dt   DocType
		want int
	}{
		{DocTypeContract, 14},
		{DocTypeAct, 7},
		{DocTypeSupplement, 3},
	}
	for _, tt := range tests {
		if got := len(FieldsFor(tt.dt)); got != tt.want {
			t.Errorf("FieldsFor(%s) has %d keys, want %d", tt.dt, got, tt.want)
		}
	}
}
