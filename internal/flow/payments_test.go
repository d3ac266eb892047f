package flow

import (
	"testing"

	"github.com/BTreeMap/DocForge/internal/models"
)

func TestDeriveStage1(t *testing.T) {
	rest, err := DeriveStage1(100000, 20000)
	if err != nil {
		t.Fatalf("DeriveStage1: %v", err)
	}
	if rest != 80000 {
		t.Errorf("rest = %d, want 80000", rest)
	}

	rest, err = DeriveStage1(100000, 100000)
	if err != nil || rest != 0 {
		t.Errorf("exact deposit: rest = %d, err = %v, want 0, nil", rest, err)
	}

	_, err = DeriveStage1(100000, 150000)
	conflict, ok := AsConflict(err)
	if !ok {
		t.Fatalf("oversized deposit should conflict, got %v", err)
	}
	if conflict.Refield != models.FieldPrePay {
		t.Errorf("conflict refield = %q, want PRE_PAY", conflict.Refield)
	}
}

func TestDeriveStage2(t *testing.T) {
	rest, err := DeriveStage2(100000, 20000, 30000)
	if err != nil {
		t.Fatalf("DeriveStage2: %v", err)
	}
	if rest != 50000 {
		t.Errorf("rest = %d, want 50000", rest)
	}

	_, err = DeriveStage2(100000, 20000, 90000)
	if _, ok := AsConflict(err); !ok {
		t.Fatalf("overshooting payments should conflict, got %v", err)
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"100000", 100000},
		{"100 000", 100000},
		{"100.000 руб", 100000},
	}
	for _, tt := range tests {
		if got := Amount(tt.in); got != tt.want {
			t.Errorf("Amount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRecomputeNoStageIsNoop(t *testing.T) {
	rec := models.NewRecord()
	rec[models.FieldTotalSum] = "100000"
	rec[models.FieldPrePay] = "150000"
	if err := Recompute(rec); err != nil {
		t.Fatalf("Recompute without stage count: %v", err)
	}
	if rec.Has(models.FieldFirstPay) {
		t.Error("FIRST_PAY written without a stage count")
	}
}

func TestRecomputeStageOne(t *testing.T) {
	rec := models.NewRecord()
	rec[models.FieldTotalSum] = "100000"
	rec[models.FieldPrePay] = "20000"
	rec[models.FieldStageCount] = "1"
	if err := Recompute(rec); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got := rec.Get(models.FieldFirstPay); got != "80000" {
		t.Errorf("FIRST_PAY = %q, want 80000", got)
	}
	if got := rec.Get(models.FieldSecondPay); got != "" {
		t.Errorf("SECOND_PAY = %q, want empty", got)
	}
}

func TestRecomputeStageTwo(t *testing.T) {
	rec := models.NewRecord()
	rec[models.FieldTotalSum] = "100000"
	rec[models.FieldPrePay] = "20000"
	rec[models.FieldFirstPay] = "30000"
	rec[models.FieldStageCount] = "2"
	if err := Recompute(rec); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if got := rec.Get(models.FieldSecondPay); got != "50000" {
		t.Errorf("SECOND_PAY = %q, want 50000", got)
	}
}

func TestRecomputeSkippedDeposit(t *testing.T) {
	rec := models.NewRecord()
	rec[models.FieldTotalSum] = "100000"
	rec[models.FieldPrePay] = ""
	rec[models.FieldStageCount] = "1"
	if err := Recompute(rec); err != nil {
		t.Fatalf("Recompute with blank deposit: %v", err)
	}
	if got := rec.Get(models.FieldFirstPay); got != "100000" {
		t.Errorf("FIRST_PAY = %q, want 100000", got)
	}
}

func TestRecomputeConflict(t *testing.T) {
	rec := models.NewRecord()
	rec[models.FieldTotalSum] = "100000"
	rec[models.FieldPrePay] = "150000"
	rec[models.FieldStageCount] = "1"
	err := Recompute(rec)
	conflict, ok := AsConflict(err)
	if !ok {
		t.Fatalf("expected conflict, got %v", err)
	}
	if conflict.Refield != models.FieldPrePay {
		t.Errorf("conflict refield = %q, want PRE_PAY", conflict.Refield)
	}
	if rec.Has(models.FieldFirstPay) {
		t.Error("FIRST_PAY written despite conflict")
	}
}
