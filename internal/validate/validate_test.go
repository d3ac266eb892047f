package validate

import (
	"testing"
	"time"
)

func TestValidateDate(t *testing.T) {
	valid := []string{"01.01.2025", "31.12.1999", "29.02.2024", "15.06.2026"}
	for _, in := range valid {
		out, err := Validate(KindDate, in)
		if err != nil {
			t.Errorf("Validate(date, %q) unexpected error: %v", in, err)
			continue
		}
		if out != in {
			t.Errorf("Validate(date, %q) = %q, want input unchanged", in, out)
		}
	}

	invalid := []string{"", "31.02.2025", "29.02.2025", "32.01.2025", "00.01.2025", "1.2.2025", "2025-01-01", "31/12/2024", "abc"}
	for _, in := range invalid {
		if _, err := Validate(KindDate, in); !IsRejection(err) {
			t.Errorf("Validate(date, %q) expected rejection, got %v", in, err)
		}
	}
}

func TestValidateDateTodayToken(t *testing.T) {
	out, err := Validate(KindDate, TodayToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Now().Format(DateLayout)
	if out != want {
		t.Errorf("today token = %q, want %q", out, want)
	}
}

func TestValidateDateOrCall(t *testing.T) {
	out, err := Validate(KindDateOrCall, CallToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != CallToken {
		t.Errorf("call token = %q, want %q", out, CallToken)
	}
	if _, err := Validate(KindDateOrCall, "31.02.2025"); !IsRejection(err) {
		t.Errorf("expected rejection for invalid date, got %v", err)
	}
}

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+79991234567", "+79991234567"},
		{"89991234567", "+79991234567"},
		{"79991234567", "+79991234567"},
		{"9991234567", "+79991234567"},
		{"8 (999) 123-45-67", "+79991234567"},
		{"+7 999 123 45 67", "+79991234567"},
	}
	for _, tc := range cases {
		out, err := Validate(KindPhone, tc.in)
		if err != nil {
			t.Errorf("Validate(phone, %q) unexpected error: %v", tc.in, err)
			continue
		}
		if out != tc.want {
			t.Errorf("Validate(phone, %q) = %q, want %q", tc.in, out, tc.want)
		}
	}

	invalid := []string{"", "123", "++79991234567", "79991+234567", "+89991234567", "999912345678", "abc"}
	for _, in := range invalid {
		if _, err := Validate(KindPhone, in); !IsRejection(err) {
			t.Errorf("Validate(phone, %q) expected rejection, got %v", in, err)
		}
	}
}

func TestValidatePhoneIdempotent(t *testing.T) {
	out, err := Validate(KindPhone, "+79991234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, err := Validate(KindPhone, out)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if again != out {
		t.Errorf("normalization not idempotent: %q -> %q", out, again)
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"150000", "150000"},
		{"150 000", "150000"},
		{"150.000 руб", "150000"},
		{"0", "0"},
	}
	for _, tc := range cases {
		out, err := Validate(KindAmount, tc.in)
		if err != nil {
			t.Errorf("Validate(amount, %q) unexpected error: %v", tc.in, err)
			continue
		}
		if out != tc.want {
			t.Errorf("Validate(amount, %q) = %q, want %q", tc.in, out, tc.want)
		}
	}
	for _, in := range []string{"", "руб", "---"} {
		if _, err := Validate(KindAmount, in); !IsRejection(err) {
			t.Errorf("Validate(amount, %q) expected rejection, got %v", in, err)
		}
	}
}

func TestValidatePassportFragments(t *testing.T) {
	if out, err := Validate(KindPassportSeries, "12 34"); err != nil || out != "1234" {
		t.Errorf("series = %q, %v; want 1234, nil", out, err)
	}
	if _, err := Validate(KindPassportSeries, "123"); !IsRejection(err) {
		t.Errorf("expected rejection for short series, got %v", err)
	}
	if _, err := Validate(KindPassportSeries, "12a4"); !IsRejection(err) {
		t.Errorf("expected rejection for non-digit series, got %v", err)
	}
	if out, err := Validate(KindPassportNumber, "567890"); err != nil || out != "567890" {
		t.Errorf("number = %q, %v; want 567890, nil", out, err)
	}
	if _, err := Validate(KindPassportNumber, "56789"); !IsRejection(err) {
		t.Errorf("expected rejection for short number, got %v", err)
	}
}

func TestValidateStageChoice(t *testing.T) {
	for _, in := range []string{"1", "2"} {
		if out, err := Validate(KindStageChoice, in); err != nil || out != in {
			t.Errorf("stage choice %q = %q, %v", in, out, err)
		}
	}
	for _, in := range []string{"", "3", "one", "12"} {
		if _, err := Validate(KindStageChoice, in); !IsRejection(err) {
			t.Errorf("stage choice %q expected rejection, got %v", in, err)
		}
	}
}

func TestValidateText(t *testing.T) {
	if out, err := Validate(KindText, "  Иванов И.И.  "); err != nil || out != "Иванов И.И." {
		t.Errorf("text = %q, %v", out, err)
	}
	if _, err := Validate(KindText, "   "); !IsRejection(err) {
		t.Errorf("expected rejection for blank text, got %v", err)
	}
}
