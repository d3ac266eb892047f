// Package validate implements the field validator registry.
//
// Validators are pure functions mapping raw operator text to either a
// normalized value or a rejection with an operator-facing reason. All state
// mutation happens in the flow engine after a successful validation.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Kind identifies a validator in the registry.
type Kind string

const (
	// KindText accepts any non-empty string after trimming.
	KindText Kind = "text"
	// KindDate accepts DD.MM.YYYY calendar-valid dates and the literal
	// "today" token, which normalizes to the current date.
	KindDate Kind = "date"
	// KindDateOrCall accepts a date or the literal "by call" token.
	KindDateOrCall Kind = "date_or_call"
	// KindPhone accepts Russian mobile numbers and normalizes them to
	// +7XXXXXXXXXX form.
	KindPhone Kind = "phone"
	// KindAmount accepts a non-negative integer amount, stripping any
	// non-digit characters.
	KindAmount Kind = "amount"
	// KindPassportSeries accepts exactly 4 digits.
	KindPassportSeries Kind = "passport_series"
	// KindPassportNumber accepts exactly 6 digits.
	KindPassportNumber Kind = "passport_number"
	// KindStageChoice accepts exactly "1" or "2".
	KindStageChoice Kind = "stage_choice"
)

// TodayToken is the quick-reply label that resolves to the current date.
const TodayToken = "Текущая дата"

// CallToken is the quick-reply label stored verbatim as a start date.
const CallToken = "По звонку"

// DateLayout is the operator-facing date format.
const DateLayout = "02.01.2006"

// RejectionError reports why raw input was declined. It is always
// recoverable: the operator sees Reason together with the same prompt.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func reject(reason string) error {
	return &RejectionError{Reason: reason}
}

// IsRejection reports whether err is a validator rejection.
func IsRejection(err error) bool {
	_, ok := err.(*RejectionError)
	return ok
}

// Func validates raw text and returns the normalized value.
type Func func(raw string) (string, error)

var registry = map[Kind]Func{
	KindText:           validateText,
	KindDate:           validateDate,
	KindDateOrCall:     validateDateOrCall,
	KindPhone:          validatePhone,
	KindAmount:         validateAmount,
	KindPassportSeries: fixedDigits(4, "Серия паспорта должна состоять из 4 цифр. Попробуйте снова:"),
	KindPassportNumber: fixedDigits(6, "Номер паспорта должен состоять из 6 цифр. Попробуйте снова:"),
	KindStageChoice:    validateStageChoice,
}

// Validate runs the registered validator for kind against raw text.
func Validate(kind Kind, raw string) (string, error) {
	fn, ok := registry[kind]
	if !ok {
		return "", fmt.Errorf("no validator registered for kind %s", kind)
	}
	return fn(strings.TrimSpace(raw))
}

func validateText(raw string) (string, error) {
	if raw == "" {
		return "", reject("Значение не может быть пустым. Попробуйте снова:")
	}
	return raw, nil
}

var dateShape = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// IsValidDate reports whether s is a calendar-valid DD.MM.YYYY date.
func IsValidDate(s string) bool {
	if !dateShape.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

func validateDate(raw string) (string, error) {
	if raw == TodayToken {
		return time.Now().Format(DateLayout), nil
	}
	if !IsValidDate(raw) {
		return "", reject("Дата должна быть в формате ДД.ММ.ГГГГ. Попробуйте снова:")
	}
	return raw, nil
}

func validateDateOrCall(raw string) (string, error) {
	if raw == CallToken {
		return CallToken, nil
	}
	if !IsValidDate(raw) {
		return "", reject("Дата должна быть в формате ДД.ММ.ГГГГ или нажмите «По звонку».")
	}
	return raw, nil
}

var nonDigits = regexp.MustCompile(`\D`)

// Digits strips every non-digit character from s.
func Digits(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

func validateAmount(raw string) (string, error) {
	digits := Digits(raw)
	if digits == "" {
		return "", reject("Введите сумму цифрами. Например: 150000")
	}
	return digits, nil
}

func fixedDigits(length int, reason string) Func {
	return func(raw string) (string, error) {
		cleaned := strings.ReplaceAll(raw, " ", "")
		if len(cleaned) != length || Digits(cleaned) != cleaned {
			return "", reject(reason)
		}
		return cleaned, nil
	}
}

func validateStageChoice(raw string) (string, error) {
	if raw != "1" && raw != "2" {
		return "", reject("Нужно выбрать 1 или 2.")
	}
	return raw, nil
}

// validatePhone normalizes Russian mobile numbers. Accepted shapes:
// +7XXXXXXXXXX, 8XXXXXXXXXX, 7XXXXXXXXXX and a bare 10-digit subscriber
// number. Everything else, including a misplaced or repeated '+', is
// rejected.
func validatePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '+' || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, raw)

	plusCount := strings.Count(cleaned, "+")
	if plusCount > 1 || (plusCount == 1 && !strings.HasPrefix(cleaned, "+")) {
		return "", rejectPhone()
	}

	digitsOnly := strings.TrimPrefix(cleaned, "+")
	if Digits(digitsOnly) != digitsOnly {
		return "", rejectPhone()
	}

	switch {
	case strings.HasPrefix(cleaned, "+7") && len(cleaned) == 12:
		return cleaned, nil
	case strings.HasPrefix(cleaned, "8") && len(cleaned) == 11:
		return "+7" + cleaned[1:], nil
	case strings.HasPrefix(cleaned, "7") && len(cleaned) == 11:
		return "+" + cleaned, nil
	case plusCount == 0 && len(cleaned) == 10:
		return "+7" + cleaned, nil
	}
	return "", rejectPhone()
}

func rejectPhone() error {
	return reject("Телефон должен быть в формате +7XXXXXXXXXX или 8XXXXXXXXXX. Попробуйте снова:")
}
