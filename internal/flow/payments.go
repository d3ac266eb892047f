package flow

import (
	"strconv"

	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/validate"
)

// ArithmeticConflict reports a payment derivation that produced a negative
// component. Refield names the prior field the operator must re-collect.
type ArithmeticConflict struct {
	Refield models.FieldKey
	Reason  string
}

func (e *ArithmeticConflict) Error() string {
	return e.Reason
}

// AsConflict returns err as an *ArithmeticConflict if it is one.
func AsConflict(err error) (*ArithmeticConflict, bool) {
	c, ok := err.(*ArithmeticConflict)
	return c, ok
}

// DeriveStage1 computes the single remaining payment for a one-stage split.
func DeriveStage1(total, deposit int) (int, error) {
	rest := total - deposit
	if rest < 0 {
		return 0, &ArithmeticConflict{
			Refield: models.FieldPrePay,
			Reason:  "Предоплата больше общей суммы. Проверьте данные.",
		}
	}
	return rest, nil
}

// DeriveStage2 computes the second payment for a two-stage split.
func DeriveStage2(total, deposit, stage1 int) (int, error) {
	rest := total - deposit - stage1
	if rest < 0 {
		return 0, &ArithmeticConflict{
			Refield: models.FieldPrePay,
			Reason:  "Сумма платежей больше общей суммы. Проверьте данные.",
		}
	}
	return rest, nil
}

// Amount parses a stored amount string; empty means zero.
func Amount(s string) int {
	digits := validate.Digits(s)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// Recompute re-derives FIRST_PAY and SECOND_PAY from TOTAL_SUM, PRE_PAY and
// the recorded stage count. It is a no-op until a stage count has been
// chosen, so forward progress before the stage-choice step never triggers
// it. Called both when progressing and when a prior amount is revised; the
// record is only mutated when the derivation succeeds.
func Recompute(rec models.Record) error {
	stage := rec.Get(models.FieldStageCount)
	if stage == "" {
		return nil
	}

	total := Amount(rec.Get(models.FieldTotalSum))
	deposit := Amount(rec.Get(models.FieldPrePay))

	switch stage {
	case "1":
		rest, err := DeriveStage1(total, deposit)
		if err != nil {
			return err
		}
		rec[models.FieldFirstPay] = strconv.Itoa(rest)
		rec[models.FieldSecondPay] = ""
	case "2":
		first := Amount(rec.Get(models.FieldFirstPay))
		rest, err := DeriveStage2(total, deposit, first)
		if err != nil {
			return err
		}
		rec[models.FieldFirstPay] = strconv.Itoa(first)
		rec[models.FieldSecondPay] = strconv.Itoa(rest)
	}
	return nil
}
