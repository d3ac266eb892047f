package flow

import (
	"fmt"
	"html"
	"strings"

	"github.com/BTreeMap/DocForge/internal/models"
)

// RenderSummary builds the HTML review screen for the in-progress record.
// Operator-supplied values are escaped so they cannot corrupt the markup.
func RenderSummary(rec models.Record, dt models.DocType) string {
	if dt == models.DocTypeSupplement {
		return fmt.Sprintf(
			"Проверьте данные для доп. соглашения:\n\n"+
				"Номер договора: <b>%s</b>\n"+
				"Дата доп. соглашения: <b>%s</b>\n"+
				"Текст:\n<pre>%s</pre>",
			esc(rec.Get(models.FieldContractNumber)),
			esc(rec.Get(models.FieldSupplementDate)),
			esc(rec.Get(models.FieldSupplementText)),
		)
	}

	dateLabel := "Дата договора"
	if dt == models.DocTypeAct {
		dateLabel = "Дата акта"
	}

	var b strings.Builder
	b.WriteString("Проверьте данные:\n\n")
	fmt.Fprintf(&b, "ФИО заказчика: <b>%s</b>\n", esc(rec.Get(models.FieldClientName)))
	fmt.Fprintf(&b, "Адрес объекта: <b>%s</b>\n", esc(rec.Get(models.FieldAddress)))
	fmt.Fprintf(&b, "Телефон: <b>%s</b>\n", esc(rec.Get(models.FieldClientMobile)))
	fmt.Fprintf(&b, "%s: <b>%s</b>\n", dateLabel, esc(rec.Get(models.FieldContractDate)))

	if dt != models.DocTypeAct {
		fmt.Fprintf(&b, "Дата начала: <b>%s</b>\n", esc(rec.Get(models.FieldStartDate)))
		fmt.Fprintf(&b, "Дата окончания: <b>%s</b>\n", esc(orDash(rec.Get(models.FieldEndDate))))
		fmt.Fprintf(&b, "Сумма договора: <b>%s</b>\n", esc(rec.Get(models.FieldTotalSum)))
	}

	b.WriteString("\nПаспортные данные:\n")
	fmt.Fprintf(&b, "Серия: <b>%s</b>\n", esc(rec.Get(models.FieldPassportSeries)))
	fmt.Fprintf(&b, "Номер: <b>%s</b>\n", esc(rec.Get(models.FieldPassportNumber)))
	fmt.Fprintf(&b, "Кем и когда выдан: <b>%s</b>\n", esc(rec.Get(models.FieldPassportBase)))

	if dt != models.DocTypeAct {
		b.WriteString("\nПлатежи:\n")
		fmt.Fprintf(&b, "Предоплата: <b>%s</b>\n", esc(orDash(rec.Get(models.FieldPrePay))))
		fmt.Fprintf(&b, "Платеж 1: <b>%s</b>\n", esc(orDash(rec.Get(models.FieldFirstPay))))
		fmt.Fprintf(&b, "Платеж 2: <b>%s</b>\n", esc(orDash(rec.Get(models.FieldSecondPay))))
	}

	return b.String()
}

func esc(s string) string {
	return html.EscapeString(s)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// BuildFileCaption formats the audit caption accompanying a generated file.
func BuildFileCaption(rec models.Record, dt models.DocType, ev models.Response) string {
	label := dt.Label()
	return fmt.Sprintf(
		"📄 %s\nАдрес: %s\nТелефон: %s\nКлиент: %s\nСделал %s: %s\nUserID: %d",
		label,
		orMissing(rec.Get(models.FieldAddress)),
		orMissing(rec.Get(models.FieldClientMobile)),
		orMissing(rec.Get(models.FieldClientName)),
		strings.ToLower(label),
		ev.Handle(),
		ev.UserID,
	)
}

func orMissing(s string) string {
	if s == "" {
		return "нет данных"
	}
	return s
}
