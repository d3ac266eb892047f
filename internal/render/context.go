package render

import (
	docx "github.com/lukasjarosch/go-docx"

	"github.com/BTreeMap/DocForge/internal/models"
)

// BuildContext maps the record onto the template placeholder vocabulary for
// the document type. Only the closed key set of that type is emitted, so a
// stray record key can never leak into a template.
func BuildContext(dt models.DocType, rec models.Record) docx.PlaceholderMap {
	switch dt {
	case models.DocTypeAct:
		return docx.PlaceholderMap{
			"DATE_DOG":        rec.Get(models.FieldContractDate),
			"ADDRESS_DOG":     rec.Get(models.FieldAddress),
			"CLIENT_NAME":     rec.Get(models.FieldClientName),
			"PASSPORT_SERIES": rec.Get(models.FieldPassportSeries),
			"PASSPORT_NUMBER": rec.Get(models.FieldPassportNumber),
			"PASSPORT_BASE":   rec.Get(models.FieldPassportBase),
			"CLIENT_MOBILE":   rec.Get(models.FieldClientMobile),
		}
	case models.DocTypeSupplement:
		return docx.PlaceholderMap{
			"CONTRACT_NUMBER": rec.Get(models.FieldContractNumber),
			"SUPPLEMENT_DATE": rec.Get(models.FieldSupplementDate),
			"SUPPLEMENT_TEXT": rec.Get(models.FieldSupplementText),
		}
	default:
		return docx.PlaceholderMap{
			"CLIENT_NAME":     rec.Get(models.FieldClientName),
			"CLIENT_MOBILE":   rec.Get(models.FieldClientMobile),
			"ADDRESS_DOG":     rec.Get(models.FieldAddress),
			"DATE_DOG":        rec.Get(models.FieldContractDate),
			"DATE_BEGIN":      rec.Get(models.FieldStartDate),
			"DATE_END":        rec.Get(models.FieldEndDate),
			"TOTAL_SUM":       rec.Get(models.FieldTotalSum),
			"PASSPORT_SERIES": rec.Get(models.FieldPassportSeries),
			"PASSPORT_NUMBER": rec.Get(models.FieldPassportNumber),
			"PASSPORT_BASE":   rec.Get(models.FieldPassportBase),
			"PRE_PAY":         rec.Get(models.FieldPrePay),
			"FIRST_PAY":       rec.Get(models.FieldFirstPay),
			"SECOND_PAY":      rec.Get(models.FieldSecondPay),
		}
	}
}
