// Package models defines the closed field-key vocabulary for document records.
package models

// FieldKey identifies one collected value within a Record. The set of keys
// meaningful for a conversation is fixed by the document type; writing a key
// outside that set is a programming error and fails fast.
type FieldKey string

const (
	FieldClientName     FieldKey = "CLIENT_NAME"
	FieldClientMobile   FieldKey = "CLIENT_MOBILE"
	FieldAddress        FieldKey = "ADDRESS_DOG"
	FieldContractDate   FieldKey = "DATE_DOG"
	FieldStartDate      FieldKey = "DATE_BEGIN"
	FieldEndDate        FieldKey = "DATE_END"
	FieldTotalSum       FieldKey = "TOTAL_SUM"
	FieldPassportSeries FieldKey = "PASSPORT_SERIES"
	FieldPassportNumber FieldKey = "PASSPORT_NUMBER"
	FieldPassportBase   FieldKey = "PASSPORT_BASE"
	FieldPrePay         FieldKey = "PRE_PAY"
	FieldFirstPay       FieldKey = "FIRST_PAY"
	FieldSecondPay      FieldKey = "SECOND_PAY"
	FieldContractNumber FieldKey = "CONTRACT_NUMBER"
	FieldSupplementDate FieldKey = "SUPPLEMENT_DATE"
	FieldSupplementText FieldKey = "SUPPLEMENT_TEXT"

	// FieldStageCount records the chosen number of payment stages. It is kept
	// in the record so retroactive edits can re-derive the payment split, but
	// it is never part of a render context.
	FieldStageCount FieldKey = "STAGE_COUNT"
)

// recordSchema fixes the set of keys writable for each document type.
var recordSchema = map[DocType]map[FieldKey]struct{}{
	DocTypeContract: keySet(
		FieldClientName, FieldAddress, FieldClientMobile, FieldContractDate,
		FieldStartDate, FieldEndDate, FieldTotalSum,
		FieldPassportSeries, FieldPassportNumber, FieldPassportBase,
		FieldPrePay, FieldStageCount, FieldFirstPay, FieldSecondPay,
	),
	DocTypeAct: keySet(
		FieldClientName, FieldAddress, FieldClientMobile, FieldContractDate,
		FieldPassportSeries, FieldPassportNumber, FieldPassportBase,
	),
	DocTypeSupplement: keySet(
		FieldContractNumber, FieldSupplementDate, FieldSupplementText,
	),
}

func keySet(keys ...FieldKey) map[FieldKey]struct{} {
	set := make(map[FieldKey]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// FieldsFor returns the writable field-key set for a document type.
func FieldsFor(dt DocType) map[FieldKey]struct{} {
	return recordSchema[dt]
}

// Record accumulates collected field values over the lifetime of one
// conversation. Unset keys are absent; skippable fields explicitly left
// blank hold an empty string.
type Record map[FieldKey]string

// NewRecord creates an empty record.
func NewRecord() Record {
	return make(Record)
}

// Set writes a value, enforcing the closed vocabulary for the document type.
func (r Record) Set(dt DocType, key FieldKey, value string) error {
	schema, ok := recordSchema[dt]
	if !ok {
		return ErrInvalidDocType
	}
	if _, ok := schema[key]; !ok {
		return ErrUnknownField
	}
	r[key] = value
	return nil
}

// Get returns the stored value for key, or "" when unset.
func (r Record) Get(key FieldKey) string {
	return r[key]
}

// Has reports whether the key has been written (including explicit blanks).
func (r Record) Has(key FieldKey) bool {
	_, ok := r[key]
	return ok
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
