// Package flow implements the conversation state machine that collects the
// fields for one document: flow definitions, field validation dispatch,
// bidirectional navigation, inline field editing and payment derivation.
package flow

import (
	"strings"

	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/validate"
)

// StepID names one field-collection point within a flow.
type StepID string

const (
	StepClientName     StepID = "client_name"
	StepAddress        StepID = "address"
	StepPhone          StepID = "phone"
	StepContractDate   StepID = "contract_date"
	StepStartDate      StepID = "start_date"
	StepEndDate        StepID = "end_date"
	StepTotalSum       StepID = "total_sum"
	StepPassportSeries StepID = "passport_series"
	StepPassportNumber StepID = "passport_number"
	StepPassportBase   StepID = "passport_base"
	StepPrePay         StepID = "pre_pay"
	StepStageChoice    StepID = "stage_choice"
	StepFirstPay       StepID = "first_pay"
	StepSecondPay      StepID = "second_pay"
	StepContractNumber StepID = "contract_number"
	StepSupplementDate StepID = "supplement_date"
	StepSupplementText StepID = "supplement_text"
)

// Field-picker labels shown in the edit menu.
const (
	EditClientName     = "ФИО"
	EditAddress        = "Адрес объекта"
	EditPhone          = "Телефон"
	EditContractDate   = "Дата договора"
	EditActDate        = "Дата акта"
	EditStartDate      = "Дата начала"
	EditEndDate        = "Дата окончания"
	EditTotalSum       = "Сумма договора"
	EditPassportSeries = "Паспорт серия"
	EditPassportNumber = "Паспорт номер"
	EditPassportBase   = "Паспорт выдан"
	EditPrePay         = "Предоплата"
	EditFirstPay       = "Платеж 1"
	EditSecondPay      = "Платеж 2"
	EditContractNumber = "Номер договора"
	EditSupplementDate = "Дата доп. соглашения"
	EditSupplementText = "Текст доп. соглашения"
)

// Step is one field-collection point: its record key, validator, prompt and
// quick-reply keyboard, plus the literal tokens that mean "leave blank".
type Step struct {
	ID       StepID
	Field    models.FieldKey
	Kind     validate.Kind
	Prompt   string
	Keyboard models.KeyboardSpec
	// SkipTokens hold lowercase literals that record the field as an
	// explicit blank instead of going through the validator.
	SkipTokens []string
	// EditLabel is the field-picker label; empty means the step is only
	// reachable through the linear flow.
	EditLabel string
	// Accumulate marks the multi-message text step: input is appended to the
	// stored value and the step completes on /done rather than on submit.
	Accumulate bool
}

// Skippable reports whether text matches one of the step's skip tokens.
func (s *Step) Skippable(text string) bool {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, tok := range s.SkipTokens {
		if lowered == tok {
			return true
		}
	}
	return false
}

// Definition is the immutable ordered step sequence for one document type.
// Sequence order defines both forward progression and the goBack predecessor
// relation.
type Definition struct {
	DocType models.DocType
	Steps   []Step

	index   map[StepID]int
	byField map[models.FieldKey]StepID
	byLabel map[string]StepID
}

func newDefinition(dt models.DocType, steps []Step) *Definition {
	d := &Definition{
		DocType: dt,
		Steps:   steps,
		index:   make(map[StepID]int, len(steps)),
		byField: make(map[models.FieldKey]StepID, len(steps)),
		byLabel: make(map[string]StepID, len(steps)),
	}
	for i, s := range steps {
		d.index[s.ID] = i
		d.byField[s.Field] = s.ID
		if s.EditLabel != "" {
			d.byLabel[s.EditLabel] = s.ID
		}
	}
	return d
}

// First returns the entry step of the flow.
func (d *Definition) First() *Step {
	return &d.Steps[0]
}

// ByID returns the step with the given id, or nil.
func (d *Definition) ByID(id StepID) *Step {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return &d.Steps[i]
}

// ByField returns the step collecting the given field key, or nil.
func (d *Definition) ByField(key models.FieldKey) *Step {
	id, ok := d.byField[key]
	if !ok {
		return nil
	}
	return d.ByID(id)
}

// ByEditLabel resolves a field-picker label to its step, or nil.
func (d *Definition) ByEditLabel(label string) *Step {
	id, ok := d.byLabel[label]
	if !ok {
		return nil
	}
	return d.ByID(id)
}

// Next returns the linear successor of id, or nil when id is the last step.
func (d *Definition) Next(id StepID) *Step {
	i, ok := d.index[id]
	if !ok || i+1 >= len(d.Steps) {
		return nil
	}
	return &d.Steps[i+1]
}

// Prev returns the linear predecessor of id, or nil when id is the first step.
func (d *Definition) Prev(id StepID) *Step {
	i, ok := d.index[id]
	if !ok || i == 0 {
		return nil
	}
	return &d.Steps[i-1]
}

var skipOnly = []string{"пропустить"}

func clientNameStep() Step {
	return Step{
		ID:        StepClientName,
		Field:     models.FieldClientName,
		Kind:      validate.KindText,
		Prompt:    "Введите ФИО заказчика:",
		Keyboard:  inputKeyboard(false),
		EditLabel: EditClientName,
	}
}

func addressStep() Step {
	return Step{
		ID:        StepAddress,
		Field:     models.FieldAddress,
		Kind:      validate.KindText,
		Prompt:    "Введите адрес объекта:",
		Keyboard:  inputKeyboard(true),
		EditLabel: EditAddress,
	}
}

func phoneStep() Step {
	return Step{
		ID:        StepPhone,
		Field:     models.FieldClientMobile,
		Kind:      validate.KindPhone,
		Prompt:    "Введите телефон заказчика:",
		Keyboard:  inputKeyboard(true),
		EditLabel: EditPhone,
	}
}

func contractDateStep(editLabel string) Step {
	return Step{
		ID:        StepContractDate,
		Field:     models.FieldContractDate,
		Kind:      validate.KindDate,
		Prompt:    "Введите дату договора/акта в формате ДД.ММ.ГГГГ (или нажмите «Текущая дата»):",
		Keyboard:  dateKeyboard(),
		EditLabel: editLabel,
	}
}

func passportSteps() []Step {
	return []Step{
		{
			ID:         StepPassportSeries,
			Field:      models.FieldPassportSeries,
			Kind:       validate.KindPassportSeries,
			Prompt:     "Введите серию паспорта (4 цифры) или «Пропустить»:",
			Keyboard:   skipKeyboard(),
			SkipTokens: skipOnly,
			EditLabel:  EditPassportSeries,
		},
		{
			ID:         StepPassportNumber,
			Field:      models.FieldPassportNumber,
			Kind:       validate.KindPassportNumber,
			Prompt:     "Введите номер паспорта (6 цифр) или «Пропустить»:",
			Keyboard:   skipKeyboard(),
			SkipTokens: skipOnly,
			EditLabel:  EditPassportNumber,
		},
		{
			ID:         StepPassportBase,
			Field:      models.FieldPassportBase,
			Kind:       validate.KindText,
			Prompt:     "Введите кем и когда выдан паспорт (или «Пропустить»):",
			Keyboard:   skipKeyboard(),
			SkipTokens: skipOnly,
			EditLabel:  EditPassportBase,
		},
	}
}

func contractSteps() []Step {
	steps := []Step{
		clientNameStep(),
		addressStep(),
		phoneStep(),
		contractDateStep(EditContractDate),
		{
			ID:        StepStartDate,
			Field:     models.FieldStartDate,
			Kind:      validate.KindDateOrCall,
			Prompt:    "Введите дату начала работ (или нажмите «По звонку»):",
			Keyboard:  startDateKeyboard(),
			EditLabel: EditStartDate,
		},
		{
			ID:         StepEndDate,
			Field:      models.FieldEndDate,
			Kind:       validate.KindDate,
			Prompt:     "Введите дату окончания работ (или «Пропустить»):",
			Keyboard:   skipKeyboard(),
			SkipTokens: []string{"пропустить", "не требуется", "нет"},
			EditLabel:  EditEndDate,
		},
		{
			ID:        StepTotalSum,
			Field:     models.FieldTotalSum,
			Kind:      validate.KindAmount,
			Prompt:    "Введите общую сумму договора (только цифры):",
			Keyboard:  inputKeyboard(true),
			EditLabel: EditTotalSum,
		},
	}
	steps = append(steps, passportSteps()...)
	steps = append(steps,
		Step{
			ID:         StepPrePay,
			Field:      models.FieldPrePay,
			Kind:       validate.KindAmount,
			Prompt:     "Введите сумму предоплаты (или «Пропустить»):",
			Keyboard:   skipKeyboard(),
			SkipTokens: []string{"пропустить", "нет", "0"},
			EditLabel:  EditPrePay,
		},
		Step{
			ID:       StepStageChoice,
			Field:    models.FieldStageCount,
			Kind:     validate.KindStageChoice,
			Prompt:   "Сколько этапов оплаты? Введите 1 или 2:",
			Keyboard: stageKeyboard(),
		},
		Step{
			ID:        StepFirstPay,
			Field:     models.FieldFirstPay,
			Kind:      validate.KindAmount,
			Prompt:    "Введите сумму первого платежа:",
			Keyboard:  inputKeyboard(true),
			EditLabel: EditFirstPay,
		},
		Step{
			ID:        StepSecondPay,
			Field:     models.FieldSecondPay,
			Kind:      validate.KindAmount,
			Prompt:    "Введите сумму второго платежа:",
			Keyboard:  inputKeyboard(true),
			EditLabel: EditSecondPay,
		},
	)
	return steps
}

func actSteps() []Step {
	steps := []Step{
		clientNameStep(),
		addressStep(),
		phoneStep(),
		contractDateStep(EditActDate),
	}
	return append(steps, passportSteps()...)
}

func supplementSteps() []Step {
	return []Step{
		{
			ID:        StepContractNumber,
			Field:     models.FieldContractNumber,
			Kind:      validate.KindText,
			Prompt:    "Введите номер договора:",
			Keyboard:  inputKeyboard(false),
			EditLabel: EditContractNumber,
		},
		{
			ID:        StepSupplementDate,
			Field:     models.FieldSupplementDate,
			Kind:      validate.KindDate,
			Prompt:    "Введите дату доп. соглашения в формате ДД.ММ.ГГГГ (или нажмите «Текущая дата»):",
			Keyboard:  dateKeyboard(),
			EditLabel: EditSupplementDate,
		},
		{
			ID:         StepSupplementText,
			Field:      models.FieldSupplementText,
			Kind:       validate.KindText,
			Prompt:     "Введите текст доп. соглашения. Можно несколькими сообщениями. Для завершения отправьте /done.",
			Keyboard:   inputKeyboard(true),
			EditLabel:  EditSupplementText,
			Accumulate: true,
		},
	}
}

var definitions = map[models.DocType]*Definition{
	models.DocTypeContract:   newDefinition(models.DocTypeContract, contractSteps()),
	models.DocTypeAct:        newDefinition(models.DocTypeAct, actSteps()),
	models.DocTypeSupplement: newDefinition(models.DocTypeSupplement, supplementSteps()),
}

// DefinitionFor returns the immutable flow definition for a document type.
func DefinitionFor(dt models.DocType) (*Definition, bool) {
	d, ok := definitions[dt]
	return d, ok
}
