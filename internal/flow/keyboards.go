package flow

import (
	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/validate"
)

// Operator-facing button labels. The transport renders these as quick-reply
// buttons; inbound text is matched against them verbatim.
const (
	MainMenuContract   = "📝 Договор"
	MainMenuAct        = "📄 Акт"
	MainMenuSupplement = "➕ Доп. соглашение"
	MainMenuButton     = "🏠 Главное меню"

	ConfirmButton  = "✅ Сформировать"
	EditButton     = "✏️ Изменить данные"
	RestartButton  = "Начать заново"
	BackButton     = "Изменить предыдущее значение"
	EditBackButton = "Назад к проверке"

	SkipButton  = "Пропустить"
	TodayButton = validate.TodayToken
	CallButton  = validate.CallToken

	StageOneButton = "1"
	StageTwoButton = "2"
)

// MainKeyboard is the document-type selection menu.
var MainKeyboard = models.KeyboardSpec{
	Rows: [][]string{
		{MainMenuContract},
		{MainMenuAct},
		{MainMenuSupplement},
	},
	Resize: true,
}

// ConfirmKeyboard is shown together with the review screen.
var ConfirmKeyboard = buildKeyboard([][]string{{ConfirmButton}, {EditButton}}, false)

func buildKeyboard(rows [][]string, includeBack bool) models.KeyboardSpec {
	kb := models.KeyboardSpec{Resize: true}
	kb.Rows = append(kb.Rows, rows...)
	if includeBack {
		kb.Rows = append(kb.Rows, []string{BackButton})
	}
	kb.Rows = append(kb.Rows, []string{RestartButton})
	kb.Rows = append(kb.Rows, []string{MainMenuButton})
	return kb
}

func inputKeyboard(includeBack bool) models.KeyboardSpec {
	return buildKeyboard(nil, includeBack)
}

func dateKeyboard() models.KeyboardSpec {
	return buildKeyboard([][]string{{TodayButton}}, true)
}

func startDateKeyboard() models.KeyboardSpec {
	return buildKeyboard([][]string{{CallButton}}, true)
}

func skipKeyboard() models.KeyboardSpec {
	return buildKeyboard([][]string{{SkipButton}}, true)
}

func stageKeyboard() models.KeyboardSpec {
	return buildKeyboard([][]string{{StageOneButton, StageTwoButton}}, true)
}

// editKeyboardFor builds the field-picker keyboard for the edit mode menu.
func editKeyboardFor(dt models.DocType) models.KeyboardSpec {
	var rows [][]string
	switch dt {
	case models.DocTypeSupplement:
		rows = [][]string{
			{EditContractNumber, EditSupplementDate},
			{EditSupplementText},
		}
	case models.DocTypeAct:
		rows = [][]string{
			{EditClientName, EditAddress},
			{EditPhone, EditActDate},
			{EditPassportSeries, EditPassportNumber},
			{EditPassportBase},
		}
	default:
		rows = [][]string{
			{EditClientName, EditAddress},
			{EditPhone, EditContractDate},
			{EditStartDate, EditEndDate},
			{EditTotalSum},
			{EditPassportSeries, EditPassportNumber},
			{EditPassportBase},
			{EditPrePay, EditFirstPay, EditSecondPay},
		}
	}
	rows = append(rows, []string{EditBackButton})
	return buildKeyboard(rows, false)
}
