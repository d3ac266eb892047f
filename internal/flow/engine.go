package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/render"
	"github.com/BTreeMap/DocForge/internal/validate"
	"github.com/google/uuid"
)

// Messenger is the outbound transport surface the engine needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb models.KeyboardSpec) error
	SendDocument(ctx context.Context, chatID int64, filePath, caption string, kb models.KeyboardSpec) error
}

// Renderer turns a completed record into document files.
type Renderer interface {
	Render(ctx context.Context, dt models.DocType, rec models.Record) (*render.Result, error)
}

// Reporter posts fire-and-forget audit messages. Implementations must never
// fail the conversation.
type Reporter interface {
	FlowStarted(ctx context.Context, ev models.Response, docLabel string)
	FileGenerated(ctx context.Context, filePath, caption string)
}

// SessionStore persists conversation sessions and the generated-document
// audit trail.
type SessionStore interface {
	SaveSession(s models.Session) error
	GetSession(chatID int64) (*models.Session, error)
	DeleteSession(chatID int64) error
	AddDocument(d models.GeneratedDocument) error
}

// Engine drives conversation sessions through their flow definitions. Inbound
// events for one chat must be delivered sequentially; distinct chats may be
// handled concurrently.
type Engine struct {
	sessions SessionStore
	msg      Messenger
	renderer Renderer
	reporter Reporter

	mu        sync.Mutex
	rendering map[int64]struct{}
}

// NewEngine creates an Engine with its collaborators.
func NewEngine(sessions SessionStore, msg Messenger, renderer Renderer, reporter Reporter) *Engine {
	slog.Debug("Creating flow engine")
	return &Engine{
		sessions:  sessions,
		msg:       msg,
		renderer:  renderer,
		reporter:  reporter,
		rendering: make(map[int64]struct{}),
	}
}

// StartFlow begins a fresh conversation for the chosen document type,
// discarding any session already active for the chat.
func (e *Engine) StartFlow(ctx context.Context, ev models.Response, dt models.DocType) error {
	def, ok := DefinitionFor(dt)
	if !ok {
		return models.ErrInvalidDocType
	}

	now := time.Now()
	s := models.Session{
		ChatID:      ev.ChatID,
		DocType:     dt,
		Phase:       models.PhaseCollecting,
		CurrentStep: string(def.First().ID),
		Record:      models.NewRecord(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if dt == models.DocTypeSupplement {
		// The text step accumulates, so it starts from an explicit blank.
		s.Record[models.FieldSupplementText] = ""
	}
	if err := e.sessions.SaveSession(s); err != nil {
		return fmt.Errorf("failed to save new session: %w", err)
	}
	slog.Info("Engine flow started", "chatID", ev.ChatID, "docType", dt)

	e.reporter.FlowStarted(ctx, ev, dt.Label())
	return e.prompt(ctx, &s, def.First())
}

// Handle processes one inbound operator message for an active session.
// It returns false when the chat has no session, leaving the event to the
// caller's menu dispatch.
func (e *Engine) Handle(ctx context.Context, ev models.Response) (bool, error) {
	s, err := e.sessions.GetSession(ev.ChatID)
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil {
		return false, nil
	}

	text := strings.TrimSpace(ev.Text)
	switch text {
	case MainMenuButton:
		return true, e.Cancel(ctx, ev)
	case MainMenuContract:
		return true, e.StartFlow(ctx, ev, models.DocTypeContract)
	case MainMenuAct:
		return true, e.StartFlow(ctx, ev, models.DocTypeAct)
	case MainMenuSupplement:
		return true, e.StartFlow(ctx, ev, models.DocTypeSupplement)
	case RestartButton:
		return true, e.restart(ctx, s, ev)
	case BackButton:
		if s.Phase == models.PhaseCollecting {
			return true, e.goBack(ctx, s)
		}
	}

	switch s.Phase {
	case models.PhaseCollecting:
		return true, e.submit(ctx, s, ev, text)
	case models.PhaseConfirm:
		return true, e.handleConfirmChoice(ctx, s, ev, text)
	case models.PhaseEditChoice:
		return true, e.handleEditChoice(ctx, s, text)
	}
	return true, fmt.Errorf("session in unknown phase %q", s.Phase)
}

// Done finalizes the multi-message supplement text step. It returns false
// when the command does not apply to the session's current position.
func (e *Engine) Done(ctx context.Context, ev models.Response) (bool, error) {
	s, err := e.sessions.GetSession(ev.ChatID)
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}
	if s == nil || s.Phase != models.PhaseCollecting {
		return false, nil
	}
	def, _ := DefinitionFor(s.DocType)
	step := def.ByID(StepID(s.CurrentStep))
	if step == nil || !step.Accumulate {
		return false, nil
	}

	if strings.TrimSpace(s.Record.Get(step.Field)) == "" {
		return true, e.msg.SendMessage(ctx, s.ChatID, "Текст пустой. Добавьте текст или /cancel.", step.Keyboard)
	}
	if s.IsEditing(step.Field) {
		s.EndEdit()
	}
	return true, e.showSummary(ctx, s)
}

// Cancel discards the session entirely and returns to document selection.
func (e *Engine) Cancel(ctx context.Context, ev models.Response) error {
	if err := e.sessions.DeleteSession(ev.ChatID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("Engine session cancelled", "chatID", ev.ChatID)
	return e.msg.SendMessage(ctx, ev.ChatID, "Выберите документ:", MainKeyboard)
}

// restart discards collected data but preserves the chosen document type.
func (e *Engine) restart(ctx context.Context, s *models.Session, ev models.Response) error {
	slog.Info("Engine flow restarted", "chatID", s.ChatID, "docType", s.DocType)
	return e.StartFlow(ctx, ev, s.DocType)
}

// goBack moves to the sequence predecessor of the current step. From the
// first step it is a recoverable notice, never an error. While editing a
// single field it returns to the field picker instead of walking the
// sequence.
func (e *Engine) goBack(ctx context.Context, s *models.Session) error {
	if s.EditMode {
		s.EndEdit()
		return e.showEditMenu(ctx, s)
	}

	def, _ := DefinitionFor(s.DocType)
	step := def.ByID(StepID(s.CurrentStep))
	if step == nil {
		return models.ErrUnknownStep
	}
	prev := def.Prev(step.ID)
	if prev == nil {
		slog.Debug("Engine goBack at first step", "chatID", s.ChatID)
		return e.msg.SendMessage(ctx, s.ChatID, "Предыдущее значение отсутствует.", step.Keyboard)
	}

	s.CurrentStep = string(prev.ID)
	if err := e.save(s); err != nil {
		return err
	}
	slog.Debug("Engine goBack", "chatID", s.ChatID, "from", step.ID, "to", prev.ID)
	return e.prompt(ctx, s, prev)
}

// submit validates the operator's input for the current step, writes the
// record and advances the machine.
func (e *Engine) submit(ctx context.Context, s *models.Session, ev models.Response, text string) error {
	def, _ := DefinitionFor(s.DocType)
	step := def.ByID(StepID(s.CurrentStep))
	if step == nil {
		return models.ErrUnknownStep
	}

	var value string
	if len(step.SkipTokens) > 0 && step.Skippable(text) {
		value = ""
	} else {
		normalized, err := validate.Validate(step.Kind, text)
		if err != nil {
			if validate.IsRejection(err) {
				slog.Debug("Engine input rejected", "chatID", s.ChatID, "step", step.ID, "reason", err.Error())
				return e.msg.SendMessage(ctx, s.ChatID, err.Error(), step.Keyboard)
			}
			return err
		}
		value = normalized
	}

	if step.Accumulate {
		return e.accumulate(ctx, s, step, value)
	}

	switch step.ID {
	case StepStageChoice:
		return e.submitStageChoice(ctx, s, def, step, value)
	case StepFirstPay:
		return e.submitFirstPay(ctx, s, def, step, value)
	default:
		return e.submitPlain(ctx, s, def, step, value)
	}
}

// submitPlain handles every step without payment derivation side effects.
// When the edited field is one of the split's inputs, the split is
// re-derived against the stored values before the new value is accepted.
func (e *Engine) submitPlain(ctx context.Context, s *models.Session, def *Definition, step *Step, value string) error {
	rec := s.Record.Clone()
	if err := rec.Set(s.DocType, step.Field, value); err != nil {
		return err
	}
	if step.Field == models.FieldTotalSum || step.Field == models.FieldPrePay {
		if err := Recompute(rec); err != nil {
			conflict, _ := AsConflict(err)
			return e.routeConflict(ctx, s, def, conflict)
		}
	}
	s.Record = rec
	return e.advance(ctx, s, def, step)
}

// submitStageChoice records the stage count. A one-stage split derives the
// single payment immediately and jumps to review; a conflict re-collects the
// deposit instead.
func (e *Engine) submitStageChoice(ctx context.Context, s *models.Session, def *Definition, step *Step, value string) error {
	rec := s.Record.Clone()
	if err := rec.Set(s.DocType, step.Field, value); err != nil {
		return err
	}

	if value == StageOneButton {
		if err := Recompute(rec); err != nil {
			conflict, _ := AsConflict(err)
			return e.routeConflict(ctx, s, def, conflict)
		}
		s.Record = rec
		slog.Debug("Engine one-stage split derived", "chatID", s.ChatID, "firstPay", rec.Get(models.FieldFirstPay))
		return e.showSummary(ctx, s)
	}

	s.Record = rec
	next := def.Next(step.ID) // first payment
	s.CurrentStep = string(next.ID)
	if err := e.save(s); err != nil {
		return err
	}
	return e.prompt(ctx, s, next)
}

// submitFirstPay stores the first payment and derives the second. The review
// screen follows directly; the second-payment step is only ever entered
// through the field picker. With a one-stage split the step is reachable only
// from the picker and the payment stays derived.
func (e *Engine) submitFirstPay(ctx context.Context, s *models.Session, def *Definition, step *Step, value string) error {
	rec := s.Record.Clone()
	if rec.Get(models.FieldStageCount) == StageOneButton {
		// Under a one-stage split the payment is derived, never entered.
		if err := Recompute(rec); err != nil {
			conflict, _ := AsConflict(err)
			return e.routeConflict(ctx, s, def, conflict)
		}
		s.Record = rec
		if s.IsEditing(step.Field) {
			s.EndEdit()
		}
		if err := e.msg.SendMessage(ctx, s.ChatID,
			"При одном этапе платеж рассчитывается автоматически: общая сумма минус предоплата.",
			models.KeyboardSpec{}); err != nil {
			return err
		}
		return e.showSummary(ctx, s)
	}
	if err := rec.Set(s.DocType, step.Field, value); err != nil {
		return err
	}
	if err := Recompute(rec); err != nil {
		conflict, _ := AsConflict(err)
		return e.routeConflict(ctx, s, def, conflict)
	}
	s.Record = rec
	if s.IsEditing(step.Field) {
		s.EndEdit()
	}
	slog.Debug("Engine two-stage split derived", "chatID", s.ChatID, "secondPay", rec.Get(models.FieldSecondPay))
	return e.showSummary(ctx, s)
}

// advance routes step completion: edit mode splices directly to review,
// otherwise the linear successor follows, with review after the last step.
func (e *Engine) advance(ctx context.Context, s *models.Session, def *Definition, step *Step) error {
	if s.IsEditing(step.Field) {
		s.EndEdit()
		slog.Debug("Engine edit completed", "chatID", s.ChatID, "field", step.Field)
		return e.showSummary(ctx, s)
	}

	next := def.Next(step.ID)
	if next == nil {
		return e.showSummary(ctx, s)
	}
	s.CurrentStep = string(next.ID)
	if err := e.save(s); err != nil {
		return err
	}
	return e.prompt(ctx, s, next)
}

// accumulate appends one message to the multi-message text field.
func (e *Engine) accumulate(ctx context.Context, s *models.Session, step *Step, value string) error {
	current := s.Record.Get(step.Field)
	combined := strings.TrimSpace(current + "\n" + value)
	if err := s.Record.Set(s.DocType, step.Field, combined); err != nil {
		return err
	}
	if err := e.save(s); err != nil {
		return err
	}
	return e.msg.SendMessage(ctx, s.ChatID, "Добавлено. Продолжайте или отправьте /done.", step.Keyboard)
}

// routeConflict reroutes the session to the field named by a payment
// derivation conflict. The submitted value is not accepted. In edit mode the
// edit target follows the reroute so the review screen still comes next.
func (e *Engine) routeConflict(ctx context.Context, s *models.Session, def *Definition, conflict *ArithmeticConflict) error {
	target := def.ByField(conflict.Refield)
	if target == nil {
		return models.ErrUnknownField
	}
	slog.Info("Engine arithmetic conflict", "chatID", s.ChatID, "refield", conflict.Refield, "reason", conflict.Reason)

	s.CurrentStep = string(target.ID)
	s.Phase = models.PhaseCollecting
	if s.EditMode {
		s.EditField = conflict.Refield
	}
	if err := e.save(s); err != nil {
		return err
	}
	if err := e.msg.SendMessage(ctx, s.ChatID, conflict.Reason, target.Keyboard); err != nil {
		return err
	}
	return e.prompt(ctx, s, target)
}

// handleConfirmChoice reacts to the review screen actions.
func (e *Engine) handleConfirmChoice(ctx context.Context, s *models.Session, ev models.Response, text string) error {
	switch text {
	case ConfirmButton:
		return e.confirm(ctx, s, ev)
	case EditButton:
		return e.showEditMenu(ctx, s)
	default:
		return e.msg.SendMessage(ctx, s.ChatID,
			"Нажмите «Сформировать», «Изменить данные» или «Начать заново».", ConfirmKeyboard)
	}
}

// handleEditChoice resolves the field picker selection and splices in a
// single re-prompt for that field.
func (e *Engine) handleEditChoice(ctx context.Context, s *models.Session, text string) error {
	if text == EditBackButton {
		return e.showSummary(ctx, s)
	}

	def, _ := DefinitionFor(s.DocType)
	step := def.ByEditLabel(text)
	if step == nil {
		return e.msg.SendMessage(ctx, s.ChatID, "Выберите пункт для изменения.", editKeyboardFor(s.DocType))
	}

	previous := s.Record.Get(step.Field)
	if step.Accumulate {
		// Re-collecting the multi-message text starts over from blank.
		if err := s.Record.Set(s.DocType, step.Field, ""); err != nil {
			return err
		}
	}
	s.BeginEdit(step.Field)
	s.CurrentStep = string(step.ID)
	s.Phase = models.PhaseCollecting
	if err := e.save(s); err != nil {
		return err
	}
	slog.Debug("Engine edit mode entered", "chatID", s.ChatID, "field", step.Field)

	text = step.Prompt
	if !step.Accumulate {
		text += "\nТекущее значение: " + orDash(previous)
	}
	return e.msg.SendMessage(ctx, s.ChatID, text, step.Keyboard)
}

// confirm renders the record and delivers the document. Render failures keep
// the session on the review screen so the operator may retry or edit; only a
// successful delivery tears the session down.
func (e *Engine) confirm(ctx context.Context, s *models.Session, ev models.Response) error {
	if !e.beginRender(s.ChatID) {
		return e.msg.SendMessage(ctx, s.ChatID, "Документ уже формируется, подождите.", ConfirmKeyboard)
	}
	defer e.endRender(s.ChatID)

	res, err := e.renderer.Render(ctx, s.DocType, s.Record.Clone())
	if err != nil {
		slog.Error("Engine render failed", "chatID", s.ChatID, "docType", s.DocType, "error", err)
		return e.msg.SendMessage(ctx, s.ChatID,
			fmt.Sprintf("Не удалось сформировать документ.\nПричина: %v\nНажмите «Сформировать» для повтора или «Изменить данные».", err),
			ConfirmKeyboard)
	}
	defer res.Cleanup()

	path := res.PDFPath
	if path == "" {
		slog.Warn("Engine PDF conversion failed, falling back to DOCX", "chatID", s.ChatID, "error", res.ConvertErr)
		if err := e.msg.SendMessage(ctx, s.ChatID,
			"Не удалось конвертировать в PDF. Отправляю DOCX.\nПричина: "+res.ConvertErr, MainKeyboard); err != nil {
			return err
		}
		path = res.DocxPath
	}

	if err := e.msg.SendDocument(ctx, s.ChatID, path, docCaption(s.DocType), MainKeyboard); err != nil {
		slog.Error("Engine document delivery failed", "chatID", s.ChatID, "error", err)
		return e.msg.SendMessage(ctx, s.ChatID,
			"Не удалось отправить документ. Нажмите «Сформировать», чтобы попробовать ещё раз.", ConfirmKeyboard)
	}

	e.reporter.FileGenerated(ctx, path, BuildFileCaption(s.Record, s.DocType, ev))
	doc := models.GeneratedDocument{
		ID:         uuid.NewString(),
		ChatID:     s.ChatID,
		UserID:     ev.UserID,
		Username:   ev.Username,
		DocType:    s.DocType,
		ClientName: s.Record.Get(models.FieldClientName),
		Address:    s.Record.Get(models.FieldAddress),
		CreatedAt:  time.Now(),
	}
	if err := e.sessions.AddDocument(doc); err != nil {
		slog.Error("Engine failed to record generated document", "chatID", s.ChatID, "error", err)
	}

	if err := e.sessions.DeleteSession(s.ChatID); err != nil {
		return fmt.Errorf("failed to tear down session: %w", err)
	}
	slog.Info("Engine document generated", "chatID", s.ChatID, "docType", s.DocType, "id", doc.ID)
	return nil
}

// showSummary renders the review screen and moves to the confirmation phase.
func (e *Engine) showSummary(ctx context.Context, s *models.Session) error {
	s.Phase = models.PhaseConfirm
	s.CurrentStep = ""
	if err := e.save(s); err != nil {
		return err
	}
	return e.msg.SendMessage(ctx, s.ChatID, RenderSummary(s.Record, s.DocType), ConfirmKeyboard)
}

// showEditMenu presents the field picker.
func (e *Engine) showEditMenu(ctx context.Context, s *models.Session) error {
	s.Phase = models.PhaseEditChoice
	s.CurrentStep = ""
	if err := e.save(s); err != nil {
		return err
	}
	return e.msg.SendMessage(ctx, s.ChatID, "Что хотите изменить?", editKeyboardFor(s.DocType))
}

func (e *Engine) prompt(ctx context.Context, s *models.Session, step *Step) error {
	return e.msg.SendMessage(ctx, s.ChatID, step.Prompt, step.Keyboard)
}

func (e *Engine) save(s *models.Session) error {
	s.UpdatedAt = time.Now()
	if err := e.sessions.SaveSession(*s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (e *Engine) beginRender(chatID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.rendering[chatID]; busy {
		return false
	}
	e.rendering[chatID] = struct{}{}
	return true
}

func (e *Engine) endRender(chatID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rendering, chatID)
}

func docCaption(dt models.DocType) string {
	switch dt {
	case models.DocTypeAct:
		return "Готовый акт."
	case models.DocTypeSupplement:
		return "Готовое доп. соглашение."
	default:
		return "Готовый договор."
	}
}
