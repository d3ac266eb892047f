package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/DocForge/internal/flow"
	"github.com/BTreeMap/DocForge/internal/messaging"
	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/report"
	"github.com/BTreeMap/DocForge/internal/store"
)

// stubEngine records calls without running a real conversation.
type stubEngine struct {
	started   []models.DocType
	handled   bool
	doneOK    bool
	cancelled int
}

func (s *stubEngine) StartFlow(ctx context.Context, ev models.Response, dt models.DocType) error {
	s.started = append(s.started, dt)
	return nil
}

func (s *stubEngine) Handle(ctx context.Context, ev models.Response) (bool, error) {
	return s.handled, nil
}

func (s *stubEngine) Done(ctx context.Context, ev models.Response) (bool, error) {
	return s.doneOK, nil
}

func (s *stubEngine) Cancel(ctx context.Context, ev models.Response) error {
	s.cancelled++
	return nil
}

func newTestBot(engine *stubEngine, opts ...Option) (*Bot, *messaging.MockService, *store.InMemoryStore) {
	mock := messaging.NewMockService()
	st := store.NewInMemoryStore()
	reporter := report.NewReporter(mock, st)
	return New(mock, engine, st, reporter, opts...), mock, st
}

func TestMenuChoiceStartsFlow(t *testing.T) {
	engine := &stubEngine{}
	b, _, _ := newTestBot(engine)

	b.handleEvent(context.Background(), models.Response{ChatID: 1, Text: flow.MainMenuAct})

	if len(engine.started) != 1 || engine.started[0] != models.DocTypeAct {
		t.Errorf("started flows = %v, want [act]", engine.started)
	}
}

func TestUnknownTextShowsMenu(t *testing.T) {
	engine := &stubEngine{}
	b, mock, _ := newTestBot(engine)

	b.handleEvent(context.Background(), models.Response{ChatID: 1, Text: "привет"})

	msg := mock.LastMessage()
	if msg == nil || msg.Text != "Выберите документ:" {
		t.Fatalf("last message = %+v, want menu prompt", msg)
	}
	if len(msg.Keyboard.Rows) == 0 {
		t.Error("menu prompt has no keyboard")
	}
}

func TestActiveSessionShortCircuitsMenu(t *testing.T) {
	engine := &stubEngine{handled: true}
	b, mock, _ := newTestBot(engine)

	b.handleEvent(context.Background(), models.Response{ChatID: 1, Text: flow.MainMenuContract})

	if len(engine.started) != 0 {
		t.Errorf("started flows = %v, want none while session active", engine.started)
	}
	if len(mock.Messages()) != 0 {
		t.Errorf("bot sent %d messages, want 0", len(mock.Messages()))
	}
}

func TestStartCommandCancels(t *testing.T) {
	engine := &stubEngine{}
	b, _, _ := newTestBot(engine)

	b.handleEvent(context.Background(), models.Response{ChatID: 1, Text: "/start", Command: "start"})
	b.handleEvent(context.Background(), models.Response{ChatID: 1, Text: "/cancel", Command: "cancel"})

	if engine.cancelled != 2 {
		t.Errorf("cancelled = %d, want 2", engine.cancelled)
	}
}

func TestStartCommandReportsPrivateUser(t *testing.T) {
	engine := &stubEngine{}
	b, mock, st := newTestBot(engine)
	if err := st.SetSetting(store.SettingReportChatID, "-100123"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := st.SetSetting(store.SettingStartsThreadID, "11"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	ev := models.Response{ChatID: 1, UserID: 7, Username: "ivan", FirstName: "Иван", ChatType: "private", Command: "start"}
	b.handleEvent(context.Background(), ev)

	msgs := mock.Messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want the start report", len(msgs))
	}
	if msgs[0].ChatID != -100123 || msgs[0].ThreadID != 11 {
		t.Errorf("report routed to %d/%d, want -100123/11", msgs[0].ChatID, msgs[0].ThreadID)
	}
	for _, want := range []string{"запустил", "@ivan", "ID 7"} {
		if !strings.Contains(msgs[0].Text, want) {
			t.Errorf("report text = %q, missing %q", msgs[0].Text, want)
		}
	}
	if engine.cancelled != 1 {
		t.Errorf("cancelled = %d, want the flow reset alongside the report", engine.cancelled)
	}

	// Group /start resets the flow but is not reported.
	group := models.Response{ChatID: -100, UserID: 7, ChatType: "supergroup", Command: "start"}
	b.handleEvent(context.Background(), group)
	if n := len(mock.Messages()); n != 1 {
		t.Errorf("sent %d messages after group /start, want still 1", n)
	}
}

func TestDoneOutsideSupplementText(t *testing.T) {
	engine := &stubEngine{doneOK: false}
	b, mock, _ := newTestBot(engine)

	b.handleEvent(context.Background(), models.Response{ChatID: 1, Text: "/done", Command: "done"})

	msg := mock.LastMessage()
	if msg == nil || !strings.Contains(msg.Text, "/done") {
		t.Fatalf("last message = %+v, want /done hint", msg)
	}
}

func TestSetTopicRequiresAdmin(t *testing.T) {
	engine := &stubEngine{}
	b, mock, st := newTestBot(engine)

	ev := models.Response{ChatID: -100, UserID: 7, ChatType: "supergroup", ThreadID: 42, Command: "set_topic_starts"}
	b.handleEvent(context.Background(), ev)

	msg := mock.LastMessage()
	if msg == nil || !strings.Contains(msg.Text, "администратор") {
		t.Fatalf("last message = %+v, want admin rejection", msg)
	}
	if v, _ := st.GetSetting(store.SettingStartsThreadID); v != "" {
		t.Errorf("setting written despite rejection: %q", v)
	}
}

func TestSetTopicPersistsRouting(t *testing.T) {
	engine := &stubEngine{}
	b, mock, st := newTestBot(engine, WithAdminIDs([]int64{7}))

	ev := models.Response{ChatID: -100, UserID: 7, ChatType: "supergroup", ThreadID: 42, Command: "set_topic_files"}
	b.handleEvent(context.Background(), ev)

	if v, _ := st.GetSetting(store.SettingReportChatID); v != "-100" {
		t.Errorf("report chat = %q, want -100", v)
	}
	if v, _ := st.GetSetting(store.SettingFilesThreadID); v != "42" {
		t.Errorf("files thread = %q, want 42", v)
	}
	msg := mock.LastMessage()
	if msg == nil || !strings.Contains(msg.Text, "сохранён") {
		t.Fatalf("last message = %+v, want confirmation", msg)
	}
}

func TestSetTopicRejectsPrivateChat(t *testing.T) {
	engine := &stubEngine{}
	b, mock, st := newTestBot(engine, WithAdminIDs([]int64{7}))

	ev := models.Response{ChatID: 7, UserID: 7, ChatType: "private", Command: "set_topic_starts"}
	b.handleEvent(context.Background(), ev)

	msg := mock.LastMessage()
	if msg == nil || !strings.Contains(msg.Text, "супергруппы") {
		t.Fatalf("last message = %+v, want supergroup requirement", msg)
	}
	if v, _ := st.GetSetting(store.SettingReportChatID); v != "" {
		t.Errorf("setting written despite rejection: %q", v)
	}
}

func TestSetTopicRejectsGeneralStream(t *testing.T) {
	engine := &stubEngine{}
	b, mock, st := newTestBot(engine, WithAdminIDs([]int64{7}))

	ev := models.Response{ChatID: -100, UserID: 7, ChatType: "supergroup", Command: "set_topic_starts"}
	b.handleEvent(context.Background(), ev)

	msg := mock.LastMessage()
	if msg == nil || !strings.Contains(msg.Text, "внутри темы") {
		t.Fatalf("last message = %+v, want topic requirement", msg)
	}
	if v, _ := st.GetSetting(store.SettingReportChatID); v != "" {
		t.Errorf("report chat written outside a topic: %q", v)
	}
	if v, _ := st.GetSetting(store.SettingStartsThreadID); v != "" {
		t.Errorf("thread written outside a topic: %q", v)
	}
}

func TestChatAdminStatusAccepted(t *testing.T) {
	engine := &stubEngine{}
	b, mock, st := newTestBot(engine)
	mock.Admins[9] = true

	ev := models.Response{ChatID: -100, UserID: 9, ChatType: "supergroup", ThreadID: 5, Command: "set_topic_starts"}
	b.handleEvent(context.Background(), ev)

	if v, _ := st.GetSetting(store.SettingStartsThreadID); v != "5" {
		t.Errorf("starts thread = %q, want 5", v)
	}
}
