package report

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/DocForge/internal/messaging"
	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/store"
)

func TestReporterSkipsWhenUnconfigured(t *testing.T) {
	mock := messaging.NewMockService()
	r := NewReporter(mock, store.NewInMemoryStore())

	r.BotStarted(context.Background())
	r.UserStarted(context.Background(), models.Response{FirstName: "Иван", UserID: 7})
	r.FlowStarted(context.Background(), models.Response{FirstName: "Иван"}, "Договор")
	r.FileGenerated(context.Background(), "/tmp/x.pdf", "caption")

	if n := len(mock.Messages()); n != 0 {
		t.Errorf("unconfigured reporter sent %d messages, want 0", n)
	}
	if n := len(mock.Documents()); n != 0 {
		t.Errorf("unconfigured reporter sent %d documents, want 0", n)
	}
}

func TestReporterUsesStoredRouting(t *testing.T) {
	mock := messaging.NewMockService()
	st := store.NewInMemoryStore()
	if err := st.SetSetting(store.SettingReportChatID, "-100123"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := st.SetSetting(store.SettingStartsThreadID, "11"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := st.SetSetting(store.SettingFilesThreadID, "22"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	r := NewReporter(mock, st)
	r.FlowStarted(context.Background(), models.Response{FirstName: "Иван", Username: "ivan"}, "Акт")
	r.FileGenerated(context.Background(), "/tmp/act.pdf", "готово")

	msgs := mock.Messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if msgs[0].ChatID != -100123 || msgs[0].ThreadID != 11 {
		t.Errorf("message routed to %d/%d, want -100123/11", msgs[0].ChatID, msgs[0].ThreadID)
	}
	if !strings.Contains(msgs[0].Text, "Акт") || !strings.Contains(msgs[0].Text, "@ivan") {
		t.Errorf("message text = %q, want doc label and handle", msgs[0].Text)
	}

	docs := mock.Documents()
	if len(docs) != 1 {
		t.Fatalf("sent %d documents, want 1", len(docs))
	}
	if docs[0].ChatID != -100123 || docs[0].ThreadID != 22 {
		t.Errorf("document routed to %d/%d, want -100123/22", docs[0].ChatID, docs[0].ThreadID)
	}
}

func TestReporterUserStarted(t *testing.T) {
	mock := messaging.NewMockService()
	st := store.NewInMemoryStore()
	if err := st.SetSetting(store.SettingReportChatID, "-100123"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := st.SetSetting(store.SettingStartsThreadID, "11"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	r := NewReporter(mock, st)
	r.UserStarted(context.Background(), models.Response{UserID: 7, Username: "ivan", FirstName: "Иван", Time: 1756500000})

	msgs := mock.Messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if msgs[0].ChatID != -100123 || msgs[0].ThreadID != 11 {
		t.Errorf("report routed to %d/%d, want -100123/11", msgs[0].ChatID, msgs[0].ThreadID)
	}
	for _, want := range []string{"Иван", "@ivan", "ID 7", "запустил"} {
		if !strings.Contains(msgs[0].Text, want) {
			t.Errorf("report text = %q, missing %q", msgs[0].Text, want)
		}
	}
}

func TestReporterEnvOverridesWin(t *testing.T) {
	mock := messaging.NewMockService()
	st := store.NewInMemoryStore()
	if err := st.SetSetting(store.SettingReportChatID, "-100123"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := st.SetSetting(store.SettingStartsThreadID, "11"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}

	r := NewReporter(mock, st, WithChatID(-200999), WithStartsThreadID(33))
	r.FlowStarted(context.Background(), models.Response{}, "Договор")

	msgs := mock.Messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	if msgs[0].ChatID != -200999 || msgs[0].ThreadID != 33 {
		t.Errorf("message routed to %d/%d, want overrides -200999/33", msgs[0].ChatID, msgs[0].ThreadID)
	}
}
