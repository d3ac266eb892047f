package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/BTreeMap/DocForge/internal/models"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	// Empty store.
	got, err := s.GetSession(42)
	if err != nil {
		t.Fatalf("GetSession on empty store: %v", err)
	}
	if got != nil {
		t.Fatalf("GetSession on empty store = %+v, want nil", got)
	}

	now := time.Now().UTC().Truncate(time.Second)
	session := models.Session{
		ChatID:      42,
		DocType:     models.DocTypeContract,
		Phase:       models.PhaseCollecting,
		CurrentStep: "client_name",
		Record:      models.NewRecord(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := session.Record.Set(models.DocTypeContract, models.FieldClientName, "Иванов Иван"); err != nil {
		t.Fatalf("Record.Set: %v", err)
	}

	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err = s.GetSession(42)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got == nil {
		t.Fatal("GetSession returned nil after save")
	}
	if got.DocType != models.DocTypeContract || got.Phase != models.PhaseCollecting {
		t.Errorf("session = %+v, want contract/collecting", got)
	}
	if v := got.Record.Get(models.FieldClientName); v != "Иванов Иван" {
		t.Errorf("record client name = %q, want %q", v, "Иванов Иван")
	}

	// Saving again replaces.
	session.Phase = models.PhaseConfirm
	session.EditMode = true
	session.EditField = models.FieldPrePay
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession replace: %v", err)
	}
	got, err = s.GetSession(42)
	if err != nil {
		t.Fatalf("GetSession after replace: %v", err)
	}
	if got.Phase != models.PhaseConfirm {
		t.Errorf("phase after replace = %q, want %q", got.Phase, models.PhaseConfirm)
	}
	if !got.EditMode || got.EditField != models.FieldPrePay {
		t.Errorf("edit state after replace = %v/%q, want true/%q", got.EditMode, got.EditField, models.FieldPrePay)
	}

	count, err := s.CountSessions()
	if err != nil {
		t.Fatalf("CountSessions: %v", err)
	}
	if count != 1 {
		t.Errorf("CountSessions = %d, want 1", count)
	}

	if err := s.DeleteSession(42); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	got, err = s.GetSession(42)
	if err != nil {
		t.Fatalf("GetSession after delete: %v", err)
	}
	if got != nil {
		t.Errorf("GetSession after delete = %+v, want nil", got)
	}
	// Deleting again is not an error.
	if err := s.DeleteSession(42); err != nil {
		t.Fatalf("DeleteSession repeated: %v", err)
	}

	// Settings.
	value, err := s.GetSetting(SettingReportChatID)
	if err != nil {
		t.Fatalf("GetSetting unset: %v", err)
	}
	if value != "" {
		t.Errorf("GetSetting unset = %q, want empty", value)
	}
	if err := s.SetSetting(SettingReportChatID, "-1001234567890"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting(SettingReportChatID, "-1009999999999"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	value, err = s.GetSetting(SettingReportChatID)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if value != "-1009999999999" {
		t.Errorf("GetSetting = %q, want overwritten value", value)
	}

	// Documents.
	docs := []models.GeneratedDocument{
		{ID: "d1", ChatID: 42, UserID: 7, Username: "ivanov", DocType: models.DocTypeContract, ClientName: "Иванов Иван", Address: "Москва", CreatedAt: now},
		{ID: "d2", ChatID: 42, UserID: 7, Username: "ivanov", DocType: models.DocTypeContract, ClientName: "Петров Пётр", Address: "Казань", CreatedAt: now},
		{ID: "d3", ChatID: 43, UserID: 8, Username: "petrov", DocType: models.DocTypeAct, ClientName: "Сидоров", Address: "Тверь", CreatedAt: now},
	}
	for _, d := range docs {
		if err := s.AddDocument(d); err != nil {
			t.Fatalf("AddDocument %s: %v", d.ID, err)
		}
	}
	counts, err := s.CountDocuments()
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if counts[models.DocTypeContract] != 2 {
		t.Errorf("contract count = %d, want 2", counts[models.DocTypeContract])
	}
	if counts[models.DocTypeAct] != 1 {
		t.Errorf("act count = %d, want 1", counts[models.DocTypeAct])
	}
	if counts[models.DocTypeSupplement] != 0 {
		t.Errorf("supplement count = %d, want 0", counts[models.DocTypeSupplement])
	}
}

func TestInMemoryStore(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestInMemoryStoreClonesRecords(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	rec := models.NewRecord()
	if err := rec.Set(models.DocTypeAct, models.FieldClientName, "до"); err != nil {
		t.Fatalf("Record.Set: %v", err)
	}
	session := models.Session{
		ChatID:  1,
		DocType: models.DocTypeAct,
		Phase:   models.PhaseCollecting,
		Record:  rec,
	}
	if err := s.SaveSession(session); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// Mutating the caller's record must not leak into the store.
	if err := rec.Set(models.DocTypeAct, models.FieldClientName, "после"); err != nil {
		t.Fatalf("Record.Set: %v", err)
	}
	got, err := s.GetSession(1)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if v := got.Record.Get(models.FieldClientName); v != "до" {
		t.Errorf("stored record mutated through caller reference: got %q", v)
	}
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "docforge-test.db")
	s, err := NewSQLiteStore(WithDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLiteStoreRequiresDSN(t *testing.T) {
	if _, err := NewSQLiteStore(); err == nil {
		t.Fatal("NewSQLiteStore without DSN should fail")
	}
}
