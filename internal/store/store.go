// Package store provides storage backends for DocForge.
//
// It persists conversation sessions, report routing settings and the
// generated-document audit trail, with SQLite and PostgreSQL backends plus
// an in-memory store for tests.
package store

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/BTreeMap/DocForge/internal/models"
)

// Store is the persistence surface shared by all backends.
type Store interface {
	// SaveSession stores or replaces the session for its chat.
	SaveSession(s models.Session) error

	// GetSession retrieves the session for a chat, or nil when absent.
	GetSession(chatID int64) (*models.Session, error)

	// DeleteSession removes the session for a chat. Absence is not an error.
	DeleteSession(chatID int64) error

	// CountSessions returns the number of active sessions.
	CountSessions() (int, error)

	// GetSetting returns the stored value for key, or "" when unset.
	GetSetting(key string) (string, error)

	// SetSetting stores or replaces a settings value.
	SetSetting(key, value string) error

	// AddDocument appends one generated-document audit record.
	AddDocument(d models.GeneratedDocument) error

	// CountDocuments returns the number of generated documents per type.
	CountDocuments() (map[models.DocType]int, error)

	// Close releases the backend's resources.
	Close() error
}

// Setting keys for report routing.
const (
	SettingReportChatID   = "report_chat_id"
	SettingStartsThreadID = "starts_thread_id"
	SettingFilesThreadID  = "files_thread_id"
)

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use a URL scheme or key=value connection parameters; anything else is
// treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// NewStore creates the backend matching the DSN type. An empty DSN yields the
// in-memory store.
func NewStore(dsn string) (Store, error) {
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return NewPostgresStore(WithDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return NewSQLiteStore(WithDSN(dsn))
}

// Opts holds configuration options for database-backed stores.
type Opts struct {
	DSN string
}

// Option defines a configuration option for database-backed stores.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// InMemoryStore is a mutex-guarded in-memory Store, used in tests and as a
// fallback when no database is configured.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[int64]models.Session
	settings  map[string]string
	documents []models.GeneratedDocument
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[int64]models.Session),
		settings: make(map[string]string),
	}
}

func (s *InMemoryStore) SaveSession(session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Record = session.Record.Clone()
	s.sessions[session.ChatID] = session
	return nil
}

func (s *InMemoryStore) GetSession(chatID int64) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[chatID]
	if !ok {
		return nil, nil
	}
	session.Record = session.Record.Clone()
	return &session, nil
}

func (s *InMemoryStore) DeleteSession(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	return nil
}

func (s *InMemoryStore) CountSessions() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

func (s *InMemoryStore) GetSetting(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings[key], nil
}

func (s *InMemoryStore) SetSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *InMemoryStore) AddDocument(d models.GeneratedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, d)
	return nil
}

func (s *InMemoryStore) CountDocuments() (map[models.DocType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.DocType]int)
	for _, d := range s.documents {
		counts[d.DocType]++
	}
	return counts, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
