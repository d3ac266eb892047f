package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	"github.com/BTreeMap/DocForge/internal/models"
	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveSession(session models.Session) error {
	recordJSON, err := json.Marshal(session.Record)
	if err != nil {
		slog.Error("PostgresStore SaveSession JSON marshal failed", "error", err, "chatID", session.ChatID)
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (chat_id, doc_type, phase, current_step, record, edit_mode, edit_field, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chat_id) DO UPDATE SET
			doc_type = EXCLUDED.doc_type,
			phase = EXCLUDED.phase,
			current_step = EXCLUDED.current_step,
			record = EXCLUDED.record,
			edit_mode = EXCLUDED.edit_mode,
			edit_field = EXCLUDED.edit_field,
			updated_at = EXCLUDED.updated_at`,
		session.ChatID, session.DocType, session.Phase, session.CurrentStep,
		string(recordJSON), session.EditMode, session.EditField,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "chatID", session.ChatID)
		return fmt.Errorf("failed to save session for chat %d: %w", session.ChatID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "chatID", session.ChatID, "phase", session.Phase)
	return nil
}

func (s *PostgresStore) GetSession(chatID int64) (*models.Session, error) {
	var session models.Session
	var recordJSON string
	err := s.db.QueryRow(`
		SELECT chat_id, doc_type, phase, current_step, record, edit_mode, edit_field, created_at, updated_at
		FROM sessions WHERE chat_id = $1`, chatID).Scan(
		&session.ChatID, &session.DocType, &session.Phase, &session.CurrentStep,
		&recordJSON, &session.EditMode, &session.EditField,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetSession not found", "chatID", chatID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to load session for chat %d: %w", chatID, err)
	}

	session.Record = models.NewRecord()
	if recordJSON != "" {
		if err := json.Unmarshal([]byte(recordJSON), &session.Record); err != nil {
			slog.Error("PostgresStore GetSession JSON unmarshal failed", "error", err, "chatID", chatID)
			return nil, fmt.Errorf("failed to decode record for chat %d: %w", chatID, err)
		}
	}
	slog.Debug("PostgresStore GetSession found", "chatID", chatID, "phase", session.Phase)
	return &session, nil
}

func (s *PostgresStore) DeleteSession(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE chat_id = $1`, chatID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete session for chat %d: %w", chatID, err)
	}
	slog.Debug("PostgresStore DeleteSession succeeded", "chatID", chatID)
	return nil
}

func (s *PostgresStore) CountSessions() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		slog.Error("PostgresStore CountSessions failed", "error", err)
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSetting failed", "error", err, "key", key)
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, value)
	if err != nil {
		slog.Error("PostgresStore SetSetting failed", "error", err, "key", key)
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	slog.Debug("PostgresStore SetSetting succeeded", "key", key)
	return nil
}

func (s *PostgresStore) AddDocument(d models.GeneratedDocument) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (id, chat_id, user_id, username, doc_type, client_name, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.ChatID, d.UserID, d.Username, d.DocType, d.ClientName, d.Address, d.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddDocument failed", "error", err, "id", d.ID)
		return fmt.Errorf("failed to insert document %s: %w", d.ID, err)
	}
	slog.Debug("PostgresStore AddDocument succeeded", "id", d.ID, "docType", d.DocType)
	return nil
}

func (s *PostgresStore) CountDocuments() (map[models.DocType]int, error) {
	rows, err := s.db.Query(`SELECT doc_type, COUNT(*) FROM documents GROUP BY doc_type`)
	if err != nil {
		slog.Error("PostgresStore CountDocuments query failed", "error", err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DocType]int)
	for rows.Next() {
		var dt models.DocType
		var n int
		if err := rows.Scan(&dt, &n); err != nil {
			slog.Error("PostgresStore CountDocuments scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan document count: %w", err)
		}
		counts[dt] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document counts: %w", err)
	}
	return counts, nil
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	return s.db.Close()
}
