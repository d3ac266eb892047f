// Package store provides storage backends for DocForge.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/DocForge/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is a
// file path; a missing parent directory is created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveSession(session models.Session) error {
	recordJSON, err := json.Marshal(session.Record)
	if err != nil {
		slog.Error("SQLiteStore SaveSession JSON marshal failed", "error", err, "chatID", session.ChatID)
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (chat_id, doc_type, phase, current_step, record, edit_mode, edit_field, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ChatID, session.DocType, session.Phase, session.CurrentStep,
		string(recordJSON), session.EditMode, session.EditField,
		session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "chatID", session.ChatID)
		return fmt.Errorf("failed to save session for chat %d: %w", session.ChatID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "chatID", session.ChatID, "phase", session.Phase)
	return nil
}

func (s *SQLiteStore) GetSession(chatID int64) (*models.Session, error) {
	var session models.Session
	var recordJSON string
	err := s.db.QueryRow(`
		SELECT chat_id, doc_type, phase, current_step, record, edit_mode, edit_field, created_at, updated_at
		FROM sessions WHERE chat_id = ?`, chatID).Scan(
		&session.ChatID, &session.DocType, &session.Phase, &session.CurrentStep,
		&recordJSON, &session.EditMode, &session.EditField,
		&session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetSession not found", "chatID", chatID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to load session for chat %d: %w", chatID, err)
	}

	session.Record = models.NewRecord()
	if recordJSON != "" {
		if err := json.Unmarshal([]byte(recordJSON), &session.Record); err != nil {
			slog.Error("SQLiteStore GetSession JSON unmarshal failed", "error", err, "chatID", chatID)
			return nil, fmt.Errorf("failed to decode record for chat %d: %w", chatID, err)
		}
	}
	slog.Debug("SQLiteStore GetSession found", "chatID", chatID, "phase", session.Phase)
	return &session, nil
}

func (s *SQLiteStore) DeleteSession(chatID int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE chat_id = ?`, chatID)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to delete session for chat %d: %w", chatID, err)
	}
	slog.Debug("SQLiteStore DeleteSession succeeded", "chatID", chatID)
	return nil
}

func (s *SQLiteStore) CountSessions() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		slog.Error("SQLiteStore CountSessions failed", "error", err)
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSetting failed", "error", err, "key", key)
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		slog.Error("SQLiteStore SetSetting failed", "error", err, "key", key)
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	slog.Debug("SQLiteStore SetSetting succeeded", "key", key)
	return nil
}

func (s *SQLiteStore) AddDocument(d models.GeneratedDocument) error {
	_, err := s.db.Exec(`
		INSERT INTO documents (id, chat_id, user_id, username, doc_type, client_name, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ChatID, d.UserID, d.Username, d.DocType, d.ClientName, d.Address, d.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddDocument failed", "error", err, "id", d.ID)
		return fmt.Errorf("failed to insert document %s: %w", d.ID, err)
	}
	slog.Debug("SQLiteStore AddDocument succeeded", "id", d.ID, "docType", d.DocType)
	return nil
}

func (s *SQLiteStore) CountDocuments() (map[models.DocType]int, error) {
	rows, err := s.db.Query(`SELECT doc_type, COUNT(*) FROM documents GROUP BY doc_type`)
	if err != nil {
		slog.Error("SQLiteStore CountDocuments query failed", "error", err)
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.DocType]int)
	for rows.Next() {
		var dt models.DocType
		var n int
		if err := rows.Scan(&dt, &n); err != nil {
			slog.Error("SQLiteStore CountDocuments scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan document count: %w", err)
		}
		counts[dt] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate document counts: %w", err)
	}
	return counts, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
