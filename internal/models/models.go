// Package models defines the core data structures for DocForge.
//
// It includes document type vocabulary, inbound transport events, keyboard
// specifications and audit records, which are shared across modules.
package models

import (
	"errors"
	"time"
)

// DocType identifies which document template a conversation collects fields for.
type DocType string

const (
	// DocTypeContract is a service contract.
	DocTypeContract DocType = "contract"
	// DocTypeAct is an acceptance act.
	DocTypeAct DocType = "act"
	// DocTypeSupplement is a supplementary agreement to an existing contract.
	DocTypeSupplement DocType = "supplement"
)

// DocTypeLabels maps document types to their operator-facing labels.
var DocTypeLabels = map[DocType]string{
	DocTypeContract:   "Договор",
	DocTypeAct:        "Акт",
	DocTypeSupplement: "Доп. соглашение",
}

// Error variables for better error handling and testability
var (
	ErrInvalidDocType  = errors.New("invalid document type")
	ErrUnknownField    = errors.New("field key not defined for document type")
	ErrNoSession       = errors.New("no active session for chat")
	ErrNoPredecessor   = errors.New("step has no predecessor")
	ErrRenderInFlight  = errors.New("a render is already in flight for this session")
	ErrEmptySetting    = errors.New("setting is not configured")
	ErrUnknownStep     = errors.New("step not defined for document type")
	ErrSessionConflict = errors.New("session already exists for chat")
)

// IsValidDocType checks if the given document type is supported.
func IsValidDocType(dt DocType) bool {
	switch dt {
	case DocTypeContract, DocTypeAct, DocTypeSupplement:
		return true
	default:
		return false
	}
}

// Label returns the operator-facing label for the document type.
func (dt DocType) Label() string {
	if label, ok := DocTypeLabels[dt]; ok {
		return label
	}
	return "Документ"
}

// Response represents an inbound transport event: one operator message.
type Response struct {
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	ChatType  string `json:"chat_type"` // private, group, supergroup
	ThreadID  int64  `json:"thread_id,omitempty"`
	Text      string `json:"text"`
	Command   string `json:"command,omitempty"` // set when the message is a /command
	Time      int64  `json:"time"`
}

// DisplayName returns the sender's human-readable name, or a placeholder.
func (r Response) DisplayName() string {
	name := r.FirstName
	if r.LastName != "" {
		if name != "" {
			name += " "
		}
		name += r.LastName
	}
	if name == "" {
		return "без имени"
	}
	return name
}

// Handle returns the sender's @username, or a placeholder when unset.
func (r Response) Handle() string {
	if r.Username == "" {
		return "нет username"
	}
	return "@" + r.Username
}

// KeyboardSpec is a transport-neutral reply keyboard description. Rows holds
// button labels top to bottom; Remove instructs the transport to hide any
// previously shown keyboard.
type KeyboardSpec struct {
	Rows   [][]string `json:"rows,omitempty"`
	Resize bool       `json:"resize,omitempty"`
	Remove bool       `json:"remove,omitempty"`
}

// GeneratedDocument is the audit record stored after a successful render.
type GeneratedDocument struct {
	ID         string    `json:"id"`
	ChatID     int64     `json:"chat_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	DocType    DocType   `json:"doc_type"`
	ClientName string    `json:"client_name,omitempty"`
	Address    string    `json:"address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
