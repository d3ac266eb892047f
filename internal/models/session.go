// Package models defines conversation session state structures.
package models

import "time"

// Phase is the coarse position of a session within its flow.
type Phase string

const (
	// PhaseCollecting means the session is waiting for the current step's input.
	PhaseCollecting Phase = "collecting"
	// PhaseConfirm means the review screen is shown and the session awaits
	// confirm / edit / restart.
	PhaseConfirm Phase = "awaiting_confirmation"
	// PhaseEditChoice means the field-picker is shown and the session awaits
	// the choice of which field to re-collect.
	PhaseEditChoice Phase = "awaiting_edit_choice"
)

// Session is the per-chat conversation state for one in-progress document.
//
// Invariant: EditMode and EditField are either both unset or both set. When
// set, CurrentStep still names a normal flow step so the per-step handling
// applies unchanged, but step completion routes to the review screen instead
// of the step's linear successor.
type Session struct {
	ChatID      int64     `json:"chat_id"`
	DocType     DocType   `json:"doc_type"`
	Phase       Phase     `json:"phase"`
	CurrentStep string    `json:"current_step,omitempty"`
	Record      Record    `json:"record"`
	EditMode    bool      `json:"edit_mode,omitempty"`
	EditField   FieldKey  `json:"edit_field,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeginEdit enters edit mode for a single field.
func (s *Session) BeginEdit(field FieldKey) {
	s.EditMode = true
	s.EditField = field
}

// EndEdit leaves edit mode.
func (s *Session) EndEdit() {
	s.EditMode = false
	s.EditField = ""
}

// IsEditing reports whether the session is re-collecting the given field.
func (s *Session) IsEditing(field FieldKey) bool {
	return s.EditMode && s.EditField == field
}
