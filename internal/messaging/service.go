// Package messaging defines the pluggable chat transport abstraction.
package messaging

import (
	"context"

	"github.com/BTreeMap/DocForge/internal/models"
)

// Service defines a pluggable message delivery abstraction.
// It supports sending messages and documents, and provides a channel of
// inbound operator events.
type Service interface {
	// SendMessage sends a text message with an optional reply keyboard.
	SendMessage(ctx context.Context, chatID int64, text string, kb models.KeyboardSpec) error

	// SendMessageToThread sends a text message into a forum topic thread.
	// A zero threadID targets the chat's general stream.
	SendMessageToThread(ctx context.Context, chatID, threadID int64, text string) error

	// SendDocument uploads a file from the local filesystem with a caption.
	SendDocument(ctx context.Context, chatID int64, filePath, caption string, kb models.KeyboardSpec) error

	// SendDocumentToThread uploads a file into a forum topic thread.
	SendDocumentToThread(ctx context.Context, chatID, threadID int64, filePath, caption string) error

	// IsChatAdmin reports whether the user administers the chat.
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)

	// Start begins any background processing (e.g., polling for updates).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Responses returns a channel of incoming operator messages.
	Responses() <-chan models.Response
}
