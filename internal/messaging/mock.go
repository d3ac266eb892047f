package messaging

import (
	"context"
	"sync"

	"github.com/BTreeMap/DocForge/internal/models"
)

// SentMessage records one outbound text message sent through MockService.
type SentMessage struct {
	ChatID   int64
	ThreadID int64
	Text     string
	Keyboard models.KeyboardSpec
}

// SentDocument records one outbound file sent through MockService.
type SentDocument struct {
	ChatID   int64
	ThreadID int64
	FilePath string
	Caption  string
	Keyboard models.KeyboardSpec
}

// MockService is a recording Service implementation for tests.
type MockService struct {
	mu        sync.Mutex
	messages  []SentMessage
	documents []SentDocument
	responses chan models.Response

	// SendMessageErr and SendDocumentErr, when set, are returned by the
	// corresponding send calls to simulate transport failures.
	SendMessageErr  error
	SendDocumentErr error

	// Admins lists user IDs treated as chat administrators.
	Admins map[int64]bool
}

// NewMockService creates an empty recording service.
func NewMockService() *MockService {
	return &MockService{
		responses: make(chan models.Response, 16),
		Admins:    make(map[int64]bool),
	}
}

func (m *MockService) SendMessage(ctx context.Context, chatID int64, text string, kb models.KeyboardSpec) error {
	if m.SendMessageErr != nil {
		return m.SendMessageErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, SentMessage{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

func (m *MockService) SendMessageToThread(ctx context.Context, chatID, threadID int64, text string) error {
	if m.SendMessageErr != nil {
		return m.SendMessageErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, SentMessage{ChatID: chatID, ThreadID: threadID, Text: text})
	return nil
}

func (m *MockService) SendDocument(ctx context.Context, chatID int64, filePath, caption string, kb models.KeyboardSpec) error {
	if m.SendDocumentErr != nil {
		return m.SendDocumentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, SentDocument{ChatID: chatID, FilePath: filePath, Caption: caption, Keyboard: kb})
	return nil
}

func (m *MockService) SendDocumentToThread(ctx context.Context, chatID, threadID int64, filePath, caption string) error {
	if m.SendDocumentErr != nil {
		return m.SendDocumentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, SentDocument{ChatID: chatID, ThreadID: threadID, FilePath: filePath, Caption: caption})
	return nil
}

func (m *MockService) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	return m.Admins[userID], nil
}

func (m *MockService) Start(ctx context.Context) error { return nil }

func (m *MockService) Stop() error {
	close(m.responses)
	return nil
}

func (m *MockService) Responses() <-chan models.Response {
	return m.responses
}

// Inject feeds one inbound event into the Responses channel.
func (m *MockService) Inject(ev models.Response) {
	m.responses <- ev
}

// Messages returns a snapshot of the recorded outbound text messages.
func (m *MockService) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

// Documents returns a snapshot of the recorded outbound files.
func (m *MockService) Documents() []SentDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentDocument, len(m.documents))
	copy(out, m.documents)
	return out
}

// LastMessage returns the most recent text message, or nil.
func (m *MockService) LastMessage() *SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return nil
	}
	msg := m.messages[len(m.messages)-1]
	return &msg
}

// Reset clears the recorded traffic.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.documents = nil
}
