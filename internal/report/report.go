// Package report posts fire-and-forget audit notifications to a configured
// report chat. Delivery failures are logged and never surface to the
// conversation.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/store"
)

// Sender is the outbound transport surface the reporter needs.
type Sender interface {
	SendMessageToThread(ctx context.Context, chatID, threadID int64, text string) error
	SendDocumentToThread(ctx context.Context, chatID, threadID int64, filePath, caption string) error
}

// Settings provides read access to the persisted routing configuration.
type Settings interface {
	GetSetting(key string) (string, error)
}

// Opts holds environment overrides for the report routing. A non-zero value
// takes precedence over the stored setting.
type Opts struct {
	ChatID         int64
	StartsThreadID int64
	FilesThreadID  int64
}

// Option defines a configuration option for the reporter.
type Option func(*Opts)

// WithChatID overrides the report chat.
func WithChatID(chatID int64) Option {
	return func(o *Opts) { o.ChatID = chatID }
}

// WithStartsThreadID overrides the flow-start topic thread.
func WithStartsThreadID(threadID int64) Option {
	return func(o *Opts) { o.StartsThreadID = threadID }
}

// WithFilesThreadID overrides the generated-file topic thread.
func WithFilesThreadID(threadID int64) Option {
	return func(o *Opts) { o.FilesThreadID = threadID }
}

// Reporter resolves routing per call so admin topic changes take effect
// without a restart.
type Reporter struct {
	sender    Sender
	settings  Settings
	overrides Opts
}

// NewReporter creates a Reporter over the given transport and settings source.
func NewReporter(sender Sender, settings Settings, opts ...Option) *Reporter {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating reporter",
		"chat_override", cfg.ChatID != 0,
		"starts_override", cfg.StartsThreadID != 0,
		"files_override", cfg.FilesThreadID != 0)
	return &Reporter{sender: sender, settings: settings, overrides: cfg}
}

// BotStarted announces process startup.
func (r *Reporter) BotStarted(ctx context.Context) {
	chatID, threadID, ok := r.route(r.overrides.StartsThreadID, store.SettingStartsThreadID)
	if !ok {
		return
	}
	if err := r.sender.SendMessageToThread(ctx, chatID, threadID, "🤖 Бот запущен."); err != nil {
		slog.Error("Reporter BotStarted delivery failed", "error", err, "chatID", chatID)
	}
}

// UserStarted announces that a user opened the bot in a private chat.
func (r *Reporter) UserStarted(ctx context.Context, ev models.Response) {
	chatID, threadID, ok := r.route(r.overrides.StartsThreadID, store.SettingStartsThreadID)
	if !ok {
		return
	}
	at := time.Now()
	if ev.Time != 0 {
		at = time.Unix(ev.Time, 0)
	}
	text := fmt.Sprintf("👤 %s (%s, ID %d) запустил бота.\n🕒 %s",
		ev.DisplayName(), ev.Handle(), ev.UserID, at.Format("02.01.2006 15:04"))
	if err := r.sender.SendMessageToThread(ctx, chatID, threadID, text); err != nil {
		slog.Error("Reporter UserStarted delivery failed", "error", err, "chatID", chatID)
		return
	}
	slog.Debug("Reporter UserStarted delivered", "chatID", chatID, "threadID", threadID, "userID", ev.UserID)
}

// FlowStarted announces that an operator began collecting a document.
func (r *Reporter) FlowStarted(ctx context.Context, ev models.Response, docLabel string) {
	chatID, threadID, ok := r.route(r.overrides.StartsThreadID, store.SettingStartsThreadID)
	if !ok {
		return
	}
	text := fmt.Sprintf("🚀 %s (%s) начал формировать: %s", ev.DisplayName(), ev.Handle(), docLabel)
	if err := r.sender.SendMessageToThread(ctx, chatID, threadID, text); err != nil {
		slog.Error("Reporter FlowStarted delivery failed", "error", err, "chatID", chatID)
		return
	}
	slog.Debug("Reporter FlowStarted delivered", "chatID", chatID, "threadID", threadID)
}

// FileGenerated forwards a generated document into the files topic.
func (r *Reporter) FileGenerated(ctx context.Context, filePath, caption string) {
	chatID, threadID, ok := r.route(r.overrides.FilesThreadID, store.SettingFilesThreadID)
	if !ok {
		return
	}
	if err := r.sender.SendDocumentToThread(ctx, chatID, threadID, filePath, caption); err != nil {
		slog.Error("Reporter FileGenerated delivery failed", "error", err, "chatID", chatID)
		return
	}
	slog.Debug("Reporter FileGenerated delivered", "chatID", chatID, "threadID", threadID)
}

// route resolves the destination chat and thread. The env override wins; the
// stored setting follows; a missing chat disables reporting for the call.
func (r *Reporter) route(threadOverride int64, threadKey string) (chatID, threadID int64, ok bool) {
	chatID = r.overrides.ChatID
	if chatID == 0 {
		chatID = r.storedInt64(store.SettingReportChatID)
	}
	if chatID == 0 {
		slog.Debug("Reporter routing not configured, skipping")
		return 0, 0, false
	}

	threadID = threadOverride
	if threadID == 0 {
		threadID = r.storedInt64(threadKey)
	}
	return chatID, threadID, true
}

func (r *Reporter) storedInt64(key string) int64 {
	raw, err := r.settings.GetSetting(key)
	if err != nil {
		slog.Error("Reporter failed to read setting", "error", err, "key", key)
		return 0
	}
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("Reporter setting is not an integer", "key", key, "value", raw)
		return 0
	}
	return parsed
}
