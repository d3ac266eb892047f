// Package bot wires the transport, the flow engine and the stores together:
// it owns the update loop, command routing and per-chat dispatch.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"sync"

	"github.com/BTreeMap/DocForge/internal/flow"
	"github.com/BTreeMap/DocForge/internal/messaging"
	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/report"
	"github.com/BTreeMap/DocForge/internal/store"
)

// MailboxBufferSize bounds the per-chat event queue.
const MailboxBufferSize = 32

// Engine is the conversation surface the bot drives.
type Engine interface {
	StartFlow(ctx context.Context, ev models.Response, dt models.DocType) error
	Handle(ctx context.Context, ev models.Response) (bool, error)
	Done(ctx context.Context, ev models.Response) (bool, error)
	Cancel(ctx context.Context, ev models.Response) error
}

// Opts holds configuration options for the bot.
type Opts struct {
	AdminIDs []int64
}

// Option defines a configuration option for the bot.
type Option func(*Opts)

// WithAdminIDs sets the user allow-list for admin commands.
func WithAdminIDs(ids []int64) Option {
	return func(o *Opts) { o.AdminIDs = ids }
}

// Bot routes inbound operator events. Events for one chat are processed
// sequentially through a per-chat mailbox; distinct chats run concurrently.
type Bot struct {
	svc      messaging.Service
	engine   Engine
	store    store.Store
	reporter *report.Reporter
	adminIDs map[int64]bool

	mu        sync.Mutex
	mailboxes map[int64]chan models.Response
	wg        sync.WaitGroup
}

// New creates a Bot over its collaborators.
func New(svc messaging.Service, engine Engine, st store.Store, reporter *report.Reporter, opts ...Option) *Bot {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	admins := make(map[int64]bool, len(cfg.AdminIDs))
	for _, id := range cfg.AdminIDs {
		admins[id] = true
	}
	slog.Debug("Creating bot", "admin_count", len(admins))
	return &Bot{
		svc:       svc,
		engine:    engine,
		store:     st,
		reporter:  reporter,
		adminIDs:  admins,
		mailboxes: make(map[int64]chan models.Response),
	}
}

// Run starts the transport and processes events until the context is
// cancelled or the transport's channel closes.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.svc.Start(ctx); err != nil {
		return err
	}
	b.reporter.BotStarted(ctx)
	slog.Info("Bot running")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Bot stopping due to context cancellation")
			b.shutdown()
			return nil
		case ev, ok := <-b.svc.Responses():
			if !ok {
				slog.Info("Bot stopping, transport channel closed")
				b.shutdown()
				return nil
			}
			b.dispatch(ctx, ev)
		}
	}
}

// dispatch enqueues the event into its chat's mailbox, creating the worker on
// first contact.
func (b *Bot) dispatch(ctx context.Context, ev models.Response) {
	b.mu.Lock()
	mailbox, ok := b.mailboxes[ev.ChatID]
	if !ok {
		mailbox = make(chan models.Response, MailboxBufferSize)
		b.mailboxes[ev.ChatID] = mailbox
		b.wg.Add(1)
		go b.chatWorker(ctx, ev.ChatID, mailbox)
	}
	b.mu.Unlock()

	select {
	case mailbox <- ev:
	default:
		slog.Warn("Bot mailbox full, dropping event", "chatID", ev.ChatID)
	}
}

func (b *Bot) chatWorker(ctx context.Context, chatID int64, mailbox <-chan models.Response) {
	defer b.wg.Done()
	slog.Debug("Bot chat worker started", "chatID", chatID)
	for ev := range mailbox {
		b.handleEvent(ctx, ev)
	}
	slog.Debug("Bot chat worker stopped", "chatID", chatID)
}

func (b *Bot) shutdown() {
	b.mu.Lock()
	for _, mailbox := range b.mailboxes {
		close(mailbox)
	}
	b.mailboxes = make(map[int64]chan models.Response)
	b.mu.Unlock()
	b.wg.Wait()
	if err := b.svc.Stop(); err != nil {
		slog.Error("Bot transport stop failed", "error", err)
	}
}

// handleEvent routes a single inbound event: commands first, then the active
// session, then the main menu.
func (b *Bot) handleEvent(ctx context.Context, ev models.Response) {
	if ev.Command != "" {
		b.handleCommand(ctx, ev)
		return
	}

	handled, err := b.engine.Handle(ctx, ev)
	if err != nil {
		slog.Error("Bot engine handling failed", "error", err, "chatID", ev.ChatID)
		b.notifyFailure(ctx, ev.ChatID)
		return
	}
	if handled {
		return
	}
	b.handleMenuChoice(ctx, ev)
}

// handleMenuChoice starts a flow for a document-type button, or re-shows the
// menu for anything else.
func (b *Bot) handleMenuChoice(ctx context.Context, ev models.Response) {
	var dt models.DocType
	switch ev.Text {
	case flow.MainMenuContract:
		dt = models.DocTypeContract
	case flow.MainMenuAct:
		dt = models.DocTypeAct
	case flow.MainMenuSupplement:
		dt = models.DocTypeSupplement
	default:
		if err := b.svc.SendMessage(ctx, ev.ChatID, "Выберите документ:", flow.MainKeyboard); err != nil {
			slog.Error("Bot menu prompt failed", "error", err, "chatID", ev.ChatID)
		}
		return
	}

	if err := b.engine.StartFlow(ctx, ev, dt); err != nil {
		slog.Error("Bot failed to start flow", "error", err, "chatID", ev.ChatID, "docType", dt)
		b.notifyFailure(ctx, ev.ChatID)
	}
}

func (b *Bot) handleCommand(ctx context.Context, ev models.Response) {
	slog.Debug("Bot command received", "chatID", ev.ChatID, "command", ev.Command)
	switch ev.Command {
	case "start":
		if ev.ChatType == "private" {
			b.reporter.UserStarted(ctx, ev)
		}
		b.cancelFlow(ctx, ev)
	case "cancel":
		b.cancelFlow(ctx, ev)
	case "done":
		applied, err := b.engine.Done(ctx, ev)
		if err != nil {
			slog.Error("Bot done failed", "error", err, "chatID", ev.ChatID)
			b.notifyFailure(ctx, ev.ChatID)
			return
		}
		if !applied {
			b.send(ctx, ev.ChatID, "Команда /done доступна только при вводе текста доп. соглашения.")
		}
	case "set_topic_starts":
		b.handleSetTopic(ctx, ev, store.SettingStartsThreadID, "Топик для отчётов о стартах сохранён.")
	case "set_topic_files":
		b.handleSetTopic(ctx, ev, store.SettingFilesThreadID, "Топик для готовых файлов сохранён.")
	default:
		b.send(ctx, ev.ChatID, "Неизвестная команда.")
	}
}

func (b *Bot) cancelFlow(ctx context.Context, ev models.Response) {
	if err := b.engine.Cancel(ctx, ev); err != nil {
		slog.Error("Bot cancel failed", "error", err, "chatID", ev.ChatID)
		b.notifyFailure(ctx, ev.ChatID)
	}
}

// handleSetTopic persists the report chat and the issuing topic's thread as
// the routing destination for the given setting key. Admin-only, and only
// meaningful inside a supergroup forum topic.
func (b *Bot) handleSetTopic(ctx context.Context, ev models.Response, key, confirmation string) {
	admin, err := b.isAdmin(ctx, ev)
	if err != nil {
		slog.Error("Bot admin check failed", "error", err, "chatID", ev.ChatID, "userID", ev.UserID)
		b.notifyFailure(ctx, ev.ChatID)
		return
	}
	if !admin {
		b.send(ctx, ev.ChatID, "Команда доступна только администраторам.")
		return
	}
	if ev.ChatType != "supergroup" {
		b.send(ctx, ev.ChatID, "Команду нужно отправить в топике супергруппы.")
		return
	}
	if ev.ThreadID == 0 {
		b.send(ctx, ev.ChatID, "Команду нужно отправить внутри темы.")
		return
	}

	if err := b.store.SetSetting(store.SettingReportChatID, strconv.FormatInt(ev.ChatID, 10)); err != nil {
		slog.Error("Bot failed to persist report chat", "error", err, "chatID", ev.ChatID)
		b.notifyFailure(ctx, ev.ChatID)
		return
	}
	if err := b.store.SetSetting(key, strconv.FormatInt(ev.ThreadID, 10)); err != nil {
		slog.Error("Bot failed to persist report thread", "error", err, "chatID", ev.ChatID, "key", key)
		b.notifyFailure(ctx, ev.ChatID)
		return
	}
	slog.Info("Bot report routing updated", "chatID", ev.ChatID, "key", key, "threadID", ev.ThreadID)
	b.send(ctx, ev.ChatID, confirmation)
}

// isAdmin accepts either the configured allow-list or chat admin status.
func (b *Bot) isAdmin(ctx context.Context, ev models.Response) (bool, error) {
	if b.adminIDs[ev.UserID] {
		return true, nil
	}
	if ev.ChatType == "private" {
		return false, nil
	}
	return b.svc.IsChatAdmin(ctx, ev.ChatID, ev.UserID)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.svc.SendMessage(ctx, chatID, text, models.KeyboardSpec{}); err != nil {
		slog.Error("Bot send failed", "error", err, "chatID", chatID)
	}
}

func (b *Bot) notifyFailure(ctx context.Context, chatID int64) {
	b.send(ctx, chatID, "Произошла ошибка. Попробуйте ещё раз.")
}
