// Package telegram implements the messaging.Service transport on top of the
// Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/DocForge/internal/models"
)

// Constants for Client configuration
const (
	// DefaultPollTimeout is the long-poll timeout for getUpdates, in seconds.
	DefaultPollTimeout = 60
	// DefaultChannelBufferSize defines the buffer size for the responses channel.
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the timeout for non-blocking channel operations.
	DefaultChannelTimeout = 1 * time.Second
)

// Opts holds configuration options for the Telegram client.
type Opts struct {
	Token       string
	PollTimeout int
	Debug       bool
}

// Option defines a configuration option for the Telegram client.
type Option func(*Opts)

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithPollTimeout sets the getUpdates long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *Opts) { o.PollTimeout = seconds }
}

// WithDebug enables the underlying library's request logging.
func WithDebug(debug bool) Option {
	return func(o *Opts) { o.Debug = debug }
}

// Client is a Telegram-backed messaging service.
type Client struct {
	bot         *tgbotapi.BotAPI
	pollTimeout int
	responses   chan models.Response
	done        chan struct{}
}

// NewClient creates and authorizes a Telegram client.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{PollTimeout: DefaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewClient invoked", "token_set", cfg.Token != "", "pollTimeout", cfg.PollTimeout)

	if cfg.Token == "" {
		slog.Error("Telegram bot token not set")
		return nil, errors.New("telegram bot token not set")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		slog.Error("Failed to authorize Telegram bot", "error", err)
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	return &Client{
		bot:         bot,
		pollTimeout: cfg.PollTimeout,
		responses:   make(chan models.Response, DefaultChannelBufferSize),
		done:        make(chan struct{}),
	}, nil
}

// Start begins polling for updates in the background.
func (c *Client) Start(ctx context.Context) error {
	slog.Debug("Telegram client Start invoked")
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.pollTimeout
	updates := c.bot.GetUpdatesChan(u)
	go c.handleUpdates(ctx, updates)
	return nil
}

// Stop stops polling and closes the responses channel.
func (c *Client) Stop() error {
	slog.Info("Telegram client Stop invoked")
	c.bot.StopReceivingUpdates()
	close(c.done)
	close(c.responses)
	slog.Info("Telegram client stopped and channel closed")
	return nil
}

// Responses returns a channel of incoming operator messages.
func (c *Client) Responses() <-chan models.Response {
	return c.responses
}

// SendMessage sends an HTML-formatted text message with a reply keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb models.KeyboardSpec) error {
	slog.Debug("Telegram SendMessage invoked", "chatID", chatID, "text_length", len(text))
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup := toReplyMarkup(kb); markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := c.bot.Send(msg); err != nil {
		slog.Error("Telegram SendMessage failed", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// SendMessageToThread sends a text message into a forum topic thread.
func (c *Client) SendMessageToThread(ctx context.Context, chatID, threadID int64, text string) error {
	slog.Debug("Telegram SendMessageToThread invoked", "chatID", chatID, "threadID", threadID)
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty("text", text)
	params.AddNonEmpty("parse_mode", tgbotapi.ModeHTML)
	if _, err := c.bot.MakeRequest("sendMessage", params); err != nil {
		slog.Error("Telegram SendMessageToThread failed", "error", err, "chatID", chatID, "threadID", threadID)
		return fmt.Errorf("failed to send message to chat %d thread %d: %w", chatID, threadID, err)
	}
	return nil
}

// SendDocument uploads a local file with a caption and a reply keyboard.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filePath, caption string, kb models.KeyboardSpec) error {
	slog.Debug("Telegram SendDocument invoked", "chatID", chatID, "filePath", filePath)
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(filePath))
	doc.Caption = caption
	if markup := toReplyMarkup(kb); markup != nil {
		doc.ReplyMarkup = markup
	}
	if _, err := c.bot.Send(doc); err != nil {
		slog.Error("Telegram SendDocument failed", "error", err, "chatID", chatID, "filePath", filePath)
		return fmt.Errorf("failed to send document to chat %d: %w", chatID, err)
	}
	slog.Info("Telegram document sent", "chatID", chatID, "filePath", filePath)
	return nil
}

// SendDocumentToThread uploads a local file into a forum topic thread.
func (c *Client) SendDocumentToThread(ctx context.Context, chatID, threadID int64, filePath, caption string) error {
	slog.Debug("Telegram SendDocumentToThread invoked", "chatID", chatID, "threadID", threadID, "filePath", filePath)
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonZero64("message_thread_id", threadID)
	params.AddNonEmpty("caption", caption)
	files := []tgbotapi.RequestFile{{Name: "document", Data: tgbotapi.FilePath(filePath)}}
	if _, err := c.bot.UploadFiles("sendDocument", params, files); err != nil {
		slog.Error("Telegram SendDocumentToThread failed", "error", err, "chatID", chatID, "threadID", threadID)
		return fmt.Errorf("failed to send document to chat %d thread %d: %w", chatID, threadID, err)
	}
	slog.Info("Telegram document sent to thread", "chatID", chatID, "threadID", threadID)
	return nil
}

// IsChatAdmin reports whether the user is a creator or administrator of the chat.
func (c *Client) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		slog.Error("Telegram GetChatMember failed", "error", err, "chatID", chatID, "userID", userID)
		return false, fmt.Errorf("failed to check chat member status: %w", err)
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}

// handleUpdates converts Telegram updates into transport-neutral responses.
func (c *Client) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	slog.Debug("Telegram update handler starting")
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Telegram update handler stopping due to context cancellation")
			return
		case <-c.done:
			slog.Debug("Telegram update handler stopping")
			return
		case update, ok := <-updates:
			if !ok {
				slog.Debug("Telegram updates channel closed")
				return
			}
			if update.Message == nil {
				continue
			}
			c.handleIncomingMessage(update.Message)
		}
	}
}

// handleIncomingMessage forwards one text message into the responses channel.
func (c *Client) handleIncomingMessage(msg *tgbotapi.Message) {
	if msg.Text == "" {
		slog.Debug("Telegram ignoring non-text message", "chatID", msg.Chat.ID)
		return
	}

	response := models.Response{
		ChatID:   msg.Chat.ID,
		ChatType: msg.Chat.Type,
		Text:     msg.Text,
		ThreadID: incomingThreadID(msg),
		Time:     int64(msg.Date),
	}
	if msg.From != nil {
		response.UserID = msg.From.ID
		response.Username = msg.From.UserName
		response.FirstName = msg.From.FirstName
		response.LastName = msg.From.LastName
	}
	if msg.IsCommand() {
		response.Command = msg.Command()
	}

	select {
	case c.responses <- response:
		slog.Debug("Telegram incoming message forwarded", "chatID", response.ChatID, "command", response.Command)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("Telegram responses channel blocked, dropping message", "chatID", response.ChatID, "timeout", DefaultChannelTimeout)
	}
}

// incomingThreadID extracts the forum topic thread of a message. Messages
// posted inside a topic carry the topic's opening message as their reply
// target unless they are a genuine reply.
func incomingThreadID(msg *tgbotapi.Message) int64 {
	if msg.ReplyToMessage != nil {
		return int64(msg.ReplyToMessage.MessageID)
	}
	return 0
}

// toReplyMarkup converts a transport-neutral keyboard spec into the Telegram
// reply markup. A zero spec leaves the current keyboard untouched.
func toReplyMarkup(kb models.KeyboardSpec) interface{} {
	if kb.Remove {
		return tgbotapi.NewRemoveKeyboard(false)
	}
	if len(kb.Rows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewReplyKeyboard(rows...)
	markup.ResizeKeyboard = kb.Resize
	return markup
}
