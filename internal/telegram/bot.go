package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/entitlement"
	"github.com/linkdrop/linkdrop/internal/logger"
	"github.com/linkdrop/linkdrop/internal/media"
	"github.com/linkdrop/linkdrop/internal/metrics"
)

// Event is an inbound text message reduced to what the router needs.
type Event struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Username  string
	Text      string
}

type Bot struct {
	api         *tgbotapi.BotAPI // nil when running against a fake messenger
	messenger   Messenger
	entitlement *entitlement.Service
	fetcher     media.Fetcher
	metrics     *metrics.Collector
	config      *config.Config

	// username is the bot's own handle; commands addressed to another bot are ignored
	username string

	workerPool *WorkerPool
}

func NewBot(cfg *config.Config, ent *entitlement.Service, fetcher media.Fetcher, collector *metrics.Collector) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	b := newBot(cfg, newAPIMessenger(api), ent, fetcher, collector)
	b.api = api
	b.username = api.Self.UserName
	return b, nil
}

func newBot(cfg *config.Config, messenger Messenger, ent *entitlement.Service, fetcher media.Fetcher, collector *metrics.Collector) *Bot {
	return &Bot{
		messenger:   messenger,
		entitlement: ent,
		fetcher:     fetcher,
		metrics:     collector,
		config:      cfg,
	}
}

// Start runs the long-polling loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return fmt.Errorf("bot has no Telegram API client")
	}

	logger.Info("Bot authorized and starting", map[string]interface{}{
		"username":         b.api.Self.UserName,
		"admin_configured": b.config.HasAdmin(),
		"free_daily_limit": b.config.FreeDailyLimit,
		"max_file_bytes":   b.config.MaxFileSizeBytes,
	})

	if err := b.startWorkers(); err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatchUpdate(ctx, update)
		}
	}
}

func (b *Bot) startWorkers() error {
	cfg := DefaultWorkerPoolConfig()
	cfg.DownloadWorkers = b.config.MaxConcurrentDownloads

	b.workerPool = NewWorkerPool(b, cfg)
	if err := b.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}
	return nil
}

func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update) {
	ev, ok := eventFromMessage(update.Message)
	if !ok {
		logger.Debug("Update has no usable message, skipping", map[string]interface{}{
			"update_id": update.UpdateID,
		})
		return
	}

	logger.Debug("Received message from user", map[string]interface{}{
		"username": ev.Username,
		"user_id":  ev.UserID,
		"chat_id":  ev.ChatID,
	})

	if err := b.workerPool.SubmitMessage(ctx, ev); err != nil {
		logger.Error("Failed to submit message to worker pool", map[string]interface{}{
			"error":   err.Error(),
			"user_id": ev.UserID,
			"chat_id": ev.ChatID,
		})
		b.reply(ev, MsgBusy)
	}
}

func eventFromMessage(message *tgbotapi.Message) (Event, bool) {
	// channel posts carry no sender
	if message == nil || message.From == nil || message.Chat == nil {
		return Event{}, false
	}
	return Event{
		ChatID:    message.Chat.ID,
		UserID:    message.From.ID,
		MessageID: message.MessageID,
		Username:  message.From.UserName,
		Text:      message.Text,
	}, true
}

// Stop shuts down the worker pool and the transport.
func (b *Bot) Stop() error {
	logger.InfoMsg("Stopping bot...")

	if b.workerPool != nil {
		if err := b.workerPool.Stop(); err != nil {
			logger.Error("Error stopping worker pool", map[string]interface{}{
				"error": err.Error(),
			})
			return err
		}
	}
	if m, ok := b.messenger.(*apiMessenger); ok {
		m.close()
	}

	logger.InfoMsg("Bot stopped successfully")
	return nil
}

// reply answers ev in its chat; failures are logged, not returned.
func (b *Bot) reply(ev Event, text string) {
	if _, err := b.messenger.SendText(ev.ChatID, ev.MessageID, text); err != nil {
		logger.Error("Failed to send message", map[string]interface{}{
			"error":   err.Error(),
			"chat_id": ev.ChatID,
		})
	}
}

func (b *Bot) editStatus(ref MessageRef, text string) {
	if err := b.messenger.EditText(ref, text); err != nil {
		logger.Error("Failed to edit message", map[string]interface{}{
			"error":      err.Error(),
			"chat_id":    ref.ChatID,
			"message_id": ref.MessageID,
		})
	}
}

func (b *Bot) sendErrorResponse(ev Event, err error) {
	b.reply(ev, fmt.Sprintf("❌ Error: %v", err))
}
