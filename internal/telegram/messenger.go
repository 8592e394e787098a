package telegram

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/linkdrop/linkdrop/internal/logger"
)

// MessageRef identifies a message the bot sent so it can be edited or deleted later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Messenger is the chat transport used by the router and the download flow.
// replyTo of 0 sends a standalone message.
type Messenger interface {
	SendText(chatID int64, replyTo int, text string) (MessageRef, error)
	EditText(ref MessageRef, text string) error
	DeleteMessage(ref MessageRef) error
	SendFile(chatID int64, replyTo int, path, filename string) error
}

const (
	globalRateLimit  = 30 // Telegram allows ~30 messages/sec per bot
	chatRateLimit    = 1  // and ~1 message/sec per chat, with short bursts
	chatRateBurst    = 5
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepTick = time.Minute
)

// apiMessenger sends through the Bot API with a global and a per-chat limiter.
type apiMessenger struct {
	api *tgbotapi.BotAPI

	globalLimiter *rate.Limiter
	chatLimiters  map[int64]*chatLimiter
	chatMu        sync.Mutex

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func newAPIMessenger(api *tgbotapi.BotAPI) *apiMessenger {
	m := &apiMessenger{
		api:           api,
		globalLimiter: rate.NewLimiter(rate.Limit(globalRateLimit), globalRateLimit),
		chatLimiters:  make(map[int64]*chatLimiter),
		stopCleanup:   make(chan struct{}),
	}
	go m.cleanupLimiters()
	return m
}

func (m *apiMessenger) getChatLimiter(chatID int64) *rate.Limiter {
	m.chatMu.Lock()
	defer m.chatMu.Unlock()

	cl, ok := m.chatLimiters[chatID]
	if !ok {
		cl = &chatLimiter{limiter: rate.NewLimiter(rate.Limit(chatRateLimit), chatRateBurst)}
		m.chatLimiters[chatID] = cl
	}
	cl.lastUsed = time.Now()
	return cl.limiter
}

func (m *apiMessenger) cleanupLimiters() {
	ticker := time.NewTicker(limiterSweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-limiterIdleTTL)
			m.chatMu.Lock()
			for chatID, cl := range m.chatLimiters {
				if cl.lastUsed.Before(cutoff) {
					delete(m.chatLimiters, chatID)
				}
			}
			m.chatMu.Unlock()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *apiMessenger) close() {
	m.stopOnce.Do(func() { close(m.stopCleanup) })
}

func (m *apiMessenger) wait(chatID int64) error {
	if err := m.globalLimiter.Wait(context.Background()); err != nil {
		return fmt.Errorf("global rate limiter error: %w", err)
	}
	if err := m.getChatLimiter(chatID).Wait(context.Background()); err != nil {
		return fmt.Errorf("chat rate limiter error: %w", err)
	}
	return nil
}

func (m *apiMessenger) SendText(chatID int64, replyTo int, text string) (MessageRef, error) {
	if err := m.wait(chatID); err != nil {
		return MessageRef{}, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	msg.DisableWebPagePreview = true
	sent, err := m.api.Send(msg)
	if err != nil {
		return MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	return MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (m *apiMessenger) EditText(ref MessageRef, text string) error {
	if err := m.wait(ref.ChatID); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if _, err := m.api.Send(edit); err != nil {
		// editing to identical text is harmless
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

func (m *apiMessenger) DeleteMessage(ref MessageRef) error {
	if err := m.wait(ref.ChatID); err != nil {
		return err
	}

	// deleteMessage answers with a bare boolean, so Request rather than Send
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (m *apiMessenger) SendFile(chatID int64, replyTo int, path, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if err := m.wait(chatID); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileReader{Name: filename, Reader: f})
	doc.ReplyToMessageID = replyTo

	logger.Debug("Uploading document", map[string]interface{}{
		"chat_id":  chatID,
		"filename": filename,
	})
	if _, err := m.api.Send(doc); err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}
	return nil
}
