package telegram

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/entitlement"
	"github.com/linkdrop/linkdrop/internal/media"
	"github.com/linkdrop/linkdrop/internal/metrics"
	"github.com/linkdrop/linkdrop/internal/store"
)

const (
	testAdminID = int64(42)
	testUserID  = int64(1001)
	testChatID  = int64(555)
)

type sentText struct {
	ChatID  int64
	ReplyTo int
	Text    string
}

type sentFile struct {
	ChatID   int64
	ReplyTo  int
	Path     string
	Filename string
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	texts   []sentText
	edits   map[MessageRef][]string
	deleted []MessageRef
	files   []sentFile

	sendFileErr error
	deleteErr   error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, edits: make(map[MessageRef][]string)}
}

func (m *fakeMessenger) SendText(chatID int64, replyTo int, text string) (MessageRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.texts = append(m.texts, sentText{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return MessageRef{ChatID: chatID, MessageID: m.nextID}, nil
}

func (m *fakeMessenger) EditText(ref MessageRef, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits[ref] = append(m.edits[ref], text)
	return nil
}

func (m *fakeMessenger) DeleteMessage(ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *fakeMessenger) SendFile(chatID int64, replyTo int, path, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendFileErr != nil {
		return m.sendFileErr
	}
	// the artifact must still exist while it is being uploaded
	if _, err := os.Stat(path); err != nil {
		return err
	}
	m.files = append(m.files, sentFile{ChatID: chatID, ReplyTo: replyTo, Path: path, Filename: filename})
	return nil
}

func (m *fakeMessenger) textsSent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.texts))
	for _, t := range m.texts {
		out = append(out, t.Text)
	}
	return out
}

func (m *fakeMessenger) lastText() string {
	texts := m.textsSent()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

func (m *fakeMessenger) editsFor(ref MessageRef) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.edits[ref]...)
}

func (m *fakeMessenger) filesSent() []sentFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentFile(nil), m.files...)
}

// fakeFetcher writes a file of the configured size into its own directory.
type fakeFetcher struct {
	mu      sync.Mutex
	dir     string
	size    int
	err     error
	panics  bool
	noFile  bool // report success without an artifact
	calls   int
	fetched []*media.Artifact
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*media.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.panics {
		panic("fetcher exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.noFile {
		return nil, nil
	}

	reqDir, err := os.MkdirTemp(f.dir, "req-")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(reqDir, "clip.mp4")
	if err := os.WriteFile(path, make([]byte, f.size), 0o644); err != nil {
		return nil, err
	}
	a, err := media.NewArtifact(path, reqDir)
	if err != nil {
		return nil, err
	}
	f.fetched = append(f.fetched, a)
	return a, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	bot       *Bot
	messenger *fakeMessenger
	fetcher   *fakeFetcher
	store     *store.FileStore
	ent       *entitlement.Service
	registry  *prometheus.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		TelegramBotToken:       "test_token",
		AdminUserID:            testAdminID,
		FreeDailyLimit:         3,
		MaxFileSizeBytes:       1024,
		MaxConcurrentDownloads: 1,
		BuyText:                "Contact the admin to buy Premium.",
	}

	clock := func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	ent := entitlement.NewService(st, cfg.FreeDailyLimit, entitlement.WithClock(clock))

	registry := prometheus.NewRegistry()
	messenger := newFakeMessenger()
	fetcher := &fakeFetcher{dir: t.TempDir(), size: 512}

	b := newBot(cfg, messenger, ent, fetcher, metrics.NewCollectorWithRegistry(registry))
	return &testEnv{
		bot:       b,
		messenger: messenger,
		fetcher:   fetcher,
		store:     st,
		ent:       ent,
		registry:  registry,
	}
}

// startPool runs the bot's workers for the duration of the test.
func (e *testEnv) startPool(t *testing.T) {
	t.Helper()
	cfg := DefaultWorkerPoolConfig()
	cfg.MessageWorkers = 1
	cfg.DownloadWorkers = 1
	cfg.StopTimeout = 5 * time.Second
	e.bot.workerPool = NewWorkerPool(e.bot, cfg)
	require.NoError(t, e.bot.workerPool.Start())
	t.Cleanup(func() { _ = e.bot.Stop() })
}

func userEvent(userID int64, text string) Event {
	return Event{ChatID: testChatID, UserID: userID, MessageID: 7, Username: "tester", Text: text}
}

func TestEventFromMessage(t *testing.T) {
	msg := &tgbotapi.Message{
		MessageID: 9,
		From:      &tgbotapi.User{ID: testUserID, UserName: "alice"},
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Text:      "/start",
	}

	ev, ok := eventFromMessage(msg)
	require.True(t, ok)
	assert.Equal(t, Event{ChatID: testChatID, UserID: testUserID, MessageID: 9, Username: "alice", Text: "/start"}, ev)

	_, ok = eventFromMessage(nil)
	assert.False(t, ok)

	_, ok = eventFromMessage(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: testChatID}})
	assert.False(t, ok, "channel posts have no sender")
}

func TestBot_StartWithoutAPI(t *testing.T) {
	env := newTestEnv(t)
	assert.Error(t, env.bot.Start(context.Background()))
}

func TestBot_StopWithoutPool(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.bot.Stop())
}

func TestBot_SendErrorResponse(t *testing.T) {
	env := newTestEnv(t)
	env.bot.sendErrorResponse(userEvent(testUserID, "x"), errors.New("boom"))
	assert.Equal(t, "❌ Error: boom", env.messenger.lastText())
}

func TestBot_DispatchRepliesWhenQueueFull(t *testing.T) {
	env := newTestEnv(t)
	env.bot.workerPool = NewWorkerPool(env.bot, WorkerPoolConfig{MessageQueueSize: 1})
	// accept submissions without draining the queue
	env.bot.workerPool.started = true

	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: testUserID},
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Text:      "/start",
	}}

	env.bot.dispatchUpdate(context.Background(), update)
	assert.Empty(t, env.messenger.textsSent(), "queued message gets no immediate reply")

	env.bot.dispatchUpdate(context.Background(), update)
	require.Len(t, env.messenger.texts, 1)
	assert.Equal(t, MsgBusy, env.messenger.texts[0].Text)
	assert.Equal(t, 7, env.messenger.texts[0].ReplyTo)
}
