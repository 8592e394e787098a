package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linkdrop/linkdrop/internal/logger"
)

// downloadJob is an authorized link whose transient status message is already posted.
type downloadJob struct {
	Event  Event
	URL    string
	Status MessageRef
}

// WorkerPool runs message handling and downloads on separate bounded sets of
// goroutines, so a slow download never stalls command handling.
type WorkerPool struct {
	bot                 *Bot
	messageQueue        chan Event
	downloadQueue       chan downloadJob
	messageWorkerCount  int
	downloadWorkerCount int
	stopTimeout         time.Duration

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex
}

type WorkerPoolConfig struct {
	MessageWorkers    int // goroutines routing inbound messages
	DownloadWorkers   int // concurrent downloads
	MessageQueueSize  int
	DownloadQueueSize int
	StopTimeout       time.Duration
}

func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MessageWorkers:    8,
		DownloadWorkers:   2,
		MessageQueueSize:  200,
		DownloadQueueSize: 50,
		StopTimeout:       30 * time.Second,
	}
}

func NewWorkerPool(bot *Bot, config WorkerPoolConfig) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if config.MessageWorkers < 1 {
		config.MessageWorkers = 1
	}
	if config.DownloadWorkers < 1 {
		config.DownloadWorkers = 1
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = 30 * time.Second
	}

	return &WorkerPool{
		bot:                 bot,
		messageQueue:        make(chan Event, config.MessageQueueSize),
		downloadQueue:       make(chan downloadJob, config.DownloadQueueSize),
		messageWorkerCount:  config.MessageWorkers,
		downloadWorkerCount: config.DownloadWorkers,
		stopTimeout:         config.StopTimeout,
		ctx:                 ctx,
		cancel:              cancel,
	}
}

func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return fmt.Errorf("worker pool already started")
	}
	if wp.ctx.Err() != nil {
		return fmt.Errorf("worker pool already stopped")
	}

	logger.Info("Starting worker pool", map[string]interface{}{
		"message_workers":     wp.messageWorkerCount,
		"download_workers":    wp.downloadWorkerCount,
		"message_queue_size":  cap(wp.messageQueue),
		"download_queue_size": cap(wp.downloadQueue),
	})

	for i := 0; i < wp.messageWorkerCount; i++ {
		wp.wg.Add(1)
		go wp.messageWorker(i)
	}
	for i := 0; i < wp.downloadWorkerCount; i++ {
		wp.wg.Add(1)
		go wp.downloadWorker(i)
	}

	wp.started = true
	logger.InfoMsg("Worker pool started successfully")
	return nil
}

// Stop cancels in-flight work and waits for the workers to exit.
func (wp *WorkerPool) Stop() error {
	// cancel first so blocked submitters release the read lock
	wp.cancel()

	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool not started")
	}
	wp.started = false
	wp.mu.Unlock()

	logger.InfoMsg("Stopping worker pool...")

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	var stopErr error
	select {
	case <-done:
		logger.InfoMsg("Worker pool stopped gracefully")
	case <-time.After(wp.stopTimeout):
		logger.Warn("Worker pool shutdown timed out", nil)
		stopErr = fmt.Errorf("worker pool shutdown timed out")
	}

	wp.abandonQueuedDownloads()
	return stopErr
}

// abandonQueuedDownloads gives every job left in the download queue a final
// status. No submitter can enqueue once started is false.
func (wp *WorkerPool) abandonQueuedDownloads() {
	for {
		select {
		case job := <-wp.downloadQueue:
			wp.bot.abandonDownload(job)
		default:
			return
		}
	}
}

// SubmitMessage queues ev for routing, dropping it when the queue is full.
func (wp *WorkerPool) SubmitMessage(ctx context.Context, ev Event) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	select {
	case wp.messageQueue <- ev:
		logger.Debug("Message queued for processing", map[string]interface{}{
			"chat_id":    ev.ChatID,
			"queue_size": len(wp.messageQueue),
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	case <-ctx.Done():
		return ctx.Err()
	default:
		logger.Warn("Message queue full, dropping message", map[string]interface{}{
			"chat_id": ev.ChatID,
			"user_id": ev.UserID,
		})
		return fmt.Errorf("message queue full")
	}
}

// SubmitDownload queues job, waiting for room rather than dropping an
// already-authorized request.
func (wp *WorkerPool) SubmitDownload(ctx context.Context, job downloadJob) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	select {
	case wp.downloadQueue <- job:
		logger.Debug("Download queued", map[string]interface{}{
			"chat_id":    job.Event.ChatID,
			"queue_size": len(wp.downloadQueue),
		})
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) messageWorker(workerID int) {
	defer wp.wg.Done()

	for {
		select {
		case ev := <-wp.messageQueue:
			wp.processMessage(ev, workerID)
		case <-wp.ctx.Done():
			logger.Debug("Message worker stopping", map[string]interface{}{
				"worker_id": workerID,
			})
			return
		}
	}
}

func (wp *WorkerPool) downloadWorker(workerID int) {
	defer wp.wg.Done()

	for {
		select {
		case job := <-wp.downloadQueue:
			wp.processDownload(job, workerID)
		case <-wp.ctx.Done():
			logger.Debug("Download worker stopping", map[string]interface{}{
				"worker_id": workerID,
			})
			return
		}
	}
}

func (wp *WorkerPool) processMessage(ev Event, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Message worker panic recovered", map[string]interface{}{
				"worker_id": workerID,
				"panic":     r,
				"chat_id":   ev.ChatID,
			})
		}
	}()

	startTime := time.Now()

	if err := wp.bot.handleEvent(wp.ctx, ev); err != nil {
		logger.Error("Error processing message", map[string]interface{}{
			"worker_id": workerID,
			"error":     err.Error(),
			"chat_id":   ev.ChatID,
			"user_id":   ev.UserID,
		})
		wp.bot.sendErrorResponse(ev, err)
	}

	logger.Debug("Message processed", map[string]interface{}{
		"worker_id": workerID,
		"chat_id":   ev.ChatID,
		"duration":  time.Since(startTime).String(),
	})
}

func (wp *WorkerPool) processDownload(job downloadJob, workerID int) {
	startTime := time.Now()

	wp.bot.runDownload(wp.ctx, job)

	logger.Debug("Download processed", map[string]interface{}{
		"worker_id": workerID,
		"chat_id":   job.Event.ChatID,
		"duration":  time.Since(startTime).String(),
	})
}

func (wp *WorkerPool) GetStats() map[string]interface{} {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return map[string]interface{}{
		"started":                 wp.started,
		"message_queue_size":      len(wp.messageQueue),
		"download_queue_size":     len(wp.downloadQueue),
		"message_queue_capacity":  cap(wp.messageQueue),
		"download_queue_capacity": cap(wp.downloadQueue),
		"message_workers":         wp.messageWorkerCount,
		"download_workers":        wp.downloadWorkerCount,
	}
}
