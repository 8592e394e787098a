package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/linkdrop/linkdrop/internal/consts"
	"github.com/linkdrop/linkdrop/internal/entitlement"
	"github.com/linkdrop/linkdrop/internal/logger"
	"github.com/linkdrop/linkdrop/internal/media"
	"github.com/linkdrop/linkdrop/internal/metrics"
)

var errShuttingDown = errors.New("bot is shutting down")

// handleLink consumes quota and queues the download. Nothing is fetched for
// a denied request or when the usage record could not be saved.
func (b *Bot) handleLink(ctx context.Context, ev Event, url string) error {
	b.metrics.RecordCommand(consts.KindLink)

	decision, err := b.entitlement.Authorize(ctx, ev.UserID)
	if err != nil {
		logger.Error("Failed to authorize request", map[string]interface{}{
			"error":   err.Error(),
			"user_id": ev.UserID,
		})
		b.reply(ev, MsgStorageFailure)
		return nil
	}
	b.metrics.RecordAuthorization(decision.String())

	if decision == entitlement.Denied {
		b.reply(ev, MsgLimitReached)
		return nil
	}

	status, err := b.messenger.SendText(ev.ChatID, ev.MessageID, MsgDownloading)
	if err != nil {
		return fmt.Errorf("failed to send status message: %w", err)
	}

	job := downloadJob{Event: ev, URL: url, Status: status}
	if err := b.workerPool.SubmitDownload(ctx, job); err != nil {
		logger.Error("Failed to submit download", map[string]interface{}{
			"error":   err.Error(),
			"user_id": ev.UserID,
		})
		b.editStatus(status, fmt.Sprintf(MsgErrorTemplate, err))
		b.metrics.RecordDownload(metrics.OutcomeError)
	}
	return nil
}

// runDownload drives one job to completion, rewriting the status message
// with whatever went wrong.
func (b *Bot) runDownload(ctx context.Context, job downloadJob) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Download panic recovered", map[string]interface{}{
				"panic":   r,
				"chat_id": job.Event.ChatID,
				"url":     job.URL,
			})
			b.editStatus(job.Status, fmt.Sprintf(MsgErrorTemplate, r))
			b.metrics.RecordDownload(metrics.OutcomeError)
		}
	}()

	if err := b.deliver(ctx, job); err != nil {
		logger.Error("Download delivery failed", map[string]interface{}{
			"error":   err.Error(),
			"chat_id": job.Event.ChatID,
			"url":     job.URL,
		})
		b.editStatus(job.Status, fmt.Sprintf(MsgErrorTemplate, err))
		b.metrics.RecordDownload(metrics.OutcomeError)
	}
}

// deliver returns an error only for failures not already reported in the
// status message.
func (b *Bot) deliver(ctx context.Context, job downloadJob) error {
	artifact, err := b.fetch(ctx, job.URL)
	if err == nil && artifact == nil {
		err = media.ErrNoArtifact
	}

	if errors.Is(err, media.ErrNoArtifact) {
		logger.Warn("Download produced no file", map[string]interface{}{
			"url": job.URL,
		})
		b.editStatus(job.Status, MsgDownloadFailed)
		b.metrics.RecordDownload(metrics.OutcomeNoFile)
		return nil
	}
	if err != nil {
		logger.Warn("Download failed", map[string]interface{}{
			"error": err.Error(),
			"url":   job.URL,
		})
		b.editStatus(job.Status, fmt.Sprintf(MsgDownloadFailedTemplate, err))
		b.metrics.RecordDownload(metrics.OutcomeFailed)
		return nil
	}
	defer removeArtifact(artifact)

	if artifact.Size > b.config.MaxFileSizeBytes {
		logger.Info("Artifact exceeds size ceiling", map[string]interface{}{
			"size":  artifact.Size,
			"limit": b.config.MaxFileSizeBytes,
			"url":   job.URL,
		})
		b.editStatus(job.Status, MsgFileTooLarge)
		b.metrics.RecordDownload(metrics.OutcomeTooLarge)
		return nil
	}

	b.editStatus(job.Status, MsgUploading)

	if err := b.messenger.SendFile(job.Event.ChatID, job.Event.MessageID, artifact.Path, artifact.Name); err != nil {
		return err
	}

	if err := b.messenger.DeleteMessage(job.Status); err != nil {
		logger.Warn("Failed to delete status message", map[string]interface{}{
			"error":      err.Error(),
			"chat_id":    job.Status.ChatID,
			"message_id": job.Status.MessageID,
		})
	}

	b.metrics.RecordDownload(metrics.OutcomeDelivered)
	b.metrics.RecordDelivered(artifact.Size)

	logger.Info("Delivered download", map[string]interface{}{
		"user_id": job.Event.UserID,
		"file":    artifact.Name,
		"size":    artifact.Size,
	})
	return nil
}

// abandonDownload closes out a queued job that never reached a worker.
func (b *Bot) abandonDownload(job downloadJob) {
	logger.Warn("Dropping queued download on shutdown", map[string]interface{}{
		"chat_id": job.Event.ChatID,
		"user_id": job.Event.UserID,
		"url":     job.URL,
	})
	b.editStatus(job.Status, fmt.Sprintf(MsgErrorTemplate, errShuttingDown))
	b.metrics.RecordDownload(metrics.OutcomeError)
}

func (b *Bot) fetch(ctx context.Context, url string) (*media.Artifact, error) {
	defer b.metrics.DownloadStarted()()
	return b.fetcher.Fetch(ctx, url)
}

func removeArtifact(a *media.Artifact) {
	if err := a.Remove(); err != nil {
		logger.Warn("Failed to remove artifact", map[string]interface{}{
			"error": err.Error(),
			"path":  a.Path,
		})
	}
}
