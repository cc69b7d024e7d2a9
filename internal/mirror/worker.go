package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/assetgate/assetgate/internal/notify"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "mirror_workers"

	// DefaultBatchSize is the max jobs fetched per read. Jobs are
	// processed one at a time; a batch only amortizes the XREADGROUP.
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxRetries is the max attempts per job.
	DefaultMaxRetries = 3

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending
	// messages. Uploads can take minutes, so this is generous.
	DefaultClaimIdle = 10 * time.Minute
)

// Archiver uploads asset bytes into the archive. Implemented by
// the archive service.
type Archiver interface {
	Store(ctx context.Context, sourceLink, filename string) (string, error)
}

// Worker consumes mirror jobs from the Redis stream.
type Worker struct {
	redis         *redis.Client
	archiver      Archiver
	notifier      *notify.Notifier
	logger        *slog.Logger
	consumerID    string
	batchSize     int
	blockTimeout  time.Duration
	maxRetries    int
	claimInterval time.Duration
	claimIdle     time.Duration
	claimStartID  string
	lastClaim     time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a new mirror worker.
func NewWorker(client *redis.Client, archiver Archiver, notifier *notify.Notifier, logger *slog.Logger, consumerID string) *Worker {
	return &Worker{
		redis:         client,
		archiver:      archiver,
		notifier:      notifier,
		logger:        logger.With("component", "mirror.worker", "consumer_id", consumerID),
		consumerID:    consumerID,
		batchSize:     DefaultBatchSize,
		blockTimeout:  DefaultBlockTimeout,
		maxRetries:    DefaultMaxRetries,
		claimInterval: DefaultClaimInterval,
		claimIdle:     DefaultClaimIdle,
		claimStartID:  "0-0",
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	// Ensure consumer group exists
	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("mirror worker started")

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()

		if draining {
			w.logger.Info("mirror worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("mirror worker stopping")
			return ctx.Err()
		default:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Shutdown gracefully stops the worker, completing any in-flight job.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("mirror worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("mirror worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("mirror worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

// ensureConsumerGroup creates the consumer group if it doesn't exist.
func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

// processOnce reads and processes one read's worth of jobs.
func (w *Worker) processOnce(ctx context.Context) error {
	claimed, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}

	messages := claimed
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	if len(messages) == 0 {
		return nil
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.processMessage(ctx, msg)
	}

	return nil
}

// processMessage handles a single job end to end. The message is
// always ACKed: transient failures are retried in-process, and
// permanent failures are dead-lettered and reported to the notifier.
func (w *Worker) processMessage(ctx context.Context, msg redis.XMessage) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		w.deadLetterMessage(ctx, msg, "invalid_format", "payload field missing or not a string")
		w.ackMessage(ctx, msg.ID)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		w.deadLetterMessage(ctx, msg, "unmarshal_error", err.Error())
		w.ackMessage(ctx, msg.ID)
		return
	}
	if err := ValidateJob(job); err != nil {
		w.deadLetterMessage(ctx, msg, "validation_error", err.Error())
		w.ackMessage(ctx, msg.ID)
		return
	}

	if err := w.mirrorWithRetry(ctx, job); err != nil {
		w.logger.Error("mirror job failed after retries",
			"download_id", job.DownloadID,
			"filename", job.Filename,
			"error", err,
		)
		w.deadLetterMessage(ctx, msg, "mirror_failed", err.Error())
		w.notifier.Notify(notify.EventMirrorFailed,
			fmt.Sprintf("failed to mirror %q for user %s: %v", job.Filename, job.UserID, err))
	}

	w.ackMessage(ctx, msg.ID)
}

// mirrorWithRetry attempts the upload with exponential backoff.
func (w *Worker) mirrorWithRetry(ctx context.Context, job Job) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		start := time.Now()
		fileID, err := w.archiver.Store(ctx, job.SourceLink, job.Filename)
		if err == nil {
			w.logger.Info("asset mirrored",
				"download_id", job.DownloadID,
				"filename", job.Filename,
				"file_id", fileID,
				"duration_ms", float64(time.Since(start).Microseconds())/1000,
				"lag_ms", time.Since(time.UnixMilli(job.EnqueuedAt)).Milliseconds(),
			)
			return nil
		}

		lastErr = err
		backoff := time.Duration(1<<attempt) * time.Second
		w.logger.Warn("mirror attempt failed, retrying",
			"download_id", job.DownloadID,
			"attempt", attempt,
			"backoff_seconds", backoff.Seconds(),
			"error", err,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// maybeClaimPending checks for stuck pending messages and reclaims them.
func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}

	w.lastClaim = time.Now()
	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

// readBatch reads messages from the stream using XREADGROUP.
func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if err == redis.Nil || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return streams[0].Messages, nil
}

// deadLetterMessage moves a poison or failed message to the dead-letter queue.
func (w *Worker) deadLetterMessage(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("dead-lettering mirror message",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	_, err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 1000, // Keep last 1k failed jobs
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"original_stream":  StreamKey,
			"reason":           reason,
			"detail":           detail,
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()

	if err != nil {
		w.logger.Error("failed to write to dead-letter queue",
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// ackMessage acknowledges a processed message.
func (w *Worker) ackMessage(ctx context.Context, messageID string) {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, messageID).Err(); err != nil {
		w.logger.Warn("failed to ack message", "message_id", messageID, "error", err)
	}
}

// SetBatchSize overrides the default batch size.
func (w *Worker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetMaxRetries overrides the default per-job attempt count.
func (w *Worker) SetMaxRetries(retries int) {
	if retries > 0 {
		w.maxRetries = retries
	}
}

// SetClaimInterval overrides the default pending-claim interval.
func (w *Worker) SetClaimInterval(interval time.Duration) {
	if interval > 0 {
		w.claimInterval = interval
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// isConsumerGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isConsumerGroupExistsError(err error) bool {
	return err != nil && (err.Error() == "BUSYGROUP Consumer Group name already exists" ||
		err.Error() == "BUSYGROUP")
}
