// Package mirror populates the asset archive in the background.
// Cache misses enqueue a job on a Redis stream; a worker downloads
// the asset bytes and uploads them to the archive so later requests
// for the same file hit the cache.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamKey is the Redis stream for mirror jobs.
	StreamKey = "stream:mirror_jobs"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:mirror_jobs:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 10000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 200 * time.Millisecond
)

// Job describes one asset to mirror into the archive.
type Job struct {
	DownloadID string `json:"did"`           // download row id
	UserID     string `json:"uid"`           // requesting user
	Filename   string `json:"fn"`            // archive filename
	SourceLink string `json:"src"`           // where to fetch bytes from
	EnqueuedAt int64  `json:"t"`             // Unix milliseconds
}

// Publisher enqueues mirror jobs to the Redis stream.
type Publisher struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewPublisher creates a new mirror job publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		redis:  client,
		logger: logger.With("component", "mirror.publisher"),
	}
}

// Publish adds a mirror job to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, job Job) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(job Job) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, job)
		if err != nil {
			p.logger.Warn("failed to publish mirror job",
				"download_id", job.DownloadID,
				"filename", job.Filename,
				"error", err,
			)
			return
		}

		p.logger.Debug("mirror job published",
			"download_id", job.DownloadID,
			"stream_id", streamID,
		)
	}()
}

// ValidateJob rejects jobs that cannot possibly be processed.
func ValidateJob(job Job) error {
	if job.Filename == "" {
		return fmt.Errorf("filename is empty")
	}
	if job.SourceLink == "" {
		return fmt.Errorf("source link is empty")
	}
	return nil
}
