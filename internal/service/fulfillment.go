package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/assetgate/assetgate/internal/mirror"
	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/notify"
	"github.com/assetgate/assetgate/internal/repository"
	"github.com/assetgate/assetgate/internal/resolver"
)

const (
	minSourceURLLength = 3
	maxSourceURLLength = 300
)

// markupPattern matches HTML-style tags so submitted URLs can be
// stripped of markup before storage.
var markupPattern = regexp.MustCompile(`<[^>]*>`)

// CacheLookup is the dedup cache consulted before any mirror traffic.
type CacheLookup interface {
	Lookup(ctx context.Context, filename string) (*model.CachedFile, error)
}

// JobPublisher schedules detached mirror population jobs.
type JobPublisher interface {
	PublishAsync(job mirror.Job)
}

// FulfillmentService drives one download request from intake to its
// terminal state: validation, duplicate slot, resolution, quota
// consumption, dedup lookup and the atomic completion write.
type FulfillmentService struct {
	repo      *repository.Repository
	resolvers *resolver.Registry
	archive   CacheLookup
	publisher JobPublisher
	notifier  *notify.Notifier
	logger    *slog.Logger
}

// NewFulfillmentService creates a new FulfillmentService.
func NewFulfillmentService(
	repo *repository.Repository,
	resolvers *resolver.Registry,
	arc CacheLookup,
	publisher JobPublisher,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *FulfillmentService {
	return &FulfillmentService{
		repo:      repo,
		resolvers: resolvers,
		archive:   arc,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With("component", "service.fulfillment"),
	}
}

// Fulfill turns a submitted marketplace URL into a downloadable link,
// consuming one voucher unit. On success the returned download is in
// its completed state. Quota exhaustion and upstream failures leave
// the created request waiting so it stays discoverable.
func (s *FulfillmentService) Fulfill(ctx context.Context, userID, sourceURL string) (*model.Download, error) {
	cleaned, err := s.validateSourceURL(sourceURL)
	if err != nil {
		return nil, err
	}

	// Reject early when an active request already holds the slot.
	if existing, err := s.repo.FindWaitingDownload(ctx, userID, cleaned); err == nil {
		return nil, &DuplicateError{Existing: existing}
	} else if !errors.Is(err, repository.ErrDownloadNotFound) {
		return nil, err
	}

	// The waiting row is created before any external call, so a crash
	// mid-fulfillment leaves discoverable state instead of silent loss.
	download := &model.Download{
		ID:        model.NewID(),
		UserID:    userID,
		SourceURL: cleaned,
		Filename:  model.PlaceholderFilename,
		Status:    model.DownloadStatusWaiting,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateDownload(ctx, download); err != nil {
		if errors.Is(err, repository.ErrDownloadExists) {
			// Lost the race: surface the winner's current status.
			if existing, ferr := s.repo.FindWaitingDownload(ctx, userID, cleaned); ferr == nil {
				return nil, &DuplicateError{Existing: existing}
			}
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create download: %w", err)
	}

	res, err := s.resolvers.Select(cleaned)
	if err != nil {
		return nil, err
	}
	asset, err := res.Resolve(ctx, cleaned)
	if err != nil {
		s.logger.Warn("resolution failed",
			"download_id", download.ID,
			"source_url", cleaned,
			"error", err,
		)
		return nil, err
	}

	// Quota pre-check before the dedup lookup. The authoritative
	// decrement happens inside the completion transaction; this only
	// avoids pointless archive traffic for exhausted users.
	vouchers, err := s.repo.ListVouchersForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(vouchers) == 0 {
		return nil, ErrQuotaExhausted
	}

	resultLink, populated, err := s.chooseResult(ctx, download.ID, userID, asset)
	if err != nil {
		return nil, err
	}

	commit, err := s.repo.CompleteFulfillment(ctx, download.ID, userID, asset.Filename, resultLink)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNoEligibleVoucher):
			return nil, ErrQuotaExhausted
		case errors.Is(err, repository.ErrDownloadNotWaiting):
			// A concurrent call finished this slot first.
			if existing, ferr := s.repo.GetDownloadByID(ctx, download.ID); ferr == nil {
				return nil, &DuplicateError{Existing: existing}
			}
			return nil, ErrDuplicate
		}
		return nil, err
	}

	download.Filename = asset.Filename
	download.ResultLink = resultLink
	download.Status = model.DownloadStatusCompleted

	s.logger.Info("fulfillment completed",
		"download_id", download.ID,
		"user_id", userID,
		"filename", asset.Filename,
		"voucher_code", commit.VoucherCode,
		"voucher_remaining", commit.Remaining,
		"voucher_retired", commit.Retired,
		"cache_populated", populated,
	)
	s.notifier.Notify(notify.EventSystemMessage,
		fmt.Sprintf("fulfilled %q for user %s", asset.Filename, userID))

	return download, nil
}

// chooseResult consults the dedup cache and picks the link returned to
// the caller. On a miss with a fetchable source link it schedules the
// detached mirror job; the job's outcome never affects this response.
func (s *FulfillmentService) chooseResult(ctx context.Context, downloadID, userID string, asset *resolver.Asset) (string, bool, error) {
	cached, err := s.archive.Lookup(ctx, asset.Filename)
	if err != nil {
		return "", false, err
	}
	if cached != nil {
		return cached.DirectLink, false, nil
	}

	if asset.DirectLink == resolver.PendingDirectLink {
		// No fetchable source link; the archive has to be populated
		// out of band.
		s.notifier.Notify(notify.EventSystemMessage,
			fmt.Sprintf("manual upload needed for %q (user %s)", asset.Filename, userID))
		return asset.DirectLink, false, nil
	}

	s.publisher.PublishAsync(mirror.Job{
		DownloadID: downloadID,
		UserID:     userID,
		Filename:   asset.Filename,
		SourceLink: asset.DirectLink,
		EnqueuedAt: time.Now().UnixMilli(),
	})
	return asset.DirectLink, true, nil
}

// validateSourceURL sanitizes and validates a submitted URL, returning
// the cleaned value that gets stored.
func (s *FulfillmentService) validateSourceURL(raw string) (string, error) {
	cleaned := strings.TrimSpace(markupPattern.ReplaceAllString(raw, ""))

	if len(cleaned) < minSourceURLLength || len(cleaned) > maxSourceURLLength {
		return "", ErrInvalidInput
	}

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return "", ErrInvalidInput
	}
	if parsed.Scheme != "https" || parsed.Host == "" {
		return "", ErrInvalidInput
	}

	if !s.resolvers.Supported(cleaned) {
		return "", ErrInvalidInput
	}

	return cleaned, nil
}
