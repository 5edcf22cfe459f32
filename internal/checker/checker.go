// Package checker orchestrates one check cycle: fetch raw data from
// the portal, normalize it, diff against the persisted history, tell
// the notifiers about anything new, and persist the snapshot.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"slotwatch-backend/config"
	"slotwatch-backend/internal/history"
	"slotwatch-backend/internal/metrics"
	"slotwatch-backend/internal/model"
	"slotwatch-backend/internal/parse"
	"slotwatch-backend/internal/reconcile"
	"slotwatch-backend/internal/store"
)

// Source produces one raw upstream payload per check cycle. The portal
// workflow client and the page scanner both satisfy this.
type Source interface {
	Fetch(ctx context.Context) (payload any, raw json.RawMessage, err error)
}

// Notifier files an externally visible notification for new slots.
type Notifier interface {
	Enabled() bool
	NotifyNewSlots(ctx context.Context, slots []model.Slot) (string, error)
}

// Dispatcher hands new-slot batches to the push worker pool.
type Dispatcher interface {
	Dispatch(slots []model.Slot)
}

// Summary describes the outcome of one completed check cycle.
type Summary struct {
	Source           string
	SlotsFound       int
	SkippedRecords   int
	NewCount         int
	RemovedCount     int
	UnchangedCount   int
	NotificationSent bool
	IssueURL         string
	DryRun           bool
}

// Service runs check cycles. Cycles are strictly sequential; the
// history file assumes a single writer.
type Service struct {
	cfg        *config.Config
	source     Source
	normalizer *parse.Normalizer
	history    *history.Store
	archive    store.Store // optional
	notifier   Notifier    // optional
	pool       Dispatcher  // optional
	metrics    *metrics.Metrics
	dryRun     bool
}

// NewService wires a checker. archive, notifier and pool may be nil;
// the cycle then skips those side effects.
func NewService(cfg *config.Config, source Source, hist *history.Store, archive store.Store, notifier Notifier, pool Dispatcher, m *metrics.Metrics) *Service {
	return &Service{
		cfg:        cfg,
		source:     source,
		normalizer: parse.NewNormalizer(parse.NewDateCodec(cfg.Checker.Epoch())),
		history:    hist,
		archive:    archive,
		notifier:   notifier,
		pool:       pool,
		metrics:    m,
	}
}

// SetDryRun makes cycles skip notification and persistence.
func (s *Service) SetDryRun(dry bool) {
	s.dryRun = dry
}

// Run starts the checking loop for daemon mode.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Checker.Enabled {
		log.Println("checker: disabled, not starting")
		return
	}
	log.Println("checker: starting check loop")

	if _, err := s.CheckOnce(ctx); err != nil {
		log.Printf("checker: cycle failed: %v", err)
	}

	timer := time.NewTimer(s.cfg.Checker.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("checker: shutting down")
			return
		case <-timer.C:
			if _, err := s.CheckOnce(ctx); err != nil {
				log.Printf("checker: cycle failed: %v", err)
			}
			timer.Reset(s.cfg.Checker.Interval)
		}
	}
}

// CheckOnce performs a single check cycle. A fetch failure aborts the
// cycle before any comparison or history update: "no new data
// obtained" must never masquerade as "zero slots available". A history
// write failure is returned after the summary is filled in, because a
// lost snapshot desynchronizes every later comparison.
func (s *Service) CheckOnce(ctx context.Context) (*Summary, error) {
	log.Println("checker: executing check cycle")
	startedAt := time.Now().UTC()

	payload, raw, err := s.source.Fetch(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.CheckFailed()
		}
		return nil, fmt.Errorf("no new data obtained: %w", err)
	}

	slots, stats := s.normalizer.Slots(payload)
	previous := s.history.PreviousSlots()
	res := reconcile.Diff(slots, previous)

	summary := &Summary{
		Source:         s.cfg.Checker.Source,
		SlotsFound:     len(slots),
		SkippedRecords: stats.Skipped,
		NewCount:       len(res.New),
		RemovedCount:   len(res.Removed),
		UnchangedCount: len(res.Unchanged),
		DryRun:         s.dryRun,
	}
	log.Printf("checker: %d slots found, %d new, %d removed, %d unchanged",
		summary.SlotsFound, summary.NewCount, summary.RemovedCount, summary.UnchangedCount)

	if len(res.New) > 0 {
		for _, slot := range res.New {
			log.Printf("checker: NEW slot %s", slot.DisplayString())
		}
		if s.dryRun {
			log.Println("checker: dry run, skipping notification")
		} else {
			s.announce(ctx, res.New, summary)
		}
	}

	if s.dryRun {
		log.Println("checker: dry run, skipping history update")
		return summary, nil
	}

	var keepRaw json.RawMessage
	if s.cfg.Checker.KeepRawResponse {
		keepRaw = raw
	}
	if err := s.history.Update(slots, keepRaw); err != nil {
		return summary, fmt.Errorf("persist history: %w", err)
	}

	if s.archive != nil {
		run := &model.CheckRun{
			StartedAt:    startedAt,
			Source:       summary.Source,
			SlotCount:    summary.SlotsFound,
			NewCount:     summary.NewCount,
			RemovedCount: summary.RemovedCount,
			Notified:     summary.NotificationSent,
		}
		if err := s.archive.RecordCheck(ctx, run); err != nil {
			log.Printf("checker: could not archive check run: %v", err)
		}
	}

	if s.metrics != nil {
		s.metrics.CheckSucceeded(summary.SlotsFound, summary.NewCount, summary.RemovedCount, float64(time.Now().Unix()))
	}
	return summary, nil
}

// announce fans the new slots out to the configured notifiers.
func (s *Service) announce(ctx context.Context, newSlots []model.Slot, summary *Summary) {
	if s.notifier != nil && s.notifier.Enabled() {
		url, err := s.notifier.NotifyNewSlots(ctx, newSlots)
		if err != nil {
			log.Printf("checker: notification failed: %v", err)
		} else {
			summary.NotificationSent = true
			summary.IssueURL = url
		}
	}
	if s.pool != nil {
		s.pool.Dispatch(newSlots)
	}
}
