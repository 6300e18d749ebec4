// Package jobs holds the periodic batch work: promoting due reservations
// into occupancies and notifying users whose occupancy has started.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/unispace/internal/metrics"
	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/queue"
	"github.com/iliyamo/unispace/internal/repository"
	"github.com/iliyamo/unispace/internal/utils"
)

// Options bound one run: rows per batch and the pause between full batches.
type Options struct {
	BatchSize int
	Pause     time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize < 1 {
		o.BatchSize = 10
	}
	if o.Pause < 0 {
		o.Pause = 0
	}
	return o
}

type DueReservations interface {
	ListDue(ctx context.Context, now time.Time, limit int, skip []uint64) ([]model.Reservation, error)
	Promote(ctx context.Context, id uint64, now time.Time) (repository.PromoteOutcome, model.Occupancy, error)
}

type EventPublisher interface {
	PublishPromoted(ctx context.Context, ev queue.ReservationPromotedEvent) error
}

// PromotionJob converts every reservation whose start time has passed into
// an occupancy. Each reservation is promoted in its own transaction, so a
// failing row is logged and skipped without stopping the run.
type PromotionJob struct {
	store   DueReservations
	events  EventPublisher
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
	running sync.Mutex
}

func NewPromotionJob(store DueReservations, events EventPublisher, m *metrics.Metrics, opts Options) *PromotionJob {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if m == nil {
		m = metrics.NewDiscard()
	}
	return &PromotionJob{
		store: store, events: events, metrics: m, opts: opts.withDefaults(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Run makes one pass. A call that arrives while another pass is in
// progress returns immediately with Coalesced set.
func (j *PromotionJob) Run(ctx context.Context) (model.PromotionReport, error) {
	if !j.running.TryLock() {
		return model.PromotionReport{Coalesced: true}, nil
	}
	defer j.running.Unlock()

	started := time.Now()
	report, err := j.run(ctx)
	j.metrics.JobDuration.WithLabelValues("promotion").Observe(time.Since(started).Seconds())
	j.metrics.JobRuns.WithLabelValues("promotion", resultLabel(err)).Inc()

	utils.Logger.WithFields(logrus.Fields{
		"job": "promotion", "batches": report.Batches, "promoted": report.Promoted,
		"deduplicated": report.Deduplicated, "skipped": report.Skipped, "failed": report.Failed,
	}).Info("promotion run finished")
	return report, err
}

func (j *PromotionJob) run(ctx context.Context) (model.PromotionReport, error) {
	var (
		report model.PromotionReport
		// rows this run could not remove; excluded from later batches
		leftover []uint64
	)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		now := j.now()
		batch, err := j.store.ListDue(ctx, now, j.opts.BatchSize, leftover)
		if err != nil {
			return report, fmt.Errorf("list due reservations: %w", err)
		}
		if len(batch) == 0 {
			return report, nil
		}
		report.Batches++

		for _, r := range batch {
			report.Scanned++
			outcome, occ, err := j.store.Promote(ctx, r.ID, now)
			if err != nil {
				report.Failed++
				leftover = append(leftover, r.ID)
				j.metrics.JobItems.WithLabelValues("promotion", "failed").Inc()
				utils.Logger.WithError(err).WithField("reservation_id", r.ID).Error("promote reservation failed")
				continue
			}
			j.metrics.JobItems.WithLabelValues("promotion", outcome.String()).Inc()
			switch outcome {
			case repository.Promoted:
				report.Promoted++
				j.publish(ctx, r, occ, now)
			case repository.PromoteDeduplicated:
				report.Deduplicated++
			default:
				report.Skipped++
				leftover = append(leftover, r.ID)
			}
		}

		if len(batch) < j.opts.BatchSize {
			return report, nil
		}
		if !pause(ctx, j.opts.Pause) {
			return report, ctx.Err()
		}
	}
}

func (j *PromotionJob) publish(ctx context.Context, r model.Reservation, occ model.Occupancy, now time.Time) {
	ev := queue.ReservationPromotedEvent{
		ReservationID: r.ID,
		OccupancyID:   occ.ID,
		ClassroomID:   occ.ClassroomID,
		UserID:        occ.UserID,
		StartsAt:      occ.StartTime.UTC().Format(time.RFC3339),
		EndsAt:        occ.EndTime.UTC().Format(time.RFC3339),
		PromotedAt:    now.UTC().Format(time.RFC3339),
	}
	if err := j.events.PublishPromoted(ctx, ev); err != nil {
		utils.Logger.WithError(err).WithField("reservation_id", r.ID).Warn("publish promotion event failed")
	}
}

func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
