package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/unispace/internal/metrics"
	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/utils"
)

type PendingOccupancies interface {
	ListPendingNotification(ctx context.Context, now time.Time, limit int, skip []uint64) ([]model.Occupancy, error)
}

type OccupancyNotifier interface {
	CreateForOccupancy(ctx context.Context, occupancyID uint64, now time.Time) (model.Notification, bool, error)
}

// Pusher delivers a stored notification to the user's live sessions.
type Pusher interface {
	Push(ctx context.Context, userID uint64, n model.Notification)
}

// Dispatcher notifies the owner of every occupancy that has started. The
// notification row and the occupancy's notified mark are written together,
// so each occupancy yields one notification however often this runs.
type Dispatcher struct {
	pending  PendingOccupancies
	notifier OccupancyNotifier
	pusher   Pusher
	metrics  *metrics.Metrics
	opts     Options
	now      func() time.Time
	running  sync.Mutex
}

func NewDispatcher(pending PendingOccupancies, notifier OccupancyNotifier, pusher Pusher, m *metrics.Metrics, opts Options) *Dispatcher {
	if m == nil {
		m = metrics.NewDiscard()
	}
	return &Dispatcher{
		pending: pending, notifier: notifier, pusher: pusher, metrics: m, opts: opts.withDefaults(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Run(ctx context.Context) (model.DispatchReport, error) {
	if !d.running.TryLock() {
		return model.DispatchReport{}, nil
	}
	defer d.running.Unlock()

	started := time.Now()
	report, err := d.run(ctx)
	d.metrics.JobDuration.WithLabelValues("notify").Observe(time.Since(started).Seconds())
	d.metrics.JobRuns.WithLabelValues("notify", resultLabel(err)).Inc()

	utils.Logger.WithFields(logrus.Fields{
		"job": "notify", "batches": report.Batches, "notified": report.Notified,
		"skipped": report.Skipped, "failed": report.Failed,
	}).Info("notification run finished")
	return report, err
}

func (d *Dispatcher) run(ctx context.Context) (model.DispatchReport, error) {
	var (
		report   model.DispatchReport
		leftover []uint64
	)
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		now := d.now()
		batch, err := d.pending.ListPendingNotification(ctx, now, d.opts.BatchSize, leftover)
		if err != nil {
			return report, fmt.Errorf("list started occupancies: %w", err)
		}
		if len(batch) == 0 {
			return report, nil
		}
		report.Batches++

		for _, o := range batch {
			report.Scanned++
			n, created, err := d.notifier.CreateForOccupancy(ctx, o.ID, now)
			switch {
			case err != nil:
				report.Failed++
				leftover = append(leftover, o.ID)
				d.metrics.JobItems.WithLabelValues("notify", "failed").Inc()
				utils.Logger.WithError(err).WithField("occupancy_id", o.ID).Error("notify occupancy failed")
			case !created:
				report.Skipped++
				leftover = append(leftover, o.ID)
				d.metrics.JobItems.WithLabelValues("notify", "skipped").Inc()
			default:
				report.Notified++
				d.metrics.JobItems.WithLabelValues("notify", "notified").Inc()
				if d.pusher != nil {
					d.pusher.Push(ctx, n.UserID, n)
				}
			}
		}

		if len(batch) < d.opts.BatchSize {
			return report, nil
		}
		if !pause(ctx, d.opts.Pause) {
			return report, ctx.Err()
		}
	}
}
