package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/unispace/internal/utils"
)

// Scheduler runs jobs on cron specs. A panicking job is recovered and a
// tick that lands while the previous run is still going is skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewScheduler(ctx context.Context) *Scheduler {
	logger := cron.PrintfLogger(utils.Logger)
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Scheduler{cron: c, ctx: ctx}
}

// Add registers run under name on a standard five-field spec.
func (s *Scheduler) Add(name, spec string, run func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := run(s.ctx); err != nil {
			utils.Logger.WithError(err).WithField("job", name).Error("scheduled job failed")
		}
	})
	return err
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop prevents new runs and blocks until running ones return or ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
