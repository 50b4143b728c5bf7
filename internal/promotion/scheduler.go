package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Sweeper is the job the scheduler runs.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Scheduler runs the sweep in-process on a cron schedule with seconds
// precision. Overlapping runs are skipped.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
}

func NewScheduler(sweeper Sweeper, schedule string) *Scheduler {
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  time.Minute,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RunNow); err != nil {
		return fmt.Errorf("failed to schedule waitlist sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	log.Info("Waitlist sweep scheduled", "schedule", s.schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("Waitlist sweep scheduler stopped")
}

func (s *Scheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	promoted, err := s.sweeper.Sweep(ctx)
	if err != nil {
		log.Error("Scheduled waitlist sweep failed", "error", err)
		return
	}
	if promoted > 0 {
		log.Info("Scheduled waitlist sweep passed offers on", "promoted", promoted)
	}
}
