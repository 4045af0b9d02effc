package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler archives the daily report at a fixed wall-clock time.
type Scheduler struct {
	svc       *Service
	scheduler *gocron.Scheduler
	job       *gocron.Job
}

// StartDailyArchive schedules Archive every day at "HH:MM" in loc and starts
// the scheduler in the background.
func (s *Service) StartDailyArchive(at string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	sched := gocron.NewScheduler(loc)
	job, err := sched.Every(1).Day().At(at).Do(s.runScheduledArchive)
	if err != nil {
		return nil, fmt.Errorf("scheduling report archive at %q: %w", at, err)
	}
	sched.StartAsync()
	s.logger.Info().Str("at", at).Time("next_run", job.NextRun()).Msg("daily report archive scheduled")
	return &Scheduler{svc: s, scheduler: sched, job: job}, nil
}

func (s *Service) runScheduledArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if _, err := s.Archive(ctx, s.store.Now()); err != nil {
		s.logger.Error().Err(err).Msg("scheduled report archive failed")
	}
}

// NextRun reports when the archive will next run.
func (sc *Scheduler) NextRun() time.Time { return sc.job.NextRun() }

func (sc *Scheduler) Stop() {
	sc.scheduler.Stop()
	sc.svc.logger.Info().Msg("daily report archive stopped")
}
