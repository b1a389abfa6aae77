package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"anoa.com/scholarhub/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 5 * time.Minute

var ErrUnknownJob = errors.New("unknown job")

type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs: make([]Job, 0),
	}
}

// Register adds a job and schedules it when it has a cron expression. A bad expression
// is returned and the job stays available for manual runs.
func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	expr := job.Schedule()
	if expr == "" {
		log.Info().Str("job", job.Name()).Msg("registered on-demand job")
		return nil
	}

	if _, err := s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_ = s.run(ctx, job)
	}); err != nil {
		return fmt.Errorf("schedule job %s with %q: %w", job.Name(), expr, err)
	}

	log.Info().Str("job", job.Name()).Str("schedule", expr).Msg("scheduled job")
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	start := time.Now()
	err := job.Execute(ctx)
	if err != nil {
		metrics.JobRuns.WithLabelValues(job.Name(), "error").Inc()
		log.Error().Err(err).Str("job", job.Name()).Dur("took", time.Since(start)).Msg("job failed")
		return err
	}
	metrics.JobRuns.WithLabelValues(job.Name(), "ok").Inc()
	log.Debug().Str("job", job.Name()).Dur("took", time.Since(start)).Msg("job completed")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.jobs)).Msg("job scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("job scheduler stopped before running jobs finished")
		return
	}
	log.Info().Msg("job scheduler stopped")
}

func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

func (s *Scheduler) Names() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
