package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	JobCloseApplications = "close-applications"
	JobCleanupDocuments  = "cleanup-orphan-documents"
	JobRetryPromotions   = "retry-profile-promotions"
)

type DeadlineCloser interface {
	CloseIfPastDeadline(ctx context.Context, now time.Time) (bool, error)
}

type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

type PromotionRetrier interface {
	RetryPendingPromotions(ctx context.Context) (int, error)
}

func CloseApplications(schedule string, settings DeadlineCloser) Job {
	return NewFuncJob(JobCloseApplications, schedule, func(ctx context.Context) error {
		closed, err := settings.CloseIfPastDeadline(ctx, time.Now())
		if err != nil {
			return err
		}
		if closed {
			log.Info().Msg("application intake closed after deadline")
		}
		return nil
	})
}

// CleanupDocuments removes uploads no application references once they are
// older than grace.
func CleanupDocuments(schedule string, documents OrphanCleaner, grace time.Duration) Job {
	return NewFuncJob(JobCleanupDocuments, schedule, func(ctx context.Context) error {
		n, err := documents.CleanupOrphans(ctx, grace)
		if n > 0 {
			log.Info().Int("removed", n).Msg("removed orphan documents")
		}
		return err
	})
}

func RetryPromotions(schedule string, applications PromotionRetrier) Job {
	return NewFuncJob(JobRetryPromotions, schedule, func(ctx context.Context) error {
		n, err := applications.RetryPendingPromotions(ctx)
		if n > 0 {
			log.Info().Int("promoted", n).Msg("completed pending profile promotions")
		}
		return err
	})
}
