package billing

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"polylingo/internal/domain"
)

const (
	refreshWindow    = 24 * time.Hour
	refreshBatchSize = 200
	checkTimeout     = 15 * time.Second
)

// Refresher periodically re-checks the subscription state of recently
// active users, so a pro flag flipped by the billing backend converges
// even for users who never hit an authenticated page.
type Refresher struct {
	scheduler *gocron.Scheduler
	checker   domain.SubscriptionChecker
	users     domain.UserRepository
	logger    zerolog.Logger
	interval  time.Duration
}

// NewRefresher builds a refresher running every interval.
func NewRefresher(checker domain.SubscriptionChecker, users domain.UserRepository, interval time.Duration, logger zerolog.Logger) *Refresher {
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		checker:   checker,
		users:     users,
		logger:    logger,
		interval:  interval,
	}
}

// Start schedules the refresh job and returns immediately.
func (r *Refresher) Start() {
	_, _ = r.scheduler.Every(r.interval).Do(r.refresh)
	r.scheduler.StartAsync()
}

// Stop cancels all scheduled runs.
func (r *Refresher) Stop() {
	r.scheduler.Stop()
}

func (r *Refresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	users, err := r.users.ListRecentlyActive(ctx, time.Now().Add(-refreshWindow), refreshBatchSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("billing: list active users failed")
		return
	}
	for _, u := range users {
		checkCtx, cancelCheck := context.WithTimeout(ctx, checkTimeout)
		if err := r.checker.CheckSubscription(checkCtx, u.ID); err != nil {
			r.logger.Warn().Err(err).Str("user_id", u.ID).Msg("billing: refresh failed")
		}
		cancelCheck()
	}
	r.logger.Debug().Int("users", len(users)).Msg("billing: refresh pass complete")
}
