package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"storepay/internal/config"
)

// OrderExpirer fails orders that never received a payment result.
type OrderExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler manages all cron jobs.
type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	expirer OrderExpirer
	logger  *zap.Logger
}

// New creates a new cron scheduler.
func New(cfg *config.Config, expirer OrderExpirer, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		cfg:     cfg,
		expirer: expirer,
		logger:  logger,
	}
}

// Start registers and starts all cron jobs.
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler...")

	// Expire stale pending orders - every 5 minutes. This is the server
	// half of the awaiting-result timeout: a checkout whose window died
	// without posting back eventually fails here and its points return.
	s.cron.AddFunc("0 */5 * * * *", func() {
		s.logger.Debug("Running: expire stale orders")
		s.expireStaleOrders()
	})

	s.cron.Start()
}

// Stop stops the scheduler and returns a context that is done once
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) expireStaleOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-s.cfg.App.OrderExpiry)
	count, err := s.expirer.ExpireStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("stale order expiry failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("expired stale orders", zap.Int("count", count))
	}
}
