package sweeper

import (
	"context"
	"time"

	"github.com/reliefhub/stock-service/pkg/logger"
	"go.uber.org/zap"
)

type Refresher interface {
	RefreshExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweeper periodically reclassifies entries whose batches expired since their last write.
type Sweeper struct {
	uc       Refresher
	interval time.Duration
	logger   logger.ZapLogger
	now      func() time.Time
}

func New(uc Refresher, interval time.Duration, log logger.ZapLogger) *Sweeper {
	return &Sweeper{
		uc:       uc,
		interval: interval,
		logger:   log,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled. A non-positive interval returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.logger.Info("Starting expiry sweeper", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping expiry sweeper")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.uc.RefreshExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("expiry sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.logger.Debug("expiry sweep done", zap.Int("refreshed", n))
	}
}
