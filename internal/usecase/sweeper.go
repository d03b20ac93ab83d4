package usecase

import (
	"context"
	"time"

	"ground-booking/internal/data/repository"
	"ground-booking/pkg/clock"
	"ground-booking/pkg/metrics"

	"go.uber.org/zap"
)

// HoldSweeper clears expired holds across all partitions on an interval.
// Every read and write path sweeps its own partition lazily, so this only
// keeps the table tidy.
type HoldSweeper struct {
	repo     repository.BookingRepository
	clock    clock.Clock
	interval time.Duration
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewHoldSweeper(repo repository.BookingRepository, clk clock.Clock, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *HoldSweeper {
	return &HoldSweeper{
		repo:     repo,
		clock:    clk,
		interval: interval,
		metrics:  m,
		log:      log.With(zap.String("worker", "hold_sweeper")),
	}
}

// Run blocks until ctx is done. A zero interval disables the sweeper.
func (w *HoldSweeper) Run(ctx context.Context) error {
	if w.interval <= 0 {
		w.log.Info("Hold sweeper disabled")
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Hold sweeper started", zap.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Hold sweeper stopped")
			return nil
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

func (w *HoldSweeper) SweepOnce(ctx context.Context) int64 {
	n, err := w.repo.SweepAllExpiredHolds(ctx, w.clock.Now())
	if err != nil {
		w.log.Error("Hold sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		if w.metrics != nil {
			w.metrics.HoldsSwept.Add(float64(n))
		}
		w.log.Debug("Expired holds swept", zap.Int64("count", n))
	}
	return n
}
