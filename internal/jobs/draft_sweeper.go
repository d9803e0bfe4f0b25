package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xovato/agency-backend/internal/metrics"
)

// DraftSource is the draft registry the sweeper prunes.
type DraftSource interface {
	Sweep(idle time.Duration) int
	Len() int
}

// DraftSweeper periodically discards wizard drafts nobody has touched for idleTTL.
type DraftSweeper struct {
	logger   *zap.Logger
	drafts   DraftSource
	idleTTL  time.Duration
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewDraftSweeper(logger *zap.Logger, drafts DraftSource, idleTTL, interval time.Duration) *DraftSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &DraftSweeper{
		logger:   logger,
		drafts:   drafts,
		idleTTL:  idleTTL,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is done or Stop is called.
func (s *DraftSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("draft_sweeper.started",
		zap.Duration("interval", s.interval),
		zap.Duration("idle_ttl", s.idleTTL))

	for {
		select {
		case <-ticker.C:
			s.runOnce()
		case <-s.stopCh:
			s.logger.Info("draft_sweeper.stopped", zap.String("reason", "manual stop"))
			return
		case <-ctx.Done():
			s.logger.Info("draft_sweeper.stopped", zap.String("reason", "context canceled"))
			return
		}
	}
}

// Stop halts the sweeper. It is safe to call more than once.
func (s *DraftSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *DraftSweeper) runOnce() int {
	start := time.Now()
	removed := s.drafts.Sweep(s.idleTTL)
	metrics.SetLastSweep("draft_sweeper", time.Now())

	if removed > 0 {
		s.logger.Info("draft_sweeper.swept",
			zap.Int("removed", removed),
			zap.Int("remaining", s.drafts.Len()),
			zap.Duration("duration", time.Since(start)))
	}
	return removed
}
