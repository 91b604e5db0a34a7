package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/viturectl/internal/errors"
	"codeberg.org/mutker/viturectl/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopHistoryRecorder struct{}

// NewHistory returns a recorder backed by SQLite, or a no-op recorder when
// history is disabled.
func NewHistory(cfg Config, log logger.Logger) (HistoryRecorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Metrics history disabled, using no-op recorder")
		return &noopHistoryRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create metrics repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Dur("interval", cfg.Interval).
		Msg("Metrics history initialized")

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(snapshot); err != nil {
			return errFactory.Wrap(ErrMetricsCollection, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrServiceShutdown, err)
	}
	return nil
}

func (*noopHistoryRecorder) Record(_ context.Context, _ *Snapshot) error {
	return nil
}

func (*noopHistoryRecorder) Close() error {
	return nil
}

// RunHistory records a snapshot of c every interval until ctx is cancelled.
// A final snapshot is recorded on the way out.
func RunHistory(ctx context.Context, c *Collector, rec HistoryRecorder, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := rec.Record(context.Background(), c.Snapshot()); err != nil {
				logger.Debug().Err(err).Msg("Failed to record final metrics snapshot")
			}
			return nil
		case <-ticker.C:
			if err := rec.Record(ctx, c.Snapshot()); err != nil {
				logger.Debug().Err(err).Msg("Failed to record metrics snapshot")
			}
		}
	}
}
