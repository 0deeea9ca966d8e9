package jobs

import (
	"context"

	"go.uber.org/zap"
)

type SellerStatsRefresher interface {
	RefreshSellerStats(ctx context.Context) (int, error)
}

type CacheWarmer interface {
	WarmCache(ctx context.Context) error
}

// Config holds the cron specs of the maintenance jobs. An empty spec disables the job.
type Config struct {
	SellerStatsSchedule  string
	HomepageWarmSchedule string
}

// RegisterMaintenance schedules the seller stats rollup and the homepage cache warm.
func RegisterMaintenance(s *Scheduler, cfg Config, revenue SellerStatsRefresher, homepage CacheWarmer, logger *zap.Logger) error {
	if cfg.SellerStatsSchedule != "" {
		err := s.Add(cfg.SellerStatsSchedule, "seller_stats", func(ctx context.Context) error {
			updated, err := revenue.RefreshSellerStats(ctx)
			logger.Info("seller stats job", zap.Int("updated", updated))
			return err
		})
		if err != nil {
			return err
		}
	}
	if cfg.HomepageWarmSchedule != "" {
		if err := s.Add(cfg.HomepageWarmSchedule, "homepage_warm", homepage.WarmCache); err != nil {
			return err
		}
	}
	return nil
}
