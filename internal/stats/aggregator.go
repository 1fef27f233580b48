package stats

import (
	"context"

	"standup-tracker/internal/logger"
	"standup-tracker/internal/model"

	"gorm.io/gorm"
)

// Aggregator reads the precomputed per-author entry counts. The view is
// sourced independently of the live entry list; its numbers are never
// reconciled against loaded entries.
type Aggregator struct {
	db *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator { return &Aggregator{db: db} }

// Fetch returns the aggregate rows. Failure is non-fatal: the dashboard
// renders without stats, so errors are logged and an empty slice comes
// back.
func (a *Aggregator) Fetch(ctx context.Context) []model.StandupStat {
	var rows []model.StandupStat
	if err := a.db.WithContext(ctx).Find(&rows).Error; err != nil {
		logger.Warn("stats fetch failed", "err", err)
		return nil
	}
	return rows
}
