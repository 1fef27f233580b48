package db

import (
	"fmt"

	"standup-tracker/internal/model"

	"gorm.io/gorm"
)

// statsViewMySQL and statsViewSQLite define the read-only per-author
// aggregate consumed by the stats endpoint. The view is sourced
// independently of the live entry list and the two are never reconciled.
const (
	statsViewMySQL = `CREATE OR REPLACE VIEW user_standup_stats AS
SELECT user_id, COUNT(*) AS total_standups FROM standups GROUP BY user_id`

	statsViewSQLite = `CREATE VIEW IF NOT EXISTS user_standup_stats AS
SELECT user_id, COUNT(*) AS total_standups FROM standups GROUP BY user_id`
)

// Migrate creates the relational schema plus the aggregate view.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Account{}, &model.Profile{}, &model.Standup{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	view := statsViewMySQL
	if db.Dialector.Name() == "sqlite" {
		view = statsViewSQLite
	}
	if err := db.Exec(view).Error; err != nil {
		return fmt.Errorf("create stats view: %w", err)
	}
	return nil
}
