package stats

import (
	"context"
	"fmt"
	"testing"

	"standup-tracker/internal/db"
	"standup-tracker/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func TestFetchCountsPerAuthor(t *testing.T) {
	gdb := setupTestDB(t)

	for i, uid := range []string{"u1", "u1", "u2"} {
		row := model.Standup{ID: fmt.Sprintf("e%d", i), UserID: uid, Yesterday: "a", Today: "b"}
		require.NoError(t, gdb.Create(&row).Error)
	}

	rows := NewAggregator(gdb).Fetch(context.Background())
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.UserID] = r.TotalStandups
	}
	require.Equal(t, map[string]int{"u1": 2, "u2": 1}, counts)
}

func TestFetchFailureDegradesToEmpty(t *testing.T) {
	gdb := setupTestDB(t)
	require.NoError(t, gdb.Exec("DROP VIEW user_standup_stats").Error)

	rows := NewAggregator(gdb).Fetch(context.Background())
	require.Empty(t, rows, "aggregate failure must not propagate")
}
