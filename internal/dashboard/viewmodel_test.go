package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"standup-tracker/internal/db"
	"standup-tracker/internal/model"
	"standup-tracker/internal/profile"
	"standup-tracker/internal/standup"
	"standup-tracker/internal/stats"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupVM(t *testing.T, ident model.Identity) (*ViewModel, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	vm := NewViewModel(
		standup.NewRepository(gdb),
		profile.NewResolver(gdb),
		stats.NewAggregator(gdb),
		ident,
	)
	return vm, gdb
}

func seedStandup(t *testing.T, gdb *gorm.DB, id, userID string, createdAt time.Time) {
	t.Helper()
	row := model.Standup{
		ID:        id,
		UserID:    userID,
		Yesterday: "did things",
		Today:     "do things",
		CreatedAt: createdAt,
	}
	require.NoError(t, gdb.Create(&row).Error)
}

func TestLoadAttachesResolvedAndPlaceholderNames(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)

	seedStandup(t, gdb, "e1", alice.ID, t1)
	seedStandup(t, gdb, "e2", "99999999-gone", t2) // author with no profile

	require.NoError(t, vm.Load(context.Background()))
	require.False(t, vm.Loading())

	entries := vm.VisibleEntries()
	require.Len(t, entries, 2)
	require.Equal(t, "User 99999999", entries[0].AuthorName)
	require.Equal(t, "Alice", entries[1].AuthorName)

	// Load auto-provisioned the signed-in user's profile.
	var p model.Profile
	require.NoError(t, gdb.First(&p, "id = ?", alice.ID).Error)
	require.Equal(t, "Alice", p.Name)
}

func TestLoadTwiceIsIdempotentForProvisioning(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)

	seedStandup(t, gdb, "e1", alice.ID, t1)
	require.NoError(t, vm.Load(context.Background()))
	require.NoError(t, vm.Load(context.Background()))
	require.Equal(t, "", vm.LastError())
}

func TestStatsJoinWithNamesAndUnknownFallback(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)

	seedStandup(t, gdb, "e1", alice.ID, t1)
	seedStandup(t, gdb, "e2", alice.ID, t2)

	require.NoError(t, vm.Load(context.Background()))

	require.Eventually(t, func() bool { return len(vm.Stats()) == 1 }, time.Second, 5*time.Millisecond)
	got := vm.Stats()[0]
	require.Equal(t, alice.ID, got.AuthorID)
	require.Equal(t, "Alice", got.Name)
	require.Equal(t, 2, got.TotalStandups)

	// An aggregate row with no resolved name degrades, not errors.
	vm2, gdb2 := setupVM(t, alice)
	_ = gdb2
	vm2.mu.Lock()
	vm2.aggregates = []model.StandupStat{{UserID: "someone-else", TotalStandups: 7}}
	vm2.mu.Unlock()
	require.Equal(t, "Unknown User", vm2.Stats()[0].Name)
}

func TestCreateEntrySplicesWithoutRefetch(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)
	require.NoError(t, vm.Load(context.Background()))

	vm.OpenOverlay(OverlayNewEntry, "")
	entry, err := vm.CreateEntry(context.Background(), model.EntryFields{
		Yesterday: "wired the resolver",
		Today:     "dashboard state",
	})
	require.NoError(t, err)
	require.Equal(t, "Alice", entry.AuthorName)
	require.Equal(t, Overlay{}, vm.Overlay(), "overlay closes on success")

	entries := vm.VisibleEntries()
	require.Len(t, entries, 1)
	require.Equal(t, entry.ID, entries[0].ID)

	var count int64
	require.NoError(t, gdb.Model(&model.Standup{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEditForeignEntryLeavesStateAndSetsBanner(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)
	seedStandup(t, gdb, "e1", "22222222-bbbb", t1)
	require.NoError(t, vm.Load(context.Background()))

	vm.OpenOverlay(OverlayEditEntry, "e1")
	err := vm.EditEntry(context.Background(), "e1", model.EntryFields{Yesterday: "hijack", Today: "hijack"})
	require.Error(t, err)
	require.Equal(t, "Failed to update standup", vm.LastError())
	require.Equal(t, Overlay{}, vm.Overlay(), "overlay closes on failure too")

	entries := vm.VisibleEntries()
	require.Len(t, entries, 1)
	require.Equal(t, "did things", entries[0].Yesterday)
}

func TestDeleteForeignEntryKeptLocally(t *testing.T) {
	// Scenario: session u2 deletes u1's entry. The dual predicate
	// matches nothing remotely, so the local copy must survive.
	beth := model.Identity{ID: "22222222-bbbb", Name: "Beth", Email: "beth@example.com"}
	vm, gdb := setupVM(t, beth)
	seedStandup(t, gdb, "e1", "11111111-aaaa", t1)
	require.NoError(t, vm.Load(context.Background()))

	err := vm.DeleteEntry(context.Background(), "e1")
	require.Error(t, err)
	require.Len(t, vm.VisibleEntries(), 1, "no optimistic removal")

	var count int64
	require.NoError(t, gdb.Model(&model.Standup{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestDeleteOwnEntryRemovesLocally(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)
	seedStandup(t, gdb, "e1", alice.ID, t1)
	require.NoError(t, vm.Load(context.Background()))

	require.NoError(t, vm.DeleteEntry(context.Background(), "e1"))
	require.Empty(t, vm.VisibleEntries())
	require.Equal(t, "", vm.LastError())
}

func TestErrorBannerClearedByNextSuccess(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, _ := setupVM(t, alice)
	require.NoError(t, vm.Load(context.Background()))

	require.Error(t, vm.DeleteEntry(context.Background(), "missing"))
	require.Equal(t, "Failed to delete standup", vm.LastError())

	_, err := vm.CreateEntry(context.Background(), model.EntryFields{Yesterday: "a", Today: "b"})
	require.NoError(t, err)
	require.Equal(t, "", vm.LastError())
}

func TestFilterStateDrivesVisibleEntries(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)
	seedStandup(t, gdb, "e1", alice.ID, t1)
	seedStandup(t, gdb, "e2", "22222222-bbbb", t2)
	require.NoError(t, vm.Load(context.Background()))

	vm.SetAuthorFilter(alice.ID)
	require.Len(t, vm.VisibleEntries(), 1)

	vm.ResetFilters()
	require.Len(t, vm.VisibleEntries(), 2)

	from := t2
	vm.SetDateRange(&from, nil)
	got := vm.VisibleEntries()
	require.Len(t, got, 1)
	require.Equal(t, "e2", got[0].ID)
}

func TestOverlayStateMachine(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, _ := setupVM(t, alice)

	vm.OpenOverlay(OverlayCardMenu, "e1")
	require.Equal(t, Overlay{Kind: OverlayCardMenu, Anchor: "e1"}, vm.Overlay())

	// Opening another overlay closes the first.
	vm.OpenOverlay(OverlayNewEntry, "")
	require.Equal(t, Overlay{Kind: OverlayNewEntry}, vm.Overlay())

	vm.CloseOverlay()
	require.Equal(t, Overlay{}, vm.Overlay())

	// Unknown kinds collapse to closed instead of wedging the machine.
	vm.OpenOverlay("bogus", "x")
	require.Equal(t, Overlay{}, vm.Overlay())
}

func TestMutationsAfterUnmountDoNotSplice(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)
	seedStandup(t, gdb, "e1", alice.ID, t1)
	require.NoError(t, vm.Load(context.Background()))

	vm.Unmount()

	// The remote mutation still lands, but dead state is not patched.
	require.NoError(t, vm.EditEntry(context.Background(), "e1", model.EntryFields{Yesterday: "late", Today: "late"}))
	var row model.Standup
	require.NoError(t, gdb.First(&row, "id = ?", "e1").Error)
	require.Equal(t, "late", row.Yesterday)
	require.Equal(t, "did things", vm.VisibleEntries()[0].Yesterday)

	require.NoError(t, vm.DeleteEntry(context.Background(), "e1"))
	require.Len(t, vm.VisibleEntries(), 1)

	_, err := vm.CreateEntry(context.Background(), model.EntryFields{Yesterday: "a", Today: "b"})
	require.NoError(t, err)
	require.Len(t, vm.VisibleEntries(), 1)
}

func TestUnmountDropsLateDeliveries(t *testing.T) {
	alice := model.Identity{ID: "11111111-aaaa", Name: "Alice", Email: "alice@example.com"}
	vm, gdb := setupVM(t, alice)
	seedStandup(t, gdb, "e1", alice.ID, t1)

	vm.Unmount()
	require.NoError(t, vm.Load(context.Background()), "late delivery must not crash")
	require.Empty(t, vm.VisibleEntries(), "stale commit dropped after unmount")
}
