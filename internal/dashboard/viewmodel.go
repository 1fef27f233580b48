package dashboard

import (
	"context"
	"sync"
	"time"

	"standup-tracker/internal/logger"
	"standup-tracker/internal/model"
	"standup-tracker/internal/profile"
	"standup-tracker/internal/standup"
	"standup-tracker/internal/stats"
)

// Overlay kinds. Exactly one overlay can be open at a time; opening a
// new one closes whichever was open.
const (
	OverlayNone      = ""
	OverlayNewEntry  = "new_entry"
	OverlayEditEntry = "edit_entry"
	OverlayCardMenu  = "card_menu"
)

type Overlay struct {
	Kind   string `json:"kind"`
	Anchor string `json:"anchor,omitempty"`
}

// State is the rendered snapshot handed to the presentation layer.
type State struct {
	Entries []model.Entry      `json:"entries"`
	Users   []model.UserRef    `json:"users"`
	Stats   []model.AuthorStat `json:"stats"`
	Filter  model.Filter       `json:"filter"`
	Overlay Overlay            `json:"overlay"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error,omitempty"`
}

// ViewModel composes the repository, resolver and aggregator into the
// filtered list the dashboard renders. One instance per mounted
// dashboard; filter state starts fresh on every mount. All state is
// guarded by a single mutex (one logical thread of control), and
// asynchronous deliveries are committed only while the same mount
// generation is still current.
type ViewModel struct {
	repo     *standup.Repository
	resolver *profile.Resolver
	agg      *stats.Aggregator
	identity model.Identity

	mu         sync.Mutex
	entries    []model.Entry
	names      map[string]profile.Info
	aggregates []model.StandupStat
	filter     model.Filter
	overlay    Overlay
	loading    bool
	lastErr    string
	generation int
	mounted    bool
}

func NewViewModel(repo *standup.Repository, resolver *profile.Resolver, agg *stats.Aggregator, identity model.Identity) *ViewModel {
	return &ViewModel{
		repo:     repo,
		resolver: resolver,
		agg:      agg,
		identity: identity,
		names:    make(map[string]profile.Info),
		mounted:  true,
	}
}

// Load fetches entries, resolves author names and commits the loaded
// state. The aggregate fetch runs independently and merges whenever it
// lands; it may land after Load returns, or never.
func (vm *ViewModel) Load(ctx context.Context) error {
	vm.mu.Lock()
	vm.loading = true
	gen := vm.generation
	vm.mu.Unlock()

	vm.fetchStats(ctx, gen)

	entries, err := vm.repo.ListAll(ctx)
	if err != nil {
		vm.commitError(gen, "Failed to load standups")
		return err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.AuthorID)
	}
	names, err := vm.resolver.Resolve(ctx, ids, &vm.identity)
	if err != nil {
		vm.commitError(gen, "Failed to load standups")
		return err
	}
	for i := range entries {
		entries[i].AuthorName = names[entries[i].AuthorID].Name
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.mounted || vm.generation != gen {
		// Unmounted (or remounted) while the fetch was in flight; drop
		// the late delivery instead of resurrecting stale state.
		return nil
	}
	vm.entries = entries
	vm.names = names
	vm.loading = false
	vm.lastErr = ""
	return nil
}

// fetchStats runs the aggregate query without blocking the load. The
// request is not cancellable once issued, so it detaches from the
// caller's cancellation.
func (vm *ViewModel) fetchStats(ctx context.Context, gen int) {
	detached := context.WithoutCancel(ctx)
	go func() {
		rows := vm.agg.Fetch(detached)
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if !vm.mounted || vm.generation != gen {
			return
		}
		vm.aggregates = rows
	}()
}

// Unmount marks the view-model dead. In-flight deliveries are discarded
// rather than cancelled.
func (vm *ViewModel) Unmount() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.mounted = false
	vm.generation++
}

// Render returns the current derived snapshot.
func (vm *ViewModel) Render() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return State{
		Entries: Visible(vm.entries, vm.filter),
		Users:   UniqueUsers(vm.entries),
		Stats:   vm.statsLocked(),
		Filter:  vm.filter,
		Overlay: vm.overlay,
		Loading: vm.loading,
		Error:   vm.lastErr,
	}
}

// VisibleEntries is the filtered, sorted list under the current filter.
func (vm *ViewModel) VisibleEntries() []model.Entry {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return Visible(vm.entries, vm.filter)
}

// UniqueUsers lists one {id, name} per distinct author in the loaded set.
func (vm *ViewModel) UniqueUsers() []model.UserRef {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return UniqueUsers(vm.entries)
}

// Stats joins the aggregate rows with resolved display names. The counts
// come from an independent source and are not reconciled against the
// loaded entry list.
func (vm *ViewModel) Stats() []model.AuthorStat {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.statsLocked()
}

func (vm *ViewModel) statsLocked() []model.AuthorStat {
	out := make([]model.AuthorStat, 0, len(vm.aggregates))
	for _, row := range vm.aggregates {
		name := vm.names[row.UserID].Name
		if name == "" {
			name = "Unknown User"
		}
		out = append(out, model.AuthorStat{
			AuthorID:      row.UserID,
			Name:          name,
			TotalStandups: row.TotalStandups,
		})
	}
	return out
}

func (vm *ViewModel) SetSearch(q string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.filter.Search = q
}

func (vm *ViewModel) SetAuthorFilter(authorID string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.filter.AuthorID = authorID
}

func (vm *ViewModel) SetDateRange(from, to *time.Time) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.filter.From = from
	vm.filter.To = to
}

func (vm *ViewModel) ResetFilters() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.filter = model.Filter{}
}

// OpenOverlay moves the overlay machine to open(kind, anchor), closing
// any overlay that was already open.
func (vm *ViewModel) OpenOverlay(kind, anchor string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	switch kind {
	case OverlayNewEntry, OverlayEditEntry, OverlayCardMenu:
		vm.overlay = Overlay{Kind: kind, Anchor: anchor}
	default:
		vm.overlay = Overlay{}
	}
}

// CloseOverlay is the single close path for whichever overlay is open.
func (vm *ViewModel) CloseOverlay() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.overlay = Overlay{}
}

// Overlay returns the current overlay state.
func (vm *ViewModel) Overlay() Overlay {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.overlay
}

// CreateEntry persists a new entry for the current identity and splices
// it into local state without a refetch. The open overlay closes whether
// or not the call succeeds.
func (vm *ViewModel) CreateEntry(ctx context.Context, fields model.EntryFields) (model.Entry, error) {
	defer vm.CloseOverlay()

	entry, err := vm.repo.Create(ctx, vm.identity.ID, fields)
	if err != nil {
		vm.setError("Failed to create standup", err)
		return model.Entry{}, err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	entry.AuthorName = vm.nameForLocked(vm.identity.ID)
	if vm.mounted {
		vm.entries = append([]model.Entry{entry}, vm.entries...)
	}
	vm.lastErr = ""
	return entry, nil
}

// EditEntry updates an entry the current identity owns and patches the
// loaded copy in place on success.
func (vm *ViewModel) EditEntry(ctx context.Context, entryID string, fields model.EntryFields) error {
	defer vm.CloseOverlay()

	if err := vm.repo.Update(ctx, entryID, vm.identity.ID, fields); err != nil {
		vm.setError("Failed to update standup", err)
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.mounted {
		for i := range vm.entries {
			if vm.entries[i].ID == entryID {
				vm.entries[i].Yesterday = fields.Yesterday
				vm.entries[i].Today = fields.Today
				vm.entries[i].Blockers = fields.Blockers
				vm.entries[i].Comments = fields.Comments
				break
			}
		}
	}
	vm.lastErr = ""
	return nil
}

// DeleteEntry removes an entry the current identity owns. The local copy
// goes away only after the store confirms the predicate matched; a
// zero-row outcome leaves state untouched.
func (vm *ViewModel) DeleteEntry(ctx context.Context, entryID string) error {
	defer vm.CloseOverlay()

	if err := vm.repo.Delete(ctx, entryID, vm.identity.ID); err != nil {
		vm.setError("Failed to delete standup", err)
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.mounted {
		kept := vm.entries[:0]
		for _, e := range vm.entries {
			if e.ID != entryID {
				kept = append(kept, e)
			}
		}
		vm.entries = kept
	}
	vm.lastErr = ""
	return nil
}

// LastError is the banner text: the latest repository failure, cleared
// by the next successful mutation or load.
func (vm *ViewModel) LastError() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.lastErr
}

// Loading reports whether the initial load is still pending.
func (vm *ViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loading
}

// Identity returns the identity this dashboard was mounted for.
func (vm *ViewModel) Identity() model.Identity { return vm.identity }

func (vm *ViewModel) nameForLocked(authorID string) string {
	if info, ok := vm.names[authorID]; ok && info.Name != "" {
		return info.Name
	}
	if authorID == vm.identity.ID {
		return profile.DisplayName(vm.identity)
	}
	return profile.Placeholder(authorID)
}

func (vm *ViewModel) setError(msg string, err error) {
	logger.Warn("dashboard mutation failed", "uid", vm.identity.ID, "err", err)
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.lastErr = msg
}

func (vm *ViewModel) commitError(gen int, msg string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if !vm.mounted || vm.generation != gen {
		return
	}
	vm.loading = false
	vm.lastErr = msg
}
