package dashboard

import (
	"sort"
	"strings"

	"standup-tracker/internal/model"
)

// Visible applies the three filter predicates and orders the result by
// createdAt descending. Entries sharing a timestamp keep their original
// fetch order (stable sort), which makes the derivation deterministic
// and idempotent.
func Visible(entries []model.Entry, f model.Filter) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if matches(e, f) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matches(e model.Entry, f model.Filter) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(e.Yesterday), q) &&
			!strings.Contains(strings.ToLower(e.Today), q) &&
			!strings.Contains(strings.ToLower(e.Blockers), q) &&
			!strings.Contains(strings.ToLower(e.Comments), q) {
			return false
		}
	}
	if f.AuthorID != "" && e.AuthorID != f.AuthorID {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// UniqueUsers derives one {id, name} per distinct author in the loaded
// set. Order is not part of the contract; it is kept deterministic
// (first-seen) so renders do not shuffle.
func UniqueUsers(entries []model.Entry) []model.UserRef {
	seen := make(map[string]struct{}, len(entries))
	out := make([]model.UserRef, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.AuthorID]; ok {
			continue
		}
		seen[e.AuthorID] = struct{}{}
		out = append(out, model.UserRef{ID: e.AuthorID, Name: e.AuthorName})
	}
	return out
}
