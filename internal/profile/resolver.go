package profile

import (
	"context"
	"fmt"
	"strings"

	dbx "standup-tracker/internal/db"
	"standup-tracker/internal/logger"
	"standup-tracker/internal/model"

	"gorm.io/gorm"
)

// Info is the resolved display data for one author.
type Info struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Resolver maps the author IDs referenced by loaded entries to display
// profiles. Missing profiles never fail a load: the current identity is
// auto-provisioned, everything else gets a placeholder.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver { return &Resolver{db: db} }

// Resolve returns a mapping whose key set equals authorIDs exactly.
// One batched lookup; no retries.
func (r *Resolver) Resolve(ctx context.Context, authorIDs []string, current *model.Identity) (map[string]Info, error) {
	out := make(map[string]Info, len(authorIDs))
	if len(authorIDs) == 0 && current == nil {
		return out, nil
	}

	ids := dedupe(authorIDs)

	var rows []model.Profile
	if len(ids) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("fetch profiles: %w", err)
		}
	}
	for _, p := range rows {
		out[p.ID] = Info{Name: p.Name, Email: p.Email}
	}

	// The signed-in user may predate profile provisioning. Create the
	// row on the spot; a conflict means another session won the race,
	// any other failure degrades to a placeholder for this load only.
	if current != nil {
		if _, ok := out[current.ID]; !ok {
			if err := r.Ensure(ctx, *current); err != nil {
				logger.Warn("profile resolution degraded", "uid", current.ID, "err", err)
			} else if containsID(ids, current.ID) {
				out[current.ID] = Info{Name: DisplayName(*current), Email: current.Email}
			}
		}
	}

	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = Info{Name: Placeholder(id), Email: ""}
		}
	}
	return out, nil
}

// Ensure creates the profile row for an identity if absent. Idempotent:
// a duplicate-key conflict from a concurrent creation counts as success.
func (r *Resolver) Ensure(ctx context.Context, ident model.Identity) error {
	p := model.Profile{
		ID:    ident.ID,
		Name:  DisplayName(ident),
		Email: ident.Email,
	}
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		if dbx.IsDuplicateKey(err) {
			return nil
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// DisplayName derives the profile name for an identity: account
// metadata, else the local part of the email, else "Anonymous".
func DisplayName(ident model.Identity) string {
	if ident.Name != "" {
		return ident.Name
	}
	if at := strings.Index(ident.Email, "@"); at > 0 {
		return ident.Email[:at]
	}
	return "Anonymous"
}

// Placeholder is the deterministic stand-in name for an author with no
// stored profile.
func Placeholder(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "User " + id
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
