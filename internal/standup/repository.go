package standup

import (
	"context"
	"errors"
	"fmt"

	"standup-tracker/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNoRowsMatched signals a mutation whose dual predicate (entry id +
// author id) selected nothing: either the entry is gone or it belongs to
// someone else. Never treated as success.
var ErrNoRowsMatched = errors.New("no rows matched")

// RepositoryError wraps any entry-store failure with the operation that
// produced it. Nothing is retried.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string { return fmt.Sprintf("standup %s: %v", e.Op, e.Err) }
func (e *RepositoryError) Unwrap() error { return e.Err }

func repoErr(op string, err error) *RepositoryError { return &RepositoryError{Op: op, Err: err} }

// Repository is the entry store boundary. Nullable columns are
// normalized to "" on every read so downstream code never sees nil.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository { return &Repository{db: db} }

// ListAll returns every entry in storage order; ordering is the
// caller's concern.
func (r *Repository) ListAll(ctx context.Context) ([]model.Entry, error) {
	var rows []model.Standup
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, repoErr("list", err)
	}
	entries := make([]model.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, normalize(row))
	}
	return entries, nil
}

// Create inserts a new entry for authorID. The id and created_at are
// assigned here, not by the caller.
func (r *Repository) Create(ctx context.Context, authorID string, fields model.EntryFields) (model.Entry, error) {
	row := model.Standup{
		ID:        uuid.NewString(),
		UserID:    authorID,
		Yesterday: fields.Yesterday,
		Today:     fields.Today,
		Blockers:  &fields.Blockers,
		Comments:  &fields.Comments,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Entry{}, repoErr("create", err)
	}
	return normalize(row), nil
}

// Update mutates an entry scoped by both its id and the author id. The
// store rejects a foreign author's entry by matching zero rows.
func (r *Repository) Update(ctx context.Context, entryID, authorID string, fields model.EntryFields) error {
	res := r.db.WithContext(ctx).
		Model(&model.Standup{}).
		Where("id = ? AND user_id = ?", entryID, authorID).
		Updates(map[string]interface{}{
			"yesterday": fields.Yesterday,
			"today":     fields.Today,
			"blockers":  fields.Blockers,
			"comments":  fields.Comments,
		})
	if res.Error != nil {
		return repoErr("update", res.Error)
	}
	if res.RowsAffected == 0 {
		return repoErr("update", ErrNoRowsMatched)
	}
	return nil
}

// Delete removes an entry with the same dual-predicate scoping as Update.
func (r *Repository) Delete(ctx context.Context, entryID, authorID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, authorID).
		Delete(&model.Standup{})
	if res.Error != nil {
		return repoErr("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return repoErr("delete", ErrNoRowsMatched)
	}
	return nil
}

func normalize(row model.Standup) model.Entry {
	e := model.Entry{
		ID:        row.ID,
		AuthorID:  row.UserID,
		Yesterday: row.Yesterday,
		Today:     row.Today,
		CreatedAt: row.CreatedAt,
	}
	if row.Blockers != nil {
		e.Blockers = *row.Blockers
	}
	if row.Comments != nil {
		e.Comments = *row.Comments
	}
	return e
}
