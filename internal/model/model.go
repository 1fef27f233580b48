package model

import "time"

// Identity is the authenticated principal as seen by the rest of the app.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Entry is a standup row after normalization, with the author's resolved
// display name attached. Blockers/Comments are plain strings ("" when the
// stored column was NULL).
type Entry struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Yesterday  string    `json:"yesterday"`
	Today      string    `json:"today"`
	Blockers   string    `json:"blockers"`
	Comments   string    `json:"comments"`
	CreatedAt  time.Time `json:"created_at"`
}

// EntryFields is the author-editable portion of an entry.
type EntryFields struct {
	Yesterday string `json:"yesterday" binding:"required"`
	Today     string `json:"today" binding:"required"`
	Blockers  string `json:"blockers"`
	Comments  string `json:"comments"`
}

// Filter is the dashboard's transient filter state. Nil From/To means
// unbounded on that side.
type Filter struct {
	Search   string     `json:"search"`
	AuthorID string     `json:"author_id"`
	From     *time.Time `json:"from"`
	To       *time.Time `json:"to"`
}

// UserRef is one element of the dashboard's derived unique-users list.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AuthorStat pairs an aggregate row with a resolved display name.
type AuthorStat struct {
	AuthorID      string `json:"author_id"`
	Name          string `json:"name"`
	TotalStandups int    `json:"total_standups"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SignupRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type LoginResponse struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}
