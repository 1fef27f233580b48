package model

import "time"

// Account is the authentication principal. It stands in for the hosted
// auth service: one row per registered email, password stored as a
// bcrypt hash, Name carried as signup metadata.
type Account struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Email     string    `gorm:"uniqueIndex;size:255" json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile is the display metadata for an identity. Provisioned lazily:
// a registered account may not have one yet.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Standup is one daily status record. Blockers and Comments are nullable
// in storage; the repository normalizes them to "" on read so nothing
// downstream branches on nil.
type Standup struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:36" json:"user_id"`
	Yesterday string    `json:"yesterday"`
	Today     string    `json:"today"`
	Blockers  *string   `json:"blockers"`
	Comments  *string   `json:"comments"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StandupStat is one row of the precomputed per-author aggregate view.
type StandupStat struct {
	UserID        string `json:"user_id"`
	TotalStandups int    `json:"total_standups"`
}

func (Account) TableName() string     { return "accounts" }
func (Profile) TableName() string     { return "profiles" }
func (Standup) TableName() string     { return "standups" }
func (StandupStat) TableName() string { return "user_standup_stats" }
