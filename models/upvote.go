package models

import "time"

// Upvote records a single user's vote on a single post. The composite primary
// key guarantees at most one row per (user, post) pair; absence of a row means
// no vote. Value is always +1 or -1; rows are flipped in place, never removed.
type Upvote struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID    uint      `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
