package models

import "time"

type User struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"size:32;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserProfile holds per-user persona state. One row per user, created together with the user.
type UserProfile struct {
	ID     uint64 `gorm:"primaryKey" json:"-"`
	UserID uint64 `gorm:"uniqueIndex;not null" json:"user_id"`
	// 0-100
	AffinityScore    int       `gorm:"not null;default:50" json:"affinity_score"`
	Username         string    `gorm:"size:100;not null" json:"username"`
	LocationInfo     string    `gorm:"type:text" json:"location_info"`
	RelationshipInfo string    `gorm:"type:text" json:"relationship_info"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const DefaultAffinityScore = 50
