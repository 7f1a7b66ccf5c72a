package models

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

// User represents a Wave account.
type User struct {
	ID       string `gorm:"primaryKey;type:varchar(21)" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Nickname string `gorm:"not null" json:"nickname"`

	// Native auth fields
	PasswordHash       string  `gorm:"type:text;not null" json:"-"`
	HashedRefreshToken *string `gorm:"type:text" json:"-"`

	// Profile data
	ProfileImageURL string `json:"profile_image_url"`
	ProfileImageKey string `json:"-"`
	Description     string `gorm:"type:text" json:"description"`
	Email           string `json:"email"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Follow is the owned half of the follower/following pair. The follower list
// of a user is the inverse query over followee_id.
type Follow struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	FollowerID string `gorm:"not null;index" json:"follower_id"`
	FolloweeID string `gorm:"not null;index" json:"followee_id"`

	Follower User `gorm:"foreignKey:FollowerID" json:"-"`
	Followee User `gorm:"foreignKey:FolloweeID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate generates a short opaque user ID.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		id, err := gonanoid.New(12)
		if err != nil {
			return err
		}
		u.ID = id
	}
	return nil
}
