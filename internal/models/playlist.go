package models

import (
	"time"

	"gorm.io/gorm"
)

// Playlist is an ordered collection of tracks. Membership order is meaningful
// and preserved on read and reorder via PlaylistTrack.Position.
type Playlist struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Name      string       `gorm:"not null" json:"name"`
	Permalink string       `gorm:"not null" json:"permalink"`
	Status    EntityStatus `gorm:"type:varchar(10);default:PUBLIC" json:"status"`

	Description string      `gorm:"type:text" json:"description"`
	Tags        StringArray `gorm:"type:text[]" json:"tags"`
	TagsLower   StringArray `gorm:"type:text[]" json:"-"`

	Tracks []Track `gorm:"-" json:"tracks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncShadows recomputes the lowercase shadow array from Tags.
func (p *Playlist) SyncShadows() {
	p.TagsLower = p.Tags.Lowercased()
}

// BeforeSave keeps the shadow array in lockstep with Tags.
func (p *Playlist) BeforeSave(tx *gorm.DB) error {
	p.SyncShadows()
	return nil
}

// PlaylistTrack is the ordered membership join row.
type PlaylistTrack struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	PlaylistID uint `gorm:"not null;index" json:"playlist_id"`
	TrackID    uint `gorm:"not null;index" json:"track_id"`
	Position   int  `gorm:"not null" json:"position"`

	Playlist Playlist `gorm:"foreignKey:PlaylistID" json:"-"`
	Track    Track    `gorm:"foreignKey:TrackID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// PlaylistLike is a (user, playlist) like edge.
type PlaylistLike struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     string `gorm:"not null;index" json:"user_id"`
	PlaylistID uint   `gorm:"not null;index" json:"playlist_id"`

	User     User     `gorm:"foreignKey:UserID" json:"-"`
	Playlist Playlist `gorm:"foreignKey:PlaylistID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// PlaylistRepost is a (user, playlist) repost edge.
type PlaylistRepost struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     string `gorm:"not null;index" json:"user_id"`
	PlaylistID uint   `gorm:"not null;index" json:"playlist_id"`

	User     User     `gorm:"foreignKey:UserID" json:"-"`
	Playlist Playlist `gorm:"foreignKey:PlaylistID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
