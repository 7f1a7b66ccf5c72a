package models

import (
	"time"

	"gorm.io/gorm"
)

// EntityStatus controls who may see a track or playlist.
type EntityStatus string

const (
	StatusPublic  EntityStatus = "PUBLIC"
	StatusPrivate EntityStatus = "PRIVATE"
)

// Valid reports whether s is a known status value.
func (s EntityStatus) Valid() bool {
	return s == StatusPublic || s == StatusPrivate
}

// Track represents an uploaded song. Permalink is unique per owner, not
// globally. GenreLower/TagsLower are derived shadows of Genre/Tags and are
// recomputed whenever the canonical fields change, never set directly.
type Track struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Title     string       `gorm:"not null" json:"title"`
	Permalink string       `gorm:"not null" json:"permalink"`
	Status    EntityStatus `gorm:"type:varchar(10);default:PUBLIC" json:"status"`

	// Audio file data
	AudioURL      string  `gorm:"not null" json:"audio_url"`
	AudioKey      string  `json:"-"`
	Filename      string  `json:"filename"`
	Duration      float64 `json:"duration"`
	WaveformJSON  string  `gorm:"type:text" json:"waveform,omitempty"`
	CoverURL      string  `json:"cover_url"`
	CoverKey      string  `json:"-"`
	CoverFilename string  `json:"cover_filename"`

	// Metadata
	Artist      string      `json:"artist"`
	Album       string      `json:"album"`
	Description string      `gorm:"type:text" json:"description"`
	Genre       StringArray `gorm:"type:text[]" json:"genre"`
	Tags        StringArray `gorm:"type:text[]" json:"tags"`
	GenreLower  StringArray `gorm:"type:text[]" json:"-"`
	TagsLower   StringArray `gorm:"type:text[]" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncShadows recomputes the lowercase shadow arrays from Genre/Tags.
func (t *Track) SyncShadows() {
	t.GenreLower = t.Genre.Lowercased()
	t.TagsLower = t.Tags.Lowercased()
}

// BeforeSave keeps the shadow arrays in lockstep with the canonical fields.
func (t *Track) BeforeSave(tx *gorm.DB) error {
	t.SyncShadows()
	return nil
}

// TrackLike is a (user, track) like edge.
type TrackLike struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	TrackID uint   `gorm:"not null;index" json:"track_id"`

	User  User  `gorm:"foreignKey:UserID" json:"-"`
	Track Track `gorm:"foreignKey:TrackID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// TrackRepost is a (user, track) repost edge.
type TrackRepost struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	TrackID uint   `gorm:"not null;index" json:"track_id"`

	User  User  `gorm:"foreignKey:UserID" json:"-"`
	Track Track `gorm:"foreignKey:TrackID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// PlayEvent records a single play. UserID is nullable: clearing a user's
// history detaches the owner instead of deleting rows, so aggregate play
// counts used by the charts stay stable.
type PlayEvent struct {
	ID      uint    `gorm:"primaryKey" json:"id"`
	UserID  *string `gorm:"index" json:"user_id,omitempty"`
	TrackID uint    `gorm:"not null;index" json:"track_id"`

	Track Track `gorm:"foreignKey:TrackID" json:"track,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Comment is a user comment on a track, optionally anchored to a position
// in the audio.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	TrackID uint   `gorm:"not null;index" json:"track_id"`

	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Track Track `gorm:"foreignKey:TrackID" json:"-"`

	Text        string   `gorm:"type:text;not null" json:"text"`
	TrackSecond *float64 `json:"track_second,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
