// Package playlists is the playlist repository. Membership is an ordered
// list: positions are preserved on read and rewritten as a whole on reorder.
package playlists

import (
	"errors"
	"fmt"
	"time"

	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/util"
	"github.com/wavefm/wave-backend/internal/visibility"
	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("playlist not found")
	ErrNotOwner = errors.New("not the playlist owner")
)

// Repository provides playlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a playlist repository on the given store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateInput carries a new playlist. TrackIDs defines the initial ordered
// membership.
type CreateInput struct {
	UserID      string
	Name        string
	Status      models.EntityStatus
	Description string
	Tags        []string
	TrackIDs    []uint
}

// Create persists a playlist. The permalink is derived from the name; a slug
// already taken by the same owner gets a timestamp suffix, which the
// default-named playlist flow depends on.
func (r *Repository) Create(in CreateInput) (*models.Playlist, error) {
	permalink := util.Slugify(in.Name)
	var count int64
	err := r.db.Model(&models.Playlist{}).
		Where("user_id = ? AND permalink = ?", in.UserID, permalink).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("check permalink %q: %w", permalink, err)
	}
	if count > 0 {
		permalink = fmt.Sprintf("%s_%d", permalink, time.Now().UnixMilli())
	}

	status := in.Status
	if status == "" {
		status = models.StatusPublic
	}

	playlist := models.Playlist{
		UserID:      in.UserID,
		Name:        in.Name,
		Permalink:   permalink,
		Status:      status,
		Description: in.Description,
		Tags:        models.StringArray(in.Tags),
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&playlist).Error; err != nil {
			return err
		}
		return insertMembers(tx, playlist.ID, in.TrackIDs, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("create playlist %q: %w", in.Name, err)
	}
	return r.attachTracks(&playlist)
}

// ByID loads a playlist the viewer may see, with its ordered tracks.
func (r *Repository) ByID(id uint, viewerID string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := r.db.Preload("User").First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load playlist %d: %w", id, err)
	}
	if playlist.Status == models.StatusPrivate && playlist.UserID != viewerID {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return r.attachTracks(&playlist)
}

// ByPermalink resolves a playlist by owner username and permalink slug.
func (r *Repository) ByPermalink(username, permalink, viewerID string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := r.db.
		Joins("JOIN users ON users.id = playlists.user_id").
		Where("users.username = ? AND playlists.permalink = ?", username, permalink).
		Preload("User").
		First(&playlist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, username, permalink)
	}
	if err != nil {
		return nil, fmt.Errorf("load playlist %s/%s: %w", username, permalink, err)
	}
	if playlist.Status == models.StatusPrivate && playlist.UserID != viewerID {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, username, permalink)
	}
	return r.attachTracks(&playlist)
}

// ByOwner lists a user's playlists the viewer may see, newest first, tracks
// attached.
func (r *Repository) ByOwner(ownerID, viewerID string, p util.Paging) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	err := r.db.Model(&models.Playlist{}).
		Scopes(visibility.Scope(viewerID)).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Offset(p.Skip).
		Limit(p.Take).
		Preload("User").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("list playlists of %s: %w", ownerID, err)
	}
	for i := range playlists {
		if _, err := r.attachTracks(&playlists[i]); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

// ByTag lists visible playlists carrying the tag, newest first.
func (r *Repository) ByTag(tag string, viewerID string, p util.Paging) ([]models.Playlist, error) {
	var all []models.Playlist
	err := r.db.Model(&models.Playlist{}).
		Scopes(visibility.Scope(viewerID)).
		Order("created_at DESC").
		Preload("User").
		Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("list playlists by tag %q: %w", tag, err)
	}

	matched := make([]models.Playlist, 0, p.Take)
	skipped := 0
	for i := range all {
		if !all[i].TagsLower.ContainsFold(tag) {
			continue
		}
		if skipped < p.Skip {
			skipped++
			continue
		}
		if _, err := r.attachTracks(&all[i]); err != nil {
			return nil, err
		}
		matched = append(matched, all[i])
		if len(matched) >= p.Take {
			break
		}
	}
	return matched, nil
}

// ContainingTrack lists visible playlists holding the track.
func (r *Repository) ContainingTrack(trackID uint, viewerID string, p util.Paging) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	err := r.db.Model(&models.Playlist{}).
		Joins("JOIN playlist_tracks ON playlist_tracks.playlist_id = playlists.id").
		Scopes(visibility.ScopeTable("playlists", viewerID)).
		Where("playlist_tracks.track_id = ?", trackID).
		Order("playlists.created_at DESC").
		Offset(p.Skip).
		Limit(p.Take).
		Preload("User").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("list playlists containing track %d: %w", trackID, err)
	}
	for i := range playlists {
		if _, err := r.attachTracks(&playlists[i]); err != nil {
			return nil, err
		}
	}
	return playlists, nil
}

// Owned loads a playlist and verifies ownership, for mutations.
func (r *Repository) Owned(id uint, ownerID string) (*models.Playlist, error) {
	var playlist models.Playlist
	err := r.db.First(&playlist, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load playlist %d: %w", id, err)
	}
	if playlist.UserID != ownerID {
		return nil, fmt.Errorf("%w: playlist %d", ErrNotOwner, id)
	}
	return &playlist, nil
}

// AddTracks appends tracks to the end of an owned playlist.
func (r *Repository) AddTracks(id uint, ownerID string, trackIDs []uint) (*models.Playlist, error) {
	playlist, err := r.Owned(id, ownerID)
	if err != nil {
		return nil, err
	}

	var maxPos int
	row := r.db.Model(&models.PlaylistTrack{}).
		Where("playlist_id = ?", id).
		Select("COALESCE(MAX(position), -1)").
		Row()
	if err := row.Scan(&maxPos); err != nil {
		return nil, fmt.Errorf("playlist %d: read max position: %w", id, err)
	}

	if err := insertMembers(r.db, id, trackIDs, maxPos+1); err != nil {
		return nil, fmt.Errorf("playlist %d: append tracks: %w", id, err)
	}
	return r.attachTracks(playlist)
}

// ReplaceTracks rewrites the whole ordered membership, which is also how
// reorder works.
func (r *Repository) ReplaceTracks(id uint, ownerID string, trackIDs []uint) (*models.Playlist, error) {
	playlist, err := r.Owned(id, ownerID)
	if err != nil {
		return nil, err
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM playlist_tracks WHERE playlist_id = ?", id).Error; err != nil {
			return err
		}
		return insertMembers(tx, id, trackIDs, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("playlist %d: replace tracks: %w", id, err)
	}
	return r.attachTracks(playlist)
}

// UpdateInput is the whitelist of updatable playlist fields.
type UpdateInput struct {
	Name        *string              `json:"name"`
	Description *string              `json:"description"`
	Status      *models.EntityStatus `json:"status"`
	Tags        *[]string            `json:"tags"`
}

// UpdateInfo applies the whitelisted fields to an owned playlist. The
// permalink stays stable across renames.
func (r *Repository) UpdateInfo(id uint, ownerID string, in UpdateInput) (*models.Playlist, error) {
	playlist, err := r.Owned(id, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		playlist.Name = *in.Name
	}
	if in.Description != nil {
		playlist.Description = *in.Description
	}
	if in.Status != nil {
		playlist.Status = *in.Status
	}
	if in.Tags != nil {
		playlist.Tags = models.StringArray(*in.Tags)
	}

	if err := r.db.Save(playlist).Error; err != nil {
		return nil, fmt.Errorf("update playlist %d: %w", id, err)
	}
	return r.attachTracks(playlist)
}

// Delete removes an owned playlist with its membership and edges.
func (r *Repository) Delete(id uint, ownerID string) error {
	if _, err := r.Owned(id, ownerID); err != nil {
		return err
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM playlist_tracks WHERE playlist_id = ?",
			"DELETE FROM playlist_likes WHERE playlist_id = ?",
			"DELETE FROM playlist_reposts WHERE playlist_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Playlist{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("delete playlist %d: %w", id, err)
	}
	return nil
}

// attachTracks loads the ordered member tracks onto the playlist.
func (r *Repository) attachTracks(playlist *models.Playlist) (*models.Playlist, error) {
	tracks := []models.Track{}
	err := r.db.Model(&models.Track{}).
		Joins("JOIN playlist_tracks ON playlist_tracks.track_id = tracks.id").
		Where("playlist_tracks.playlist_id = ?", playlist.ID).
		Order("playlist_tracks.position ASC").
		Preload("User").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("playlist %d: load tracks: %w", playlist.ID, err)
	}
	playlist.Tracks = tracks
	return playlist, nil
}

func insertMembers(tx *gorm.DB, playlistID uint, trackIDs []uint, startPos int) error {
	for i, trackID := range trackIDs {
		member := models.PlaylistTrack{
			PlaylistID: playlistID,
			TrackID:    trackID,
			Position:   startPos + i,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
	}
	return nil
}
