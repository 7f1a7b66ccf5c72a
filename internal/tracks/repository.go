// Package tracks is the track repository: creation with per-owner permalink
// dedup, whitelisted updates, visibility-aware lookups, and explicit count
// queries.
package tracks

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
	ErrNotFound = errors.New("track not found")
	ErrNotOwner = errors.New("not the track owner")
)

// Repository provides track persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a track repository on the given store.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateInput carries everything needed to persist an uploaded track.
type CreateInput struct {
	UserID       string
	Title        string
	Permalink    string
	Status       models.EntityStatus
	AudioURL     string
	AudioKey     string
	Filename     string
	Duration     float64
	WaveformJSON string
	CoverURL     string
	CoverKey     string
	Artist       string
	Album        string
	Description  string
	Genre        []string
	Tags         []string
}

// Create persists a track. A permalink already taken by the same owner is not
// an error: it is suffixed with the current timestamp, which default-named
// flows rely on.
func (r *Repository) Create(in CreateInput) (*models.Track, error) {
	permalink := in.Permalink
	if permalink == "" {
		permalink = util.Slugify(in.Title)
	}
	permalink, err := r.dedupPermalink(in.UserID, permalink)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.StatusPublic
	}

	track := models.Track{
		UserID:       in.UserID,
		Title:        in.Title,
		Permalink:    permalink,
		Status:       status,
		AudioURL:     in.AudioURL,
		AudioKey:     in.AudioKey,
		Filename:     in.Filename,
		Duration:     in.Duration,
		WaveformJSON: in.WaveformJSON,
		CoverURL:     in.CoverURL,
		CoverKey:     in.CoverKey,
		Artist:       in.Artist,
		Album:        in.Album,
		Description:  in.Description,
		Genre:        models.StringArray(in.Genre),
		Tags:         models.StringArray(in.Tags),
	}
	if err := r.db.Create(&track).Error; err != nil {
		return nil, fmt.Errorf("create track %q: %w", in.Title, err)
	}
	return &track, nil
}

func (r *Repository) dedupPermalink(userID, permalink string) (string, error) {
	var count int64
	err := r.db.Model(&models.Track{}).
		Where("user_id = ? AND permalink = ?", userID, permalink).
		Count(&count).Error
	if err != nil {
		return "", fmt.Errorf("check permalink %q: %w", permalink, err)
	}
	if count > 0 {
		permalink = fmt.Sprintf("%s_%d", permalink, time.Now().UnixMilli())
	}
	return permalink, nil
}

// ByID loads a track the viewer may see. Private tracks resolve only for
// their owner; everyone else gets ErrNotFound.
func (r *Repository) ByID(id uint, viewerID string) (*models.Track, error) {
	var track models.Track
	err := r.db.Preload("User").First(&track, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load track %d: %w", id, err)
	}
	if track.Status == models.StatusPrivate && track.UserID != viewerID {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return &track, nil
}

// Owned loads a track and verifies ownership, for mutations.
func (r *Repository) Owned(id uint, ownerID string) (*models.Track, error) {
	var track models.Track
	err := r.db.First(&track, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load track %d: %w", id, err)
	}
	if track.UserID != ownerID {
		return nil, fmt.Errorf("%w: track %d", ErrNotOwner, id)
	}
	return &track, nil
}

// ByPermalink resolves a track by its owner's username and the per-owner
// permalink slug.
func (r *Repository) ByPermalink(username, permalink, viewerID string) (*models.Track, error) {
	var track models.Track
	err := r.db.
		Joins("JOIN users ON users.id = tracks.user_id").
		Where("users.username = ? AND tracks.permalink = ?", username, permalink).
		Preload("User").
		First(&track).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, username, permalink)
	}
	if err != nil {
		return nil, fmt.Errorf("load track %s/%s: %w", username, permalink, err)
	}
	if track.Status == models.StatusPrivate && track.UserID != viewerID {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, username, permalink)
	}
	return &track, nil
}

// ByOwner lists a user's tracks the viewer may see, newest first.
func (r *Repository) ByOwner(ownerID, viewerID string, p util.Paging) ([]models.Track, error) {
	tracks := []models.Track{}
	err := r.db.Model(&models.Track{}).
		Scopes(visibility.Scope(viewerID)).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Offset(p.Skip).
		Limit(p.Take).
		Preload("User").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("list tracks of %s: %w", ownerID, err)
	}
	return tracks, nil
}

// Random returns up to take visible tracks in random order.
func (r *Repository) Random(take int, viewerID string) ([]models.Track, error) {
	tracks := []models.Track{}
	err := r.db.Model(&models.Track{}).
		Scopes(visibility.Scope(viewerID)).
		Order("RANDOM()").
		Limit(take).
		Preload("User").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("random tracks: %w", err)
	}
	return tracks, nil
}

// ByTag lists visible tracks carrying the tag, matched case-insensitively
// against the lowercase shadow array, newest first.
func (r *Repository) ByTag(tag string, viewerID string, p util.Paging) ([]models.Track, error) {
	var all []models.Track
	err := r.db.Model(&models.Track{}).
		Scopes(visibility.Scope(viewerID)).
		Order("created_at DESC").
		Preload("User").
		Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("list tracks by tag %q: %w", tag, err)
	}

	matched := make([]models.Track, 0, p.Take)
	skipped := 0
	for _, t := range all {
		if !t.TagsLower.ContainsFold(tag) {
			continue
		}
		if skipped < p.Skip {
			skipped++
			continue
		}
		matched = append(matched, t)
		if len(matched) >= p.Take {
			break
		}
	}
	return matched, nil
}

// UpdateInput is the whitelist of updatable track fields. Shadow arrays are
// recomputed from Genre/Tags and never writable directly.
type UpdateInput struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.EntityStatus `json:"status"`
	Artist      *string              `json:"artist"`
	Album       *string              `json:"album"`
	Genre       *[]string            `json:"genre"`
	Tags        *[]string            `json:"tags"`
}

// UpdateInfo applies the whitelisted fields to an owned track.
func (r *Repository) UpdateInfo(id uint, ownerID string, in UpdateInput) (*models.Track, error) {
	track, err := r.Owned(id, ownerID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		track.Title = *in.Title
	}
	if in.Description != nil {
		track.Description = *in.Description
	}
	if in.Status != nil {
		track.Status = *in.Status
	}
	if in.Artist != nil {
		track.Artist = *in.Artist
	}
	if in.Album != nil {
		track.Album = *in.Album
	}
	if in.Genre != nil {
		track.Genre = models.StringArray(*in.Genre)
	}
	if in.Tags != nil {
		track.Tags = models.StringArray(*in.Tags)
	}

	if err := r.db.Save(track).Error; err != nil {
		return nil, fmt.Errorf("update track %d: %w", id, err)
	}
	return track, nil
}

// SetCover updates the cover object references after a replacement upload.
func (r *Repository) SetCover(id uint, ownerID, coverURL, coverKey string) (*models.Track, error) {
	track, err := r.Owned(id, ownerID)
	if err != nil {
		return nil, err
	}
	track.CoverURL = coverURL
	track.CoverKey = coverKey
	if err := r.db.Save(track).Error; err != nil {
		return nil, fmt.Errorf("set cover of track %d: %w", id, err)
	}
	return track, nil
}

// Delete removes an owned track along with its edges, comments, playlist
// memberships, and play events. The removed track is returned so the caller
// can clean up external storage.
func (r *Repository) Delete(id uint, ownerID string) (*models.Track, error) {
	track, err := r.Owned(id, ownerID)
	if err != nil {
		return nil, err
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM track_likes WHERE track_id = ?",
			"DELETE FROM track_reposts WHERE track_id = ?",
			"DELETE FROM playlist_tracks WHERE track_id = ?",
			"DELETE FROM comments WHERE track_id = ?",
			"DELETE FROM play_events WHERE track_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Track{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, fmt.Errorf("delete track %d: %w", id, err)
	}
	return track, nil
}

// Counts are the derived per-track numbers, computed on demand rather than
// eagerly attached to every load.
type Counts struct {
	Likes     int64 `json:"likes"`
	Reposts   int64 `json:"reposts"`
	Plays     int64 `json:"plays"`
	Comments  int64 `json:"comments"`
	Playlists int64 `json:"playlists"`
}

// CountsFor computes the derived counts for one track.
func (r *Repository) CountsFor(id uint) (Counts, error) {
	var c Counts
	for _, q := range []struct {
		model interface{}
		dst   *int64
	}{
		{&models.TrackLike{}, &c.Likes},
		{&models.TrackRepost{}, &c.Reposts},
		{&models.PlayEvent{}, &c.Plays},
		{&models.Comment{}, &c.Comments},
		{&models.PlaylistTrack{}, &c.Playlists},
	} {
		if err := r.db.Model(q.model).Where("track_id = ?", id).Count(q.dst).Error; err != nil {
			return c, fmt.Errorf("count for track %d: %w", id, err)
		}
	}
	return c, nil
}

// BatchCounts computes the derived counts for a set of tracks in five
// grouped queries.
func (r *Repository) BatchCounts(ids []uint) (map[uint]Counts, error) {
	out := make(map[uint]Counts, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	for _, q := range []struct {
		model  interface{}
		assign func(c *Counts, n int64)
	}{
		{&models.TrackLike{}, func(c *Counts, n int64) { c.Likes = n }},
		{&models.TrackRepost{}, func(c *Counts, n int64) { c.Reposts = n }},
		{&models.PlayEvent{}, func(c *Counts, n int64) { c.Plays = n }},
		{&models.Comment{}, func(c *Counts, n int64) { c.Comments = n }},
		{&models.PlaylistTrack{}, func(c *Counts, n int64) { c.Playlists = n }},
	} {
		var rows []struct {
			TrackID uint
			N       int64
		}
		err := r.db.Model(q.model).
			Select("track_id, COUNT(*) AS n").
			Where("track_id IN ?", ids).
			Group("track_id").
			Scan(&rows).Error
		if err != nil {
			return nil, fmt.Errorf("batch counts: %w", err)
		}
		for _, row := range rows {
			c := out[row.TrackID]
			q.assign(&c, row.N)
			out[row.TrackID] = c
		}
	}
	return out, nil
}
