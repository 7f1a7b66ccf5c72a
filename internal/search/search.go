// Package search fans a keyword out across users, tracks, and playlists and
// merges the results by recency. The paging window applies to each sub-query
// independently, so a merged page can hold up to three times the page size.
package search

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/visibility"
	"gorm.io/gorm"
)

// Kind tags a merged search item.
type Kind string

const (
	KindUser     Kind = "user"
	KindTrack    Kind = "track"
	KindPlaylist Kind = "playlist"
)

// Item is one entry of the merged search result.
type Item struct {
	Kind Kind        `json:"kind"`
	Data interface{} `json:"data"`

	updatedAt time.Time
}

// Service is the search façade.
type Service struct {
	db *gorm.DB
}

// NewService creates a search service on the given store.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// All queries users, tracks, and playlists with the same keyword and paging
// window, then sorts the union by updatedAt descending. Any sub-query failure
// aborts the whole search; no partial results are returned.
func (s *Service) All(keyword string, skip, take int, viewerID string) ([]Item, error) {
	users, err := s.Users(keyword, skip, take)
	if err != nil {
		return nil, err
	}
	tracks, err := s.Tracks(keyword, skip, take, viewerID)
	if err != nil {
		return nil, err
	}
	playlists, err := s.Playlists(keyword, skip, take, viewerID)
	if err != nil {
		return nil, err
	}

	merged := make([]Item, 0, len(users)+len(tracks)+len(playlists))
	for i := range users {
		merged = append(merged, Item{Kind: KindUser, Data: users[i], updatedAt: users[i].UpdatedAt})
	}
	for i := range tracks {
		merged = append(merged, Item{Kind: KindTrack, Data: tracks[i], updatedAt: tracks[i].UpdatedAt})
	}
	for i := range playlists {
		merged = append(merged, Item{Kind: KindPlaylist, Data: playlists[i], updatedAt: playlists[i].UpdatedAt})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].updatedAt.After(merged[j].updatedAt)
	})
	return merged, nil
}

// Users matches users by nickname substring.
func (s *Service) Users(keyword string, skip, take int) ([]models.User, error) {
	users := []models.User{}
	err := s.db.Model(&models.User{}).
		Where("LOWER(nickname) LIKE ?", contains(keyword)).
		Order("updated_at DESC").
		Offset(skip).
		Limit(take).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users %q: %w", keyword, err)
	}
	return users, nil
}

// Tracks matches visible tracks by title substring.
func (s *Service) Tracks(keyword string, skip, take int, viewerID string) ([]models.Track, error) {
	tracks := []models.Track{}
	err := s.db.Model(&models.Track{}).
		Scopes(visibility.Scope(viewerID)).
		Where("LOWER(title) LIKE ?", contains(keyword)).
		Order("updated_at DESC").
		Offset(skip).
		Limit(take).
		Preload("User").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("search tracks %q: %w", keyword, err)
	}
	return tracks, nil
}

// Playlists matches visible playlists by name substring.
func (s *Service) Playlists(keyword string, skip, take int, viewerID string) ([]models.Playlist, error) {
	playlists := []models.Playlist{}
	err := s.db.Model(&models.Playlist{}).
		Scopes(visibility.Scope(viewerID)).
		Where("LOWER(name) LIKE ?", contains(keyword)).
		Order("updated_at DESC").
		Offset(skip).
		Limit(take).
		Preload("User").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("search playlists %q: %w", keyword, err)
	}
	return playlists, nil
}

func contains(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
