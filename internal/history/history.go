// Package history records plays and aggregates a user's personal listening
// history. The personal view shows one row per track (the most recent play);
// clearing detaches the owner from the rows instead of deleting them, so the
// play counts feeding the charts never move.
package history

import (
	"errors"
	"fmt"

	"github.com/wavefm/wave-backend/internal/models"
	"gorm.io/gorm"
)

var ErrTrackNotFound = errors.New("track not found")

// Service is the history aggregator.
type Service struct {
	db *gorm.DB
}

// NewService creates a history service on the given store.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record stores a play event. userID may be empty for anonymous plays.
func (s *Service) Record(userID string, trackID uint) (*models.PlayEvent, error) {
	var count int64
	if err := s.db.Model(&models.Track{}).Where("id = ?", trackID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("history: lookup track %d: %w", trackID, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %d", ErrTrackNotFound, trackID)
	}

	event := models.PlayEvent{TrackID: trackID}
	if userID != "" {
		event.UserID = &userID
	}
	if err := s.db.Create(&event).Error; err != nil {
		return nil, fmt.Errorf("history: record play of %d: %w", trackID, err)
	}
	return &event, nil
}

// Recent returns the user's history deduplicated to the most recent play per
// track, newest first.
func (s *Service) Recent(userID string, skip, take int) ([]models.PlayEvent, error) {
	events := []models.PlayEvent{}
	err := s.db.Model(&models.PlayEvent{}).
		Where("user_id = ?", userID).
		Where(`created_at = (
			SELECT MAX(p2.created_at) FROM play_events p2
			WHERE p2.user_id = play_events.user_id AND p2.track_id = play_events.track_id
		)`).
		Order("created_at DESC").
		Offset(skip).
		Limit(take).
		Preload("Track").
		Preload("Track.User").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("history: recent for %s: %w", userID, err)
	}
	return events, nil
}

// Clear anonymizes every play event owned by userID. The rows survive so
// aggregate play counts stay stable; they only vanish from the personal view.
func (s *Service) Clear(userID string) error {
	err := s.db.Model(&models.PlayEvent{}).
		Where("user_id = ?", userID).
		Update("user_id", nil).Error
	if err != nil {
		return fmt.Errorf("history: clear for %s: %w", userID, err)
	}
	return nil
}
