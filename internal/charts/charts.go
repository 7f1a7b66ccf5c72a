// Package charts is the ranking engine: trending and new-release charts,
// the per-owner popular list, and related-track matching. Play and like
// counts are aggregated with GROUP BY queries and the final ordering is
// computed in memory, so the same code runs against postgres and the sqlite
// driver used in tests.
package charts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/visibility"
	"gorm.io/gorm"
)

var ErrTrackNotFound = errors.New("track not found")

const (
	chartCap   = 100
	popularCap = 10
	relatedCap = 30

	// all-time play count a track must exceed to appear in the popular list
	popularThreshold = 9

	// seeds taken from recent history and from likes for the multi-seed
	// related query
	relatedSeeds = 3
)

// Service computes ordered track sets from raw play and like counts.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a chart service on the given store.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Query scopes a chart computation. Window is "week", "month", an integer
// day count, or empty for the default week window. ViewerID may be empty
// for anonymous viewers.
type Query struct {
	Genre    string
	Window   string
	ViewerID string
}

// Trending returns up to 100 visible tracks ordered by play count within the
// window. With an explicit window the play count is the only sort key; with
// the default window total like count breaks ties.
func (s *Service) Trending(q Query) ([]models.Track, error) {
	window := q.Window
	likeTiebreak := false
	if window == "" {
		window = "week"
		likeTiebreak = true
	}
	since, err := WindowStart(window, s.now())
	if err != nil {
		return nil, err
	}

	tracks, err := s.candidates(q.ViewerID, q.Genre, nil)
	if err != nil {
		return nil, err
	}

	plays, err := s.playCounts(&since)
	if err != nil {
		return nil, err
	}

	var likes map[uint]int64
	if likeTiebreak {
		if likes, err = s.likeCounts(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(tracks, func(i, j int) bool {
		pi, pj := plays[tracks[i].ID], plays[tracks[j].ID]
		if pi != pj {
			return pi > pj
		}
		if likeTiebreak {
			li, lj := likes[tracks[i].ID], likes[tracks[j].ID]
			if li != lj {
				return li > lj
			}
		}
		return tracks[i].ID < tracks[j].ID
	})

	return truncate(tracks, chartCap), nil
}

// NewRelease returns up to 100 visible tracks created inside the window,
// ordered by all-time play count then like count.
func (s *Service) NewRelease(q Query) ([]models.Track, error) {
	window := q.Window
	if window == "" {
		window = "week"
	}
	since, err := WindowStart(window, s.now())
	if err != nil {
		return nil, err
	}

	tracks, err := s.candidates(q.ViewerID, q.Genre, &since)
	if err != nil {
		return nil, err
	}

	plays, err := s.playCounts(nil)
	if err != nil {
		return nil, err
	}
	likes, err := s.likeCounts()
	if err != nil {
		return nil, err
	}

	sortByPlaysThenLikes(tracks, plays, likes)
	return truncate(tracks, chartCap), nil
}

// PopularFor returns up to 10 of ownerID's visible tracks whose all-time
// play count exceeds the popularity threshold, ordered by play count then
// like count.
func (s *Service) PopularFor(ownerID, viewerID string) ([]models.Track, error) {
	var tracks []models.Track
	err := s.db.Model(&models.Track{}).
		Scopes(visibility.Scope(viewerID)).
		Where("user_id = ?", ownerID).
		Preload("User").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("popular: load tracks for %s: %w", ownerID, err)
	}

	plays, err := s.playCounts(nil)
	if err != nil {
		return nil, err
	}
	likes, err := s.likeCounts()
	if err != nil {
		return nil, err
	}

	popular := tracks[:0]
	for _, t := range tracks {
		if plays[t.ID] > popularThreshold {
			popular = append(popular, t)
		}
	}

	sortByPlaysThenLikes(popular, plays, likes)
	return truncate(popular, popularCap), nil
}

// Related returns tracks whose title, artist, or owner nickname contains the
// seed's corresponding field as a case-insensitive substring. The seed itself
// is excluded. ViewerID widens the result to the viewer's own private tracks.
func (s *Service) Related(seedID uint, viewerID string, skip, take int) ([]models.Track, error) {
	var seed models.Track
	err := s.db.Preload("User").First(&seed, "id = ?", seedID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTrackNotFound, seedID)
	}
	if err != nil {
		return nil, fmt.Errorf("related: load seed %d: %w", seedID, err)
	}

	var tracks []models.Track
	err = s.matchQuery(&seed, viewerID).
		Where("tracks.id <> ?", seed.ID).
		Order("tracks.id ASC").
		Offset(skip).
		Limit(take).
		Preload("User").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("related: match seed %d: %w", seedID, err)
	}
	return tracks, nil
}

// RelatedFor unions substring matches across the viewer's most recent
// history plays and liked tracks (up to 3 seeds each), excluding the seeds
// themselves. Matches are restricted to PUBLIC tracks regardless of owner:
// the personalized form deliberately carries no owner override.
func (s *Service) RelatedFor(userID string) ([]models.Track, error) {
	seeds, err := s.relatedSeedsFor(userID)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return []models.Track{}, nil
	}

	seedIDs := make([]uint, len(seeds))
	for i, t := range seeds {
		seedIDs[i] = t.ID
	}

	seen := make(map[uint]bool, relatedCap)
	out := make([]models.Track, 0, relatedCap)
	for _, seed := range seeds {
		if len(out) >= relatedCap {
			break
		}

		var matches []models.Track
		err := s.matchQuery(&seed, "").
			Where("tracks.id NOT IN ?", seedIDs).
			Order("tracks.id ASC").
			Limit(relatedCap).
			Preload("User").
			Find(&matches).Error
		if err != nil {
			return nil, fmt.Errorf("related: match seed %d: %w", seed.ID, err)
		}

		for _, m := range matches {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
			if len(out) >= relatedCap {
				break
			}
		}
	}
	return out, nil
}

// matchQuery builds the substring-match query for one seed track.
func (s *Service) matchQuery(seed *models.Track, viewerID string) *gorm.DB {
	return s.db.Model(&models.Track{}).
		Joins("JOIN users ON users.id = tracks.user_id").
		Scopes(visibility.ScopeTable("tracks", viewerID)).
		Where("LOWER(tracks.title) LIKE ? OR LOWER(tracks.artist) LIKE ? OR LOWER(users.nickname) LIKE ?",
			contains(seed.Title), contains(seed.Artist), contains(seed.User.Nickname))
}

// relatedSeedsFor loads the seed tracks: the user's 3 most recent distinct
// history plays plus 3 most recently liked tracks.
func (s *Service) relatedSeedsFor(userID string) ([]models.Track, error) {
	var historyIDs []uint
	err := s.db.Model(&models.PlayEvent{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(relatedSeeds * 4).
		Pluck("track_id", &historyIDs).Error
	if err != nil {
		return nil, fmt.Errorf("related: load history seeds: %w", err)
	}

	var likedIDs []uint
	err = s.db.Model(&models.TrackLike{}).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(relatedSeeds).
		Pluck("track_id", &likedIDs).Error
	if err != nil {
		return nil, fmt.Errorf("related: load like seeds: %w", err)
	}

	seen := make(map[uint]bool)
	ids := make([]uint, 0, relatedSeeds*2)
	taken := 0
	for _, id := range historyIDs {
		if taken >= relatedSeeds {
			break
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
			taken++
		}
	}
	for _, id := range likedIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var seeds []models.Track
	err = s.db.Preload("User").Where("id IN ?", ids).Find(&seeds).Error
	if err != nil {
		return nil, fmt.Errorf("related: load seed tracks: %w", err)
	}
	return seeds, nil
}

// candidates loads visible tracks, optionally restricted to a genre and to a
// creation window. The genre filter runs in memory against the lowercase
// shadow array.
func (s *Service) candidates(viewerID, genre string, createdSince *time.Time) ([]models.Track, error) {
	q := s.db.Model(&models.Track{}).Scopes(visibility.Scope(viewerID)).Preload("User")
	if createdSince != nil {
		q = q.Where("created_at >= ?", *createdSince)
	}

	var tracks []models.Track
	if err := q.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("charts: load candidates: %w", err)
	}

	if genre == "" {
		return tracks, nil
	}
	filtered := tracks[:0]
	for _, t := range tracks {
		if t.GenreLower.ContainsFold(genre) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// playCounts aggregates play events per track, optionally windowed.
func (s *Service) playCounts(since *time.Time) (map[uint]int64, error) {
	q := s.db.Model(&models.PlayEvent{}).
		Select("track_id, COUNT(*) AS n").
		Group("track_id")
	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}
	return scanCounts(q, "charts: aggregate plays")
}

// likeCounts aggregates likes per track.
func (s *Service) likeCounts() (map[uint]int64, error) {
	q := s.db.Model(&models.TrackLike{}).
		Select("track_id, COUNT(*) AS n").
		Group("track_id")
	return scanCounts(q, "charts: aggregate likes")
}

func scanCounts(q *gorm.DB, opCtx string) (map[uint]int64, error) {
	var rows []struct {
		TrackID uint
		N       int64
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", opCtx, err)
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.TrackID] = r.N
	}
	return counts, nil
}

func sortByPlaysThenLikes(tracks []models.Track, plays, likes map[uint]int64) {
	sort.SliceStable(tracks, func(i, j int) bool {
		pi, pj := plays[tracks[i].ID], plays[tracks[j].ID]
		if pi != pj {
			return pi > pj
		}
		li, lj := likes[tracks[i].ID], likes[tracks[j].ID]
		if li != lj {
			return li > lj
		}
		return tracks[i].ID < tracks[j].ID
	})
}

func truncate(tracks []models.Track, n int) []models.Track {
	if len(tracks) > n {
		return tracks[:n]
	}
	return tracks
}

func contains(s string) string {
	return "%" + strings.ToLower(s) + "%"
}
