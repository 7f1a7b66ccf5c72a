package charts

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavefm/wave-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Follow{},
		&models.Track{}, &models.TrackLike{}, &models.TrackRepost{},
		&models.Playlist{}, &models.PlaylistTrack{}, &models.PlaylistLike{}, &models.PlaylistRepost{},
		&models.PlayEvent{}, &models.Comment{},
	))
	return db
}

func newUser(t *testing.T, db *gorm.DB, username, nickname string) *models.User {
	t.Helper()
	u := models.User{Username: username, Nickname: nickname, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func newTrack(t *testing.T, db *gorm.DB, owner *models.User, title string, status models.EntityStatus, genre ...string) *models.Track {
	t.Helper()
	tr := models.Track{
		UserID:    owner.ID,
		Title:     title,
		Permalink: strings.ToLower(title),
		Status:    status,
		AudioURL:  "https://cdn.test/" + title,
		Genre:     models.StringArray(genre),
	}
	require.NoError(t, db.Create(&tr).Error)
	return &tr
}

func addPlays(t *testing.T, db *gorm.DB, trackID uint, at time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&models.PlayEvent{TrackID: trackID, CreatedAt: at}).Error)
	}
}

func addLikes(t *testing.T, db *gorm.DB, trackID uint, users ...*models.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, db.Create(&models.TrackLike{UserID: u.ID, TrackID: trackID}).Error)
	}
}

func titles(ts []models.Track) []string {
	out := make([]string, len(ts))
	for i := range ts {
		out[i] = ts[i].Title
	}
	return out
}

func TestTrendingDefaultWindowWithLikeTiebreak(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	owner := newUser(t, db, "alice", "Alice")
	fan1 := newUser(t, db, "bob", "Bob")
	fan2 := newUser(t, db, "carol", "Carol")

	a := newTrack(t, db, owner, "Alpha", models.StatusPublic)
	b := newTrack(t, db, owner, "Beta", models.StatusPublic)
	c := newTrack(t, db, owner, "Gamma", models.StatusPublic)

	inWindow := now.Add(-24 * time.Hour)
	outOfWindow := now.AddDate(0, 0, -10)

	addPlays(t, db, a.ID, inWindow, 2)
	addPlays(t, db, b.ID, inWindow, 2)
	addPlays(t, db, c.ID, inWindow, 1)
	// plays outside the window must not count
	addPlays(t, db, c.ID, outOfWindow, 50)

	// b wins the tie on total like count
	addLikes(t, db, b.ID, fan1, fan2)
	addLikes(t, db, a.ID, fan1)

	got, err := svc.Trending(Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, titles(got))
}

func TestTrendingExplicitWindowIgnoresLikes(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	owner := newUser(t, db, "alice", "Alice")
	fan := newUser(t, db, "bob", "Bob")

	a := newTrack(t, db, owner, "Alpha", models.StatusPublic)
	b := newTrack(t, db, owner, "Beta", models.StatusPublic)

	addPlays(t, db, a.ID, now.Add(-time.Hour), 1)
	addPlays(t, db, b.ID, now.Add(-time.Hour), 1)
	// with an explicit window the like count is not a tiebreak, so the
	// lower track ID wins the tie
	addLikes(t, db, b.ID, fan)

	got, err := svc.Trending(Query{Window: "7"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, titles(got))
}

func TestTrendingGenreFilterAndVisibility(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	owner := newUser(t, db, "alice", "Alice")

	house := newTrack(t, db, owner, "HousePub", models.StatusPublic, "House")
	newTrack(t, db, owner, "TechnoPub", models.StatusPublic, "Techno")
	hidden := newTrack(t, db, owner, "HousePriv", models.StatusPrivate, "house")

	addPlays(t, db, house.ID, now.Add(-time.Hour), 1)
	addPlays(t, db, hidden.ID, now.Add(-time.Hour), 5)

	// anonymous viewer: private track filtered out, genre matched
	// case-insensitively
	got, err := svc.Trending(Query{Genre: "house"})
	require.NoError(t, err)
	assert.Equal(t, []string{"HousePub"}, titles(got))

	// the owner sees their own private track
	got, err = svc.Trending(Query{Genre: "HOUSE", ViewerID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"HousePriv", "HousePub"}, titles(got))
}

func TestTrendingBadWindow(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	_, err := svc.Trending(Query{Window: "fortnight"})
	assert.ErrorIs(t, err, ErrBadWindow)
}

func TestNewReleaseWindowAndOrdering(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	// real clock: the window start must land between the old track's
	// backdated created_at and the fresh tracks' insertion time
	now := time.Now()

	owner := newUser(t, db, "alice", "Alice")

	fresh := newTrack(t, db, owner, "Fresh", models.StatusPublic)
	fresher := newTrack(t, db, owner, "Fresher", models.StatusPublic)
	old := newTrack(t, db, owner, "Old", models.StatusPublic)
	require.NoError(t, db.Model(old).Update("created_at", now.AddDate(0, 0, -30)).Error)

	// all-time plays order the result, window only gates membership
	addPlays(t, db, fresher.ID, now.AddDate(0, 0, -60), 3)
	addPlays(t, db, fresh.ID, now.Add(-time.Hour), 1)
	addPlays(t, db, old.ID, now.Add(-time.Hour), 99)

	got, err := svc.NewRelease(Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fresher", "Fresh"}, titles(got))
}

func TestPopularForThreshold(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	owner := newUser(t, db, "alice", "Alice")
	other := newUser(t, db, "bob", "Bob")

	hit := newTrack(t, db, owner, "Hit", models.StatusPublic)
	meh := newTrack(t, db, owner, "Meh", models.StatusPublic)
	foreign := newTrack(t, db, other, "Foreign", models.StatusPublic)

	// the threshold is strictly more than 9 all-time plays
	addPlays(t, db, hit.ID, time.Now(), 10)
	addPlays(t, db, meh.ID, time.Now(), 9)
	addPlays(t, db, foreign.ID, time.Now(), 50)

	got, err := svc.PopularFor(owner.ID, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hit"}, titles(got))
}

func TestRelatedMatchesTitleArtistAndNickname(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	owner := newUser(t, db, "alice", "Sunset Collective")
	other := newUser(t, db, "bob", "Bob")

	seed := models.Track{
		UserID: owner.ID, Title: "Midnight Drive", Artist: "Nova",
		Permalink: "midnight-drive", Status: models.StatusPublic, AudioURL: "u",
	}
	require.NoError(t, db.Create(&seed).Error)

	byTitle := newTrack(t, db, other, "midnight drive (remix)", models.StatusPublic)
	byArtist := models.Track{UserID: other.ID, Title: "Other", Artist: "Supernova",
		Permalink: "other", Status: models.StatusPublic, AudioURL: "u"}
	require.NoError(t, db.Create(&byArtist).Error)
	byNickname := newTrack(t, db, owner, "Unrelated Name", models.StatusPublic)
	noMatch := newTrack(t, db, other, "Something Else", models.StatusPublic)

	got, err := svc.Related(seed.ID, "", 0, 10)
	require.NoError(t, err)

	names := titles(got)
	assert.Contains(t, names, byTitle.Title)
	assert.Contains(t, names, byArtist.Title)
	assert.Contains(t, names, byNickname.Title)
	assert.NotContains(t, names, noMatch.Title)
	assert.NotContains(t, names, seed.Title, "seed must be excluded")
}

func TestRelatedSeedNotFound(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	_, err := svc.Related(999, "", 0, 10)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestRelatedForIsPublicOnly(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	listener := newUser(t, db, "len", "Listener")
	artist := newUser(t, db, "art", "Artist")

	seed := newTrack(t, db, artist, "Echoes", models.StatusPublic)
	pub := newTrack(t, db, artist, "Echoes Reprise", models.StatusPublic)
	// even the listener's own private tracks stay out of the personalized form
	priv := models.Track{UserID: listener.ID, Title: "Echoes Bootleg",
		Permalink: "echoes-bootleg", Status: models.StatusPrivate, AudioURL: "u"}
	require.NoError(t, db.Create(&priv).Error)

	uid := listener.ID
	require.NoError(t, db.Create(&models.PlayEvent{UserID: &uid, TrackID: seed.ID, CreatedAt: time.Now()}).Error)

	got, err := svc.RelatedFor(listener.ID)
	require.NoError(t, err)

	names := titles(got)
	assert.Contains(t, names, pub.Title)
	assert.NotContains(t, names, priv.Title)
	assert.NotContains(t, names, seed.Title, "seeds must be excluded")
}

func TestRelatedForNoSeeds(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	u := newUser(t, db, "empty", "Empty")
	got, err := svc.RelatedFor(u.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}
