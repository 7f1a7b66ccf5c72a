package tracks

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/util"
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
		&models.User{}, &models.Track{}, &models.TrackLike{}, &models.TrackRepost{},
		&models.Playlist{}, &models.PlaylistTrack{}, &models.PlayEvent{}, &models.Comment{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := models.User{Username: username, Nickname: username, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func TestCreateDefaultsAndShadows(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")

	track, err := repo.Create(CreateInput{
		UserID:   owner.ID,
		Title:    "My First Song",
		AudioURL: "https://cdn.test/a.mp3",
		Genre:    []string{"Deep House"},
		Tags:     []string{"Chill", "SUMMER"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPublic, track.Status)
	assert.Equal(t, "my-first-song", track.Permalink, "permalink derives from the title")
	assert.Equal(t, models.StringArray{"deep house"}, track.GenreLower)
	assert.Equal(t, models.StringArray{"chill", "summer"}, track.TagsLower)
}

func TestCreatePermalinkCollisionGetsSuffix(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")

	first, err := repo.Create(CreateInput{UserID: owner.ID, Title: "Song", Permalink: "song", AudioURL: "u"})
	require.NoError(t, err)

	second, err := repo.Create(CreateInput{UserID: owner.ID, Title: "Song", Permalink: "song", AudioURL: "u"})
	require.NoError(t, err, "a permalink collision is not an error")

	assert.Equal(t, "song", first.Permalink)
	assert.True(t, strings.HasPrefix(second.Permalink, "song_"), "collision gets a timestamp suffix, got %q", second.Permalink)
	assert.NotEqual(t, first.Permalink, second.Permalink)
}

func TestCreatePermalinkSameSlugDifferentOwners(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	a, err := repo.Create(CreateInput{UserID: alice.ID, Title: "Song", Permalink: "song", AudioURL: "u"})
	require.NoError(t, err)
	b, err := repo.Create(CreateInput{UserID: bob.ID, Title: "Song", Permalink: "song", AudioURL: "u"})
	require.NoError(t, err)

	// uniqueness is per owner
	assert.Equal(t, "song", a.Permalink)
	assert.Equal(t, "song", b.Permalink)
}

func TestByIDVisibility(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")

	track, err := repo.Create(CreateInput{
		UserID: owner.ID, Title: "Hidden", Permalink: "hidden",
		Status: models.StatusPrivate, AudioURL: "u",
	})
	require.NoError(t, err)

	_, err = repo.ByID(track.ID, "")
	assert.ErrorIs(t, err, ErrNotFound, "private tracks resolve to not-found for strangers")

	got, err := repo.ByID(track.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hidden", got.Title)
}

func TestByPermalink(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")

	_, err := repo.Create(CreateInput{UserID: owner.ID, Title: "Song", Permalink: "song", AudioURL: "u"})
	require.NoError(t, err)

	got, err := repo.ByPermalink("alice", "song", "")
	require.NoError(t, err)
	assert.Equal(t, "Song", got.Title)

	_, err = repo.ByPermalink("alice", "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateInfoWhitelistAndShadowRecompute(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")

	track, err := repo.Create(CreateInput{
		UserID: owner.ID, Title: "Song", Permalink: "song", AudioURL: "u",
		Genre: []string{"House"},
	})
	require.NoError(t, err)

	newTitle := "Renamed"
	newGenre := []string{"Techno", "ACID"}
	got, err := repo.UpdateInfo(track.ID, owner.ID, UpdateInput{Title: &newTitle, Genre: &newGenre})
	require.NoError(t, err)

	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "song", got.Permalink, "permalink survives a rename")
	assert.Equal(t, models.StringArray{"techno", "acid"}, got.GenreLower, "shadow array tracks the update")

	_, err = repo.UpdateInfo(track.ID, other.ID, UpdateInput{Title: &newTitle})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestByTag(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")

	_, err := repo.Create(CreateInput{UserID: owner.ID, Title: "A", Permalink: "a", AudioURL: "u",
		Tags: []string{"Chill"}})
	require.NoError(t, err)
	_, err = repo.Create(CreateInput{UserID: owner.ID, Title: "B", Permalink: "b", AudioURL: "u",
		Tags: []string{"upbeat"}})
	require.NoError(t, err)
	_, err = repo.Create(CreateInput{UserID: owner.ID, Title: "C", Permalink: "c", AudioURL: "u",
		Status: models.StatusPrivate, Tags: []string{"chill"}})
	require.NoError(t, err)

	got, err := repo.ByTag("CHILL", "", util.Paging{Skip: 0, Take: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)
}

func TestDeleteCascadesAndReturnsTrack(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")

	track, err := repo.Create(CreateInput{UserID: owner.ID, Title: "Song", Permalink: "song",
		AudioURL: "u", AudioKey: "tracks/x.mp3"})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.TrackLike{UserID: owner.ID, TrackID: track.ID}).Error)
	require.NoError(t, db.Create(&models.Comment{UserID: owner.ID, TrackID: track.ID, Text: "hi"}).Error)
	require.NoError(t, db.Create(&models.PlayEvent{TrackID: track.ID}).Error)

	deleted, err := repo.Delete(track.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "tracks/x.mp3", deleted.AudioKey, "caller needs the keys for storage cleanup")

	for _, model := range []interface{}{&models.Track{}, &models.TrackLike{}, &models.Comment{}, &models.PlayEvent{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n)
	}
}

func TestCountsFor(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	owner := seedUser(t, db, "alice")
	fan := seedUser(t, db, "bob")

	track, err := repo.Create(CreateInput{UserID: owner.ID, Title: "Song", Permalink: "song", AudioURL: "u"})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.TrackLike{UserID: fan.ID, TrackID: track.ID}).Error)
	require.NoError(t, db.Create(&models.TrackRepost{UserID: fan.ID, TrackID: track.ID}).Error)
	require.NoError(t, db.Create(&models.PlayEvent{TrackID: track.ID}).Error)
	require.NoError(t, db.Create(&models.PlayEvent{TrackID: track.ID}).Error)

	counts, err := repo.CountsFor(track.ID)
	require.NoError(t, err)
	assert.Equal(t, Counts{Likes: 1, Reposts: 1, Plays: 2}, counts)
}
