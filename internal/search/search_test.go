package search

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
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Track{}, &models.Playlist{}))
	return db
}

func TestAllMergesByRecency(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	u := models.User{Username: "wavelover", Nickname: "wave rider", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)

	tr := models.Track{UserID: u.ID, Title: "Wave Form", Permalink: "wave-form",
		Status: models.StatusPublic, AudioURL: "u"}
	require.NoError(t, db.Create(&tr).Error)

	pl := models.Playlist{UserID: u.ID, Name: "Waves Only", Permalink: "waves-only",
		Status: models.StatusPublic}
	require.NoError(t, db.Create(&pl).Error)

	// pin distinct updated_at values: track newest, then user, then playlist
	base := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&pl).Update("updated_at", base).Error)
	require.NoError(t, db.Model(&u).Update("updated_at", base.Add(time.Minute)).Error)
	require.NoError(t, db.Model(&tr).Update("updated_at", base.Add(2*time.Minute)).Error)

	got, err := svc.All("wave", 0, 10, "")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, []Kind{KindTrack, KindUser, KindPlaylist}, []Kind{got[0].Kind, got[1].Kind, got[2].Kind})
}

func TestAllRespectsVisibility(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	owner := models.User{Username: "owner", Nickname: "Owner", PasswordHash: "x"}
	require.NoError(t, db.Create(&owner).Error)

	hidden := models.Track{UserID: owner.ID, Title: "Secret Wave", Permalink: "secret-wave",
		Status: models.StatusPrivate, AudioURL: "u"}
	require.NoError(t, db.Create(&hidden).Error)

	got, err := svc.All("secret", 0, 10, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.All("secret", 0, 10, owner.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, KindTrack, got[0].Kind)
}

func TestSubQueriesPageIndependently(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	owner := models.User{Username: "owner", Nickname: "mix master", PasswordHash: "x"}
	require.NoError(t, db.Create(&owner).Error)

	for i := 0; i < 3; i++ {
		tr := models.Track{UserID: owner.ID, Title: fmt.Sprintf("mix %d", i),
			Permalink: fmt.Sprintf("mix-%d", i), Status: models.StatusPublic, AudioURL: "u"}
		require.NoError(t, db.Create(&tr).Error)
	}

	// take=2 caps each sub-query separately: 2 tracks plus the user
	got, err := svc.All("mix", 0, 2, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestUsersMatchesNicknameCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)

	u := models.User{Username: "x1", Nickname: "DJ Thunder", PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)

	got, err := svc.Users("thunder", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "DJ Thunder", got[0].Nickname)
}
