package visibility

import (
	"fmt"
	"strings"
	"testing"

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
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Track{}))
	return db
}

func TestScope(t *testing.T) {
	db := openTestDB(t)

	owner := models.User{Username: "alice", Nickname: "Alice", PasswordHash: "x"}
	require.NoError(t, db.Create(&owner).Error)
	stranger := models.User{Username: "bob", Nickname: "Bob", PasswordHash: "x"}
	require.NoError(t, db.Create(&stranger).Error)

	pub := models.Track{UserID: owner.ID, Title: "Pub", Permalink: "pub",
		Status: models.StatusPublic, AudioURL: "u"}
	require.NoError(t, db.Create(&pub).Error)
	priv := models.Track{UserID: owner.ID, Title: "Priv", Permalink: "priv",
		Status: models.StatusPrivate, AudioURL: "u"}
	require.NoError(t, db.Create(&priv).Error)

	load := func(viewerID string) []string {
		var tracks []models.Track
		require.NoError(t, db.Model(&models.Track{}).Scopes(Scope(viewerID)).Order("id").Find(&tracks).Error)
		names := make([]string, len(tracks))
		for i := range tracks {
			names[i] = tracks[i].Title
		}
		return names
	}

	assert.Equal(t, []string{"Pub"}, load(""), "anonymous sees public only")
	assert.Equal(t, []string{"Pub"}, load(stranger.ID), "stranger sees public only")
	assert.Equal(t, []string{"Pub", "Priv"}, load(owner.ID), "owner sees their private rows")
}

func TestPublicOnlyIgnoresOwnership(t *testing.T) {
	db := openTestDB(t)

	owner := models.User{Username: "alice", Nickname: "Alice", PasswordHash: "x"}
	require.NoError(t, db.Create(&owner).Error)
	priv := models.Track{UserID: owner.ID, Title: "Priv", Permalink: "priv",
		Status: models.StatusPrivate, AudioURL: "u"}
	require.NoError(t, db.Create(&priv).Error)

	var n int64
	require.NoError(t, db.Model(&models.Track{}).Scopes(PublicOnly()).Count(&n).Error)
	assert.Zero(t, n)
}
