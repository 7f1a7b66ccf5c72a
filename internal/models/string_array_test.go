package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringArrayScanValue(t *testing.T) {
	var a StringArray
	require.NoError(t, a.Scan("{house,deep house,techno}"))
	assert.Equal(t, StringArray{"house", "deep house", "techno"}, a)

	v, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, "{house,deep house,techno}", v)

	require.NoError(t, a.Scan(nil))
	assert.Nil(t, a)

	require.NoError(t, a.Scan("{}"))
	assert.Equal(t, StringArray{}, a)
}

func TestStringArrayContainsFold(t *testing.T) {
	a := StringArray{"House", "Deep House"}
	assert.True(t, a.ContainsFold("house"))
	assert.True(t, a.ContainsFold("DEEP HOUSE"))
	assert.False(t, a.ContainsFold("hous"))
	assert.False(t, StringArray(nil).ContainsFold("house"))
}

func TestTrackShadowsFollowCanonicalFields(t *testing.T) {
	track := Track{Genre: StringArray{"House"}, Tags: StringArray{"Chill", "SUMMER"}}
	track.SyncShadows()
	assert.Equal(t, StringArray{"house"}, track.GenreLower)
	assert.Equal(t, StringArray{"chill", "summer"}, track.TagsLower)

	track.Genre = nil
	track.SyncShadows()
	assert.Nil(t, track.GenreLower)
}

func TestEntityStatusValid(t *testing.T) {
	assert.True(t, StatusPublic.Valid())
	assert.True(t, StatusPrivate.Valid())
	assert.False(t, EntityStatus("").Valid())
	assert.False(t, EntityStatus("hidden").Valid())
}
