package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaging(t *testing.T) {
	tests := []struct {
		name    string
		skip    string
		take    string
		want    Paging
		wantErr bool
	}{
		{name: "defaults", skip: "", take: "", want: Paging{Skip: 0, Take: 10}},
		{name: "explicit", skip: "5", take: "20", want: Paging{Skip: 5, Take: 20}},
		{name: "zero take", skip: "0", take: "0", want: Paging{Skip: 0, Take: 0}},
		{name: "negative skip", skip: "-1", take: "10", wantErr: true},
		{name: "negative take", skip: "0", take: "-5", wantErr: true},
		{name: "non numeric", skip: "abc", take: "10", wantErr: true},
		{name: "float", skip: "1.5", take: "10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePaging(tt.skip, tt.take)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadPaging)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My First Song", "my-first-song"},
		{"  Trimmed  ", "trimmed"},
		{"Ünïcode & symbols!", "ncode--symbols"},
		{"already-slugged_ok", "already-slugged_ok"},
		{"UPPER", "upper"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}
