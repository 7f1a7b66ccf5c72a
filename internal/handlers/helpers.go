package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/auth"
	"github.com/wavefm/wave-backend/internal/charts"
	"github.com/wavefm/wave-backend/internal/history"
	"github.com/wavefm/wave-backend/internal/logger"
	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/playlists"
	"github.com/wavefm/wave-backend/internal/social"
	"github.com/wavefm/wave-backend/internal/tracks"
	"github.com/wavefm/wave-backend/internal/util"
	"go.uber.org/zap"
)

// respondError maps service errors to JSON responses via errors.Is. Anything
// unmapped is an internal error: logged with the request path, reported to the
// client as a bare token.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tracks.ErrNotFound),
		errors.Is(err, playlists.ErrNotFound),
		errors.Is(err, charts.ErrTrackNotFound),
		errors.Is(err, history.ErrTrackNotFound),
		errors.Is(err, social.ErrTargetNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, auth.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
	case errors.Is(err, tracks.ErrNotOwner),
		errors.Is(err, playlists.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
	case errors.Is(err, social.ErrUnknownRelation),
		errors.Is(err, social.ErrBadTargetID),
		errors.Is(err, charts.ErrBadWindow),
		errors.Is(err, util.ErrBadPaging):
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
	default:
		logger.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

// paging parses skip/take query params, responding 400 itself on bad input.
func paging(c *gin.Context) (util.Paging, bool) {
	p, err := util.ParsePaging(c.Query("skip"), c.Query("take"))
	if err != nil {
		respondError(c, err)
		return p, false
	}
	return p, true
}

// pathID parses a numeric :id path param, responding 400 itself on bad input.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := util.ParseUint(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return 0, false
	}
	return id, true
}

// trackView is a track plus its derived counts.
type trackView struct {
	models.Track
	Counts tracks.Counts `json:"counts"`
}

// trackViewsFor attaches batch-computed counts to a track list.
func (h *Handlers) trackViewsFor(ts []models.Track) ([]trackView, error) {
	ids := make([]uint, len(ts))
	for i := range ts {
		ids[i] = ts[i].ID
	}
	counts, err := h.tracks.BatchCounts(ids)
	if err != nil {
		return nil, err
	}
	views := make([]trackView, len(ts))
	for i := range ts {
		views[i] = trackView{Track: ts[i], Counts: counts[ts[i].ID]}
	}
	return views, nil
}

// respondTracks is the common tail of every track-list endpoint.
func (h *Handlers) respondTracks(c *gin.Context, ts []models.Track, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := h.trackViewsFor(ts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": views})
}

func (h *Handlers) respondTrack(c *gin.Context, status int, t *models.Track) {
	counts, err := h.tracks.CountsFor(t.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, gin.H{"track": trackView{Track: *t, Counts: counts}})
}
