package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/logger"
	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/social"
	"github.com/wavefm/wave-backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetMe returns the authenticated user's profile.
func (h *Handlers) GetMe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateMe applies the whitelisted profile fields.
func (h *Handlers) UpdateMe(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Nickname    *string `json:"nickname"`
		Description *string `json:"description"`
		Email       *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	if req.Nickname != nil {
		user.Nickname = *req.Nickname
	}
	if req.Description != nil {
		user.Description = *req.Description
	}
	if req.Email != nil {
		user.Email = *req.Email
	}

	if err := h.db.Save(user).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UploadProfileImage replaces the profile image. The new object is stored
// before the old one is deleted; a failed delete of the old object is logged
// and not fatal.
func (h *Handlers) UploadProfileImage(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, err)
		return
	}

	stored, err := h.uploader.Store(c.Request.Context(), data, "profile-images", user.ID, header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	oldKey := user.ProfileImageKey
	user.ProfileImageURL = stored.URL
	user.ProfileImageKey = stored.Key
	if err := h.db.Save(user).Error; err != nil {
		respondError(c, err)
		return
	}

	if oldKey != "" {
		if err := h.uploader.Delete(c.Request.Context(), oldKey); err != nil {
			logger.Log.Warn("failed to delete old profile image",
				zap.String("user_id", user.ID),
				zap.String("key", oldKey),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetUser returns a user by ID.
func (h *Handlers) GetUser(c *gin.Context) {
	var user models.User
	err := h.db.First(&user, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// GetRandomUsers returns up to take users in random order.
func (h *Handlers) GetRandomUsers(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}

	users := []models.User{}
	if err := h.db.Order("RANDOM()").Limit(p.Take).Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUserTracks lists a user's tracks the viewer may see, newest first.
func (h *Handlers) GetUserTracks(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	ts, err := h.tracks.ByOwner(c.Param("id"), util.ViewerID(c), p)
	h.respondTracks(c, ts, err)
}

// GetUserPlaylists lists a user's playlists the viewer may see, newest first.
func (h *Handlers) GetUserPlaylists(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	lists, err := h.playlists.ByOwner(c.Param("id"), util.ViewerID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": lists})
}

// GetUserPopular returns the user's most played tracks above the popularity
// threshold.
func (h *Handlers) GetUserPopular(c *gin.Context) {
	ts, err := h.charts.PopularFor(c.Param("id"), util.ViewerID(c))
	h.respondTracks(c, ts, err)
}

// GetFollowers lists the IDs of users following :id.
func (h *Handlers) GetFollowers(c *gin.Context) {
	followers, err := h.social.OwnersOf(social.RelationFollow, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": followers})
}

// GetFollowing lists the IDs of users that :id follows.
func (h *Handlers) GetFollowing(c *gin.Context) {
	following, err := h.social.TargetsOf(c.Param("id"), social.RelationFollow)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// GetUserTrackByPermalink resolves a track by owner username and permalink.
func (h *Handlers) GetUserTrackByPermalink(c *gin.Context) {
	track, err := h.tracks.ByPermalink(c.Param("id"), c.Param("permalink"), util.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondTrack(c, http.StatusOK, track)
}

// GetUserPlaylistByPermalink resolves a playlist by owner username and
// permalink.
func (h *Handlers) GetUserPlaylistByPermalink(c *gin.Context) {
	playlist, err := h.playlists.ByPermalink(c.Param("id"), c.Param("permalink"), util.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}
