package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/playlists"
	"github.com/wavefm/wave-backend/internal/util"
)

// CreatePlaylist creates a playlist with its initial ordered membership. The
// permalink is derived from the name; collisions get a timestamp suffix.
func (h *Handlers) CreatePlaylist(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Name        string              `json:"name" binding:"required"`
		Status      models.EntityStatus `json:"status"`
		Description string              `json:"description"`
		Tags        []string            `json:"tags"`
		TrackIDs    []uint              `json:"track_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if req.Status != "" && !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	playlist, err := h.playlists.Create(playlists.CreateInput{
		UserID:      userID,
		Name:        req.Name,
		Status:      req.Status,
		Description: req.Description,
		Tags:        req.Tags,
		TrackIDs:    req.TrackIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playlist": playlist})
}

// GetPlaylist returns one playlist the viewer may see, tracks in order.
func (h *Handlers) GetPlaylist(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	playlist, err := h.playlists.ByID(id, util.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// GetPlaylistsByTag lists visible playlists carrying the tag, newest first.
func (h *Handlers) GetPlaylistsByTag(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	lists, err := h.playlists.ByTag(c.Param("tag"), util.ViewerID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": lists})
}

// UpdatePlaylist applies the whitelisted fields to an owned playlist.
func (h *Handlers) UpdatePlaylist(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req playlists.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	playlist, err := h.playlists.UpdateInfo(id, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// AddPlaylistTracks appends tracks to the end of an owned playlist.
func (h *Handlers) AddPlaylistTracks(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		TrackIDs []uint `json:"track_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	playlist, err := h.playlists.AddTracks(id, userID, req.TrackIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// ReplacePlaylistTracks rewrites the whole ordered membership, which is also
// how reorder works.
func (h *Handlers) ReplacePlaylistTracks(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		TrackIDs []uint `json:"track_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	playlist, err := h.playlists.ReplaceTracks(id, userID, req.TrackIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlist": playlist})
}

// DeletePlaylist removes an owned playlist.
func (h *Handlers) DeletePlaylist(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.playlists.Delete(id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "playlist deleted"})
}
