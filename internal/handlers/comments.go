package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/util"
	"gorm.io/gorm"
)

// CreateComment posts a comment on a track, optionally anchored to a second
// offset in the audio.
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	trackID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Text        string   `json:"text" binding:"required"`
		TrackSecond *float64 `json:"track_second"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	// the track must be visible to the commenter
	if _, err := h.tracks.ByID(trackID, userID); err != nil {
		respondError(c, err)
		return
	}

	comment := models.Comment{
		UserID:      userID,
		TrackID:     trackID,
		Text:        req.Text,
		TrackSecond: req.TrackSecond,
	}
	if err := h.db.Create(&comment).Error; err != nil {
		respondError(c, err)
		return
	}
	h.db.Preload("User").First(&comment, comment.ID)

	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// GetTrackComments lists a track's comments, newest first.
func (h *Handlers) GetTrackComments(c *gin.Context) {
	trackID, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, ok := paging(c)
	if !ok {
		return
	}

	if _, err := h.tracks.ByID(trackID, util.ViewerID(c)); err != nil {
		respondError(c, err)
		return
	}

	comments := []models.Comment{}
	err := h.db.Model(&models.Comment{}).
		Where("track_id = ?", trackID).
		Order("created_at DESC").
		Offset(p.Skip).
		Limit(p.Take).
		Preload("User").
		Find(&comments).Error
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// DeleteComment removes the caller's own comment.
func (h *Handlers) DeleteComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var comment models.Comment
	err := h.db.First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if comment.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_owner"})
		return
	}

	if err := h.db.Delete(&comment).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}
