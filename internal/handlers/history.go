package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/util"
)

// RecordPlay stores a play event. Anonymous plays count toward the charts but
// never appear in anyone's personal history.
func (h *Handlers) RecordPlay(c *gin.Context) {
	var req struct {
		TrackID uint `json:"track_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	event, err := h.history.Record(util.ViewerID(c), req.TrackID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"play": event})
}

// GetHistory returns the caller's listening history, one row per track
// (the most recent play), newest first.
func (h *Handlers) GetHistory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	p, ok := paging(c)
	if !ok {
		return
	}

	events, err := h.history.Recent(userID, p.Skip, p.Take)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": events})
}

// ClearHistory empties the caller's personal history. Play counts feeding the
// charts are unaffected.
func (h *Handlers) ClearHistory(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.history.Clear(userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "history cleared"})
}
