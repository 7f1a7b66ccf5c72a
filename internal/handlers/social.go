package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/social"
	"github.com/wavefm/wave-backend/internal/util"
)

// ToggleRelation flips membership of a target in the caller's relation set:
// absent targets are added, present targets removed. The response reports the
// action taken plus the full resulting set in insertion order.
func (h *Handlers) ToggleRelation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	rel, err := social.ParseRelation(c.Param("relation"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req struct {
		TargetID string `json:"target_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	result, err := h.social.Toggle(userID, rel, req.TargetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetRelationTargets returns the caller's full target set for a relation, in
// insertion order.
func (h *Handlers) GetRelationTargets(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	rel, err := social.ParseRelation(c.Param("relation"))
	if err != nil {
		respondError(c, err)
		return
	}

	targets, err := h.social.TargetsOf(userID, rel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"targets": targets})
}
