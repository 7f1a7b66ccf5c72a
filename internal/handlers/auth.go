package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/auth"
	"github.com/wavefm/wave-backend/internal/logger"
	"github.com/wavefm/wave-backend/internal/util"
	"go.uber.org/zap"
)

// Register creates a new account. A taken username is a hard conflict.
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	user, err := h.auth.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login authenticates username/password and returns the user, a token pair,
// and the 10 most recent history rows.
func (h *Handlers) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	user, pair, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	recent, err := h.history.Recent(user.ID, 0, 10)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"tokens":  pair,
		"history": recent,
	})
}

// RefreshTokens rotates an access/refresh token pair.
func (h *Handlers) RefreshTokens(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	user, pair, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tokens": pair})
}

// Logout invalidates the stored refresh token.
func (h *Handlers) Logout(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if err := h.auth.Logout(userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePassword replaces the password after verifying the current one.
func (h *Handlers) ChangePassword(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	if err := h.auth.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

// RequestPasswordChange emails a short-lived password-change link. The
// response does not reveal whether the account has an email on file.
func (h *Handlers) RequestPasswordChange(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if h.mailer == nil || user.Email == "" {
		c.JSON(http.StatusOK, gin.H{"message": "request accepted"})
		return
	}

	token, err := h.auth.PasswordChangeToken(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.mailer.SendPasswordChangeEmail(c.Request.Context(), user.Email, token); err != nil {
		logger.Log.Error("failed to send password change email",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request accepted"})
}

// ConfirmPasswordChange sets a new password using an emailed token.
func (h *Handlers) ConfirmPasswordChange(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	if err := h.auth.ConfirmPasswordChange(req.Token, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}
