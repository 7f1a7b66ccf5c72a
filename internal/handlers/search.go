package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/util"
)

// Search runs the merged search across users, tracks, and playlists. Paging
// applies to each sub-query independently; the union is sorted by recency.
func (h *Handlers) Search(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	items, err := h.search.All(c.Query("keyword"), p.Skip, p.Take, util.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

// SearchUsers matches users by nickname substring.
func (h *Handlers) SearchUsers(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	users, err := h.search.Users(c.Query("keyword"), p.Skip, p.Take)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// SearchTracks matches visible tracks by title substring.
func (h *Handlers) SearchTracks(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	ts, err := h.search.Tracks(c.Query("keyword"), p.Skip, p.Take, util.ViewerID(c))
	h.respondTracks(c, ts, err)
}

// SearchPlaylists matches visible playlists by name substring.
func (h *Handlers) SearchPlaylists(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	lists, err := h.search.Playlists(c.Query("keyword"), p.Skip, p.Take, util.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": lists})
}
