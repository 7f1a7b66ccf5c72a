package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/charts"
	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/util"
)

// GetChart serves the trend and newrelease charts. The window comes from the
// date query param ("week", "month", or an integer day count); a repeated
// genre param returns one ranked list per genre.
func (h *Handlers) GetChart(c *gin.Context) {
	var compute func(charts.Query) ([]models.Track, error)
	switch c.Param("chart") {
	case "trend":
		compute = h.charts.Trending
	case "newrelease":
		compute = h.charts.NewRelease
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	window := c.Query("date")
	viewerID := util.ViewerID(c)
	genres := c.QueryArray("genre")

	if len(genres) > 1 {
		groups := make([]gin.H, 0, len(genres))
		for _, genre := range genres {
			ts, err := compute(charts.Query{Genre: genre, Window: window, ViewerID: viewerID})
			if err != nil {
				respondError(c, err)
				return
			}
			views, err := h.trackViewsFor(ts)
			if err != nil {
				respondError(c, err)
				return
			}
			groups = append(groups, gin.H{"genre": genre, "tracks": views})
		}
		c.JSON(http.StatusOK, gin.H{"charts": groups})
		return
	}

	genre := ""
	if len(genres) == 1 {
		genre = genres[0]
	}
	ts, err := compute(charts.Query{Genre: genre, Window: window, ViewerID: viewerID})
	h.respondTracks(c, ts, err)
}
