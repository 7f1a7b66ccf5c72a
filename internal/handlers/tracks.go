package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/wavefm/wave-backend/internal/logger"
	"github.com/wavefm/wave-backend/internal/models"
	"github.com/wavefm/wave-backend/internal/tracks"
	"github.com/wavefm/wave-backend/internal/util"
	"go.uber.org/zap"
)

// UploadTrack handles the multipart upload pipeline: waveform generation,
// audio and optional cover upload, then row creation with permalink dedup.
func (h *Handlers) UploadTrack(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
		return
	}

	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	status := models.EntityStatus(c.PostForm("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	audioFile, audioHeader, err := c.Request.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	defer audioFile.Close()

	audioData, err := io.ReadAll(audioFile)
	if err != nil {
		respondError(c, err)
		return
	}

	waveformJSON := ""
	if h.waveformGenerator != nil {
		ext := filepath.Ext(audioHeader.Filename)
		waveformJSON, err = h.waveformGenerator.Generate(c.Request.Context(), audioData, ext)
		if err != nil {
			logger.Log.Warn("waveform generation failed",
				zap.String("filename", audioHeader.Filename),
				zap.Error(err),
			)
			waveformJSON = ""
		}
	}

	audio, err := h.uploader.Store(c.Request.Context(), audioData, "tracks", userID, audioHeader.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	coverURL, coverKey, coverName := "", "", ""
	if coverFile, coverHeader, err := c.Request.FormFile("cover"); err == nil {
		coverData, err := readAndClose(coverFile)
		if err != nil {
			respondError(c, err)
			return
		}
		cover, err := h.uploader.Store(c.Request.Context(), coverData, "covers", userID, coverHeader.Filename)
		if err != nil {
			respondError(c, err)
			return
		}
		coverURL, coverKey, coverName = cover.URL, cover.Key, coverHeader.Filename
	}

	track, err := h.tracks.Create(tracks.CreateInput{
		UserID:       userID,
		Title:        title,
		Permalink:    c.PostForm("permalink"),
		Status:       status,
		AudioURL:     audio.URL,
		AudioKey:     audio.Key,
		Filename:     audioHeader.Filename,
		Duration:     util.ParseFloat(c.PostForm("duration"), 0),
		WaveformJSON: waveformJSON,
		CoverURL:     coverURL,
		CoverKey:     coverKey,
		Artist:       c.PostForm("artist"),
		Album:        c.PostForm("album"),
		Description:  c.PostForm("description"),
		Genre:        c.PostFormArray("genre"),
		Tags:         c.PostFormArray("tags"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if coverName != "" {
		h.db.Model(track).Update("cover_filename", coverName)
		track.CoverFilename = coverName
	}

	h.respondTrack(c, http.StatusCreated, track)
}

func readAndClose(file multipart.File) ([]byte, error) {
	defer file.Close()
	return io.ReadAll(file)
}

// GetTrack returns one track the viewer may see.
func (h *Handlers) GetTrack(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	track, err := h.tracks.ByID(id, util.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondTrack(c, http.StatusOK, track)
}

// GetRandomTracks returns up to take visible tracks in random order.
func (h *Handlers) GetRandomTracks(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	ts, err := h.tracks.Random(p.Take, util.ViewerID(c))
	h.respondTracks(c, ts, err)
}

// GetTracksByTag lists visible tracks carrying the tag, newest first.
func (h *Handlers) GetTracksByTag(c *gin.Context) {
	p, ok := paging(c)
	if !ok {
		return
	}
	ts, err := h.tracks.ByTag(c.Param("tag"), util.ViewerID(c), p)
	h.respondTracks(c, ts, err)
}

// GetRelatedTracks returns tracks related to a seed by title, artist, or
// owner nickname substring. The seed itself never appears.
func (h *Handlers) GetRelatedTracks(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, ok := paging(c)
	if !ok {
		return
	}
	ts, err := h.charts.Related(id, util.ViewerID(c), p.Skip, p.Take)
	h.respondTracks(c, ts, err)
}

// GetDiscoverRelated returns the personalized related list seeded from the
// viewer's recent plays and likes.
func (h *Handlers) GetDiscoverRelated(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ts, err := h.charts.RelatedFor(userID)
	h.respondTracks(c, ts, err)
}

// GetTrackPlaylists lists visible playlists containing the track.
func (h *Handlers) GetTrackPlaylists(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, ok := paging(c)
	if !ok {
		return
	}
	lists, err := h.playlists.ContainingTrack(id, util.ViewerID(c), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": lists})
}

// UpdateTrack applies the whitelisted metadata fields to an owned track.
func (h *Handlers) UpdateTrack(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req tracks.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	track, err := h.tracks.UpdateInfo(id, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.respondTrack(c, http.StatusOK, track)
}

// UpdateTrackCover replaces the cover image. The new object is stored before
// the old one is deleted; a failed old-object delete is logged, not fatal.
func (h *Handlers) UpdateTrackCover(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
		return
	}

	existing, err := h.tracks.Owned(id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	file, header, err := c.Request.FormFile("cover")
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

	stored, err := h.uploader.Store(c.Request.Context(), data, "covers", userID, header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	oldKey := existing.CoverKey
	track, err := h.tracks.SetCover(id, userID, stored.URL, stored.Key)
	if err != nil {
		respondError(c, err)
		return
	}

	if oldKey != "" {
		if err := h.uploader.Delete(c.Request.Context(), oldKey); err != nil {
			logger.Log.Warn("failed to delete old cover",
				zap.Uint("track_id", id),
				zap.String("key", oldKey),
				zap.Error(err),
			)
		}
	}

	h.respondTrack(c, http.StatusOK, track)
}

// DeleteTrack removes an owned track and its stored objects.
func (h *Handlers) DeleteTrack(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	track, err := h.tracks.Delete(id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.uploader != nil {
		for _, key := range []string{track.AudioKey, track.CoverKey} {
			if key == "" {
				continue
			}
			if err := h.uploader.Delete(c.Request.Context(), key); err != nil {
				logger.Log.Warn("failed to delete stored object",
					zap.Uint("track_id", id),
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "track deleted"})
}
