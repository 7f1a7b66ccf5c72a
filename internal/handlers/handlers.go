package handlers

import (
	"github.com/wavefm/wave-backend/internal/auth"
	"github.com/wavefm/wave-backend/internal/charts"
	"github.com/wavefm/wave-backend/internal/email"
	"github.com/wavefm/wave-backend/internal/history"
	"github.com/wavefm/wave-backend/internal/playlists"
	"github.com/wavefm/wave-backend/internal/search"
	"github.com/wavefm/wave-backend/internal/social"
	"github.com/wavefm/wave-backend/internal/storage"
	"github.com/wavefm/wave-backend/internal/tracks"
	"github.com/wavefm/wave-backend/internal/waveform"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db        *gorm.DB
	auth      *auth.Service
	tracks    *tracks.Repository
	playlists *playlists.Repository
	charts    *charts.Service
	search    *search.Service
	history   *history.Service
	social    *social.Engine

	uploader          storage.Uploader
	mailer            *email.EmailService
	waveformGenerator *waveform.Generator
}

// NewHandlers creates a new handlers instance wired to the given store.
func NewHandlers(db *gorm.DB, authService *auth.Service) *Handlers {
	return &Handlers{
		db:        db,
		auth:      authService,
		tracks:    tracks.NewRepository(db),
		playlists: playlists.NewRepository(db),
		charts:    charts.NewService(db),
		search:    search.NewService(db),
		history:   history.NewService(db),
		social:    social.NewEngine(db),
	}
}

// SetUploader sets the object store used for audio, cover, and profile images.
func (h *Handlers) SetUploader(uploader storage.Uploader) {
	h.uploader = uploader
}

// SetMailer sets the mailer used for password-change emails.
func (h *Handlers) SetMailer(mailer *email.EmailService) {
	h.mailer = mailer
}

// SetWaveformGenerator sets the waveform generator used by the upload pipeline.
func (h *Handlers) SetWaveformGenerator(generator *waveform.Generator) {
	h.waveformGenerator = generator
}
