package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/wavefm/wave-backend/internal/auth"
	"github.com/wavefm/wave-backend/internal/cache"
	"github.com/wavefm/wave-backend/internal/database"
	"github.com/wavefm/wave-backend/internal/email"
	"github.com/wavefm/wave-backend/internal/handlers"
	"github.com/wavefm/wave-backend/internal/logger"
	"github.com/wavefm/wave-backend/internal/middleware"
	"github.com/wavefm/wave-backend/internal/storage"
	"github.com/wavefm/wave-backend/internal/waveform"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		// .env is optional; system environment wins
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		os.Exit(1)
	}
	defer logger.Close()

	logger.Infof("=== Wave server starting ===")

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Redis is optional; without it the chart response cache is a no-op
	redisClient, err := cache.NewRedisClient(
		os.Getenv("REDIS_HOST"),
		os.Getenv("REDIS_PORT"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		logger.Infof("Warning: redis unavailable, chart caching disabled: %v", err)
	} else {
		defer redisClient.Close()
	}

	// Initialize auth service
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.Fatalf("JWT_SECRET environment variable is required")
	}
	authService := auth.NewService(database.DB, jwtSecret, []byte(os.Getenv("JWT_REFRESH_SECRET")))

	h := handlers.NewHandlers(database.DB, authService)

	// S3 object storage
	s3Store, err := storage.NewS3Store(
		os.Getenv("AWS_REGION"),
		os.Getenv("AWS_BUCKET"),
		os.Getenv("CDN_BASE_URL"),
	)
	if err != nil {
		logger.Fatalf("Failed to initialize S3 store: %v", err)
	}
	if err := s3Store.CheckBucketAccess(context.Background()); err != nil {
		logger.Infof("Warning: S3 bucket access failed: %v", err)
		logger.Infof("Continuing without S3 - uploads will fail")
	} else {
		h.SetUploader(s3Store)
	}

	// SES mailer (optional)
	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		mailer, err := email.NewEmailService(
			os.Getenv("AWS_REGION"),
			from,
			os.Getenv("SES_FROM_NAME"),
			os.Getenv("FRONTEND_BASE_URL"),
		)
		if err != nil {
			logger.Infof("Warning: SES unavailable, password-change email disabled: %v", err)
		} else {
			h.SetMailer(mailer)
		}
	}

	// Waveform generation needs the audiowaveform binary on PATH
	generator := waveform.NewGenerator(os.Getenv("AUDIOWAVEFORM_BIN"))
	if err := generator.Available(); err != nil {
		logger.Infof("Warning: %v; uploads will skip waveform data", err)
	} else {
		h.SetWaveformGenerator(generator)
	}

	r := setupRouter(h, authService)

	srv := &http.Server{
		Addr:    ":" + getEnvOrDefault("PORT", "8080"),
		Handler: r,
	}

	go func() {
		logger.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Forced shutdown: %v", err)
	}
	logger.Infof("Server exited")
}

func setupRouter(h *handlers.Handlers, authService *auth.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.GinLoggerMiddleware())

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"} // Configure properly for production
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := database.Health(); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   "wave-backend",
		})
	})

	required := authService.Middleware()
	optional := authService.OptionalMiddleware()

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.POST("/refresh", h.RefreshTokens)
			authGroup.POST("/logout", required, h.Logout)
			authGroup.PUT("/password", required, h.ChangePassword)
			authGroup.POST("/password-request", required, h.RequestPasswordChange)
			authGroup.POST("/password-confirm", h.ConfirmPasswordChange)
		}

		users := api.Group("/users")
		{
			users.GET("/me", required, h.GetMe)
			users.PUT("/me", required, h.UpdateMe)
			users.PUT("/me/image", required, h.UploadProfileImage)
			users.GET("/random", h.GetRandomUsers)
			users.GET("/:id", h.GetUser)
			users.GET("/:id/tracks", optional, h.GetUserTracks)
			users.GET("/:id/playlists", optional, h.GetUserPlaylists)
			users.GET("/:id/popular", optional, h.GetUserPopular)
			users.GET("/:id/followers", h.GetFollowers)
			users.GET("/:id/following", h.GetFollowing)
			users.GET("/:id/tracks/:permalink", optional, h.GetUserTrackByPermalink)
			users.GET("/:id/playlists/:permalink", optional, h.GetUserPlaylistByPermalink)
		}

		social := api.Group("/social")
		{
			social.Use(required)
			social.POST("/:relation", h.ToggleRelation)
			social.GET("/:relation", h.GetRelationTargets)
		}

		charts := api.Group("/charts")
		{
			charts.Use(optional)
			charts.GET("/:chart", middleware.ResponseCacheMiddleware(5*time.Minute), h.GetChart)
		}

		tracks := api.Group("/tracks")
		{
			tracks.POST("", required, h.UploadTrack)
			tracks.GET("/random", optional, h.GetRandomTracks)
			tracks.GET("/tag/:tag", optional, h.GetTracksByTag)
			tracks.GET("/:id", optional, h.GetTrack)
			tracks.PATCH("/:id", required, h.UpdateTrack)
			tracks.DELETE("/:id", required, h.DeleteTrack)
			tracks.PATCH("/:id/cover", required, h.UpdateTrackCover)
			tracks.GET("/:id/related", optional, h.GetRelatedTracks)
			tracks.GET("/:id/playlists", optional, h.GetTrackPlaylists)
			tracks.POST("/:id/comments", required, h.CreateComment)
			tracks.GET("/:id/comments", optional, h.GetTrackComments)
		}

		api.GET("/discover/related", required, h.GetDiscoverRelated)

		playlists := api.Group("/playlists")
		{
			playlists.POST("", required, h.CreatePlaylist)
			playlists.GET("/tag/:tag", optional, h.GetPlaylistsByTag)
			playlists.GET("/:id", optional, h.GetPlaylist)
			playlists.PATCH("/:id", required, h.UpdatePlaylist)
			playlists.DELETE("/:id", required, h.DeletePlaylist)
			playlists.POST("/:id/tracks", required, h.AddPlaylistTracks)
			playlists.PUT("/:id/tracks", required, h.ReplacePlaylistTracks)
		}

		api.DELETE("/comments/:id", required, h.DeleteComment)

		searchGroup := api.Group("/search")
		{
			searchGroup.Use(optional)
			searchGroup.GET("", h.Search)
			searchGroup.GET("/users", h.SearchUsers)
			searchGroup.GET("/tracks", h.SearchTracks)
			searchGroup.GET("/playlists", h.SearchPlaylists)
		}

		historyGroup := api.Group("/history")
		{
			historyGroup.POST("", optional, h.RecordPlay)
			historyGroup.GET("", required, h.GetHistory)
			historyGroup.DELETE("", required, h.ClearHistory)
		}
	}

	return r
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
