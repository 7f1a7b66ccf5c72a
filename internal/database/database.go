package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wavefm/wave-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize() error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		// Fallback to individual components
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "5432")
		user := getEnvOrDefault("DB_USER", "postgres")
		password := getEnvOrDefault("DB_PASSWORD", "")
		dbname := getEnvOrDefault("DB_NAME", "wave")
		sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	// Configure GORM logger
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	// Open database connection
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("✅ Database connected successfully")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Track{},
		&models.TrackLike{},
		&models.TrackRepost{},
		&models.Playlist{},
		&models.PlaylistTrack{},
		&models.PlaylistLike{},
		&models.PlaylistRepost{},
		&models.PlayEvent{},
		&models.Comment{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes for performance
	err = createIndexes()
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("✅ Database migrations completed")
	return nil
}

// createIndexes creates performance indexes
func createIndexes() error {
	// User indexes
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_users_nickname_lower ON users (LOWER(nickname))")

	// Relation edges: at most one edge per (owner, target) pair
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_follows_unique ON follows (follower_id, followee_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_track_likes_unique ON track_likes (user_id, track_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_track_reposts_unique ON track_reposts (user_id, track_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_playlist_likes_unique ON playlist_likes (user_id, playlist_id)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_playlist_reposts_unique ON playlist_reposts (user_id, playlist_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows (followee_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_track_likes_track ON track_likes (track_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_track_reposts_track ON track_reposts (track_id)")

	// Permalinks are unique per owner
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_tracks_owner_permalink ON tracks (user_id, permalink)")
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_playlists_owner_permalink ON playlists (user_id, permalink)")

	// Track indexes for chart and profile queries
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_tracks_user_created ON tracks (user_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_tracks_status_created ON tracks (status, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_tracks_genre_lower ON tracks USING GIN (genre_lower)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_tracks_tags_lower ON tracks USING GIN (tags_lower)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_playlists_tags_lower ON playlists USING GIN (tags_lower)")

	// Play event indexes for windowed aggregation and history
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_play_events_track_created ON play_events (track_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_play_events_user_created ON play_events (user_id, created_at DESC) WHERE user_id IS NOT NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_play_events_user_track ON play_events (user_id, track_id)")

	// Playlist membership, ordered scans by position
	DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_playlist_tracks_unique ON playlist_tracks (playlist_id, track_id)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_playlist_tracks_position ON playlist_tracks (playlist_id, position)")

	// Comment indexes for efficient retrieval
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_track_created ON comments (track_id, created_at DESC)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_user ON comments (user_id)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
