package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wavefm/wave-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	accessTokenTTL  = 1 * time.Hour
	refreshTokenTTL = 14 * 24 * time.Hour

	// short-lived token embedded in the password-change email link
	passwordTokenTTL = 10 * time.Minute
)

// Service handles registration, login, and token lifecycle.
type Service struct {
	db            *gorm.DB
	jwtSecret     []byte
	refreshSecret []byte
}

// NewService creates an auth service. refreshSecret may equal jwtSecret; a
// distinct value keeps access tokens unusable as refresh tokens.
func NewService(db *gorm.DB, jwtSecret, refreshSecret []byte) *Service {
	if len(refreshSecret) == 0 {
		refreshSecret = jwtSecret
	}
	return &Service{db: db, jwtSecret: jwtSecret, refreshSecret: refreshSecret}
}

// TokenPair is issued on login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RegisterRequest carries a native registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=8"`
	Nickname string `json:"nickname" binding:"required,min=1,max=50"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// Register creates a user. A taken username is a hard conflict.
func (s *Service) Register(req RegisterRequest) (*models.User, error) {
	var existing models.User
	err := s.db.Where("LOWER(username) = LOWER(?)", req.Username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("register: check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user := models.User{
		Username:     req.Username,
		Nickname:     req.Nickname,
		Email:        req.Email,
		PasswordHash: string(hashed),
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("register: create user: %w", err)
	}
	return &user, nil
}

// Login authenticates a username/password pair and issues a token pair. The
// refresh token's digest is persisted on the user row.
func (s *Service) Login(username, password string) (*models.User, *TokenPair, error) {
	var user models.User
	err := s.db.Where("LOWER(username) = LOWER(?)", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("login: load user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Refresh rotates a token pair. The presented refresh token must match the
// digest stored on the user row, so a stolen pre-rotation token dies on use.
func (s *Service) Refresh(refreshToken string) (*models.User, *TokenPair, error) {
	userID, err := s.parseToken(refreshToken, s.refreshSecret)
	if err != nil {
		return nil, nil, err
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, nil, ErrUserNotFound
	}
	if user.HashedRefreshToken == nil {
		return nil, nil, ErrInvalidToken
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.HashedRefreshToken), tokenDigest(refreshToken)) != nil {
		return nil, nil, ErrInvalidToken
	}

	pair, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, pair, nil
}

// Logout drops the stored refresh token digest.
func (s *Service) Logout(userID string) error {
	err := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("hashed_refresh_token", nil).Error
	if err != nil {
		return fmt.Errorf("logout %s: %w", userID, err)
	}
	return nil
}

// ChangePassword verifies the current password and replaces it.
func (s *Service) ChangePassword(userID, current, next string) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	return s.setPassword(&user, next)
}

// PasswordChangeToken issues the short-lived token embedded in the
// password-change email link.
func (s *Service) PasswordChangeToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"scope":   "password_change",
		"exp":     time.Now().Add(passwordTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign password token: %w", err)
	}
	return token, nil
}

// ConfirmPasswordChange validates an emailed token and sets the new password.
func (s *Service) ConfirmPasswordChange(token, newPassword string) error {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || claims["scope"] != "password_change" {
		return ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}
	return s.setPassword(&user, newPassword)
}

// ValidateAccess parses an access token and loads the fresh user row.
func (s *Service) ValidateAccess(token string) (*models.User, error) {
	userID, err := s.parseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (s *Service) setPassword(user *models.User, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hashed)
	if err := s.db.Save(user).Error; err != nil {
		return fmt.Errorf("save password for %s: %w", user.ID, err)
	}
	return nil
}

func (s *Service) issueTokens(user *models.User) (*TokenPair, error) {
	expiresAt := time.Now().Add(accessTokenTTL)

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(refreshTokenTTL).Unix(),
		"iat":     time.Now().Unix(),
	}).SignedString(s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword(tokenDigest(refresh), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}
	hashedStr := string(hashed)
	user.HashedRefreshToken = &hashedStr
	if err := s.db.Model(user).Update("hashed_refresh_token", hashedStr).Error; err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}, nil
}

func (s *Service) parseToken(token string, secret []byte) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// tokenDigest pre-hashes a JWT before bcrypt, which caps input at 72 bytes.
func tokenDigest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return []byte(hex.EncodeToString(sum[:]))
}
