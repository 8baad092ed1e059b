package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/notify"
)

const minPasswordLength = 8

var (
	ErrEmailTaken         = apperr.Conflict("email already registered")
	ErrUserNotFound       = apperr.NotFound("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
)

// passwordCost is lowered by tests.
var passwordCost = bcrypt.DefaultCost

type AuthService struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer notify.Mailer
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, cfg *config.Config, mailer notify.Mailer) *AuthService {
	return &AuthService{
		db:     db,
		cfg:    cfg,
		mailer: mailer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	user := models.User{
		Email:     req.Email,
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      models.RoleUser,
	}
	if err := createAccount(s.db.WithContext(ctx), &user, req.Password); err != nil {
		return nil, err
	}
	return s.generateTokenPair(ctx, &user)
}

// RegisterAdmin creates an admin account. The caller must present the
// configured admin token.
func (s *AuthService) RegisterAdmin(ctx context.Context, adminToken string, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if s.cfg.AdminToken == "" || subtle.ConstantTimeCompare([]byte(adminToken), []byte(s.cfg.AdminToken)) != 1 {
		return nil, apperr.Forbidden("invalid admin token")
	}
	user := models.User{
		Email:     req.Email,
		Username:  strings.TrimSpace(req.Username),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      models.RoleAdmin,
	}
	if err := createAccount(s.db.WithContext(ctx), &user, req.Password); err != nil {
		return nil, err
	}
	slog.Info("admin account created", "principal_id", user.ID.String())
	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	var user models.User
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	db := s.db.WithContext(ctx)
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, ErrInvalidToken
	}

	// Rotation: the presented token is spent whether or not it is still valid.
	// The revoked guard lets only one concurrent refresh spend it.
	res := db.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", stored.ID, false).
		Update("revoked", true)
	if res.Error != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected != 1 {
		return nil, ErrInvalidToken
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, ErrInvalidToken
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(req.RefreshToken)).
		Update("revoked", true).Error
}

// DeleteAccount soft-deletes the user after confirming the password. Cases
// the user opened are kept.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID, password string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return ErrUserNotFound
	}

	if password == "" {
		return apperr.Validation("password is required")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		return tx.Delete(&user).Error
	})
}

// ForgotPassword mails a reset link when the email belongs to an account.
// It never reveals whether it does.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.Validation("email is required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	raw, err := randomToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(s.cfg.PasswordResetExpiry)
	err = s.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"reset_password_hash":       hashToken(raw),
		"reset_password_expires_at": expires,
	}).Error
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password/" + raw
	subject, body := notify.PasswordReset(resetURL, humanize.RelTime(expires, s.now(), "ago", "from now"))
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		slog.Warn("password reset email failed", "principal_id", user.ID.String(), "error", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLength {
		return apperr.Newf(apperr.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("reset_password_hash = ? AND reset_password_expires_at > ?", hashToken(token), s.now()).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("invalid or expired reset token")
	}
	if err != nil {
		return fmt.Errorf("find reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&user).Updates(map[string]interface{}{
			"password":                  string(hash),
			"reset_password_hash":       "",
			"reset_password_expires_at": nil,
		}).Error
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return tx.Model(&models.RefreshToken{}).Where("user_id = ?", user.ID).Update("revoked", true).Error
	})
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  user.Role,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawToken, err := randomToken()
	if err != nil {
		return "", err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: s.now().Add(s.cfg.JWTRefreshExpiry),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

// createAccount validates and stores a new user with a hashed password.
func createAccount(tx *gorm.DB, user *models.User, password string) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return apperr.Newf(apperr.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	// Soft-deleted accounts still hold their email.
	var n int64
	if err := tx.Unscoped().Model(&models.User{}).Where("email = ?", user.Email).Count(&n).Error; err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hash)
	if user.Username == "" {
		user.Username = strings.Split(user.Email, "@")[0]
	}

	if err := tx.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func userResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// randomToken returns 32 random bytes, URL-safe encoded.
func randomToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
