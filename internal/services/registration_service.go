package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

const (
	minTokenDays = 1
	maxTokenDays = 30

	invalidTokenMessage = "invalid or expired registration token"
)

// RegistrationService issues and redeems single-use shaykh registration
// tokens. Only a hash of each token is stored.
type RegistrationService struct {
	db      *gorm.DB
	cfg     *config.Config
	mailer  notify.Mailer
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRegistrationService(db *gorm.DB, cfg *config.Config, mailer notify.Mailer, m *metrics.Metrics) *RegistrationService {
	return &RegistrationService{
		db:      db,
		cfg:     cfg,
		mailer:  mailer,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *RegistrationService) Issue(ctx context.Context, p workflow.Principal, req dto.IssueTokenRequest) (*dto.RegistrationTokenResponse, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("only admins can issue registration tokens")
	}
	days := req.ExpiryDays
	if days == 0 {
		days = s.cfg.RegistrationTokenDays
	}
	if days < minTokenDays || days > maxTokenDays {
		return nil, apperr.Newf(apperr.CodeValidation, "expiry days must be between %d and %d", minTokenDays, maxTokenDays)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	raw, err := randomToken()
	if err != nil {
		return nil, err
	}
	now := s.now()
	record := models.RegistrationToken{
		TokenHash: hashToken(raw),
		Email:     email,
		ExpiresAt: now.AddDate(0, 0, days),
		CreatedBy: p.ID,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("store registration token: %w", err)
	}

	resp := &dto.RegistrationTokenResponse{
		Token:         raw,
		ExpiresAt:     record.ExpiresAt,
		ExpiresIn:     humanize.RelTime(record.ExpiresAt, now, "ago", "from now"),
		ActivationURL: strings.TrimRight(s.cfg.FrontendURL, "/") + "/register/shaykh/" + raw,
	}
	slog.Info("registration token issued", "principal_id", p.ID.String(), "token_id", record.ID.String(), "days", days)

	if email != "" {
		subject, body := notify.ShaykhInvitation(resp.ActivationURL, resp.ExpiresIn)
		if err := s.mailer.Send(ctx, email, subject, body); err != nil {
			slog.Warn("registration invitation failed", "token_id", record.ID.String(), "error", err)
		}
	}
	return resp, nil
}

// Verify reports whether token can still be redeemed. Unknown, used and
// expired tokens are indistinguishable to the caller.
func (s *RegistrationService) Verify(ctx context.Context, token string) (*dto.TokenVerification, error) {
	var record models.RegistrationToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, apperr.CodeNotFound, invalidTokenMessage)
	}
	if err != nil {
		return nil, fmt.Errorf("find registration token: %w", err)
	}
	if !record.Usable(s.now()) {
		return nil, apperr.Wrap(unusableReason(&record), apperr.CodeNotFound, invalidTokenMessage)
	}
	return &dto.TokenVerification{Valid: true, ExpiresAt: record.ExpiresAt, Email: record.Email}, nil
}

// Consume redeems token and creates the shaykh account in one transaction.
// The token is claimed with a single conditional update, so of several
// concurrent redemptions at most one matches a row. If the account cannot
// be created the claim is rolled back with it.
func (s *RegistrationService) Consume(ctx context.Context, token string, req dto.ShaykhRegistrationRequest) (*models.User, error) {
	hash := hashToken(token)
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		result := tx.Model(&models.RegistrationToken{}).
			Where("token_hash = ? AND is_used = ? AND expires_at > ?", hash, false, now).
			Updates(map[string]interface{}{"is_used": true, "used_at": now})
		if result.Error != nil {
			return fmt.Errorf("claim registration token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return s.claimFailure(tx, hash)
		}

		user = shaykhFrom(req)
		if err := createAccount(tx, user, req.Password); err != nil {
			return err
		}
		return tx.Model(&models.RegistrationToken{}).Where("token_hash = ?", hash).Update("used_by", user.ID).Error
	})

	switch code := apperr.CodeOf(err); {
	case err == nil:
		s.metrics.IncrementTokenConsumption("ok")
	case code == apperr.CodeNotFound:
		s.metrics.IncrementTokenConsumption("invalid")
		return nil, err
	default:
		s.metrics.IncrementTokenConsumption("error")
		return nil, err
	}

	slog.Info("shaykh registered with token", "shaykh_id", user.ID.String())
	return user, nil
}

func (s *RegistrationService) claimFailure(tx *gorm.DB, hash string) error {
	var record models.RegistrationToken
	if err := tx.Where("token_hash = ?", hash).First(&record).Error; err != nil {
		return apperr.Wrap(apperr.ErrNotFound, apperr.CodeNotFound, invalidTokenMessage)
	}
	return apperr.Wrap(unusableReason(&record), apperr.CodeNotFound, invalidTokenMessage)
}

func unusableReason(t *models.RegistrationToken) error {
	if t.IsUsed {
		return apperr.ErrAlreadyUsed
	}
	return apperr.ErrExpired
}

// List returns every token, newest first. Secrets are never returned.
func (s *RegistrationService) List(ctx context.Context, p workflow.Principal) ([]models.RegistrationToken, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("only admins can list registration tokens")
	}
	var tokens []models.RegistrationToken
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("list registration tokens: %w", err)
	}
	return tokens, nil
}

// Revoke deletes a token that has not been used yet.
func (s *RegistrationService) Revoke(ctx context.Context, p workflow.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("only admins can revoke registration tokens")
	}
	result := s.db.WithContext(ctx).Where("id = ? AND is_used = ?", id, false).Delete(&models.RegistrationToken{})
	if result.Error != nil {
		return fmt.Errorf("revoke registration token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("registration token not found or already used")
	}
	slog.Info("registration token revoked", "principal_id", p.ID.String(), "token_id", id.String())
	return nil
}
