package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (*models.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	set := func(column string, v *string) {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	set("username", req.Username)
	set("first_name", req.FirstName)
	set("last_name", req.LastName)
	set("phone_number", req.PhoneNumber)
	set("address", req.Address)
	set("educational_institution", req.EducationalInstitution)
	set("about", req.About)
	if req.YearsOfExperience != nil {
		if *req.YearsOfExperience < 0 {
			return nil, apperr.Validation("years of experience cannot be negative")
		}
		updates["years_of_experience"] = *req.YearsOfExperience
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.Profile(ctx, userID)
}

const maxLanguageTag = 10

func (s *UserService) UpdateSettings(ctx context.Context, userID uuid.UUID, req dto.UpdateSettingsRequest) (*models.UserSettings, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*req.Language))
		if lang == "" || len(lang) > maxLanguageTag {
			return nil, apperr.Validation("language must be a language tag such as en or ar")
		}
		updates["settings_language"] = lang
	}
	if req.EmailNotifications != nil {
		updates["settings_email_notifications"] = *req.EmailNotifications
	}
	if req.PushNotifications != nil {
		updates["settings_push_notifications"] = *req.PushNotifications
	}
	if req.DarkMode != nil {
		updates["settings_dark_mode"] = *req.DarkMode
	}
	if len(updates) == 0 {
		return &user.Settings, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	if user, err = s.Profile(ctx, userID); err != nil {
		return nil, err
	}
	return &user.Settings, nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req dto.ChangePasswordRequest) error {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return apperr.Validation("current password is incorrect")
	}
	if len(req.NewPassword) < minPasswordLength {
		return apperr.Newf(apperr.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), passwordCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.db.WithContext(ctx).Model(user).Update("password", string(hash)).Error
}

// RegisterShaykh creates a shaykh account on an admin's behalf.
func (s *UserService) RegisterShaykh(ctx context.Context, p workflow.Principal, req dto.ShaykhRegistrationRequest) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, apperr.Forbidden("only admins can register shaykhs")
	}
	user := shaykhFrom(req)
	if err := createAccount(s.db.WithContext(ctx), user, req.Password); err != nil {
		return nil, err
	}
	slog.Info("shaykh registered", "principal_id", p.ID.String(), "shaykh_id", user.ID.String())
	return user, nil
}

// ListShaykhs returns every active shaykh ordered by name.
func (s *UserService) ListShaykhs(ctx context.Context) ([]models.User, error) {
	var shaykhs []models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.RoleShaykh).
		Order("first_name ASC, last_name ASC").
		Find(&shaykhs).Error
	if err != nil {
		return nil, fmt.Errorf("list shaykhs: %w", err)
	}
	return shaykhs, nil
}

// DeleteShaykh soft-deletes a shaykh account. Existing assignments are
// left in place and count for nothing in workload figures.
func (s *UserService) DeleteShaykh(ctx context.Context, p workflow.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return apperr.Forbidden("only admins can remove shaykhs")
	}
	result := s.db.WithContext(ctx).Where("id = ? AND role = ?", id, models.RoleShaykh).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("delete shaykh: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("shaykh not found")
	}
	slog.Info("shaykh removed", "principal_id", p.ID.String(), "shaykh_id", id.String())
	return nil
}

func shaykhFrom(req dto.ShaykhRegistrationRequest) *models.User {
	return &models.User{
		Email:                  req.Email,
		Username:               strings.TrimSpace(req.Username),
		Role:                   models.RoleShaykh,
		FirstName:              strings.TrimSpace(req.FirstName),
		LastName:               strings.TrimSpace(req.LastName),
		PhoneNumber:            strings.TrimSpace(req.PhoneNumber),
		Address:                strings.TrimSpace(req.Address),
		YearsOfExperience:      req.YearsOfExperience,
		EducationalInstitution: strings.TrimSpace(req.EducationalInstitution),
		About:                  strings.TrimSpace(req.About),
	}
}
