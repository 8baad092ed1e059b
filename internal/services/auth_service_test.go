package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/mock/gomock"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/testutil"
)

func (s *accountSuite) register(email string) *dto.AuthResponse {
	resp, err := s.auth.Register(s.ctx, &dto.RegisterRequest{Email: email, Password: "password123", FirstName: "Yahya"})
	s.Require().NoError(err)
	return resp
}

func (s *accountSuite) TestRegister() {
	resp := s.register("  Yahya@Example.com")
	s.Equal("yahya@example.com", resp.User.Email)
	s.Equal("yahya", resp.User.Username)
	s.Equal(models.RoleUser, resp.User.Role)
	s.NotEmpty(resp.AccessToken)
	s.NotEmpty(resp.RefreshToken)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	s.Require().NoError(err)
	s.Equal(resp.User.ID.String(), claims["sub"])
	s.Equal(models.RoleUser, claims["role"])

	_, err = s.auth.Register(s.ctx, &dto.RegisterRequest{Email: "yahya@example.com", Password: "password123"})
	s.ErrorIs(err, ErrEmailTaken)

	_, err = s.auth.Register(s.ctx, &dto.RegisterRequest{Email: "no-at-sign", Password: "password123"})
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))

	_, err = s.auth.Register(s.ctx, &dto.RegisterRequest{Email: "short@example.com", Password: "1234567"})
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))
}

func (s *accountSuite) TestRegisterAdmin() {
	req := &dto.RegisterRequest{Email: "office@example.com", Password: "password123"}

	_, err := s.auth.RegisterAdmin(s.ctx, "wrong", req)
	s.Equal(apperr.CodeAuthorization, apperr.CodeOf(err))

	resp, err := s.auth.RegisterAdmin(s.ctx, "bootstrap-token", req)
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, resp.User.Role)

	s.cfg.AdminToken = ""
	_, err = s.auth.RegisterAdmin(s.ctx, "", &dto.RegisterRequest{Email: "other@example.com", Password: "password123"})
	s.Equal(apperr.CodeAuthorization, apperr.CodeOf(err))
}

func (s *accountSuite) TestLoginAndRefreshRotation() {
	s.register("musa@example.com")

	_, err := s.auth.Login(s.ctx, &dto.LoginRequest{Email: "musa@example.com", Password: "wrong-password"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.auth.Login(s.ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials)

	login, err := s.auth.Login(s.ctx, &dto.LoginRequest{Email: "MUSA@example.com", Password: "password123"})
	s.Require().NoError(err)

	rotated, err := s.auth.Refresh(s.ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	s.Require().NoError(err)
	s.NotEqual(login.RefreshToken, rotated.RefreshToken)

	_, err = s.auth.Refresh(s.ctx, &dto.RefreshRequest{RefreshToken: login.RefreshToken})
	s.ErrorIs(err, ErrInvalidToken)

	s.Require().NoError(s.auth.Logout(s.ctx, &dto.LogoutRequest{RefreshToken: rotated.RefreshToken}))
	_, err = s.auth.Refresh(s.ctx, &dto.RefreshRequest{RefreshToken: rotated.RefreshToken})
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *accountSuite) TestRefreshRejectsExpiredToken() {
	resp := s.register("expiring@example.com")
	s.auth.now = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }

	_, err := s.auth.Refresh(s.ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	s.ErrorIs(err, ErrInvalidToken)

	var stored models.RefreshToken
	s.Require().NoError(s.db.First(&stored, "token_hash = ?", hashToken(resp.RefreshToken)).Error)
	s.True(stored.Revoked)
}

// TestConcurrentRefresh spends one refresh token from several goroutines;
// only one of them may get a new pair.
func (s *accountSuite) TestConcurrentRefresh() {
	resp := s.register("rotating@example.com")

	const attempts = 5
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.auth.Refresh(context.Background(), &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrInvalidToken):
				losses++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(attempts-1, losses)

	var live int64
	s.Require().NoError(s.db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", resp.User.ID, false).Count(&live).Error)
	s.EqualValues(1, live, "only the rotated token stays usable")
}

func (s *accountSuite) TestPasswordReset() {
	s.register("reset@example.com")

	var body string
	s.mailer.EXPECT().Send(gomock.Any(), "reset@example.com", "Reset your password", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, b string) error {
			body = b
			return nil
		})

	s.Require().NoError(s.auth.ForgotPassword(s.ctx, "Reset@Example.com"))
	token := linkToken(body, "https://app.example.com/reset-password/")
	s.Require().NotEmpty(token)
	s.Contains(body, "from now")

	// Unknown addresses succeed silently and send nothing.
	s.Require().NoError(s.auth.ForgotPassword(s.ctx, "ghost@example.com"))

	err := s.auth.ResetPassword(s.ctx, token, "short")
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))
	err = s.auth.ResetPassword(s.ctx, "forged", "new-password-1")
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))

	s.Require().NoError(s.auth.ResetPassword(s.ctx, token, "new-password-1"))

	_, err = s.auth.Login(s.ctx, &dto.LoginRequest{Email: "reset@example.com", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.auth.Login(s.ctx, &dto.LoginRequest{Email: "reset@example.com", Password: "new-password-1"})
	s.NoError(err)

	err = s.auth.ResetPassword(s.ctx, token, "new-password-2")
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err), "reset tokens are single use")
}

func (s *accountSuite) TestPasswordResetExpires() {
	s.register("slow@example.com")

	var body string
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, b string) error {
			body = b
			return nil
		})
	s.Require().NoError(s.auth.ForgotPassword(s.ctx, "slow@example.com"))

	s.auth.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	err := s.auth.ResetPassword(s.ctx, linkToken(body, "/reset-password/"), "new-password-1")
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))
}

func (s *accountSuite) TestDeleteAccount() {
	resp := s.register("leaving@example.com")

	err := s.auth.DeleteAccount(s.ctx, resp.User.ID, "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)

	s.Require().NoError(s.auth.DeleteAccount(s.ctx, resp.User.ID, "password123"))

	_, err = s.auth.Login(s.ctx, &dto.LoginRequest{Email: "leaving@example.com", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.auth.Refresh(s.ctx, &dto.RefreshRequest{RefreshToken: resp.RefreshToken})
	s.ErrorIs(err, ErrInvalidToken)

	// The address stays taken by the soft-deleted account.
	_, err = s.auth.Register(s.ctx, &dto.RegisterRequest{Email: "leaving@example.com", Password: "password123"})
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *accountSuite) TestProfile() {
	shaykh := testutil.CreateUser(s.T(), s.db, models.RoleShaykh)

	about := "  Teaches fiqh of worship  "
	years := 9
	got, err := s.users.UpdateProfile(s.ctx, shaykh.ID, dto.UpdateProfileRequest{About: &about, YearsOfExperience: &years})
	s.Require().NoError(err)
	s.Equal("Teaches fiqh of worship", got.About)
	s.Equal(9, got.YearsOfExperience)
	s.Equal(shaykh.FirstName, got.FirstName)

	negative := -1
	_, err = s.users.UpdateProfile(s.ctx, shaykh.ID, dto.UpdateProfileRequest{YearsOfExperience: &negative})
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))

	err = s.users.ChangePassword(s.ctx, shaykh.ID, dto.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "another-pass"})
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))
	s.Require().NoError(s.users.ChangePassword(s.ctx, shaykh.ID, dto.ChangePasswordRequest{
		CurrentPassword: testutil.Password, NewPassword: "another-pass",
	}))
	_, err = s.auth.Login(s.ctx, &dto.LoginRequest{Email: shaykh.Email, Password: "another-pass"})
	s.NoError(err)
}

func (s *accountSuite) TestShaykhAdministration() {
	owner := testutil.CreateUser(s.T(), s.db, models.RoleUser)

	_, err := s.users.RegisterShaykh(s.ctx, principal(owner), shaykhRequest("direct@example.com"))
	s.Equal(apperr.CodeAuthorization, apperr.CodeOf(err))

	shaykh, err := s.users.RegisterShaykh(s.ctx, principal(s.admin), shaykhRequest("direct@example.com"))
	s.Require().NoError(err)
	s.Equal(models.RoleShaykh, shaykh.Role)

	shaykhs, err := s.users.ListShaykhs(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(shaykhs, 1)
	s.Equal(shaykh.ID, shaykhs[0].ID)

	err = s.users.DeleteShaykh(s.ctx, principal(s.admin), owner.ID)
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))
	err = s.users.DeleteShaykh(s.ctx, principal(owner), shaykh.ID)
	s.Equal(apperr.CodeAuthorization, apperr.CodeOf(err))

	s.Require().NoError(s.users.DeleteShaykh(s.ctx, principal(s.admin), shaykh.ID))
	shaykhs, err = s.users.ListShaykhs(s.ctx)
	s.Require().NoError(err)
	s.Empty(shaykhs)

	_, err = s.users.Profile(s.ctx, shaykh.ID)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *accountSuite) TestSettings() {
	user := testutil.CreateUser(s.T(), s.db, models.RoleUser)

	profile, err := s.users.Profile(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(models.UserSettings{Language: "en", EmailNotifications: true, PushNotifications: true}, profile.Settings)

	lang, off, dark := " AR ", false, true
	got, err := s.users.UpdateSettings(s.ctx, user.ID, dto.UpdateSettingsRequest{
		Language: &lang, EmailNotifications: &off, DarkMode: &dark,
	})
	s.Require().NoError(err)
	s.Equal(models.UserSettings{Language: "ar", EmailNotifications: false, PushNotifications: true, DarkMode: true}, *got)

	// Fields left out keep their value.
	got, err = s.users.UpdateSettings(s.ctx, user.ID, dto.UpdateSettingsRequest{PushNotifications: &off})
	s.Require().NoError(err)
	s.Equal("ar", got.Language)
	s.False(got.PushNotifications)
	s.True(got.DarkMode)

	empty := "  "
	_, err = s.users.UpdateSettings(s.ctx, user.ID, dto.UpdateSettingsRequest{Language: &empty})
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))
}

func (s *accountSuite) TestAssignmentMailHonoursOptOut() {
	cases := NewCaseService(s.db, s.metrics, s.mailer)
	fatwas := NewFatwaService(cases)
	owner := testutil.CreateUser(s.T(), s.db, models.RoleUser)
	quiet := testutil.CreateUser(s.T(), s.db, models.RoleShaykh)
	loud := testutil.CreateUser(s.T(), s.db, models.RoleShaykh)

	off := false
	_, err := s.users.UpdateSettings(s.ctx, quiet.ID, dto.UpdateSettingsRequest{EmailNotifications: &off})
	s.Require().NoError(err)

	c, err := fatwas.Create(s.ctx, principal(owner), dto.CreateFatwaRequest{Title: "Zakat on savings", Question: "Is zakat due on a pension fund?"})
	s.Require().NoError(err)

	// No expectation is set: a notice to the opted-out shaykh fails the test.
	_, err = fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: quiet.ID.String()})
	s.Require().NoError(err)

	s.mailer.EXPECT().Send(gomock.Any(), loud.Email, gomock.Any(), gomock.Any()).Return(nil).Times(1)
	_, err = fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: loud.ID.String()})
	s.Require().NoError(err)
	s.Equal([]uuid.UUID{loud.ID}, s.assignees(c.ID))
}

func (s *accountSuite) assignees(caseID uuid.UUID) []uuid.UUID {
	var rows []models.CaseAssignee
	s.Require().NoError(s.db.Where("case_id = ?", caseID).Find(&rows).Error)
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ShaykhID)
	}
	return ids
}
