package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

func (s *accountSuite) issue() string {
	resp, err := s.registrations.Issue(s.ctx, principal(s.admin), dto.IssueTokenRequest{})
	s.Require().NoError(err)
	return resp.Token
}

func (s *accountSuite) TestIssue() {
	s.Run("defaults to configured lifetime", func() {
		resp, err := s.registrations.Issue(s.ctx, principal(s.admin), dto.IssueTokenRequest{})
		s.Require().NoError(err)
		s.NotEmpty(resp.Token)
		s.Equal("https://app.example.com/register/shaykh/"+resp.Token, resp.ActivationURL)
		s.WithinDuration(time.Now().AddDate(0, 0, 7), resp.ExpiresAt, time.Minute)
		s.Contains(resp.ExpiresIn, "from now")

		var stored models.RegistrationToken
		s.Require().NoError(s.db.First(&stored, "token_hash = ?", hashToken(resp.Token)).Error)
		s.NotEqual(resp.Token, stored.TokenHash)
		s.Equal(s.admin.ID, stored.CreatedBy)
	})

	s.Run("rejects out of range lifetimes", func() {
		for _, days := range []int{-1, 31} {
			_, err := s.registrations.Issue(s.ctx, principal(s.admin), dto.IssueTokenRequest{ExpiryDays: days})
			s.Equal(apperr.CodeValidation, apperr.CodeOf(err), "days=%d", days)
		}
	})

	s.Run("admins only", func() {
		shaykh := testutil.CreateUser(s.T(), s.db, models.RoleShaykh)
		_, err := s.registrations.Issue(s.ctx, principal(shaykh), dto.IssueTokenRequest{})
		s.Equal(apperr.CodeAuthorization, apperr.CodeOf(err))
	})
}

func (s *accountSuite) TestIssueMailsInvitation() {
	var body string
	s.mailer.EXPECT().Send(gomock.Any(), "invitee@example.com", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, b string) error {
			body = b
			return nil
		})

	resp, err := s.registrations.Issue(s.ctx, principal(s.admin), dto.IssueTokenRequest{Email: " Invitee@Example.com ", ExpiryDays: 3})
	s.Require().NoError(err)
	s.Contains(body, resp.ActivationURL)
	s.Equal(resp.Token, linkToken(body, "/register/shaykh/"))

	v, err := s.registrations.Verify(s.ctx, resp.Token)
	s.Require().NoError(err)
	s.True(v.Valid)
	s.Equal("invitee@example.com", v.Email)
}

func (s *accountSuite) TestInvitationFailureDoesNotFailIssue() {
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	resp, err := s.registrations.Issue(s.ctx, principal(s.admin), dto.IssueTokenRequest{Email: "invitee@example.com"})
	s.Require().NoError(err)
	s.NotEmpty(resp.Token)
}

func (s *accountSuite) TestConsumeCreatesShaykh() {
	token := s.issue()

	user, err := s.registrations.Consume(s.ctx, token, shaykhRequest("new.shaykh@example.com"))
	s.Require().NoError(err)
	s.Equal(models.RoleShaykh, user.Role)
	s.Equal("new.shaykh", user.Username)
	s.Equal("Al-Azhar", user.EducationalInstitution)

	var stored models.RegistrationToken
	s.Require().NoError(s.db.First(&stored, "token_hash = ?", hashToken(token)).Error)
	s.True(stored.IsUsed)
	s.Require().NotNil(stored.UsedBy)
	s.Equal(user.ID, *stored.UsedBy)
	s.NotNil(stored.UsedAt)

	_, err = s.registrations.Consume(s.ctx, token, shaykhRequest("second@example.com"))
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))
	s.ErrorIs(err, apperr.ErrAlreadyUsed)

	_, err = s.registrations.Verify(s.ctx, token)
	s.ErrorIs(err, apperr.ErrAlreadyUsed)

	s.Equal(1.0, promtest.ToFloat64(s.metrics.TokenConsumptions.WithLabelValues("ok")))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.TokenConsumptions.WithLabelValues("invalid")))
}

func (s *accountSuite) TestConsumeRejectsExpiredAndUnknownTokens() {
	token := s.issue()
	s.Require().NoError(s.db.Model(&models.RegistrationToken{}).
		Where("token_hash = ?", hashToken(token)).
		Update("expires_at", time.Now().UTC().Add(-time.Minute)).Error)

	_, err := s.registrations.Consume(s.ctx, token, shaykhRequest("late@example.com"))
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))
	s.ErrorIs(err, apperr.ErrExpired)
	s.Equal(invalidTokenMessage, apperr.Message(err))

	_, err = s.registrations.Consume(s.ctx, "not-a-token", shaykhRequest("late@example.com"))
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))
	s.ErrorIs(err, apperr.ErrNotFound)

	var n int64
	s.Require().NoError(s.db.Model(&models.User{}).Where("email = ?", "late@example.com").Count(&n).Error)
	s.Zero(n)
}

// TestConcurrentConsume races several redemptions of one token; exactly one
// account may come out of it.
func (s *accountSuite) TestConcurrentConsume() {
	token := s.issue()

	const attempts = 5
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.registrations.Consume(context.Background(), token, shaykhRequest(fmt.Sprintf("racer%d@example.com", i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrAlreadyUsed):
				losses++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(attempts-1, losses)

	var n int64
	s.Require().NoError(s.db.Model(&models.User{}).Where("email LIKE ?", "racer%").Count(&n).Error)
	s.EqualValues(1, n)
}

func (s *accountSuite) TestConsumeKeepsTokenWhenAccountFails() {
	token := s.issue()

	_, err := s.registrations.Consume(s.ctx, token, shaykhRequest(s.admin.Email))
	s.Equal(apperr.CodeConflict, apperr.CodeOf(err))

	_, err = s.registrations.Consume(s.ctx, token, dto.ShaykhRegistrationRequest{Email: "short@example.com", Password: "short"})
	s.Equal(apperr.CodeValidation, apperr.CodeOf(err))

	user, err := s.registrations.Consume(s.ctx, token, shaykhRequest("retry@example.com"))
	s.Require().NoError(err)
	s.Equal("retry@example.com", user.Email)
	s.Equal(2.0, promtest.ToFloat64(s.metrics.TokenConsumptions.WithLabelValues("error")))
}

func (s *accountSuite) TestListAndRevoke() {
	spent := s.issue()
	_, err := s.registrations.Consume(s.ctx, spent, shaykhRequest("spent@example.com"))
	s.Require().NoError(err)
	open := s.issue()

	tokens, err := s.registrations.List(s.ctx, principal(s.admin))
	s.Require().NoError(err)
	s.Require().Len(tokens, 2)

	byHash := map[string]models.RegistrationToken{}
	for _, t := range tokens {
		byHash[t.TokenHash] = t
	}

	err = s.registrations.Revoke(s.ctx, principal(s.admin), byHash[hashToken(spent)].ID)
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))

	s.Require().NoError(s.registrations.Revoke(s.ctx, principal(s.admin), byHash[hashToken(open)].ID))
	_, err = s.registrations.Verify(s.ctx, open)
	s.Equal(apperr.CodeNotFound, apperr.CodeOf(err))

	owner := testutil.CreateUser(s.T(), s.db, models.RoleUser)
	_, err = s.registrations.List(s.ctx, principal(owner))
	s.Equal(apperr.CodeAuthorization, apperr.CodeOf(err))
	err = s.registrations.Revoke(s.ctx, workflow.Principal{ID: owner.ID, Role: workflow.RoleUser}, byHash[hashToken(spent)].ID)
	s.Equal(apperr.CodeAuthorization, apperr.CodeOf(err))
}
