package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// TestReservationLifecycle books a ceremony, holds a meeting, completes it
// and checks that the closed reservation can no longer be cancelled.
func (s *caseSuite) TestReservationLifecycle() {
	c := s.newReservation()
	s.Equal(string(workflow.StatusPending), c.Status)
	s.Equal(models.MarriageReservation, c.Marriage.Type)

	got, err := s.marriages.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAssigned), got.Status)

	_, err = s.cases.ScheduleMeeting(s.ctx, workflow.KindMarriage, c.ID, principal(s.shaykh), dto.MeetingRequest{
		Date: "2030-04-20", Time: "11:00", Location: "Main hall",
	})
	s.Require().NoError(err)
	s.Equal(workflow.StatusInProgress, s.status(c.ID))

	got, err = s.cases.Complete(s.ctx, workflow.KindMarriage, c.ID, principal(s.shaykh), dto.CompleteRequest{Notes: "Nikah concluded"})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusCompleted), got.Status)
	s.Equal("Nikah concluded", got.AdminNotes)
	s.Len(got.Meetings, 1)

	_, err = s.cases.Cancel(s.ctx, workflow.KindMarriage, c.ID, principal(s.owner), "changed plans")
	s.requireCode(err, apperr.CodeConflict)
	_, err = s.cases.Cancel(s.ctx, workflow.KindMarriage, c.ID, principal(s.admin), "changed plans")
	s.requireCode(err, apperr.CodeConflict)
	s.Equal(workflow.StatusCompleted, s.status(c.ID))
}

func (s *caseSuite) TestReservationWithSelectedShaykh() {
	got, err := s.marriages.CreateReservation(s.ctx, principal(s.owner), dto.ReservationRequest{
		PartnerOne:        partner("idris"),
		PartnerTwo:        partner("hafsa"),
		PreferredDate:     "2030-06-01",
		PreferredTime:     "15:00",
		PreferredLocation: "Garden",
		SelectedShaykh:    s.shaykh.ID.String(),
	})
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusAssigned), got.Status)
	s.Equal(s.shaykh.ID, got.Assignees[0].ShaykhID)

	_, err = s.marriages.CreateReservation(s.ctx, principal(s.owner), dto.ReservationRequest{
		PartnerOne:        partner("idris"),
		PartnerTwo:        partner("hafsa"),
		PreferredDate:     "2030-06-01",
		PreferredTime:     "15:00",
		PreferredLocation: "Garden",
		SelectedShaykh:    s.stranger.ID.String(),
	})
	s.requireCode(err, apperr.CodeValidation)

	var n int64
	s.Require().NoError(s.db.Model(&models.Case{}).Count(&n).Error)
	s.EqualValues(1, n)
}

func (s *caseSuite) TestReservationRequiresPartners() {
	_, err := s.marriages.CreateReservation(s.ctx, principal(s.owner), dto.ReservationRequest{
		PartnerOne:        partner("idris"),
		PartnerTwo:        dto.PartnerInput{FirstName: "hafsa"},
		PreferredDate:     "2030-06-01",
		PreferredTime:     "15:00",
		PreferredLocation: "Garden",
	})
	s.requireCode(err, apperr.CodeValidation)
}

func (s *caseSuite) TestMeetingsOnlyForReservations() {
	c := s.newCertificateRequest()

	_, err := s.cases.ScheduleMeeting(s.ctx, workflow.KindMarriage, c.ID, principal(s.admin), dto.MeetingRequest{
		Date: "2030-04-20", Time: "11:00", Location: "Main hall",
	})
	s.requireCode(err, apperr.CodeValidation)
	s.Equal(workflow.StatusPending, s.status(c.ID))
}

func (s *caseSuite) TestGenerateCertificateKeepsNumber() {
	c := s.newCertificateRequest()
	_, err := s.marriages.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)

	got, err := s.marriages.GenerateCertificate(s.ctx, c.ID, principal(s.shaykh))
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusInProgress), got.Status)
	s.True(got.Marriage.CertificateGenerated)
	s.True(strings.HasPrefix(got.Marriage.CertificateNumber, "MC-"))
	s.Require().NotNil(got.Marriage.CertificateIssuedDate)
	number := got.Marriage.CertificateNumber

	again, err := s.marriages.GenerateCertificate(s.ctx, c.ID, principal(s.admin))
	s.Require().NoError(err)
	s.Equal(number, again.Marriage.CertificateNumber)

	_, err = s.marriages.GenerateCertificate(s.ctx, c.ID, principal(s.owner))
	s.requireCode(err, apperr.CodeAuthorization)

	reservation := s.newReservation()
	_, err = s.marriages.GenerateCertificate(s.ctx, reservation.ID, principal(s.admin))
	s.requireCode(err, apperr.CodeValidation)
}

func (s *caseSuite) TestRenderCertificate() {
	c := s.newCertificateRequest()

	var buf bytes.Buffer
	_, err := s.marriages.RenderCertificate(s.ctx, c.ID, principal(s.owner), &buf)
	s.requireCode(err, apperr.CodeNotFound)

	_, err = s.marriages.GenerateCertificate(s.ctx, c.ID, principal(s.admin))
	s.Require().NoError(err)

	_, err = s.marriages.RenderCertificate(s.ctx, c.ID, principal(s.owner), &buf)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	url, err := s.marriages.CertificateURL(s.ctx, c.ID, principal(s.owner))
	s.Require().NoError(err)
	s.Equal("/api/marriages/"+c.ID.String()+"/certificate/download", url)

	_, err = s.marriages.CertificateURL(s.ctx, c.ID, principal(s.stranger))
	s.requireCode(err, apperr.CodeAuthorization)
}

func (s *caseSuite) TestUploadCertificateCompletesCase() {
	c := s.newCertificateRequest()
	body := strings.NewReader("%PDF-1.4 signed")

	s.store.EXPECT().
		Put(gomock.Any(), gomock.Any(), "application/pdf", body, int64(body.Len())).
		DoAndReturn(func(_ context.Context, key, _ string, _ io.Reader, _ int64) (storage.Object, error) {
			s.True(strings.HasPrefix(key, "certificates/"+c.ID.String()+"/"))
			s.True(strings.HasSuffix(key, ".pdf"))
			return storage.Object{Key: key, URL: "https://bucket.example.com/" + key}, nil
		})

	got, err := s.marriages.UploadCertificate(s.ctx, c.ID, principal(s.admin), "application/pdf", int64(body.Len()), body)
	s.Require().NoError(err)
	s.Equal(string(workflow.StatusCompleted), got.Status)
	s.Contains(got.Marriage.CertificateFileURL, "https://bucket.example.com/certificates/")
	s.NotNil(got.Marriage.CertificateIssuedDate)

	s.store.EXPECT().PresignGet(gomock.Any(), got.Marriage.CertificateFileKey, 15*time.Minute).Return("https://signed.example.com", nil)
	url, err := s.marriages.CertificateURL(s.ctx, c.ID, principal(s.owner))
	s.Require().NoError(err)
	s.Equal("https://signed.example.com", url)
}

func (s *caseSuite) TestUploadCertificateRejectsBadInput() {
	c := s.newCertificateRequest()

	_, err := s.marriages.UploadCertificate(s.ctx, c.ID, principal(s.admin), "text/plain", 10, strings.NewReader("plain text"))
	s.requireCode(err, apperr.CodeValidation)

	_, err = s.marriages.UploadCertificate(s.ctx, c.ID, principal(s.admin), "image/png", MaxCertificateSize+1, strings.NewReader(""))
	s.requireCode(err, apperr.CodeValidation)

	_, err = s.marriages.UploadCertificate(s.ctx, c.ID, principal(s.owner), "image/png", 3, strings.NewReader("png"))
	s.requireCode(err, apperr.CodeAuthorization)

	reservation := s.newReservation()
	_, err = s.marriages.UploadCertificate(s.ctx, reservation.ID, principal(s.admin), "image/png", 3, strings.NewReader("png"))
	s.requireCode(err, apperr.CodeValidation)
}

func (s *caseSuite) TestUploadCertificateStorageFailure() {
	c := s.newCertificateRequest()
	s.store.EXPECT().Put(gomock.Any(), gomock.Any(), "image/jpeg", gomock.Any(), int64(4)).
		Return(storage.Object{}, errors.New("connection reset"))

	_, err := s.marriages.UploadCertificate(s.ctx, c.ID, principal(s.admin), "image/jpeg", 4, strings.NewReader("jpeg"))
	s.requireCode(err, apperr.CodeExternal)
	s.Equal(workflow.StatusPending, s.status(c.ID))
}

// TestUploadCertificateRemovesOrphan cancels the case while the file is in
// flight; the stored object must be deleted again.
func (s *caseSuite) TestUploadCertificateRemovesOrphan() {
	c := s.newCertificateRequest()
	var stored string
	s.store.EXPECT().Put(gomock.Any(), gomock.Any(), "application/pdf", gomock.Any(), int64(3)).
		DoAndReturn(func(_ context.Context, key, _ string, _ io.Reader, _ int64) (storage.Object, error) {
			stored = key
			_, err := s.cases.Cancel(s.ctx, workflow.KindMarriage, c.ID, principal(s.owner), "withdrawn")
			s.Require().NoError(err)
			return storage.Object{Key: key}, nil
		})
	s.store.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, key string) error {
		s.Equal(stored, key)
		return nil
	})

	_, err := s.marriages.UploadCertificate(s.ctx, c.ID, principal(s.admin), "application/pdf", 3, strings.NewReader("pdf"))
	s.requireCode(err, apperr.CodeConflict)
	s.Equal(workflow.StatusCancelled, s.status(c.ID))
}
