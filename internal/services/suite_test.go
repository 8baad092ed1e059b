package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/certificate"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	notifymocks "github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/notify/mocks"
	storagemocks "github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/storage/mocks"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// caseSuite wires every case service against a fresh SQLite database with
// an admin, a requesting user, two shaykhs and an unrelated user.
type caseSuite struct {
	suite.Suite

	ctx     context.Context
	db      *gorm.DB
	ctrl    *gomock.Controller
	mailer  *notifymocks.MockMailer
	store   *storagemocks.MockObjectStore
	metrics *metrics.Metrics

	cases           *CaseService
	fatwas          *FatwaService
	marriages       *MarriageService
	reconciliations *ReconciliationService
	assignments     *AssignmentService

	admin    *models.User
	owner    *models.User
	shaykh   *models.User
	shaykh2  *models.User
	stranger *models.User
}

func (s *caseSuite) SetupTest() {
	passwordCost = bcrypt.MinCost
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.ctrl = gomock.NewController(s.T())
	s.mailer = notifymocks.NewMockMailer(s.ctrl)
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.store = storagemocks.NewMockObjectStore(s.ctrl)
	s.metrics = metrics.New()

	s.cases = NewCaseService(s.db, s.metrics, s.mailer)
	s.fatwas = NewFatwaService(s.cases)
	s.marriages = NewMarriageService(s.cases, s.store, certificate.PDFRenderer{})
	s.reconciliations = NewReconciliationService(s.cases)
	s.assignments = NewAssignmentService(s.cases)

	s.admin = testutil.CreateUser(s.T(), s.db, models.RoleAdmin)
	s.owner = testutil.CreateUser(s.T(), s.db, models.RoleUser)
	s.shaykh = testutil.CreateUser(s.T(), s.db, models.RoleShaykh)
	s.shaykh2 = testutil.CreateUser(s.T(), s.db, models.RoleShaykh)
	s.stranger = testutil.CreateUser(s.T(), s.db, models.RoleUser)
}

func principal(u *models.User) workflow.Principal {
	return workflow.Principal{ID: u.ID, Role: workflow.Role(u.Role)}
}

func (s *caseSuite) requireCode(err error, code apperr.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Require().Equal(code, apperr.CodeOf(err), "unexpected error: %v", err)
}

func (s *caseSuite) status(id uuid.UUID) workflow.Status {
	var c models.Case
	s.Require().NoError(s.db.First(&c, "id = ?", id).Error)
	return workflow.Status(c.Status)
}

func (s *caseSuite) newFatwa() *models.Case {
	c, err := s.fatwas.Create(s.ctx, principal(s.owner), dto.CreateFatwaRequest{
		Title:    "Combining prayers while travelling",
		Question: "May I combine dhuhr and asr on a two day trip?",
		Category: "prayer",
	})
	s.Require().NoError(err)
	return c
}

func (s *caseSuite) answeredFatwa() *models.Case {
	c := s.newFatwa()
	_, err := s.fatwas.Assign(s.ctx, c.ID, principal(s.admin), dto.AssignRequest{ShaykhID: s.shaykh.ID.String()})
	s.Require().NoError(err)
	_, err = s.fatwas.Answer(s.ctx, c.ID, principal(s.shaykh), "Yes, within the conditions of travel.")
	s.Require().NoError(err)
	return c
}

func partner(first string) dto.PartnerInput {
	return dto.PartnerInput{
		FirstName: first,
		LastName:  "Rahman",
		Phone:     "+61 400 000 000",
		Email:     first + "@example.com",
	}
}

func (s *caseSuite) newReservation() *models.Case {
	c, err := s.marriages.CreateReservation(s.ctx, principal(s.owner), dto.ReservationRequest{
		PartnerOne:        partner("yusuf"),
		PartnerTwo:        partner("maryam"),
		PreferredDate:     "2030-05-01",
		PreferredTime:     "14:00",
		PreferredLocation: "Main hall",
	})
	s.Require().NoError(err)
	return c
}

func (s *caseSuite) newCertificateRequest() *models.Case {
	c, err := s.marriages.CreateCertificate(s.ctx, principal(s.owner), dto.CertificateRequest{
		PartnerOne:    partner("ali"),
		PartnerTwo:    partner("aisha"),
		MarriageDate:  "2024-02-10",
		MarriagePlace: "Sydney",
		Witnesses:     []dto.WitnessInput{{Name: "Omar"}, {Name: "Khalid", Contact: "khalid@example.com"}},
	})
	s.Require().NoError(err)
	return c
}

func (s *caseSuite) newReconciliation() *models.Case {
	c, err := s.reconciliations.Create(s.ctx, principal(s.owner), dto.ReconciliationRequest{
		Husband:          dto.SpouseInput{FirstName: "Hamza", LastName: "Ali", Phone: "0400 111 111", Email: "hamza@example.com"},
		Wife:             dto.SpouseInput{FirstName: "Sara", LastName: "Ali", Phone: "0400 222 222", Email: "sara@example.com"},
		IssueDescription: "Disagreement over relocating for work",
	})
	s.Require().NoError(err)
	return c
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret",
		JWTAccessExpiry:       15 * time.Minute,
		JWTRefreshExpiry:      24 * time.Hour,
		AdminToken:            "bootstrap-token",
		FrontendURL:           "https://app.example.com",
		RegistrationTokenDays: 7,
		PasswordResetExpiry:   30 * time.Minute,
	}
}
