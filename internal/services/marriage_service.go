package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/certificate"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

const (
	MaxCertificateSize = 10 << 20
	certificateURLTTL  = 15 * time.Minute
)

var certificateExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

type MarriageService struct {
	cases    *CaseService
	store    storage.ObjectStore
	renderer certificate.Renderer
}

func NewMarriageService(cases *CaseService, store storage.ObjectStore, renderer certificate.Renderer) *MarriageService {
	return &MarriageService{cases: cases, store: store, renderer: renderer}
}

// CreateReservation books a ceremony. When a shaykh is selected up front the
// reservation starts out assigned to them.
func (s *MarriageService) CreateReservation(ctx context.Context, p workflow.Principal, req dto.ReservationRequest) (*models.Case, error) {
	if p.Role == workflow.RoleShaykh {
		return nil, apperr.Forbidden("shaykhs cannot request marriages")
	}
	one, two, err := partnersFrom(req.PartnerOne, req.PartnerTwo)
	if err != nil {
		return nil, err
	}
	preferred, err := parseDate(req.PreferredDate)
	if err != nil {
		return nil, apperr.Validation("preferred date is required as YYYY-MM-DD")
	}
	if strings.TrimSpace(req.PreferredTime) == "" || strings.TrimSpace(req.PreferredLocation) == "" {
		return nil, apperr.Validation("preferred time and location are required")
	}

	var selected []uuid.UUID
	if v := strings.TrimSpace(req.SelectedShaykh); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, apperr.Validation("invalid shaykh id")
		}
		selected = append(selected, id)
	}

	c := models.Case{
		Kind:    string(workflow.KindMarriage),
		OwnerID: p.ID,
		Status:  string(workflow.StatusPending),
		Marriage: &models.MarriageDetail{
			Type:                  models.MarriageReservation,
			PartnerOne:            one,
			PartnerTwo:            two,
			PreferredDate:         &preferred,
			PreferredTime:         strings.TrimSpace(req.PreferredTime),
			PreferredLocation:     strings.TrimSpace(req.PreferredLocation),
			Witnesses:             datatypes.JSONSlice[models.Witness]{},
			AdditionalInformation: strings.TrimSpace(req.AdditionalInformation),
		},
	}
	if len(selected) > 0 {
		c.Status = string(workflow.StatusAssigned)
	}

	err = s.cases.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureShaykhs(tx, selected); err != nil {
			return err
		}
		if err := tx.Create(&c).Error; err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		return insertAssignees(tx, c.ID, selected, p.ID, s.cases.now())
	})
	if err != nil {
		return nil, err
	}

	s.cases.metrics.IncrementCaseCreated(c.Kind)
	slog.Info("case created", "case_id", c.ID.String(), "case_kind", c.Kind, "type", models.MarriageReservation)
	s.cases.notifyAssigned(ctx, workflow.KindMarriage, c.ID, selected)
	return s.cases.load(ctx, workflow.KindMarriage, c.ID)
}

// CreateCertificate requests a certificate for a marriage that already took
// place.
func (s *MarriageService) CreateCertificate(ctx context.Context, p workflow.Principal, req dto.CertificateRequest) (*models.Case, error) {
	if p.Role == workflow.RoleShaykh {
		return nil, apperr.Forbidden("shaykhs cannot request marriages")
	}
	one, two, err := partnersFrom(req.PartnerOne, req.PartnerTwo)
	if err != nil {
		return nil, err
	}
	married, err := parseDate(req.MarriageDate)
	if err != nil {
		return nil, apperr.Validation("marriage date is required as YYYY-MM-DD")
	}
	if strings.TrimSpace(req.MarriagePlace) == "" {
		return nil, apperr.Validation("marriage place is required")
	}

	witnesses := make(datatypes.JSONSlice[models.Witness], 0, len(req.Witnesses))
	for _, w := range req.Witnesses {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			return nil, apperr.Validation("every witness needs a name")
		}
		witnesses = append(witnesses, models.Witness{Name: name, Contact: strings.TrimSpace(w.Contact)})
	}

	c := models.Case{
		Kind:    string(workflow.KindMarriage),
		OwnerID: p.ID,
		Status:  string(workflow.StatusPending),
		Marriage: &models.MarriageDetail{
			Type:                  models.MarriageCertificate,
			PartnerOne:            one,
			PartnerTwo:            two,
			MarriageDate:          &married,
			MarriagePlace:         strings.TrimSpace(req.MarriagePlace),
			Witnesses:             witnesses,
			RegisterAsAustralian:  req.RegisterAsAustralian,
			AdditionalInformation: strings.TrimSpace(req.AdditionalInformation),
		},
	}
	if err := s.cases.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, fmt.Errorf("create certificate request: %w", err)
	}

	s.cases.metrics.IncrementCaseCreated(c.Kind)
	slog.Info("case created", "case_id", c.ID.String(), "case_kind", c.Kind, "type", models.MarriageCertificate)
	return s.cases.load(ctx, workflow.KindMarriage, c.ID)
}

// Assign hands the marriage to a single shaykh, replacing any previous one.
func (s *MarriageService) Assign(ctx context.Context, id uuid.UUID, p workflow.Principal, req dto.AssignRequest) (*models.Case, error) {
	ids, _, err := assigneesFrom(req)
	if err != nil {
		return nil, err
	}
	return s.cases.Assign(ctx, workflow.KindMarriage, id, p, ids)
}

// GenerateCertificate stamps a certificate number and issue date. Running it
// again keeps the original number.
func (s *MarriageService) GenerateCertificate(ctx context.Context, id uuid.UUID, p workflow.Principal) (*models.Case, error) {
	_, err := s.cases.execute(ctx, workflow.KindMarriage, id, p, workflow.Request{Action: workflow.ActionGenerateCertificate},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			if err := requireCertificateType(c); err != nil {
				return err
			}
			now := s.cases.now()
			number := c.Marriage.CertificateNumber
			if number == "" {
				number = certificate.NewNumber(now)
			}
			issued := now
			if c.Marriage.CertificateIssuedDate != nil {
				issued = *c.Marriage.CertificateIssuedDate
			}
			err := tx.Model(&models.MarriageDetail{}).Where("case_id = ?", c.ID).Updates(map[string]interface{}{
				"certificate_generated":   true,
				"certificate_number":      number,
				"certificate_issued_date": issued,
			}).Error
			if err != nil {
				return fmt.Errorf("stamp certificate: %w", err)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return s.cases.load(ctx, workflow.KindMarriage, id)
}

// UploadCertificate stores a signed certificate file and completes the case.
// The object is written first; if the case update then fails the object is
// removed again.
func (s *MarriageService) UploadCertificate(ctx context.Context, id uuid.UUID, p workflow.Principal, contentType string, size int64, body io.Reader) (*models.Case, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := certificateExtensions[contentType]
	if !ok {
		return nil, apperr.Validation("certificate must be a PDF, JPEG or PNG file")
	}
	if size <= 0 || size > MaxCertificateSize {
		return nil, apperr.Validation("certificate must be smaller than 10 MB")
	}

	c, err := findCase(s.cases.db.WithContext(ctx), workflow.KindMarriage, id)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Evaluate(p, workflow.Request{Action: workflow.ActionUploadCertificate}, c.Subject()); err != nil {
		return nil, err
	}
	if err := requireCertificateType(c); err != nil {
		return nil, err
	}

	key := path.Join("certificates", id.String(), uuid.NewString()+ext)
	obj, err := s.store.Put(ctx, key, contentType, body, size)
	if err != nil {
		return nil, apperr.External(err, "failed to upload certificate")
	}

	previous := ""
	_, err = s.cases.execute(ctx, workflow.KindMarriage, id, p, workflow.Request{Action: workflow.ActionUploadCertificate},
		func(tx *gorm.DB, c *models.Case, _ workflow.Decision) error {
			if err := requireCertificateType(c); err != nil {
				return err
			}
			previous = c.Marriage.CertificateFileKey
			updates := map[string]interface{}{
				"certificate_file_key": obj.Key,
				"certificate_file_url": obj.URL,
			}
			if c.Marriage.CertificateIssuedDate == nil {
				updates["certificate_issued_date"] = s.cases.now()
			}
			if err := tx.Model(&models.MarriageDetail{}).Where("case_id = ?", c.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("save certificate file: %w", err)
			}
			return nil
		})
	if err != nil {
		s.removeObject(ctx, obj.Key)
		return nil, err
	}
	if previous != "" && previous != obj.Key {
		s.removeObject(ctx, previous)
	}
	return s.cases.load(ctx, workflow.KindMarriage, id)
}

func (s *MarriageService) removeObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		slog.Warn("certificate object cleanup failed", "key", key, "error", err)
	}
}

// CertificateURL returns where the certificate can be fetched: a presigned
// link to the uploaded file, or the render route for a generated one.
func (s *MarriageService) CertificateURL(ctx context.Context, id uuid.UUID, p workflow.Principal) (string, error) {
	c, err := s.cases.Get(ctx, workflow.KindMarriage, id, p)
	if err != nil {
		return "", err
	}
	m := c.Marriage
	switch {
	case m != nil && m.CertificateFileKey != "":
		url, err := s.store.PresignGet(ctx, m.CertificateFileKey, certificateURLTTL)
		if err != nil {
			return "", apperr.External(err, "failed to sign certificate url")
		}
		return url, nil
	case m != nil && m.CertificateGenerated:
		return fmt.Sprintf("/api/marriages/%s/certificate/download", id), nil
	default:
		return "", apperr.NotFound("certificate not available")
	}
}

// RenderCertificate writes the generated certificate as a PDF.
func (s *MarriageService) RenderCertificate(ctx context.Context, id uuid.UUID, p workflow.Principal, w io.Writer) (*models.Case, error) {
	c, err := s.cases.Get(ctx, workflow.KindMarriage, id, p)
	if err != nil {
		return nil, err
	}
	m := c.Marriage
	if m == nil || !m.CertificateGenerated {
		return nil, apperr.NotFound("certificate has not been generated")
	}

	doc := certificate.Certificate{
		Number:        m.CertificateNumber,
		PartnerOne:    m.PartnerOne.FullName(),
		PartnerTwo:    m.PartnerTwo.FullName(),
		MarriageDate:  m.MarriageDate,
		MarriagePlace: m.MarriagePlace,
	}
	if m.CertificateIssuedDate != nil {
		doc.IssuedAt = *m.CertificateIssuedDate
	}
	for _, witness := range m.Witnesses {
		doc.Witnesses = append(doc.Witnesses, witness.Name)
	}
	for _, a := range c.Assignees {
		if a.Shaykh != nil {
			doc.Officiant = a.Shaykh.FullName()
			break
		}
	}

	if err := s.renderer.Render(w, doc); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return c, nil
}

func requireCertificateType(c *models.Case) error {
	if c.Marriage == nil || c.Marriage.Type != models.MarriageCertificate {
		return apperr.Validation("only certificate requests carry a certificate")
	}
	return nil
}

func partnersFrom(one, two dto.PartnerInput) (models.Partner, models.Partner, error) {
	a, err := partnerFrom(one)
	if err != nil {
		return models.Partner{}, models.Partner{}, err
	}
	b, err := partnerFrom(two)
	if err != nil {
		return models.Partner{}, models.Partner{}, err
	}
	return a, b, nil
}

func partnerFrom(in dto.PartnerInput) (models.Partner, error) {
	p := models.Partner{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Address:   strings.TrimSpace(in.Address),
	}
	if p.FirstName == "" || p.LastName == "" || p.Phone == "" || p.Email == "" {
		return p, apperr.Validation("both partners need a first name, last name, phone and email")
	}
	if !strings.Contains(p.Email, "@") {
		return p, apperr.Validation("partner email is invalid")
	}
	if strings.TrimSpace(in.DateOfBirth) != "" {
		dob, err := parseDate(in.DateOfBirth)
		if err != nil {
			return p, err
		}
		p.DateOfBirth = &dob
	}
	return p, nil
}
