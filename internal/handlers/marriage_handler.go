package handlers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

type MarriageHandler struct {
	caseHandler
	marriages *services.MarriageService
}

func NewMarriageHandler(cases *services.CaseService, assignments *services.AssignmentService, marriages *services.MarriageService) *MarriageHandler {
	return &MarriageHandler{
		caseHandler: caseHandler{kind: workflow.KindMarriage, cases: cases, assignments: assignments},
		marriages:   marriages,
	}
}

func (h *MarriageHandler) CreateReservation(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.ReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.marriages.CreateReservation(c.UserContext(), p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *MarriageHandler) CreateCertificate(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CertificateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.marriages.CreateCertificate(c.UserContext(), p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (h *MarriageHandler) Assign(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	item, err := h.marriages.Assign(c.UserContext(), id, p, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *MarriageHandler) GenerateCertificate(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	item, err := h.marriages.GenerateCertificate(c.UserContext(), id, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

// UploadCertificate takes the signed certificate as multipart field
// "certificate".
func (h *MarriageHandler) UploadCertificate(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	fh, err := c.FormFile("certificate")
	if err != nil {
		return badRequest(c, "certificate file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return respondError(c, fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	item, err := h.marriages.UploadCertificate(c.UserContext(), id, p, fh.Header.Get("Content-Type"), fh.Size, f)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(item)
}

func (h *MarriageHandler) CertificateURL(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	url, err := h.marriages.CertificateURL(c.UserContext(), id, p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.CertificateURLResponse{URL: url})
}

// DownloadCertificate renders the generated certificate as a PDF.
func (h *MarriageHandler) DownloadCertificate(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var buf bytes.Buffer
	item, err := h.marriages.RenderCertificate(c.UserContext(), id, p, &buf)
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.pdf"`, item.Marriage.CertificateNumber))
	return c.Send(buf.Bytes())
}
