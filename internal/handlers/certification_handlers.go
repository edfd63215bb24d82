package handlers

import (
	"net/http"

	"precinctwatch/internal/common"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/services"
	"precinctwatch/internal/storage"

	"github.com/labstack/echo/v4"
)

type CertificationHandlers struct {
	storeService services.StoreService
	log          logger.Logger
}

func NewCertificationHandlers(storeService services.StoreService, log logger.Logger) *CertificationHandlers {
	return &CertificationHandlers{storeService: storeService, log: log}
}

// AddCertification handles POST /stores/:id/certifications
func (h *CertificationHandlers) AddCertification(c echo.Context) error {
	storeID, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req services.CertificationRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	cert, err := h.storeService.AddCertification(c.Request().Context(), storeID, &req)
	if err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.JSON(http.StatusCreated, cert)
}

func (h *CertificationHandlers) UpdateCertification(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req services.CertificationRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	cert, err := h.storeService.UpdateCertification(c.Request().Context(), id, &req)
	if err != nil {
		return writeError(c, h.log, "Certification", err)
	}
	return c.JSON(http.StatusOK, cert)
}

func (h *CertificationHandlers) DeleteCertification(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	if err := h.storeService.DeleteCertification(c.Request().Context(), id); err != nil {
		return writeError(c, h.log, "Certification", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadDocument handles a multipart upload in the "file" field and replaces any
// document already attached to the certification.
func (h *CertificationHandlers) UploadDocument(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return common.SendValidationError(c, "file", "a document is required in the 'file' field")
	}
	if fileHeader.Size > storage.MaxDocumentSize {
		return common.SendValidationError(c, "file", "document exceeds the 10MB limit")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return common.SendClientError(c, "Unable to read uploaded document")
	}
	defer file.Close()

	contentType := fileHeader.Header.Get(echo.HeaderContentType)
	cert, err := h.storeService.UploadDocument(c.Request().Context(), id, file, fileHeader.Size, contentType)
	if err != nil {
		return writeError(c, h.log, "Certification", err)
	}
	return c.JSON(http.StatusOK, cert)
}

// DocumentURL returns a short-lived presigned download link.
func (h *CertificationHandlers) DocumentURL(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	link, err := h.storeService.DocumentURL(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.log, "Document", err)
	}
	return c.JSON(http.StatusOK, link)
}
