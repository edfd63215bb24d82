package handlers

import (
	"net/http"

	"precinctwatch/internal/common"
	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/services"

	"github.com/labstack/echo/v4"
)

// StoreHandlers handles the store register
type StoreHandlers struct {
	storeService services.StoreService
	log          logger.Logger
}

func NewStoreHandlers(storeService services.StoreService, log logger.Logger) *StoreHandlers {
	return &StoreHandlers{storeService: storeService, log: log}
}

// ListStores handles GET /stores?filter=&q=&precinct=&category=
func (h *StoreHandlers) ListStores(c echo.Context) error {
	opts := compliance.FilterOptions{
		Filter:   compliance.ParseStoreFilter(c.QueryParam("filter")),
		Search:   c.QueryParam("q"),
		Precinct: c.QueryParam("precinct"),
		Category: c.QueryParam("category"),
	}
	if len(opts.Search) > 100 {
		return common.SendValidationError(c, "q", "search cannot exceed 100 characters")
	}

	list, err := h.storeService.ListFiltered(c.Request().Context(), opts)
	if err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetStore returns the store with its score and each certification's derived status.
func (h *StoreHandlers) GetStore(c echo.Context) error {
	slug := c.Param("slug")
	if err := common.ValidateRequiredString(slug, "slug"); err != nil {
		return common.SendValidationError(c, "slug", err.Error())
	}

	detail, err := h.storeService.GetBySlug(c.Request().Context(), slug)
	if err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *StoreHandlers) CreateStore(c echo.Context) error {
	var req services.StoreRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	store, err := h.storeService.Create(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.JSON(http.StatusCreated, store)
}

func (h *StoreHandlers) UpdateStore(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	var req services.StoreRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	store, err := h.storeService.Update(c.Request().Context(), id, &req)
	if err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.JSON(http.StatusOK, store)
}

// DeactivateStore hides a store from scoring without deleting its history.
func (h *StoreHandlers) DeactivateStore(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	if err := h.storeService.Deactivate(c.Request().Context(), id); err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoreHandlers) DeleteStore(c echo.Context) error {
	id, ok, err := pathUUID(c, "id")
	if !ok {
		return err
	}
	if err := h.storeService.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.log, "Store", err)
	}
	return c.NoContent(http.StatusNoContent)
}
