package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mastercook/workshop-booking/internal/model"
	"github.com/mastercook/workshop-booking/internal/repository"
)

// CatalogHandler bundles the repositories backing the workshop catalog:
// workshops plus the read-only category and instructor lookups.
type CatalogHandler struct {
	Workshops   *repository.WorkshopRepo
	Categories  *repository.CategoryRepo
	Instructors *repository.InstructorRepo
}

// NewCatalogHandler constructs a CatalogHandler and panics if any dependency is nil.
func NewCatalogHandler(w *repository.WorkshopRepo, cat *repository.CategoryRepo, ins *repository.InstructorRepo) *CatalogHandler {
	if w == nil || cat == nil || ins == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Workshops: w, Categories: cat, Instructors: ins}
}

// workshopReq is the write payload for create/update.  Date is
// "YYYY-MM-DD"; start/end times are "HH:MM" or "HH:MM:SS".
type workshopReq struct {
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	CategoryID   *uint64 `json:"category_id"`
	Date         string  `json:"date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Price        float64 `json:"price"`
	Capacity     int     `json:"capacity"`
	InstructorID *uint64 `json:"instructor_id"`
	Modality     string  `json:"modality"`
}

// validateWorkshopReq normalizes the payload in place and returns a
// stable error code for the first violated rule, or "" when valid.
func validateWorkshopReq(req *workshopReq) string {
	req.Name = strings.TrimSpace(req.Name)
	req.Modality = strings.ToLower(strings.TrimSpace(req.Modality))
	req.StartTime = normalizeClock(req.StartTime)
	req.EndTime = normalizeClock(req.EndTime)
	if req.Name == "" {
		return "name is required"
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	if req.StartTime == "" || req.EndTime == "" {
		return "start_time and end_time must be HH:MM or HH:MM:SS"
	}
	if req.Price < 0 {
		return "price must be non-negative"
	}
	if req.Capacity <= 0 {
		return "capacity must be positive"
	}
	if req.Modality != "presencial" && req.Modality != "virtual" {
		return "modality must be presencial or virtual"
	}
	return ""
}

// normalizeClock accepts "HH:MM" or "HH:MM:SS" and returns "HH:MM:SS",
// or "" when the input is neither.
func normalizeClock(s string) string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse("15:04:05", s); err == nil {
		return s
	}
	if t, err := time.Parse("15:04", s); err == nil {
		return t.Format("15:04:05")
	}
	return ""
}

func (req *workshopReq) toModel(id uint64) *model.Workshop {
	date, _ := time.Parse("2006-01-02", req.Date)
	return &model.Workshop{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Price:        req.Price,
		Capacity:     req.Capacity,
		InstructorID: req.InstructorID,
		Modality:     req.Modality,
	}
}

// ListWorkshops handles GET /v1/workshops.  Supports optional
// category_id and modality query filters.  Every row carries the
// number of slots still available.
func (h *CatalogHandler) ListWorkshops(c echo.Context) error {
	var categoryID uint64
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category_id"})
		}
		categoryID = id
	}
	modality := strings.ToLower(strings.TrimSpace(c.QueryParam("modality")))
	items, err := h.Workshops.List(c.Request().Context(), categoryID, modality)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list workshops"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetWorkshop handles GET /v1/workshops/:id.
func (h *CatalogHandler) GetWorkshop(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}
	item, err := h.Workshops.GetListing(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrWorkshopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load workshop"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}

// CreateWorkshop handles POST /v1/workshops (role ADMIN).
func (h *CatalogHandler) CreateWorkshop(c echo.Context) error {
	var req workshopReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateWorkshopReq(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	w := req.toModel(0)
	if err := h.Workshops.Create(c.Request().Context(), w); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create workshop"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": w.ID})
}

// UpdateWorkshop handles PUT /v1/workshops/:id (role ADMIN).
func (h *CatalogHandler) UpdateWorkshop(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}
	var req workshopReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := validateWorkshopReq(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if err := h.Workshops.Update(c.Request().Context(), req.toModel(id)); err != nil {
		if err == repository.ErrWorkshopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update workshop"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id})
}

// DeleteWorkshop handles DELETE /v1/workshops/:id (role ADMIN).
// Reservations referencing the workshop are kept; detail reads fall
// back to null workshop fields.
func (h *CatalogHandler) DeleteWorkshop(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}
	if err := h.Workshops.Delete(c.Request().Context(), id); err != nil {
		if err == repository.ErrWorkshopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete workshop"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListCategories handles GET /v1/categories.
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	items, err := h.Categories.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list categories"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetCategory handles GET /v1/categories/:id.
func (h *CatalogHandler) GetCategory(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category id"})
	}
	item, err := h.Categories.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load category"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}

// ListInstructors handles GET /v1/instructors.
func (h *CatalogHandler) ListInstructors(c echo.Context) error {
	items, err := h.Instructors.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list instructors"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetInstructor handles GET /v1/instructors/:id.
func (h *CatalogHandler) GetInstructor(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid instructor id"})
	}
	item, err := h.Instructors.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrInstructorNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "instructor not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load instructor"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}
