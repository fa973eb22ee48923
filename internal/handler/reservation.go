package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mastercook/workshop-booking/internal/model"
	"github.com/mastercook/workshop-booking/internal/repository"
	"github.com/mastercook/workshop-booking/internal/utils"
)

// ReservationHandler groups the repositories required to create and
// manage workshop reservations.  All methods assume JWT authentication
// has run; ownership is enforced per reservation.  The booking
// endpoint runs entirely inside one transaction with the workshop rows
// locked, which is what keeps capacity checks correct under load.
type ReservationHandler struct {
	Workshops    *repository.WorkshopRepo
	Reservations *repository.ReservationRepo
	Payments     *repository.PaymentRepo
}

// NewReservationHandler constructs a ReservationHandler with the provided
// repositories.  All dependencies must be non-nil.
func NewReservationHandler(w *repository.WorkshopRepo, r *repository.ReservationRepo, p *repository.PaymentRepo) *ReservationHandler {
	if w == nil || r == nil || p == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{Workshops: w, Reservations: r, Payments: p}
}

// batchIssue names one workshop that cannot be booked and why.
type batchIssue struct {
	WorkshopID uint64 `json:"workshop_id"`
	Reason     string `json:"reason"`
}

// batchPlan is the outcome of validating a booking request against the
// locked workshop rows.  The slices preserve request order so error
// responses list every failure, not just the first.
type batchPlan struct {
	Missing     []uint64
	BadPrice    []uint64
	Unavailable []batchIssue
	Conflicts   []uint64
}

func (p batchPlan) ok() bool {
	return len(p.Missing) == 0 && len(p.BadPrice) == 0 &&
		len(p.Unavailable) == 0 && len(p.Conflicts) == 0
}

// findDuplicates returns every workshop id that appears more than once,
// in first-occurrence order.
func findDuplicates(ids []uint64) []uint64 {
	seen := make(map[uint64]int, len(ids))
	var dupes []uint64
	for _, id := range ids {
		seen[id]++
		if seen[id] == 2 {
			dupes = append(dupes, id)
		}
	}
	return dupes
}

// planBatch validates the requested ids against the loaded workshop
// rows, the current active reservation counts and the set of workshops
// the user already holds actively.  Each id lands in at most one
// bucket; missing and price problems take precedence over availability.
func planBatch(ids []uint64, workshops map[uint64]*model.Workshop, activeCounts map[uint64]int, held []uint64) batchPlan {
	heldSet := make(map[uint64]struct{}, len(held))
	for _, id := range held {
		heldSet[id] = struct{}{}
	}
	var plan batchPlan
	for _, id := range ids {
		w, ok := workshops[id]
		if !ok {
			plan.Missing = append(plan.Missing, id)
			continue
		}
		if w.Price < 0 {
			plan.BadPrice = append(plan.BadPrice, id)
			continue
		}
		if activeCounts[id] >= w.Capacity {
			plan.Unavailable = append(plan.Unavailable, batchIssue{WorkshopID: id, Reason: "full"})
			continue
		}
		if _, taken := heldSet[id]; taken {
			plan.Conflicts = append(plan.Conflicts, id)
		}
	}
	return plan
}

// createdReservation is the per-item shape returned by the booking endpoint.
type createdReservation struct {
	ID            uint64  `json:"id"`
	WorkshopID    uint64  `json:"workshop_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	PaymentStatus string  `json:"payment_status"`
}

// Create handles POST /v1/reservations.  The body carries a
// "workshop_ids" array; the whole batch succeeds or nothing is
// written.  Each created reservation starts Pending with a Pending
// payment row for the workshop price.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		WorkshopIDs []uint64 `json:"workshop_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ids := body.WorkshopIDs
	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workshop_ids is required"})
	}
	for _, id := range ids {
		if id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "workshop ids must be positive"})
		}
	}
	if dupes := findDuplicates(ids); len(dupes) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":      "duplicate workshop ids",
			"duplicates": dupes,
		})
	}

	ctx := c.Request().Context()
	tx, err := h.Workshops.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the workshop rows for the whole batch up front; the order-by-id
	// lock acquisition keeps concurrent batches from deadlocking.
	workshops, err := h.Workshops.GetByIDsForUpdateTx(ctx, tx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load workshops"})
	}
	activeCounts, err := h.Reservations.ActiveCountsTx(ctx, tx, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check availability"})
	}
	held, err := h.Reservations.ActiveWorkshopIDsForUserTx(ctx, tx, userID, ids)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing reservations"})
	}

	plan := planBatch(ids, workshops, activeCounts, held)
	if len(plan.Missing) > 0 {
		utils.ReservationsFailedTotal.WithLabelValues("not_found").Inc()
		return c.JSON(http.StatusNotFound, echo.Map{
			"error":   "workshops not found",
			"missing": plan.Missing,
		})
	}
	if len(plan.BadPrice) > 0 {
		utils.ReservationsFailedTotal.WithLabelValues("invalid_price").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":        "invalid_workshop_price",
			"workshop_ids": plan.BadPrice,
		})
	}
	if len(plan.Unavailable) > 0 {
		utils.ReservationsFailedTotal.WithLabelValues("unavailable").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":     "workshops_unavailable",
			"workshops": plan.Unavailable,
		})
	}
	if len(plan.Conflicts) > 0 {
		utils.ReservationsFailedTotal.WithLabelValues("conflict").Inc()
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":        "duplicate active reservation",
			"workshop_ids": plan.Conflicts,
		})
	}

	now := time.Now().UTC()
	created := make([]createdReservation, 0, len(ids))
	for _, id := range ids {
		res := &model.Reservation{
			UserID:          userID,
			WorkshopID:      id,
			ReservationDate: now,
			Status:          model.StatusPending,
		}
		if err := h.Reservations.CreateTx(ctx, tx, res); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
		}
		pay, err := h.Payments.CreatePendingTx(ctx, tx, res.ID, workshops[id].Price)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create payment"})
		}
		created = append(created, createdReservation{
			ID:            res.ID,
			WorkshopID:    id,
			Status:        res.Status,
			Amount:        pay.Amount,
			PaymentStatus: pay.Status,
		})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	utils.ReservationsCreatedTotal.Add(float64(len(created)))
	return c.JSON(http.StatusCreated, echo.Map{"reservations": created})
}

// ListMine handles GET /v1/reservations.  Returns the caller's
// reservations, newest first, optionally filtered by exact status.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	status := c.QueryParam("status")
	if status != "" && !model.IsActiveStatus(status) && !model.IsSettableStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	items, err := h.Reservations.ListByUser(c.Request().Context(), userID, status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": items})
}

// Get handles GET /v1/reservations/:id.  404 when absent, 403 when it
// belongs to another user (admins may read any).
func (h *ReservationHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	detail, err := h.Reservations.GetDetail(c.Request().Context(), resID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch reservation"})
	}
	if detail.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": detail})
}

// SetStatus handles PUT /v1/reservations/:id.  The body carries the
// target status; Pending cannot be re-entered.  Re-persisting the
// current status is allowed and is a no-op.
func (h *ReservationHandler) SetStatus(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if !model.IsSettableStatus(body.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	return h.updateStatus(c, resID, userID, body.Status)
}

// Cancel handles PUT /v1/reservations/:id/cancel.  Idempotent: a
// second cancel re-persists Cancelled and succeeds.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	return h.updateStatus(c, resID, userID, model.StatusCancelled)
}

func (h *ReservationHandler) updateStatus(c echo.Context, resID, userID uint64, status string) error {
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, resID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation"})
	}
	if res.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Reservations.UpdateStatus(ctx, resID, status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update reservation"})
	}
	if status == model.StatusCancelled && res.Status != model.StatusCancelled {
		utils.ReservationsCancelledTotal.Inc()
	}
	return c.JSON(http.StatusOK, echo.Map{"id": resID, "status": status})
}

// ListByWorkshop handles GET /v1/workshops/:id/reservations.  An
// administrative read across owners; the route is gated on role ADMIN.
func (h *ReservationHandler) ListByWorkshop(c echo.Context) error {
	workshopID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || workshopID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid workshop id"})
	}
	ctx := c.Request().Context()
	if _, err := h.Workshops.GetByID(ctx, workshopID); err != nil {
		if err == repository.ErrWorkshopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load workshop"})
	}
	items, err := h.Reservations.ListByWorkshop(ctx, workshopID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": items})
}
