package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mastercook/workshop-booking/internal/model"
	"github.com/mastercook/workshop-booking/internal/payment"
	"github.com/mastercook/workshop-booking/internal/queue"
	"github.com/mastercook/workshop-booking/internal/repository"
	queuepublisher "github.com/mastercook/workshop-booking/internal/service"
	"github.com/mastercook/workshop-booking/internal/utils"
)

// PaymentHandler groups the repositories and the card provider used by
// the payment endpoints.  Provider round trips always happen outside
// the database transaction; status flips for a batch happen inside a
// single one.
type PaymentHandler struct {
	Workshops    *repository.WorkshopRepo
	Reservations *repository.ReservationRepo
	Payments     *repository.PaymentRepo
	Provider     payment.Authorizer
}

// NewPaymentHandler constructs a PaymentHandler.  All dependencies must be non-nil.
func NewPaymentHandler(w *repository.WorkshopRepo, r *repository.ReservationRepo, p *repository.PaymentRepo, prov payment.Authorizer) *PaymentHandler {
	if w == nil || r == nil || p == nil || prov == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Workshops: w, Reservations: r, Payments: p, Provider: prov}
}

// paymentResp is the JSON shape for a payment row.
type paymentResp struct {
	ID            uint64  `json:"id"`
	ReservationID uint64  `json:"reservation_id"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	PaymentMethod *string `json:"payment_method"`
	PaymentDate   *string `json:"payment_date"`
	CreatedAt     string  `json:"created_at"`
}

func toPaymentResp(p *model.Payment) paymentResp {
	out := paymentResp{
		ID:            p.ID,
		ReservationID: p.ReservationID,
		Amount:        p.Amount,
		Status:        p.Status,
		PaymentMethod: p.PaymentMethod,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.PaymentDate != nil {
		v := p.PaymentDate.UTC().Format(time.RFC3339)
		out.PaymentDate = &v
	}
	return out
}

// GetByReservation handles GET /v1/payments/reservation/:id.
func (h *PaymentHandler) GetByReservation(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
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
	pay, err := h.Payments.GetByReservation(ctx, resID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payment"})
	}
	return c.JSON(http.StatusOK, echo.Map{"payment": toPaymentResp(pay)})
}

// ListForUser handles GET /v1/payments/user.
func (h *PaymentHandler) ListForUser(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	payments, err := h.Payments.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payments"})
	}
	items := make([]paymentResp, 0, len(payments))
	for i := range payments {
		items = append(items, toPaymentResp(&payments[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": items})
}

// Pay handles POST /v1/payments.  The caller supplies the amount and
// the method label; the payment row flips to Paid and the reservation
// is confirmed in the same transaction.  Paying twice is rejected.
func (h *PaymentHandler) Pay(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ReservationID uint64  `json:"reservation_id"`
		Amount        float64 `json:"amount"`
		PaymentMethod string  `json:"payment_method"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}
	if body.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}
	method := strings.TrimSpace(body.PaymentMethod)
	if method == "" {
		method = "Credit Card"
	}
	return h.settle(c, userID, body.ReservationID, body.Amount, method, nil)
}

// Simulate handles POST /v1/payments/simulate.  The amount is taken
// from the workshop price and the authorization reference is a hashed
// random token; otherwise identical to Pay.
func (h *PaymentHandler) Simulate(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ReservationID uint64 `json:"reservation_id"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}
	ctx := c.Request().Context()
	res, err := h.Reservations.GetByID(ctx, body.ReservationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation"})
	}
	if res.UserID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	w, err := h.Workshops.GetByID(ctx, res.WorkshopID)
	if err != nil {
		if err == repository.ErrWorkshopNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "workshop not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load workshop"})
	}
	method := strings.TrimSpace(body.PaymentMethod)
	if method == "" {
		method = "Simulated"
	}
	authRef := utils.HashAuthRef(uuid.NewString())
	return h.settle(c, userID, body.ReservationID, w.Price, method, &authRef)
}

// settle confirms the reservation and flips its payment to Paid inside
// one transaction, then publishes the confirmation event.
func (h *PaymentHandler) settle(c echo.Context, userID, resID uint64, amount float64, method string, authRef *string) error {
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

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	pay, err := h.Payments.UpsertPaidTx(ctx, tx, resID, amount, method, authRef)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyPaid) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "already paid"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
	}
	if err := h.Reservations.UpdateStatusTx(ctx, tx, resID, model.StatusConfirmed); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm reservation"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	utils.PaymentsConfirmedTotal.Inc()
	h.publishConfirmed(res.UserID, resID, res.WorkshopID, amount, method)

	return c.JSON(http.StatusOK, echo.Map{
		"payment":            toPaymentResp(pay),
		"reservation_status": model.StatusConfirmed,
	})
}

// confirmedReservation is the per-reservation slice of the verify-card
// success body.
type confirmedReservation struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

// verifyCardResp is the 200 body of the verify-card endpoint.  A
// declined card carries only is_valid and reason; an approved one
// additionally lists every confirmed reservation and its payment.
type verifyCardResp struct {
	IsValid      bool                   `json:"is_valid"`
	Reason       string                 `json:"reason,omitempty"`
	CardLast4    string                 `json:"card_last4,omitempty"`
	Reservations []confirmedReservation `json:"reservations,omitempty"`
	Payments     []paymentResp          `json:"payments,omitempty"`
}

// cardReq is the payload of the verify-card endpoint.
type cardReq struct {
	CardNumber     string   `json:"card_number"`
	ExpMonth       int      `json:"exp_month"`
	ExpYear        int      `json:"exp_year"`
	CVC            string   `json:"cvc"`
	ReservationIDs []uint64 `json:"reservation_ids"`
}

// validateCardReq checks field presence and shape; card validity itself
// is the provider's call.  Returns a stable message or "" when valid.
func validateCardReq(req *cardReq) string {
	req.CardNumber = strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", "")
	req.CVC = strings.TrimSpace(req.CVC)
	if req.CardNumber == "" {
		return "card_number is required"
	}
	if req.ExpMonth < 1 || req.ExpMonth > 12 {
		return "exp_month must be 1-12"
	}
	if req.ExpYear <= 0 {
		return "exp_year is required"
	}
	if req.CVC == "" {
		return "cvc is required"
	}
	if len(req.ReservationIDs) == 0 {
		return "reservation_ids is required"
	}
	if dupes := findDuplicates(req.ReservationIDs); len(dupes) > 0 {
		return "duplicate reservation ids"
	}
	return ""
}

// VerifyCard handles POST /v1/payments/verify-card.  The flow is:
// validate the request and every reservation first, authorize a small
// hold against the card, void it immediately, then confirm and mark
// every reservation paid in one transaction.  A declined card is not
// an error: the response is 200 with is_valid=false so the client can
// surface the reason.
func (h *PaymentHandler) VerifyCard(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req cardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := validateCardReq(&req); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	type target struct {
		res    *model.Reservation
		amount float64
	}
	var (
		targets     []target
		missing     []uint64
		forbidden   []uint64
		alreadyPaid []uint64
		notPayable  []uint64
	)
	for _, id := range req.ReservationIDs {
		res, err := h.Reservations.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				missing = append(missing, id)
				continue
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation"})
		}
		if res.UserID != userID && !isAdmin(c) {
			forbidden = append(forbidden, id)
			continue
		}
		paid, err := h.Payments.IsPaid(ctx, id)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check payment"})
		}
		if paid {
			alreadyPaid = append(alreadyPaid, id)
			continue
		}
		w, err := h.Workshops.GetByID(ctx, res.WorkshopID)
		if err != nil {
			if err == repository.ErrWorkshopNotFound {
				notPayable = append(notPayable, id)
				continue
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load workshop"})
		}
		targets = append(targets, target{res: res, amount: w.Price})
	}
	if len(missing) > 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservations not found", "missing": missing})
	}
	if len(forbidden) > 0 {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "reservation_ids": forbidden})
	}
	if len(alreadyPaid) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "already paid", "reservation_ids": alreadyPaid})
	}
	if len(notPayable) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "workshop no longer exists", "reservation_ids": notPayable})
	}

	card := payment.Card{
		Number:   req.CardNumber,
		ExpMonth: req.ExpMonth,
		ExpYear:  req.ExpYear,
		CVC:      req.CVC,
	}
	start := time.Now()
	hold, err := h.Provider.AuthorizeHold(ctx, card, payment.HoldAmountCents)
	utils.CardAuthorizationLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, payment.ErrCardDeclined) {
			utils.CardVerificationsTotal.WithLabelValues("declined").Inc()
			return c.JSON(http.StatusOK, verifyCardResp{IsValid: false, Reason: err.Error()})
		}
		utils.CardVerificationsTotal.WithLabelValues("error").Inc()
		utils.GetLogger().Error("card authorization failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "card verification unavailable"})
	}
	// The hold exists only to prove the card; release it right away.
	if err := h.Provider.VoidHold(ctx, hold.Reference); err != nil {
		utils.GetLogger().Warn("void hold failed", zap.String("reference", hold.Reference), zap.Error(err))
	}
	authRef := utils.HashAuthRef(hold.Reference)
	method := fmt.Sprintf("card ending in %s", hold.Last4)

	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	confirmed := make([]confirmedReservation, 0, len(targets))
	paid := make([]paymentResp, 0, len(targets))
	for _, t := range targets {
		pay, err := h.Payments.UpsertPaidTx(ctx, tx, t.res.ID, t.amount, method, &authRef)
		if err != nil {
			if errors.Is(err, repository.ErrAlreadyPaid) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "already paid", "reservation_ids": []uint64{t.res.ID}})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record payment"})
		}
		if err := h.Reservations.UpdateStatusTx(ctx, tx, t.res.ID, model.StatusConfirmed); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to confirm reservation"})
		}
		confirmed = append(confirmed, confirmedReservation{ID: t.res.ID, Status: model.StatusConfirmed})
		paid = append(paid, toPaymentResp(pay))
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	utils.CardVerificationsTotal.WithLabelValues("approved").Inc()
	utils.PaymentsConfirmedTotal.Add(float64(len(targets)))
	for _, t := range targets {
		h.publishConfirmed(t.res.UserID, t.res.ID, t.res.WorkshopID, t.amount, method)
	}

	return c.JSON(http.StatusOK, verifyCardResp{
		IsValid:      true,
		CardLast4:    hold.Last4,
		Reservations: confirmed,
		Payments:     paid,
	})
}

// publishConfirmed fires the confirmation event in the background.
// Publishing is best effort; a broker outage must not fail the request.
func (h *PaymentHandler) publishConfirmed(userID, resID, workshopID uint64, amount float64, method string) {
	ev := queue.ReservationConfirmedEvent{
		ReservationID: resID,
		UserID:        userID,
		WorkshopID:    workshopID,
		Amount:        amount,
		PaymentMethod: method,
		ConfirmedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if w, err := h.Workshops.GetByID(context.Background(), workshopID); err == nil {
		ev.WorkshopName = w.Name
		ev.Date = w.Date.UTC().Format("2006-01-02")
		ev.StartTime = w.StartTime
		ev.EndTime = w.EndTime
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queuepublisher.PublishReservationConfirmed(ctx, ev); err != nil {
			utils.GetLogger().Warn("publish reservation.confirmed failed",
				zap.Uint64("reservation_id", resID), zap.Error(err))
		}
	}()
}
