package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mastercook/workshop-booking/internal/model"
)

func validCardReq() cardReq {
	return cardReq{
		CardNumber:     "4242 4242 4242 4242",
		ExpMonth:       12,
		ExpYear:        2030,
		CVC:            "123",
		ReservationIDs: []uint64{1, 2},
	}
}

func TestValidateCardReqAccepts(t *testing.T) {
	req := validCardReq()
	assert.Empty(t, validateCardReq(&req))
	// Spaces are stripped before the number reaches the provider.
	assert.Equal(t, "4242424242424242", req.CardNumber)
}

func TestValidateCardReqRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*cardReq)
	}{
		{"missing number", func(r *cardReq) { r.CardNumber = " " }},
		{"month too low", func(r *cardReq) { r.ExpMonth = 0 }},
		{"month too high", func(r *cardReq) { r.ExpMonth = 13 }},
		{"missing year", func(r *cardReq) { r.ExpYear = 0 }},
		{"missing cvc", func(r *cardReq) { r.CVC = "" }},
		{"no reservations", func(r *cardReq) { r.ReservationIDs = nil }},
		{"duplicate reservations", func(r *cardReq) { r.ReservationIDs = []uint64{3, 3} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validCardReq()
			tc.mutate(&req)
			assert.NotEmpty(t, validateCardReq(&req))
		})
	}
}

func TestToPaymentResp(t *testing.T) {
	method := "card ending in 4242"
	paid := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &model.Payment{
		ID:            7,
		ReservationID: 12,
		Amount:        45.0,
		Status:        model.PaymentPaid,
		PaymentMethod: &method,
		PaymentDate:   &paid,
		CreatedAt:     paid,
	}
	resp := toPaymentResp(p)
	assert.Equal(t, uint64(7), resp.ID)
	assert.Equal(t, uint64(12), resp.ReservationID)
	assert.Equal(t, model.PaymentPaid, resp.Status)
	assert.Equal(t, "2026-03-01T10:00:00Z", *resp.PaymentDate)

	p.PaymentDate = nil
	p.Status = model.PaymentPending
	resp = toPaymentResp(p)
	assert.Nil(t, resp.PaymentDate)
}

func TestVerifyCardRespApprovedShape(t *testing.T) {
	// An approved verification lists every confirmed reservation together
	// with its payment row.
	resp := verifyCardResp{
		IsValid:   true,
		CardLast4: "4242",
		Reservations: []confirmedReservation{
			{ID: 1, Status: model.StatusConfirmed},
			{ID: 2, Status: model.StatusConfirmed},
		},
		Payments: []paymentResp{
			{ID: 10, ReservationID: 1, Amount: 45.0, Status: model.PaymentPaid},
			{ID: 11, ReservationID: 2, Amount: 30.0, Status: model.PaymentPaid},
		},
	}
	b, err := json.Marshal(resp)
	assert.NoError(t, err)
	body := string(b)
	assert.Contains(t, body, `"is_valid":true`)
	assert.Contains(t, body, `"card_last4":"4242"`)
	assert.Contains(t, body, `"reservations":[`)
	assert.Contains(t, body, `"payments":[`)
	assert.NotContains(t, body, `"reason"`)
}

func TestVerifyCardRespDeclinedShape(t *testing.T) {
	b, err := json.Marshal(verifyCardResp{IsValid: false, Reason: "card declined: do not honor"})
	assert.NoError(t, err)
	body := string(b)
	assert.Contains(t, body, `"is_valid":false`)
	assert.Contains(t, body, `"reason":"card declined: do not honor"`)
	assert.NotContains(t, body, `"payments"`)
	assert.NotContains(t, body, `"reservations"`)
}
