package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedSandbox() *Sandbox {
	s := NewSandbox()
	s.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func validCard() Card {
	return Card{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
}

func TestAuthorizeHoldApproves(t *testing.T) {
	s := fixedSandbox()
	hold, err := s.AuthorizeHold(context.Background(), validCard(), HoldAmountCents)
	require.NoError(t, err)
	assert.NotEmpty(t, hold.Reference)
	assert.Equal(t, "4242", hold.Last4)
}

func TestAuthorizeHoldDeclinesTestNumbers(t *testing.T) {
	s := fixedSandbox()
	for _, number := range []string{"4000000000000002", "4000000000009995"} {
		card := validCard()
		card.Number = number
		_, err := s.AuthorizeHold(context.Background(), card, HoldAmountCents)
		assert.True(t, errors.Is(err, ErrCardDeclined), "expected decline for %s", number)
	}
}

func TestAuthorizeHoldRejectsBadLuhn(t *testing.T) {
	s := fixedSandbox()
	card := validCard()
	card.Number = "4242424242424241"
	_, err := s.AuthorizeHold(context.Background(), card, HoldAmountCents)
	assert.True(t, errors.Is(err, ErrCardDeclined))
}

func TestAuthorizeHoldRejectsExpiredCard(t *testing.T) {
	s := fixedSandbox()
	card := validCard()
	card.ExpMonth = 5
	card.ExpYear = 2026 // one month before the fixed clock
	_, err := s.AuthorizeHold(context.Background(), card, HoldAmountCents)
	assert.True(t, errors.Is(err, ErrCardDeclined))

	// Current month is still valid.
	card.ExpMonth = 6
	_, err = s.AuthorizeHold(context.Background(), card, HoldAmountCents)
	assert.NoError(t, err)
}

func TestAuthorizeHoldRejectsBadCVC(t *testing.T) {
	s := fixedSandbox()
	for _, cvc := range []string{"", "12", "12345", "abc"} {
		card := validCard()
		card.CVC = cvc
		_, err := s.AuthorizeHold(context.Background(), card, HoldAmountCents)
		assert.True(t, errors.Is(err, ErrCardDeclined), "cvc %q", cvc)
	}
}

func TestVoidHold(t *testing.T) {
	s := fixedSandbox()
	hold, err := s.AuthorizeHold(context.Background(), validCard(), HoldAmountCents)
	require.NoError(t, err)

	assert.NoError(t, s.VoidHold(context.Background(), hold.Reference))
	// Voiding again is a no-op, not an error.
	assert.NoError(t, s.VoidHold(context.Background(), hold.Reference))
	// Unknown references are rejected.
	assert.Error(t, s.VoidHold(context.Background(), "hold_unknown"))
}

func TestLuhnValid(t *testing.T) {
	cases := []struct {
		number string
		want   bool
	}{
		{"4242424242424242", true},
		{"4000000000000002", true}, // valid number, declined by policy not by Luhn
		{"4242424242424241", false},
		{"1234", false},  // too short
		{"", false},
		{"424242424242abcd", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, luhnValid(tc.number), "number %q", tc.number)
	}
}

func TestLast4(t *testing.T) {
	assert.Equal(t, "4242", last4("4242424242424242"))
	assert.Equal(t, "123", last4("123"))
}
