// Package payment abstracts the external card-authorization provider.
// The booking service never captures funds: it tokenizes a card,
// places a minimal authorization hold and voids the hold immediately,
// keeping only a hashed reference to prove the card was authorizable.
package payment

import (
    "context"
    "errors"
)

// HoldAmountCents is the fixed amount for verification holds: one
// unit of currency, authorize-only with manual capture, voided right
// after authorization succeeds.
const HoldAmountCents int64 = 100

// ErrCardDeclined is returned by Authorizer implementations when the
// provider refuses the authorization for card-specific reasons
// (declined, insufficient funds, expired card).  It is an expected
// outcome, reported to callers as a soft verification failure rather
// than a server error.
var ErrCardDeclined = errors.New("card declined")

// Card carries the raw card details submitted for verification.  The
// values are forwarded to the provider for tokenization and never
// persisted; only the last four digits survive for display.
type Card struct {
    Number   string
    ExpMonth int
    ExpYear  int
    CVC      string
}

// Hold describes the result of an authorize-without-capture request.
// Reference is the provider's identifier for the hold; it is hashed
// before any part of it is stored.
type Hold struct {
    Reference string
    Last4     string
}

// Authorizer is the capability the payment flow needs from a card
// provider: create an authorization hold and void it.  Production
// wires a real gateway; tests and the sandbox deployment use the
// deterministic implementation in this package.
type Authorizer interface {
    // AuthorizeHold tokenizes the card and places a hold for the given
    // amount in cents without capturing funds.  It returns
    // ErrCardDeclined (possibly wrapped) when the card is not
    // authorizable; any other error is an unexpected provider fault.
    AuthorizeHold(ctx context.Context, card Card, amountCents int64) (*Hold, error)

    // VoidHold cancels a previously created hold so no funds ever move.
    VoidHold(ctx context.Context, reference string) error
}
