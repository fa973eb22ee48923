package payment

import (
    "context"
    "crypto/rand"
    "encoding/hex"
    "fmt"
    "strings"
    "sync"
    "time"
)

// Well-known sandbox card numbers that trigger deterministic declines,
// mirroring the test numbers card gateways publish.
const (
    sandboxDeclineCard      = "4000000000000002"
    sandboxInsufficientCard = "4000000000009995"
)

// Sandbox is an in-process Authorizer used in development and tests.
// It validates the card shape (Luhn digits, expiry in the future) and
// declines the well-known test numbers; every other valid card is
// authorizable.  Holds are kept in memory so VoidHold can verify the
// reference it is given.
type Sandbox struct {
    mu    sync.Mutex
    holds map[string]bool

    // now is injectable for expiry tests.
    now func() time.Time
}

// NewSandbox returns a ready-to-use sandbox provider.
func NewSandbox() *Sandbox {
    return &Sandbox{holds: make(map[string]bool), now: time.Now}
}

// AuthorizeHold implements Authorizer.
func (s *Sandbox) AuthorizeHold(ctx context.Context, card Card, amountCents int64) (*Hold, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    if amountCents <= 0 {
        return nil, fmt.Errorf("invalid hold amount: %d", amountCents)
    }
    number := strings.ReplaceAll(strings.TrimSpace(card.Number), " ", "")
    if !luhnValid(number) {
        return nil, fmt.Errorf("%w: invalid card number", ErrCardDeclined)
    }
    if expired(card.ExpMonth, card.ExpYear, s.now().UTC()) {
        return nil, fmt.Errorf("%w: card expired", ErrCardDeclined)
    }
    if !cvcValid(card.CVC) {
        return nil, fmt.Errorf("%w: invalid cvc", ErrCardDeclined)
    }
    switch number {
    case sandboxDeclineCard:
        return nil, fmt.Errorf("%w: do not honor", ErrCardDeclined)
    case sandboxInsufficientCard:
        return nil, fmt.Errorf("%w: insufficient funds", ErrCardDeclined)
    }

    buf := make([]byte, 16)
    if _, err := rand.Read(buf); err != nil {
        return nil, err
    }
    ref := "hold_" + hex.EncodeToString(buf)

    s.mu.Lock()
    s.holds[ref] = true
    s.mu.Unlock()

    return &Hold{
        Reference: ref,
        Last4:     last4(number),
    }, nil
}

// VoidHold implements Authorizer.  Voiding an unknown reference is an
// error; voiding twice is not (the second call is a no-op), matching
// gateways that treat void as idempotent.
func (s *Sandbox) VoidHold(ctx context.Context, reference string) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    active, known := s.holds[reference]
    if !known {
        return fmt.Errorf("unknown hold reference %q", reference)
    }
    if active {
        s.holds[reference] = false
    }
    return nil
}

// last4 returns the final four digits of a card number for display,
// or the whole string when it is shorter than four characters.
func last4(number string) string {
    if len(number) <= 4 {
        return number
    }
    return number[len(number)-4:]
}

// cvcValid reports whether the CVC is three or four digits.
func cvcValid(cvc string) bool {
    if len(cvc) < 3 || len(cvc) > 4 {
        return false
    }
    for i := 0; i < len(cvc); i++ {
        if cvc[i] < '0' || cvc[i] > '9' {
            return false
        }
    }
    return true
}

// luhnValid reports whether the string is a plausible card number:
// 12-19 digits passing the Luhn checksum.
func luhnValid(number string) bool {
    if len(number) < 12 || len(number) > 19 {
        return false
    }
    sum := 0
    double := false
    for i := len(number) - 1; i >= 0; i-- {
        c := number[i]
        if c < '0' || c > '9' {
            return false
        }
        d := int(c - '0')
        if double {
            d *= 2
            if d > 9 {
                d -= 9
            }
        }
        sum += d
        double = !double
    }
    return sum%10 == 0
}

// expired reports whether the month/year pair lies strictly before
// the current month.  A card expiring this month is still valid.
func expired(month, year int, now time.Time) bool {
    if month < 1 || month > 12 || year < 100 {
        return true
    }
    if year < now.Year() {
        return true
    }
    return year == now.Year() && month < int(now.Month())
}
