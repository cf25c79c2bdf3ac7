package domain

import (
	"fmt"
	"time"
)

type Review struct {
	ID               string
	ProductID        string
	UserID           string
	OrderID          string // order the reviewer claims the purchase from, optional
	Rating           int
	Text             string
	VerifiedPurchase bool
	CreatedAt        time.Time
}

// ValidationError rejects a review before it is stored: bad rating, or a
// purchase claim that does not hold up.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid review %s: %s", e.Field, e.Reason)
}
