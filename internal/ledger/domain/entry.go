package domain

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindInbound    Kind = "inbound"
	KindOutbound   Kind = "outbound"
	KindAdjustment Kind = "adjustment"
	KindReturn     Kind = "return"
)

// Entry is an immutable stock movement fact. Entries are only ever appended;
// corrections happen through further entries, never edits.
type Entry struct {
	ID        string
	ProductID string
	Delta     int
	Kind      Kind
	CauseRef  string
	Actor     string
	CreatedAt time.Time
}

// IdempotencyKey identifies a logical event so replays are no-ops.
// One cause can touch several products, hence the product in the key.
func (e Entry) IdempotencyKey() string {
	return Key(e.CauseRef, e.Kind, e.ProductID)
}

func Key(causeRef string, kind Kind, productID string) string {
	return causeRef + "|" + string(kind) + "|" + productID
}

func (e Entry) Validate() error {
	if e.ProductID == "" || e.CauseRef == "" {
		return fmt.Errorf("ledger entry missing product or cause")
	}
	switch e.Kind {
	case KindInbound, KindReturn:
		if e.Delta <= 0 {
			return &InvalidDeltaError{ProductID: e.ProductID, Delta: e.Delta, Reason: string(e.Kind) + " delta must be positive"}
		}
	case KindOutbound:
		if e.Delta >= 0 {
			return &InvalidDeltaError{ProductID: e.ProductID, Delta: e.Delta, Reason: "outbound delta must be negative"}
		}
	case KindAdjustment:
		if e.Delta == 0 {
			return &InvalidDeltaError{ProductID: e.ProductID, Delta: e.Delta, Reason: "adjustment delta must be non-zero"}
		}
	default:
		return fmt.Errorf("unknown ledger kind %q", e.Kind)
	}
	return nil
}

// InvalidDeltaError reports an append that would corrupt ledger integrity,
// either by sign or by driving computed stock negative. Correct callers never
// trigger it.
type InvalidDeltaError struct {
	ProductID string
	Delta     int
	Reason    string
}

func (e *InvalidDeltaError) Error() string {
	return fmt.Sprintf("invalid delta %d for product %s: %s", e.Delta, e.ProductID, e.Reason)
}
