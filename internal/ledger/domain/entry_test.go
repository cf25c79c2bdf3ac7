package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryValidate(t *testing.T) {
	base := Entry{ProductID: "sku-1", CauseRef: "po:1"}

	cases := []struct {
		name  string
		kind  Kind
		delta int
		ok    bool
	}{
		{"inbound positive", KindInbound, 5, true},
		{"inbound zero", KindInbound, 0, false},
		{"inbound negative", KindInbound, -5, false},
		{"outbound negative", KindOutbound, -2, true},
		{"outbound positive", KindOutbound, 2, false},
		{"return positive", KindReturn, 1, true},
		{"return negative", KindReturn, -1, false},
		{"adjustment positive", KindAdjustment, 3, true},
		{"adjustment negative", KindAdjustment, -3, true},
		{"adjustment zero", KindAdjustment, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := base
			e.Kind = tc.kind
			e.Delta = tc.delta
			err := e.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			var invalid *InvalidDeltaError
			assert.ErrorAs(t, err, &invalid)
		})
	}

	t.Run("missing product", func(t *testing.T) {
		e := Entry{CauseRef: "po:1", Kind: KindInbound, Delta: 1}
		require.Error(t, e.Validate())
	})

	t.Run("unknown kind", func(t *testing.T) {
		e := Entry{ProductID: "sku-1", CauseRef: "po:1", Kind: "teleport", Delta: 1}
		require.Error(t, e.Validate())
	})
}

func TestIdempotencyKey(t *testing.T) {
	a := Entry{ProductID: "sku-1", Kind: KindOutbound, CauseRef: "checkout:o1"}
	b := Entry{ProductID: "sku-2", Kind: KindOutbound, CauseRef: "checkout:o1"}
	assert.NotEqual(t, a.IdempotencyKey(), b.IdempotencyKey(), "same cause, different products must not collide")
	assert.Equal(t, Key("checkout:o1", KindOutbound, "sku-1"), a.IdempotencyKey())
}
