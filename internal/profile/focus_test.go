package profile

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMerchant(t *testing.T) {
	tests := []struct {
		merchant string
		expected string
	}{
		{"SINGAPORE AIRLINES", "travel"},
		{"MARINA BAY SANDS HOTEL", "travel"},
		{"THE COFFEE BEAN", "dining"},
		{"CRAB SHACK RESTAURANT", "dining"},
		{"AMAZON.COM*RT4Y7HG2", "online"},
		{"SHOPEE SG", "online"},
		{"FAIRPRICE FINEST", "groceries"},
		{"WHOLE FOODS MARKET", "groceries"},
		{"GRAB* RIDE 8832", "transport"},
		{"TRANSIT LINK PTE", "transport"},
		{"NETFLIX.COM", "general"},
		{"", "general"},
		// Rule order: travel vocabulary wins over the online word.
		{"ONLINE TRAVEL AGENCY", "travel"},
	}

	for _, tt := range tests {
		t.Run(tt.merchant, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyMerchant(tt.merchant))
		})
	}
}

func TestDeriveFocus(t *testing.T) {
	t.Run("shares sum to one", func(t *testing.T) {
		spends := []Spend{
			{Merchant: "SINGAPORE AIRLINES", Amount: 800},
			{Merchant: "FAIRPRICE FINEST", Amount: 150},
			{Merchant: "THE COFFEE BEAN", Amount: 50},
		}

		focus := DeriveFocus(spends)

		require.Len(t, focus, 3)
		assert.InDelta(t, 0.80, focus["travel"], 1e-9)
		assert.InDelta(t, 0.15, focus["groceries"], 1e-9)
		assert.InDelta(t, 0.05, focus["dining"], 1e-9)

		var sum float64
		for _, share := range focus {
			sum += share
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	})

	t.Run("same category merchants merge", func(t *testing.T) {
		spends := []Spend{
			{Merchant: "THE COFFEE BEAN", Amount: 30},
			{Merchant: "CRAB SHACK RESTAURANT", Amount: 70},
		}

		focus := DeriveFocus(spends)

		require.Len(t, focus, 1)
		assert.InDelta(t, 1.0, focus["dining"], 1e-9)
	})

	t.Run("unknown merchants fall back to general", func(t *testing.T) {
		spends := []Spend{
			{Merchant: "NETFLIX.COM", Amount: 15},
			{Merchant: "SINGAPORE AIRLINES", Amount: 45},
		}

		focus := DeriveFocus(spends)

		require.Len(t, focus, 2)
		assert.InDelta(t, 0.25, focus["general"], 1e-9)
		assert.InDelta(t, 0.75, focus["travel"], 1e-9)
	})

	t.Run("empty spends yield empty focus", func(t *testing.T) {
		assert.Empty(t, DeriveFocus(nil))
		assert.Empty(t, DeriveFocus([]Spend{}))
	})

	t.Run("zero amounts yield empty focus", func(t *testing.T) {
		spends := []Spend{{Merchant: "SINGAPORE AIRLINES", Amount: 0}}
		assert.Empty(t, DeriveFocus(spends))
	})
}

func TestDeriveFocusFromStatement(t *testing.T) {
	parser := NewParser()
	spends, err := parser.Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	focus := DeriveFocus(spends)

	require.Len(t, focus, 3)
	assert.InDelta(t, 0.80, focus["travel"], 1e-9)
	assert.InDelta(t, 0.15, focus["groceries"], 1e-9)
	assert.InDelta(t, 0.05, focus["dining"], 1e-9)
}
