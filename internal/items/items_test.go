package items

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrice(t *testing.T) {
	tests := []struct {
		name          string
		salePrice     string
		regularPrice  string
		wantPrice     float64
		wantFullPrice float64
	}{
		{
			name:          "sale price wins",
			salePrice:     "9.99",
			regularPrice:  "19.99",
			wantPrice:     9.99,
			wantFullPrice: 19.99,
		},
		{
			name:          "no sale price",
			salePrice:     "",
			regularPrice:  "19.99",
			wantPrice:     19.99,
			wantFullPrice: 19.99,
		},
		{
			name:          "zero sale price ignored",
			salePrice:     "0",
			regularPrice:  "12.50",
			wantPrice:     12.50,
			wantFullPrice: 12.50,
		},
		{
			name:          "garbage prices become zero",
			salePrice:     "abc",
			regularPrice:  "xyz",
			wantPrice:     0,
			wantFullPrice: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, fullPrice := ResolvePrice(tt.salePrice, tt.regularPrice)
			assert.Equal(t, tt.wantPrice, price)
			assert.Equal(t, tt.wantFullPrice, fullPrice)
		})
	}
}

func TestUnitPrice(t *testing.T) {
	assert.Equal(t, 10.0, UnitPrice("30.00", 3))
	assert.Equal(t, 0.0, UnitPrice("30.00", 0))
	assert.Equal(t, 0.0, UnitPrice("", 2))
	assert.Equal(t, 3.33, UnitPrice("9.99", 3))
}

func TestVariantRefJSON(t *testing.T) {
	t.Run("marshal", func(t *testing.T) {
		raw, err := json.Marshal(NoVariants)
		require.NoError(t, err)
		assert.JSONEq(t, `"no-variants"`, string(raw))

		raw, err = json.Marshal(Variant(42))
		require.NoError(t, err)
		assert.JSONEq(t, `42`, string(raw))
	})

	t.Run("unmarshal", func(t *testing.T) {
		tests := []struct {
			input       string
			wantID      int64
			wantVariant bool
			wantErr     bool
		}{
			{input: `42`, wantID: 42, wantVariant: true},
			{input: `"42"`, wantID: 42, wantVariant: true},
			{input: `"no-variants"`, wantID: 0, wantVariant: false},
			{input: `""`, wantID: 0, wantVariant: false},
			{input: `"bogus"`, wantErr: true},
			{input: `true`, wantErr: true},
		}

		for _, tt := range tests {
			var ref VariantRef
			err := json.Unmarshal([]byte(tt.input), &ref)
			if tt.wantErr {
				assert.Error(t, err, "input %s", tt.input)
				continue
			}
			require.NoError(t, err, "input %s", tt.input)
			assert.Equal(t, tt.wantID, ref.ID())
			assert.Equal(t, tt.wantVariant, ref.IsVariant())
		}
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "no-variants", NoVariants.String())
		assert.Equal(t, "7", Variant(7).String())
	})
}
