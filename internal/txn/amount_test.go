package txn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountStringDropsTrailingFractionalZeros(t *testing.T) {
	require.Equal(t, "25", NewAmountFromCoins(25, 0).String())
	require.Equal(t, "25.5", NewAmountFromCoins(25, 500000).String())
	require.Equal(t, "0.000001", Amount(1).String())
}

func TestAmountMarshalJSONEmitsBareNumber(t *testing.T) {
	b, err := json.Marshal(NewAmountFromCoins(25, 0))
	require.NoError(t, err)
	require.Equal(t, "25", string(b))

	b, err = json.Marshal(NewAmountFromCoins(25, 500000))
	require.NoError(t, err)
	require.Equal(t, "25.5", string(b))
}

func TestAmountRoundTripsThroughJSON(t *testing.T) {
	original := NewAmountFromCoins(142, 123456)

	b, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Amount
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, original, decoded)
}

func TestAmountFromCanonicalParsesWholeAndFractional(t *testing.T) {
	a, err := AmountFromCanonical("25")
	require.NoError(t, err)
	require.Equal(t, NewAmountFromCoins(25, 0), a)

	a, err = AmountFromCanonical("25.5")
	require.NoError(t, err)
	require.Equal(t, NewAmountFromCoins(25, 500000), a)
}

func TestAmountFromCanonicalRejectsTooManyFractionalDigits(t *testing.T) {
	_, err := AmountFromCanonical("1.1234567")
	require.Error(t, err)
}

func TestAmountPositive(t *testing.T) {
	require.True(t, Amount(1).Positive())
	require.False(t, Amount(0).Positive())
	require.False(t, Amount(-1).Positive())
}
