package hashutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHIsDeterministicRegardlessOfKeyOrder(t *testing.T) {
	a := map[string]any{"sender": nil, "recipient": "abc", "amount": 5, "timestamp": 100}
	b := map[string]any{"timestamp": 100, "amount": 5, "recipient": "abc", "sender": nil}

	require.Equal(t, H(a), H(b))
	require.Len(t, H(a), 64)
}

func TestHChangesWithAnyField(t *testing.T) {
	base := map[string]any{"sender": "x", "recipient": "y", "amount": 1, "timestamp": 1}
	mutated := map[string]any{"sender": "x", "recipient": "y", "amount": 2, "timestamp": 1}

	require.NotEqual(t, H(base), H(mutated))
}

func TestHNestedSlicesAndMapsAreCanonicalized(t *testing.T) {
	a := map[string]any{
		"txs": []any{
			map[string]any{"b": 2, "a": 1},
		},
	}
	b := map[string]any{
		"txs": []any{
			map[string]any{"a": 1, "b": 2},
		},
	}
	require.Equal(t, H(a), H(b))
}
