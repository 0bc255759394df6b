package txn

import (
	"fmt"
	"strconv"
	"strings"
)

// AmountScale is the number of sub-units per whole coin. Amounts are kept
// as an integer count of sub-units internally so that hashing stays
// bit-stable across nodes; the wire/JSON form is a plain decimal number,
// printed with the minimum digits needed (no trailing fractional zeros
// for integral amounts), matching hashutil's canonicalization rule.
const AmountScale = 1_000_000

// Amount is a positive quantity of coin, represented as sub-units.
type Amount int64

// NewAmountFromCoins builds an Amount from a whole-and-fractional coin
// value, e.g. NewAmountFromCoins(25, 0) is 25 coins.
func NewAmountFromCoins(whole int64, subUnits int64) Amount {
	return Amount(whole*AmountScale + subUnits)
}

// Positive reports whether the amount is strictly greater than zero, the
// invariant every admitted transaction amount must satisfy.
func (a Amount) Positive() bool {
	return a > 0
}

// Float64 is used only for legacy-compatible display (e.g. /balance), not
// for hashing or validation.
func (a Amount) Float64() float64 {
	return float64(a) / float64(AmountScale)
}

// String renders the amount as a decimal string with no trailing zeros,
// the same canonical form used when the amount is hashed.
func (a Amount) String() string {
	return canonicalNumber(int64(a), AmountScale)
}

func canonicalNumber(subUnits int64, scale int64) string {
	neg := subUnits < 0
	if neg {
		subUnits = -subUnits
	}
	whole := subUnits / scale
	frac := subUnits % scale
	var s string
	if frac == 0 {
		s = strconv.FormatInt(whole, 10)
	} else {
		// digits(scale)-1 is the number of decimal digits (scale is a power of ten).
		fracStr := fmt.Sprintf("%0*d", digits(scale)-1, frac)
		fracStr = strings.TrimRight(fracStr, "0")
		s = strconv.FormatInt(whole, 10) + "." + fracStr
	}
	if neg {
		s = "-" + s
	}
	return s
}

func digits(scale int64) int {
	n := 0
	for scale > 0 {
		scale /= 10
		n++
	}
	return n
}

// MarshalJSON emits the amount as a bare JSON number in canonical form
// (e.g. 25 or 25.5), never as a quoted string, so that hashutil.H of a
// transaction record containing an Amount matches what a peer node
// recomputes from the same wire bytes.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts both a bare JSON number and a quoted string, since
// some JSON encoders on the wire may quote large decimals.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := AmountFromCanonical(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// AmountFromCanonical parses the canonical decimal-string/number form back
// into sub-units. Accepts both "25" and "25.5".
func AmountFromCanonical(s string) (Amount, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	whole, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("txn: invalid amount %q: %w", s, err)
	}
	subUnits := whole * AmountScale
	if len(parts) == 2 {
		fracDigits := parts[1]
		if len(fracDigits) > digits(AmountScale)-1 {
			return 0, fmt.Errorf("txn: amount %q has too many fractional digits", s)
		}
		fracDigits = fracDigits + strings.Repeat("0", digits(AmountScale)-1-len(fracDigits))
		frac, err := strconv.ParseInt(fracDigits, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("txn: invalid amount %q: %w", s, err)
		}
		subUnits += frac
	}
	if neg {
		subUnits = -subUnits
	}
	return Amount(subUnits), nil
}
