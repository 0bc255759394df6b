// Package hashutil implements the canonical-JSON hashing primitive shared
// by every other component: H(record) -> 64-char lowercase hex SHA-256.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// H canonicalizes record (recursively sorted map keys, compact separators,
// integral numbers without fractional zeros) and returns the hex-encoded
// SHA-256 digest of the UTF-8 bytes. Determinism across nodes is a hard
// requirement: the same record must always produce the same digest,
// independent of map iteration order or Go's own json field ordering.
func H(record any) string {
	canon := canonicalize(record)
	encoded, err := json.Marshal(canon)
	if err != nil {
		// record is built entirely from maps, slices, strings, numbers and
		// nil by every caller in this module; a marshal failure here means
		// a caller passed something unencodable, which is a programming
		// error, not a runtime condition to recover from.
		panic(fmt.Sprintf("hashutil: cannot canonicalize record: %v", err))
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// canonicalize walks v and returns a value whose JSON encoding is
// deterministic: map[string]any becomes an orderedMap (marshaled with
// sorted keys), slices/arrays are walked element-wise, and everything else
// passes through unchanged.
func canonicalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]kv, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, kv{key: k, value: canonicalize(val[k])})
		}
		return orderedMap(pairs)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = canonicalize(item)
		}
		return out
	default:
		return val
	}
}

type kv struct {
	key   string
	value any
}

// orderedMap marshals as a JSON object with keys emitted in the order
// given, which canonicalize has already sorted lexicographically.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, '{')
	for i, pair := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(pair.key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		valBytes, err := json.Marshal(pair.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}
