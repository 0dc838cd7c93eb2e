package querycache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a logical query as an ordered tuple of primitive values,
// e.g. Key{"events", "search", keyword, city}. Two keys with equal values
// address the same cache entry regardless of where they were built.
type Key []interface{}

// String returns the canonical encoding of the key. Each element is
// JSON-encoded and the parts are joined, so equality of encodings matches
// structural equality of the tuples.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		b, err := json.Marshal(v)
		if err != nil {
			// Non-encodable elements fall back to their formatted value.
			parts[i] = fmt.Sprintf("%v", v)
			continue
		}
		parts[i] = string(b)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// HasPrefix reports whether the leading elements of k match prefix, using
// the same canonical encoding as String. Key{"events","search","x"} has
// prefix Key{"events"} and Key{"events","search"}.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	return Key(k[:len(prefix)]).String() == prefix.String()
}
