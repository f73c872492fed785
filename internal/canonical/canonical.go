// Package canonical produces the deterministic byte encoding that wipe
// certificates are hashed and signed over.
//
// The encoding is a strict JSON subset: object keys are sorted
// lexicographically at every nesting level, and only strings, integers,
// booleans, nested maps and slices of those are representable. Floating
// point values have no single canonical form and are rejected outright;
// every attested field is defined as a string or integer for exactly
// this reason. Two structurally equal payloads always encode to
// identical bytes regardless of construction order.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Version identifies the canonical encoding. Bump only with a migration
// plan for every certificate already in storage.
const Version = 1

// ErrUnsupportedType is wrapped by Marshal when a payload contains a
// value with no canonical form. Issuance must not proceed past it.
type ErrUnsupportedType struct {
	Key   string
	Value interface{}
}

func (e *ErrUnsupportedType) Error() string {
	return fmt.Sprintf("canonical: unsupported value of type %T at key %q", e.Value, e.Key)
}

// Marshal encodes a payload into canonical bytes.
func Marshal(payload map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeMap(&buf, "", payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns the hex-encoded SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func writeMap(buf *bytes.Buffer, parent string, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, k)
		buf.WriteByte(':')
		path := k
		if parent != "" {
			path = parent + "." + k
		}
		if err := writeValue(buf, path, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, key string, v interface{}) error {
	switch val := v.(type) {
	case string:
		writeString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint32:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case map[string]interface{}:
		return writeMap(buf, key, val)
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, fmt.Sprintf("%s[%d]", key, i), elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// Catches float32/float64, nil, time.Time and anything else
		// that slipped through from a decoded JSON body.
		return &ErrUnsupportedType{Key: key, Value: v}
	}
	return nil
}

// writeString emits a JSON string. encoding/json escaping is stable for
// a given input, which is all determinism requires.
func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
