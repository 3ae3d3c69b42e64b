package engine

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// Encoded key tags. Byte order of the tags is the cross-type key order.
const (
	tagEnd    byte = 0x00
	tagNumber byte = 0x10
	tagDate   byte = 0x20
	tagString byte = 0x30
	tagBinary byte = 0x40
	tagArray  byte = 0x50

	escapeByte byte = 0xFF
)

// NormalizeKey converts v into its canonical key form: float64, string,
// time.Time, []byte or []any of canonical keys.
func NormalizeKey(v any) (any, error) {
	switch k := v.(type) {
	case float64:
		if math.IsNaN(k) {
			return nil, newError(NameData, "NaN is not a valid key")
		}

		if k == 0 {
			return float64(0), nil
		}

		return k, nil
	case float32:
		return NormalizeKey(float64(k))
	case int:
		return float64(k), nil
	case int8:
		return float64(k), nil
	case int16:
		return float64(k), nil
	case int32:
		return float64(k), nil
	case int64:
		return float64(k), nil
	case uint:
		return float64(k), nil
	case uint8:
		return float64(k), nil
	case uint16:
		return float64(k), nil
	case uint32:
		return float64(k), nil
	case uint64:
		return float64(k), nil
	case json.Number:
		f, err := k.Float64()
		if err != nil {
			return nil, wrapError(NameData, err, "invalid numeric key %q", k.String())
		}

		return NormalizeKey(f)
	case string:
		return k, nil
	case time.Time:
		return k, nil
	case []byte:
		return append([]byte(nil), k...), nil
	case []string:
		out := make([]any, len(k))
		for i, s := range k {
			out[i] = s
		}

		return out, nil
	case []any:
		out := make([]any, len(k))

		for i, elem := range k {
			n, err := NormalizeKey(elem)
			if err != nil {
				return nil, err
			}

			out[i] = n
		}

		return out, nil
	case nil:
		return nil, newError(NameData, "null is not a valid key")
	default:
		return nil, newError(NameData, "%T is not a valid key", v)
	}
}

// EncodeKey returns the order-preserving encoding of key.
func EncodeKey(key any) ([]byte, error) {
	n, err := NormalizeKey(key)
	if err != nil {
		return nil, err
	}

	return appendKey(nil, n), nil
}

// CompareKeys orders two keys the way the engine stores them.
func CompareKeys(a, b any) (int, error) {
	ea, err := EncodeKey(a)
	if err != nil {
		return 0, err
	}

	eb, err := EncodeKey(b)
	if err != nil {
		return 0, err
	}

	return bytes.Compare(ea, eb), nil
}

func appendKey(buf []byte, key any) []byte {
	switch k := key.(type) {
	case float64:
		buf = append(buf, tagNumber)
		return appendFloat(buf, k)
	case time.Time:
		buf = append(buf, tagDate)
		return appendFloat(buf, float64(k.UnixMilli()))
	case string:
		buf = append(buf, tagString)
		return appendEscaped(buf, []byte(k))
	case []byte:
		buf = append(buf, tagBinary)
		return appendEscaped(buf, k)
	case []any:
		buf = append(buf, tagArray)
		for _, elem := range k {
			buf = appendKey(buf, elem)
		}

		return append(buf, tagEnd)
	}

	// unreachable for normalized keys
	return buf
}

// appendFloat writes f so that unsigned byte order matches numeric order.
func appendFloat(buf []byte, f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) == 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}

	return append(buf,
		byte(bits>>56), byte(bits>>48), byte(bits>>40), byte(bits>>32),
		byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits))
}

// appendEscaped writes b terminated by a single zero byte; zero bytes inside
// b are written as 0x00 0xFF so the terminator stays unambiguous.
func appendEscaped(buf, b []byte) []byte {
	for _, c := range b {
		buf = append(buf, c)
		if c == tagEnd {
			buf = append(buf, escapeByte)
		}
	}

	return append(buf, tagEnd)
}
