// Package canon implements the canonical JSON encoding used throughout the
// kernel for content hashing: UTF-8, sorted object keys, no insignificant
// whitespace, NFC-normalized strings, numbers in their shortest round-trip
// form. It has no relation to JSON Canonicalization Scheme (RFC 8785)
// tooling; it is a small purpose-built encoder for the kernel's own value
// set.
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// Marshal encodes v into canonical form. v must already be a tree of
// maps/slices/strings/numbers/bools/nil (typically produced by
// json.Marshal+json.Unmarshal into interface{}, or built directly), never a
// struct — callers convert structs to maps explicitly so field order and
// presence are under their control.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalStruct round-trips v through encoding/json to obtain a generic
// value tree, rejects NaN/Inf, then canonicalizes. This is the entry point
// used by hashing call sites that hold a concrete Go struct.
func MarshalStruct(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal struct: %w", err)
	}
	var generic interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canon: decode struct: %w", err)
	}
	return Marshal(generic)
}

func encode(buf *bytes.Buffer, v interface{}) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case string:
		return encodeString(buf, x)
	case json.Number:
		return encodeNumber(buf, x)
	case float64:
		return encodeNumber(buf, json.Number(fmt.Sprintf("%v", x)))
	case int:
		return encodeNumber(buf, json.Number(strconv.Itoa(x)))
	case int64:
		return encodeNumber(buf, json.Number(strconv.FormatInt(x, 10)))
	case map[string]interface{}:
		return encodeObject(buf, x)
	case []interface{}:
		return encodeArray(buf, x)
	default:
		return fmt.Errorf("canon: unsupported type %T", v)
	}
}

func encodeString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)
	data, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("canon: encode string: %w", err)
	}
	buf.Write(data)
	return nil
}

func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canon: invalid number %q: %w", n, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("canon: NaN/Inf not representable: %v", f)
	}
	// json.Number already carries the shortest textual form encoding/json
	// produced on the way in; re-emit it verbatim.
	buf.WriteString(n.String())
	return nil
}

func encodeObject(buf *bytes.Buffer, m map[string]interface{}) error {
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
		if err := encodeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encode(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeArray(buf *bytes.Buffer, a []interface{}) error {
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encode(buf, v); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}
