// Package payload decodes product-data and review API responses into the
// domain model. Irregular field shapes are absorbed into empty or absent
// values; only a malformed document or a missing required field fails.
package payload

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

var errNotObject = errors.New("payload is not a JSON object")

// object is one decoded JSON object with its values still raw.
type object map[string]stdjson.RawMessage

func parseObject(data []byte) (object, error) {
	var obj object
	if err := codec.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}

// raw returns the value under key unless it is missing or null.
func (o object) raw(key string) (stdjson.RawMessage, bool) {
	v, ok := o[key]
	if !ok || isNull(v) {
		return nil, false
	}
	return v, true
}

// child returns the nested object under key.
func (o object) child(key string) (object, bool) {
	v, ok := o.raw(key)
	if !ok {
		return nil, false
	}
	obj, err := parseObject(v)
	if err != nil {
		return nil, false
	}
	return obj, true
}

// scalar returns the string-or-number value under key.
func (o object) scalar(key string) (string, bool) {
	v, ok := o.raw(key)
	if !ok {
		return "", false
	}
	return scalarString(v)
}

// optional returns the value under key as an optional string. Arrays of
// scalars are joined so no entry is lost.
func (o object) optional(key string) *string {
	v, ok := o.raw(key)
	if !ok {
		return nil
	}
	if s, ok := scalarString(v); ok {
		return &s
	}
	if list := stringList(v); len(list) > 0 {
		joined := strings.Join(list, ", ")
		return &joined
	}
	return nil
}

// text returns the value under key, or "" when it is absent or not a scalar.
func (o object) text(key string) string {
	s, _ := o.scalar(key)
	return s
}

// list returns the string-or-array value under key as a sequence.
func (o object) list(key string) []string {
	v, ok := o.raw(key)
	if !ok {
		return []string{}
	}
	return stringList(v)
}

// integer returns the numeric value under key; "1,234" style strings are accepted.
func (o object) integer(key string) int {
	s, ok := o.scalar(key)
	if !ok {
		return 0
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// boolean returns the boolean value under key; "true"/"false" strings and 0/1 are accepted.
func (o object) boolean(key string) bool {
	v, ok := o.raw(key)
	if !ok {
		return false
	}
	var b bool
	if err := codec.Unmarshal(v, &b); err == nil {
		return b
	}
	if s, ok := scalarString(v); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(s))
		return err == nil && parsed
	}
	return false
}

// array returns the elements of the array under key.
func (o object) array(key string) ([]stdjson.RawMessage, bool) {
	v, ok := o.raw(key)
	if !ok {
		return nil, false
	}
	var elems []stdjson.RawMessage
	if err := codec.Unmarshal(v, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

// stringList decodes a string-or-array value: an array first, then a single
// scalar wrapped in a one-element sequence, then an empty sequence.
func stringList(v stdjson.RawMessage) []string {
	var elems []stdjson.RawMessage
	if err := codec.Unmarshal(v, &elems); err == nil {
		out := make([]string, 0, len(elems))
		for _, elem := range elems {
			if s, ok := scalarString(elem); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if s, ok := scalarString(v); ok {
		return []string{s}
	}
	return []string{}
}

// scalarString decodes a string-or-number value: a string is returned as is,
// a number in its source spelling.
func scalarString(v stdjson.RawMessage) (string, bool) {
	if isNull(v) {
		return "", false
	}
	var s string
	if err := codec.Unmarshal(v, &s); err == nil {
		return s, true
	}
	var n stdjson.Number
	if err := codec.Unmarshal(v, &n); err == nil && n != "" {
		return canonicalNumber(n), true
	}
	return "", false
}

// canonicalNumber keeps the literal digits of n, trailing zeros included.
// Exponent forms are expanded to plain decimal.
func canonicalNumber(n stdjson.Number) string {
	s := n.String()
	if !strings.ContainsAny(s, "eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isNull(v stdjson.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
