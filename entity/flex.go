package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Flex holds a counter that is normally an integer but may arrive as a
// string (or anything else) from older files. The raw JSON is kept so a
// value that cannot be coerced survives a round trip unchanged.
type Flex struct {
	raw json.RawMessage
}

// IntFlex returns a Flex holding n.
func IntFlex(n int) *Flex {
	return &Flex{raw: json.RawMessage(strconv.Itoa(n))}
}

// StringFlex returns a Flex holding the JSON string s.
func StringFlex(s string) *Flex {
	b, _ := json.Marshal(s)
	return &Flex{raw: b}
}

// Int returns the integer value, coercing numeric strings and integral
// floats. ok is false if the value is not an integer.
func (f *Flex) Int() (int, bool) {
	if f == nil || len(f.raw) == 0 {
		return 0, false
	}

	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(f.raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}

	switch val := v.(type) {
	case json.Number:
		n = val
	case string:
		n = json.Number(strings.TrimSpace(val))
	default:
		return 0, false
	}

	if i, err := strconv.Atoi(n.String()); err == nil {
		return i, true
	}
	if fl, err := strconv.ParseFloat(n.String(), 64); err == nil && fl == float64(int(fl)) {
		return int(fl), true
	}
	return 0, false
}

// Coerce returns a Flex holding the integer form of f when possible and f
// itself otherwise.
func (f *Flex) Coerce() *Flex {
	if f == nil {
		return nil
	}
	if n, ok := f.Int(); ok {
		return IntFlex(n)
	}
	return f
}

// String renders the value for display.
func (f *Flex) String() string {
	if f == nil {
		return ""
	}
	if n, ok := f.Int(); ok {
		return strconv.Itoa(n)
	}
	var s string
	if err := json.Unmarshal(f.raw, &s); err == nil {
		return s
	}
	return string(f.raw)
}

// MarshalJSON implements json.Marshaler.
func (f *Flex) MarshalJSON() ([]byte, error) {
	if f == nil || len(f.raw) == 0 {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid counter value: %s", data)
	}
	f.raw = append(f.raw[:0], data...)
	return nil
}
