// Package validation checks decoded JSON request fields by their JSON type,
// so that e.g. the string "10" is not accepted where a number is required.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ErrNotObject is returned by DecodeObject for valid JSON that is not an object.
var ErrNotObject = errors.New("json value is not an object")

// Violation is a single field-keyed client error.
type Violation struct {
	Field   string
	Message string
}

func (v *Violation) Error() string { return v.Field + ": " + v.Message }

// Object is a JSON object with its values left undecoded.
type Object map[string]json.RawMessage

// DecodeObject decodes data as a JSON object. Blank input decodes to an
// empty object.
func DecodeObject(data []byte) (Object, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Object{}, nil
	}
	if !json.Valid(data) {
		return nil, errors.New("malformed json")
	}
	if kind(data) != kindObject {
		return nil, ErrNotObject
	}
	var o Object
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	if o == nil {
		o = Object{}
	}
	return o, nil
}

// Empty reports whether data is blank or a JSON value with no content:
// null, {}, [], "", 0 or false. Malformed JSON is not empty.
func Empty(data []byte) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return true
	}
	if !json.Valid(data) {
		return false
	}
	switch kind(data) {
	case kindNull:
		return true
	case kindBool:
		return string(data) == "false"
	case kindString:
		return string(data) == `""`
	case kindNumber:
		d, err := decimal.NewFromString(string(data))
		return err == nil && d.IsZero()
	case kindArray:
		var items []json.RawMessage
		return json.Unmarshal(data, &items) == nil && len(items) == 0
	case kindObject:
		var o Object
		return json.Unmarshal(data, &o) == nil && len(o) == 0
	}
	return false
}

// Has reports whether field is present, even with a null value.
func (o Object) Has(field string) bool {
	_, ok := o[field]
	return ok
}

type jsonKind int

const (
	kindInvalid jsonKind = iota
	kindNull
	kindBool
	kindNumber
	kindString
	kindArray
	kindObject
)

func kind(raw json.RawMessage) jsonKind {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return kindInvalid
	}
	switch c := raw[0]; {
	case c == 'n':
		return kindNull
	case c == 't' || c == 'f':
		return kindBool
	case c == '"':
		return kindString
	case c == '[':
		return kindArray
	case c == '{':
		return kindObject
	case c == '-' || (c >= '0' && c <= '9'):
		return kindNumber
	}
	return kindInvalid
}

func required(label string) string      { return label + " field is required." }
func mustBe(label, what string) string { return fmt.Sprintf("%s field must be %s.", label, what) }

// RequiredString returns the string value of field.
func RequiredString(o Object, field, label string) (string, *Violation) {
	raw, ok := o[field]
	if !ok {
		return "", &Violation{field, required(label)}
	}
	var s string
	if kind(raw) != kindString || json.Unmarshal(raw, &s) != nil {
		return "", &Violation{field, mustBe(label, "a string")}
	}
	return s, nil
}

// RequiredList returns the elements of a non-empty JSON array.
func RequiredList(o Object, field, label string) ([]json.RawMessage, *Violation) {
	raw, ok := o[field]
	if !ok {
		return nil, &Violation{field, required(label)}
	}
	var items []json.RawMessage
	if kind(raw) != kindArray || json.Unmarshal(raw, &items) != nil || len(items) == 0 {
		return nil, &Violation{field, mustBe(label, "a non-empty list")}
	}
	return items, nil
}

// PositiveInt returns a JSON integer literal greater than zero. Fractional
// or exponent forms such as 2.0 are rejected.
func PositiveInt(o Object, field, label string) (int, *Violation) {
	raw, ok := o[field]
	if !ok {
		return 0, &Violation{field, required(label)}
	}
	invalid := &Violation{field, mustBe(label, "a positive integer")}
	if kind(raw) != kindNumber || bytes.ContainsAny(raw, ".eE") {
		return 0, invalid
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil || n <= 0 {
		return 0, invalid
	}
	return n, nil
}

// PositiveNumber returns a JSON number greater than zero.
func PositiveNumber(o Object, field, label string) (decimal.Decimal, *Violation) {
	raw, ok := o[field]
	if !ok {
		return decimal.Zero, &Violation{field, required(label)}
	}
	invalid := &Violation{field, mustBe(label, "a positive number")}
	if kind(raw) != kindNumber {
		return decimal.Zero, invalid
	}
	d, err := decimal.NewFromString(string(bytes.TrimSpace(raw)))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, invalid
	}
	return d, nil
}

// OptionalString returns nil when field is absent or null.
func OptionalString(o Object, field string) (*string, error) {
	raw, ok := o[field]
	if !ok || kind(raw) == kindNull {
		return nil, nil
	}
	var s string
	if kind(raw) != kindString || json.Unmarshal(raw, &s) != nil {
		return nil, fmt.Errorf("%s must be a string", field)
	}
	return &s, nil
}

// OptionalDecimal accepts a JSON number or a numeric string and returns nil
// when field is absent or null.
func OptionalDecimal(o Object, field string) (*decimal.Decimal, error) {
	raw, ok := o[field]
	if !ok || kind(raw) == kindNull {
		return nil, nil
	}
	var text string
	switch kind(raw) {
	case kindNumber:
		text = string(bytes.TrimSpace(raw))
	case kindString:
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%s must be a number", field)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid number %q", field, text)
	}
	return &d, nil
}

// OptionalID reads a transaction id. Absent, null and zero give (0, true).
// Any other number, or numeric string, that cannot be a stored id (negative,
// fractional, out of range) gives ok false; integral forms such as 1.0 are
// read as their integer value.
func OptionalID(o Object, field string) (id uint, ok bool, err error) {
	raw, present := o[field]
	if !present || kind(raw) == kindNull {
		return 0, true, nil
	}
	var text string
	switch kind(raw) {
	case kindNumber:
		text = string(bytes.TrimSpace(raw))
	case kindString:
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false, err
		}
	default:
		return 0, false, fmt.Errorf("%s must be an integer", field)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false, fmt.Errorf("%s: invalid number %q", field, text)
	}
	if d.IsZero() {
		return 0, true, nil
	}
	if !d.IsInteger() || d.IsNegative() {
		return 0, false, nil
	}
	n := d.BigInt()
	if !n.IsUint64() || n.Uint64() > uint64(^uint(0)) {
		return 0, false, nil
	}
	return uint(n.Uint64()), true, nil
}

// OptionalList returns the elements of a JSON array, or nil when field is absent.
func OptionalList(o Object, field string) ([]json.RawMessage, error) {
	raw, ok := o[field]
	if !ok {
		return nil, nil
	}
	var items []json.RawMessage
	if kind(raw) != kindArray || json.Unmarshal(raw, &items) != nil {
		return nil, fmt.Errorf("%s must be a list", field)
	}
	return items, nil
}
