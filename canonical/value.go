// Package canonical implements the JSON form that Verifly signs.
//
// A canonical payload is compact JSON with object members in their original
// order, non-ASCII text written as raw UTF-8, and only the characters JSON
// requires escaped. The same encoder is used when signing outbound requests
// and when re-verifying inbound webhooks.
package canonical

import (
	"encoding/json"
	"strconv"
)

// Kind is the type of a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Member is a single key/value pair of an object
type Member struct {
	Key   string
	Value Value
}

// Value is a JSON value whose objects keep their member order.
// The zero Value is null. Values are immutable; Set returns a copy.
type Value struct {
	kind    Kind
	boolean bool
	// text holds the string content or the number literal
	text    string
	members []Member
	items   []Value
}

// Null returns the null value
func Null() Value {
	return Value{}
}

// Bool returns a boolean value
func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

// String returns a string value
func String(s string) Value {
	return Value{kind: KindString, text: s}
}

// Int returns an integer number value
func Int(i int64) Value {
	return Value{kind: KindNumber, text: strconv.FormatInt(i, 10)}
}

// Uint returns an unsigned integer number value
func Uint(u uint64) Value {
	return Value{kind: KindNumber, text: strconv.FormatUint(u, 10)}
}

// Float returns a number value formatted the way JSON.stringify formats it.
// NaN and infinities cannot be represented.
func Float(f float64) (Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return Value{}, encodingError("unsupported number", err)
	}
	return Value{kind: KindNumber, text: string(b)}, nil
}

// Number returns a number value holding the literal as written
func Number(literal string) (Value, error) {
	if !isNumberLiteral(literal) {
		return Value{}, encodingError("invalid number literal "+strconv.Quote(literal), nil)
	}
	return Value{kind: KindNumber, text: literal}, nil
}

// Object returns an object value with members in the given order.
// A repeated key replaces the earlier value in place.
func Object(members ...Member) Value {
	v := Value{kind: KindObject, members: make([]Member, 0, len(members))}
	for _, m := range members {
		v.members = setMember(v.members, m.Key, m.Value)
	}
	return v
}

// Array returns an array value
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// Field is shorthand for a Member
func Field(key string, value Value) Member {
	return Member{Key: key, Value: value}
}

// Kind returns the type of the value
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Boolean returns the boolean content
func (v Value) Boolean() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

// Text returns the string content
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.text, true
}

// NumberLiteral returns the number as written
func (v Value) NumberLiteral() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return v.text, true
}

// Len returns the number of members or items, zero for scalars
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.members)
	case KindArray:
		return len(v.items)
	default:
		return 0
	}
}

// Get returns the member value for key
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Members returns a copy of the object members in order
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	return append([]Member(nil), v.members...)
}

// Keys returns the object keys in order
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// Items returns a copy of the array items
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return append([]Value(nil), v.items...)
}

// Set returns a copy of the object with key set to value.
// An existing key keeps its position; a new key is appended.
// Setting on a non-object value starts a new object.
func (v Value) Set(key string, value Value) Value {
	var members []Member
	if v.kind == KindObject {
		members = append(make([]Member, 0, len(v.members)+1), v.members...)
	}
	return Value{kind: KindObject, members: setMember(members, key, value)}
}

// MarshalJSON implements json.Marshaler with the canonical encoding
func (v Value) MarshalJSON() ([]byte, error) {
	return Encode(v)
}

// UnmarshalJSON implements json.Unmarshaler, keeping member order
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func setMember(members []Member, key string, value Value) []Member {
	for i := range members {
		if members[i].Key == key {
			members[i].Value = value
			return members
		}
	}
	return append(members, Member{Key: key, Value: value})
}

// isNumberLiteral checks the JSON number grammar
func isNumberLiteral(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	if i >= len(s) {
		return false
	}
	switch {
	case s[i] == '0':
		i++
	case s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
