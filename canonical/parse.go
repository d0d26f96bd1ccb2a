package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"unicode/utf8"

	apierrors "github.com/verifly/verifly-go/errors"
)

// Parse decodes a single JSON document, keeping object member order and
// number literals as written. Literals are not normalized: 1.50, 1E2 and -0
// encode as 1.50, 1E2 and -0, so a received body is verified against the
// exact bytes the sender signed. Only FromAny formats numbers itself.
func Parse(data []byte) (Value, error) {
	if !utf8.Valid(data) {
		return Value{}, encodingError("payload is not valid UTF-8", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := parseValue(dec)
	if err != nil {
		return Value{}, syntaxError(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, syntaxError(errors.New("unexpected data after top-level value"))
	}

	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Value{kind: KindNumber, text: t.String()}, nil
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		}
	}

	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func parseObject(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindObject, members: []Member{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("unexpected object key %v", tok)
		}
		member, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		v.members = setMember(v.members, key, member)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

func parseArray(dec *json.Decoder) (Value, error) {
	v := Value{kind: KindArray, items: []Value{}}
	for dec.More() {
		item, err := parseValue(dec)
		if err != nil {
			return Value{}, err
		}
		v.items = append(v.items, item)
	}
	// closing bracket
	if _, err := dec.Token(); err != nil {
		return Value{}, err
	}
	return v, nil
}

// FromAny converts a Go value into a Value.
//
// Structs keep their field order. Go maps have no order, so their keys are
// sorted. Values that are already JSON (Value, json.RawMessage) keep their
// own order.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case json.RawMessage:
		if t == nil {
			return Null(), nil
		}
		return Parse(t)
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String())
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Uint(uint64(t)), nil
	case uint8:
		return Uint(uint64(t)), nil
	case uint16:
		return Uint(uint64(t)), nil
	case uint32:
		return Uint(uint64(t)), nil
	case uint64:
		return Uint(t), nil
	case float32:
		return Float(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, encodingError(fmt.Sprintf("unsupported number %v", t), nil)
		}
		return Float(t)
	case []any:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			v, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{kind: KindArray, items: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(keys))
		for _, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, err
			}
			members = append(members, Member{Key: k, Value: v})
		}
		return Value{kind: KindObject, members: members}, nil
	}

	// Structs and other typed values go through encoding/json, which keeps
	// struct field order and honors json tags and Marshaler implementations.
	b, err := json.Marshal(x)
	if err != nil {
		return Value{}, encodingError(fmt.Sprintf("cannot encode %T", x), err)
	}
	return Parse(b)
}

func syntaxError(err error) error {
	return apierrors.Wrap(apierrors.KindValidation, "canonical: invalid JSON", err)
}
