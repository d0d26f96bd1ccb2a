package canonical

import (
	"bytes"
	"reflect"
	"strconv"
	"unicode/utf8"

	apierrors "github.com/verifly/verifly-go/errors"
)

const hexDigits = "0123456789abcdef"

// emptyObject is the canonical form of an absent body
var emptyObject = []byte("{}")

// Canonicalize returns the canonical bytes of body. A nil body, including a
// typed nil pointer, map or slice, encodes as "{}".
func Canonicalize(body any) ([]byte, error) {
	if isNil(body) {
		return append([]byte(nil), emptyObject...), nil
	}
	v, err := FromAny(body)
	if err != nil {
		return nil, err
	}
	return Encode(v)
}

// Encode writes v in canonical form
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindNumber:
		buf.WriteString(v.text)
	case KindString:
		return encodeString(buf, v.text)
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := encodeValue(buf, m.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return encodingError("unknown value kind "+v.kind.String(), nil)
	}
	return nil
}

// encodeString escapes only quote, backslash and control characters.
// Everything else, including U+2028 and U+2029, is written as raw UTF-8.
func encodeString(buf *bytes.Buffer, s string) error {
	if !utf8.ValidString(s) {
		return encodingError("string is not valid UTF-8", nil)
	}

	buf.WriteByte('"')
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			continue
		}
		buf.WriteString(s[start:i])
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteString(`\u00`)
			buf.WriteByte(hexDigits[c>>4])
			buf.WriteByte(hexDigits[c&0xf])
		}
		start = i + 1
	}
	buf.WriteString(s[start:])
	buf.WriteByte('"')
	return nil
}

func isNil(body any) bool {
	if body == nil {
		return true
	}
	rv := reflect.ValueOf(body)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func encodingError(message string, err error) error {
	return apierrors.Wrap(apierrors.KindEncoding, "canonical: "+message, err)
}
