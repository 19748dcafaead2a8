package sexp

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Marshaler is implemented by records that know their s-expression form.
type Marshaler interface {
	MarshalSexp() (Value, error)
}

// Serialize renders v as text.
func Serialize(v Value) string {
	var b strings.Builder
	write(&b, v)
	return b.String()
}

func write(b *strings.Builder, v Value) {
	switch v.kind {
	case KindNil:
		b.WriteString("nil")
	case KindBool:
		if v.truth {
			b.WriteString("t")
		} else {
			b.WriteString("nil")
		}
	case KindNumber:
		b.WriteString(strconv.FormatFloat(v.num, 'f', -1, 64))
	case KindString:
		b.WriteString(quoteString(v.text))
	case KindSymbol:
		if strings.HasPrefix(v.text, ":") {
			b.WriteByte('\\')
		}
		b.WriteString(escapeSymbol(v.text))
	case KindKeyword:
		b.WriteByte(':')
		b.WriteString(escapeSymbol(v.text))
	case KindList:
		if len(v.items) == 2 && v.items[0].IsSymbol("quote") {
			b.WriteByte('\'')
			write(b, v.items[1])
			return
		}
		writeSeq(b, '(', ')', v.items)
	case KindVector:
		writeSeq(b, '[', ']', v.items)
	case KindCons:
		b.WriteByte('(')
		write(b, v.items[0])
		b.WriteString(" . ")
		write(b, v.items[1])
		b.WriteByte(')')
	}
}

func writeSeq(b *strings.Builder, open, close byte, items []Value) {
	b.WriteByte(open)
	for i, item := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		write(b, item)
	}
	b.WriteByte(close)
}

func quoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}

func escapeSymbol(s string) string {
	var b strings.Builder
	for i, r := range s {
		special := strings.ContainsRune(symbolStops, r) || r == ' ' || r == '\t' || r == '\n' || r == ';'
		if i == 0 && r >= '0' && r <= '9' {
			special = true
		}
		if special {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Encode converts a native Go value to s-expression text. Supported shapes are
// nil, bool, integers, floats, strings, Value, Marshaler and slices or arrays of
// those. Maps and structs without a Marshaler are rejected.
func Encode(v any) (string, error) {
	val, err := ToValue(v)
	if err != nil {
		return "", err
	}
	return Serialize(val), nil
}

// ToValue converts a native Go value to a Value; see Encode.
func ToValue(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Nil(), nil
	case Value:
		return t, nil
	case Marshaler:
		return t.MarshalSexp()
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(t), nil
	case int32:
		return Int(int(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case float32:
		return Number(float64(t)), nil
	case float64:
		return Number(t), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Nil(), nil
		}
		return ToValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Nil(), nil
		}
		items := make([]Value, rv.Len())
		for i := range items {
			item, err := ToValue(rv.Index(i).Interface())
			if err != nil {
				return Value{}, err
			}
			items[i] = item
		}
		return List(items...), nil
	}
	return Value{}, fmt.Errorf("cannot convert %#v (%T) to an s-expression", v, v)
}
