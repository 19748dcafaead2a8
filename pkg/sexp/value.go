// Package sexp reads and writes the restricted s-expression dialect that the
// editor's package manager emits: lists, symbols, strings and numbers.
package sexp

import "strconv"

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindSymbol
	KindKeyword
	KindList
	KindVector
	KindCons
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindKeyword:
		return "keyword"
	case KindList:
		return "list"
	case KindVector:
		return "vector"
	case KindCons:
		return "cons"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged s-expression value. The zero Value is nil.
type Value struct {
	kind  Kind
	text  string  // string, symbol and keyword payload
	num   float64 // number payload
	truth bool
	items []Value // list and vector elements; cons holds [car, cdr]
}

// Nil returns the empty value, rendered as `nil`.
func Nil() Value { return Value{} }

// Bool returns t or nil.
func Bool(b bool) Value { return Value{kind: KindBool, truth: b} }

// Number wraps a numeric literal.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int wraps an integer literal.
func Int(i int) Value { return Value{kind: KindNumber, num: float64(i)} }

// String wraps a string literal.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Symbol wraps an identifier.
func Symbol(name string) Value { return Value{kind: KindSymbol, text: name} }

// Keyword wraps a keyword; name is given without the leading colon.
func Keyword(name string) Value { return Value{kind: KindKeyword, text: name} }

// List builds a proper list.
func List(items ...Value) Value {
	return Value{kind: KindList, items: append([]Value{}, items...)}
}

// Vector builds a vector literal.
func Vector(items ...Value) Value {
	return Value{kind: KindVector, items: append([]Value{}, items...)}
}

// Cons builds a dotted pair.
func Cons(car, cdr Value) Value {
	return Value{kind: KindCons, items: []Value{car, cdr}}
}

// Quote wraps v in (quote v).
func Quote(v Value) Value { return List(Symbol("quote"), v) }

func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is nil, the symbol nil, or false.
func (v Value) IsNil() bool {
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return !v.truth
	case KindSymbol:
		return v.text == "nil"
	}
	return false
}

// Text returns the payload of a string, symbol or keyword.
func (v Value) Text() string { return v.text }

// Float returns the payload of a number.
func (v Value) Float() float64 { return v.num }

// Truth returns the payload of a boolean.
func (v Value) Truth() bool { return v.truth }

// Items returns the elements of a list or vector, or [car, cdr] for a cons.
func (v Value) Items() []Value { return v.items }

// Len returns the number of elements of a list or vector.
func (v Value) Len() int { return len(v.items) }

// IsSymbol reports whether v is the symbol name.
func (v Value) IsSymbol(name string) bool {
	return v.kind == KindSymbol && v.text == name
}

// IsList reports whether v is a proper list.
func (v Value) IsList() bool { return v.kind == KindList }

// Int returns the payload of an integral number.
func (v Value) Int() (int, bool) {
	if v.kind != KindNumber || v.num != float64(int(v.num)) {
		return 0, false
	}
	return int(v.num), true
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.truth == o.truth
	case KindNumber:
		return v.num == o.num
	case KindString, KindSymbol, KindKeyword:
		return v.text == o.text
	}
	if len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if !v.items[i].Equal(o.items[i]) {
			return false
		}
	}
	return true
}

func (v Value) String() string { return Serialize(v) }
