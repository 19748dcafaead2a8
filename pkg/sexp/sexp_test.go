package sexp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Atoms(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{`foo`, Symbol("foo")},
		{"  ; comment\n bar", Symbol("bar")},
		{`"hi there"`, String("hi there")},
		{`"say \"hi\""`, String(`say "hi"`)},
		{`"a\nb"`, String("anb")},
		{"\"one \\\ntwo\"", String("one two")},
		{`"x\ y"`, String("xy")},
		{`.5`, Number(0.5)},
		{`1.25`, Number(1.25)},
		{`42`, Number(42)},
		{`:url`, Keyword("url")},
		{`foo\ bar`, Symbol("foo bar")},
		{`\1st`, Symbol("1st")},
		{`define-package`, Symbol("define-package")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParse_Lists(t *testing.T) {
	got, err := Parse(`((bar "0.1") (baz "1.2.3")) trailing garbage )`)
	require.NoError(t, err)
	want := List(
		List(Symbol("bar"), String("0.1")),
		List(Symbol("baz"), String("1.2.3")),
	)
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestParse_QuoteAndCons(t *testing.T) {
	got, err := Parse(`(define-package "foo" "1.0" "Desc" '((bar "0.1")))`)
	require.NoError(t, err)
	require.True(t, got.IsList())
	require.Equal(t, 5, got.Len())
	req := got.Items()[4]
	require.Equal(t, 2, req.Len())
	assert.True(t, req.Items()[0].IsSymbol("quote"))

	pair, err := Parse(`(foo . [(1 2) nil "d" single])`)
	require.NoError(t, err)
	assert.Equal(t, KindCons, pair.Kind())
	assert.Equal(t, KindVector, pair.Items()[1].Kind())
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{``, `(foo`, `"open`, `)`, `#foo`, `12abc`, `(a "b`} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			var se *SyntaxError
			assert.ErrorAs(t, err, &se)
		})
	}
}

func TestParseOne_RejectsTrailingContent(t *testing.T) {
	_, err := ParseOne("(a b) ; just a comment\n")
	require.NoError(t, err)

	_, err = ParseOne("(a b) c")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "c", se.Remaining)
}

func TestParser_Cursor(t *testing.T) {
	p := NewParser("a (b) \"c\"")
	var got []Value
	for !p.AtEnd() {
		v, err := p.Next()
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Len(t, got, 3)
	assert.Equal(t, "", p.Rest())
}

func TestSerialize(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{Nil(), "nil"},
		{Bool(true), "t"},
		{Bool(false), "nil"},
		{Int(3), "3"},
		{Number(0.5), "0.5"},
		{String(`a "b" \c`), `"a \"b\" \\c"`},
		{Symbol("foo bar"), `foo\ bar`},
		{Symbol("1+"), `\1+`},
		{Keyword("url"), ":url"},
		{List(Int(1), Int(2)), "(1 2)"},
		{Vector(Symbol("a"), Nil()), "[a nil]"},
		{Cons(Symbol("foo"), Int(1)), "(foo . 1)"},
		{Quote(List(Symbol("a"))), "'(a)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Serialize(tt.in))
	}
}

type record struct{ name string }

func (r record) MarshalSexp() (Value, error) {
	return List(Symbol(r.name), String("x")), nil
}

func TestEncode(t *testing.T) {
	out, err := Encode([]any{"a", 1, true, nil, []int{1, 2}, record{name: "r"}})
	require.NoError(t, err)
	assert.Equal(t, `("a" 1 t nil (1 2) (r "x"))`, out)

	_, err = Encode(map[string]int{"a": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map[string]int")

	_, err = Encode(struct{ A int }{1})
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	values := []Value{
		List(String("foo"), List(Int(1), Int(2), Int(3)), String("A test package")),
		List(List(Symbol("bar"), List(Int(0), Int(1)))),
		List(Number(2.5), String("with \"quotes\" and \\slashes\\"), Symbol("t")),
		Vector(Int(1), List()),
		Cons(Symbol("foo"), Vector(List(Int(1)), Symbol("single"))),
	}
	for _, v := range values {
		text := Serialize(v)
		back, err := ParseOne(text)
		require.NoError(t, err, text)
		assert.True(t, v.Equal(back), "%s round-tripped to %s", text, back)
	}
}
