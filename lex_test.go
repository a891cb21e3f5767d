// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexObject(s string) object {
	return newBuffer(strings.NewReader(s), 0).readObject()
}

func TestReadToken(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want token
	}{
		{"Integer", "42 ", int64(42)},
		{"Negative", "-7 ", int64(-7)},
		{"Real", "3.25 ", 3.25},
		{"True", "true ", true},
		{"Keyword", "endobj ", keyword("endobj")},
		{"Name", "/JavaScript ", name("JavaScript")},
		{"NameEscape", "/Java#53cript ", name("JavaScript")},
		{"NameBadEscape", "/A#zz ", name("A#zz")},
		{"Literal", "(app.alert\\(1\\))", "app.alert(1)"},
		{"LiteralNested", "(a (b) c)", "a (b) c"},
		{"LiteralOctal", "(\\112\\123)", "JS"},
		{"LiteralContinuation", "(java\\\nscript)", "javascript"},
		{"Hex", "<6A 73>", "js"},
		{"HexOdd", "<6A7>", "jp"},
		{"Comment", "% note\n/AA ", name("AA")},
		{"DictOpen", "<<", keyword("<<")},
		{"StrayDelim", ")", nil},
		{"EOF", "   ", io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuffer(strings.NewReader(tt.in), 0)
			assert.Equal(t, tt.want, b.readToken())
		})
	}
}

func TestReadToken_Unterminated(t *testing.T) {
	for _, in := range []string{"(never closed", "<6A73", "/Name"} {
		b := newBuffer(strings.NewReader(in), 0)
		assert.NotPanics(t, func() { b.readToken() })
		assert.Equal(t, io.EOF, b.readToken())
	}
}

func TestReadObject(t *testing.T) {
	t.Run("Reference", func(t *testing.T) {
		assert.Equal(t, objptr{12, 0}, lexObject("12 0 R"))
	})

	t.Run("Definition", func(t *testing.T) {
		obj := lexObject("3 0 obj\n<< /S /JavaScript /JS 4 0 R >>\nendobj\n")
		def, ok := obj.(objdef)
		require.True(t, ok)
		assert.Equal(t, objptr{3, 0}, def.ptr)
		d := def.obj.(dict)
		assert.Equal(t, name("JavaScript"), d["S"])
		assert.Equal(t, objptr{4, 0}, d["JS"])
	})

	t.Run("MissingEndobj", func(t *testing.T) {
		b := newBuffer(strings.NewReader("1 0 obj\n<< /A 1 >>\n2 0 obj\n<< /B 2 >>\n"), 0)
		first, ok := b.readObject().(objdef)
		require.True(t, ok)
		assert.Equal(t, objptr{1, 0}, first.ptr)
		second, ok := b.readObject().(objdef)
		require.True(t, ok)
		assert.Equal(t, objptr{2, 0}, second.ptr)
	})

	t.Run("Array", func(t *testing.T) {
		assert.Equal(t, array{int64(1), int64(0), int64(0), int64(1), "x", objptr{5, 0}}, lexObject("[1 0 0 1 (x) 5 0 R]"))
	})

	t.Run("DictMissingClose", func(t *testing.T) {
		assert.Equal(t, dict{"A": int64(1)}, lexObject("<< /A 1 endobj"))
	})

	t.Run("Stream", func(t *testing.T) {
		in := "7 0 obj\n<< /Length 3 >>\nstream\r\nabc\nendstream\nendobj"
		def := lexObject(in).(objdef)
		s, ok := def.obj.(stream)
		require.True(t, ok)
		assert.Equal(t, objptr{7, 0}, s.ptr)
		assert.Equal(t, int64(strings.Index(in, "abc")), s.offset)
	})

	t.Run("Null", func(t *testing.T) {
		assert.Nil(t, lexObject("null"))
	})
}

func TestIsIntegerAndReal(t *testing.T) {
	assert.True(t, isInteger("+12"))
	assert.False(t, isInteger("-"))
	assert.False(t, isInteger("1.0"))
	assert.True(t, isReal("-.5"))
	assert.False(t, isReal("1.2.3"))
	assert.False(t, isReal("12"))
}
