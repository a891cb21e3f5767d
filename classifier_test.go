// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16BE(s string) string {
	out := []byte{0xfe, 0xff}
	for _, r := range s {
		out = append(out, byte(r>>8), byte(r))
	}
	return string(out)
}

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		name string
		obj  object
		want bool
	}{
		{"JSKey", dict{"JS": "app.alert(1)"}, true},
		{"JSKeyNull", dict{"JS": nil}, true},
		{"URIString", dict{"URI": "javascript:alert(1)"}, true},
		{"URIMixedCase", dict{"URI": "JaVaScRiPt:alert(1)"}, true},
		{"URIWithTab", dict{"URI": "java\tscript:alert(1)"}, true},
		{"URIUTF16", dict{"URI": utf16BE("javascript:alert(1)")}, true},
		{"URIHttps", dict{"URI": "https://example.com"}, false},
		{"URIActionInner", dict{"URI": dict{"S": name("URI"), "URI": "javascript:x"}}, true},
		{"URIActionJavaScript", dict{"URI": dict{"S": name("JavaScript")}}, true},
		{"URIActionFlag", dict{"URI": dict{"S": name("URI"), "F": name("JavaScript")}}, true},
		{"URIActionNext", dict{"URI": dict{"S": name("URI"), "URI": "http://x", "Next": dict{"S": name("JavaScript")}}}, true},
		{"ActionJavaScript", dict{"A": dict{"S": name("JavaScript")}}, true},
		{"ActionTypeString", dict{"A": dict{"S": "JavaScript"}}, true},
		{"ActionNextChain", dict{"A": dict{"S": name("URI"), "URI": "http://x", "Next": dict{"S": name("GoTo"), "Next": array{dict{"S": name("JavaScript")}}}}}, true},
		{"ActionGoTo", dict{"A": dict{"S": name("GoTo"), "D": array{int64(0), name("Fit")}}}, false},
		{"OpenActionDict", dict{"OpenAction": dict{"JS": "x"}}, true},
		{"OpenActionDestination", dict{"OpenAction": array{objptr{3, 0}, name("Fit")}}, false},
		{"AdditionalActionPageOpen", dict{"AA": dict{"PO": dict{"S": name("JavaScript")}}}, true},
		{"AdditionalActionOther", dict{"AA": dict{"O": dict{"S": name("Launch")}}}, false},
		{"AnnotAction", dict{"Annots": array{dict{"Subtype": name("Link"), "A": dict{"S": name("JavaScript")}}}}, true},
		{"AnnotValue", dict{"Annots": array{dict{"V": dict{"JS": "x"}}}}, true},
		{"AnnotClean", dict{"Annots": array{dict{"Subtype": name("Text"), "Contents": "hello"}}}, false},
		{"Contents", dict{"Contents": array{dict{"JS": "x"}}}, true},
		{"FontMatrixAlert", dict{"FontMatrix": array{int64(1), int64(0), int64(0), int64(1), int64(0), "1); alert(1); //"}}, true},
		{"FontMatrixOrigin", dict{"FontMatrix": array{"window.origin"}}, true},
		{"FontMatrixAction", dict{"FontMatrix": array{dict{"S": name("JavaScript")}}}, true},
		{"FontMatrixNumbers", dict{"FontMatrix": array{0.001, int64(0), int64(0), 0.001, int64(0), int64(0)}}, false},
		{"FieldValue", dict{"V": dict{"S": name("JavaScript")}}, true},
		{"FieldValueString", dict{"V": "javascript:alert(1)"}, false},
		{"Nested", dict{"Foo": dict{"Bar": array{int64(1), dict{"JS": "x"}}}}, true},
		{"StreamHeader", stream{hdr: dict{"JS": "x"}}, true},
		{"ArrayOfDicts", array{dict{}, dict{"A": dict{"S": name("JavaScript")}}}, true},
		{"StringOutsideURI", dict{"Title": "javascript:alert(1)"}, false},
		{"Page", dict{"Type": name("Page"), "MediaBox": array{int64(0), int64(0), int64(612), int64(792)}}, false},
		{"Scalar", int64(4), false},
		{"Null", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(0)
			assert.Equal(t, tt.want, c.Classify(Value{data: tt.obj}))
			assert.False(t, c.Truncated())
		})
	}
}

func TestClassify_References(t *testing.T) {
	data := buildPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /Annots [4 0 R] >>",
		"<< /Subtype /Link /P 3 0 R /A 5 0 R >>",
		"<< /S /URI /URI (javascript:app.alert\\(1\\)) >>",
	)
	doc, err := Parse(data)
	require.NoError(t, err)
	root, err := doc.Object(1)
	require.NoError(t, err)
	assert.True(t, NewClassifier(0).Classify(root))
}

func TestClassify_Cycles(t *testing.T) {
	data := buildPDF(
		"<< /Type /Catalog /Pages 2 0 R /Self 1 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Parent 1 0 R >>",
		"<< /Type /Page /Parent 2 0 R /A [4 0 R 4 0 R] >>",
		"[4 0 R 4 0 R 3 0 R]",
	)
	doc, err := Parse(data)
	require.NoError(t, err)

	c := NewClassifier(0)
	for id := 1; id <= 4; id++ {
		v, err := doc.Object(id)
		require.NoError(t, err)
		assert.False(t, c.Classify(v), "object %d", id)
	}
	assert.False(t, c.Truncated())
}

func TestClassify_DepthLimit(t *testing.T) {
	var obj object = dict{"JS": "x"}
	for i := 0; i < 10; i++ {
		obj = dict{"Kid": obj}
	}

	c := NewClassifier(4)
	assert.False(t, c.Classify(Value{data: obj}))
	assert.True(t, c.Truncated())

	c = NewClassifier(0)
	assert.True(t, c.Classify(Value{data: obj}))
	assert.False(t, c.Truncated())
}

// deepChainPDF returns a PDF whose object 1 starts a /Next chain of n
// references ending in an object with a JavaScript OpenAction.
func deepChainPDF(n int) []byte {
	objs := make([]string, 0, n+1)
	for i := 1; i <= n; i++ {
		extra := ""
		if i == 1 {
			extra = " /AA << >>"
		}
		objs = append(objs, fmt.Sprintf("<< /Next %d 0 R%s >>", i+1, extra))
	}
	objs = append(objs, "<< /OpenAction << /S /JavaScript /JS (app.alert\\(1\\)) >> >>")
	return buildPDF(objs...)
}

func TestClassify_DepthLimitDoesNotHideLaterObjects(t *testing.T) {
	data := deepChainPDF(DefaultMaxDepth)
	doc, err := Parse(data)
	require.NoError(t, err)

	c := NewClassifier(0)
	first, err := doc.Object(1)
	require.NoError(t, err)
	assert.False(t, c.Classify(first))
	assert.True(t, c.Truncated())

	last, err := doc.Object(DefaultMaxDepth + 1)
	require.NoError(t, err)
	assert.True(t, c.Classify(last))

	for _, mode := range []ScanMode{Prefiltered, Full} {
		t.Run(string(mode), func(t *testing.T) {
			s, err := NewScanStrategy(mode, 0)
			require.NoError(t, err)
			found, err := s.Scan(context.Background(), data)
			require.NoError(t, err)
			assert.True(t, found)
		})
	}
}

func TestClassify_DepthLimitIndirectAction(t *testing.T) {
	data := buildPDF(
		"<< /Kid << /Kid << /A 2 0 R >> >> >>",
		"<< /S /GoTo /Next 3 0 R >>",
		"<< /S /JavaScript /JS (x) >>",
	)
	doc, err := Parse(data)
	require.NoError(t, err)

	c := NewClassifier(3)
	root, err := doc.Object(1)
	require.NoError(t, err)
	assert.False(t, c.Classify(root))
	assert.True(t, c.Truncated())

	action, err := doc.Object(2)
	require.NoError(t, err)
	assert.True(t, c.Classify(action))
}

func TestHasJavaScriptScheme(t *testing.T) {
	assert.True(t, hasJavaScriptScheme("JAVASCRIPT:void(0)"))
	assert.True(t, hasJavaScriptScheme("java\r\nscript:x"))
	assert.True(t, hasJavaScriptScheme("http://a/?u=javascript:x"))
	assert.False(t, hasJavaScriptScheme("java script:x"))
	assert.False(t, hasJavaScriptScheme(""))
}
