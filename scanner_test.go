// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, data []byte) []Candidate {
	t.Helper()
	seq, err := NewScanner().Scan(data)
	require.NoError(t, err)
	var out []Candidate
	for c := range seq {
		out = append(out, c)
	}
	return out
}

func TestMightContainJavaScript(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"<< /S /JavaScript /JS (x) >>", true},
		{"<< /OpenAction 3 0 R >>", true},
		{"<< /AA << /O 4 0 R >> >>", true},
		{"<< /URI (javascript:void 0) >>", true},
		{"<< /FontMatrix [1 0 0 1 0 (alert)] >>", true},
		{"<< /Type /Page /MediaBox [0 0 612 792] >>", false},
		{"<< /js (lowercase) >>", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MightContainJavaScript([]byte(tt.in)), tt.in)
	}
}

func TestRawSpan(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\n2 0 obj\n<< >>\n")
	span := rawSpan(data, 9)
	assert.Equal(t, int64(9), span.Start)
	assert.Equal(t, "1 0 obj\n<< >>\nendobj", string(data[span.Start:span.End]))

	// no endobj after object 2
	assert.True(t, rawSpan(data, int64(bytes.Index(data, []byte("2 0 obj")))).Empty())
	assert.True(t, rawSpan(data, 0).Empty())
	assert.True(t, rawSpan(data, int64(len(data))).Empty())
}

func TestScan_Candidates(t *testing.T) {
	data := buildPDF(
		"<< /Type /Catalog /Pages 2 0 R /OpenAction 3 0 R >>",
		"<< /Type /Pages /Kids [] /Count 0 >>",
		"<< /S /JavaScript /JS (app.alert(1)) >>",
		"<< /Producer (plain) >>",
	)
	cands := collect(t, data)
	require.Len(t, cands, 2)
	assert.Equal(t, "1_0", cands[0].ID)
	assert.Equal(t, "3_0", cands[1].ID)
	for _, c := range cands {
		assert.True(t, c.Prefiltered)
		assert.True(t, bytes.HasSuffix(data[c.Span.Start:c.Span.End], []byte("endobj")))
	}

	v, err := cands[1].Decode()
	require.NoError(t, err)
	assert.Equal(t, "JavaScript", v.Key("S").Name())
}

func TestScan_StopsEarly(t *testing.T) {
	data := buildPDF("<< /JS (a) >>", "<< /JS (b) >>", "<< /JS (c) >>")
	seq, err := NewScanner().Scan(data)
	require.NoError(t, err)
	n := 0
	for range seq {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestScan_HeaderErrors(t *testing.T) {
	_, err := NewScanner().Scan(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
	_, err = NewScanner().Scan([]byte("GIF89a..."))
	assert.ErrorIs(t, err, ErrMissingHeader)
}

func TestScan_LeadingGarbage(t *testing.T) {
	data := append([]byte("junk before the header\n"), buildPDF("<< /JS (x) >>")...)
	cands := collect(t, data)
	require.Len(t, cands, 1)
	v, err := cands[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "x", v.Key("JS").Text())
}

func TestScan_CRLFRetry(t *testing.T) {
	lf := buildPDF("<< /Type /Catalog >>", "<< /JS (app.alert(1)) >>")
	crlf := bytes.ReplaceAll(lf, []byte("\n"), []byte("\r\n"))
	cands := collect(t, crlf)
	require.Len(t, cands, 1)
	assert.Equal(t, "2_0", cands[0].ID)
}

func TestScan_ObjectStreamMembers(t *testing.T) {
	data := buildObjStmPDF(t, "<< /S /JavaScript /JS (app.alert(1)) >>", "<< /Type /Annot >>")
	cands := collect(t, data)

	var members []Candidate
	for _, c := range cands {
		if !c.Prefiltered {
			members = append(members, c)
		}
	}
	require.Len(t, members, 2)
	assert.Equal(t, "4_0", members[0].ID)
	assert.Equal(t, "5_0", members[1].ID)
	assert.False(t, members[0].Span.Empty())

	v, err := members[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "app.alert(1)", v.Key("JS").Text())
}

func TestScan_ObjectStreamWithoutIndicators(t *testing.T) {
	data := buildObjStmPDF(t, "<< /Type /Annot >>", "<< /Type /Border >>")
	for _, c := range collect(t, data) {
		assert.True(t, c.Prefiltered, c.ID)
	}
}
