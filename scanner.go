// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

// jsIndicators are matched case-sensitively against raw object bytes.
var jsIndicators = [][]byte{
	[]byte("/JS"),
	[]byte("/JavaScript"),
	[]byte("/OpenAction"),
	[]byte("/AA"),
	[]byte("/Action"),
	[]byte("javascript:"),
	[]byte("alert"),
	[]byte("window"),
}

// MightContainJavaScript reports whether raw contains any JavaScript
// indicator. It is a cheap filter: a true result only means the object is
// worth decoding.
func MightContainJavaScript(raw []byte) bool {
	for _, ind := range jsIndicators {
		if bytes.Contains(raw, ind) {
			return true
		}
	}
	return false
}

// Span is a half-open byte range [Start, End) of the scanned buffer.
type Span struct {
	Start, End int64
}

// Empty reports whether the span holds no bytes.
func (s Span) Empty() bool { return s.End <= s.Start }

// Candidate is an indirect object whose raw bytes passed the prefilter.
type Candidate struct {
	// ID is the object number and generation, as "12_0".
	ID   string
	Span Span
	// Prefiltered reports whether the object's own span passed the filter.
	// Members of object streams are admitted on the decoded stream payload and
	// carry the span of their container.
	Prefiltered bool

	doc *Document
	num int
}

// Decode decodes the candidate object. Failures concern this object only.
func (c Candidate) Decode() (Value, error) {
	return c.doc.Object(c.num)
}

// Scanner enumerates indirect objects by cross-reference offset without
// decoding the whole document.
type Scanner struct{}

// NewScanner returns a Scanner.
func NewScanner() *Scanner {
	return &Scanner{}
}

// Scan reads the header and cross-reference structure of data and returns a
// lazy sequence of candidate objects. Nothing is decoded until a candidate's
// Decode is called, and stopping the iteration stops the scan.
func (s *Scanner) Scan(data []byte) (iter.Seq[Candidate], error) {
	doc, err := openDocument(data)
	if err != nil {
		return nil, err
	}
	return s.candidates(doc), nil
}

// openDocument trims any bytes preceding the %PDF- header and parses the
// result. A cross-reference that only fails because of CRLF line endings is
// retried once with LF endings.
func openDocument(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, &ParseError{Op: "read header", Err: ErrEmptyInput}
	}
	i := bytes.Index(data, []byte("%PDF-"))
	if i < 0 {
		return nil, &ParseError{Op: "read header", Err: ErrMissingHeader}
	}
	if i > 0 {
		logger.Debug(fmt.Sprintf("scan: skipping %d bytes before header", i), true)
		data = data[i:]
	}
	doc, err := Parse(data)
	if errors.Is(err, errLineEndings) {
		logger.Debug("scan: retrying with LF line endings", true)
		doc, err = Parse(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n")))
	}
	return doc, err
}

func (s *Scanner) candidates(doc *Document) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		var passed, skipped int
		defer func() {
			logger.Debug(fmt.Sprintf("scan: %d candidates, %d skipped", passed, skipped), true)
		}()

		var streams []int
		seen := map[int]bool{}
		for _, e := range doc.Xref() {
			if !e.InUse {
				continue
			}
			if e.Compressed {
				if !seen[e.Stream] {
					seen[e.Stream] = true
					streams = append(streams, e.Stream)
				}
				continue
			}
			if e.Offset <= 0 {
				continue
			}
			span := rawSpan(doc.data, e.Offset)
			if span.Empty() || !MightContainJavaScript(doc.data[span.Start:span.End]) {
				skipped++
				continue
			}
			passed++
			c := Candidate{ID: objectID(e.ID, e.Generation), Span: span, Prefiltered: true, doc: doc, num: e.ID}
			if !yield(c) {
				return
			}
		}

		for _, sid := range streams {
			ptr := objptr{id: uint32(sid)}
			os, err := doc.objectStream(ptr)
			if err != nil {
				logger.Debug(fmt.Sprintf("scan: object stream %d: %v", sid, err), true)
				continue
			}
			members := doc.members(ptr)
			if !MightContainJavaScript(os.data) {
				skipped += len(members)
				continue
			}
			var span Span
			if sid < len(doc.xref) && !doc.xref[sid].inStream {
				span = rawSpan(doc.data, doc.xref[sid].offset)
			}
			for _, id := range members {
				passed++
				c := Candidate{ID: objectID(id, 0), Span: span, doc: doc, num: id}
				if !yield(c) {
					return
				}
			}
		}
	}
}

// rawSpan returns [off, end of the next "endobj"). Without an "endobj" the
// span is empty.
func rawSpan(data []byte, off int64) Span {
	if off <= 0 || off >= int64(len(data)) {
		return Span{}
	}
	i := bytes.Index(data[off:], []byte("endobj"))
	if i < 0 {
		return Span{}
	}
	return Span{Start: off, End: off + int64(i) + int64(len("endobj"))}
}

func objectID(id, gen int) string {
	return fmt.Sprintf("%d_%d", id, gen)
}
