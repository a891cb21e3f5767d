// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause
//
// Derived from rsc.io/pdf:
// Copyright 2014 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsguard detects embedded JavaScript in PDF files.
//
// # Overview
//
// Malicious PDFs routinely hide script in actions, annotations, form field
// values and URIs, and they are frequently damaged on purpose so that strict
// parsers give up before the payload is ever examined. The package therefore
// runs a small pipeline over every file:
//
//	scan -> (repair -> rescan) -> classify
//
// The Scanner walks the cross-reference table and yields only objects whose
// raw bytes mention a JavaScript indicator. The Classifier walks a decoded
// object graph looking for JavaScript-bearing shapes. When the original bytes
// cannot be decoded the Repairer rebuilds a minimal skeleton (header, object
// boundaries, xref table, trailer and startxref) and the scan is retried.
// The Detector drives the whole sequence for one file and the Processor runs
// many files with bounded concurrency.
//
// # Decoder
//
// PDF files are decoded by an in-package reader built from Values, each of
// which has one of the following Kinds:
//
//	Null, for the null object.
//	Integer, for an integer.
//	Real, for a floating-point number.
//	Bool, for a boolean value.
//	Name, for a name constant (as in /JavaScript).
//	String, for a string constant.
//	Dict, for a dictionary of name-value pairs.
//	Array, for an array of values.
//	Stream, for an opaque data stream and associated header dictionary.
//
// The accessors on Value return a zero result when there is no appropriate
// view, which makes it possible to traverse a hostile PDF without writing any
// error checking. Errors surface only where the caller asks for an object by
// number (Document.Object) or for stream data.
package jsguard

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

const (
	// startxref must appear within this many bytes of the end of the file.
	tailWindow = 1024
	// upper bound on the number of xref slots accepted from a file.
	maxXrefEntries = 1 << 22
	// bound on /Prev and /Extends chains.
	maxChain = 64
)

// A Document is a decoded view over the bytes of a single PDF file.
// Objects are loaded lazily, on first reference.
type Document struct {
	data       []byte
	version    string
	xref       []xref
	trailer    dict
	trailerptr objptr
	cache      map[objptr]object
	objstms    map[objptr]*objStream
}

type xref struct {
	ptr      objptr
	inStream bool
	stream   objptr
	offset   int64
}

// XrefEntry describes one cross-reference slot of a Document.
type XrefEntry struct {
	ID         int
	Generation int
	Offset     int64
	InUse      bool
	// Compressed entries live inside the object stream numbered Stream;
	// Offset is then the member index within that stream.
	Compressed bool
	Stream     int
}

type objStream struct {
	offsets map[uint32]int64
	first   int64
	data    []byte
	extends objptr
}

// Parse decodes the header and cross-reference structure of data.
// data must begin with the %PDF- header. Objects are not decoded until requested.
func Parse(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, &ParseError{Op: "read header", Err: ErrEmptyInput}
	}
	version, err := checkHeader(data)
	if err != nil {
		return nil, &ParseError{Op: "read header", Err: err}
	}
	logger.Debug(fmt.Sprintf("header: PDF-%s", version), true)

	startxref, err := findStartXref(data)
	if err != nil {
		return nil, &ParseError{Op: "find startxref", Offset: int64(len(data)), Err: err}
	}
	logger.Debug(fmt.Sprintf("xref: startxref=%d", startxref), true)

	d := &Document{
		data:    data,
		version: version,
		cache:   make(map[objptr]object),
		objstms: make(map[objptr]*objStream),
	}
	table, trailerptr, trailer, err := d.readXref(startxref)
	if err != nil {
		if bytes.Contains(data, []byte("\r\n")) {
			err = fmt.Errorf("%w: %v", errLineEndings, err)
		}
		return nil, &ParseError{Op: "read xref", Offset: startxref, Err: err}
	}
	d.xref = table
	d.trailer = trailer
	d.trailerptr = trailerptr
	return d, nil
}

// checkHeader validates the %PDF-x.y line and returns the version.
// Unusual versions are accepted; only the marker itself is required.
func checkHeader(data []byte) (string, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return "", ErrMissingHeader
	}
	line := data[len("%PDF-"):]
	if end := bytes.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}
	line = bytes.TrimRight(line, " \t\x00")
	var major, minor int
	if _, err := fmt.Sscanf(string(line), "%d.%d", &major, &minor); err != nil {
		logger.Debug(fmt.Sprintf("header: malformed version %q", line), true)
		return string(line), nil
	}
	if !((major == 1 && minor <= 7) || (major == 2 && minor == 0)) {
		logger.Debug(fmt.Sprintf("header: unusual PDF version %d.%d", major, minor), true)
	}
	return fmt.Sprintf("%d.%d", major, minor), nil
}

// findStartXref locates and parses the "startxref" pointer near the end of data.
func findStartXref(data []byte) (int64, error) {
	base := 0
	if len(data) > tailWindow {
		base = len(data) - tailWindow
	}
	i := findLastLine(data[base:], "startxref")
	if i < 0 {
		return 0, errors.New("missing final startxref")
	}
	pos := int64(base + i)
	b := newBuffer(bytes.NewReader(data[pos:]), pos)
	b.allowObjptr = false
	if tok := b.readToken(); tok != keyword("startxref") {
		return 0, fmt.Errorf("missing startxref: %v", tok)
	}
	off, ok := b.readToken().(int64)
	if !ok {
		return 0, errors.New("startxref not followed by integer")
	}
	if off < 0 || off >= int64(len(data)) {
		return 0, fmt.Errorf("startxref %d outside file", off)
	}
	return off, nil
}

// findLastLine searches backwards in buf for the last occurrence of the
// keyword s that is followed by optional PDF whitespace ending in an EOL.
// Producers often put spaces, tabs or NULs between the keyword and its newline.
func findLastLine(buf []byte, s string) int {
	bs := []byte(s)
	for end := len(buf); end > 0; {
		i := bytes.LastIndex(buf[:end], bs)
		if i < 0 {
			break
		}
		j := skipWhitespace(buf, i+len(bs))
		if endsWithEOL(buf, i+len(bs), j) {
			return i
		}
		end = i
	}
	return -1
}

func skipWhitespace(buf []byte, j int) int {
	for j < len(buf) && isSpace(buf[j]) {
		j++
	}
	return j
}

func endsWithEOL(buf []byte, start, end int) bool {
	if end > start {
		last := buf[end-1]
		return last == '\n' || last == '\r'
	}
	return false
}

func (d *Document) newBuffer(off int64) *buffer {
	if off < 0 || off > int64(len(d.data)) {
		off = int64(len(d.data))
	}
	return newBuffer(bytes.NewReader(d.data[off:]), off)
}

func (d *Document) readXref(off int64) ([]xref, objptr, dict, error) {
	b := d.newBuffer(off)
	tok := b.readToken()
	if tok == keyword("xref") {
		logger.Debug("Found Xref Table", true)
		return d.readXrefTable(b)
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		logger.Debug("Found Xref Stream", true)
		return d.readXrefStream(b)
	}
	return nil, objptr{}, nil, fmt.Errorf("cross-reference table nor stream found at %d: %v", off, tok)
}

func (d *Document) readXrefTable(b *buffer) ([]xref, objptr, dict, error) {
	table, trailer, err := parseXrefTableAndTrailer(b, nil)
	if err != nil {
		return nil, objptr{}, nil, err
	}

	table, err = d.mergeXRefStm(table, trailer)
	if err != nil {
		// the classic table alone is still usable
		logger.Debug(fmt.Sprintf("xref: ignoring XRefStm: %v", err), true)
	}

	table, trailer, err = d.resolvePrevXrefTables(trailer, table)
	if err != nil {
		return nil, objptr{}, nil, err
	}

	if err := validateTrailerSize(&table, trailer); err != nil {
		return nil, objptr{}, nil, err
	}
	return table, objptr{}, trailer, nil
}

// parseXrefTableAndTrailer parses a single xref table section
// and the trailer dictionary that follows it.
func parseXrefTableAndTrailer(b *buffer, table []xref) ([]xref, dict, error) {
	table, err := readXrefTableData(b, table)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug(fmt.Sprintf("xref: table section parsed, %d slots so far", len(table)), true)
	trailer, ok := b.readObject().(dict)
	if !ok {
		return nil, nil, errors.New("xref table not followed by trailer dictionary")
	}
	return table, trailer, nil
}

func readXrefTableData(b *buffer, table []xref) ([]xref, error) {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			return table, nil
		}
		start, ok1 := tok.(int64)
		count, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || count < 0 || start+count > maxXrefEntries {
			return nil, fmt.Errorf("malformed xref subsection header near offset %d", b.readOffset())
		}
		for i := 0; i < int(count); i++ {
			off, okOff := b.readToken().(int64)
			gen, okGen := b.readToken().(int64)
			alloc, okAlloc := b.readToken().(keyword)
			if !okOff || !okGen || !okAlloc {
				return nil, fmt.Errorf("malformed xref entry in subsection starting %d", start)
			}
			idx := int(start) + i
			switch alloc {
			case "n":
				setIfEmpty(&table, idx, xref{ptr: objptr{uint32(idx), uint16(gen)}, offset: off})
			case "f":
				table = ensureLen(table, idx+1)
			default:
				return nil, fmt.Errorf("malformed xref entry: unexpected keyword %q", alloc)
			}
		}
	}
}

func (d *Document) resolvePrevXrefTables(trailer dict, table []xref) ([]xref, dict, error) {
	seen := map[int64]bool{}
	prev := trailer
	for prevoff := prev["Prev"]; prevoff != nil; prevoff = prev["Prev"] {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, nil, fmt.Errorf("xref Prev is not integer: %v", objfmt(prevoff))
		}
		if seen[off] || len(seen) >= maxChain {
			logger.Debug(fmt.Sprintf("xref: Prev chain loops at %d", off), true)
			break
		}
		seen[off] = true
		b := d.newBuffer(off)
		if tok := b.readToken(); tok != keyword("xref") {
			return nil, nil, fmt.Errorf("xref Prev %d does not point to xref", off)
		}
		var err error
		table, prev, err = parseXrefTableAndTrailer(b, table)
		if err != nil {
			return nil, nil, err
		}
		if table, err = d.mergeXRefStm(table, prev); err != nil {
			logger.Debug(fmt.Sprintf("xref: ignoring XRefStm in Prev chain: %v", err), true)
		}
	}
	return table, trailer, nil
}

// mergeXRefStm merges the hybrid-file xref stream named by /XRefStm, if any.
func (d *Document) mergeXRefStm(table []xref, trailer dict) ([]xref, error) {
	x, ok := trailer["XRefStm"]
	if !ok {
		return table, nil
	}
	off, ok := x.(int64)
	if !ok {
		return table, fmt.Errorf("XRefStm not integer: %v", objfmt(x))
	}
	src, _, _, err := d.readXrefStream(d.newBuffer(off))
	if err != nil {
		return table, err
	}
	return mergeXrefTables(table, src), nil
}

// validateTrailerSize trims the xref table to the declared /Size in trailer.
func validateTrailerSize(table *[]xref, trailer dict) error {
	size, ok := trailer["Size"].(int64)
	if !ok {
		return errors.New("trailer missing /Size entry")
	}
	if size >= 0 && size < int64(len(*table)) {
		*table = (*table)[:size]
	}
	return nil
}

// ensureLen makes sure s has length at least n (growing capacity if needed)
// and returns the possibly-reallocated slice.
func ensureLen[T any](s []T, n int) []T {
	if n <= len(s) {
		return s
	}
	if cap(s) < n {
		ns := make([]T, n)
		copy(ns, s)
		return ns
	}
	return s[:n]
}

// setIfEmpty sets table[x] to val only if the slot is currently empty,
// so that newer sections read first take precedence.
func setIfEmpty(table *[]xref, x int, val xref) {
	if x < 0 {
		return
	}
	*table = ensureLen(*table, x+1)
	if (*table)[x].ptr == (objptr{}) {
		(*table)[x] = val
	}
}

// mergeXrefTables merges src into dest. Empty slots of dest are filled and
// in-use entries from src replace in-use entries of dest.
func mergeXrefTables(dest, src []xref) []xref {
	dest = ensureLen(dest, len(src))
	for i, s := range src {
		if s.ptr == (objptr{}) {
			continue
		}
		dd := dest[i]
		if dd.ptr == (objptr{}) || (dd.ptr.gen != 65535 && s.ptr.gen != 65535) {
			dest[i] = s
		}
	}
	return dest
}

func (d *Document) readXrefStream(b *buffer) ([]xref, objptr, dict, error) {
	strmptr, strm, err := parseXrefStreamObject(b)
	if err != nil {
		return nil, objptr{}, nil, err
	}
	size, ok := strm.hdr["Size"].(int64)
	if !ok || size < 0 || size > maxXrefEntries {
		return nil, objptr{}, nil, errors.New("xref stream missing or invalid Size")
	}
	table, err := d.readXrefStreamData(strm, make([]xref, 0, size), size)
	if err != nil {
		return nil, objptr{}, nil, err
	}

	seen := map[int64]bool{}
	for prevoff := strm.hdr["Prev"]; prevoff != nil; {
		off, ok := prevoff.(int64)
		if !ok {
			return nil, objptr{}, nil, fmt.Errorf("xref Prev is not integer: %v", objfmt(prevoff))
		}
		if seen[off] || len(seen) >= maxChain {
			break
		}
		seen[off] = true
		_, prev, err := parseXrefStreamObject(d.newBuffer(off))
		if err != nil {
			return nil, objptr{}, nil, err
		}
		psize, _ := prev.hdr["Size"].(int64)
		if psize > size {
			return nil, objptr{}, nil, errors.New("xref Prev stream larger than last stream")
		}
		if table, err = d.readXrefStreamData(prev, table, psize); err != nil {
			return nil, objptr{}, nil, err
		}
		prevoff = prev.hdr["Prev"]
	}
	return table, strmptr, strm.hdr, nil
}

// parseXrefStreamObject reads one object from b, ensuring it is an /XRef stream.
func parseXrefStreamObject(b *buffer) (objptr, stream, error) {
	obj := b.readObject()
	od, ok := obj.(objdef)
	if !ok {
		return objptr{}, stream{}, fmt.Errorf("objdef not found: %v", objfmt(obj))
	}
	strm, ok := od.obj.(stream)
	if !ok {
		return objptr{}, stream{}, fmt.Errorf("cross-reference stream not found: %v", objfmt(od))
	}
	if strm.hdr["Type"] != name("XRef") {
		return objptr{}, stream{}, errors.New("xref stream does not have type XRef")
	}
	return od.ptr, strm, nil
}

func (d *Document) readXrefStreamData(strm stream, table []xref, size int64) ([]xref, error) {
	index, _ := strm.hdr["Index"].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("invalid Index array %v", objfmt(index))
	}

	ww, ok := strm.hdr["W"].(array)
	if !ok || len(ww) < 3 {
		return nil, errors.New("xref stream missing W array")
	}
	var w []int
	wtotal := 0
	for _, x := range ww {
		i, ok := x.(int64)
		if !ok || i < 0 || i > 8 {
			return nil, fmt.Errorf("invalid W array %v", objfmt(ww))
		}
		w = append(w, int(i))
		wtotal += int(i)
	}

	raw, err := d.streamData(strm)
	if err != nil {
		return nil, fmt.Errorf("reading xref stream: %w", err)
	}
	data := bytes.NewReader(raw)
	buf := make([]byte, wtotal)
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 || start < 0 || n < 0 || start+n > maxXrefEntries {
			return nil, fmt.Errorf("malformed Index pair %v %v", objfmt(index[0]), objfmt(index[1]))
		}
		index = index[2:]
		for i := 0; i < int(n); i++ {
			if _, err := io.ReadFull(data, buf); err != nil {
				return nil, fmt.Errorf("reading xref stream: %w", err)
			}
			v1 := decodeInt(buf[0:w[0]])
			if w[0] == 0 {
				v1 = 1
			}
			v2 := decodeInt(buf[w[0] : w[0]+w[1]])
			v3 := decodeInt(buf[w[0]+w[1] : w[0]+w[1]+w[2]])
			x := int(start) + i
			switch v1 {
			case 0:
				table = ensureLen(table, x+1)
			case 1:
				setIfEmpty(&table, x, xref{ptr: objptr{uint32(x), uint16(v3)}, offset: int64(v2)})
			case 2:
				setIfEmpty(&table, x, xref{ptr: objptr{uint32(x), 0}, inStream: true, stream: objptr{uint32(v2), 0}, offset: int64(v3)})
			default:
				logger.Debug(fmt.Sprintf("xref: invalid stream entry type %d for object %d", v1, x), true)
			}
		}
	}
	return table, nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

// Version returns the version named in the %PDF- header.
func (d *Document) Version() string {
	return d.version
}

// Trailer returns the file's trailer dictionary. For files using
// cross-reference streams it is the header of the newest xref stream.
func (d *Document) Trailer() Value {
	return Value{d: d, ptr: d.trailerptr, data: d.trailer}
}

// Xref returns the cross-reference entries of the document in object number
// order. Empty slots are omitted; free slots are reported with InUse false.
func (d *Document) Xref() []XrefEntry {
	var out []XrefEntry
	for i, x := range d.xref {
		if x.ptr == (objptr{}) {
			continue
		}
		e := XrefEntry{ID: i, Generation: int(x.ptr.gen), Offset: x.offset}
		switch {
		case x.inStream:
			e.InUse = true
			e.Compressed = true
			e.Stream = int(x.stream.id)
		default:
			e.InUse = x.ptr.gen != 65535
		}
		out = append(out, e)
	}
	return out
}

// Object decodes the object with the given number.
// A number with no cross-reference entry decodes as null.
func (d *Document) Object(id int) (v Value, err error) {
	if id < 0 || id >= len(d.xref) {
		return Value{}, nil
	}
	ptr := d.xref[id].ptr
	if ptr == (objptr{}) {
		return Value{}, nil
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = Value{}, &ParseError{Op: "load object", Offset: d.xref[id].offset, Err: fmt.Errorf("%d %d: %v", ptr.id, ptr.gen, r)}
		}
	}()
	obj, err := d.load(ptr)
	if err != nil {
		return Value{}, err
	}
	return Value{d: d, ptr: ptr, data: obj, indirect: true}, nil
}

// Objects decodes every in-use object. Objects that fail to decode are
// logged and left out of the result.
func (d *Document) Objects() map[int]Value {
	out := make(map[int]Value)
	for _, e := range d.Xref() {
		if !e.InUse {
			continue
		}
		v, err := d.Object(e.ID)
		if err != nil {
			logger.Debug("object skipped", "id", e.ID, "err", err, true)
			continue
		}
		out[e.ID] = v
	}
	return out
}

func (d *Document) load(ptr objptr) (object, error) {
	if obj, ok := d.cache[ptr]; ok {
		return obj, nil
	}
	if int(ptr.id) >= len(d.xref) {
		return nil, nil
	}
	x := d.xref[ptr.id]
	if x.ptr != ptr {
		return nil, nil
	}
	var (
		obj object
		err error
	)
	switch {
	case x.inStream:
		obj, err = d.loadCompressed(ptr, x.stream)
	case x.offset == 0:
		return nil, nil
	default:
		obj, err = d.loadAt(ptr, x.offset)
	}
	if err != nil {
		return nil, err
	}
	d.cache[ptr] = obj
	return obj, nil
}

func (d *Document) loadAt(ptr objptr, off int64) (object, error) {
	if off < 0 || off >= int64(len(d.data)) {
		return nil, &ParseError{Op: "load object", Offset: off, Err: fmt.Errorf("offset of %d %d outside file", ptr.id, ptr.gen)}
	}
	b := d.newBuffer(off)
	obj := b.readObject()
	def, ok := obj.(objdef)
	if !ok {
		return nil, &ParseError{Op: "load object", Offset: off, Err: fmt.Errorf("%d %d: found %T instead of objdef", ptr.id, ptr.gen, obj)}
	}
	if def.ptr != ptr {
		return nil, &ParseError{Op: "load object", Offset: off, Err: fmt.Errorf("%d %d: found %d %d", ptr.id, ptr.gen, def.ptr.id, def.ptr.gen)}
	}
	return def.obj, nil
}

func (d *Document) loadCompressed(ptr, strmptr objptr) (object, error) {
	for hops := 0; hops < maxChain && strmptr != (objptr{}); hops++ {
		os, err := d.objectStream(strmptr)
		if err != nil {
			return nil, err
		}
		if off, ok := os.offsets[ptr.id]; ok {
			start := os.first + off
			if start < 0 || start > int64(len(os.data)) {
				return nil, &ParseError{Op: "load compressed object", Err: fmt.Errorf("%d: offset %d outside object stream", ptr.id, start)}
			}
			b := newBuffer(bytes.NewReader(os.data[start:]), 0)
			b.allowStream = false
			return b.readObject(), nil
		}
		strmptr = os.extends
	}
	return nil, &ParseError{Op: "load compressed object", Err: fmt.Errorf("%d not found in object stream", ptr.id)}
}

// objectStream decodes and indexes the /ObjStm stream strmptr.
func (d *Document) objectStream(strmptr objptr) (*objStream, error) {
	if os, ok := d.objstms[strmptr]; ok {
		return os, nil
	}
	obj, err := d.load(strmptr)
	if err != nil {
		return nil, err
	}
	strm, ok := obj.(stream)
	if !ok || strm.hdr["Type"] != name("ObjStm") {
		return nil, &ParseError{Op: "load object stream", Err: fmt.Errorf("%d %d is not an object stream", strmptr.id, strmptr.gen)}
	}
	data, err := d.streamData(strm)
	if err != nil {
		return nil, err
	}
	v := Value{d: d, ptr: strmptr, data: strm}
	n := v.Key("N").Int64()
	first := v.Key("First").Int64()
	if n < 0 || first <= 0 || first > int64(len(data)) {
		return nil, &ParseError{Op: "load object stream", Err: fmt.Errorf("%d %d: bad N/First", strmptr.id, strmptr.gen)}
	}
	os := &objStream{offsets: make(map[uint32]int64), first: first, data: data}
	if ext, ok := strm.hdr["Extends"].(objptr); ok {
		os.extends = ext
	}
	b := newBuffer(bytes.NewReader(data[:first]), 0)
	b.allowObjptr = false
	for i := int64(0); i < n; i++ {
		id, ok1 := b.readToken().(int64)
		off, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 {
			break
		}
		if _, dup := os.offsets[uint32(id)]; !dup {
			os.offsets[uint32(id)] = off
		}
	}
	d.objstms[strmptr] = os
	return os, nil
}

// members lists the object numbers stored in the object stream strmptr.
func (d *Document) members(strmptr objptr) []int {
	var ids []int
	for i, x := range d.xref {
		if x.inStream && x.stream == strmptr {
			ids = append(ids, i)
		}
	}
	return ids
}

func (d *Document) resolve(parent objptr, x object) Value {
	if ptr, ok := x.(objptr); ok {
		if d == nil {
			return Value{}
		}
		obj, err := d.load(ptr)
		if err != nil {
			logger.Debug(fmt.Sprintf("resolve %d %d: %v", ptr.id, ptr.gen, err), true)
			return Value{}
		}
		return Value{d: d, ptr: ptr, data: obj, indirect: true}
	}
	switch x := x.(type) {
	case nil, bool, int64, float64, name, dict, array, stream, string:
		return Value{d: d, ptr: parent, data: x}
	}
	return Value{}
}

// rawStream returns the undecoded bytes of s. A /Length that does not land
// on "endstream" is replaced by a search for the keyword.
func (d *Document) rawStream(s stream) ([]byte, error) {
	start := s.offset
	if start < 0 || start > int64(len(d.data)) {
		return nil, fmt.Errorf("stream offset %d outside file", start)
	}
	length := d.resolve(s.ptr, s.hdr["Length"]).Int64()
	end := start + length
	if length > 0 && end <= int64(len(d.data)) {
		rest := d.data[skipWhitespace(d.data, int(end)):]
		if bytes.HasPrefix(rest, []byte("endstream")) {
			return d.data[start:end], nil
		}
	}
	i := bytes.Index(d.data[start:], []byte("endstream"))
	if i < 0 {
		return d.data[start:], nil
	}
	raw := d.data[start : start+int64(i)]
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	raw = bytes.TrimSuffix(raw, []byte("\r"))
	return raw, nil
}

func (d *Document) streamData(s stream) ([]byte, error) {
	raw, err := d.rawStream(s)
	if err != nil {
		return nil, err
	}
	return decodeStream(raw, d.resolve(s.ptr, s.hdr["Filter"]), d.resolve(s.ptr, s.hdr["DecodeParms"]))
}

// A Value is a single PDF value, such as an integer, dictionary, or array.
// The zero Value is a PDF null (Kind() == Null, IsNull() = true).
type Value struct {
	d    *Document
	ptr  objptr
	data object
	// indirect is set when the value is the object ptr itself rather than
	// something nested inside it.
	indirect bool
}

// IsNull reports whether the value is a null. It is equivalent to Kind() == Null.
func (v Value) IsNull() bool {
	return v.Kind() == Null
}

// A ValueKind specifies the kind of data underlying a Value.
type ValueKind int

// The PDF value kinds.
const (
	Null ValueKind = iota
	Bool
	Integer
	Real
	String
	Name
	Dict
	Array
	Stream
)

// Kind reports the kind of value underlying v.
func (v Value) Kind() ValueKind {
	switch v.data.(type) {
	default:
		return Null
	case bool:
		return Bool
	case int64:
		return Integer
	case float64:
		return Real
	case string:
		return String
	case name:
		return Name
	case dict:
		return Dict
	case array:
		return Array
	case stream:
		return Stream
	}
}

// ID returns the number and generation of the indirect object v was loaded
// from. Direct values report the object that contains them.
func (v Value) ID() (id, gen int) {
	return int(v.ptr.id), int(v.ptr.gen)
}

// String returns a textual representation of the value v.
// Note that String is not the accessor for values with Kind() == String.
// To access such values, see RawString and Text.
func (v Value) String() string {
	return objfmt(v.data)
}

func objfmt(x object) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case nil:
		return "null"
	case string:
		return strconv.Quote(decodeText(x))
	case name:
		return "/" + string(x)
	case dict:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteString("<<")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString("/" + k + " " + objfmt(x[name(k)]))
		}
		buf.WriteString(">>")
		return buf.String()
	case array:
		var buf bytes.Buffer
		buf.WriteString("[")
		for i, elem := range x {
			if i > 0 {
				buf.WriteString(" ")
			}
			buf.WriteString(objfmt(elem))
		}
		buf.WriteString("]")
		return buf.String()
	case stream:
		return fmt.Sprintf("%v@%d", objfmt(x.hdr), x.offset)
	case objptr:
		return fmt.Sprintf("%d %d R", x.id, x.gen)
	case objdef:
		return fmt.Sprintf("{%d %d obj}%v", x.ptr.id, x.ptr.gen, objfmt(x.obj))
	}
}

// Bool returns v's boolean value.
// If v.Kind() != Bool, Bool returns false.
func (v Value) Bool() bool {
	x, _ := v.data.(bool)
	return x
}

// Int64 returns v's int64 value.
// If v.Kind() != Integer, Int64 returns 0.
func (v Value) Int64() int64 {
	x, _ := v.data.(int64)
	return x
}

// RawString returns v's string value.
// If v.Kind() != String, RawString returns the empty string.
func (v Value) RawString() string {
	x, _ := v.data.(string)
	return x
}

// Text returns v's string value interpreted as a PDF text string
// and converted to UTF-8.
// If v.Kind() != String, Text returns the empty string.
func (v Value) Text() string {
	x, ok := v.data.(string)
	if !ok {
		return ""
	}
	return decodeText(x)
}

// Name returns v's name value, without the leading slash.
// If v.Kind() != Name, Name returns the empty string.
func (v Value) Name() string {
	x, _ := v.data.(name)
	return string(x)
}

func (v Value) dict() dict {
	switch x := v.data.(type) {
	case dict:
		return x
	case stream:
		return x.hdr
	}
	return nil
}

// Has reports whether the dictionary v contains key, even when its value is null.
// If v is a stream, Has applies to the stream's header dictionary.
func (v Value) Has(key string) bool {
	_, ok := v.dict()[name(key)]
	return ok
}

// Key returns the value associated with the given name key in the dictionary v.
// If v is a stream, Key applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Key returns a null Value.
func (v Value) Key(key string) Value {
	x := v.dict()
	if x == nil {
		return Value{}
	}
	return v.d.resolve(v.ptr, x[name(key)])
}

// Keys returns a sorted list of the keys in the dictionary v.
// If v is a stream, Keys applies to the stream's header dictionary.
// If v.Kind() != Dict and v.Kind() != Stream, Keys returns nil.
func (v Value) Keys() []string {
	x := v.dict()
	if x == nil {
		return nil
	}
	keys := make([]string, 0, len(x))
	for k := range x {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

// Index returns the i'th element in the array v.
// If v.Kind() != Array or if i is outside the array bounds,
// Index returns a null Value.
func (v Value) Index(i int) Value {
	x, ok := v.data.(array)
	if !ok || i < 0 || i >= len(x) {
		return Value{}
	}
	return v.d.resolve(v.ptr, x[i])
}

// Len returns the length of the array v.
// If v.Kind() != Array, Len returns 0.
func (v Value) Len() int {
	x, _ := v.data.(array)
	return len(x)
}

type errorReadCloser struct {
	err error
}

func (e *errorReadCloser) Read([]byte) (int, error) {
	return 0, e.err
}

func (e *errorReadCloser) Close() error {
	return e.err
}

// Reader returns the decoded data contained in the stream v.
// If v.Kind() != Stream or the data cannot be decoded, Reader returns
// a ReadCloser that responds to all reads with the error.
func (v Value) Reader() io.ReadCloser {
	x, ok := v.data.(stream)
	if !ok || v.d == nil {
		return &errorReadCloser{errors.New("stream not present")}
	}
	data, err := v.d.streamData(x)
	if err != nil {
		return &errorReadCloser{err}
	}
	return io.NopCloser(bytes.NewReader(data))
}
