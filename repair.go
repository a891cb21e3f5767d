// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/midbel/hexdump"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

var (
	objMarkerRe   = regexp.MustCompile(`\d+ \d+ obj\b`)
	objBoundRe    = regexp.MustCompile(`\b(?:trailer|xref|startxref)\b|%%EOF`)
	catalogTypeRe = regexp.MustCompile(`/Type\s*/Catalog\b`)
)

const (
	defaultHeader = "%PDF-1.4\n"
	endobjText    = "\nendobj\n"
	// bytes shown on each side of an insertion in debug dumps.
	dumpContext = 16
)

// Insertion is text inserted into a buffer at Position, an offset into the
// buffer as it was before any insertion of the same pass was applied.
type Insertion struct {
	Position int
	Text     []byte
}

// RepairReport describes what a repair changed.
type RepairReport struct {
	// Passes lists the passes that modified the buffer, in order.
	Passes []string
	// Insertions made by the endobj pass, in ascending position order.
	Insertions []Insertion
	// Objects is the number of objects indexed by a rebuilt xref table;
	// zero when the table was kept.
	Objects int
}

// Changed reports whether any pass modified the buffer.
func (r *RepairReport) Changed() bool { return len(r.Passes) > 0 }

// Repairer rebuilds the minimal skeleton of a damaged PDF: object
// boundaries, header, cross-reference table with trailer, and startxref.
// It is not a general repair tool; the output only has to decode well
// enough for detection.
type Repairer struct {
	// Debug logs a hex dump around every insertion.
	Debug bool
}

// NewRepairer returns a Repairer.
func NewRepairer() *Repairer {
	return &Repairer{}
}

type repairPass struct {
	name string
	fn   func(r *Repairer, data []byte, rep *RepairReport) ([]byte, error)
}

// passes run in order; each one is idempotent on its own output.
var passes = []repairPass{
	{"endobj", (*Repairer).repairMissingEndobj},
	{"header", (*Repairer).repairHeader},
	{"xref", (*Repairer).repairXrefTable},
	{"startxref", (*Repairer).repairStartxref},
}

// Repair returns a repaired copy of data. data itself is never modified.
func (r *Repairer) Repair(data []byte) ([]byte, error) {
	out, _, err := r.RepairWithReport(data)
	return out, err
}

// RepairWithReport is like Repair and also reports what was changed.
// Any failure, including a panic inside a pass, is returned as *RepairError.
func (r *Repairer) RepairWithReport(data []byte) (out []byte, rep *RepairReport, err error) {
	if len(data) == 0 {
		return nil, nil, &RepairError{Err: ErrEmptyInput}
	}
	rep = &RepairReport{}
	cur := bytes.Clone(data)
	for _, p := range passes {
		next, perr := r.runPass(p, cur, rep)
		if perr != nil {
			logger.Error("PDF repair failed", "pass", p.name, "error", perr)
			return nil, nil, &RepairError{Pass: p.name, Err: perr}
		}
		if !bytes.Equal(next, cur) {
			rep.Passes = append(rep.Passes, p.name)
			logger.Debug(fmt.Sprintf("repair: %s pass changed %d -> %d bytes", p.name, len(cur), len(next)), true)
		}
		cur = next
	}
	return cur, rep, nil
}

func (r *Repairer) runPass(p repairPass, data []byte, rep *RepairReport) (out []byte, err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = nil, fmt.Errorf("panic: %v", v)
		}
	}()
	return p.fn(r, data, rep)
}

// repairMissingEndobj inserts "endobj" after every object marker whose body
// does not contain one. A body runs to the next marker or, for the last one,
// to the first trailer, xref, startxref or %%EOF keyword.
func (r *Repairer) repairMissingEndobj(data []byte, rep *RepairReport) ([]byte, error) {
	starts := objMarkerRe.FindAllIndex(data, -1)
	var ins []Insertion
	for i, loc := range starts {
		start := loc[0]
		end := len(data)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		} else if m := objBoundRe.FindIndex(data[start:]); m != nil {
			end = start + m[0]
		}
		if !bytes.Contains(data[start:end], []byte("endobj")) {
			ins = append(ins, Insertion{Position: end, Text: []byte(endobjText)})
		}
	}
	if len(ins) == 0 {
		return data, nil
	}
	out := applyInsertions(data, ins)
	rep.Insertions = append(rep.Insertions, ins...)
	if r.Debug {
		r.dumpInsertions(out, ins)
	}
	return out, nil
}

// applyInsertions applies ins to a copy of data in descending position
// order so that earlier positions stay valid.
func applyInsertions(data []byte, ins []Insertion) []byte {
	sorted := make([]Insertion, len(ins))
	copy(sorted, ins)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position > sorted[j].Position })
	out := bytes.Clone(data)
	for _, in := range sorted {
		pos := min(max(in.Position, 0), len(out))
		out = append(out[:pos], append(bytes.Clone(in.Text), out[pos:]...)...)
	}
	return out
}

func (r *Repairer) dumpInsertions(out []byte, ins []Insertion) {
	// positions shift by the text inserted before them
	shift := 0
	for _, in := range ins {
		pos := in.Position + shift
		lo := max(pos-dumpContext, 0)
		hi := min(pos+len(in.Text)+dumpContext, len(out))
		logger.Debug(fmt.Sprintf("repair: inserted endobj at %d\n%s", in.Position, hexdump.Dump(out[lo:hi])))
		shift += len(in.Text)
	}
}

func (r *Repairer) repairHeader(data []byte, _ *RepairReport) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return data, nil
	}
	return append([]byte(defaultHeader), data...), nil
}

// repairXrefTable rebuilds the xref table, trailer and startxref when the
// content after the last xref keyword does not hold all three of xref,
// trailer and startxref.
func (r *Repairer) repairXrefTable(data []byte, rep *RepairReport) ([]byte, error) {
	pos := lastXrefPosition(data)
	if pos >= 0 && isValidXrefTable(data[pos:]) {
		return data, nil
	}
	body := data
	if pos >= 0 {
		body = data[:pos]
	}
	objects := findAllObjects(body)
	if len(objects) == 0 {
		return data, nil
	}

	maxID := 0
	for id := range objects {
		maxID = max(maxID, id)
	}
	size := maxID + 1

	var buf bytes.Buffer
	buf.Grow(len(body) + size*20 + 64)
	buf.Write(body)
	buf.WriteString("xref\n0 " + strconv.Itoa(size) + "\n")
	for id := 0; id < size; id++ {
		switch o, ok := objects[id]; {
		case ok:
			fmt.Fprintf(&buf, "%010d %05d n \n", o.start, o.gen)
		case id == 0:
			buf.WriteString("0000000000 65535 f \n")
		default:
			fmt.Fprintf(&buf, "%010d %05d f \n", 0, 0)
		}
	}
	fmt.Fprintf(&buf, "trailer\n<<\n/Size %d\n/Root %d 0 R\n>>\n", size, findCatalog(body, objects))
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", len(body))

	rep.Objects = len(objects)
	logger.Debug(fmt.Sprintf("repair: rebuilt xref with %d objects, size %d", len(objects), size), true)
	return buf.Bytes(), nil
}

// lastXrefPosition returns the offset of the last xref keyword that is not
// part of "startxref", or -1.
func lastXrefPosition(data []byte) int {
	kw := []byte("xref")
	for end := len(data); end > 0; {
		i := bytes.LastIndex(data[:end], kw)
		if i < 0 {
			return -1
		}
		if !bytes.HasSuffix(data[:i], []byte("start")) {
			return i
		}
		end = i
	}
	return -1
}

func isValidXrefTable(tail []byte) bool {
	return bytes.Contains(tail, []byte("xref")) &&
		bytes.Contains(tail, []byte("trailer")) &&
		bytes.Contains(tail, []byte("startxref"))
}

type objLocation struct {
	gen        int
	start, end int
}

// findAllObjects indexes the objects of body line by line. An object starts
// on a line that is exactly "<int> <int> obj" and is recorded when its
// "endobj" line is reached; later definitions of a number replace earlier ones.
func findAllObjects(body []byte) map[int]objLocation {
	objects := make(map[int]objLocation)
	var (
		cur    *objLocation
		curID  int
		lineAt int
	)
	for _, raw := range bytes.Split(body, []byte("\n")) {
		line := bytes.TrimSpace(raw)
		if id, gen, ok := parseObjectStartLine(line); ok {
			lead := len(raw) - len(bytes.TrimLeft(raw, " \t\r\x00\x0b\f"))
			cur = &objLocation{gen: gen, start: lineAt + lead}
			curID = id
		}
		if cur != nil && bytes.Equal(line, []byte("endobj")) {
			cur.end = lineAt + len(raw)
			objects[curID] = *cur
			cur = nil
		}
		lineAt += len(raw) + 1
	}
	return objects
}

func parseObjectStartLine(line []byte) (id, gen int, ok bool) {
	parts := bytes.Split(line, []byte(" "))
	if len(parts) != 3 || string(parts[2]) != "obj" {
		return 0, 0, false
	}
	id, err1 := strconv.Atoi(string(parts[0]))
	gen, err2 := strconv.Atoi(string(parts[1]))
	if err1 != nil || err2 != nil || id < 0 || gen < 0 || id >= maxXrefEntries || gen > 65535 {
		return 0, 0, false
	}
	return id, gen, true
}

// findCatalog returns the lowest object number declaring /Type /Catalog,
// or 1 when there is none.
func findCatalog(body []byte, objects map[int]objLocation) int {
	ids := make([]int, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		o := objects[id]
		if o.end > o.start && catalogTypeRe.Match(body[o.start:o.end]) {
			return id
		}
	}
	return 1
}

// repairStartxref appends a startxref pointing at the last xref keyword
// when the buffer has none.
func (r *Repairer) repairStartxref(data []byte, _ *RepairReport) ([]byte, error) {
	if bytes.Contains(data, []byte("startxref")) {
		return data, nil
	}
	pos := lastXrefPosition(data)
	if pos < 0 {
		return data, nil
	}
	out := bytes.Clone(data)
	return fmt.Appendf(out, "startxref\n%d\n%%%%EOF\n", pos), nil
}
