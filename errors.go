// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when the input path does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrEmptyInput reports a zero-length buffer.
	ErrEmptyInput = errors.New("empty PDF data")
	// ErrMissingHeader reports a buffer without a %PDF- marker.
	ErrMissingHeader = errors.New("missing %PDF- header")
	// ErrTooLarge is returned when a file exceeds Config.MaxFileSize.
	ErrTooLarge = errors.New("file exceeds size limit")

	// errLineEndings reports xref offsets that do not match a file containing
	// CRLF line endings; the scanner retries once with LF endings.
	errLineEndings = errors.New("xref offsets disagree with CRLF line endings")
)

// ParseError is returned by the decoder.
type ParseError struct {
	Op     string // operation being performed, e.g. "read xref"
	Offset int64  // byte offset in the input, when known
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("pdf: %s at offset %d: %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("pdf: %s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RepairError is returned when a structural repair pass fails.
// The input bytes are left untouched.
type RepairError struct {
	Pass string
	Err  error
}

func (e *RepairError) Error() string {
	if e.Pass == "" {
		return fmt.Sprintf("repair: %v", e.Err)
	}
	return fmt.Sprintf("repair: %s pass: %v", e.Pass, e.Err)
}

func (e *RepairError) Unwrap() error { return e.Err }
