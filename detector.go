// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
	"github.com/sassoftware/viya-pdf-jsguard/tracer"
)

// Result is the outcome of one detection run.
type Result struct {
	Detected bool `json:"detected"`
	// UsedRepair reports whether the verdict came from the repaired bytes.
	UsedRepair bool `json:"used_repair"`
}

// Detector runs the scan, repair and rescan sequence for single files.
// A Detector holds no per-file state and is safe for concurrent use.
type Detector struct {
	strategy    ScanStrategy
	repairer    *Repairer
	tempDir     string
	maxFileSize int64
}

// NewDetector validates cfg and returns a Detector configured by it.
//
// The logger and the decoder trace are process-wide: NewDetector installs
// cfg.Logger when set and turns tracing on or off per cfg.DebugOn, so the
// last Detector or Processor constructed wins.
func NewDetector(cfg *Config) (*Detector, error) {
	d, err := newDetector(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}
	tracer.SetEnabled(cfg.DebugOn)
	return d, nil
}

func newDetector(cfg *Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := NewScanStrategy(cfg.ScanMode, cfg.MaxDepth)
	if err != nil {
		return nil, err
	}
	return &Detector{
		strategy:    strategy,
		repairer:    &Repairer{Debug: cfg.DebugOn},
		tempDir:     cfg.TempDir,
		maxFileSize: cfg.MaxFileSize,
	}, nil
}

// DetectJavaScript reports whether the PDF at path carries JavaScript, using
// the default configuration. Only a missing file, an unreadable file or ctx
// ending are reported as errors; undecodable content is simply not detected.
// It leaves the process-wide logger and trace settings untouched.
func DetectJavaScript(ctx context.Context, path string) (bool, error) {
	d, err := newDetector(NewDefaultConfig())
	if err != nil {
		return false, err
	}
	res, err := d.Detect(ctx, path)
	return res.Detected, err
}

type state int

const (
	stateStart state = iota
	stateTryOriginal
	stateNeedRepair
	stateRepairing
	stateRepaired
	stateRepairFailed
	stateTryRepaired
	stateDetected
	stateNotDetected
	stateFailed
)

var stateNames = [...]string{
	stateStart:        "start",
	stateTryOriginal:  "tryOriginal",
	stateNeedRepair:   "needRepair",
	stateRepairing:    "repairing",
	stateRepaired:     "repaired",
	stateRepairFailed: "repairFailed",
	stateTryRepaired:  "tryRepaired",
	stateDetected:     "detected",
	stateNotDetected:  "notDetected",
	stateFailed:       "failed",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s state) terminal() bool {
	return s == stateDetected || s == stateNotDetected || s == stateFailed
}

// run is the state of one detection run.
type run struct {
	d        *Detector
	ctx      context.Context
	path     string
	original []byte
	repaired []byte
	err      error
	repair   bool
}

// Detect runs the detection sequence for the PDF at path.
//
// The original bytes are scanned first. If they cannot be decoded they are
// repaired and the repaired copy is scanned from a temporary file. Decoding
// and repair failures end in a negative Result, not an error.
func (d *Detector) Detect(ctx context.Context, path string) (Result, error) {
	r := &run{d: d, ctx: ctx, path: path}
	st := stateStart
	for !st.terminal() {
		next := r.step(st)
		logger.Debug("detect: transition", "path", path, "from", st, "to", next, true)
		st = next
	}
	switch st {
	case stateFailed:
		return Result{}, r.err
	case stateDetected:
		return Result{Detected: true, UsedRepair: r.repair}, nil
	}
	return Result{UsedRepair: r.repair}, nil
}

func (r *run) step(st state) state {
	switch st {
	case stateStart:
		return r.start()
	case stateTryOriginal:
		return r.tryOriginal()
	case stateNeedRepair:
		return stateRepairing
	case stateRepairing:
		return r.repairing()
	case stateRepaired:
		return stateTryRepaired
	case stateRepairFailed:
		return stateNotDetected
	case stateTryRepaired:
		return r.tryRepaired()
	}
	r.err = fmt.Errorf("detect: unexpected state %v", st)
	return stateFailed
}

func (r *run) start() state {
	fi, err := os.Stat(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.err = fmt.Errorf("%w: %s", ErrFileNotFound, r.path)
		} else {
			r.err = err
		}
		return stateFailed
	}
	if r.d.maxFileSize > 0 && fi.Size() > r.d.maxFileSize {
		r.err = fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, r.path, fi.Size())
		return stateFailed
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		r.err = err
		return stateFailed
	}
	r.original = data
	return stateTryOriginal
}

func (r *run) tryOriginal() state {
	found, err := r.scan(r.original)
	switch {
	case isContextErr(err):
		r.err = err
		return stateFailed
	case err != nil:
		logger.Warn("Original PDF parsing failed, attempting repair", "path", r.path, "error", err)
		return stateNeedRepair
	case found:
		return stateDetected
	}
	return stateNotDetected
}

func (r *run) repairing() state {
	repaired, err := r.d.repairer.Repair(r.original)
	if err != nil {
		logger.Error("PDF repair failed", "path", r.path, "error", err)
		return stateRepairFailed
	}
	r.repaired = repaired
	r.repair = true
	return stateRepaired
}

func (r *run) tryRepaired() state {
	var found bool
	err := withTempFile(r.d.tempDir, r.repaired, func(tmp string) error {
		data, err := os.ReadFile(tmp)
		if err != nil {
			return err
		}
		found, err = r.scan(data)
		return err
	})
	switch {
	case isContextErr(err):
		r.err = err
		return stateFailed
	case err != nil:
		logger.Error("JavaScript detection failed - PDF is too corrupted to parse safely", "path", r.path, "error", err)
		return stateNotDetected
	case found:
		return stateDetected
	}
	return stateNotDetected
}

// scan runs the strategy, converting a panic into an error.
func (r *run) scan(data []byte) (found bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			found, err = false, fmt.Errorf("scan panic: %v", v)
		}
	}()
	return r.d.strategy.Scan(r.ctx, data)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
