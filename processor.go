// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

// Processor defines the contract for detecting JavaScript in PDF files.
type Processor interface {
	Detect(ctx context.Context, path string) (Result, error)
	DetectAll(ctx context.Context, paths []string) []FileResult
}

// FileResult is the outcome of one file of a batch.
type FileResult struct {
	Path string `json:"path"`
	Result
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// processor manages detection with concurrency control
// and delegates each file to a Detector.
type processor struct {
	cfg      *Config
	sem      *semaphore.Weighted
	detector *Detector
}

// NewProcessor validates the config and creates a new processor.
func NewProcessor(cfg *Config) (*processor, error) {
	//Set the logger function
	if cfg.Logger != nil {
		logger.SetLogger(cfg.Logger)
	}

	detector, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug(fmt.Sprintf("Processor initialized: scan_mode=%v, max_concurrent_pdfs=%d, file_timeout=%v",
		cfg.ScanMode, cfg.MaxConcurrentPDFs, cfg.FileTimeout), true)

	return &processor{
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentPDFs)),
		detector: detector,
	}, nil
}

// Detect runs detection for one file once a concurrency slot is free,
// bounded by Config.FileTimeout.
func (p *processor) Detect(ctx context.Context, path string) (Result, error) {
	logger.Debug(fmt.Sprintf("Starting detection: path=%s", path), true)

	if err := p.acquireSlot(ctx); err != nil {
		logger.Debug(fmt.Sprintf("Failed to acquire slot: err=%v", err), true)
		return Result{}, err
	}
	defer p.sem.Release(1)

	ctxFile, cancel := context.WithTimeout(ctx, p.cfg.FileTimeout)
	defer cancel()

	res, err := p.detector.Detect(ctxFile, path)
	if err != nil {
		logger.Debug(fmt.Sprintf("Detection failed: path=%s err=%v", path, err), true)
		return Result{}, err
	}
	logger.Debug(fmt.Sprintf("Detection completed: path=%s detected=%v used_repair=%v", path, res.Detected, res.UsedRepair), true)
	return res, nil
}

// DetectAll runs detection for every path, at most Config.MaxConcurrentPDFs
// at a time. Results are in the order of paths; a failing file does not stop
// the others.
func (p *processor) DetectAll(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			results[i] = p.detectFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// DetectStream is like DetectAll but emits each result on the returned
// channel as soon as it and all results before it are available. The channel
// is closed after the last result.
func (p *processor) DetectStream(ctx context.Context, paths []string) <-chan FileResult {
	results := make(chan indexedResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			results <- indexedResult{i, p.detectFile(gctx, path)}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	outCh := make(chan FileResult)
	go func() {
		defer close(outCh)
		p.emitInOrder(results, outCh)
	}()
	return outCh
}

type indexedResult struct {
	index int
	res   FileResult
}

func (p *processor) emitInOrder(results <-chan indexedResult, outCh chan<- FileResult) {
	pending := make(map[int]FileResult)
	next := 0
	for r := range results {
		pending[r.index] = r.res
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			outCh <- res
			delete(pending, next)
			next++
		}
	}
}

func (p *processor) detectFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	res, err := p.Detect(ctx, path)
	return FileResult{Path: path, Result: res, Err: err, Duration: time.Since(start)}
}

func (p *processor) acquireSlot(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot: %w", err)
	}
	logger.Debug("Slot acquired successfully", true)
	return nil
}
