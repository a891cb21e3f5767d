// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"context"
	"fmt"
	"sort"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

// ScanStrategy decides whether one PDF buffer carries JavaScript.
// An error means the buffer could not be decoded at all; individual objects
// that fail to decode are skipped.
type ScanStrategy interface {
	Scan(ctx context.Context, data []byte) (bool, error)
}

// NewScanStrategy returns the strategy for mode.
func NewScanStrategy(mode ScanMode, maxDepth int) (ScanStrategy, error) {
	switch mode {
	case Prefiltered, "":
		return &PrefilteredScan{MaxDepth: maxDepth}, nil
	case Full:
		return &FullScan{MaxDepth: maxDepth}, nil
	}
	return nil, fmt.Errorf("unknown scan mode %q", mode)
}

// PrefilteredScan classifies only the objects the Scanner yields, stopping
// at the first positive.
type PrefilteredScan struct {
	MaxDepth int
}

func (s *PrefilteredScan) Scan(ctx context.Context, data []byte) (bool, error) {
	candidates, err := NewScanner().Scan(data)
	if err != nil {
		return false, err
	}
	c := NewClassifier(s.MaxDepth)
	for cand := range candidates {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		v, err := cand.Decode()
		if err != nil {
			logger.Debug("PrefilteredScan: failed to decode candidate, ignoring error", "id", cand.ID, "err", err, true)
			continue
		}
		if c.Classify(v) {
			logger.Debug(fmt.Sprintf("PrefilteredScan: JavaScript found in object %s", cand.ID), true)
			return true, nil
		}
	}
	return false, nil
}

// FullScan decodes every object of the document and classifies each one.
type FullScan struct {
	MaxDepth int
}

func (s *FullScan) Scan(ctx context.Context, data []byte) (bool, error) {
	doc, err := openDocument(data)
	if err != nil {
		return false, err
	}
	objects := doc.Objects()
	ids := make([]int, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	c := NewClassifier(s.MaxDepth)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if c.Classify(objects[id]) {
			logger.Debug(fmt.Sprintf("FullScan: JavaScript found in object %d", id), true)
			return true, nil
		}
	}
	return false, nil
}
