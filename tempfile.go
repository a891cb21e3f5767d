// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

const tempPattern = "pdf_js_detector_*.pdf"

// withTempFile writes data to a new file in dir, calls fn with its path and
// removes the file on every exit path, panics included.
func withTempFile(dir string, data []byte, fn func(path string) error) error {
	f, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	logger.Debug(fmt.Sprintf("temp file: %s (%d bytes)", path, len(data)), true)
	return fn(path)
}
