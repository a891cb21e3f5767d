// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/spf13/cobra"

	jsguard "github.com/sassoftware/viya-pdf-jsguard"
	"github.com/sassoftware/viya-pdf-jsguard/logger"
	"github.com/sassoftware/viya-pdf-jsguard/tracer"
)

// sniffLen is the header size filetype needs to match every type it knows.
const sniffLen = 261

var (
	jsonOutput  bool
	scanMode    string
	concurrency int
	timeout     time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan PATH...",
	Short: "Report which PDF files carry JavaScript",
	Long: `Scan the given files. Directories are walked recursively; files in them
are scanned when they end in .pdf or start with the PDF signature.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "print one JSON object per file")
	scanCmd.Flags().StringVar(&scanMode, "mode", "", "scan mode: prefiltered or full (overrides config)")
	scanCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "files scanned at once (overrides config)")
	scanCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-file time limit (overrides config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, zl, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	if scanMode != "" {
		cfg.ScanMode = jsguard.ScanMode(scanMode)
	}
	if concurrency > 0 {
		cfg.MaxConcurrentPDFs = concurrency
	}
	if timeout > 0 {
		cfg.FileTimeout = timeout
	}

	paths, err := collectPaths(args)
	if err != nil {
		return err
	}
	proc, err := jsguard.NewProcessor(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	var detected, failed int
	for r := range proc.DetectStream(cmd.Context(), paths) {
		switch {
		case r.Err != nil:
			failed++
		case r.Detected:
			detected++
		}
		if jsonOutput {
			if err := enc.Encode(jsonResult(r)); err != nil {
				return err
			}
			continue
		}
		printResult(out, r)
	}

	if cfg.DebugOn {
		tracer.Flush(cmd.ErrOrStderr())
	}
	if !jsonOutput {
		fmt.Fprintf(out, "\n%d files, %d with JavaScript, %d errors\n", len(paths), detected, failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d files could not be scanned", failed)
	}
	if detected > 0 {
		return errDetected
	}
	return nil
}

type scanOutput struct {
	jsguard.FileResult
	Error string `json:"error,omitempty"`
}

func jsonResult(r jsguard.FileResult) scanOutput {
	o := scanOutput{FileResult: r}
	if r.Err != nil {
		o.Error = r.Err.Error()
	}
	return o
}

func printResult(w io.Writer, r jsguard.FileResult) {
	switch {
	case r.Err != nil:
		colorYellow.Fprintf(w, "ERROR   ")
		fmt.Fprintf(w, "%s: %v\n", r.Path, r.Err)
	case r.Detected:
		colorRed.Fprintf(w, "JS      ")
		fmt.Fprintf(w, "%s%s\n", r.Path, repairNote(r))
	default:
		colorGreen.Fprintf(w, "CLEAN   ")
		fmt.Fprintf(w, "%s%s\n", r.Path, repairNote(r))
	}
}

func repairNote(r jsguard.FileResult) string {
	if r.UsedRepair {
		return " (repaired)"
	}
	return ""
}

// collectPaths expands directories in args to the PDF files below them.
// Files named explicitly are always scanned.
func collectPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil || !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if d.IsDir() {
				switch d.Name() {
				case ".git", "node_modules", ".cache", "vendor":
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && isPDF(path) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

func isPDF(path string) bool {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, _ := io.ReadFull(f, head)
	return filetype.Is(head[:n], "pdf")
}
