// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Command pdfjsguard reports PDF files that carry JavaScript.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	jsguard "github.com/sassoftware/viya-pdf-jsguard"
	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

const (
	exitError    = 1
	exitDetected = 2
)

var (
	version = "dev"

	configPath string
	debugMode  bool

	colorRed    = color.New(color.FgRed, color.Bold)
	colorGreen  = color.New(color.FgGreen, color.Bold)
	colorYellow = color.New(color.FgYellow)
)

// errDetected is returned by scan when at least one file carries JavaScript.
var errDetected = errors.New("javascript detected")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, errDetected) {
			os.Exit(exitDetected)
		}
		colorRed.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pdfjsguard",
	Short: "Detect JavaScript in PDF files",
	Long: `pdfjsguard decides whether PDF files carry JavaScript, for upload
gateways and batch screening. Damaged files are repaired in memory and
scanned again before a verdict is given.

Exit status is 0 when no file carries JavaScript, 2 when at least one
does and 1 on errors.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML, JSON or TOML)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "log debug output and the decoder trace to stderr")
	rootCmd.AddCommand(scanCmd, repairCmd)
}

// loadConfig reads the config file and environment and installs a zap
// logger writing to stderr, both on the config and as the package logger.
func loadConfig() (*jsguard.Config, *zap.Logger, error) {
	cfg, err := jsguard.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debugMode {
		cfg.DebugOn = true
	}
	level := zapcore.WarnLevel
	if cfg.DebugOn {
		level = zapcore.DebugLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zl, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	cfg.Logger = logger.Zap(zl)
	logger.SetLogger(cfg.Logger)
	return cfg, zl, nil
}
