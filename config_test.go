// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		shouldErr bool
	}{
		{
			name: "valid config",
			cfg: &Config{
				MaxConcurrentPDFs: 10,
				FileTimeout:       5 * time.Second,
				ScanMode:          Full,
				MaxDepth:          64,
			},
			shouldErr: false,
		},
		{
			name: "invalid MaxConcurrentPDFs (too low)",
			cfg: &Config{
				MaxConcurrentPDFs: 0,
				FileTimeout:       5 * time.Second,
				ScanMode:          Prefiltered,
				MaxDepth:          64,
			},
			shouldErr: true,
		},
		{
			name: "invalid MaxConcurrentPDFs (too high)",
			cfg: &Config{
				MaxConcurrentPDFs: 65,
				FileTimeout:       5 * time.Second,
				ScanMode:          Prefiltered,
				MaxDepth:          64,
			},
			shouldErr: true,
		},
		{
			name: "missing FileTimeout",
			cfg: &Config{
				MaxConcurrentPDFs: 10,
				FileTimeout:       0,
				ScanMode:          Prefiltered,
				MaxDepth:          64,
			},
			shouldErr: true,
		},
		{
			name: "invalid ScanMode",
			cfg: &Config{
				MaxConcurrentPDFs: 10,
				FileTimeout:       5 * time.Second,
				ScanMode:          "invalid-mode",
				MaxDepth:          64,
			},
			shouldErr: true,
		},
		{
			name: "negative MaxFileSize",
			cfg: &Config{
				MaxConcurrentPDFs: 10,
				FileTimeout:       5 * time.Second,
				ScanMode:          Prefiltered,
				MaxFileSize:       -1,
				MaxDepth:          64,
			},
			shouldErr: true,
		},
		{
			name: "invalid MaxDepth (too low)",
			cfg: &Config{
				MaxConcurrentPDFs: 10,
				FileTimeout:       5 * time.Second,
				ScanMode:          Prefiltered,
				MaxDepth:          0,
			},
			shouldErr: true,
		},
		{
			name:      "default config is valid",
			cfg:       NewDefaultConfig(),
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.shouldErr {
				assert.Error(t, err, "expected validation error")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	def := NewDefaultConfig()
	assert.Equal(t, def.MaxConcurrentPDFs, cfg.MaxConcurrentPDFs)
	assert.Equal(t, def.FileTimeout, cfg.FileTimeout)
	assert.Equal(t, def.ScanMode, cfg.ScanMode)
	assert.Equal(t, def.MaxDepth, cfg.MaxDepth)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jsguard.yaml")
	yaml := "max_concurrent_pdfs: 8\n" +
		"file_timeout: 2m\n" +
		"scan_mode: full\n" +
		"max_file_size: 1048576\n" +
		"debug: true\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxConcurrentPDFs)
	assert.Equal(t, 2*time.Minute, cfg.FileTimeout)
	assert.Equal(t, Full, cfg.ScanMode)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize)
	assert.True(t, cfg.DebugOn)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)

	t.Setenv("JSGUARD_MAX_CONCURRENT_PDFS", "3")
	t.Setenv("JSGUARD_SCAN_MODE", "prefiltered")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrentPDFs)
	assert.Equal(t, Prefiltered, cfg.ScanMode)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "read config")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan_mode: sometimes\n"), 0o600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "invalid config")
}
