// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package jsguard

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sassoftware/viya-pdf-jsguard/logger"
)

// ScanMode selects how objects are chosen for classification.
type ScanMode string

const (
	// Prefiltered decodes only objects whose raw bytes mention a JavaScript indicator.
	Prefiltered ScanMode = "prefiltered"
	// Full decodes and classifies every object of the document.
	Full ScanMode = "full"
)

// EnvPrefix prefixes environment variables read by LoadConfig,
// e.g. JSGUARD_SCAN_MODE.
const EnvPrefix = "JSGUARD"

type Config struct {
	MaxConcurrentPDFs int           `mapstructure:"max_concurrent_pdfs" validate:"min=1,max=64"`
	FileTimeout       time.Duration `mapstructure:"file_timeout" validate:"required"`
	ScanMode          ScanMode      `mapstructure:"scan_mode" validate:"oneof=prefiltered full"`
	// MaxFileSize in bytes; 0 means unlimited.
	MaxFileSize int64 `mapstructure:"max_file_size" validate:"min=0"`
	MaxDepth    int   `mapstructure:"max_depth" validate:"min=1,max=4096"`
	// TempDir holds repaired copies; empty means os.TempDir().
	TempDir string         `mapstructure:"temp_dir"`
	DebugOn bool           `mapstructure:"debug"`
	Logger  logger.LogFunc `mapstructure:"-"`
}

func NewDefaultConfig() *Config {
	return &Config{
		MaxConcurrentPDFs: 5,
		FileTimeout:       30 * time.Second,
		ScanMode:          Prefiltered,
		MaxFileSize:       0,
		MaxDepth:          DefaultMaxDepth,
		DebugOn:           false,
	}
}

func (cfg *Config) Validate() error {
	logger.Debug("Validating Config Object")
	validate := validator.New()
	return validate.Struct(cfg)
}

// LoadConfig builds a Config from defaults, the optional file at path
// (YAML, JSON or TOML by extension) and JSGUARD_* environment variables,
// in increasing order of precedence. The result is validated.
func LoadConfig(path string) (*Config, error) {
	def := NewDefaultConfig()
	v := viper.New()
	v.SetDefault("max_concurrent_pdfs", def.MaxConcurrentPDFs)
	v.SetDefault("file_timeout", def.FileTimeout)
	v.SetDefault("scan_mode", string(def.ScanMode))
	v.SetDefault("max_file_size", def.MaxFileSize)
	v.SetDefault("max_depth", def.MaxDepth)
	v.SetDefault("temp_dir", def.TempDir)
	v.SetDefault("debug", def.DebugOn)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
