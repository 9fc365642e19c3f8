//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of SeqPrep.
//
// SeqPrep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SeqPrep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SeqPrep. If not, see https://www.gnu.org/licenses/.

// Package config loads the runtime configuration of seqprep from a YAML
// file, SEQPREP_* environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Engine EngineConfig `mapstructure:"engine"`
	Tools  ToolsConfig  `mapstructure:"tools"`
	Report ReportConfig `mapstructure:"report"`
	Ledger LedgerConfig `mapstructure:"ledger"`
	S3     S3Config     `mapstructure:"s3"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	Output    string `mapstructure:"output"`
	FilePath  string `mapstructure:"file_path"`
	AddSource bool   `mapstructure:"add_source"`
}

// EngineConfig configures the task executor.
type EngineConfig struct {
	MaxWorkers   int           `mapstructure:"max_workers"`
	MaxCPU       int           `mapstructure:"max_cpu"`
	MaxMemory    int64         `mapstructure:"max_memory"` // bytes, 0 = unchecked
	Retries      int           `mapstructure:"retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	TaskTimeout  time.Duration `mapstructure:"task_timeout"`
	FailFast     bool          `mapstructure:"fail_fast"`
	WorkDir      string        `mapstructure:"work_dir"`
	KeepScratch  bool          `mapstructure:"keep_scratch"`
}

// ToolsConfig names the external commands.
type ToolsConfig struct {
	Chunker  string `mapstructure:"chunker"`  // empty = chunk in-process
	Merger   string `mapstructure:"merger"`   // empty = built-in "seqprep merge"
	Shell    string `mapstructure:"shell"`
	LogLevel string `mapstructure:"log_level"` // passed to the chunker
}

// ReportConfig configures the run report.
type ReportConfig struct {
	Sink string `mapstructure:"sink"` // empty = no report
}

// LedgerConfig configures the run ledger.
type LedgerConfig struct {
	Path string `mapstructure:"path"` // empty = no ledger
}

// S3Config configures access to s3:// inputs and report locations.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Profile   string `mapstructure:"profile"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`

	// Static credentials; the SDK default chain is used when empty.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.add_source", false)

	v.SetDefault("engine.max_workers", 0)
	v.SetDefault("engine.max_cpu", 0)
	v.SetDefault("engine.max_memory", 0)
	v.SetDefault("engine.retries", 2)
	v.SetDefault("engine.retry_backoff", "2s")
	v.SetDefault("engine.task_timeout", "0s")
	v.SetDefault("engine.fail_fast", false)
	v.SetDefault("engine.work_dir", "")
	v.SetDefault("engine.keep_scratch", false)

	v.SetDefault("tools.chunker", "")
	v.SetDefault("tools.merger", "")
	v.SetDefault("tools.shell", "/bin/sh")
	v.SetDefault("tools.log_level", "INFO")

	v.SetDefault("report.sink", "")
	v.SetDefault("ledger.path", "")

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
}

// Load reads configPath, or seqprep.yaml in ./configs or the working
// directory when configPath is empty. A missing default file is not an
// error; every setting then comes from the environment and the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("seqprep")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SEQPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s, must be 'json' or 'text'", c.Log.Format)
	}
	switch c.Log.Output {
	case "stdout", "stderr":
	case "file":
		if c.Log.FilePath == "" {
			return fmt.Errorf("log.file_path is required when log.output is 'file'")
		}
	default:
		return fmt.Errorf("invalid log output: %s", c.Log.Output)
	}

	if c.Engine.MaxWorkers < 0 {
		return fmt.Errorf("engine.max_workers must not be negative")
	}
	if c.Engine.MaxCPU < 0 {
		return fmt.Errorf("engine.max_cpu must not be negative")
	}
	if c.Engine.MaxMemory < 0 {
		return fmt.Errorf("engine.max_memory must not be negative")
	}
	if c.Engine.Retries < 0 {
		return fmt.Errorf("engine.retries must not be negative")
	}
	if c.Engine.RetryBackoff < 0 || c.Engine.TaskTimeout < 0 {
		return fmt.Errorf("engine durations must not be negative")
	}

	if c.Tools.Shell == "" {
		return fmt.Errorf("tools.shell is required")
	}
	return nil
}
