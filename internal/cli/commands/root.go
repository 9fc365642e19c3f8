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

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/cobra"

	"github.com/aaronlmathis/seqprep/config"
	"github.com/aaronlmathis/seqprep/pkg/logger"
	"github.com/aaronlmathis/seqprep/storage"
)

const version = "0.1.0"

var configPath string

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:     "seqprep",
	Short:   "Staged, chunked preprocessing of genome sequence files",
	Version: version,
	Long: `seqprep runs a configured series of preprocessing stages (masking, filtering)
over genome sequence files. Large inputs are split into chunks that an external
command processes with neighbouring chunks as context; the processed chunks
are then merged back into one file per input.

Other commands manage the experiment descriptor shared by later pipeline
steps and work with run reports and the run ledger.`,
	Example: `  # Preprocess two genomes with the stages in stages.xml
  $ seqprep preprocess out/ stages.xml human.fa s3://genomes/chimp.fa

  # Preprocess the sequences of an experiment and write its next version
  $ seqprep preprocess out/ stages.xml --experiment exp.xml --experiment-out exp.next.xml

  # Summarize a run report
  $ seqprep report summary report.parquet`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() error {
	rootCmd.SetVersionTemplate(fmt.Sprintf("seqprep version %s\n", version))
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "runtime configuration file (default ./seqprep.yaml)")

	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(experimentCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runsCmd)
}

// session holds what every command that touches the environment needs.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

// loadSession loads the configuration and sets up logging. Callers must
// close the returned session.
func loadSession() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: log, closer: closer}, nil
}

func (s *session) Close() error {
	return s.closer.Close()
}

func (s *session) context(parent context.Context) context.Context {
	return logger.WithContext(parent, s.logger)
}

func (s *session) s3Options() []storage.S3Option {
	var opts []storage.S3Option
	if s.cfg.S3.Region != "" {
		opts = append(opts, storage.WithRegion(s.cfg.S3.Region))
	}
	if s.cfg.S3.Profile != "" {
		opts = append(opts, storage.WithProfile(s.cfg.S3.Profile))
	}
	if s.cfg.S3.Endpoint != "" {
		opts = append(opts, storage.WithEndpoint(s.cfg.S3.Endpoint))
	}
	if s.cfg.S3.PathStyle {
		opts = append(opts, storage.WithPathStyle(true))
	}
	if s.cfg.S3.AccessKeyID != "" {
		opts = append(opts, storage.WithCredentials(aws.Credentials{
			AccessKeyID:     s.cfg.S3.AccessKeyID,
			SecretAccessKey: s.cfg.S3.SecretAccessKey,
			Source:          "seqprep config",
		}))
	}
	return opts
}
