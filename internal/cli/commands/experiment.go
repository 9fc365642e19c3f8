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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/seqprep/experiment"
	"github.com/aaronlmathis/seqprep/internal/cli/ui"
	"github.com/aaronlmathis/seqprep/storage"
)

var (
	expOutgroups   []string
	expConfig      string
	expProgressive bool
	expConstraints string
	expKTHost      string
	expKTPort      int
	expKTInMemory  bool
	expConfigRoot  string
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "create and inspect experiment descriptors",
	Long: `An experiment descriptor names the species tree, the sequence file of each
event, the outgroups, and the database the alignment is written to.`,
}

var experimentCreateCmd = &cobra.Command{
	Use:   "create NEWICK OUTDIR FILE [SEQUENCE...]",
	Short: "write a new experiment descriptor",
	Long: `Create an experiment for the NEWICK tree whose leaves and outgroups map, in
post-order, to the SEQUENCE files. Without --kt-host the alignment database is
an embedded store under OUTDIR.`,
	Example: `  $ seqprep experiment create '((human,chimp)anc,gorilla);' work/ exp.xml \
      human.fa chimp.fa gorilla.fa --outgroup gorilla`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		newick, outDir, file, sequences := args[0], args[1], args[2], args[3:]

		var opts []experiment.Option
		if len(expOutgroups) > 0 {
			opts = append(opts, experiment.WithOutgroups(expOutgroups...))
		}
		if expProgressive {
			opts = append(opts, experiment.WithProgressive())
		}
		if expConfig != "" {
			opts = append(opts, experiment.WithConfigPath(expConfig))
		}
		if expConstraints != "" {
			opts = append(opts, experiment.WithConstraints(expConstraints))
		}
		if expKTHost != "" {
			opts = append(opts, experiment.WithDatabase(&experiment.NetworkedStore{
				Host:        expKTHost,
				Port:        expKTPort,
				DatabaseDir: filepath.Join(outDir, "db"),
				InMemory:    expKTInMemory,
			}))
		}

		exp, err := experiment.New(newick, sequences, outDir, opts...)
		if err != nil {
			return err
		}
		if err := exp.Save(file); err != nil {
			return err
		}
		ui.PrintSuccess("experiment written to %s", file)
		return nil
	},
}

var experimentCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "validate an experiment descriptor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, err := experiment.Load(args[0])
		if err != nil {
			return err
		}
		missing := 0
		for _, seq := range exp.Sequences {
			if storage.IsURI(seq) {
				continue
			}
			if _, err := os.Stat(seq); err != nil {
				ui.PrintWarning("sequence %s: %v", seq, err)
				missing++
			}
		}
		if expConfigRoot != "" {
			ref, err := exp.ReferenceNameFromConfig(expConfigRoot)
			if err != nil {
				return err
			}
			if _, ok := exp.Sequence(ref); !ok {
				return fmt.Errorf("reference event %q has no sequence", ref)
			}
			ui.PrintInfo("reference event %s", ref)
		}
		if missing > 0 {
			return fmt.Errorf("%d of %d sequences are not readable", missing, len(exp.Sequences))
		}
		ui.PrintSuccess("%s is valid (%d sequences)", args[0], len(exp.Sequences))
		return nil
	},
}

var experimentShowCmd = &cobra.Command{
	Use:   "show FILE",
	Short: "print an experiment descriptor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, err := experiment.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderExperiment(exp))
		return nil
	},
}

func init() {
	f := experimentCreateCmd.Flags()
	f.StringSliceVar(&expOutgroups, "outgroup", nil, "outgroup event (repeatable)")
	f.StringVar(&expConfig, "workflow-config", "", "workflow configuration file (default \"default\")")
	f.BoolVar(&expProgressive, "progressive", false, "use the progressive default workflow configuration")
	f.StringVar(&expConstraints, "constraints", "", "alignment constraints file")
	f.StringVar(&expKTHost, "kt-host", "", "use a networked database served from this host")
	f.IntVar(&expKTPort, "kt-port", 1978, "networked database port")
	f.BoolVar(&expKTInMemory, "kt-in-memory", false, "keep the networked database in memory")

	experimentCheckCmd.Flags().StringVar(&expConfigRoot, "config-root", "",
		"directory holding the default workflow configurations; checks the reference event")

	experimentCmd.AddCommand(experimentCreateCmd, experimentCheckCmd, experimentShowCmd)
}
