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

package dag

import (
	"fmt"
	"os"
	"path/filepath"
)

// scratch owns the on-disk temporary space of one execution. Global
// directories live until the run ends; local directories belong to one task
// attempt.
type scratch struct {
	root string
	keep bool
}

func newScratch(workDir string, keep bool) (*scratch, error) {
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	root, err := os.MkdirTemp(workDir, "seqprep-run-")
	if err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	for _, sub := range []string{"global", "local"} {
		if err := os.Mkdir(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create scratch root: %w", err)
		}
	}
	return &scratch{root: root, keep: keep}, nil
}

func (s *scratch) global() (string, error) {
	return os.MkdirTemp(filepath.Join(s.root, "global"), "g-")
}

func (s *scratch) local() (string, error) {
	return os.MkdirTemp(filepath.Join(s.root, "local"), "l-")
}

func (s *scratch) cleanup() error {
	if s.keep {
		return nil
	}
	return os.RemoveAll(s.root)
}
