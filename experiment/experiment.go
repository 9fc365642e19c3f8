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

// Package experiment reads, validates and writes the experiment descriptor: the
// species tree, the sequence file for each genome, the database the alignment
// is stored in, and references to the run's results.
//
// An Experiment is a value handed from stage to stage. Update produces the
// next version without touching the one it was called on.
package experiment

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aaronlmathis/seqprep/core"
)

// Config path aliases resolved by ResolveConfigPath.
const (
	DefaultConfig            = "default"
	DefaultProgressiveConfig = "defaultProgressive"
)

// Experiment is a parsed experiment descriptor.
type Experiment struct {
	Version int

	Tree      *Tree
	Sequences []string
	Outgroups []string

	ConfigPath    string
	ConfigID      string
	SequenceIDs   []string
	Constraints   string
	ConstraintsID string

	Database DatabaseConfig

	ReferenceID string
	HalID       string
	HalFastaID  string
}

// Option configures New.
type Option func(*Experiment)

// WithOutgroups names the outgroup events.
func WithOutgroups(names ...string) Option {
	return func(e *Experiment) { e.Outgroups = append([]string(nil), names...) }
}

// WithDatabase sets the database configuration.
func WithDatabase(db DatabaseConfig) Option {
	return func(e *Experiment) { e.Database = db }
}

// WithConfigPath sets the workflow configuration file.
func WithConfigPath(path string) Option {
	return func(e *Experiment) { e.ConfigPath = path }
}

// WithProgressive selects the progressive default configuration.
func WithProgressive() Option {
	return func(e *Experiment) {
		if e.ConfigPath == DefaultConfig {
			e.ConfigPath = DefaultProgressiveConfig
		}
	}
}

// WithConstraints sets the constraints file.
func WithConstraints(path string) Option {
	return func(e *Experiment) { e.Constraints = path }
}

// New creates an experiment for tree and sequences. Without WithDatabase the
// experiment uses an embedded store in outputDir.
func New(newick string, sequences []string, outputDir string, opts ...Option) (*Experiment, error) {
	tree, err := ParseNewick(newick)
	if err != nil {
		return nil, &core.ConfigError{Source: "species_tree", Msg: "parse tree", Err: err}
	}
	e := &Experiment{
		Version:    1,
		Tree:       tree,
		Sequences:  append([]string(nil), sequences...),
		ConfigPath: DefaultConfig,
		Database:   &EmbeddedStore{DatabaseDir: outputDir},
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the database configuration and that the sequences line up
// with the tree.
func (e *Experiment) Validate() error {
	if e.Tree == nil || e.Tree.Root == nil {
		return core.NewConfigError("experiment", "species tree is required")
	}
	if e.Database == nil {
		return core.NewConfigError("experiment", "database configuration is required")
	}
	if err := e.Database.Validate(); err != nil {
		return &core.ConfigError{Source: "experiment", Msg: "database", Err: err}
	}
	_, err := e.SequenceMap()
	return err
}

// sequenceEvents returns, in post-order, the events of tree that carry a
// sequence: every leaf and every named outgroup.
func sequenceEvents(tree *Tree, outgroupNames []string) []string {
	outgroups := make(map[string]bool, len(outgroupNames))
	for _, o := range outgroupNames {
		outgroups[o] = true
	}
	var events []string
	for _, n := range tree.PostOrder() {
		if n.IsLeaf() || outgroups[n.Name] {
			events = append(events, n.Name)
		}
	}
	return events
}

// SequenceMap maps each sequence-carrying event to its sequence path. Events
// are visited in post-order and consume sequences in list order; any
// difference between the two counts is an error.
func (e *Experiment) SequenceMap() (map[string]string, error) {
	events := sequenceEvents(e.Tree, e.Outgroups)
	if len(events) != len(e.Sequences) {
		return nil, core.NewConfigError("experiment",
			"tree has %d sequence events but %d sequences were given", len(events), len(e.Sequences))
	}
	m := make(map[string]string, len(events))
	for i, ev := range events {
		if _, dup := m[ev]; dup {
			return nil, core.NewConfigError("experiment", "event %q appears more than once in the tree", ev)
		}
		m[ev] = e.Sequences[i]
	}
	return m, nil
}

// Sequence returns the sequence path of event.
func (e *Experiment) Sequence(event string) (string, bool) {
	m, err := e.SequenceMap()
	if err != nil {
		return "", false
	}
	s, ok := m[event]
	return s, ok
}

// UpdateTree replaces the tree and rebuilds the sequence list from seqMap in
// the new tree's post-order. A nil seqMap keeps the current mapping; a
// non-empty outgroups replaces the outgroup list. On error e is unchanged.
func (e *Experiment) UpdateTree(tree *Tree, seqMap map[string]string, outgroups []string) error {
	if seqMap == nil {
		current, err := e.SequenceMap()
		if err != nil {
			return err
		}
		seqMap = current
	}
	nextOutgroups := e.Outgroups
	if len(outgroups) > 0 {
		nextOutgroups = append([]string(nil), outgroups...)
	}

	var sequences []string
	for _, ev := range sequenceEvents(tree, nextOutgroups) {
		s, ok := seqMap[ev]
		if !ok {
			return core.NewConfigError("experiment", "no sequence for event %q", ev)
		}
		sequences = append(sequences, s)
	}
	e.Tree = tree
	e.Outgroups = nextOutgroups
	e.Sequences = sequences
	return nil
}

// Clone returns a deep copy of e.
func (e *Experiment) Clone() *Experiment {
	c := *e
	c.Tree = e.Tree.Clone()
	c.Sequences = append([]string(nil), e.Sequences...)
	c.Outgroups = append([]string(nil), e.Outgroups...)
	c.SequenceIDs = append([]string(nil), e.SequenceIDs...)
	if e.Database != nil {
		c.Database = e.Database.clone()
	}
	return &c
}

// Update applies fn to a copy of e, validates the result and returns it with
// the version incremented. e is never modified.
func (e *Experiment) Update(fn func(*Experiment) error) (*Experiment, error) {
	next := e.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.Version = e.Version + 1
	return next, nil
}

// ResolveConfigPath maps the default config aliases to files in rootDir.
func (e *Experiment) ResolveConfigPath(rootDir string) string {
	switch e.ConfigPath {
	case DefaultConfig:
		return filepath.Join(rootDir, "cactus_config.xml")
	case DefaultProgressiveConfig:
		return filepath.Join(rootDir, "cactus_progressive_config.xml")
	}
	return e.ConfigPath
}

// ReferenceNameFromConfig reads the reference event named by the workflow
// configuration file's <reference reference="..."/> element.
func (e *Experiment) ReferenceNameFromConfig(rootDir string) (string, error) {
	path := e.ResolveConfigPath(rootDir)
	f, err := os.Open(path)
	if err != nil {
		return "", &core.ConfigError{Source: path, Msg: "open workflow config", Err: err}
	}
	defer f.Close()

	var doc struct {
		Reference *struct {
			Reference string `xml:"reference,attr"`
		} `xml:"reference"`
	}
	if err := xml.NewDecoder(f).Decode(&doc); err != nil {
		return "", &core.ConfigError{Source: path, Msg: "parse workflow config", Err: err}
	}
	if doc.Reference == nil || doc.Reference.Reference == "" {
		return "", core.NewConfigError(path, "no reference element")
	}
	return doc.Reference.Reference, nil
}

type experimentXML struct {
	XMLName       xml.Name      `xml:"cactus_workflow_experiment"`
	SpeciesTree   *string       `xml:"species_tree,attr"`
	Sequences     *string       `xml:"sequences,attr"`
	Outgroups     string        `xml:"outgroup_events,attr,omitempty"`
	Config        string        `xml:"config,attr,omitempty"`
	ConfigID      string        `xml:"configID,attr,omitempty"`
	SequenceIDs   string        `xml:"sequenceIDs,attr,omitempty"`
	Constraints   string        `xml:"constraints,attr,omitempty"`
	ConstraintsID string        `xml:"constraintsID,attr,omitempty"`
	Version       int           `xml:"version,attr,omitempty"`
	Disk          *diskXML      `xml:"cactus_disk"`
	Reference     *referenceXML `xml:"reference"`
	Hal           *halXML       `xml:"hal"`
}

type diskXML struct {
	Conf *kvConfXML `xml:"st_kv_database_conf"`
}

type referenceXML struct {
	ID string `xml:"id,attr"`
}

type halXML struct {
	HalID   string `xml:"halID,attr,omitempty"`
	FastaID string `xml:"fastaID,attr,omitempty"`
}

// Load reads and validates the descriptor at path.
func Load(path string) (*Experiment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ConfigError{Source: path, Msg: "open experiment", Err: err}
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads and validates a descriptor. source names the input in errors.
func Parse(r io.Reader, source string) (*Experiment, error) {
	var doc experimentXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &core.ConfigError{Source: source, Msg: "parse experiment", Err: err}
	}
	if doc.SpeciesTree == nil {
		return nil, core.NewConfigError(source, "species_tree attribute is required")
	}
	if doc.Sequences == nil {
		return nil, core.NewConfigError(source, "sequences attribute is required")
	}

	tree, err := ParseNewick(*doc.SpeciesTree)
	if err != nil {
		return nil, &core.ConfigError{Source: source, Msg: "species_tree", Err: err}
	}
	if doc.Disk == nil {
		return nil, core.NewConfigError(source, "cactus_disk element is required")
	}
	db, err := decodeDatabase(doc.Disk.Conf)
	if err != nil {
		return nil, &core.ConfigError{Source: source, Msg: "cactus_disk", Err: err}
	}

	e := &Experiment{
		Version:       max(doc.Version, 1),
		Tree:          tree,
		Sequences:     strings.Fields(*doc.Sequences),
		Outgroups:     fields(doc.Outgroups),
		ConfigPath:    doc.Config,
		ConfigID:      doc.ConfigID,
		SequenceIDs:   fields(doc.SequenceIDs),
		Constraints:   doc.Constraints,
		ConstraintsID: doc.ConstraintsID,
		Database:      db,
	}
	if doc.Reference != nil {
		e.ReferenceID = doc.Reference.ID
	}
	if doc.Hal != nil {
		e.HalID = doc.Hal.HalID
		e.HalFastaID = doc.Hal.FastaID
	}

	if err := e.Validate(); err != nil {
		var ce *core.ConfigError
		if errors.As(err, &ce) {
			ce.Source = source
		}
		return nil, err
	}
	return e, nil
}

// fields splits a space-separated list attribute; an empty attribute is nil.
func fields(s string) []string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return nil
	}
	return f
}

// WriteTo writes e as indented XML.
func (e *Experiment) WriteTo(w io.Writer) (int64, error) {
	tree := e.Tree.String()
	seqs := strings.Join(e.Sequences, " ")
	doc := experimentXML{
		SpeciesTree:   &tree,
		Sequences:     &seqs,
		Outgroups:     strings.Join(e.Outgroups, " "),
		Config:        e.ConfigPath,
		ConfigID:      e.ConfigID,
		SequenceIDs:   strings.Join(e.SequenceIDs, " "),
		Constraints:   e.Constraints,
		ConstraintsID: e.ConstraintsID,
		Version:       e.Version,
		Disk:          &diskXML{Conf: encodeDatabase(e.Database)},
	}
	if e.ReferenceID != "" {
		doc.Reference = &referenceXML{ID: e.ReferenceID}
	}
	if e.HalID != "" || e.HalFastaID != "" {
		doc.Hal = &halXML{HalID: e.HalID, FastaID: e.HalFastaID}
	}

	data, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return 0, fmt.Errorf("encode experiment: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	data = append(data, '\n')
	n, err := w.Write(data)
	return int64(n), err
}

// Save writes e to path, replacing any existing file.
func (e *Experiment) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".")
	if err != nil {
		return err
	}
	if _, err := e.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
