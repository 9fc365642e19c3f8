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

package experiment

import (
	"fmt"
	"strconv"
	"strings"
)

// Database type names as they appear in the descriptor.
const (
	TypeTokyoCabinet = "tokyo_cabinet"
	TypeKyotoTycoon  = "kyoto_tycoon"
)

// DatabaseConfig is the key-value store an experiment's alignment is written
// to. It is implemented only by EmbeddedStore and NetworkedStore.
type DatabaseConfig interface {
	// Type returns the descriptor's type name for the store.
	Type() string
	// Dir returns the database directory.
	Dir() string
	Validate() error
	clone() DatabaseConfig
}

// EmbeddedStore is a file-backed store living in a single directory.
type EmbeddedStore struct {
	DatabaseDir string
}

func (s *EmbeddedStore) Type() string { return TypeTokyoCabinet }
func (s *EmbeddedStore) Dir() string  { return s.DatabaseDir }

func (s *EmbeddedStore) Validate() error {
	if s.DatabaseDir == "" {
		return fmt.Errorf("%s: database_dir is required", TypeTokyoCabinet)
	}
	return nil
}

func (s *EmbeddedStore) clone() DatabaseConfig {
	c := *s
	return &c
}

// NetworkedStore is a store served over the network.
type NetworkedStore struct {
	Host                string
	Port                int
	DatabaseDir         string
	ServerOptions       string
	TuningOptions       string
	CreateTuningOptions string
	ReadTuningOptions   string
	InMemory            bool
	// Snapshot overrides the snapshot setting; when nil it follows InMemory.
	Snapshot *bool
}

func (s *NetworkedStore) Type() string { return TypeKyotoTycoon }
func (s *NetworkedStore) Dir() string  { return s.DatabaseDir }

// SnapshotEnabled reports whether the server should snapshot its contents.
func (s *NetworkedStore) SnapshotEnabled() bool {
	if s.Snapshot != nil {
		return *s.Snapshot
	}
	return s.InMemory
}

// SetSnapshot sets an explicit snapshot value.
func (s *NetworkedStore) SetSnapshot(v bool) {
	s.Snapshot = &v
}

func (s *NetworkedStore) Validate() error {
	var missing []string
	if s.Host == "" {
		missing = append(missing, "host")
	}
	if s.Port <= 0 || s.Port > 65535 {
		missing = append(missing, "port")
	}
	if s.DatabaseDir == "" {
		missing = append(missing, "database_dir")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing or invalid %s", TypeKyotoTycoon, strings.Join(missing, ", "))
	}
	return nil
}

func (s *NetworkedStore) clone() DatabaseConfig {
	c := *s
	if s.Snapshot != nil {
		v := *s.Snapshot
		c.Snapshot = &v
	}
	return &c
}

// kvConfXML is the st_kv_database_conf element.
type kvConfXML struct {
	Type         string    `xml:"type,attr"`
	TokyoCabinet *tokyoXML `xml:"tokyo_cabinet"`
	KyotoTycoon  *kyotoXML `xml:"kyoto_tycoon"`
}

type tokyoXML struct {
	DatabaseDir *string `xml:"database_dir,attr"`
}

type kyotoXML struct {
	Host                *string `xml:"host,attr"`
	Port                *string `xml:"port,attr"`
	DatabaseDir         *string `xml:"database_dir,attr"`
	ServerOptions       string  `xml:"server_options,attr,omitempty"`
	TuningOptions       string  `xml:"tuning_options,attr,omitempty"`
	CreateTuningOptions string  `xml:"create_tuning_options,attr,omitempty"`
	ReadTuningOptions   string  `xml:"read_tuning_options,attr,omitempty"`
	InMemory            string  `xml:"in_memory,attr,omitempty"`
	Snapshot            string  `xml:"snapshot,attr,omitempty"`
}

func decodeDatabase(conf *kvConfXML) (DatabaseConfig, error) {
	if conf == nil {
		return nil, fmt.Errorf("st_kv_database_conf element is missing")
	}
	switch conf.Type {
	case TypeTokyoCabinet:
		if conf.TokyoCabinet == nil {
			return nil, fmt.Errorf("database conf is of type %s but has no nested %s element", conf.Type, conf.Type)
		}
		if conf.TokyoCabinet.DatabaseDir == nil {
			return nil, fmt.Errorf("%s element has no database_dir attribute", conf.Type)
		}
		return &EmbeddedStore{DatabaseDir: *conf.TokyoCabinet.DatabaseDir}, nil

	case TypeKyotoTycoon:
		kt := conf.KyotoTycoon
		if kt == nil {
			return nil, fmt.Errorf("database conf is of type %s but has no nested %s element", conf.Type, conf.Type)
		}
		if kt.Host == nil || kt.Port == nil || kt.DatabaseDir == nil {
			return nil, fmt.Errorf("%s element is missing host, port or database_dir", conf.Type)
		}
		port, err := strconv.Atoi(strings.TrimSpace(*kt.Port))
		if err != nil {
			return nil, fmt.Errorf("%s port: %w", conf.Type, err)
		}
		store := &NetworkedStore{
			Host:                *kt.Host,
			Port:                port,
			DatabaseDir:         *kt.DatabaseDir,
			ServerOptions:       kt.ServerOptions,
			TuningOptions:       kt.TuningOptions,
			CreateTuningOptions: kt.CreateTuningOptions,
			ReadTuningOptions:   kt.ReadTuningOptions,
			InMemory:            xmlFlag(kt.InMemory),
		}
		if kt.Snapshot != "" {
			store.SetSnapshot(xmlFlag(kt.Snapshot))
		}
		return store, nil

	case "":
		return nil, fmt.Errorf("database conf has no type attribute")
	default:
		return nil, fmt.Errorf("unrecognised database type %q", conf.Type)
	}
}

func encodeDatabase(db DatabaseConfig) *kvConfXML {
	switch s := db.(type) {
	case *EmbeddedStore:
		dir := s.DatabaseDir
		return &kvConfXML{Type: TypeTokyoCabinet, TokyoCabinet: &tokyoXML{DatabaseDir: &dir}}
	case *NetworkedStore:
		host, port, dir := s.Host, strconv.Itoa(s.Port), s.DatabaseDir
		kt := &kyotoXML{
			Host:                &host,
			Port:                &port,
			DatabaseDir:         &dir,
			ServerOptions:       s.ServerOptions,
			TuningOptions:       s.TuningOptions,
			CreateTuningOptions: s.CreateTuningOptions,
			ReadTuningOptions:   s.ReadTuningOptions,
		}
		if s.InMemory {
			kt.InMemory = "1"
		}
		if s.Snapshot != nil {
			kt.Snapshot = boolDigit(*s.Snapshot)
		}
		return &kvConfXML{Type: TypeKyotoTycoon, KyotoTycoon: kt}
	}
	return nil
}

// xmlFlag reads "1" or any casing of "true" as set.
func xmlFlag(v string) bool {
	v = strings.TrimSpace(v)
	return v == "1" || strings.EqualFold(v, "true")
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
