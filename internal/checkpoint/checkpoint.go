/*
Copyright 2025 Arksync Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package checkpoint persists run progress so an interrupted update can
// resume without reprocessing records. One checkpoint pair (JSON plus a
// human-readable twin) exists per environment name.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const timestampLayout = "20060102_150405"

// Checkpoint is the durable marker of the last fully completed input
// position. ProcessedURIs lets a resumed run skip records that reappear at a
// different offset after upstream filtering shifts the input.
type Checkpoint struct {
	LastProcessedIndex int      `json:"last_processed_index"`
	ProcessedRecords   int      `json:"processed_records"`
	Timestamp          string   `json:"timestamp"`
	ProcessedURIs      []string `json:"processed_uris,omitempty"`
}

// Store reads and writes checkpoints under a dedicated directory. A Store is
// single-writer per run; coordinating concurrent runs against the same
// environment is the operator's job.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) jsonPath(environment string) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint_%s.json", environment))
}

func (s *Store) textPath(environment string) string {
	return filepath.Join(s.dir, fmt.Sprintf("checkpoint_%s.txt", environment))
}

// Save persists the checkpoint atomically: the JSON is written to a temp
// file in the same directory, synced, then renamed over the previous
// checkpoint. A crash mid-write leaves the prior checkpoint intact.
func (s *Store) Save(environment string, lastIndex int, processedURIs []string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create checkpoint dir: %w", err)
	}

	cp := Checkpoint{
		LastProcessedIndex: lastIndex,
		ProcessedRecords:   lastIndex + 1,
		Timestamp:          time.Now().Format(timestampLayout),
		ProcessedURIs:      processedURIs,
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}

	target := s.jsonPath(environment)
	tmp, err := os.CreateTemp(s.dir, "checkpoint_*.tmp")
	if err != nil {
		return "", fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("replace checkpoint: %w", err)
	}

	// The text twin is a convenience for operators tailing a long run; it is
	// not read back, so a plain write is enough.
	human := fmt.Sprintf("Last processed index: %d\nProcessed records: %d\nTimestamp: %s\n",
		cp.LastProcessedIndex, cp.ProcessedRecords, cp.Timestamp)
	if err := os.WriteFile(s.textPath(environment), []byte(human), 0o644); err != nil {
		return "", fmt.Errorf("write checkpoint twin: %w", err)
	}

	return target, nil
}

// Load returns the last checkpoint for the environment, or (nil, nil) when
// none has ever been saved.
func (s *Store) Load(environment string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.jsonPath(environment))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}
