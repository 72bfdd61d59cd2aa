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

// Package cache stores record snapshots as one JSON file per identity.
// Snapshots written before mutation make later verification possible without
// re-querying the remote system.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Cache is the snapshot store used by the updater and the comparator.
type Cache interface {
	// Set serializes value under the sanitized key and returns the path of
	// the written file.
	Set(key string, value interface{}) (string, error)

	// Get decodes the snapshot stored under key into data. Returns
	// os.ErrNotExist (wrapped) when no snapshot exists.
	Get(key string, data interface{}) error

	// Exists reports whether a snapshot is present for key.
	Exists(key string) bool
}

// FileCache implements Cache on a flat directory of JSON files.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

// SanitizeKey converts an identity key (an agent URI or an ARK) into a safe
// filename: slashes and colons become underscores, matching the layout the
// comparator's secondary caches were built with.
func SanitizeKey(key string) string {
	key = strings.ReplaceAll(key, ":", "_")
	return strings.ReplaceAll(key, "/", "_")
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, SanitizeKey(key)+".json")
}

func (c *FileCache) Set(key string, value interface{}) (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot %s: %w", key, err)
	}
	p := c.path(key)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return p, nil
}

func (c *FileCache) Get(key string, data interface{}) error {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return nil
}

func (c *FileCache) Exists(key string) bool {
	_, err := os.Stat(c.path(key))
	return err == nil
}
