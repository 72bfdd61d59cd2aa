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

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SourceSNAC is the identifier source value that marks a SNAC ARK entry
// inside an ArchivesSpace agent record.
const SourceSNAC = "snac"

// identifierModelType is the jsonmodel_type ArchivesSpace expects on every
// agent_record_identifier entry.
const identifierModelType = "agent_record_identifier"

// RecordIdentifier is a single entry in an agent record's
// agent_record_identifiers array.
type RecordIdentifier struct {
	PrimaryIdentifier bool   `json:"primary_identifier"`
	RecordIdentifier  string `json:"record_identifier"`
	Source            string `json:"source"`
	JSONModelType     string `json:"jsonmodel_type"`
}

// AgentRecord is a mutable ArchivesSpace agent document. The full JSON body
// is retained as-is so fields this tool does not model survive a
// fetch-modify-submit round trip unchanged.
type AgentRecord struct {
	body map[string]interface{}
}

// NewAgentRecord builds an empty agent record. Used by tests and by callers
// that construct records from scratch.
func NewAgentRecord() *AgentRecord {
	return &AgentRecord{body: map[string]interface{}{}}
}

// UnmarshalJSON decodes the raw agent document, keeping every field.
func (a *AgentRecord) UnmarshalJSON(data []byte) error {
	body := map[string]interface{}{}
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	a.body = body
	return nil
}

// MarshalJSON re-encodes the full agent document, including fields that were
// never touched.
func (a *AgentRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.body)
}

// URI returns the record's own uri field, or "" if absent.
func (a *AgentRecord) URI() string {
	uri, _ := a.body["uri"].(string)
	return uri
}

// Title returns the display title of the agent, or "" if absent.
func (a *AgentRecord) Title() string {
	title, _ := a.body["title"].(string)
	return title
}

// LockVersion returns the optimistic-lock version ArchivesSpace stamped on
// the record. Returns -1 when the field is missing or not numeric.
func (a *AgentRecord) LockVersion() int {
	v, ok := a.body["lock_version"].(float64)
	if !ok {
		return -1
	}
	return int(v)
}

// Identifiers decodes the agent_record_identifiers array. A missing array is
// an empty slice, never an error.
func (a *AgentRecord) Identifiers() []RecordIdentifier {
	raw, ok := a.body["agent_record_identifiers"].([]interface{})
	if !ok {
		return nil
	}
	ids := make([]RecordIdentifier, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		id := RecordIdentifier{}
		id.PrimaryIdentifier, _ = m["primary_identifier"].(bool)
		id.RecordIdentifier, _ = m["record_identifier"].(string)
		id.Source, _ = m["source"].(string)
		id.JSONModelType, _ = m["jsonmodel_type"].(string)
		ids = append(ids, id)
	}
	return ids
}

// HasArk reports whether the record already carries the given SNAC ARK.
// A record "has" the ARK when any identifier entry uses the snac source, or
// when an entry's value is exactly equal to the ARK. Exact equality is used
// deliberately; substring checks would treat ark:/99166/w61 as present in a
// record holding ark:/99166/w612.
func (a *AgentRecord) HasArk(ark string) bool {
	for _, id := range a.Identifiers() {
		if id.Source == SourceSNAC {
			return true
		}
		if id.RecordIdentifier == ark {
			return true
		}
	}
	return false
}

// CanonicalArk returns the value of the first snac-source identifier on the
// record, and whether one exists.
func (a *AgentRecord) CanonicalArk() (string, bool) {
	for _, id := range a.Identifiers() {
		if id.Source == SourceSNAC {
			return id.RecordIdentifier, true
		}
	}
	return "", false
}

// AddArk appends a new snac identifier entry for the given ARK. It is the
// caller's job to check HasArk first; AddArk itself refuses to duplicate so
// applying the mutation twice leaves the record unchanged.
func (a *AgentRecord) AddArk(ark string) bool {
	if a.HasArk(ark) {
		return false
	}
	entry := map[string]interface{}{
		"primary_identifier": false,
		"record_identifier":  ark,
		"source":             SourceSNAC,
		"jsonmodel_type":     identifierModelType,
	}
	existing, _ := a.body["agent_record_identifiers"].([]interface{})
	a.body["agent_record_identifiers"] = append(existing, entry)
	return true
}

// Clone deep-copies the record via a JSON round trip. Used to keep a
// pre-mutation snapshot while the working copy is modified.
func (a *AgentRecord) Clone() (*AgentRecord, error) {
	data, err := json.Marshal(a.body)
	if err != nil {
		return nil, fmt.Errorf("clone agent record: %w", err)
	}
	clone := &AgentRecord{}
	if err := json.Unmarshal(data, clone); err != nil {
		return nil, fmt.Errorf("clone agent record: %w", err)
	}
	return clone, nil
}

// InputRecord is one row of the master spreadsheet: the agent to update and
// the ARK to write into it. Immutable for the duration of a run.
type InputRecord struct {
	AgentURI    string // primary identity key
	FallbackURI string // secondary identity key, used when AgentURI is blank
	AgentName   string
	SNACArk     string
	PriorStatus string // update_status carried over from an earlier run, if any
}

// ResolveURI picks the identity key for the row, preferring the primary
// field. The empty string means neither resolved.
func (r InputRecord) ResolveURI() string {
	if uri := strings.TrimSpace(r.AgentURI); uri != "" {
		return uri
	}
	return strings.TrimSpace(r.FallbackURI)
}
