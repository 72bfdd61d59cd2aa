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

import "time"

// Status is the terminal state of processing one input record.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusSkipped  Status = "skipped"
	StatusNoUpdate Status = "no_update"
	StatusError    Status = "error"
)

// ArkAction describes what happened to the SNAC identifier on the record.
type ArkAction string

const (
	ArkAdded          ArkAction = "added"
	ArkAlreadyPresent ArkAction = "already_present"
	ArkFailed         ArkAction = "failed"
)

// CompareVerdict classifies agreement between the primary record and its
// secondary cached snapshot.
type CompareVerdict string

const (
	VerdictMatch           CompareVerdict = "match"
	VerdictMismatch        CompareVerdict = "mismatch"
	VerdictPrimaryOnly     CompareVerdict = "primary_only"
	VerdictSecondaryOnly   CompareVerdict = "secondary_only"
	VerdictNeither         CompareVerdict = "neither"
	VerdictNoSecondaryData CompareVerdict = "no_secondary_data"
	VerdictCompareError    CompareVerdict = "comparison_error"
)

// Outcome is the immutable result of processing one input record. Exactly
// one Outcome is produced per record per run; the aggregator owns them for
// the run's lifetime.
type Outcome struct {
	AgentURI       string         `json:"agent_uri"`
	AgentName      string         `json:"agent_name"`
	SNACArk        string         `json:"snac_ark,omitempty"`
	Status         Status         `json:"status"`
	ArkAction      ArkAction      `json:"ark_action,omitempty"`
	CompareVerdict CompareVerdict `json:"compare_verdict,omitempty"`
	CompareMessage string         `json:"compare_message,omitempty"`
	Message        string         `json:"message"`
	CachePath      string         `json:"cache_path,omitempty"`
}

// RunSummary is the aggregate view of a run, derived by folding Outcomes.
type RunSummary struct {
	RunID       string                 `json:"run_id"`
	Environment string                 `json:"environment"`
	DryRun      bool                   `json:"dry_run"`
	StartIndex  int                    `json:"start_index"`
	Total       int                    `json:"total"`
	ByStatus    map[Status]int         `json:"by_status"`
	ByArkAction map[ArkAction]int      `json:"by_ark_action"`
	ByVerdict   map[CompareVerdict]int `json:"by_verdict"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// NewRunSummary initializes a summary with empty counters.
func NewRunSummary(runID, environment string, dryRun bool, startIndex int) *RunSummary {
	return &RunSummary{
		RunID:       runID,
		Environment: environment,
		DryRun:      dryRun,
		StartIndex:  startIndex,
		ByStatus:    map[Status]int{},
		ByArkAction: map[ArkAction]int{},
		ByVerdict:   map[CompareVerdict]int{},
		StartedAt:   time.Now(),
	}
}
