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

package arksync

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/willnyarko/arksync/internal/apierror"
	"github.com/willnyarko/arksync/model"
)

// cleanAgentURI normalizes a spreadsheet URI into the path ArchivesSpace
// expects: whitespace trimmed, any pasted-in base address stripped, leading
// slash guaranteed.
func cleanAgentURI(uri, baseURL string) string {
	uri = strings.TrimSpace(uri)
	if baseURL != "" {
		uri = strings.TrimPrefix(uri, baseURL)
	}
	if !strings.HasPrefix(uri, "/") {
		uri = "/" + uri
	}
	return uri
}

// ProcessAgent processes one input row end to end: resolve the identity
// key, fetch the record, snapshot it, compare against the secondary cache,
// and check-then-add the SNAC ARK. Every failure is captured in the returned
// Outcome; nothing escapes to abort the batch. The mutation is idempotent:
// a record that already carries the ARK is never submitted again.
func (a *Arksync) ProcessAgent(ctx context.Context, row model.InputRecord) model.Outcome {
	outcome := model.Outcome{
		AgentName: row.AgentName,
		SNACArk:   strings.TrimSpace(row.SNACArk),
	}

	uri := row.ResolveURI()
	if uri == "" {
		outcome.Status = model.StatusError
		outcome.Message = apierror.NewAPIError(apierror.ErrMissingKey, "No valid agent URI found", nil).Error()
		return outcome
	}
	uri = cleanAgentURI(uri, a.sessions.BaseURL())
	outcome.AgentURI = uri

	if outcome.SNACArk == "" {
		outcome.Status = model.StatusError
		outcome.Message = apierror.NewAPIError(apierror.ErrMissingValue, "No SNAC ARK found", nil).Error()
		return outcome
	}

	var agent *model.AgentRecord
	err := a.fetchPolicy.Do(ctx, "fetch "+uri, func() error {
		var fetchErr error
		agent, fetchErr = a.sessions.FetchAgent(ctx, uri)
		return fetchErr
	})
	if err != nil {
		outcome.Status = model.StatusError
		outcome.Message = fmt.Sprintf("Failed to retrieve agent: %v", err)
		return outcome
	}

	// Snapshot the pre-mutation record regardless of what happens next, so
	// later verification never needs to re-query the remote system.
	cachePath, err := a.primaryCache.Set(uri, agent)
	if err != nil {
		logrus.Warnf("Failed to cache snapshot for %s: %v", uri, err)
	}
	outcome.CachePath = cachePath

	outcome.CompareVerdict, outcome.CompareMessage = a.comparator.Compare(uri, agent)

	if agent.HasArk(outcome.SNACArk) {
		outcome.Status = model.StatusSkipped
		outcome.ArkAction = model.ArkAlreadyPresent
		outcome.Message = "SNAC ARK already exists"
		return outcome
	}

	if a.dryRun {
		outcome.Status = model.StatusNoUpdate
		outcome.ArkAction = model.ArkAdded
		outcome.Message = "Dry run: SNAC ARK would be added"
		return outcome
	}

	agent.AddArk(outcome.SNACArk)

	// The record's own uri field wins over the spreadsheet's when they
	// disagree; it is what the server will accept a POST against.
	if recordURI := agent.URI(); recordURI != "" {
		uri = recordURI
		outcome.AgentURI = uri
	}

	var lockVersion int
	err = a.submitPolicy.Do(ctx, "submit "+uri, func() error {
		var submitErr error
		lockVersion, submitErr = a.sessions.SubmitAgent(ctx, uri, agent)
		return submitErr
	})
	if err != nil {
		outcome.Status = model.StatusError
		outcome.ArkAction = model.ArkFailed
		outcome.Message = fmt.Sprintf("Failed to update record: %v", err)
		return outcome
	}

	if updatedPath, err := a.primaryCache.Set(uri+"_updated", agent); err != nil {
		logrus.Warnf("Failed to cache updated snapshot for %s: %v", uri, err)
	} else {
		outcome.CachePath = updatedPath
	}

	outcome.Status = model.StatusSuccess
	outcome.ArkAction = model.ArkAdded
	if lockVersion >= 0 {
		outcome.Message = fmt.Sprintf("SNAC ARK added, lock_version %d", lockVersion)
	} else {
		outcome.Message = "SNAC ARK added"
	}
	return outcome
}
