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
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willnyarko/arksync/model"
)

func TestAggregatorCounters(t *testing.T) {
	agg := NewAggregator("test", false, 0, 3)

	agg.Add(0, model.Outcome{AgentURI: "/agents/people/1", Status: model.StatusSuccess, ArkAction: model.ArkAdded})
	agg.Add(1, model.Outcome{AgentURI: "/agents/people/2", Status: model.StatusSkipped, ArkAction: model.ArkAlreadyPresent})
	agg.Add(2, model.Outcome{AgentURI: "/agents/people/3", Status: model.StatusError, Message: "boom"})

	summary := agg.Summary()
	assert.Equal(t, 1, summary.ByStatus[model.StatusSuccess])
	assert.Equal(t, 1, summary.ByStatus[model.StatusSkipped])
	assert.Equal(t, 1, summary.ByStatus[model.StatusError])
	assert.Equal(t, 1, summary.ByArkAction[model.ArkAdded])
	assert.True(t, strings.HasPrefix(summary.RunID, "run_"))
	assert.Equal(t, 1, agg.ErrorCount())

	// Errored records stay out of the processed set so a resumed run
	// retries them.
	assert.Equal(t, []string{"/agents/people/1", "/agents/people/2"}, agg.ProcessedURIs())
}

func TestAggregatorSeedProcessedKeepsUnion(t *testing.T) {
	agg := NewAggregator("test", false, 2, 4)
	agg.SeedProcessed([]string{"/agents/people/1", "/agents/people/2"})

	// A re-encountered URI is not duplicated; new ones extend the set.
	agg.Add(2, model.Outcome{AgentURI: "/agents/people/2", Status: model.StatusSkipped})
	agg.Add(3, model.Outcome{AgentURI: "/agents/people/3", Status: model.StatusSuccess})

	assert.Equal(t,
		[]string{"/agents/people/1", "/agents/people/2", "/agents/people/3"},
		agg.ProcessedURIs())
}

func TestAggregatorDetailsAreOrdered(t *testing.T) {
	agg := NewAggregator("test", false, 0, 3)
	agg.Add(2, model.Outcome{AgentURI: "/agents/people/3", Status: model.StatusSuccess})
	agg.Add(0, model.Outcome{AgentURI: "/agents/people/1", Status: model.StatusSuccess})
	agg.Add(1, model.Outcome{AgentURI: "/agents/people/2", Status: model.StatusSuccess})

	details := agg.Details()
	require.Len(t, details, 3)
	assert.Equal(t, "/agents/people/1", details[0].AgentURI)
	assert.Equal(t, "/agents/people/2", details[1].AgentURI)
	assert.Equal(t, "/agents/people/3", details[2].AgentURI)
}

func TestWriteSummary(t *testing.T) {
	agg := NewAggregator("test", true, 0, 2)
	agg.Add(0, model.Outcome{
		AgentURI:       "/agents/people/1",
		AgentName:      "Doe, Jane",
		Status:         model.StatusSuccess,
		ArkAction:      model.ArkAdded,
		CompareVerdict: model.VerdictMismatch,
		CompareMessage: "SNAC ARK mismatch: Primary=a, Secondary=b",
	})
	agg.Add(1, model.Outcome{
		AgentURI:  "/agents/people/2",
		AgentName: "Roe, Richard",
		Status:    model.StatusError,
		Message:   "Failed to retrieve agent",
	})
	agg.Complete()

	dir := t.TempDir()
	path, err := agg.WriteSummary(dir)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(content)

	assert.Contains(t, report, "# Arksync Run Summary (test)")
	assert.Contains(t, report, "**Dry run:** true")
	assert.Contains(t, report, "| success | 1 |")
	assert.Contains(t, report, "| error | 1 |")
	assert.Contains(t, report, "## Errors")
	assert.Contains(t, report, "Failed to retrieve agent")
	assert.Contains(t, report, "## Mismatches")
	assert.Contains(t, report, "Primary=a, Secondary=b")
}

func TestWriteSummaryCapsErrorTable(t *testing.T) {
	agg := NewAggregator("test", false, 0, 30)
	for i := 0; i < 30; i++ {
		agg.Add(i, model.Outcome{
			AgentURI: fmt.Sprintf("/agents/people/%d", i+1),
			Status:   model.StatusError,
			Message:  "boom",
		})
	}
	agg.Complete()

	path, err := agg.WriteSummary(t.TempDir())
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(content)

	assert.Contains(t, report, "... and 10 more")
	assert.Equal(t, maxTableRows, strings.Count(report, "| boom |"))
}

func TestWriteResultsCSV(t *testing.T) {
	agg := NewAggregator("test", false, 0, 2)
	agg.Add(0, model.Outcome{AgentURI: "/agents/people/1", Status: model.StatusSuccess, ArkAction: model.ArkAdded})
	agg.Add(1, model.Outcome{AgentURI: "/agents/people/2", Status: model.StatusError, Message: "boom"})
	agg.Complete()

	path, err := agg.WriteResultsCSV(t.TempDir())
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "agent_uri", rows[0][0])
	assert.Equal(t, "/agents/people/1", rows[1][0])
	assert.Equal(t, "added", rows[1][4])
	assert.Equal(t, "boom", rows[2][7])
}
