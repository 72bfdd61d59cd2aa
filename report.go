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
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wacul/ptr"

	"github.com/willnyarko/arksync/model"
)

// maxTableRows bounds the error and mismatch tables in the markdown
// summary so a bad run stays readable.
const maxTableRows = 20

type indexedOutcome struct {
	Index   int
	Outcome model.Outcome
}

// Aggregator folds per-record Outcomes into a RunSummary. It is safe for
// concurrent use by the worker pool.
type Aggregator struct {
	mu            sync.Mutex
	summary       *model.RunSummary
	details       []indexedOutcome
	processedURIs []string
	processedSet  map[string]bool
	lastIndex     int
}

// NewAggregator starts a run summary with a fresh run id.
func NewAggregator(environment string, dryRun bool, startIndex, total int) *Aggregator {
	summary := model.NewRunSummary("run_"+uuid.New().String(), environment, dryRun, startIndex)
	summary.Total = total
	return &Aggregator{
		summary:      summary,
		processedSet: map[string]bool{},
		lastIndex:    startIndex - 1,
	}
}

// SeedProcessed pre-populates the processed set with URIs completed by
// earlier runs, so every checkpoint this run saves carries the union across
// runs, not just this run's records.
func (g *Aggregator) SeedProcessed(uris []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, uri := range uris {
		g.markProcessed(uri)
	}
}

func (g *Aggregator) markProcessed(uri string) {
	if uri == "" || g.processedSet[uri] {
		return
	}
	g.processedSet[uri] = true
	g.processedURIs = append(g.processedURIs, uri)
}

// Add records one outcome. Records that reached a terminal state other
// than error are remembered as processed so a resumed run skips them;
// errored records stay eligible for a retry on the next run.
func (g *Aggregator) Add(index int, outcome model.Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.details = append(g.details, indexedOutcome{Index: index, Outcome: outcome})
	g.summary.ByStatus[outcome.Status]++
	if outcome.ArkAction != "" {
		g.summary.ByArkAction[outcome.ArkAction]++
	}
	if outcome.CompareVerdict != "" {
		g.summary.ByVerdict[outcome.CompareVerdict]++
	}
	if outcome.Status != model.StatusError {
		g.markProcessed(outcome.AgentURI)
	}
}

// SetLastIndex advances the high-water mark after a batch completes.
func (g *Aggregator) SetLastIndex(index int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if index > g.lastIndex {
		g.lastIndex = index
	}
}

// LastIndex returns the index of the last record in a completed batch.
func (g *Aggregator) LastIndex() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastIndex
}

// ProcessedURIs returns a copy of the processed set for checkpointing.
func (g *Aggregator) ProcessedURIs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	uris := make([]string, len(g.processedURIs))
	copy(uris, g.processedURIs)
	return uris
}

// Complete stamps the summary's completion time.
func (g *Aggregator) Complete() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.summary.CompletedAt = ptr.Time(time.Now())
}

// Summary returns a snapshot of the current counters.
func (g *Aggregator) Summary() model.RunSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	snapshot := *g.summary
	snapshot.ByStatus = copyCounter(g.summary.ByStatus)
	snapshot.ByArkAction = copyCounter(g.summary.ByArkAction)
	snapshot.ByVerdict = copyCounter(g.summary.ByVerdict)
	return snapshot
}

// Details returns all outcomes in input order.
func (g *Aggregator) Details() []model.Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	sorted := make([]indexedOutcome, len(g.details))
	copy(sorted, g.details)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	outcomes := make([]model.Outcome, len(sorted))
	for i, d := range sorted {
		outcomes[i] = d.Outcome
	}
	return outcomes
}

// ErrorCount returns the number of records that ended in error.
func (g *Aggregator) ErrorCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.summary.ByStatus[model.StatusError]
}

func copyCounter[K comparable](m map[K]int) map[K]int {
	out := make(map[K]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// WriteSummary renders the run as a markdown report under dir and returns
// the file path. Error and mismatch tables are capped at maxTableRows.
func (g *Aggregator) WriteSummary(dir string) (string, error) {
	summary := g.Summary()
	details := g.Details()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Arksync Run Summary (%s)\n\n", summary.Environment))
	b.WriteString(fmt.Sprintf("- **Run ID:** %s\n", summary.RunID))
	b.WriteString(fmt.Sprintf("- **Dry run:** %t\n", summary.DryRun))
	b.WriteString(fmt.Sprintf("- **Start index:** %d\n", summary.StartIndex))
	b.WriteString(fmt.Sprintf("- **Total records:** %d\n", summary.Total))
	b.WriteString(fmt.Sprintf("- **Started:** %s\n", summary.StartedAt.Format(time.RFC3339)))
	if summary.CompletedAt != nil {
		b.WriteString(fmt.Sprintf("- **Completed:** %s\n", summary.CompletedAt.Format(time.RFC3339)))
	}

	processed := len(details)
	b.WriteString("\n## Results by status\n\n| Status | Count | Percent |\n|---|---|---|\n")
	for _, status := range []model.Status{model.StatusSuccess, model.StatusSkipped, model.StatusNoUpdate, model.StatusError} {
		count := summary.ByStatus[status]
		pct := 0.0
		if processed > 0 {
			pct = float64(count) / float64(processed) * 100
		}
		b.WriteString(fmt.Sprintf("| %s | %d | %.1f%% |\n", status, count, pct))
	}

	if len(summary.ByArkAction) > 0 {
		b.WriteString("\n## Identifier actions\n\n| Action | Count |\n|---|---|\n")
		for _, action := range []model.ArkAction{model.ArkAdded, model.ArkAlreadyPresent, model.ArkFailed} {
			if count := summary.ByArkAction[action]; count > 0 {
				b.WriteString(fmt.Sprintf("| %s | %d |\n", action, count))
			}
		}
	}

	if len(summary.ByVerdict) > 0 {
		b.WriteString("\n## Comparison verdicts\n\n| Verdict | Count |\n|---|---|\n")
		verdicts := make([]string, 0, len(summary.ByVerdict))
		for v := range summary.ByVerdict {
			verdicts = append(verdicts, string(v))
		}
		sort.Strings(verdicts)
		for _, v := range verdicts {
			b.WriteString(fmt.Sprintf("| %s | %d |\n", v, summary.ByVerdict[model.CompareVerdict(v)]))
		}
	}

	writeOutcomeTable(&b, "Errors", details, func(o model.Outcome) (bool, string) {
		return o.Status == model.StatusError, o.Message
	})
	writeOutcomeTable(&b, "Mismatches", details, func(o model.Outcome) (bool, string) {
		return o.CompareVerdict == model.VerdictMismatch, o.CompareMessage
	})

	path := filepath.Join(dir, fmt.Sprintf("summary_%s_%s.md", summary.Environment, summary.StartedAt.Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func writeOutcomeTable(b *strings.Builder, title string, details []model.Outcome, match func(model.Outcome) (bool, string)) {
	var rows []model.Outcome
	var messages []string
	for _, o := range details {
		if ok, msg := match(o); ok {
			rows = append(rows, o)
			messages = append(messages, msg)
		}
	}
	if len(rows) == 0 {
		return
	}

	b.WriteString(fmt.Sprintf("\n## %s\n\n| Agent URI | Name | Detail |\n|---|---|---|\n", title))
	shown := len(rows)
	if shown > maxTableRows {
		shown = maxTableRows
	}
	for i := 0; i < shown; i++ {
		b.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			rows[i].AgentURI, rows[i].AgentName, strings.ReplaceAll(messages[i], "|", "\\|")))
	}
	if len(rows) > maxTableRows {
		b.WriteString(fmt.Sprintf("\n... and %d more\n", len(rows)-maxTableRows))
	}
}

// WriteResultsCSV writes one row per outcome under dir and returns the
// file path.
func (g *Aggregator) WriteResultsCSV(dir string) (string, error) {
	summary := g.Summary()
	details := g.Details()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("results_%s_%s.csv", summary.Environment, summary.StartedAt.Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"agent_uri", "agent_name", "snac_ark", "status", "ark_action", "compare_verdict", "compare_message", "message", "cache_path"}); err != nil {
		return "", err
	}
	for _, o := range details {
		if err := w.Write([]string{
			o.AgentURI, o.AgentName, o.SNACArk,
			string(o.Status), string(o.ArkAction), string(o.CompareVerdict),
			o.CompareMessage, o.Message, o.CachePath,
		}); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}
