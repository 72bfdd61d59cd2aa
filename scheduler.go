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
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/willnyarko/arksync/internal/notification"
	"github.com/willnyarko/arksync/model"
)

// RunState tracks where a run is in its lifecycle.
type RunState string

const (
	StateInit          RunState = "INIT"
	StateRunning       RunState = "RUNNING"
	StateCheckpointing RunState = "CHECKPOINTING"
	StateDone          RunState = "DONE"
	StateAborted       RunState = "ABORTED"
)

// RunOptions controls a single run. Zero values fall back to the
// configured defaults.
type RunOptions struct {
	BatchSize          int
	Workers            int
	StartIndex         int
	Limit              int
	AutoResume         bool
	CheckpointInterval int
	RefreshInterval    int
}

type indexedRow struct {
	index int
	row   model.InputRecord
}

func (o *RunOptions) applyDefaults(cnf runDefaults) {
	if o.BatchSize <= 0 {
		o.BatchSize = cnf.BatchSize
	}
	if o.Workers <= 0 {
		o.Workers = cnf.Workers
	}
	if o.CheckpointInterval <= 0 {
		o.CheckpointInterval = cnf.CheckpointInterval
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = cnf.RefreshInterval
	}
}

type runDefaults struct {
	BatchSize          int
	Workers            int
	CheckpointInterval int
	RefreshInterval    int
}

// Run drives the full batch lifecycle over rows: resume from the last
// checkpoint, process records in fixed-size batches with a worker pool,
// checkpoint on a fixed cadence, and refresh the session periodically on
// live runs. No record from batch i+1 starts before every record of batch
// i has finished. Per-record failures are folded into the aggregator and
// never abort the run; only a failed session refresh or cancellation does,
// and even then the checkpoint is flushed first so the run can resume.
func (a *Arksync) Run(ctx context.Context, rows []model.InputRecord, opts RunOptions) (*Aggregator, error) {
	opts.applyDefaults(runDefaults{
		BatchSize:          a.cnf.Run.BatchSize,
		Workers:            a.cnf.Run.Workers,
		CheckpointInterval: a.cnf.Run.CheckpointInterval,
		RefreshInterval:    a.cnf.Run.RefreshInterval,
	})

	state := StateInit
	logrus.Infof("Run state: %s", state)

	startIndex := opts.StartIndex
	processedURIs := make(map[string]bool)
	var resumedURIs []string
	if opts.AutoResume {
		cp, err := a.checkpoints.Load(a.environment)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load checkpoint")
		}
		if cp != nil {
			startIndex = cp.LastProcessedIndex + 1
			resumedURIs = cp.ProcessedURIs
			for _, uri := range resumedURIs {
				processedURIs[uri] = true
			}
			logrus.Infof("Resuming from checkpoint: %d records processed, continuing at index %d",
				cp.ProcessedRecords, startIndex)
		}
	}

	agg := NewAggregator(a.environment, a.dryRun, startIndex, len(rows))
	// Carry the resumed set into the aggregator so saved checkpoints hold the
	// union of all runs, not just this one's records.
	agg.SeedProcessed(resumedURIs)
	if startIndex >= len(rows) {
		logrus.Infof("Start index %d is beyond the last record (%d), nothing to do", startIndex, len(rows)-1)
		agg.Complete()
		return agg, nil
	}
	if startIndex < 0 {
		return nil, errors.Errorf("start index %d is negative", startIndex)
	}

	endIndex := len(rows)
	if opts.Limit > 0 && startIndex+opts.Limit < endIndex {
		endIndex = startIndex + opts.Limit
	}

	abort := func(cause error) (*Aggregator, error) {
		state = StateAborted
		logrus.Errorf("Run state: %s (%v)", state, cause)
		// Flush only when a batch completed this run; an abort before the
		// first batch has nothing new to record, and saving would overwrite
		// the previous run's checkpoint with an empty one.
		if agg.LastIndex() >= startIndex {
			if _, err := a.checkpoints.Save(a.environment, agg.LastIndex(), agg.ProcessedURIs()); err != nil {
				logrus.Errorf("Failed to flush checkpoint while aborting: %v", err)
			}
		}
		agg.Complete()
		notification.NotifyError(cause)
		return agg, cause
	}

	if _, err := a.sessions.Authenticate(ctx); err != nil {
		return abort(errors.Wrap(err, "initial authentication failed"))
	}

	state = StateRunning
	logrus.Infof("Run state: %s", state)
	logrus.Infof("Processing records %d through %d in batches of %d with %d workers",
		startIndex, endIndex-1, opts.BatchSize, opts.Workers)

	batchNumber := 0
	for batchStart := startIndex; batchStart < endIndex; batchStart += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return abort(errors.Wrap(err, "run cancelled"))
		}

		batchEnd := batchStart + opts.BatchSize
		if batchEnd > endIndex {
			batchEnd = endIndex
		}

		batch := make([]indexedRow, 0, batchEnd-batchStart)
		for i := batchStart; i < batchEnd; i++ {
			uri := rows[i].ResolveURI()
			if uri != "" && processedURIs[uri] {
				agg.Add(i, model.Outcome{
					AgentURI:  uri,
					AgentName: rows[i].AgentName,
					SNACArk:   rows[i].SNACArk,
					Status:    model.StatusSkipped,
					Message:   "Already processed in a previous run",
				})
				continue
			}
			batch = append(batch, indexedRow{index: i, row: rows[i]})
		}

		if len(batch) > 0 {
			a.runBatch(ctx, batch, opts.Workers, agg)
		}
		agg.SetLastIndex(batchEnd - 1)
		batchNumber++

		if batchNumber%opts.CheckpointInterval == 0 {
			state = StateCheckpointing
			path, err := a.checkpoints.Save(a.environment, agg.LastIndex(), agg.ProcessedURIs())
			if err != nil {
				logrus.Errorf("Failed to save checkpoint: %v", err)
			} else {
				logrus.Infof("Checkpoint saved to %s (last index %d)", path, agg.LastIndex())
			}
			state = StateRunning
		}

		if !a.dryRun && batchNumber%opts.RefreshInterval == 0 && batchEnd < endIndex {
			if err := a.sessions.Refresh(ctx); err != nil {
				return abort(errors.Wrap(err, "session refresh failed"))
			}
		}
	}

	state = StateCheckpointing
	logrus.Infof("Run state: %s", state)
	if path, err := a.checkpoints.Save(a.environment, agg.LastIndex(), agg.ProcessedURIs()); err != nil {
		logrus.Errorf("Failed to save final checkpoint: %v", err)
	} else {
		logrus.Infof("Final checkpoint saved to %s", path)
	}

	agg.Complete()
	state = StateDone
	logrus.Infof("Run state: %s", state)
	return agg, nil
}

// runBatch fans one batch out over a worker pool and waits for every
// record to finish before returning.
func (a *Arksync) runBatch(ctx context.Context, batch []indexedRow, workers int, agg *Aggregator) {
	jobs := make(chan indexedRow, len(batch))
	results := make(chan struct {
		index   int
		outcome model.Outcome
	}, len(batch))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if err := a.limiter.Wait(ctx); err != nil {
					results <- struct {
						index   int
						outcome model.Outcome
					}{job.index, model.Outcome{
						AgentURI:  job.row.ResolveURI(),
						AgentName: job.row.AgentName,
						SNACArk:   job.row.SNACArk,
						Status:    model.StatusError,
						Message:   "Run cancelled before record was processed",
					}}
					continue
				}
				results <- struct {
					index   int
					outcome model.Outcome
				}{job.index, a.ProcessAgent(ctx, job.row)}
			}
		}()
	}

	for _, job := range batch {
		jobs <- job
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		agg.Add(res.index, res.outcome)
	}
}
