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

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/willnyarko/arksync"
	"github.com/willnyarko/arksync/config"
	"github.com/willnyarko/arksync/datasources"
	"github.com/willnyarko/arksync/model"
)

// updateCommands runs the batch update over the source spreadsheet.
func updateCommands(b *arksyncInstance) *cobra.Command {
	var (
		environment        string
		dryRun             bool
		errorOnly          bool
		autoResume         bool
		batchSize          int
		workers            int
		startIndex         int
		limit              int
		checkpointInterval int
		sourceCSV          string
		skipListCSV        string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Add SNAC ARKs to agent records from the source spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if environment != config.EnvTest && environment != config.EnvProduction {
				return fmt.Errorf("unknown environment %q, expected %q or %q",
					environment, config.EnvTest, config.EnvProduction)
			}

			if sourceCSV == "" {
				sourceCSV = b.cnf.Paths.SourceCSV
			}
			if skipListCSV == "" {
				skipListCSV = b.cnf.Paths.SkipListCSV
			}

			rows, err := datasources.LoadInputRecords(sourceCSV)
			if err != nil {
				return err
			}

			skip, err := datasources.LoadSkipList(skipListCSV)
			if err != nil {
				return err
			}
			rows = filterRows(rows, skip, errorOnly)

			orchestrator, err := arksync.NewArksync(environment, dryRun)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			agg, runErr := orchestrator.Run(ctx, rows, arksync.RunOptions{
				BatchSize:          batchSize,
				Workers:            workers,
				StartIndex:         startIndex,
				Limit:              limit,
				AutoResume:         autoResume,
				CheckpointInterval: checkpointInterval,
			})
			if agg != nil {
				writeReports(agg, b.cnf.Paths.ReportsDir)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&environment, "environment", config.EnvTest, "Target environment (test or production)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fetch, snapshot, and compare without submitting updates")
	cmd.Flags().BoolVar(&errorOnly, "error-only", false, "Only reprocess rows whose prior update status was error")
	cmd.Flags().BoolVar(&autoResume, "auto-resume", false, "Resume from the last checkpoint for this environment")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Records per batch (0 uses the configured default)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent workers per batch (0 uses the configured default)")
	cmd.Flags().IntVar(&startIndex, "start-index", 0, "Record index to start from")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records to process (0 means all)")
	cmd.Flags().IntVar(&checkpointInterval, "checkpoint-interval", 0, "Batches between checkpoints (0 uses the configured default)")
	cmd.Flags().StringVar(&sourceCSV, "source", "", "Source spreadsheet path (overrides configuration)")
	cmd.Flags().StringVar(&skipListCSV, "skip-list", "", "Skip list spreadsheet path (overrides configuration)")

	return cmd
}

// filterRows drops rows on the skip list and, in error-only mode, rows
// that did not previously fail. Filtering happens before indexing so
// checkpoint indices always refer to the filtered sequence.
func filterRows(rows []model.InputRecord, skip map[string]bool, errorOnly bool) []model.InputRecord {
	kept := make([]model.InputRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if skip[row.ResolveURI()] {
			skipped++
			continue
		}
		if errorOnly && row.PriorStatus != string(model.StatusError) {
			continue
		}
		kept = append(kept, row)
	}
	if skipped > 0 {
		logrus.Infof("Skip list excluded %d records", skipped)
	}
	if errorOnly {
		logrus.Infof("Error-only mode: %d records remain", len(kept))
	}
	return kept
}

func writeReports(agg *arksync.Aggregator, dir string) {
	if path, err := agg.WriteSummary(dir); err != nil {
		logrus.Errorf("Failed to write summary report: %v", err)
	} else {
		logrus.Infof("Summary report written to %s", path)
	}
	if path, err := agg.WriteResultsCSV(dir); err != nil {
		logrus.Errorf("Failed to write results CSV: %v", err)
	} else {
		logrus.Infof("Results CSV written to %s", path)
	}

	summary := agg.Summary()
	logrus.Infof("Run %s finished: %d success, %d skipped, %d no_update, %d error",
		summary.RunID,
		summary.ByStatus[model.StatusSuccess],
		summary.ByStatus[model.StatusSkipped],
		summary.ByStatus[model.StatusNoUpdate],
		summary.ByStatus[model.StatusError])
}
