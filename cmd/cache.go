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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/willnyarko/arksync"
	"github.com/willnyarko/arksync/config"
	"github.com/willnyarko/arksync/datasources"
)

// cacheCommands prefetches SNAC constellation summaries for offline
// comparison and audit.
func cacheCommands(b *arksyncInstance) *cobra.Command {
	var (
		environment string
		concurrency int
		sourceCSV   string
	)

	cmd := &cobra.Command{
		Use:   "warm-cache",
		Short: "Prefetch SNAC summaries for every ARK in the source spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sourceCSV == "" {
				sourceCSV = b.cnf.Paths.SourceCSV
			}

			rows, err := datasources.LoadInputRecords(sourceCSV)
			if err != nil {
				return err
			}

			orchestrator, err := arksync.NewArksync(environment, true)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			_, err = orchestrator.WarmSNACCache(ctx, rows, concurrency)
			return err
		},
	}

	cmd.Flags().StringVar(&environment, "environment", config.EnvTest, "Target environment (test or production)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent SNAC fetches (0 uses the configured worker count)")
	cmd.Flags().StringVar(&sourceCSV, "source", "", "Source spreadsheet path (overrides configuration)")

	return cmd
}
