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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willnyarko/arksync"
	"github.com/willnyarko/arksync/config"
)

// verifyCommands fetches a single agent record and prints its identifier
// entries, for spot-checking a record after an update.
func verifyCommands(b *arksyncInstance) *cobra.Command {
	var (
		environment string
		ark         string
	)

	cmd := &cobra.Command{
		Use:   "verify <agent-uri>",
		Short: "Fetch one agent record and print its record identifiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orchestrator, err := arksync.NewArksync(environment, true)
			if err != nil {
				return err
			}

			sessions := orchestrator.Sessions()
			if _, err := sessions.Authenticate(cmd.Context()); err != nil {
				return err
			}

			agent, err := sessions.FetchAgent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Agent: %s (%s)\n", agent.Title(), agent.URI())
			fmt.Printf("Lock version: %d\n", agent.LockVersion())

			identifiers := agent.Identifiers()
			if len(identifiers) == 0 {
				fmt.Println("No record identifiers present")
			} else {
				out, err := json.MarshalIndent(identifiers, "", "  ")
				if err != nil {
					return err
				}
				fmt.Printf("Record identifiers:\n%s\n", out)
			}

			if ark != "" {
				fmt.Printf("Has ARK %s: %t\n", ark, agent.HasArk(ark))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&environment, "environment", config.EnvTest, "Target environment (test or production)")
	cmd.Flags().StringVar(&ark, "ark", "", "SNAC ARK to check for on the record")

	return cmd
}
