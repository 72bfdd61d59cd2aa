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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/willnyarko/arksync/config"
)

// Arksync represents the CLI application, encapsulating the root Cobra command.
type Arksync struct {
	cmd *cobra.Command
}

// arksyncInstance holds the loaded configuration for the running command.
type arksyncInstance struct {
	cnf *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration before any command executes.
func preRun(app *arksyncInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			return err
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf
		return nil
	}
}

// NewCLI creates the command-line interface for the Arksync application.
func NewCLI() *Arksync {
	var configFile string
	a := &arksyncInstance{}

	var rootCmd = &cobra.Command{
		Use:   "arksync",
		Short: "Enrich ArchivesSpace agent records with SNAC ARK identifiers",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./arksync.json", "Configuration file for arksync")
	rootCmd.PersistentPreRunE = preRun(a, &configFile)

	rootCmd.AddCommand(updateCommands(a))
	rootCmd.AddCommand(verifyCommands(a))
	rootCmd.AddCommand(cacheCommands(a))

	return &Arksync{cmd: rootCmd}
}

// executeCLI runs the root command, handling any errors that occur during execution.
func (w Arksync) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
