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

// Package arksync drives bulk enrichment of ArchivesSpace agent records with
// SNAC ARK identifiers: a single-process, resumable batch orchestrator with
// retrying remote calls, periodic checkpoints, bounded per-batch workers,
// and verification against secondary cached snapshots.
package arksync

import (
	"golang.org/x/time/rate"

	"github.com/willnyarko/arksync/config"
	"github.com/willnyarko/arksync/internal/cache"
	"github.com/willnyarko/arksync/internal/checkpoint"
	"github.com/willnyarko/arksync/internal/retry"
)

// Arksync wires the orchestrator's collaborators together for one
// environment. Construct one per run; concurrent runs against the same
// environment are not coordinated and must be prevented externally.
type Arksync struct {
	cnf          *config.Configuration
	environment  string
	dryRun       bool
	sessions     *SessionManager
	primaryCache cache.Cache
	comparator   *Comparator
	checkpoints  *checkpoint.Store
	fetchPolicy  retry.Policy
	submitPolicy retry.Policy
	limiter      *rate.Limiter
}

// NewArksync builds the orchestrator from the loaded configuration. dryRun
// substitutes record submission with a no-op while keeping fetch, snapshot,
// and comparison behavior identical to a live run.
func NewArksync(environment string, dryRun bool) (*Arksync, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	sessions, err := NewSessionManager(cnf, environment)
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{MaxAttempts: cnf.Run.MaxAttempts, BaseInterval: retry.DefaultPolicy().BaseInterval}

	return &Arksync{
		cnf:          cnf,
		environment:  environment,
		dryRun:       dryRun,
		sessions:     sessions,
		primaryCache: cache.NewFileCache(cnf.Paths.PrimaryCacheDir),
		comparator:   NewComparator(cache.NewFileCache(cnf.Paths.SecondaryCacheDir)),
		checkpoints:  checkpoint.NewStore(cnf.Paths.CheckpointDir),
		fetchPolicy:  policy,
		submitPolicy: policy,
		limiter:      rate.NewLimiter(rate.Limit(cnf.Run.ThrottleRPS), 1),
	}, nil
}

// Sessions exposes the session manager for commands that talk to the API
// outside a batch run (single-record verification).
func (a *Arksync) Sessions() *SessionManager {
	return a.sessions
}
