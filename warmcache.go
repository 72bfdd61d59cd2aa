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
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/willnyarko/arksync/datasources"
	"github.com/willnyarko/arksync/internal/cache"
	"github.com/willnyarko/arksync/model"
)

// WarmCacheStats counts what happened while prefetching SNAC summaries.
type WarmCacheStats struct {
	mu       sync.Mutex
	Cached   int
	Fetched  int
	Merged   int
	NotFound int
	Skipped  int
	Errors   int
}

func (s *WarmCacheStats) add(f func(*WarmCacheStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s)
}

// WarmSNACCache prefetches SNAC constellation summaries for every ARK in
// rows into the local SNAC cache, so later comparison and audit work needs
// no live SNAC traffic. Summaries already on disk are not refetched. Fetch
// failures are counted and logged, never fatal; only cancellation stops the
// sweep early.
func (a *Arksync) WarmSNACCache(ctx context.Context, rows []model.InputRecord, concurrency int) (*WarmCacheStats, error) {
	if concurrency <= 0 {
		concurrency = a.cnf.Run.Workers
	}

	client := datasources.NewSNACClient(a.cnf.Credentials.SNAC.BaseURL)
	snacCache := cache.NewFileCache(a.cnf.Paths.SNACCacheDir)
	stats := &WarmCacheStats{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, row := range rows {
		ark := strings.TrimSpace(row.SNACArk)
		if ark == "" {
			stats.add(func(s *WarmCacheStats) { s.Skipped++ })
			continue
		}
		if snacCache.Exists(ark) {
			stats.add(func(s *WarmCacheStats) { s.Cached++ })
			continue
		}

		g.Go(func() error {
			if err := a.limiter.Wait(ctx); err != nil {
				return err
			}

			summary, err := client.FetchSummary(ctx, ark)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logrus.Warnf("Failed to fetch SNAC summary for %s: %v", ark, err)
				stats.add(func(s *WarmCacheStats) { s.Errors++ })
				return nil
			}

			if target, merged := datasources.MergedRedirect(summary); merged {
				logrus.Infof("SNAC constellation %s was merged into %s", ark, target)
				stats.add(func(s *WarmCacheStats) { s.Merged++ })
			} else if summary["result"] != "success" {
				logrus.Warnf("SNAC returned no constellation for %s (result=%v)", ark, summary["result"])
				stats.add(func(s *WarmCacheStats) { s.NotFound++ })
				return nil
			}

			if _, err := snacCache.Set(ark, summary); err != nil {
				logrus.Warnf("Failed to cache SNAC summary for %s: %v", ark, err)
				stats.add(func(s *WarmCacheStats) { s.Errors++ })
				return nil
			}
			stats.add(func(s *WarmCacheStats) { s.Fetched++ })
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	logrus.Infof("SNAC cache warm complete: %d fetched, %d already cached, %d merged, %d not found, %d skipped, %d errors",
		stats.Fetched, stats.Cached, stats.Merged, stats.NotFound, stats.Skipped, stats.Errors)
	return stats, nil
}
