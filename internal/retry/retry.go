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

package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/willnyarko/arksync/internal/apierror"
)

// Policy bounds the re-execution of a unit of work. A qualifying failure
// (see apierror.IsRetryable) waits BaseInterval * 2^attempt and tries again;
// a non-qualifying failure returns immediately. After MaxAttempts total
// attempts the last error is returned as-is, so the caller sees the failure
// from the final attempt, not a retry-machinery wrapper.
type Policy struct {
	MaxAttempts  int
	BaseInterval time.Duration
}

// DefaultPolicy mirrors the remote system's tolerance: three attempts with a
// one second base wait (1s, then 2s).
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseInterval: time.Second}
}

// Do executes fn under the policy. label names the unit of work in retry
// logs. Context cancellation stops further attempts.
func (p Policy) Do(ctx context.Context, label string, fn func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !apierror.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		logrus.Warnf("%s failed: %v, retrying in %s (attempt %d/%d)", label, err, wait, attempt, maxAttempts)
	}

	return backoff.RetryNotify(operation, p.newBackOff(ctx, maxAttempts), notify)
}

// newBackOff builds the 2^attempt schedule: deterministic doubling from
// BaseInterval with no jitter and no elapsed-time cap, bounded only by the
// attempt count.
func (p Policy) newBackOff(ctx context.Context, maxAttempts int) backoff.BackOff {
	base := p.BaseInterval
	if base <= 0 {
		base = time.Second
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = base
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = base * 64
	exp.MaxElapsedTime = 0
	exp.Reset()

	var b backoff.BackOff = backoff.WithMaxRetries(exp, uint64(maxAttempts-1))
	return backoff.WithContext(b, ctx)
}
