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
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/willnyarko/arksync/internal/apierror"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseInterval: time.Millisecond}
}

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "fetch", func() error {
		calls++
		return apierror.NewAPIError(apierror.ErrTransientNetwork, "timeout", nil)
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoReturnsLastError(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), "fetch", func() error {
		calls++
		return apierror.NewAPIError(apierror.ErrTransientNetwork, fmt.Sprintf("attempt %d", calls), nil)
	})

	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "attempt 2")
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "fetch", func() error {
		calls++
		return apierror.NewAPIError(apierror.ErrNotFound, "no such agent", nil)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, apierror.ErrNotFound, apierror.CodeOf(err))
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "fetch", func() error {
		calls++
		if calls < 3 {
			return apierror.NewAPIError(apierror.ErrTransientNetwork, "timeout", nil)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Policy{MaxAttempts: 5, BaseInterval: time.Minute}.Do(ctx, "fetch", func() error {
		calls++
		cancel()
		return apierror.NewAPIError(apierror.ErrTransientNetwork, "timeout", nil)
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoTreatsZeroAttemptsAsOne(t *testing.T) {
	calls := 0
	err := Policy{MaxAttempts: 0, BaseInterval: time.Millisecond}.Do(context.Background(), "fetch", func() error {
		calls++
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
