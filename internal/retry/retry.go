/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Backoff computes the wait before the given retry (1-based).
type Backoff func(retry int, base time.Duration) time.Duration

// Linear waits retry*base.
func Linear(retry int, base time.Duration) time.Duration {
	return time.Duration(retry) * base
}

// Constant always waits base.
func Constant(_ int, base time.Duration) time.Duration {
	return base
}

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int // total attempts including the first
	Delay       time.Duration
	MaxDelay    time.Duration
	Backoff     Backoff
	Retryable   func(error) bool
	Name        string
}

// Do runs fn until it succeeds, returns a non-retryable error, or the attempts
// are exhausted. The last error is returned. Cancellation of ctx stops the loop
// between attempts.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := policy.Backoff
	if backoff == nil {
		backoff = Linear
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}

		wait := backoff(attempt, policy.Delay)
		if policy.MaxDelay > 0 && wait > policy.MaxDelay {
			wait = policy.MaxDelay
		}

		zap.L().Info("Retrying after failure",
			zap.String("operation", policy.Name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
