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

package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storefront-deposits-go/internal/models"

	"gopkg.in/yaml.v2"
)

// Bucket groups provider event types by the deposit status they drive.
type Bucket string

const (
	BucketSuccess  Bucket = "success"
	BucketPending  Bucket = "pending"
	BucketFailed   Bucket = "failed"
	BucketRefunded Bucket = "refunded"
	BucketUnknown  Bucket = "unknown"
)

// Status returns the declared deposit status for a bucket. Unknown has none.
func (b Bucket) Status() (models.DepositStatus, bool) {
	switch b {
	case BucketSuccess:
		return models.DepositStatusCompleted, true
	case BucketPending:
		return models.DepositStatusPending, true
	case BucketFailed:
		return models.DepositStatusFailed, true
	case BucketRefunded:
		return models.DepositStatusRefunded, true
	default:
		return "", false
	}
}

var defaultEvents = map[Bucket][]string{
	BucketSuccess: {
		"PAYMENT.CAPTURE.COMPLETED",
		"CHECKOUT.ORDER.COMPLETED",
		"PAYMENT.SALE.COMPLETED",
	},
	BucketPending: {
		"PAYMENT.CAPTURE.PENDING",
		"CHECKOUT.ORDER.APPROVED",
	},
	BucketFailed: {
		"PAYMENT.CAPTURE.DENIED",
		"PAYMENT.CAPTURE.DECLINED",
		"CHECKOUT.PAYMENT-APPROVAL.REVERSED",
	},
	BucketRefunded: {
		"PAYMENT.CAPTURE.REFUNDED",
		"PAYMENT.CAPTURE.REVERSED",
		"PAYMENT.SALE.REFUNDED",
	},
}

type EventsConfig struct {
	Events map[string][]string `yaml:"events"`
}

// Classifier maps provider event types into buckets.
type Classifier struct {
	buckets map[string]Bucket
}

// DefaultClassifier knows the PayPal capture, order and sale events.
func DefaultClassifier() *Classifier {
	c := &Classifier{buckets: make(map[string]Bucket)}
	for bucket, types := range defaultEvents {
		for _, t := range types {
			c.buckets[t] = bucket
		}
	}
	return c
}

// Classify returns the bucket for an event type, or BucketUnknown.
func (c *Classifier) Classify(eventType string) Bucket {
	if b, ok := c.buckets[strings.ToUpper(strings.TrimSpace(eventType))]; ok {
		return b
	}
	return BucketUnknown
}

// LoadClassifier reads an event map file on top of the defaults. An empty path
// returns the defaults.
func LoadClassifier(eventsFile string) (*Classifier, error) {
	c := DefaultClassifier()
	if eventsFile == "" {
		return c, nil
	}

	var eventsPath string
	if filepath.IsAbs(eventsFile) {
		eventsPath = eventsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		eventsPath = filepath.Join(wd, eventsFile)
	}

	data, err := os.ReadFile(eventsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", eventsFile, err)
	}

	var config EventsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", eventsFile, err)
	}

	for name, types := range config.Events {
		bucket := Bucket(strings.ToLower(name))
		if _, ok := bucket.Status(); !ok {
			return nil, fmt.Errorf("unknown event bucket %q in %s", name, eventsFile)
		}
		for i, t := range types {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" {
				return nil, fmt.Errorf("event at index %d of bucket %s is empty", i, name)
			}
			c.buckets[t] = bucket
		}
	}

	return c, nil
}
