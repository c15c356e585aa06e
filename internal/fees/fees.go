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

package fees

import (
	"github.com/shopspring/decimal"
)

var (
	DefaultRate  = decimal.RequireFromString("0.039")
	DefaultFixed = decimal.RequireFromString("0.30")
)

// Calculator applies the processor fee schedule to gross amounts.
// Fee and net amounts are rounded to 2 decimal places.
type Calculator struct {
	Rate  decimal.Decimal
	Fixed decimal.Decimal
}

func NewCalculator(rate, fixed decimal.Decimal) Calculator {
	return Calculator{Rate: rate, Fixed: fixed}
}

// Default returns the calculator for the standard 3.9% + 0.30 schedule.
func Default() Calculator {
	return NewCalculator(DefaultRate, DefaultFixed)
}

// Fee returns amount*Rate + Fixed, or zero for non-positive amounts.
func (c Calculator) Fee(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return amount.Mul(c.Rate).Add(c.Fixed).Round(2)
}

// NetAmount returns the amount credited to the user after the fee, or zero for
// non-positive amounts.
func (c Calculator) NetAmount(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return amount.Sub(c.Fee(amount)).Round(2)
}

// ParseAmount parses a user-supplied amount. Non-numeric input yields zero so
// that Fee and NetAmount degrade the same way as for non-positive values.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
