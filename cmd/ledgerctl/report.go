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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	narrowWidth = 80
	wideWidth   = 100
	refWidth    = 12
)

// report renders boxed ledger summaries for terminal output.
type report struct {
	w     io.Writer
	width int
}

func newReport(w io.Writer, width int) *report {
	return &report{w: w, width: width}
}

func (r *report) header(title string) {
	fmt.Fprintf(r.w, "\n%s\n%s\n%s\n", r.bar("="), title, r.bar("="))
}

func (r *report) footer(summary string) {
	fmt.Fprintf(r.w, "\n%s\n%s\n%s\n\n", r.bar("="), summary, r.bar("="))
}

// section opens a box for one user or deposit.
func (r *report) section(format string, args ...any) {
	fmt.Fprintf(r.w, "\n┌─ %s\n", fmt.Sprintf(format, args...))
}

func (r *report) rule() {
	fmt.Fprintln(r.w, "├"+strings.Repeat("─", r.width-2))
}

// row writes one boxed line. The last row of a box closes it.
func (r *report) row(last bool, format string, args ...any) {
	prefix := "│ "
	if last {
		prefix = "└ "
	}
	fmt.Fprintf(r.w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// detail writes an indented continuation of the previous row.
func (r *report) detail(last bool, text string) {
	prefix := "│ "
	if last {
		prefix = "  "
	}
	fmt.Fprintf(r.w, "%s   %s\n", prefix, text)
}

func (r *report) bar(char string) string {
	return strings.Repeat(char, r.width)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// shortRef trims long provider and deposit references for tabular output.
func shortRef(ref string) string {
	if ref == "" {
		return "none"
	}
	if len(ref) > refWidth {
		return ref[:refWidth] + "..."
	}
	return ref
}
