// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package outputmux

import (
	"strings"

	"golang.org/x/text/width"
)

// DisplayWidth is the terminal column width of s: East-Asian wide/fullwidth
// runes count as 2 columns, everything else counts as 1. Exported so other
// fixed-width tables (internal/groupbinding's printSessionSummary) align
// the same way this package's own Summary table does.
func DisplayWidth(s string) int {
	w := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// PadDisplay right-pads s with spaces until its display width reaches at
// least target columns.
func PadDisplay(s string, target int) string {
	w := DisplayWidth(s)
	if w >= target {
		return s
	}
	return s + strings.Repeat(" ", target-w)
}
