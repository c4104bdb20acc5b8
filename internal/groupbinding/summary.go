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

package groupbinding

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/outputmux"
	"github.com/tombee/actoriac/internal/sessionstore"
)

func (gb *GroupBinding) getSessionID(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return action.Result{Success: true, Result: gb.cfg.SessionID}, nil
}

func (gb *GroupBinding) getWorkflowPath(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return action.Result{Success: true, Result: gb.cfg.WorkflowPath}, nil
}

// printSessionSummary queries C3 for DEBUG-or-above entries of the current
// session, groups them by transition label, counts the literal
// [OK]/[WARN]/[ERROR]/[INFO] markers each message carries, and renders a
// fixed-width table plus "--- Errors ---"/"--- Warnings ---" sections, per
// spec.md §4.8.
func (gb *GroupBinding) printSessionSummary(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	if gb.cfg.Store == nil {
		return action.Result{Success: false, Result: "no session store configured"}, nil
	}

	entries, err := gb.cfg.Store.GetLogsByLevel(ctx, gb.cfg.SessionID, sessionstore.LevelDebug)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	text := renderSummary(entries)
	if gb.cfg.Mux != nil {
		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			gb.cfg.Mux.Write("session", outputmux.LineStdout, line, "")
		}
	}

	return action.Result{Success: true, Result: text}, nil
}

type labelCounts struct {
	ok, warn, errCount, info int
	errors, warnings         []string
}

func renderSummary(entries []sessionstore.LogEntry) string {
	if len(entries) == 0 {
		return "(no log entries recorded)\n"
	}

	byLabel := map[string]*labelCounts{}
	var order []string
	for _, e := range entries {
		label := e.Label
		if label == "" {
			label = "(none)"
		}
		c, ok := byLabel[label]
		if !ok {
			c = &labelCounts{}
			byLabel[label] = c
			order = append(order, label)
		}

		switch {
		case strings.Contains(e.Message, "[ERROR]"):
			c.errCount++
			c.errors = append(c.errors, e.Message)
		case strings.Contains(e.Message, "[WARN]"):
			c.warn++
			c.warnings = append(c.warnings, e.Message)
		case strings.Contains(e.Message, "[OK]"):
			c.ok++
		case strings.Contains(e.Message, "[INFO]"):
			c.info++
		}
	}
	sort.Strings(order)

	labelWidth := 0
	for _, label := range order {
		if w := outputmux.DisplayWidth(label); w > labelWidth {
			labelWidth = w
		}
	}

	var b strings.Builder
	var allErrors, allWarnings []string
	for _, label := range order {
		c := byLabel[label]
		fmt.Fprintf(&b, "%s  ok=%-4d warn=%-4d error=%-4d info=%-4d\n",
			outputmux.PadDisplay(label, labelWidth), c.ok, c.warn, c.errCount, c.info)
		allErrors = append(allErrors, c.errors...)
		allWarnings = append(allWarnings, c.warnings...)
	}

	if len(allErrors) > 0 {
		b.WriteString("--- Errors ---\n")
		for _, msg := range allErrors {
			b.WriteString(msg)
			b.WriteString("\n")
		}
	}
	if len(allWarnings) > 0 {
		b.WriteString("--- Warnings ---\n")
		for _, msg := range allWarnings {
			b.WriteString(msg)
			b.WriteString("\n")
		}
	}

	return b.String()
}
