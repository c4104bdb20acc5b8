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

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/dispatch"
)

// apply's single argument is a JSON-encoded action.Def: {"actor": <pattern>,
// "method": <name>, "arguments": [...]}. actor is the wildcard pattern
// matched against this group's node actor names, per spec.md §4.8/§4.4.
func (gb *GroupBinding) apply(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	arg, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}

	var def action.Def
	if err := json.Unmarshal([]byte(arg), &def); err != nil {
		return action.Result{Success: false, Result: "invalid action definition: " + err.Error()}, nil
	}

	return gb.applyPattern(ctx, def.Actor, def.Method, def.Arguments)
}

// executeCommandOnAllNodes is the common-case convenience wrapper around
// apply: pattern "*" (every node actor), method executeCommand.
func (gb *GroupBinding) executeCommandOnAllNodes(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	command, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}
	return gb.applyPattern(ctx, "*", "executeCommand", []string{command})
}

func (gb *GroupBinding) applyPattern(ctx context.Context, pattern, method string, args []string) (action.Result, error) {
	onOutcome := func(o dispatch.Outcome) {
		gb.accumulator = append(gb.accumulator, o)
		if gb.cfg.Metrics != nil {
			status := "success"
			if !o.Success {
				status = "failed"
			}
			gb.cfg.Metrics.ObserveNode(status)
		}
		if gb.cfg.LogWrite == nil || gb.cfg.Store == nil {
			return
		}
		reason := o.Result
		gb.cfg.LogWrite(func() {
			if o.Success {
				_ = gb.cfg.Store.MarkNodeSuccess(context.Background(), gb.cfg.SessionID, o.NodeName, reason)
			} else {
				_ = gb.cfg.Store.MarkNodeFailed(context.Background(), gb.cfg.SessionID, o.NodeName, reason)
			}
		})
	}

	return dispatch.Apply(ctx, gb.cfg.Kernel, gb.cfg.Self, pattern, method, args, onOutcome)
}

func (gb *GroupBinding) hasAccumulator(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return action.Result{Success: len(gb.accumulator) > 0, Result: ""}, nil
}

// getAccumulatorSummary aggregates every apply/executeCommandOnAllNodes
// outcome recorded so far in this session, independent of how many
// separate apply calls produced them.
func (gb *GroupBinding) getAccumulatorSummary(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	if len(gb.accumulator) == 0 {
		return action.Result{Success: true, Result: "0/0 succeeded"}, nil
	}

	succeeded := 0
	failures := map[string]string{}
	for _, o := range gb.accumulator {
		if o.Success {
			succeeded++
		} else {
			failures[o.NodeName] = o.Result
		}
	}

	total := len(gb.accumulator)
	if len(failures) == 0 {
		return action.Result{Success: true, Result: fmt.Sprintf("%d/%d succeeded", succeeded, total)}, nil
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	return action.Result{
		Success: false,
		Result:  fmt.Sprintf("%d/%d succeeded, failed: %v", succeeded, total, names),
	}, nil
}
