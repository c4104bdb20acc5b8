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

// Package groupbinding implements the group actor's action set (C10): the
// handlers driving a session's single top-level workflow, which in turn
// creates node actors and fans commands out to them via internal/dispatch.
package groupbinding

import (
	"context"
	"encoding/json"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/actor"
	"github.com/tombee/actoriac/internal/dispatch"
	"github.com/tombee/actoriac/internal/inventory"
	"github.com/tombee/actoriac/internal/jsonstate"
	"github.com/tombee/actoriac/internal/metrics"
	"github.com/tombee/actoriac/internal/nodebinding"
	"github.com/tombee/actoriac/internal/outputmux"
	"github.com/tombee/actoriac/internal/sessionstore"
	"github.com/tombee/actoriac/internal/workflow"
)

// localHostname is the synthetic host name used when createNodeActors is
// called with the special group name "local".
const localHostname = "localhost"

// Config is everything the group actor needs at construction.
type Config struct {
	Self   *actor.Actor
	Kernel *actor.Kernel

	Inventory *inventory.Inventory
	Limit     []string

	Mux   *outputmux.Multiplexer
	Store *sessionstore.Store
	// LogWrite routes fn through the dedicated single-worker log-writer
	// pool, so C3 writes from every node and the group itself serialise.
	LogWrite func(fn func())

	SessionID       string
	WorkflowPath    string
	OverlayPath     string
	WorkflowBaseDir string
	OverlayDir      string

	// Metrics is optional; nil disables recording.
	Metrics *metrics.Registry
}

// GroupBinding is the Obj a group actor wraps; it implements
// dispatch.Invoker so it can itself be a target of `apply` (a group nested
// inside another group).
type GroupBinding struct {
	cfg   Config
	state *jsonstate.State

	currentTransitionLabel string
	dispatchFn             action.Dispatcher
	interp                 *workflow.Interpreter

	accumulator []dispatch.Outcome

	actions map[string]func(ctx context.Context, args json.RawMessage) (action.Result, error)
}

// New builds a GroupBinding and its explicit action dispatch table.
func New(cfg Config) *GroupBinding {
	gb := &GroupBinding{
		cfg:   cfg,
		state: jsonstate.New("group"),
	}
	gb.dispatchFn = func(ctx context.Context, actorName, method string, args []string) (action.Result, error) {
		return gb.Invoke(ctx, method, args)
	}
	gb.actions = gb.buildActions()
	return gb
}

// Invoke dispatches to the named handler, matching the same explicit
// dispatch-table discipline as internal/nodebinding.
func (gb *GroupBinding) Invoke(ctx context.Context, method string, args []string) (action.Result, error) {
	handler, ok := gb.actions[method]
	if !ok {
		return action.Result{Success: false, Result: "unknown action: " + method}, nil
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	result, err := handler(ctx, raw)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

// SetSelf records the kernel actor this binding was registered as, once its
// caller (the run command in internal/cli) has created it -- needed before a nested apply/call
// can treat this group as a target, and before Run can be routed through
// the kernel rather than called as a bare method.
func (gb *GroupBinding) SetSelf(self *actor.Actor) {
	gb.cfg.Self = self
}

func (gb *GroupBinding) buildActions() map[string]func(ctx context.Context, args json.RawMessage) (action.Result, error) {
	return map[string]func(ctx context.Context, args json.RawMessage) (action.Result, error){
		"hasInventory":             gb.hasInventory,
		"createNodeActors":         gb.createNodeActors,
		"apply":                    gb.apply,
		"executeCommandOnAllNodes": gb.executeCommandOnAllNodes,
		"hasAccumulator":           gb.hasAccumulator,
		"getAccumulatorSummary":    gb.getAccumulatorSummary,
		"printSessionSummary":      gb.printSessionSummary,
		"getSessionId":             gb.getSessionID,
		"getWorkflowPath":          gb.getWorkflowPath,
		"printJson":                gb.printJSON,
		"printYaml":                gb.printYAML,
		"readYaml":                 gb.readYaml,
		"readJson":                 gb.readJSON,
		"readXml":                  gb.readXML,
		"reset":                    gb.reset,
		"execCode":                 gb.execCode,
		"runUntilEnd":              gb.runUntilEnd,
		"runWorkflow":              gb.runWorkflow,
		"sleep":                    gb.sleepAction,
		"print":                    gb.printAction,
		"doNothing":                gb.doNothing,
	}
}
