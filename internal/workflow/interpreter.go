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

package workflow

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	actionpkg "github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/jsonstate"
)

// tracer is shared by every Interpreter. It resolves through the global
// TracerProvider, so a caller with no provider configured (tests, `actoriac
// validate`) gets the no-op implementation for free.
var tracer = otel.Tracer("github.com/tombee/actoriac/internal/workflow")

// Interpreter drives a Definition to completion against a single actor's
// JSON State, dispatching every action through dispatch.
type Interpreter struct {
	current  string
	def      *Definition
	state    *jsonstate.State
	dispatch actionpkg.Dispatcher
	onEnter  func(Transition)
	guards   *guardEvaluator

	lastResult string
}

// New builds an Interpreter starting at InitialState. onEnter may be nil.
func New(def *Definition, state *jsonstate.State, dispatch actionpkg.Dispatcher, onEnter func(Transition)) *Interpreter {
	if onEnter == nil {
		onEnter = func(Transition) {}
	}
	return &Interpreter{current: InitialState, def: def, state: state, dispatch: dispatch, onEnter: onEnter, guards: newGuardEvaluator()}
}

// RunUntilEnd implements the five-step loop: find the transition(s) whose
// from matches the current state, select the first one whose guard
// succeeds (the first action of the transition by convention, or its
// when: expression if present), run its actions in order substituting
// ${...} references against JSON State, and advance current to its to. It
// terminates when current becomes EndState, when no transition matches
// the current state, or after maxIterations without reaching either,
// whichever comes first.
func (in *Interpreter) RunUntilEnd(ctx context.Context, maxIterations int) (actionpkg.Result, error) {
	last := actionpkg.Result{Success: true, Result: in.current}

	for i := 0; i < maxIterations; i++ {
		candidates := in.def.transitionsFrom(in.current)
		if len(candidates) == 0 {
			return actionpkg.Result{Success: true, Result: in.current}, nil
		}

		selected, firstResult, hasFirst, err := in.selectTransition(ctx, candidates)
		if err != nil {
			return actionpkg.Result{}, err
		}
		if selected == nil {
			return actionpkg.Result{Success: false, Result: fmt.Sprintf("no transition from state %q matched", in.current)}, nil
		}

		in.onEnter(*selected)

		transitionCtx, span := tracer.Start(ctx, "workflow.transition", trace.WithAttributes(
			attribute.String("workflow.from", selected.From),
			attribute.String("workflow.to", selected.To),
			attribute.String("workflow.label", selected.Label),
		))

		result := firstResult
		if !hasFirst && len(selected.Actions) == 0 {
			result = actionpkg.Result{Success: true, Result: in.lastResult}
		}
		startIdx := 0
		if hasFirst {
			startIdx = 1
		}
		for _, act := range selected.Actions[startIdx:] {
			result, err = in.runAction(transitionCtx, act)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.End()
				return actionpkg.Result{}, err
			}
		}
		if !result.Success {
			span.SetStatus(codes.Error, result.Result)
		}
		span.End()

		last = result
		in.current = selected.To

		if in.current == EndState {
			return last, nil
		}
	}

	return actionpkg.Result{Success: false, Result: "workflow did not terminate"}, nil
}

// selectTransition walks candidates in document order, running each
// one's guard (when: expression if set, else its first action) until one
// succeeds or it is the last remaining candidate. It returns the chosen
// transition, the ActionResult of its first action if that action was
// already run as part of guard evaluation, and whether that run
// happened (so RunUntilEnd doesn't re-run it).
func (in *Interpreter) selectTransition(ctx context.Context, candidates []Transition) (*Transition, actionpkg.Result, bool, error) {
	for i := range candidates {
		t := &candidates[i]
		isLast := i == len(candidates)-1

		if t.When != "" {
			ok, err := in.evalWhen(t.When)
			if err != nil {
				return nil, actionpkg.Result{}, false, err
			}
			if ok || isLast {
				return t, actionpkg.Result{}, false, nil
			}
			continue
		}

		if len(t.Actions) == 0 {
			return t, actionpkg.Result{}, false, nil
		}

		result, err := in.runAction(ctx, t.Actions[0])
		if err != nil {
			return nil, actionpkg.Result{}, false, err
		}

		if result.Success || isLast {
			return t, result, true, nil
		}
	}

	return nil, actionpkg.Result{}, false, nil
}

func (in *Interpreter) runAction(ctx context.Context, act Action) (actionpkg.Result, error) {
	ctx, span := tracer.Start(ctx, "workflow.action", trace.WithAttributes(
		attribute.String("workflow.actor", act.Actor),
		attribute.String("workflow.method", act.Method),
	))
	defer span.End()

	args := make([]string, len(act.Arguments))
	for i, raw := range act.Arguments {
		expanded, err := jsonstate.Substitute(raw, in.state, in.lastResult)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return actionpkg.Result{}, err
		}
		args[i] = expanded
	}

	result, err := in.dispatch(ctx, act.Actor, act.Method, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return actionpkg.Result{}, err
	}
	if !result.Success {
		span.SetStatus(codes.Error, result.Result)
	}

	in.lastResult = result.Result
	return result, nil
}

func (in *Interpreter) evalWhen(guard string) (bool, error) {
	return in.guards.evaluate(guard, in.state.Snapshot())
}

// RunWorkflow loads the document at path and runs it to completion reusing
// this Interpreter's own JSON State -- state and ${result} are shared with
// the caller across the boundary, per spec.md §4.5.
func (in *Interpreter) RunWorkflow(ctx context.Context, path string, maxIterations int) (actionpkg.Result, error) {
	def, err := Load(path)
	if err != nil {
		return actionpkg.Result{}, err
	}

	child := New(def, in.state, in.dispatch, in.onEnter)
	child.lastResult = in.lastResult
	result, err := child.RunUntilEnd(ctx, maxIterations)
	if err != nil {
		return actionpkg.Result{}, err
	}

	in.lastResult = result.Result
	return result, nil
}

// CurrentState returns the state the interpreter is currently in.
func (in *Interpreter) CurrentState() string {
	return in.current
}

// LastResult returns the result string of the most recently dispatched
// action, the value ${result} currently resolves to.
func (in *Interpreter) LastResult() string {
	return in.lastResult
}
