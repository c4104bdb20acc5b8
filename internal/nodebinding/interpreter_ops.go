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

package nodebinding

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/actor"
	"github.com/tombee/actoriac/internal/workflow"
	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// defaultMaxIterations is the workflow loop guard when a caller doesn't
// supply one explicitly, per spec.md §4.5/§5.
const defaultMaxIterations = 10000

func (nb *NodeBinding) readYaml(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return nb.readStructured(raw, yaml.Unmarshal)
}

func (nb *NodeBinding) readJSON(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return nb.readStructured(raw, json.Unmarshal)
}

func (nb *NodeBinding) readXML(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return nb.readStructured(raw, xml.Unmarshal)
}

// readStructured reads the file named by the action's single argument,
// decodes it with unmarshal, merges its top-level fields into this
// actor's JSON State, and returns the decoded content re-encoded as JSON
// so ${result} can be used immediately without a round trip through the
// tree.
func (nb *NodeBinding) readStructured(raw json.RawMessage, unmarshal func([]byte, any) error) (action.Result, error) {
	path, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	var decoded map[string]any
	if err := unmarshal(data, &decoded); err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	for k, v := range decoded {
		nb.state.PutJSON(k, v)
	}

	encoded, err := json.Marshal(decoded)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return action.Result{Success: true, Result: string(encoded)}, nil
}

func (nb *NodeBinding) reset(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	nb.state.ClearJSON()
	return action.Result{Success: true, Result: ""}, nil
}

// execCode advances the workflow by exactly one transition step against
// this actor's own main workflow definition -- a single-step variant of
// runUntilEnd for callers that want fine-grained control over each
// transition rather than running to completion.
func (nb *NodeBinding) execCode(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	interp, err := nb.mainInterpreter()
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	result, err := interp.RunUntilEnd(ctx, 1)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

func (nb *NodeBinding) runUntilEnd(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	max := defaultMaxIterations
	if args, err := allArgs(raw); err == nil && len(args) > 0 && args[0] != "" {
		if n, convErr := strconv.Atoi(args[0]); convErr == nil {
			max = n
		}
	}

	interp, err := nb.mainInterpreter()
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	result, err := interp.RunUntilEnd(ctx, max)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

// mainInterpreter lazily loads this actor's own workflow document (the one
// the session was invoked with) the first time runUntilEnd or execCode is
// called, and reuses it across subsequent calls so repeated execCode steps
// advance the same state machine.
func (nb *NodeBinding) mainInterpreter() (*workflow.Interpreter, error) {
	if nb.interp != nil {
		return nb.interp, nil
	}
	if nb.cfg.WorkflowPath == "" {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: "no workflow document configured for actor " + nb.cfg.ActorName}
	}

	def, err := workflow.LoadWithOverlay(nb.cfg.WorkflowPath, nb.cfg.OverlayPath)
	if err != nil {
		return nil, err
	}

	nb.interp = nb.interpreterFor(def)
	return nb.interp, nil
}

// runWorkflow loads path and runs it to completion sharing this actor's
// own JSON State, per spec.md §4.5 ("JSON State is shared with the
// parent").
func (nb *NodeBinding) runWorkflow(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	args, err := allArgs(raw)
	if err != nil {
		return action.Result{}, err
	}
	if len(args) == 0 {
		return action.Result{Success: false, Result: "runWorkflow requires a path argument"}, nil
	}
	path := args[0]
	max := defaultMaxIterations
	if len(args) > 1 && args[1] != "" {
		if n, convErr := strconv.Atoi(args[1]); convErr == nil {
			max = n
		}
	}

	def, err := workflow.Load(path)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	interp := nb.interpreterFor(def)
	result, err := interp.RunUntilEnd(ctx, max)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

// call loads path as a freshly created child actor with isolated JSON
// State; the child's terminal result becomes this action's own result,
// which the invoking interpreter will in turn store as its ${result},
// per spec.md §4.5 ("call(path)... isolated JSON State... terminal
// result becomes the parent's ${result}").
func (nb *NodeBinding) call(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	path, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}

	def, err := workflow.Load(path)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	if nb.cfg.Kernel == nil || nb.cfg.Self == nil {
		return action.Result{Success: false, Result: "call requires a kernel-managed actor"}, nil
	}

	child := nb.cloneWithFreshState()
	nb.callCounter++
	childName := fmt.Sprintf("call-%s-%d", nb.cfg.ActorName, nb.callCounter)

	childActor, err := nb.cfg.Kernel.CreateChild(nb.cfg.Self, childName, child)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	child.cfg.Self = childActor

	v, err := nb.cfg.Kernel.Ask(ctx, childActor, actor.DefaultPool, func(ctx context.Context) (any, error) {
		interp := child.interpreterFor(def)
		return interp.RunUntilEnd(ctx, defaultMaxIterations)
	})
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	result, _ := v.(action.Result)
	return result, nil
}

// cloneWithFreshState builds a NodeBinding that shares this one's executor,
// output multiplexer, and session store, but starts from an empty JSON
// State -- the "isolated JSON State" child actor call() creates.
func (nb *NodeBinding) cloneWithFreshState() *NodeBinding {
	clone := New(nb.cfg)
	clone.executor = nb.executor
	return clone
}
