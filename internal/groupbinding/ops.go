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
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/outputmux"
	"github.com/tombee/actoriac/internal/sessionstore"
	"github.com/tombee/actoriac/internal/workflow"
	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

const defaultMaxIterations = 10000

func (gb *GroupBinding) readYaml(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return gb.readStructured(raw, yaml.Unmarshal)
}

func (gb *GroupBinding) readJSON(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return gb.readStructured(raw, json.Unmarshal)
}

func (gb *GroupBinding) readXML(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return gb.readStructured(raw, xml.Unmarshal)
}

func (gb *GroupBinding) readStructured(raw json.RawMessage, unmarshal func([]byte, any) error) (action.Result, error) {
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
		gb.state.PutJSON(k, v)
	}

	encoded, err := json.Marshal(decoded)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return action.Result{Success: true, Result: string(encoded)}, nil
}

func (gb *GroupBinding) reset(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	gb.state.ClearJSON()
	return action.Result{Success: true, Result: ""}, nil
}

func (gb *GroupBinding) execCode(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	interp, err := gb.mainInterpreter()
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	result, err := interp.RunUntilEnd(ctx, 1)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

// Run drives this group actor's own top-level workflow (cfg.WorkflowPath)
// to completion. It is the one entry point the run command (internal/cli) calls directly;
// every nested path into the main workflow (a sub-workflow's execCode or
// runUntilEnd action calling back into its parent) goes through
// mainInterpreter instead.
func (gb *GroupBinding) Run(ctx context.Context, maxIterations int) (action.Result, error) {
	interp, err := gb.mainInterpreter()
	if err != nil {
		return action.Result{}, err
	}
	return interp.RunUntilEnd(ctx, maxIterations)
}

func (gb *GroupBinding) runUntilEnd(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	max := defaultMaxIterations
	if args, err := allArgs(raw); err == nil && len(args) > 0 && args[0] != "" {
		if n, convErr := strconv.Atoi(args[0]); convErr == nil {
			max = n
		}
	}

	interp, err := gb.mainInterpreter()
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	result, err := interp.RunUntilEnd(ctx, max)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

// mainInterpreter lazily loads and caches the interpreter driving this
// group actor's own top-level workflow -- the one the whole session was
// invoked with, per spec.md §4.8's "the group actor itself can run a
// workflow".
func (gb *GroupBinding) mainInterpreter() (*workflow.Interpreter, error) {
	if gb.interp != nil {
		return gb.interp, nil
	}
	if gb.cfg.WorkflowPath == "" {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: "no workflow document configured for the group actor"}
	}

	def, err := workflow.LoadWithOverlay(gb.cfg.WorkflowPath, gb.cfg.OverlayPath)
	if err != nil {
		return nil, err
	}

	gb.interp = gb.interpreterFor(def)
	return gb.interp, nil
}

func (gb *GroupBinding) runWorkflow(ctx context.Context, raw json.RawMessage) (action.Result, error) {
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

	interp := gb.interpreterFor(def)
	result, err := interp.RunUntilEnd(ctx, max)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

func (gb *GroupBinding) interpreterFor(def *workflow.Definition) *workflow.Interpreter {
	onEnter := func(t workflow.Transition) {
		gb.currentTransitionLabel = t.Label
		if gb.cfg.LogWrite != nil && gb.cfg.Store != nil {
			gb.cfg.LogWrite(func() {
				_ = gb.cfg.Store.Log(context.Background(), gb.cfg.SessionID, "", t.Label, sessionstore.LevelInfo, "entering transition "+t.Label)
			})
		}
	}
	return workflow.New(def, gb.state, gb.dispatchFn, onEnter)
}

func (gb *GroupBinding) sleepAction(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	arg, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}

	var millis int
	if _, scanErr := fmt.Sscanf(arg, "%d", &millis); scanErr != nil {
		return action.Result{Success: false, Result: "invalid duration: " + arg}, nil
	}

	select {
	case <-ctx.Done():
		return action.Result{Success: false, Result: ctx.Err().Error()}, nil
	case <-time.After(time.Duration(millis) * time.Millisecond):
	}
	return action.Result{Success: true, Result: arg}, nil
}

func (gb *GroupBinding) printAction(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	text, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}
	if gb.cfg.Mux != nil {
		gb.cfg.Mux.Write("group", outputmux.LineStdout, text, gb.currentTransitionLabel)
	}
	return action.Result{Success: true, Result: text}, nil
}

func (gb *GroupBinding) doNothing(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	args, err := allArgs(raw)
	if err != nil {
		return action.Result{}, err
	}
	result := ""
	if len(args) > 0 {
		result = args[0]
	}
	return action.Result{Success: true, Result: result}, nil
}
