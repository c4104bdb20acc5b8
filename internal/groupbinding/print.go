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
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/outputmux"
)

func (gb *GroupBinding) printJSON(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return gb.printSubtree(raw, func(v any) (string, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		return string(b), err
	})
}

func (gb *GroupBinding) printYAML(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return gb.printSubtree(raw, func(v any) (string, error) {
		b, err := yaml.Marshal(v)
		return string(b), err
	})
}

func (gb *GroupBinding) printSubtree(raw json.RawMessage, format func(any) (string, error)) (action.Result, error) {
	args, err := allArgs(raw)
	if err != nil {
		return action.Result{}, err
	}

	v := gb.subtreeAt(args)

	text, err := format(v)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	text = strings.TrimRight(text, "\n")

	if gb.cfg.Mux != nil {
		for _, line := range strings.Split(text, "\n") {
			gb.cfg.Mux.Write("group", outputmux.LineStdout, line, gb.currentTransitionLabel)
		}
	}

	return action.Result{Success: true, Result: text}, nil
}

func (gb *GroupBinding) subtreeAt(args []string) any {
	tree := gb.state.Snapshot()
	if len(args) == 0 || args[0] == "" {
		return tree
	}

	var cur any = tree
	for _, part := range strings.Split(args[0], ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}
