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
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// guardEvaluator compiles and caches `when:` expressions, evaluating each
// against a snapshot of the acting actor's JSON State.
type guardEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func newGuardEvaluator() *guardEvaluator {
	return &guardEvaluator{cache: map[string]*vm.Program{}}
}

func (g *guardEvaluator) evaluate(expression string, state map[string]any) (bool, error) {
	program, err := g.compile(expression)
	if err != nil {
		return false, &pkgerrors.StateError{Path: "when:" + expression, Actor: "guard"}
	}

	result, err := expr.Run(program, state)
	if err != nil {
		return false, &pkgerrors.StateError{Path: "when:" + expression, Actor: "guard"}
	}

	ok, isBool := result.(bool)
	if !isBool {
		return false, &pkgerrors.StateError{Path: fmt.Sprintf("when:%s returned %T, want bool", expression, result), Actor: "guard"}
	}
	return ok, nil
}

func (g *guardEvaluator) compile(expression string) (*vm.Program, error) {
	g.mu.RLock()
	if program, ok := g.cache[expression]; ok {
		g.mu.RUnlock()
		return program, nil
	}
	g.mu.RUnlock()

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.cache[expression] = program
	g.mu.Unlock()

	return program, nil
}
