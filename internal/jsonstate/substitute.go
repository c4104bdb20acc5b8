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

package jsonstate

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tombee/actoriac/internal/jq"
	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

var substitutionPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

var jqExecutor = jq.NewExecutor(0, 0)

// Substitute expands every `${...}` reference in raw against st, with
// `${result}` resolved from lastResult instead of the tree and `${jq: expr}`
// run against lastResult parsed as JSON. Substitution happens on the raw
// string before any JSON parsing of the argument, so structured arguments
// remain well-formed once expanded.
func Substitute(raw string, st *State, lastResult string) (string, error) {
	var firstErr error

	expanded := substitutionPattern.ReplaceAllStringFunc(raw, func(match string) string {
		if firstErr != nil {
			return match
		}

		expr := strings.TrimSpace(match[2 : len(match)-1])

		if expr == "result" {
			return lastResult
		}

		if jqExpr, ok := strings.CutPrefix(expr, "jq:"); ok {
			value, err := evalJQ(strings.TrimSpace(jqExpr), lastResult)
			if err != nil {
				firstErr = err
				return match
			}
			return value
		}

		value, err := st.GetJSON(expr)
		if err != nil {
			firstErr = err
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return expanded, nil
}

func evalJQ(expr, lastResult string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(lastResult), &data); err != nil {
		return "", &pkgerrors.StateError{Path: "jq:" + expr, Actor: "result"}
	}

	out, err := jqExecutor.Execute(context.Background(), expr, data)
	if err != nil {
		return "", &pkgerrors.StateError{Path: "jq:" + expr, Actor: "result"}
	}

	return stringify(out), nil
}
