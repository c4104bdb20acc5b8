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

// Package dispatch implements the group actor's `apply` action (C8): fan
// out a method call over every child actor whose name matches a wildcard
// pattern, running all of them in parallel and aggregating success and
// failure with no early exit on the first failing node.
package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/actor"
	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// Invoker is implemented by whatever a node actor wraps (internal/nodebinding's
// NodeBinding in practice), letting dispatch stay agnostic of that package.
type Invoker interface {
	Invoke(ctx context.Context, method string, args []string) (action.Result, error)
}

// Outcome reports one matched actor's result, for a caller (internal/groupbinding)
// that wants to record it via the session log store without dispatch itself
// depending on sessionstore.
type Outcome struct {
	NodeName string
	Success  bool
	Result   string
}

// Apply resolves pattern against caller's child actor names (`*` matches
// any run of characters except `/`, `.` included; a literal `.` in the
// pattern matches only a `.`; exact match
// when pattern has no wildcard), invokes method with args on every match
// in parallel via kernel.Ask, and aggregates the outcome. onOutcome, if
// non-nil, is called once per matched actor as its result arrives.
func Apply(ctx context.Context, kernel *actor.Kernel, caller *actor.Actor, pattern, method string, args []string, onOutcome func(Outcome)) (action.Result, error) {
	matched := matchChildren(caller, pattern)
	if len(matched) == 0 {
		return action.Result{Success: false, Result: "No actors matched pattern: " + pattern}, nil
	}

	var (
		mu       sync.Mutex
		failures = map[string]string{}
		success  atomic.Int64
	)

	var g errgroup.Group
	for _, child := range matched {
		child := child
		g.Go(func() error {
			outcome := invokeOne(ctx, kernel, child, method, args)

			if outcome.Success {
				success.Add(1)
			} else {
				mu.Lock()
				failures[outcome.NodeName] = outcome.Result
				mu.Unlock()
			}

			if onOutcome != nil {
				onOutcome(outcome)
			}
			return nil
		})
	}
	_ = g.Wait()

	return aggregate(int64(len(matched)), success.Load(), failures), nil
}

func invokeOne(ctx context.Context, kernel *actor.Kernel, child *actor.Actor, method string, args []string) Outcome {
	v, err := kernel.Ask(ctx, child, actor.DefaultPool, func(ctx context.Context) (any, error) {
		invoker, ok := child.Obj.(Invoker)
		if !ok {
			return nil, &pkgerrors.InternalError{Reason: "actor " + child.Name + " does not implement dispatch.Invoker"}
		}
		return invoker.Invoke(ctx, method, args)
	})
	if err != nil {
		return Outcome{NodeName: child.Name, Success: false, Result: err.Error()}
	}

	result, _ := v.(action.Result)
	return Outcome{NodeName: child.Name, Success: result.Success, Result: result.Result}
}

func matchChildren(caller *actor.Actor, pattern string) []*actor.Actor {
	var matched []*actor.Actor
	for _, child := range caller.Children() {
		ok, err := doublestar.Match(pattern, child.Name)
		if err == nil && ok {
			matched = append(matched, child)
		}
	}
	return matched
}

func aggregate(total, succeeded int64, failures map[string]string) action.Result {
	if len(failures) == 0 {
		return action.Result{Success: true, Result: fmt.Sprintf("%d/%d succeeded", succeeded, total)}
	}

	names := make([]string, 0, len(failures))
	for name := range failures {
		names = append(names, name)
	}
	sort.Strings(names)

	return action.Result{
		Success: false,
		Result:  fmt.Sprintf("%d/%d succeeded, failed: %v", succeeded, total, names),
	}
}
