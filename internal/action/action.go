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

// Package action defines the shared vocabulary every actor binding (C9
// node actions, C10 group actions) and the workflow interpreter (C7)
// dispatch through: a result type and a dispatch function signature, with
// no dependency on the kernel or any single binding's internals.
package action

import "context"

// Result is the pair every action returns: whether it succeeded, and a
// string payload consumed both by JSON State substitution (via ${result})
// and the session log store.
type Result struct {
	Success bool
	Result  string
}

// Def is one step of a transition: the actor to invoke, the method name,
// and its (pre-substitution) textual arguments. Tagged so it round-trips
// through the same field names as a workflow document's action entries
// (internal/workflow's rawAction) when passed as apply's JSON-encoded
// argument.
type Def struct {
	Actor     string   `json:"actor"`
	Method    string   `json:"method"`
	Arguments []string `json:"arguments,omitempty"`
}

// Dispatcher resolves (actorName, method, args) to a Result. The workflow
// interpreter holds one Dispatcher and never knows whether it is routing
// to a node actor or the group actor.
type Dispatcher func(ctx context.Context, actorName, method string, args []string) (Result, error)
