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

// Package jsonstate is the per-actor mutable value tree consumed by
// `${...}` substitution. It is never locked internally: the owning actor's
// mailbox serialization (internal/actor) is the only concurrency boundary,
// so a State must only ever be touched from its actor's own goroutine.
package jsonstate

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// State is a `.`-path-addressable tree of arbitrary JSON-shaped values.
type State struct {
	actor string
	root  map[string]any
}

// New returns an empty State scoped to actorName (used in StateError
// messages).
func New(actorName string) *State {
	return &State{actor: actorName, root: map[string]any{}}
}

// PutJSON inserts or overwrites the value at path, creating intermediate
// maps as needed.
func (s *State) PutJSON(path string, value any) {
	parts := strings.Split(path, ".")
	node := s.root
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}

// GetJSON returns the value at path as text, or a *pkgerrors.StateError if
// no value is present.
func (s *State) GetJSON(path string) (string, error) {
	v, ok := s.lookup(path)
	if !ok {
		return "", &pkgerrors.StateError{Path: path, Actor: s.actor}
	}
	return stringify(v), nil
}

// HasJSON probes whether path resolves to a value.
func (s *State) HasJSON(path string) bool {
	_, ok := s.lookup(path)
	return ok
}

// ClearJSON empties the tree.
func (s *State) ClearJSON() {
	s.root = map[string]any{}
}

// Snapshot returns a shallow copy of the root value tree, for callers (the
// workflow interpreter's `when:` guard evaluation) that need to hand the
// whole tree to an external expression engine rather than resolve one path
// at a time.
func (s *State) Snapshot() map[string]any {
	out := make(map[string]any, len(s.root))
	for k, v := range s.root {
		out[k] = v
	}
	return out
}

func (s *State) lookup(path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = s.root
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
