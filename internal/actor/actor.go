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

package actor

import (
	"context"
	"sync"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// Obj is the behavior an Actor wraps -- a group binding (C10) or a node
// binding (C9). The kernel itself is agnostic to what Obj actually is.
type Obj any

// Actor is one node in the hierarchical actor tree: a name, the behavior it
// wraps, its parent, and its children in deterministic (insertion) order.
type Actor struct {
	Name   string
	Obj    Obj
	Parent *Actor

	childMu  sync.RWMutex
	children map[string]*Actor
	childOrd []string

	mailMu  sync.Mutex
	mailbox []envelope
	busy    bool
}

type envelope struct {
	pool *Pool
	run  func()
}

func newActor(name string, obj Obj, parent *Actor) *Actor {
	return &Actor{
		Name:     name,
		Obj:      obj,
		Parent:   parent,
		children: map[string]*Actor{},
	}
}

// Children returns this actor's child actors in the order they were
// created.
func (a *Actor) Children() []*Actor {
	a.childMu.RLock()
	defer a.childMu.RUnlock()

	out := make([]*Actor, 0, len(a.childOrd))
	for _, name := range a.childOrd {
		out = append(out, a.children[name])
	}
	return out
}

// Child looks up a direct child by name.
func (a *Actor) Child(name string) (*Actor, bool) {
	a.childMu.RLock()
	defer a.childMu.RUnlock()
	c, ok := a.children[name]
	return c, ok
}

func (a *Actor) addChild(child *Actor) error {
	a.childMu.Lock()
	defer a.childMu.Unlock()

	if _, exists := a.children[child.Name]; exists {
		return &pkgerrors.InternalError{Reason: "duplicate child actor name: " + child.Name}
	}
	a.children[child.Name] = child
	a.childOrd = append(a.childOrd, child.Name)
	return nil
}

// enqueue appends env to a's mailbox and, if no drain loop is currently
// running for a, submits one to pool. This is the single entry point both
// tell and ask funnel through, which is what guarantees strict per-actor
// FIFO ordering regardless of which pool an individual envelope targets.
func (a *Actor) enqueue(env envelope) {
	a.mailMu.Lock()
	a.mailbox = append(a.mailbox, env)
	if a.busy {
		a.mailMu.Unlock()
		return
	}
	a.busy = true
	a.mailMu.Unlock()

	env.pool.Submit(a.drainLoop)
}

// drainLoop processes every currently-queued envelope for a, one at a
// time, stopping (and clearing the busy flag) only once the mailbox is
// observed empty under the lock.
func (a *Actor) drainLoop() {
	for {
		a.mailMu.Lock()
		if len(a.mailbox) == 0 {
			a.busy = false
			a.mailMu.Unlock()
			return
		}
		next := a.mailbox[0]
		a.mailbox = a.mailbox[1:]
		a.mailMu.Unlock()

		next.run()
	}
}

type actorCtxKey struct{}

// withActiveActor tags ctx with the actor whose mailbox turn is currently
// executing, so a nested ask/tell call can detect a self-call attempt.
func withActiveActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, a)
}

// ActiveActor returns the actor whose mailbox turn ctx was created under,
// if any.
func ActiveActor(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorCtxKey{}).(*Actor)
	return a, ok
}
