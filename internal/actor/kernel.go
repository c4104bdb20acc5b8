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
	"fmt"
	"runtime"
	"sync"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// PoolSelector picks which of the kernel's two pools pulls a given
// envelope; it never affects per-actor ordering, only which goroutines are
// eligible to run the work.
type PoolSelector int

const (
	// DefaultPool runs ordinary actions.
	DefaultPool PoolSelector = iota
	// LogWriterPool is a dedicated single-worker pool reserved for
	// sessionstore writes, so log I/O never contends with action dispatch.
	LogWriterPool
)

// Kernel owns the two worker pools and the actor registry.
type Kernel struct {
	defaultPool *Pool
	logPool     *Pool

	mu     sync.RWMutex
	actors map[string]*Actor
	roots  []*Actor
}

// NewKernel builds a Kernel with a default pool sized runtime.NumCPU() and
// a dedicated one-worker log-writer pool.
func NewKernel() *Kernel {
	return &Kernel{
		defaultPool: NewPool(runtime.NumCPU()),
		logPool:     NewPool(1),
		actors:      map[string]*Actor{},
	}
}

func (k *Kernel) poolFor(selector PoolSelector) *Pool {
	if selector == LogWriterPool {
		return k.logPool
	}
	return k.defaultPool
}

// CreateRoot registers a new top-level actor (the single group actor in
// practice).
func (k *Kernel) CreateRoot(name string, obj Obj) (*Actor, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.actors[name]; exists {
		return nil, &pkgerrors.InternalError{Reason: "duplicate actor name: " + name}
	}

	a := newActor(name, obj, nil)
	k.actors[name] = a
	k.roots = append(k.roots, a)
	return a, nil
}

// CreateChild registers a new actor as a child of parent. Child names need
// only be unique within parent; the kernel-wide registry key is
// "<parent>/<name>" so the same leaf name may appear under different
// parents.
func (k *Kernel) CreateChild(parent *Actor, name string, obj Obj) (*Actor, error) {
	child := newActor(name, obj, parent)

	if err := parent.addChild(child); err != nil {
		return nil, err
	}

	k.mu.Lock()
	k.actors[registryKey(parent, name)] = child
	k.mu.Unlock()

	return child, nil
}

func registryKey(parent *Actor, name string) string {
	return parent.Name + "/" + name
}

// Lookup resolves an actor by its fully-qualified registry key
// ("parent/child" or a root name).
func (k *Kernel) Lookup(key string) (*Actor, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	a, ok := k.actors[key]
	return a, ok
}

// Tell submits fn to run as the next envelope in target's mailbox and
// returns a channel that closes once fn has executed. fn receives a
// context tagged with target as the active actor, so code running inside
// it can detect an attempted self-call.
func (k *Kernel) Tell(ctx context.Context, target *Actor, selector PoolSelector, fn func(ctx context.Context)) (<-chan struct{}, error) {
	if cur, ok := ActiveActor(ctx); ok && cur == target {
		return nil, selfCallError(target.Name)
	}

	done := make(chan struct{})
	childCtx := withActiveActor(ctx, target)

	target.enqueue(envelope{
		pool: k.poolFor(selector),
		run: func() {
			defer close(done)
			fn(childCtx)
		},
	})

	return done, nil
}

// Ask submits fn to run as the next envelope in target's mailbox and
// blocks until it has executed, returning its result.
func (k *Kernel) Ask(ctx context.Context, target *Actor, selector PoolSelector, fn func(ctx context.Context) (any, error)) (any, error) {
	if cur, ok := ActiveActor(ctx); ok && cur == target {
		return nil, selfCallError(target.Name)
	}

	type outcome struct {
		value any
		err   error
	}
	resultCh := make(chan outcome, 1)
	childCtx := withActiveActor(ctx, target)

	target.enqueue(envelope{
		pool: k.poolFor(selector),
		run: func() {
			v, err := fn(childCtx)
			resultCh <- outcome{value: v, err: err}
		},
	})

	res := <-resultCh
	return res.value, res.err
}

func selfCallError(actorName string) error {
	return &pkgerrors.InternalError{
		Reason: fmt.Sprintf("actor %q attempted a blocking self-call from within its own mailbox turn", actorName),
	}
}
