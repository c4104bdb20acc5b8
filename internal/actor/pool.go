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

// Package actor is the hierarchical actor kernel: a Registry of named
// actors, each with its own FIFO mailbox, served by one of two shared
// worker pools. Messages to a given actor are always processed one at a
// time and in arrival order, regardless of which pool happens to pull a
// given envelope.
package actor

// Pool is a fixed-size worker pool reading off a shared task channel. Each
// actor's own mailbox (see Actor.drainLoop) drains its full backlog in one
// submitted task rather than resubmitting per envelope, so a busy actor
// never needs to re-enter the pool from inside a running task.
type Pool struct {
	tasks chan func()
}

// NewPool starts size worker goroutines draining tasks.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{tasks: make(chan func())}
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues task for execution by the next free worker.
func (p *Pool) Submit(task func()) {
	p.tasks <- task
}

// Stop closes the task channel. It does not wait for queued or running
// tasks, and a Submit after Stop panics, so it is the caller's
// responsibility to ensure no further Submit calls race with Stop.
func (p *Pool) Stop() {
	close(p.tasks)
}
