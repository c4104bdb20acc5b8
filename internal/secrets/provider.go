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

// Package secrets resolves the narrow set of credentials the core needs —
// the sudo password and per-host connection passwords — without the core
// depending on any concrete storage mechanism.
package secrets

import "context"

// Provider resolves a named secret to its value. The core only ever holds
// a Provider interface; SSHExecutor and the sudo action binding ask for
// "SUDO_PASSWORD" or a host-scoped connection password by name.
type Provider interface {
	// Scheme identifies the provider for diagnostics ("env", "keychain").
	Scheme() string

	// Resolve returns the value for name, or an error if it cannot be found.
	Resolve(ctx context.Context, name string) (string, error)
}

// Chain tries each Provider in order and returns the first successful
// resolution. This is how env and keychain providers compose: env first
// (matching spec.md's "SUDO_PASSWORD from the environment"), keychain as
// a fallback when the caller opts in.
type Chain struct {
	providers []Provider
}

// NewChain builds a Chain from providers in priority order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Resolve tries each provider in order, returning the first success.
func (c *Chain) Resolve(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, p := range c.providers {
		v, err := p.Resolve(ctx, name)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = &NotFoundError{Name: name}
	}
	return "", lastErr
}

// NotFoundError is returned when no provider in a Chain resolves name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "secret not found: " + e.Name
}
