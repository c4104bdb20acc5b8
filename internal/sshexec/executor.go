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

// Package sshexec runs a shell command on a single target, locally or over
// SSH, streaming each completed stdout/stderr line to a callback as it
// arrives while also capturing the full buffers for the final Result.
package sshexec

import (
	"context"
	"fmt"
	"strings"
)

// Result is the outcome of one command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Stream identifies which pipe a callback line came from.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// LineCallback is invoked once per completed line, in arrival order across
// both streams (not globally ordered between stdout and stderr, since they
// are read by independent workers).
type LineCallback func(stream Stream, line string)

// ProxyJump describes a single SSH hop to dial through before reaching the
// real target, the equivalent of ssh's "-J" option. It is used only when the
// caller sets it; nothing reads it from ssh client config.
type ProxyJump struct {
	Address  string
	User     string
	Port     int
	Password string
}

// Target is the fully-resolved connection identity for one host actor.
type Target struct {
	// Host is the display/log identifier, not necessarily the dial address.
	Host string

	Address   string
	User      string
	Port      int
	Password  string
	LocalMode bool

	// IdentityFile overrides the auth-precedence search with an explicit key.
	IdentityFile string

	ProxyJump *ProxyJump
}

// Executor runs commands against one resolved Target.
type Executor interface {
	// Execute runs command and streams each output line to onLine, which may
	// be nil.
	Execute(ctx context.Context, command string, onLine LineCallback) (*Result, error)

	// ExecuteSudo runs command under sudo, piping sudoPassword to `sudo -S`.
	ExecuteSudo(ctx context.Context, command, sudoPassword string, onLine LineCallback) (*Result, error)

	// Close releases any held connections (SSH client, proxy-jump forwarder).
	Close() error
}

// NewExecutor builds the Executor appropriate for target: a LocalExecutor
// when target.LocalMode is set, an SSHExecutor otherwise.
func NewExecutor(target Target) (Executor, error) {
	if target.LocalMode {
		return NewLocalExecutor(target), nil
	}
	return NewSSHExecutor(target)
}

// sudoCommand builds `echo '<pw>' | sudo -S bash -c '<cmd>'`, single-quote
// doubling both the password and the command so embedded single quotes and
// multi-line scripts survive the shell round-trip.
func sudoCommand(command, password string) string {
	return fmt.Sprintf("echo %s | sudo -S bash -c %s", shellQuote(password), shellQuote(command))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
