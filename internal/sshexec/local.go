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

package sshexec

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// LocalExecutor runs commands as a local subprocess via `bash -c`, used for
// inventory entries with localMode set instead of an SSH connection.
type LocalExecutor struct {
	target Target
}

// NewLocalExecutor returns an Executor that never dials out.
func NewLocalExecutor(target Target) *LocalExecutor {
	return &LocalExecutor{target: target}
}

func (e *LocalExecutor) Execute(ctx context.Context, command string, onLine LineCallback) (*Result, error) {
	return e.run(ctx, command, onLine)
}

func (e *LocalExecutor) ExecuteSudo(ctx context.Context, command, sudoPassword string, onLine LineCallback) (*Result, error) {
	if sudoPassword == "" {
		return nil, &pkgerrors.ValidationError{
			Field:      "SUDO_PASSWORD",
			Message:    "SUDO_PASSWORD not set",
			Suggestion: "export SUDO_PASSWORD before running sudo actions",
		}
	}
	return e.run(ctx, sudoCommand(command, sudoPassword), onLine)
}

func (e *LocalExecutor) Close() error { return nil }

func (e *LocalExecutor) run(ctx context.Context, command string, onLine LineCallback) (*Result, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "failed to open stdout pipe", Cause: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "failed to open stderr pipe", Cause: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "failed to start local command", Cause: err}
	}

	var stdout, stderr strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		streamLines(stdoutPipe, StreamStdout, &stdout, onLine)
	}()
	go func() {
		defer wg.Done()
		streamLines(stderrPipe, StreamStderr, &stderr, onLine)
	}()

	wg.Wait()
	err = cmd.Wait()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if ctx.Err() != nil {
			return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "local command interrupted", Cause: ctx.Err()}
		} else {
			return nil, &pkgerrors.TransportError{Kind: "io", Host: e.target.Host, Message: "local command failed", Cause: err}
		}
	}

	return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

// streamLines reads lines from r, forwarding each to onLine as it completes
// while also appending it (with its newline) to buf for the final capture.
func streamLines(r io.Reader, stream Stream, buf *strings.Builder, onLine LineCallback) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		if onLine != nil {
			onLine(stream, line)
		}
	}
}
