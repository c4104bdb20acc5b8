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

package nodebinding

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/outputmux"
	"github.com/tombee/actoriac/internal/sshexec"
)

func (nb *NodeBinding) executeCommand(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return nb.runCommand(ctx, raw, commandOpts{sudo: false, quiet: false})
}

func (nb *NodeBinding) executeCommandQuiet(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return nb.runCommand(ctx, raw, commandOpts{sudo: false, quiet: true})
}

func (nb *NodeBinding) executeSudoCommand(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return nb.runCommand(ctx, raw, commandOpts{sudo: true, quiet: false})
}

func (nb *NodeBinding) executeSudoCommandQuiet(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return nb.runCommand(ctx, raw, commandOpts{sudo: true, quiet: true})
}

type commandOpts struct {
	sudo  bool
	quiet bool
}

// runCommand is the shared body behind all four executeCommand variants:
// the quiet/sudo axes only change output formatting, C4/C3 reporting, and
// the auth path, never the underlying C1 call discipline.
func (nb *NodeBinding) runCommand(ctx context.Context, raw json.RawMessage, opts commandOpts) (action.Result, error) {
	command, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}

	executor, err := nb.getExecutor()
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	var stdout, stderr string
	onLine := func(stream sshexec.Stream, line string) {
		if opts.quiet {
			return
		}
		lineType := outputmux.LineStdout
		if stream == sshexec.StreamStderr {
			lineType = outputmux.LineStderr
		}
		if nb.cfg.Mux != nil {
			nb.cfg.Mux.Write(nb.cfg.ActorName, lineType, nb.masker.Mask(line), nb.currentTransitionLabel)
		}
	}

	var result *sshexec.Result
	started := time.Now()
	if opts.sudo {
		password := os.Getenv("SUDO_PASSWORD")
		if password == "" {
			if !opts.quiet && nb.cfg.Mux != nil {
				nb.cfg.Mux.Write(nb.cfg.ActorName, outputmux.LineStderr, "[FAIL] SUDO_PASSWORD not set", nb.currentTransitionLabel)
			}
			return action.Result{Success: false, Result: "SUDO_PASSWORD not set"}, nil
		}
		result, err = executor.ExecuteSudo(ctx, command, password, onLine)
	} else {
		result, err = executor.Execute(ctx, command, onLine)
	}
	durationMs := time.Since(started).Milliseconds()
	if err != nil {
		if nb.cfg.Metrics != nil {
			nb.cfg.Metrics.ObserveAction("node", "executeCommand", false, time.Since(started).Seconds())
		}
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	stdout, stderr = result.Stdout, result.Stderr

	if nb.cfg.Metrics != nil {
		nb.cfg.Metrics.ObserveAction("node", "executeCommand", result.ExitCode == 0, float64(durationMs)/1000)
	}

	if opts.quiet {
		return action.Result{
			Success: result.ExitCode == 0,
			Result:  nb.masker.Mask(fmt.Sprintf("exitCode=%d, stdout=%s, stderr=%s", result.ExitCode, stdout, stderr)),
		}, nil
	}

	combined := nb.masker.Mask(stdout + stderr)
	if nb.cfg.Mux != nil {
		nb.cfg.Mux.Write(nb.cfg.ActorName, outputmux.LineStdout, summaryLine(command, result.ExitCode), nb.currentTransitionLabel)
	}

	if nb.cfg.LogWrite != nil && nb.cfg.Store != nil {
		exitCode := result.ExitCode
		nb.cfg.LogWrite(func() {
			_ = nb.cfg.Store.LogAction(context.Background(), nb.cfg.SessionID, nb.cfg.ActorName, nb.currentTransitionLabel, "executeCommand", exitCode, durationMs, combined)
		})
	}

	return action.Result{Success: result.ExitCode == 0, Result: combined}, nil
}

func summaryLine(command string, exitCode int) string {
	marker := "[OK]"
	if exitCode != 0 {
		marker = "[ERROR]"
	}
	return fmt.Sprintf("%s %s (exit %d)", marker, command, exitCode)
}

func (nb *NodeBinding) sleepAction(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	arg, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}

	var millis int
	if _, scanErr := fmt.Sscanf(arg, "%d", &millis); scanErr != nil {
		return action.Result{Success: false, Result: "invalid duration: " + arg}, nil
	}

	select {
	case <-ctx.Done():
		return action.Result{Success: false, Result: ctx.Err().Error()}, nil
	case <-time.After(time.Duration(millis) * time.Millisecond):
	}
	return action.Result{Success: true, Result: arg}, nil
}

func (nb *NodeBinding) printAction(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	text, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}
	if nb.cfg.Mux != nil {
		nb.cfg.Mux.Write(nb.cfg.ActorName, outputmux.LineStdout, text, nb.currentTransitionLabel)
	}
	return action.Result{Success: true, Result: text}, nil
}

func (nb *NodeBinding) doNothing(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	args, err := allArgs(raw)
	if err != nil {
		return action.Result{}, err
	}
	result := ""
	if len(args) > 0 {
		result = args[0]
	}
	return action.Result{Success: true, Result: result}, nil
}
