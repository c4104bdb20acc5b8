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

// Package nodebinding implements the node actor's action set (C9): the
// handlers a host actor exposes to the workflow interpreter and, via
// internal/dispatch, to the group actor's `apply` fan-out.
package nodebinding

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/actor"
	"github.com/tombee/actoriac/internal/inventory"
	"github.com/tombee/actoriac/internal/jsonstate"
	"github.com/tombee/actoriac/internal/metrics"
	"github.com/tombee/actoriac/internal/outputmux"
	"github.com/tombee/actoriac/internal/sessionstore"
	"github.com/tombee/actoriac/internal/sshexec"
	"github.com/tombee/actoriac/internal/workflow"
	pkgerrors "github.com/tombee/actoriac/pkg/errors"
	pkgsecrets "github.com/tombee/actoriac/pkg/secrets"
)

// Config is everything a node actor needs at construction, all of it owned
// by the caller (internal/groupbinding's createNodeActors) and only
// referenced here.
type Config struct {
	ActorName string
	Host      inventory.Host
	Self      *actor.Actor
	Kernel    *actor.Kernel

	Mux   *outputmux.Multiplexer
	Store *sessionstore.Store
	// LogWrite routes fn through the dedicated single-worker log-writer
	// pool, so every C3 write across every node is serialised regardless
	// of which node produced it.
	LogWrite func(fn func())

	SessionID       string
	WorkflowBaseDir string
	OverlayDir      string

	// WorkflowPath and OverlayPath name this actor's own top-level workflow
	// document, lazily loaded the first time runUntilEnd or execCode runs
	// against it (internal/groupbinding sets these from the --workflow and
	// --overlay CLI flags).
	WorkflowPath string
	OverlayPath  string

	// Metrics is optional; nil disables recording (e.g. in tests that don't
	// care about it).
	Metrics *metrics.Registry
}

// NodeBinding is the Obj a node actor wraps; it implements
// dispatch.Invoker.
type NodeBinding struct {
	cfg      Config
	executor sshexec.Executor
	state    *jsonstate.State

	currentTransitionLabel string
	dispatchFn             action.Dispatcher
	interp                 *workflow.Interpreter
	callCounter            int
	masker                 *pkgsecrets.Masker

	actions map[string]func(ctx context.Context, args json.RawMessage) (action.Result, error)
}

// New builds a NodeBinding and its explicit action dispatch table. Command
// output is scrubbed through a Masker seeded from the process environment
// before it ever reaches the output multiplexer or the session store, so a
// command that echoes SUDO_PASSWORD back (common with verbose sudo
// failures) doesn't leak it into a terminal or a session log.
func New(cfg Config) *NodeBinding {
	nb := &NodeBinding{
		cfg:    cfg,
		state:  jsonstate.New(cfg.ActorName),
		masker: maskerFromEnv(),
	}
	nb.dispatchFn = func(ctx context.Context, actorName, method string, args []string) (action.Result, error) {
		return nb.Invoke(ctx, method, args)
	}
	nb.actions = nb.buildActions()
	return nb
}

func maskerFromEnv() *pkgsecrets.Masker {
	m := pkgsecrets.NewMasker()
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	m.AddSecretsFromEnv(env)
	return m
}

// Invoke marshals args to JSON and dispatches to the named handler,
// matching the explicit map[string]func(ctx, argsJSON) (*ActionResult,
// error) shape from SPEC_FULL §4.9. Unknown methods and transport/parse
// errors both yield a failed ActionResult rather than propagating an
// error, per spec.md §4.7/§7 ("transport/parse errors yield
// ActionResult(false, <message>) and do not throw").
func (nb *NodeBinding) Invoke(ctx context.Context, method string, args []string) (action.Result, error) {
	handler, ok := nb.actions[method]
	if !ok {
		return action.Result{Success: false, Result: "unknown action: " + method}, nil
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}

	result, err := handler(ctx, raw)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	return result, nil
}

func (nb *NodeBinding) buildActions() map[string]func(ctx context.Context, args json.RawMessage) (action.Result, error) {
	return map[string]func(ctx context.Context, args json.RawMessage) (action.Result, error){
		"executeCommand":          nb.executeCommand,
		"executeCommandQuiet":     nb.executeCommandQuiet,
		"executeSudoCommand":      nb.executeSudoCommand,
		"executeSudoCommandQuiet": nb.executeSudoCommandQuiet,
		"sleep":                   nb.sleepAction,
		"print":                   nb.printAction,
		"doNothing":               nb.doNothing,
		"readYaml":                nb.readYaml,
		"readJson":                nb.readJSON,
		"readXml":                 nb.readXML,
		"reset":                   nb.reset,
		"execCode":                nb.execCode,
		"runUntilEnd":             nb.runUntilEnd,
		"runWorkflow":             nb.runWorkflow,
		"call":                    nb.call,
		"printJson":               nb.printJSON,
		"printYaml":               nb.printYAML,
	}
}

// executor lazily dials the target on first use, matching SPEC_FULL §4.1's
// "opened lazily on first Execute call" rule.
func (nb *NodeBinding) getExecutor() (sshexec.Executor, error) {
	if nb.executor != nil {
		return nb.executor, nil
	}

	target := sshexec.Target{
		Host:      nb.cfg.Host.Name,
		Address:   nb.cfg.Host.Address,
		User:      nb.cfg.Host.User,
		Port:      nb.cfg.Host.Port,
		Password:  nb.cfg.Host.Password,
		LocalMode: nb.cfg.Host.LocalMode(),
	}
	if id, ok := nb.cfg.Host.Tags["actoriac_identity_file"]; ok {
		target.IdentityFile = id
	} else if id, ok := nb.cfg.Host.Tags["ansible_ssh_private_key_file"]; ok {
		target.IdentityFile = id
	}

	executor, err := sshexec.NewExecutor(target)
	if err != nil {
		return nil, err
	}
	nb.executor = executor
	return executor, nil
}

// SetSelf records the kernel actor this binding was registered as, once its
// caller (internal/groupbinding's createNodeActors) has created it -- needed
// before call() can spin up a child of this node.
func (nb *NodeBinding) SetSelf(self *actor.Actor) {
	nb.cfg.Self = self
}

// Close releases the underlying executor's connection, if one was opened.
func (nb *NodeBinding) Close() error {
	if nb.executor == nil {
		return nil
	}
	return nb.executor.Close()
}

func firstArg(raw json.RawMessage) (string, error) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", &pkgerrors.ValidationError{Field: "arguments", Message: err.Error()}
	}
	if len(args) == 0 {
		return "", &pkgerrors.ValidationError{Field: "arguments", Message: "expected at least one argument"}
	}
	return args[0], nil
}

func allArgs(raw json.RawMessage) ([]string, error) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &pkgerrors.ValidationError{Field: "arguments", Message: err.Error()}
	}
	return args, nil
}

func (nb *NodeBinding) interpreterFor(def *workflow.Definition) *workflow.Interpreter {
	onEnter := func(t workflow.Transition) {
		nb.currentTransitionLabel = t.Label
		if nb.cfg.LogWrite != nil && nb.cfg.Store != nil {
			nb.cfg.LogWrite(func() {
				_ = nb.cfg.Store.Log(context.Background(), nb.cfg.SessionID, nb.cfg.ActorName, t.Label, sessionstore.LevelInfo, "entering transition "+t.Label)
			})
		}
	}
	return workflow.New(def, nb.state, nb.dispatchFn, onEnter)
}
