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

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/actor"
	"github.com/tombee/actoriac/internal/cli/format"
	"github.com/tombee/actoriac/internal/cli/prompt"
	"github.com/tombee/actoriac/internal/cli/timeline"
	"github.com/tombee/actoriac/internal/cliutil"
	"github.com/tombee/actoriac/internal/config"
	"github.com/tombee/actoriac/internal/groupbinding"
	"github.com/tombee/actoriac/internal/inventory"
	"github.com/tombee/actoriac/internal/metrics"
	"github.com/tombee/actoriac/internal/outputmux"
	"github.com/tombee/actoriac/internal/secrets"
	"github.com/tombee/actoriac/internal/sessionstore"
	"github.com/tombee/actoriac/internal/tracing"
	"github.com/tombee/actoriac/internal/vault"
)

// runOptions holds the flag values for the run command.
type runOptions struct {
	inventoryPath string
	workflowPath  string
	overlayPath   string
	limit         []string
	labels        []string
	askPass       bool
	timeout       time.Duration
	maxIterations int
	watch         bool
	showTimeline  bool
}

// NewRunCommand creates the `actoriac run` command, the CLI's single entry
// point into the execution kernel.
func NewRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow against an inventory",
		Long: `Run drives a workflow document to completion against a host inventory.

It resolves the group actor's workflow, which in turn creates one node actor
per matched host and fans commands out to them. The session's stdout/stderr
and action results are recorded in the session store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inventoryPath, "inventory", "", "Path to the host inventory (INI or YAML)")
	cmd.Flags().StringVar(&opts.workflowPath, "workflow", "", "Path to the workflow document (required)")
	cmd.Flags().StringVar(&opts.overlayPath, "overlay", "", "Path to an overlay document merged over --workflow")
	cmd.Flags().StringSliceVar(&opts.limit, "limit", nil, "Restrict execution to these hostnames (comma-separated, repeatable)")
	cmd.Flags().StringSliceVar(&opts.labels, "label", nil, "Attach a k=v label to this session (repeatable)")
	cmd.Flags().BoolVar(&opts.askPass, "ask-pass", false, "Prompt for SUDO_PASSWORD instead of reading the environment")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "Abort the session after this long (0 = unbounded beyond --max-iterations)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 10000, "Transition loop guard for the top-level workflow")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Re-run the workflow whenever --workflow changes on disk")
	cmd.Flags().BoolVar(&opts.showTimeline, "timeline", false, "Render an ASCII timeline of the session's actions on completion")

	_ = cmd.MarkFlagRequired("workflow")

	return cmd
}

func runWorkflow(cmd *cobra.Command, opts *runOptions) error {
	if !opts.watch {
		return runOnce(cmd, opts)
	}
	return runWatch(cmd, opts)
}

// runWatch re-invokes runOnce every time opts.workflowPath changes, per
// SPEC_FULL §6's "developer convenience; each change is still one
// complete, isolated run -- no cross-session state".
func runWatch(cmd *cobra.Command, opts *runOptions) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cliutil.NewConfigError("failed to start file watcher", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(opts.workflowPath)); err != nil {
		return cliutil.NewConfigError("failed to watch workflow directory", err)
	}

	target := filepath.Clean(opts.workflowPath)

	if err := runOnce(cmd, opts); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Error:", err)
	}

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\n--- workflow changed, re-running ---")
			if err := runOnce(cmd, opts); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Error:", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "watch error:", err)
		}
	}
}

func runOnce(cmd *cobra.Command, opts *runOptions) error {
	ctx := context.Background()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	cfg, err := config.LoadSettings(cliutil.GetConfigPath())
	if err != nil {
		return cliutil.NewConfigError("failed to load configuration", err)
	}

	traceWriter := io.Writer(io.Discard)
	if cliutil.GetVerbose() {
		traceWriter = cmd.ErrOrStderr()
	}
	version, _, _ := GetVersion()
	shutdownTracing, err := tracing.Setup(traceWriter, version)
	if err != nil {
		return cliutil.NewConfigError("failed to set up tracing", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	inv, err := loadInventory(opts.inventoryPath, cfg)
	if err != nil {
		return cliutil.NewConfigError("failed to load inventory", err)
	}

	if opts.askPass {
		if err := collectSudoPassword(cmd); err != nil {
			return cliutil.NewConfigError("failed to collect sudo password", err)
		}
	} else if _, set := os.LookupEnv("SUDO_PASSWORD"); !set {
		resolveSudoPasswordFromChain(ctx, cfg)
	}

	storePath := cfg.Session.StorePath
	if storePath == "" {
		dir, dirErr := config.ConfigDir()
		if dirErr != nil {
			return cliutil.NewConfigError("failed to resolve session store location", dirErr)
		}
		storePath = filepath.Join(dir, "sessions.db")
	}

	store, err := sessionstore.New(sessionstore.Config{Path: storePath, WAL: true})
	if err != nil {
		return cliutil.NewConfigError("failed to open session store", err)
	}
	defer store.Close()

	nodeCount := 0
	if inv != nil {
		nodeCount = len(inv.Hostnames())
	}

	sessionID, err := store.StartSession(ctx, opts.workflowPath, opts.overlayPath, opts.inventoryPath, nodeCount, sessionOptions(opts))
	if err != nil {
		return cliutil.NewConfigError("failed to start session", err)
	}

	kernel := actor.NewKernel()
	mux := outputmux.New()

	logWriter, err := kernel.CreateRoot("log-writer", struct{}{})
	if err != nil {
		return cliutil.NewConfigError("failed to start log writer", err)
	}
	logWrite := func(fn func()) {
		done, tellErr := kernel.Tell(ctx, logWriter, actor.LogWriterPool, func(context.Context) { fn() })
		if tellErr != nil {
			fn()
			return
		}
		<-done
	}

	metricsReg := metrics.New()

	gb := groupbinding.New(groupbinding.Config{
		Kernel:          kernel,
		Inventory:       inv,
		Limit:           opts.limit,
		Mux:             mux,
		Store:           store,
		LogWrite:        logWrite,
		SessionID:       sessionID,
		WorkflowPath:    opts.workflowPath,
		OverlayPath:     opts.overlayPath,
		WorkflowBaseDir: filepath.Dir(opts.workflowPath),
		OverlayDir:      filepath.Dir(opts.overlayPath),
		Metrics:         metricsReg,
	})

	groupActor, err := kernel.CreateRoot("group", gb)
	if err != nil {
		return cliutil.NewConfigError("failed to start group actor", err)
	}
	gb.SetSelf(groupActor)

	runResult, err := kernel.Ask(ctx, groupActor, actor.DefaultPool, func(ctx context.Context) (any, error) {
		return gb.Run(ctx, opts.maxIterations)
	})
	if err != nil {
		_ = store.EndSession(ctx, sessionID, sessionstore.SessionAborted)
		metricsReg.ObserveSession(string(sessionstore.SessionAborted))
		return cliutil.NewExecutionError("workflow aborted", err)
	}

	actionResult, _ := runResult.(action.Result)

	summary, summaryErr := store.GetSummary(ctx, sessionID)
	failed := summaryErr == nil && summary.FailedCount > 0

	status := sessionstore.SessionCompleted
	if !actionResult.Success || failed {
		status = sessionstore.SessionFailed
	}
	if err := store.EndSession(ctx, sessionID, status); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: failed to finalize session:", err)
	}
	metricsReg.ObserveSession(string(status))

	printMuxOutput(cmd, mux, cliutil.GetQuiet())

	summaryResult, sErr := kernel.Ask(ctx, groupActor, actor.DefaultPool, func(ctx context.Context) (any, error) {
		return gb.Invoke(ctx, "printSessionSummary", nil)
	})
	if sErr == nil {
		if r, ok := summaryResult.(action.Result); ok {
			fmt.Fprintln(cmd.OutOrStdout(), r.Result)
		}
	}

	if opts.showTimeline {
		renderTimeline(cmd, store, sessionID)
	}

	if status == sessionstore.SessionFailed {
		return cliutil.NewExecutionError(fmt.Sprintf("session %s failed", sessionID), nil)
	}
	return nil
}

func loadInventory(path string, cfg *config.Config) (*inventory.Inventory, error) {
	if path == "" {
		path = cfg.Inventory.DefaultPath
	}
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return inventory.ParseYAML(f)
	default:
		return inventory.ParseINI(f)
	}
}

// resolveSudoPasswordFromChain tries the keychain provider (when enabled in
// config) and, if VAULT_ADDR/VAULT_TOKEN are set, a Vault provider, for
// SUDO_PASSWORD, since nb.runCommand only ever reads it back from the
// environment. A miss here is not fatal: --ask-pass or a sudo action
// failing downstream are both still available fallbacks.
func resolveSudoPasswordFromChain(ctx context.Context, cfg *config.Config) {
	var providers []secrets.Provider
	if cfg.Secrets.UseKeyring {
		providers = append(providers, secrets.NewKeychainProvider(cfg.Secrets.KeyringService))
	}
	if cfg.Secrets.AtRestFilePath != "" {
		if secretKey := os.Getenv("ACTOR_IAC_SECRET_KEY"); secretKey != "" {
			if p, err := secrets.NewAESGCMProvider(cfg.Secrets.AtRestFilePath, secretKey); err == nil {
				providers = append(providers, p)
			}
		}
	}
	if vaultCfg, ok := vault.EnvConfig(os.LookupEnv); ok {
		if cfg.Vault.Mount != "" {
			vaultCfg.Mount = cfg.Vault.Mount
		}
		if client, err := vault.New(vaultCfg); err == nil {
			providers = append(providers, secrets.NewVaultProvider(client))
		}
	}
	if len(providers) == 0 {
		return
	}

	chain := secrets.NewChain(providers...)
	value, err := chain.Resolve(ctx, "SUDO_PASSWORD")
	if err != nil || value == "" {
		return
	}
	_ = os.Setenv("SUDO_PASSWORD", value)
}

func collectSudoPassword(cmd *cobra.Command) error {
	sp := prompt.NewSurveyPrompter(format.IsTTY())
	if !sp.IsInteractive() {
		return fmt.Errorf("--ask-pass requires an interactive terminal")
	}
	password, err := sp.PromptString(cmd.Context(), "SUDO_PASSWORD", "sudo password for remote hosts", "")
	if err != nil {
		return err
	}
	return os.Setenv("SUDO_PASSWORD", password)
}

// sessionOptions folds ambient process context -- cwd, git identity, the
// raw command line, build version, and any --label pairs -- into the
// session record. Labels have no dedicated column in the sessions table
// (spec.md §6 only names workflow/overlay/inventory/node_count), so they
// are appended to CommandLine rather than requiring a schema migration.
func sessionOptions(opts *runOptions) sessionstore.SessionOptions {
	cwd, _ := os.Getwd()
	version, commit, _ := GetVersion()

	commandLine := strings.Join(os.Args, " ")
	if len(opts.labels) > 0 {
		sorted := append([]string(nil), opts.labels...)
		sort.Strings(sorted)
		commandLine = commandLine + " [labels: " + strings.Join(sorted, ",") + "]"
	}

	return sessionstore.SessionOptions{
		Cwd:           cwd,
		GitCommit:     gitField("rev-parse", "HEAD"),
		GitBranch:     gitField("rev-parse", "--abbrev-ref", "HEAD"),
		CommandLine:   commandLine,
		Version:       version,
		VersionCommit: commit,
	}
}

// gitField runs a short-lived git subprocess for best-effort repository
// identity; an error (not a git checkout, no git binary) just yields "".
func gitField(args ...string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "git", args...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func printMuxOutput(cmd *cobra.Command, mux *outputmux.Multiplexer, quiet bool) {
	if quiet {
		return
	}
	out := cmd.OutOrStdout()
	for _, source := range mux.Sources() {
		for _, line := range mux.LinesFor(source) {
			fmt.Fprintf(out, "[%s] %s\n", source, line.Text)
		}
	}
}

func renderTimeline(cmd *cobra.Command, store *sessionstore.Store, sessionID string) {
	summary, err := store.GetSummary(cmd.Context(), sessionID)
	if err != nil {
		return
	}

	var steps []timeline.Step
	for _, nr := range summary.NodeResults {
		entries, entriesErr := store.GetLogsByNode(cmd.Context(), sessionID, nr.NodeID)
		if entriesErr != nil {
			continue
		}
		for _, e := range entries {
			if e.ActionName == "" || e.DurationMs == nil {
				continue
			}
			end := e.Timestamp
			start := end.Add(-time.Duration(*e.DurationMs) * time.Millisecond)
			steps = append(steps, timeline.Step{
				Host:      e.NodeID,
				Action:    e.ActionName,
				StartTime: start,
				EndTime:   end,
				Success:   e.ExitCode == nil || *e.ExitCode == 0,
			})
		}
	}

	if len(steps) == 0 {
		return
	}

	renderer, err := timeline.NewRenderer()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "timeline unavailable:", err)
		return
	}
	rendered, err := renderer.Render(sessionID, steps)
	if err != nil {
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
}
