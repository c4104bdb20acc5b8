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
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tombee/actoriac/internal/cli/format"
	"github.com/tombee/actoriac/internal/cli/style"
)

const starterInventory = `[web]
web1.example.com ansible_user=deploy
web2.example.com ansible_user=deploy

[web:vars]
env=production
`

const starterWorkflowTmpl = `name: %s
transitions:
  - states: ["0", "1"]
    label: check uptime
    actions:
      - actor: web
        method: executeCommand
        arguments: ["uptime"]
  - states: ["1", "end"]
    label: done
    actions:
      - actor: group
        method: printSessionSummary
`

type initOptions struct {
	dir         string
	projectName string
	force       bool
}

// NewInitCommand creates the `actoriac init` command: an interactive
// scaffold wizard that writes a starter inventory + workflow pair.
func NewInitCommand() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a starter inventory and workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.dir, "dir", ".", "Directory to write the scaffold into")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite existing inventory.ini / workflow.yaml")

	return cmd
}

func runInit(cmd *cobra.Command, opts *initOptions) error {
	if format.IsTTY() {
		if err := collectInitAnswers(opts); err != nil {
			if err == huh.ErrUserAborted {
				os.Exit(130)
			}
			return err
		}
	}
	if opts.projectName == "" {
		opts.projectName = "starter"
	}

	inventoryPath := filepath.Join(opts.dir, "inventory.ini")
	workflowPath := filepath.Join(opts.dir, "workflow.yaml")

	if !opts.force {
		if _, err := os.Stat(inventoryPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", inventoryPath)
		}
		if _, err := os.Stat(workflowPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", workflowPath)
		}
	}

	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.dir, err)
	}

	if err := os.WriteFile(inventoryPath, []byte(starterInventory), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", inventoryPath, err)
	}
	if err := os.WriteFile(workflowPath, []byte(fmt.Sprintf(starterWorkflowTmpl, opts.projectName)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", workflowPath, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), style.RenderOK(fmt.Sprintf("scaffolded %s and %s", inventoryPath, workflowPath)))
	fmt.Fprintln(cmd.OutOrStdout(), style.Header.Render("Next steps:"))
	fmt.Fprintf(cmd.OutOrStdout(), "  actoriac validate --inventory %s --workflow %s\n", inventoryPath, workflowPath)
	fmt.Fprintf(cmd.OutOrStdout(), "  actoriac run --inventory %s --workflow %s\n", inventoryPath, workflowPath)
	return nil
}

// collectInitAnswers runs the interactive huh form for the scaffold's
// project name and destination directory; both already have sane zero
// values, so this step is a convenience, not a requirement.
func collectInitAnswers(opts *initOptions) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("Used as the workflow document's name field").
				Placeholder("starter").
				Value(&opts.projectName),
			huh.NewInput().
				Title("Destination directory").
				Description("Where inventory.ini and workflow.yaml are written").
				Placeholder(".").
				Value(&opts.dir),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	if opts.dir == "" {
		opts.dir = "."
	}
	return nil
}
