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

	"github.com/spf13/cobra"

	"github.com/tombee/actoriac/internal/cliutil"
	"github.com/tombee/actoriac/internal/config"
	"github.com/tombee/actoriac/internal/output"
	"github.com/tombee/actoriac/internal/workflow"
)

type validateOptions struct {
	inventoryPath string
	workflowPath  string
	overlayPath   string
}

// NewValidateCommand creates the `actoriac validate` command: it loads the
// inventory and workflow without creating any actors or touching a host,
// and reports the first parse error it finds.
func NewValidateCommand() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an inventory and workflow document for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.inventoryPath, "inventory", "", "Path to the host inventory (INI or YAML)")
	cmd.Flags().StringVar(&opts.workflowPath, "workflow", "", "Path to the workflow document (required)")
	cmd.Flags().StringVar(&opts.overlayPath, "overlay", "", "Path to an overlay document merged over --workflow")
	_ = cmd.MarkFlagRequired("workflow")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *validateOptions) error {
	cfg, err := config.LoadSettings(cliutil.GetConfigPath())
	if err != nil {
		return reportValidateError(cmd, "config", err)
	}

	var nodeCount int
	if opts.inventoryPath != "" || cfg.Inventory.DefaultPath != "" {
		inv, invErr := loadInventory(opts.inventoryPath, cfg)
		if invErr != nil {
			return reportValidateError(cmd, "inventory", invErr)
		}
		if inv != nil {
			nodeCount = len(inv.Hostnames())
		}
	}

	def, err := workflow.LoadWithOverlay(opts.workflowPath, opts.overlayPath)
	if err != nil {
		return reportValidateError(cmd, "workflow", err)
	}

	if cliutil.GetJSON() {
		return output.EmitJSON(output.JSONResponse{
			Version: "1.0",
			Command: "validate",
			Success: true,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: workflow %q valid, %d transition(s), %d host(s) matched\n", opts.workflowPath, len(def.Transitions), nodeCount)
	return nil
}

// reportValidateError emits a JSON error envelope when --json is set, then
// always returns the ExitError so cli.HandleExitError exits 2 either way.
func reportValidateError(cmd *cobra.Command, stage string, err error) error {
	if cliutil.GetJSON() {
		_ = output.EmitJSONError("validate", []output.JSONError{{
			Code:    stage,
			Message: err.Error(),
		}})
	}
	return cliutil.NewConfigError(fmt.Sprintf("%s validation failed", stage), err)
}
