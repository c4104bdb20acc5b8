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
	"github.com/spf13/cobra"
	"github.com/tombee/actoriac/internal/cliutil"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	cliutil.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for actoriac.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actoriac",
		Short: "actoriac - agentless SSH infrastructure automation",
		Long: `actoriac drives workflows of SSH commands across a host inventory.
It provides a simple, declarative way to define multi-step provisioning
and operations processes and execute them across a fleet of hosts.

Run 'actoriac validate' to check a workflow and inventory before running.
Run 'actoriac run' to execute a workflow against an inventory.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	// Get flag pointers from the cliutil package
	verbose, quiet, json, config := cliutil.RegisterFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/actoriac/settings.yaml)")

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return cliutil.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	cliutil.HandleExitError(err)
}
