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
	"github.com/tombee/actoriac/internal/output"
)

// NewVersionCommand creates the `actoriac version` command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the actoriac version",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, commit, buildDate := GetVersion()

			if cliutil.GetJSON() {
				return output.EmitJSON(struct {
					output.JSONResponse
					Commit    string `json:"commit"`
					BuildDate string `json:"build_date"`
				}{
					JSONResponse: output.JSONResponse{
						Version: version,
						Command: "version",
						Success: true,
					},
					Commit:    commit,
					BuildDate: buildDate,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "actoriac %s (%s, built %s)\n", version, commit, buildDate)
			return nil
		},
	}
}
