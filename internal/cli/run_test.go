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
	"bytes"
	"path/filepath"
	"testing"

	"github.com/tombee/actoriac/internal/cliutil"
)

const groupOnlyWorkflowYAML = `name: group-only
transitions:
  - states: ["0", "end"]
    label: summarize
    actions:
      - actor: group
        method: printSessionSummary
`

func TestRunCommandRequiresWorkflowFlag(t *testing.T) {
	cmd := NewRunCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error when --workflow is not set, got nil")
	}
}

func TestRunCommandDrivesGroupOnlyWorkflowToCompletion(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-config"))
	cliutil.SetConfigPathForTest(filepath.Join(dir, "settings.yaml"))
	defer cliutil.SetConfigPathForTest("")

	workflowPath := writeTempFile(t, dir, "workflow.yaml", groupOnlyWorkflowYAML)

	cmd := NewRunCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--workflow", workflowPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v\noutput: %s", err, buf.String())
	}
}

func TestRunCommandFlagsAreRegistered(t *testing.T) {
	cmd := NewRunCommand()

	for _, name := range []string{"inventory", "workflow", "overlay", "limit", "label", "ask-pass", "timeout", "max-iterations", "watch", "timeline"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %q to be registered", name)
		}
	}
}
