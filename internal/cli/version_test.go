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
	"encoding/json"
	"strings"
	"testing"

	"github.com/tombee/actoriac/internal/cliutil"
)

func TestVersionCommandHumanOutput(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2025-12-22")

	cmd := NewVersionCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "1.2.3") {
		t.Errorf("expected output to contain version, got %q", output)
	}
	if !strings.Contains(output, "abc123") {
		t.Errorf("expected output to contain commit, got %q", output)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2025-12-22")
	cliutil.SetJSONForTest(true)
	defer cliutil.SetJSONForTest(false)

	cmd := NewVersionCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var resp struct {
		Version string `json:"version"`
		Command string `json:"command"`
		Success bool   `json:"success"`
		Commit  string `json:"commit"`
	}
	if err := json.Unmarshal(buf.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse JSON output: %v\noutput: %s", err, buf.String())
	}

	if resp.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", resp.Version)
	}
	if resp.Command != "version" {
		t.Errorf("expected command 'version', got %q", resp.Command)
	}
	if !resp.Success {
		t.Error("expected success true")
	}
	if resp.Commit != "abc123" {
		t.Errorf("expected commit abc123, got %q", resp.Commit)
	}
}
