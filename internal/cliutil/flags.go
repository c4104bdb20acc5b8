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

package cliutil

// Global flag values, set by the root command and read by subcommands that
// don't hold their own cobra flag reference.
var (
	verboseFlag bool
	quietFlag   bool
	jsonFlag    bool
	configFlag  string

	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlagPointers returns pointers to the global flag variables, for the
// root command to bind with PersistentFlags().
func RegisterFlagPointers() (*bool, *bool, *bool, *string) {
	return &verboseFlag, &quietFlag, &jsonFlag, &configFlag
}

// SetVersion records build-time version information, called from main.
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the --verbose flag value.
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the --quiet flag value.
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns the --json flag value.
func GetJSON() bool {
	return jsonFlag
}

// GetConfigPath returns the --config flag value.
func GetConfigPath() string {
	return configFlag
}

// GetVersion returns the recorded build-time version information.
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// SetConfigPathForTest overrides the config path outside of flag parsing.
func SetConfigPathForTest(path string) {
	configFlag = path
}

// SetJSONForTest overrides the --json flag value outside of flag parsing.
func SetJSONForTest(v bool) {
	jsonFlag = v
}
