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

// Package config loads actoriac's on-disk settings: defaults for flags the
// operator would otherwise have to repeat on every invocation (inventory
// path, session store location, keyring service name, Vault address).
package config

// Config is the complete on-disk actoriac configuration.
type Config struct {
	Version int `yaml:"version,omitempty"`

	Log       LogConfig       `yaml:"log"`
	Inventory InventoryConfig `yaml:"inventory"`
	Session   SessionConfig   `yaml:"session"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Vault     VaultConfig     `yaml:"vault"`
	Executor  ExecutorConfig  `yaml:"executor"`
}

// LogConfig holds logger settings. It is loaded and defaulted; the run
// command does not read it.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error). Default: info.
	Level string `yaml:"level"`
	// Format is the log output format (json, text). Default: text.
	Format string `yaml:"format"`
}

// InventoryConfig holds defaults for the inventory loader.
type InventoryConfig struct {
	// DefaultPath is used when --inventory is not passed.
	DefaultPath string `yaml:"default_path,omitempty"`
}

// SessionConfig configures the session log store.
type SessionConfig struct {
	// StorePath is the path to the sqlite session database.
	StorePath string `yaml:"store_path"`
}

// SecretsConfig configures credential resolution.
type SecretsConfig struct {
	// KeyringService is the OS keyring service name used to look up
	// SUDO_PASSWORD and per-host connection passwords when they are not
	// set in the environment.
	KeyringService string `yaml:"keyring_service"`
	// UseKeyring enables the keyring fallback provider.
	UseKeyring bool `yaml:"use_keyring"`
	// AtRestFilePath is the encrypted (AES-GCM, keyed by
	// ACTOR_IAC_SECRET_KEY) store used for credentials an operator wants
	// cached between runs. Empty disables the provider entirely, even if
	// ACTOR_IAC_SECRET_KEY is set.
	AtRestFilePath string `yaml:"at_rest_file_path,omitempty"`
}

// VaultConfig configures the optional HashiCorp Vault REST client.
type VaultConfig struct {
	// Addr is a Vault server address. The run command takes the address
	// from VAULT_ADDR and does not read this field.
	Addr string `yaml:"addr,omitempty"`
	// Mount is the KV mount point secrets are read from.
	Mount string `yaml:"mount,omitempty"`
}

// ExecutorConfig holds SSH connection defaults. The fields are loaded and
// defaulted; the run command and the SSH executor do not read them.
type ExecutorConfig struct {
	// ConnectTimeoutSeconds is an SSH dial timeout in seconds.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	// Port is a default SSH port.
	Port int `yaml:"port"`
	// User is a default SSH user.
	User string `yaml:"user,omitempty"`
}

// Default returns a Config populated with actoriac's built-in defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Session: SessionConfig{
			StorePath: "",
		},
		Secrets: SecretsConfig{
			KeyringService: "actoriac",
			UseKeyring:     false,
		},
		Vault: VaultConfig{
			Mount: "secret",
		},
		Executor: ExecutorConfig{
			ConnectTimeoutSeconds: 15,
			Port:                  22,
		},
	}
}

// applyDefaults fills any zero-valued fields left unset after an on-disk
// config is unmarshalled, so a partial settings.yaml is valid input.
func (c *Config) applyDefaults() {
	d := Default()

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Secrets.KeyringService == "" {
		c.Secrets.KeyringService = d.Secrets.KeyringService
	}
	if c.Vault.Mount == "" {
		c.Vault.Mount = d.Vault.Mount
	}
	if c.Executor.ConnectTimeoutSeconds == 0 {
		c.Executor.ConnectTimeoutSeconds = d.Executor.ConnectTimeoutSeconds
	}
	if c.Executor.Port == 0 {
		c.Executor.Port = d.Executor.Port
	}
}
