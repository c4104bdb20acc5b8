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

// Package vault is a thin REST client against a HashiCorp Vault KV v2
// mount, just enough surface for internal/secrets to pull connection
// passwords and sudo credentials out of Vault instead of the environment
// or OS keychain. It never becomes a dependency of the core: everything
// downstream of internal/secrets sees the narrow secrets.Provider
// interface, not *Client.
package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// Client is a thin REST client against a Vault KV v2 mount, authenticated
// with a static or oauth2-refreshed bearer token.
type Client struct {
	addr       string
	mount      string
	httpClient *http.Client
}

// Config configures a Client. Token is used directly as the X-Vault-Token
// header unless TokenSource is set, in which case every request pulls a
// fresh token from it (letting a caller wire short-lived tokens via
// golang.org/x/oauth2 without this package knowing how they're minted).
type Config struct {
	Addr        string
	Mount       string
	Token       string
	TokenSource oauth2.TokenSource
	Timeout     time.Duration
}

// New builds a Client. Addr and Mount are required; Token or TokenSource
// must supply at least one authentication mechanism.
func New(cfg Config) (*Client, error) {
	if cfg.Addr == "" {
		return nil, &pkgerrors.ConfigError{Key: "vault.addr", Reason: "VAULT_ADDR is required"}
	}
	if cfg.Mount == "" {
		cfg.Mount = "secret"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenSource != nil {
		httpClient = oauth2.NewClient(context.Background(), cfg.TokenSource)
		httpClient.Timeout = cfg.Timeout
	}

	c := &Client{
		addr:       strings.TrimRight(cfg.Addr, "/"),
		mount:      cfg.Mount,
		httpClient: httpClient,
	}
	if cfg.TokenSource == nil {
		c.httpClient = withStaticToken(httpClient, cfg.Token)
	}
	return c, nil
}

// kvResponse is the subset of Vault's KV v2 read response this client
// cares about: {"data": {"data": {...}, "metadata": {...}}}.
type kvResponse struct {
	Data struct {
		Data map[string]string `json:"data"`
	} `json:"data"`
}

// ReadSecret fetches the key field at path under the configured mount's
// data/ prefix (KV v2 convention) and returns the value for key.
func (c *Client) ReadSecret(ctx context.Context, secretPath, key string) (string, error) {
	u := fmt.Sprintf("%s/v1/%s/data/%s", c.addr, c.mount, path.Clean(strings.TrimLeft(secretPath, "/")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &pkgerrors.TransportError{Kind: "io", Host: c.addr, Message: "failed to build request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &pkgerrors.TransportError{Kind: "connect", Host: c.addr, Message: "vault request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", &pkgerrors.NotFoundError{Resource: "vault secret", ID: secretPath}
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return "", &pkgerrors.TransportError{Kind: "auth", Host: c.addr, Message: fmt.Sprintf("vault returned %d for %s", resp.StatusCode, secretPath)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &pkgerrors.TransportError{Kind: "io", Host: c.addr, Message: fmt.Sprintf("vault returned unexpected status %d", resp.StatusCode)}
	}

	var body kvResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &pkgerrors.TransportError{Kind: "io", Host: c.addr, Message: "failed to decode vault response", Cause: err}
	}

	value, ok := body.Data.Data[key]
	if !ok {
		return "", &pkgerrors.NotFoundError{Resource: "vault secret key", ID: secretPath + "#" + key}
	}
	return value, nil
}

// staticTokenTransport attaches X-Vault-Token to every outbound request.
type staticTokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *staticTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-Vault-Token", t.token)
	return t.base.RoundTrip(req)
}

func withStaticToken(base *http.Client, token string) *http.Client {
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   base.Timeout,
		Transport: &staticTokenTransport{token: token, base: transport},
	}
}

// addrFromEnv and mountFromEnv are tiny helpers for CLI wiring, kept here
// rather than in internal/config so the VAULT_ADDR / VAULT_TOKEN env var
// names stay next to the client that consumes them.
func addrFromEnv(lookup func(string) (string, bool)) (string, bool) {
	return lookup("VAULT_ADDR")
}

func tokenFromEnv(lookup func(string) (string, bool)) (string, bool) {
	return lookup("VAULT_TOKEN")
}

// EnvConfig builds a Config from VAULT_ADDR / VAULT_TOKEN / VAULT_MOUNT,
// using lookup (normally os.LookupEnv) so tests can supply a fake
// environment. ok is false if VAULT_ADDR or VAULT_TOKEN is unset, meaning
// Vault is not configured for this run at all.
func EnvConfig(lookup func(string) (string, bool)) (Config, bool) {
	addr, ok := addrFromEnv(lookup)
	if !ok || addr == "" {
		return Config{}, false
	}
	token, ok := tokenFromEnv(lookup)
	if !ok || token == "" {
		return Config{}, false
	}
	mount := "secret"
	if m, set := lookup("VAULT_MOUNT"); set && m != "" {
		mount = m
	}
	return Config{Addr: addr, Token: token, Mount: mount}, true
}
