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

package vault_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/actoriac/internal/vault"
	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

func TestReadSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/ssh/prod-web", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"data":{"password":"s3cr3t"}}}`))
	}))
	defer srv.Close()

	client, err := vault.New(vault.Config{Addr: srv.URL, Mount: "secret", Token: "test-token"})
	require.NoError(t, err)

	v, err := client.ReadSecret(context.Background(), "ssh/prod-web", "password")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)
}

func TestReadSecretNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := vault.New(vault.Config{Addr: srv.URL, Token: "test-token"})
	require.NoError(t, err)

	_, err = client.ReadSecret(context.Background(), "missing", "password")
	require.Error(t, err)
	var nfErr *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestReadSecretAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := vault.New(vault.Config{Addr: srv.URL, Token: "bad-token"})
	require.NoError(t, err)

	_, err = client.ReadSecret(context.Background(), "ssh/prod-web", "password")
	require.Error(t, err)
	var transportErr *pkgerrors.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "auth", transportErr.Kind)
}

func TestNewRequiresAddr(t *testing.T) {
	_, err := vault.New(vault.Config{Token: "x"})
	require.Error(t, err)
}

func TestEnvConfig(t *testing.T) {
	env := map[string]string{
		"VAULT_ADDR":  "https://vault.internal:8200",
		"VAULT_TOKEN": "s.abc123",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, ok := vault.EnvConfig(lookup)
	require.True(t, ok)
	assert.Equal(t, "https://vault.internal:8200", cfg.Addr)
	assert.Equal(t, "s.abc123", cfg.Token)
	assert.Equal(t, "secret", cfg.Mount)
}

func TestEnvConfigMissingAddr(t *testing.T) {
	lookup := func(k string) (string, bool) { return "", false }

	_, ok := vault.EnvConfig(lookup)
	assert.False(t, ok)
}
