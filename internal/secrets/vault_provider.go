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

package secrets

import "context"

// vaultClient is the narrow slice of internal/vault.Client this package
// depends on. The core never imports internal/vault directly; it only
// ever sees the Provider interface below.
type vaultClient interface {
	ReadSecret(ctx context.Context, secretPath, key string) (string, error)
}

// VaultProvider resolves secrets from a Vault KV v2 mount. name is
// interpreted as "path#key" ("ssh/prod-web#password"); a bare name with no
// "#" reads the "value" key, matching how a single-value secret is
// typically written to Vault.
type VaultProvider struct {
	client vaultClient
}

// NewVaultProvider wraps client (normally an *internal/vault.Client) as a
// Provider.
func NewVaultProvider(client vaultClient) *VaultProvider {
	return &VaultProvider{client: client}
}

// Scheme returns the provider's identifier.
func (v *VaultProvider) Scheme() string {
	return "vault"
}

// Resolve splits name into a Vault secret path and field, then reads it.
func (v *VaultProvider) Resolve(ctx context.Context, name string) (string, error) {
	secretPath, key := splitVaultName(name)
	value, err := v.client.ReadSecret(ctx, secretPath, key)
	if err != nil {
		return "", &NotFoundError{Name: name}
	}
	return value, nil
}

func splitVaultName(name string) (path, key string) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '#' {
			return name[:i], name[i+1:]
		}
	}
	return name, "value"
}
