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

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// KeychainProvider resolves connection passwords and SUDO_PASSWORD from the
// OS keychain, for operators who don't want credentials sitting in the
// environment of a long-running shell.
//
// Supported platforms:
//   - macOS: Keychain Access
//   - Linux: Secret Service API (GNOME Keyring, KWallet)
//   - Windows: Credential Manager
type KeychainProvider struct {
	service   string
	available bool
}

// NewKeychainProvider creates a keychain secret provider scoped to service
// (typically "actoriac").
func NewKeychainProvider(service string) *KeychainProvider {
	p := &KeychainProvider{service: service, available: true}

	_, err := keyring.Get(service, "__actoriac_availability_test__")
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		p.available = false
	}

	return p
}

// Scheme returns the provider's identifier.
func (k *KeychainProvider) Scheme() string {
	return "keychain"
}

// Resolve retrieves name from the system keychain.
func (k *KeychainProvider) Resolve(ctx context.Context, name string) (string, error) {
	if !k.available {
		return "", &NotFoundError{Name: name}
	}

	value, err := keyring.Get(k.service, name)
	if err != nil {
		return "", &NotFoundError{Name: name}
	}

	return value, nil
}
