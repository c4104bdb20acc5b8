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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"io"
	"os"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
)

// AESGCMProvider resolves secrets from a small encrypted JSON file on disk
// (name -> value), decrypted with a key derived from ACTOR_IAC_SECRET_KEY.
// This is the "secrets-at-rest" path: connection passwords an operator
// wants cached between runs without sitting in the environment or a
// plaintext file.
type AESGCMProvider struct {
	path string
	key  [32]byte
}

// NewAESGCMProvider builds a provider reading path, encrypted with a key
// derived (via SHA-256) from rawKey. rawKey is typically
// os.Getenv("ACTOR_IAC_SECRET_KEY"); this package never reads the env var
// itself, so callers control where the key comes from.
func NewAESGCMProvider(path string, rawKey string) (*AESGCMProvider, error) {
	if rawKey == "" {
		return nil, &pkgerrors.ConfigError{Key: "ACTOR_IAC_SECRET_KEY", Reason: "secret key must not be empty"}
	}
	return &AESGCMProvider{path: path, key: sha256.Sum256([]byte(rawKey))}, nil
}

// Scheme returns the provider's identifier.
func (a *AESGCMProvider) Scheme() string {
	return "aesgcm"
}

// Resolve decrypts the store at path and returns the value for name.
func (a *AESGCMProvider) Resolve(ctx context.Context, name string) (string, error) {
	values, err := a.readAll()
	if err != nil {
		return "", err
	}
	v, ok := values[name]
	if !ok {
		return "", &NotFoundError{Name: name}
	}
	return v, nil
}

// Store encrypts the merged (existing ∪ {name: value}) map back to path.
func (a *AESGCMProvider) Store(ctx context.Context, name, value string) error {
	values, err := a.readAll()
	if err != nil {
		return err
	}
	values[name] = value
	return a.writeAll(values)
}

func (a *AESGCMProvider) readAll() (map[string]string, error) {
	ciphertext, err := os.ReadFile(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, &pkgerrors.InternalError{Reason: "failed to read secrets-at-rest file", Cause: err}
	}

	plaintext, err := decrypt(a.key, ciphertext)
	if err != nil {
		return nil, &pkgerrors.InternalError{Reason: "failed to decrypt secrets-at-rest file", Cause: err}
	}

	var values map[string]string
	if err := json.Unmarshal(plaintext, &values); err != nil {
		return nil, &pkgerrors.InternalError{Reason: "failed to parse decrypted secrets-at-rest file", Cause: err}
	}
	return values, nil
}

func (a *AESGCMProvider) writeAll(values map[string]string) error {
	plaintext, err := json.Marshal(values)
	if err != nil {
		return &pkgerrors.InternalError{Reason: "failed to encode secrets-at-rest file", Cause: err}
	}

	ciphertext, err := encrypt(a.key, plaintext)
	if err != nil {
		return &pkgerrors.InternalError{Reason: "failed to encrypt secrets-at-rest file", Cause: err}
	}

	return os.WriteFile(a.path, ciphertext, 0o600)
}

// encrypt seals plaintext with AES-256-GCM, prefixing the output with a
// freshly generated nonce.
func encrypt(key [32]byte, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt reverses encrypt: the first gcm.NonceSize() bytes of ciphertext
// are the nonce.
func decrypt(key [32]byte, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, &pkgerrors.ValidationError{Field: "ciphertext", Message: "too short to contain a nonce"}
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
