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

package secrets_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/actoriac/internal/secrets"
)

type stubVaultClient struct {
	values map[string]string
}

func (s *stubVaultClient) ReadSecret(ctx context.Context, path, key string) (string, error) {
	v, ok := s.values[path+"#"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func TestVaultProvider_ResolveWithExplicitKey(t *testing.T) {
	client := &stubVaultClient{values: map[string]string{"ssh/prod-web#password": "s3cr3t"}}
	p := secrets.NewVaultProvider(client)

	v, err := p.Resolve(context.Background(), "ssh/prod-web#password")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)
}

func TestVaultProvider_ResolveDefaultsToValueKey(t *testing.T) {
	client := &stubVaultClient{values: map[string]string{"sudo#value": "hunter2"}}
	p := secrets.NewVaultProvider(client)

	v, err := p.Resolve(context.Background(), "sudo")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)
}

func TestVaultProvider_NotFound(t *testing.T) {
	client := &stubVaultClient{values: map[string]string{}}
	p := secrets.NewVaultProvider(client)

	_, err := p.Resolve(context.Background(), "missing")
	require.Error(t, err)
	var nfErr *secrets.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestVaultProvider_Scheme(t *testing.T) {
	p := secrets.NewVaultProvider(&stubVaultClient{})
	assert.Equal(t, "vault", p.Scheme())
}
