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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/actoriac/internal/secrets"
)

func TestAESGCMProvider_StoreThenResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")

	p, err := secrets.NewAESGCMProvider(path, "correct-horse-battery-staple")
	require.NoError(t, err)

	require.NoError(t, p.Store(context.Background(), "web1-ssh-password", "s3cr3t"))

	v, err := p.Resolve(context.Background(), "web1-ssh-password")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)
}

func TestAESGCMProvider_WrongKeyFailsToDecrypt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")

	writer, err := secrets.NewAESGCMProvider(path, "key-one")
	require.NoError(t, err)
	require.NoError(t, writer.Store(context.Background(), "k", "v"))

	reader, err := secrets.NewAESGCMProvider(path, "key-two")
	require.NoError(t, err)

	_, err = reader.Resolve(context.Background(), "k")
	require.Error(t, err)
}

func TestAESGCMProvider_MissingFileIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.enc")

	p, err := secrets.NewAESGCMProvider(path, "some-key")
	require.NoError(t, err)

	_, err = p.Resolve(context.Background(), "k")
	require.Error(t, err)
	var nfErr *secrets.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
}

func TestNewAESGCMProviderRequiresKey(t *testing.T) {
	_, err := secrets.NewAESGCMProvider("whatever", "")
	require.Error(t, err)
}
