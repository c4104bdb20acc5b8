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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tombee/actoriac/internal/secrets"
)

type stubProvider struct {
	scheme string
	values map[string]string
}

func (s *stubProvider) Scheme() string { return s.scheme }

func (s *stubProvider) Resolve(ctx context.Context, name string) (string, error) {
	if v, ok := s.values[name]; ok {
		return v, nil
	}
	return "", &secrets.NotFoundError{Name: name}
}

func TestEnvProvider_Resolve(t *testing.T) {
	t.Setenv("SUDO_PASSWORD", "hunter2")

	p := secrets.NewEnvProvider()
	v, err := p.Resolve(context.Background(), "SUDO_PASSWORD")
	require.NoError(t, err)
	require.Equal(t, "hunter2", v)
}

func TestEnvProvider_NotFound(t *testing.T) {
	p := secrets.NewEnvProvider()
	_, err := p.Resolve(context.Background(), "ACTORIAC_DOES_NOT_EXIST")
	require.Error(t, err)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	empty := &stubProvider{scheme: "empty", values: map[string]string{}}
	fallback := &stubProvider{scheme: "fallback", values: map[string]string{"web1": "s3cr3t"}}

	chain := secrets.NewChain(empty, fallback)
	v, err := chain.Resolve(context.Background(), "web1")
	require.NoError(t, err)
	require.Equal(t, "s3cr3t", v)
}

func TestChain_AllFail(t *testing.T) {
	empty := &stubProvider{scheme: "empty", values: map[string]string{}}

	chain := secrets.NewChain(empty)
	_, err := chain.Resolve(context.Background(), "missing")
	require.Error(t, err)
}
