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

package actor

import (
	"context"
	"sync"
	"testing"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKernel_CreateChild_RejectsDuplicateNames(t *testing.T) {
	k := NewKernel()
	root, err := k.CreateRoot("group", nil)
	require.NoError(t, err)

	_, err = k.CreateChild(root, "web1", nil)
	require.NoError(t, err)

	_, err = k.CreateChild(root, "web1", nil)
	require.Error(t, err)
	assert.IsType(t, &pkgerrors.InternalError{}, err)
}

func TestActor_Children_DeterministicOrder(t *testing.T) {
	k := NewKernel()
	root, err := k.CreateRoot("group", nil)
	require.NoError(t, err)

	names := []string{"web3", "web1", "web2"}
	for _, n := range names {
		_, err := k.CreateChild(root, n, nil)
		require.NoError(t, err)
	}

	var got []string
	for _, c := range root.Children() {
		got = append(got, c.Name)
	}
	assert.Equal(t, names, got)
}

func TestKernel_Tell_RunsInSubmittedOrder(t *testing.T) {
	k := NewKernel()
	target, err := k.CreateRoot("node-web1", nil)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var dones []<-chan struct{}

	for i := 0; i < 20; i++ {
		i := i
		done, err := k.Tell(context.Background(), target, DefaultPool, func(ctx context.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
		require.NoError(t, err)
		dones = append(dones, done)
	}

	for _, d := range dones {
		<-d
	}

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, order)
}

func TestKernel_Ask_ReturnsValueAndError(t *testing.T) {
	k := NewKernel()
	target, err := k.CreateRoot("node-web1", nil)
	require.NoError(t, err)

	v, err := k.Ask(context.Background(), target, DefaultPool, func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestKernel_Ask_PropagatesError(t *testing.T) {
	k := NewKernel()
	target, err := k.CreateRoot("node-web1", nil)
	require.NoError(t, err)

	boom := &pkgerrors.ExecError{Command: "false", ExitCode: 1}
	_, err = k.Ask(context.Background(), target, DefaultPool, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	assert.Equal(t, boom, err)
}

func TestKernel_Ask_SelfCallIsRejected(t *testing.T) {
	k := NewKernel()
	target, err := k.CreateRoot("node-web1", nil)
	require.NoError(t, err)

	_, err = k.Ask(context.Background(), target, DefaultPool, func(ctx context.Context) (any, error) {
		return k.Ask(ctx, target, DefaultPool, func(ctx context.Context) (any, error) {
			return nil, nil
		})
	})
	require.Error(t, err)
	assert.IsType(t, &pkgerrors.InternalError{}, err)
}

func TestKernel_Tell_SelfCallIsRejected(t *testing.T) {
	k := NewKernel()
	target, err := k.CreateRoot("node-web1", nil)
	require.NoError(t, err)

	_, err = k.Ask(context.Background(), target, DefaultPool, func(ctx context.Context) (any, error) {
		_, telErr := k.Tell(ctx, target, DefaultPool, func(ctx context.Context) {})
		return nil, telErr
	})
	require.Error(t, err)
	assert.IsType(t, &pkgerrors.InternalError{}, err)
}

func TestKernel_LogWriterPool_IsSingleWorker(t *testing.T) {
	k := NewKernel()
	target, err := k.CreateRoot("session-writer", nil)
	require.NoError(t, err)

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		done, err := k.Tell(context.Background(), target, LogWriterPool, func(ctx context.Context) {
			defer wg.Done()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
		})
		require.NoError(t, err)
		go func() { <-done }()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxActive, 1)
}

func TestKernel_Lookup_ResolvesByRegistryKey(t *testing.T) {
	k := NewKernel()
	root, err := k.CreateRoot("group", nil)
	require.NoError(t, err)
	child, err := k.CreateChild(root, "web1", nil)
	require.NoError(t, err)

	got, ok := k.Lookup("group/web1")
	require.True(t, ok)
	assert.Same(t, child, got)

	_, ok = k.Lookup("group/missing")
	assert.False(t, ok)
}

func TestActiveActor_UntaggedContextReturnsFalse(t *testing.T) {
	_, ok := ActiveActor(context.Background())
	assert.False(t, ok)
}
