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

package groupbinding

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/actor"
	"github.com/tombee/actoriac/internal/inventory"
	"github.com/tombee/actoriac/internal/outputmux"
	"github.com/tombee/actoriac/internal/sessionstore"
)

func newStore(t *testing.T) *sessionstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	store, err := sessionstore.New(sessionstore.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func serialWrite(fn func()) { fn() }

func newGroup(t *testing.T, inv *inventory.Inventory) (*GroupBinding, *actor.Kernel, *actor.Actor, *sessionstore.Store) {
	t.Helper()
	k := actor.NewKernel()
	store := newStore(t)

	sessionID, err := store.StartSession(context.Background(), "wf.yaml", "", "inv", 0, sessionstore.SessionOptions{})
	require.NoError(t, err)

	mux := outputmux.New()
	gb := New(Config{
		Inventory: inv,
		Mux:       mux,
		Store:     store,
		LogWrite:  serialWrite,
		SessionID: sessionID,
	})

	root, err := k.CreateRoot("group", gb)
	require.NoError(t, err)
	gb.cfg.Self = root
	gb.cfg.Kernel = k

	return gb, k, root, store
}

func args(t *testing.T, vals ...string) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(vals)
	require.NoError(t, err)
	return b
}

func TestHasInventory_ReflectsWhetherOneWasConfigured(t *testing.T) {
	gb, _, _, _ := newGroup(t, inventory.New())
	result, err := gb.hasInventory(context.Background(), args(t))
	require.NoError(t, err)
	assert.True(t, result.Success)

	gbNoInv, _, _, _ := newGroup(t, nil)
	result, err = gbNoInv.hasInventory(context.Background(), args(t))
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestCreateNodeActors_LocalSpecialCasesASingleHost(t *testing.T) {
	gb, _, root, _ := newGroup(t, nil)
	result, err := gb.createNodeActors(context.Background(), args(t, "local"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "1", result.Result)

	names := []string{}
	for _, c := range root.Children() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "node-localhost")
}

func TestCreateNodeActors_ResolvesInventoryGroupAndAppliesLimit(t *testing.T) {
	inv := inventory.New()
	inv.Groups["web"] = []string{"web1", "web2", "web3"}

	gb, _, root, _ := newGroup(t, inv)
	gb.cfg.Limit = []string{"web1", "web3"}

	result, err := gb.createNodeActors(context.Background(), args(t, "web"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "2", result.Result)

	names := map[string]bool{}
	for _, c := range root.Children() {
		names[c.Name] = true
	}
	assert.True(t, names["node-web1"])
	assert.True(t, names["node-web3"])
	assert.False(t, names["node-web2"])
}

func TestCreateNodeActors_UnknownGroupFails(t *testing.T) {
	gb, _, _, _ := newGroup(t, inventory.New())
	result, err := gb.createNodeActors(context.Background(), args(t, "missing"))
	require.NoError(t, err)
	assert.False(t, result.Success)
}

func TestApply_DispatchesToMatchingNodesAndAccumulates(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	_, err := gb.createNodeActors(context.Background(), args(t, "local"))
	require.NoError(t, err)

	def := action.Def{Actor: "node-*", Method: "doNothing", Arguments: []string{"ok"}}
	raw, err := json.Marshal(def)
	require.NoError(t, err)

	result, err := gb.apply(context.Background(), args(t, string(raw)))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Result, "1/1")

	hasAcc, err := gb.hasAccumulator(context.Background(), args(t))
	require.NoError(t, err)
	assert.True(t, hasAcc.Success)
}

func TestExecuteCommandOnAllNodes_RunsCommandAcrossNodes(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	_, err := gb.createNodeActors(context.Background(), args(t, "local"))
	require.NoError(t, err)

	result, err := gb.executeCommandOnAllNodes(context.Background(), args(t, "true"))
	require.NoError(t, err)
	assert.Contains(t, result.Result, "/1")
}

func TestGetAccumulatorSummary_ReportsZeroBeforeAnyApply(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	result, err := gb.getAccumulatorSummary(context.Background(), args(t))
	require.NoError(t, err)
	assert.Equal(t, "0/0 succeeded", result.Result)
}

func TestGetSessionIDAndWorkflowPath(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	gb.cfg.WorkflowPath = "main.yaml"

	result, err := gb.getSessionID(context.Background(), args(t))
	require.NoError(t, err)
	assert.Equal(t, gb.cfg.SessionID, result.Result)

	result, err = gb.getWorkflowPath(context.Background(), args(t))
	require.NoError(t, err)
	assert.Equal(t, "main.yaml", result.Result)
}

func TestPrintSessionSummary_GroupsByLabelAndListsErrors(t *testing.T) {
	gb, _, _, store := newGroup(t, nil)

	require.NoError(t, store.Log(context.Background(), gb.cfg.SessionID, "web1", "deploy", sessionstore.LevelInfo, "[OK] echo hi (exit 0)"))
	require.NoError(t, store.Log(context.Background(), gb.cfg.SessionID, "web1", "deploy", sessionstore.LevelError, "[ERROR] false (exit 1)"))

	result, err := gb.printSessionSummary(context.Background(), args(t))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Result, "deploy")
	assert.Contains(t, result.Result, "--- Errors ---")
}

func TestReset_ClearsGroupState(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	gb.state.PutJSON("foo", "bar")
	result, err := gb.reset(context.Background(), args(t))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, gb.state.HasJSON("foo"))
}

func TestReadYaml_MergesIntoGroupState(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	path := filepath.Join(t.TempDir(), "vars.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: staging\n"), 0o644))

	result, err := gb.readYaml(context.Background(), args(t, path))
	require.NoError(t, err)
	assert.True(t, result.Success)

	v, err := gb.state.GetJSON("env")
	require.NoError(t, err)
	assert.Equal(t, "staging", v)
}

func TestRunWorkflow_DrivesSubWorkflowAgainstGroupState(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	path := filepath.Join(t.TempDir(), "flow.yaml")
	doc := "name: sub\n" +
		"transitions:\n" +
		"  - states: [\"0\", \"end\"]\n" +
		"    actions:\n" +
		"      - actor: self\n" +
		"        method: doNothing\n" +
		"        arguments: [\"group-done\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	result, err := gb.runWorkflow(context.Background(), args(t, path))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "group-done", result.Result)
}

func TestInvoke_UnknownActionReturnsFailure(t *testing.T) {
	gb, _, _, _ := newGroup(t, nil)
	result, err := gb.Invoke(context.Background(), "bogus", []string{"x"})
	require.NoError(t, err)
	assert.False(t, result.Success)
}
