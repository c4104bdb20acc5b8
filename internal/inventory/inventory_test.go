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

package inventory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleINI = `
[web]
web1 actoriac_host=10.0.0.1
web2 ansible_host=10.0.0.2 actoriac_port=2222

[db]
db1

[web:vars]
actoriac_user=deploy

[all:vars]
actoriac_user=root
actoriac_port=22

[dynamic:children]
web
db

[ranged]
node[01:10]
`

func TestParseINI_GroupsAndHosts(t *testing.T) {
	inv, err := ParseINI(strings.NewReader(sampleINI))
	require.NoError(t, err)

	hosts, err := inv.HostsInGroup("web")
	require.NoError(t, err)
	assert.Equal(t, []string{"web1", "web2"}, hosts)

	hosts, err = inv.HostsInGroup("db")
	require.NoError(t, err)
	assert.Equal(t, []string{"db1"}, hosts)
}

func TestParseINI_UnknownGroup(t *testing.T) {
	inv, err := ParseINI(strings.NewReader(sampleINI))
	require.NoError(t, err)

	_, err = inv.HostsInGroup("nope")
	require.Error(t, err)
	var unknownErr *UnknownGroupError
	assert.ErrorAs(t, err, &unknownErr)
}

func TestParseINI_ChildrenAndRangesWarn(t *testing.T) {
	inv, err := ParseINI(strings.NewReader(sampleINI))
	require.NoError(t, err)

	foundChildren := false
	foundRange := false
	for _, w := range inv.Warnings {
		if strings.Contains(w, "dynamic:children") {
			foundChildren = true
		}
		if strings.Contains(w, "node[01:10]") {
			foundRange = true
		}
	}
	assert.True(t, foundChildren, "expected a warning about the :children section")
	assert.True(t, foundRange, "expected a warning about the bracket-range host")

	_, err = inv.HostsInGroup("dynamic")
	assert.Error(t, err, "a :children section must not create a usable group")
}

func TestInventory_EffectiveVars_Precedence(t *testing.T) {
	inv, err := ParseINI(strings.NewReader(sampleINI))
	require.NoError(t, err)

	vars := inv.EffectiveVars("web1", "web")
	assert.Equal(t, "deploy", vars["actoriac_user"], "group-vars must override global-vars")
	assert.Equal(t, "22", vars["actoriac_port"], "global-vars apply when no more specific var exists")
	assert.Equal(t, "10.0.0.1", vars["actoriac_host"], "host-vars must override group/global vars")
}

func TestInventory_ResolveHost(t *testing.T) {
	inv, err := ParseINI(strings.NewReader(sampleINI))
	require.NoError(t, err)

	h := inv.ResolveHost("web1", "web")
	assert.Equal(t, "web1", h.Name)
	assert.Equal(t, "10.0.0.1", h.Address)
	assert.Equal(t, "deploy", h.User)
	assert.Equal(t, 22, h.Port)
	assert.Equal(t, "ssh", h.Connection)

	h2 := inv.ResolveHost("web2", "web")
	assert.Equal(t, "10.0.0.2", h2.Address, "ansible_host must be honored when actoriac_host is absent")
	assert.Equal(t, 2222, h2.Port, "host-level actoriac_port must override the [all:vars] value")
}

func TestInventory_ResolveHost_UnrecognisedVarsBecomeTags(t *testing.T) {
	inv := New()
	inv.Groups["web"] = []string{"web1"}
	inv.HostVars["web1"] = map[string]string{
		"actoriac_host": "10.0.0.5",
		"env":           "staging",
	}

	h := inv.ResolveHost("web1", "web")
	assert.Equal(t, "staging", h.Tags["env"])
	_, isOption := h.Tags["actoriac_host"]
	assert.False(t, isOption, "recognised connection options must not leak into Tags")
}

func TestHost_LocalMode(t *testing.T) {
	h := Host{Connection: "local"}
	assert.True(t, h.LocalMode())

	h.Connection = "ssh"
	assert.False(t, h.LocalMode())
}

func TestParsePort_Invalid(t *testing.T) {
	_, err := parsePort("not-a-port")
	require.Error(t, err)
	var portErr *invalidPortError
	assert.ErrorAs(t, err, &portErr)

	_, err = parsePort("")
	require.Error(t, err)
}

const sampleYAML = `
all:
  vars:
    actoriac_user: root
  children:
    web:
      vars:
        actoriac_user: deploy
      hosts:
        web1:
          actoriac_host: 10.0.0.1
        web2: {}
`

func TestParseYAML_GroupsAndPrecedence(t *testing.T) {
	inv, err := ParseYAML(strings.NewReader(sampleYAML))
	require.NoError(t, err)

	hosts, err := inv.HostsInGroup("web")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"web1", "web2"}, hosts)

	vars := inv.EffectiveVars("web2", "web")
	assert.Equal(t, "deploy", vars["actoriac_user"])

	h := inv.ResolveHost("web1", "web")
	assert.Equal(t, "10.0.0.1", h.Address)
}

func TestInventory_Hostnames_Distinct(t *testing.T) {
	inv := New()
	inv.Groups["web"] = []string{"web1", "web2"}
	inv.Groups["all_hosts"] = []string{"web1", "db1"}

	names := inv.Hostnames()
	assert.ElementsMatch(t, []string{"web1", "web2", "db1"}, names)
}
