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

// Package inventory parses host inventories (INI-like and YAML) and resolves
// the effective per-host connection variables used to build an executor.
package inventory

// Host is one inventory entry: connection identity plus its free-form vars.
type Host struct {
	Name string

	// Address is the actual SSH target if different from Name ("host" var).
	Address string
	User    string
	Port    int
	// Connection is "ssh" (default) or "local".
	Connection string
	Password   string

	// Tags holds unrecognised vars for display only, never interpreted.
	Tags map[string]string
}

// LocalMode reports whether this host should execute via a local subprocess
// instead of SSH.
func (h Host) LocalMode() bool {
	return h.Connection == "local"
}

// Inventory is a parsed set of groups, hosts, and scoped variables.
type Inventory struct {
	// Groups maps a group name to its ordered (insertion order) hostnames.
	Groups map[string][]string

	GlobalVars map[string]string
	GroupVars  map[string]map[string]string
	HostVars   map[string]map[string]string

	// Warnings collects non-fatal parse issues (ignored ":children" sections,
	// bracket-range hosts, malformed variable lines) surfaced to the caller
	// for display.
	Warnings []string
}

// New returns an empty, initialised Inventory.
func New() *Inventory {
	return &Inventory{
		Groups:     map[string][]string{},
		GlobalVars: map[string]string{},
		GroupVars:  map[string]map[string]string{},
		HostVars:   map[string]map[string]string{},
	}
}

// Hostnames returns every distinct hostname across all groups, in the order
// each first appears across group iteration (map iteration order over
// Groups is non-deterministic, so callers that need full determinism should
// use HostsInGroup for a single group instead).
func (inv *Inventory) Hostnames() []string {
	seen := map[string]bool{}
	var names []string
	for _, group := range inv.Groups {
		for _, h := range group {
			if !seen[h] {
				seen[h] = true
				names = append(names, h)
			}
		}
	}
	return names
}

// HostsInGroup returns the hostnames of group in inventory order, or an
// error if the group is unknown.
func (inv *Inventory) HostsInGroup(group string) ([]string, error) {
	hosts, ok := inv.Groups[group]
	if !ok {
		return nil, &UnknownGroupError{Group: group}
	}
	return hosts, nil
}

// UnknownGroupError is returned when a requested group has no entry.
type UnknownGroupError struct {
	Group string
}

func (e *UnknownGroupError) Error() string {
	return "unknown inventory group: " + e.Group
}

// optionKeys lists the recognised connection-option vars, in actoriac_*
// precedence order over the ansible_* spelling.
var optionKeys = []string{"host", "user", "port", "connection"}

// lookupOption resolves key from vars, preferring "actoriac_<key>" over
// "ansible_<key>".
func lookupOption(vars map[string]string, key string) (string, bool) {
	if v, ok := vars["actoriac_"+key]; ok {
		return v, true
	}
	if v, ok := vars["ansible_"+key]; ok {
		return v, true
	}
	return "", false
}

// EffectiveVars merges global, group, and host variables for hostname with
// host-vars taking precedence over group-vars over global-vars. group is the
// group hostname was resolved from (a host may appear in one group at a
// time from the caller's perspective; ResolveHost threads the right one).
func (inv *Inventory) EffectiveVars(hostname, group string) map[string]string {
	merged := map[string]string{}
	for k, v := range inv.GlobalVars {
		merged[k] = v
	}
	for k, v := range inv.GroupVars[group] {
		merged[k] = v
	}
	for k, v := range inv.HostVars[hostname] {
		merged[k] = v
	}
	return merged
}

// ResolveHost builds a Host for hostname within group, applying the
// actoriac_*/ansible_* option precedence and defaulting Port to 22 and
// Connection to "ssh".
func (inv *Inventory) ResolveHost(hostname, group string) Host {
	vars := inv.EffectiveVars(hostname, group)

	h := Host{
		Name:       hostname,
		Address:    hostname,
		Port:       22,
		Connection: "ssh",
		Tags:       map[string]string{},
	}

	if v, ok := lookupOption(vars, "host"); ok {
		h.Address = v
	}
	if v, ok := lookupOption(vars, "user"); ok {
		h.User = v
	}
	if v, ok := lookupOption(vars, "port"); ok {
		if p, err := parsePort(v); err == nil {
			h.Port = p
		}
	}
	if v, ok := lookupOption(vars, "connection"); ok {
		h.Connection = v
	}
	if v, ok := vars["actoriac_password"]; ok {
		h.Password = v
	} else if v, ok := vars["ansible_password"]; ok {
		h.Password = v
	}

	recognised := map[string]bool{}
	for _, k := range optionKeys {
		recognised["actoriac_"+k] = true
		recognised["ansible_"+k] = true
	}
	recognised["actoriac_password"] = true
	recognised["ansible_password"] = true

	for k, v := range vars {
		if !recognised[k] {
			h.Tags[k] = v
		}
	}

	return h
}

// invalidPortError is returned by parsePort when a port var isn't numeric.
type invalidPortError struct{ value string }

func (e *invalidPortError) Error() string {
	return "invalid port value: " + e.value
}

func parsePort(s string) (int, error) {
	if s == "" {
		return 0, &invalidPortError{value: s}
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, &invalidPortError{value: s}
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}
