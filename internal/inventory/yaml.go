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
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlGroup mirrors the Ansible-style YAML inventory shape:
//
//	all:
//	  vars:
//	    actoriac_user: deploy
//	  children:
//	    web:
//	      hosts:
//	        web1:
//	          actoriac_host: 10.0.0.1
//	      vars:
//	        actoriac_port: 2222
type yamlGroup struct {
	Hosts    map[string]map[string]any `yaml:"hosts"`
	Vars     map[string]any            `yaml:"vars"`
	Children map[string]yamlGroup      `yaml:"children"`
}

type yamlRoot struct {
	All yamlGroup `yaml:"all"`
}

// ParseYAML parses an Ansible-style YAML inventory document.
func ParseYAML(r io.Reader) (*Inventory, error) {
	var root yamlRoot
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&root); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parsing yaml inventory: %w", err)
	}

	inv := New()

	for k, v := range root.All.Vars {
		inv.GlobalVars[k] = stringifyVar(v)
	}

	for name, group := range root.All.Children {
		inv.Groups[name] = []string{}
		for k, v := range group.Vars {
			if inv.GroupVars[name] == nil {
				inv.GroupVars[name] = map[string]string{}
			}
			inv.GroupVars[name][k] = stringifyVar(v)
		}
		for hostname, hostVars := range group.Hosts {
			inv.Groups[name] = append(inv.Groups[name], hostname)
			if len(hostVars) == 0 {
				continue
			}
			if inv.HostVars[hostname] == nil {
				inv.HostVars[hostname] = map[string]string{}
			}
			for k, v := range hostVars {
				inv.HostVars[hostname][k] = stringifyVar(v)
			}
		}
	}

	return inv, nil
}

func stringifyVar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
