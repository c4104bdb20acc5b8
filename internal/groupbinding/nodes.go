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
	"strconv"

	"github.com/tombee/actoriac/internal/action"
	"github.com/tombee/actoriac/internal/inventory"
	"github.com/tombee/actoriac/internal/nodebinding"
)

func (gb *GroupBinding) hasInventory(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	return action.Result{Success: gb.cfg.Inventory != nil, Result: ""}, nil
}

// createNodeActors resolves groupName to a set of hosts and registers one
// node actor per host as a child of the group actor. "local" special-cases
// a single localhost child with no inventory lookup at all, per spec.md
// §4.8.
func (gb *GroupBinding) createNodeActors(ctx context.Context, raw json.RawMessage) (action.Result, error) {
	groupName, err := firstArg(raw)
	if err != nil {
		return action.Result{}, err
	}

	if groupName == "local" {
		host := inventory.Host{Name: localHostname, Connection: "local"}
		if err := gb.registerNode(host); err != nil {
			return action.Result{Success: false, Result: err.Error()}, nil
		}
		return action.Result{Success: true, Result: "1"}, nil
	}

	if gb.cfg.Inventory == nil {
		return action.Result{Success: false, Result: "no inventory loaded"}, nil
	}

	hostnames, err := gb.cfg.Inventory.HostsInGroup(groupName)
	if err != nil {
		return action.Result{Success: false, Result: err.Error()}, nil
	}
	hostnames = applyLimit(hostnames, gb.cfg.Limit)

	for _, hostname := range hostnames {
		host := gb.cfg.Inventory.ResolveHost(hostname, groupName)
		if err := gb.registerNode(host); err != nil {
			return action.Result{Success: false, Result: err.Error()}, nil
		}
	}

	return action.Result{Success: true, Result: strconv.Itoa(len(hostnames))}, nil
}

func (gb *GroupBinding) registerNode(host inventory.Host) error {
	nb := nodebinding.New(nodebinding.Config{
		ActorName:       host.Name,
		Host:            host,
		Kernel:          gb.cfg.Kernel,
		Mux:             gb.cfg.Mux,
		Store:           gb.cfg.Store,
		LogWrite:        gb.cfg.LogWrite,
		SessionID:       gb.cfg.SessionID,
		WorkflowBaseDir: gb.cfg.WorkflowBaseDir,
		OverlayDir:      gb.cfg.OverlayDir,
		WorkflowPath:    gb.cfg.WorkflowPath,
		OverlayPath:     gb.cfg.OverlayPath,
		Metrics:         gb.cfg.Metrics,
	})

	childName := "node-" + host.Name
	child, err := gb.cfg.Kernel.CreateChild(gb.cfg.Self, childName, nb)
	if err != nil {
		return err
	}
	nb.SetSelf(child)
	return nil
}

// applyLimit intersects hostnames with limit (in hostnames' order),
// treating an empty limit as "no restriction".
func applyLimit(hostnames, limit []string) []string {
	if len(limit) == 0 {
		return hostnames
	}
	allowed := map[string]bool{}
	for _, h := range limit {
		allowed[h] = true
	}
	var out []string
	for _, h := range hostnames {
		if allowed[h] {
			out = append(out, h)
		}
	}
	return out
}
