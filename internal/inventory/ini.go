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
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ParseINI parses an Ansible-style INI inventory: "[group]" sections listing
// one hostname per line (with optional inline key=value vars), "[group:vars]"
// and "[all:vars]" sections carrying variable blocks. ":children" sections
// and bracket-range hosts ("web[01:10]") are rejected with a warning and
// otherwise ignored, per spec.
func ParseINI(r io.Reader) (*Inventory, error) {
	inv := New()

	scanner := bufio.NewScanner(r)
	currentSection := ""
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.TrimSpace(line[1 : len(line)-1])
			if strings.HasSuffix(currentSection, ":children") {
				inv.Warnings = append(inv.Warnings,
					fmt.Sprintf("line %d: %q uses :children groups, which are not supported and will be ignored", lineNo, currentSection))
				currentSection = ""
			} else if !strings.HasSuffix(currentSection, ":vars") {
				if _, ok := inv.Groups[currentSection]; !ok {
					inv.Groups[currentSection] = []string{}
				}
			}
			continue
		}

		if currentSection == "" {
			continue
		}

		if strings.Contains(line, "[") && strings.Contains(line, ":") && strings.Contains(line, "]") {
			inv.Warnings = append(inv.Warnings,
				fmt.Sprintf("line %d: bracket host ranges are not supported and will be ignored: %q", lineNo, line))
			continue
		}

		if strings.HasSuffix(currentSection, ":vars") {
			group := strings.TrimSuffix(currentSection, ":vars")
			key, value, ok := splitKV(line)
			if !ok {
				inv.Warnings = append(inv.Warnings, fmt.Sprintf("line %d: malformed var line: %q", lineNo, line))
				continue
			}
			if group == "all" {
				inv.GlobalVars[key] = value
			} else {
				if inv.GroupVars[group] == nil {
					inv.GroupVars[group] = map[string]string{}
				}
				inv.GroupVars[group][key] = value
			}
			continue
		}

		// A host line: "hostname [key=value ...]"
		fields := strings.Fields(line)
		hostname := fields[0]
		inv.Groups[currentSection] = append(inv.Groups[currentSection], hostname)

		if len(fields) > 1 {
			if inv.HostVars[hostname] == nil {
				inv.HostVars[hostname] = map[string]string{}
			}
			for _, kv := range fields[1:] {
				key, value, ok := splitKV(kv)
				if !ok {
					inv.Warnings = append(inv.Warnings, fmt.Sprintf("line %d: malformed inline var: %q", lineNo, kv))
					continue
				}
				inv.HostVars[hostname][key] = value
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return inv, nil
}

func splitKV(s string) (key, value string, ok bool) {
	idx := strings.Index(s, "=")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:idx]), strings.Trim(strings.TrimSpace(s[idx+1:]), `"'`), true
}
