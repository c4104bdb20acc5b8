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

package workflow

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/tombee/actoriac/pkg/errors"
	"gopkg.in/yaml.v3"
)

// rawAction is the document-shape (YAML/JSON) counterpart of Action.
type rawAction struct {
	Actor     string   `yaml:"actor" json:"actor"`
	Method    string   `yaml:"method" json:"method"`
	Arguments []string `yaml:"arguments,omitempty" json:"arguments,omitempty"`
}

// rawTransition is the document-shape (YAML/JSON) counterpart of
// Transition; States is the verbatim `[from, to]` pair from spec.md §3.
type rawTransition struct {
	States  []string    `yaml:"states" json:"states"`
	Label   string      `yaml:"label,omitempty" json:"label,omitempty"`
	When    string      `yaml:"when,omitempty" json:"when,omitempty"`
	Actions []rawAction `yaml:"actions,omitempty" json:"actions,omitempty"`
}

// rawDoc is the document-shape (YAML/JSON) counterpart of Definition.
type rawDoc struct {
	Name        string          `yaml:"name,omitempty" json:"name,omitempty"`
	Transitions []rawTransition `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// xmlAction is the XML counterpart of Action: attribute-based rather than
// a [from, to] pair, since XML has no natural 2-tuple shape.
type xmlAction struct {
	Actor     string   `xml:"actor,attr"`
	Method    string   `xml:"method,attr"`
	Arguments []string `xml:"arguments>argument,omitempty"`
}

type xmlTransition struct {
	From    string      `xml:"from,attr"`
	To      string      `xml:"to,attr"`
	Label   string      `xml:"label,attr,omitempty"`
	When    string      `xml:"when,attr,omitempty"`
	Actions []xmlAction `xml:"actions>action,omitempty"`
}

type xmlDoc struct {
	XMLName     xml.Name        `xml:"workflow"`
	Name        string          `xml:"name,attr,omitempty"`
	Transitions []xmlTransition `xml:"transitions>transition,omitempty"`
}

// Load reads a workflow document, dispatching on file extension (.yaml/
// .yml, .json, .xml).
func Load(path string) (*Definition, error) {
	doc, err := loadRaw(path)
	if err != nil {
		return nil, err
	}
	return toDefinition(doc)
}

// LoadWithOverlay loads path and, if overlayPath is non-empty, shallow
// merges an overlay document over it per top-level field before building
// the Definition.
func LoadWithOverlay(path, overlayPath string) (*Definition, error) {
	base, err := loadRaw(path)
	if err != nil {
		return nil, err
	}

	if overlayPath == "" {
		return toDefinition(base)
	}

	overlay, err := loadRaw(overlayPath)
	if err != nil {
		return nil, err
	}

	return toDefinition(mergeOverlay(base, overlay))
}

func loadRaw(path string) (*rawDoc, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".json":
		return loadJSON(path)
	case ".xml":
		return loadXML(path)
	default:
		return nil, &pkgerrors.ConfigError{
			Key:    "workflow",
			Reason: fmt.Sprintf("unrecognised workflow document extension %q", ext),
		}
	}
}

// LoadYAML loads a YAML workflow document directly (exported for callers
// that already know the format rather than dispatching on extension).
func LoadYAML(path string) (*Definition, error) {
	doc, err := loadYAML(path)
	if err != nil {
		return nil, err
	}
	return toDefinition(doc)
}

// LoadJSON loads a JSON workflow document directly.
func LoadJSON(path string) (*Definition, error) {
	doc, err := loadJSON(path)
	if err != nil {
		return nil, err
	}
	return toDefinition(doc)
}

// LoadXML loads an XML workflow document directly.
func LoadXML(path string) (*Definition, error) {
	doc, err := loadXML(path)
	if err != nil {
		return nil, err
	}
	return toDefinition(doc)
}

func loadYAML(path string) (*rawDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: err.Error(), Cause: err}
	}
	var doc rawDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: "invalid YAML: " + err.Error(), Cause: err}
	}
	return &doc, nil
}

func loadJSON(path string) (*rawDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: err.Error(), Cause: err}
	}
	var doc rawDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: "invalid JSON: " + err.Error(), Cause: err}
	}
	return &doc, nil
}

func loadXML(path string) (*rawDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: err.Error(), Cause: err}
	}
	var x xmlDoc
	if err := xml.Unmarshal(data, &x); err != nil {
		return nil, &pkgerrors.ConfigError{Key: "workflow", Reason: "invalid XML: " + err.Error(), Cause: err}
	}

	doc := &rawDoc{Name: x.Name}
	for _, t := range x.Transitions {
		rt := rawTransition{States: []string{t.From, t.To}, Label: t.Label, When: t.When}
		for _, a := range t.Actions {
			rt.Actions = append(rt.Actions, rawAction{Actor: a.Actor, Method: a.Method, Arguments: a.Arguments})
		}
		doc.Transitions = append(doc.Transitions, rt)
	}
	return doc, nil
}

// mergeOverlay shallow-merges overlay over base: any non-zero top-level
// field on overlay replaces base's wholesale. Nested maps/slices are never
// merged element-by-element, per SPEC_FULL §9 Open Question (ii).
func mergeOverlay(base, overlay *rawDoc) *rawDoc {
	merged := *base
	if overlay.Name != "" {
		merged.Name = overlay.Name
	}
	if len(overlay.Transitions) > 0 {
		merged.Transitions = overlay.Transitions
	}
	return &merged
}

func toDefinition(doc *rawDoc) (*Definition, error) {
	def := &Definition{Name: doc.Name}

	for i, rt := range doc.Transitions {
		if len(rt.States) != 2 {
			return nil, &pkgerrors.ConfigError{
				Key:    "transitions",
				Reason: fmt.Sprintf("transition %d: states must be a [from, to] pair, got %v", i, rt.States),
			}
		}

		t := Transition{From: rt.States[0], To: rt.States[1], Label: rt.Label, When: rt.When}
		for _, ra := range rt.Actions {
			t.Actions = append(t.Actions, Action{Actor: ra.Actor, Method: ra.Method, Arguments: ra.Arguments})
		}
		def.Transitions = append(def.Transitions, t)
	}

	return def, nil
}
