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

// Package outputmux is the in-memory sink every node actor streams its
// stdout/stderr lines into, tagged by source actor, plus a fixed-width
// on-demand summary table.
package outputmux

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// LineType identifies which stream a Line came from.
type LineType string

const (
	LineStdout LineType = "stdout"
	LineStderr LineType = "stderr"
)

// Line is one captured line, tagged with the actor that produced it.
type Line struct {
	Source    string
	Type      LineType
	Text      string
	Label     string
	Timestamp time.Time
}

// Multiplexer aggregates lines from many concurrent source actors under a
// single lock; writers are serialised per source by virtue of that lock,
// and per-source line order is preserved since appends only ever happen
// under it.
type Multiplexer struct {
	mu      sync.Mutex
	lines   map[string][]Line
	sources []string
}

// New returns an empty Multiplexer.
func New() *Multiplexer {
	return &Multiplexer{lines: map[string][]Line{}}
}

// Write appends one line tagged (source, lineType), with an optional label
// (e.g. the label of the transition that produced the line).
func (m *Multiplexer) Write(source string, lineType LineType, text, label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lines[source]; !ok {
		m.sources = append(m.sources, source)
	}
	m.lines[source] = append(m.lines[source], Line{
		Source:    source,
		Type:      lineType,
		Text:      text,
		Label:     label,
		Timestamp: time.Now(),
	})
}

// LinesFor returns a copy of the lines recorded for source, in arrival
// order.
func (m *Multiplexer) LinesFor(source string) []Line {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := m.lines[source]
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}

// Sources returns every source actor that has written at least one line, in
// first-write order.
func (m *Multiplexer) Sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.sources))
	copy(out, m.sources)
	return out
}

// Summary renders a fixed-width table: one row per source, with stdout and
// stderr line counts, padded to align across sources with differing-width
// names (including multi-byte/East-Asian-wide hostnames).
func (m *Multiplexer) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sources) == 0 {
		return "(no output recorded)\n"
	}

	nameWidth := 0
	for _, source := range m.sources {
		if w := DisplayWidth(source); w > nameWidth {
			nameWidth = w
		}
	}

	var b strings.Builder
	for _, source := range m.sources {
		stdoutCount, stderrCount := 0, 0
		for _, line := range m.lines[source] {
			if line.Type == LineStdout {
				stdoutCount++
			} else {
				stderrCount++
			}
		}
		fmt.Fprintf(&b, "%s  stdout=%-4d stderr=%-4d\n", PadDisplay(source, nameWidth), stdoutCount, stderrCount)
	}
	return b.String()
}
