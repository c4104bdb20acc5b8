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

// Package timeline renders an ASCII timeline of a session's per-host action
// steps, grouped by host with one bar per action in the order it ran.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/term"
)

const (
	// MinTerminalWidth is the minimum supported terminal width
	MinTerminalWidth = 80
	// DefaultBarWidth is the default width for duration bars
	DefaultBarWidth = 40
	// StatusIconOK indicates a successful step
	StatusIconOK = "✓"
	// StatusIconError indicates a failed step
	StatusIconError = "✗"
)

// Step is one recorded action on one host, as read back from the session
// log store (node_results / logs rows for a single nodeId).
type Step struct {
	Host      string
	Action    string
	StartTime time.Time
	EndTime   time.Time
	Success   bool
}

func (s Step) duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// timelineSpan is a Step positioned for rendering: either a host header (a
// parent row with no bar) or an indented action row under it.
type timelineSpan struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Success   bool
	Level     int
	IsHost    bool
}

// Renderer renders ASCII timelines of session steps.
type Renderer struct {
	Width    int
	BarWidth int
}

// NewRenderer creates a new timeline renderer with terminal width detection.
func NewRenderer() (*Renderer, error) {
	width, _, err := term.GetSize(0)
	if err != nil {
		// Default to 100 if detection fails
		width = 100
	}

	if width < MinTerminalWidth {
		return nil, fmt.Errorf("terminal width %d is too narrow (minimum %d columns)", width, MinTerminalWidth)
	}

	// Reserve space for labels, status, and borders.
	// Format: "│ host/action ██████░░░░  duration  status │"
	barWidth := width - 40
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < DefaultBarWidth {
		barWidth = DefaultBarWidth
	}

	return &Renderer{
		Width:    width,
		BarWidth: barWidth,
	}, nil
}

// Render generates an ASCII timeline of steps, grouped by host in the order
// hosts first appear and with actions in the order they ran within a host.
func (r *Renderer) Render(sessionID string, steps []Step) (string, error) {
	if len(steps) == 0 {
		return "", fmt.Errorf("no steps to render")
	}

	spans := r.prepareSpans(steps)
	if len(spans) == 0 {
		return "", fmt.Errorf("no valid steps to render")
	}

	minTime, maxTime := r.calculateBounds(spans)
	totalDuration := maxTime.Sub(minTime)
	if totalDuration <= 0 {
		totalDuration = time.Millisecond
	}

	var sb strings.Builder

	border := strings.Repeat("─", r.Width-2)
	sb.WriteString("┌" + border + "┐\n")

	header := fmt.Sprintf("│ Session: %-*s Total: %s  │\n",
		r.Width-28,
		truncate(sessionID, r.Width-28),
		formatDuration(totalDuration))
	sb.WriteString(header)

	sb.WriteString("├" + border + "┤\n")

	for _, span := range spans {
		sb.WriteString(r.renderSpan(span, minTime, totalDuration))
	}

	sb.WriteString("└" + border + "┘\n")

	return sb.String(), nil
}

// prepareSpans groups steps by host (preserving first-seen order) and
// returns a host header row followed by its action rows, also in run order.
func (r *Renderer) prepareSpans(steps []Step) []timelineSpan {
	var hostOrder []string
	byHost := make(map[string][]Step)

	for _, s := range steps {
		if _, ok := byHost[s.Host]; !ok {
			hostOrder = append(hostOrder, s.Host)
		}
		byHost[s.Host] = append(byHost[s.Host], s)
	}

	var result []timelineSpan
	for _, host := range hostOrder {
		hostSteps := byHost[host]

		hostStart, hostEnd := hostSteps[0].StartTime, hostSteps[0].EndTime
		hostSuccess := true
		for _, s := range hostSteps {
			if s.StartTime.Before(hostStart) {
				hostStart = s.StartTime
			}
			if s.EndTime.After(hostEnd) {
				hostEnd = s.EndTime
			}
			if !s.Success {
				hostSuccess = false
			}
		}

		result = append(result, timelineSpan{
			Name:      host,
			StartTime: hostStart,
			EndTime:   hostEnd,
			Duration:  hostEnd.Sub(hostStart),
			Success:   hostSuccess,
			Level:     0,
			IsHost:    true,
		})

		for _, s := range hostSteps {
			result = append(result, timelineSpan{
				Name:      s.Action,
				StartTime: s.StartTime,
				EndTime:   s.EndTime,
				Duration:  s.duration(),
				Success:   s.Success,
				Level:     1,
			})
		}
	}

	return result
}

// calculateBounds finds the earliest start and latest end time across all spans.
func (r *Renderer) calculateBounds(spans []timelineSpan) (time.Time, time.Time) {
	minTime := spans[0].StartTime
	maxTime := spans[0].EndTime

	for _, span := range spans {
		if span.StartTime.Before(minTime) {
			minTime = span.StartTime
		}
		if span.EndTime.After(maxTime) {
			maxTime = span.EndTime
		}
	}

	return minTime, maxTime
}

// renderSpan generates a timeline line for a single span.
func (r *Renderer) renderSpan(span timelineSpan, minTime time.Time, totalDuration time.Duration) string {
	if span.IsHost {
		statusIcon := StatusIconOK
		if !span.Success {
			statusIcon = StatusIconError
		}
		return fmt.Sprintf("│ %-*s %s\n", r.Width-6, span.Name, statusIcon)
	}

	startOffset := span.StartTime.Sub(minTime)
	startPos := int(float64(startOffset) / float64(totalDuration) * float64(r.BarWidth))
	barLength := int(float64(span.Duration) / float64(totalDuration) * float64(r.BarWidth))

	if barLength < 1 {
		barLength = 1
	}
	if startPos+barLength > r.BarWidth {
		barLength = r.BarWidth - startPos
	}
	if startPos < 0 {
		startPos = 0
	}

	bar := make([]rune, r.BarWidth)
	for i := 0; i < r.BarWidth; i++ {
		if i >= startPos && i < startPos+barLength {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}

	statusIcon := StatusIconOK
	if !span.Success {
		statusIcon = StatusIconError
	}

	indent := strings.Repeat("  ", span.Level)
	prefix := "└─ "

	// The name column gets what the row leaves after the bar and the fixed
	// columns: "│ " (2), the prefix (3), the space before the bar (1),
	// "  " and the duration (8), "  " and the icon (3), and " │" (2).
	nameWidth := r.Width - r.BarWidth - len(indent) - 19
	if nameWidth < 10 {
		nameWidth = 10
	}
	name := truncate(span.Name, nameWidth)

	return fmt.Sprintf("│ %s%s%-*s %s  %6s  %s │\n",
		indent,
		prefix,
		nameWidth,
		name,
		string(bar),
		formatDuration(span.Duration),
		statusIcon,
	)
}

// truncate shortens a string to maxLen with ellipsis if needed.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
