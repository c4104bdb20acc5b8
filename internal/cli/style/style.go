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

// Package style holds the lipgloss styles shared by actoriac's interactive
// commands (init's scaffold wizard, future TUI surfaces).
package style

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// OK styles success indicators.
	OK = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

	// Warn styles warning indicators.
	Warn = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

	// Err styles error indicators.
	Err = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red

	// Muted styles secondary/less important text.
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray

	// Header styles section headers.
	Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")) // blue bold
)

const (
	symbolOK   = "✓"
	symbolWarn = "⚠"
)

// RenderOK renders a success message with a green checkmark.
func RenderOK(msg string) string {
	return OK.Render(symbolOK) + " " + msg
}

// RenderWarn renders a warning message with an orange symbol.
func RenderWarn(msg string) string {
	return Warn.Render(symbolWarn) + " " + msg
}
