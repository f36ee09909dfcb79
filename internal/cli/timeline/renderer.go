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

// Package timeline renders a chain report as an ASCII timeline, one bar
// per executed step.
package timeline

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/tombee/mender/pkg/chain"
)

const (
	// MinWidth is the narrowest timeline rendered.
	MinWidth = 80
	// DefaultWidth is used when the terminal size is unknown.
	DefaultWidth = 100
	// DefaultBarWidth is the smallest bar area.
	DefaultBarWidth = 30

	StatusIconOK    = "✓"
	StatusIconError = "✗"

	nameWidth = 22
)

// Renderer renders timelines at a fixed width.
type Renderer struct {
	Width    int
	BarWidth int
}

// NewRenderer sizes the renderer to the terminal on stdout.
func NewRenderer() *Renderer {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = DefaultWidth
	}
	return NewRendererWidth(width)
}

// NewRendererWidth creates a renderer of the given width, clamped to
// MinWidth.
func NewRendererWidth(width int) *Renderer {
	if width < MinWidth {
		width = MinWidth
	}
	// "│ " + name + " " + bar + "  " + duration(7) + "  " + icon + " " + retries(4) + " │"
	barWidth := width - nameWidth - 22
	if barWidth > 60 {
		barWidth = 60
	}
	if barWidth < DefaultBarWidth {
		barWidth = DefaultBarWidth
	}
	return &Renderer{Width: width, BarWidth: barWidth}
}

// Render draws report. Steps ran sequentially, so each bar starts where
// the previous one ended.
func (r *Renderer) Render(report *chain.Report) (string, error) {
	if report == nil || len(report.Results) == 0 {
		return "", fmt.Errorf("no steps to render")
	}

	var total time.Duration
	for _, res := range report.Results {
		total += res.Duration
	}
	if total <= 0 {
		total = time.Nanosecond
	}

	inner := nameWidth + 1 + r.BarWidth + 2 + 7 + 2 + 1 + 1 + 4
	border := strings.Repeat("─", inner+2)

	var sb strings.Builder
	sb.WriteString("┌" + border + "┐\n")
	title := fmt.Sprintf("Scenario: %s", report.Name)
	totalStr := "Total: " + formatDuration(report.TotalDuration)
	pad := inner - len([]rune(title)) - len([]rune(totalStr))
	if pad < 1 {
		title = truncate(title, inner-len([]rune(totalStr))-1)
		pad = 1
	}
	sb.WriteString("│ " + title + strings.Repeat(" ", pad) + totalStr + " │\n")
	sb.WriteString("├" + border + "┤\n")

	var offset time.Duration
	for _, res := range report.Results {
		sb.WriteString(r.renderStep(res, offset, total))
		offset += res.Duration
	}

	sb.WriteString("└" + border + "┘\n")

	if skipped := report.TotalSteps - len(report.Results); skipped > 0 {
		sb.WriteString(fmt.Sprintf("%d step(s) not run\n", skipped))
	}
	return sb.String(), nil
}

func (r *Renderer) renderStep(res chain.Result, offset, total time.Duration) string {
	startPos := int(float64(offset) / float64(total) * float64(r.BarWidth))
	barLength := int(float64(res.Duration) / float64(total) * float64(r.BarWidth))
	if barLength < 1 {
		barLength = 1
	}
	if startPos >= r.BarWidth {
		startPos = r.BarWidth - 1
	}
	if startPos+barLength > r.BarWidth {
		barLength = r.BarWidth - startPos
	}

	bar := make([]rune, r.BarWidth)
	for i := range bar {
		if i >= startPos && i < startPos+barLength {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}

	icon := StatusIconOK
	if !res.Success {
		icon = StatusIconError
	}
	retries := ""
	if res.Retries > 0 {
		retries = fmt.Sprintf("↻%d", res.Retries)
	}

	name := truncate(string(res.Phase)+" "+res.StepName, nameWidth)
	return fmt.Sprintf("│ %-*s %s  %7s  %s %-4s │\n",
		nameWidth, name, string(bar), formatDuration(res.Duration), icon, retries)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

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
