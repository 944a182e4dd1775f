// Package ui draws the parameter panel and soil overlay of the viewer.
package ui

import (
	"fmt"

	"mixcrop/internal/core"
)

// ParameterProvider exposes values shown in the panel.
type ParameterProvider interface {
	Parameters() core.ParameterSnapshot
}

// Lines flattens a snapshot into panel text, one group header followed by
// its "label: value" rows, truncated to width characters.
func Lines(s core.ParameterSnapshot, width int) []string {
	var out []string
	for i, g := range s.Groups {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, clip(g.Name, width))
		for _, p := range g.Params {
			out = append(out, clip(fmt.Sprintf("  %s: %s", p.Label, p.Value), width))
		}
		if g.Summary != "" {
			out = append(out, clip("  "+g.Summary, width))
		}
	}
	return out
}

func clip(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "~"
}
