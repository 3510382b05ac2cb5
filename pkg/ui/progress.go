package ui

import (
	"fmt"
	"strings"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
)

// Bar renders progress out of workload as a fixed-width bar
func Bar(progress, workload, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if workload > 0 {
		filled = progress * width / workload
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

// Counter renders "progress/workload" padded to the workload's width
func Counter(progress, workload int) string {
	w := len(fmt.Sprint(workload))
	return fmt.Sprintf("%*d/%d", w, progress, workload)
}
