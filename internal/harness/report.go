package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/wolfman30/glintt-harness/internal/glintt"
)

// Banner prints a heavy-ruled section header.
func Banner(out io.Writer, title string) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, rule)
}

// Phase prints a light-ruled phase header preceded by a blank line.
func Phase(out io.Writer, title string) {
	rule := strings.Repeat("-", 70)
	fmt.Fprintln(out)
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, rule)
}

// Step prints a numbered step header for interactive probes.
func Step(out io.Writer, n int, title string) {
	fmt.Fprintf(out, "\n[Step %d] %s\n", n, title)
}

// Warning prints the banner reminding the operator that runs create real
// appointments in the Glintt TEST environment.
func Warning(out io.Writer, lines ...string) {
	rule := strings.Repeat("*", 70)
	fmt.Fprintln(out)
	fmt.Fprintln(out, rule)
	for _, line := range lines {
		fmt.Fprintf(out, "*  %s\n", line)
	}
	fmt.Fprintln(out, rule)
	fmt.Fprintln(out)
}

// ListSlots prints a numbered slot listing inside a heavy-ruled block,
// marking the entry that matches currentTime.
func ListSlots(out io.Writer, title string, slots []glintt.Slot, currentTime string) {
	fmt.Fprintln(out)
	Banner(out, title)
	for i, slot := range slots {
		marker := ""
		if currentTime != "" && slot.SlotDateTime == currentTime {
			marker = " (current)"
		}
		fmt.Fprintf(out, "  %2d. %s | Doctor: %s | Duration: %d%s\n",
			i+1, slot.SlotDateTime, slot.HumanResourceCode, slot.Duration, marker)
	}
	fmt.Fprintln(out, strings.Repeat("=", 70))
}
