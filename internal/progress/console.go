package progress

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const barWidth = 40

// ConsoleCallback returns a Callback that renders a progress bar to w. The
// bar is redrawn in place; completion and errors get their own line.
func ConsoleCallback(w io.Writer) Callback {
	start := time.Now()
	return func(current, total int, message string) {
		switch {
		case current == -1:
			fmt.Fprintf(w, "\nx %s\n", message)
		case total > 0 && current >= total:
			fmt.Fprintf(w, "\n* %s (took %.2fs)\n", message, time.Since(start).Seconds())
		case total > 0:
			if current == 0 {
				start = time.Now()
			}
			filled := barWidth * current / total
			bar := strings.Repeat("=", filled) + strings.Repeat("-", barWidth-filled)
			fmt.Fprintf(w, "\r[%s] %5.1f%% - %s", bar, float64(current)/float64(total)*100, message)
		default:
			fmt.Fprintf(w, "\r%s", message)
		}
	}
}

// NewConsoleTracker returns a tracker that renders its progress to w.
func NewConsoleTracker(w io.Writer) *Tracker {
	return NewTracker(ConsoleCallback(w))
}
