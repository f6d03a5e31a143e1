package tasks

import (
	"fmt"
	"time"
)

// estimateETA projects the remaining duration from elapsed time and the
// progress/total counters, formatted as h/m/s. It returns "" when no sane
// estimate exists (zero progress, unknown total, or already done) so pollers
// never see garbage like "+Inf".
func estimateETA(start time.Time, progress, total uint64) string {
	if progress == 0 || total == 0 || progress >= total {
		return ""
	}

	elapsed := time.Since(start)
	if elapsed <= 0 {
		return ""
	}

	rate := elapsed / time.Duration(progress)
	remaining := rate * time.Duration(total-progress)
	return formatDuration(remaining)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)

	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
