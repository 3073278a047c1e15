// Package utils contains small shared helpers used across the service.
package utils

import (
	"fmt"
	"time"
)

// sizeUnits is ordered smallest to largest; TB is the cap because stream
// listings never report anything bigger.
var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize converts a byte count to a human readable string with two
// decimal places, e.g. 1536 -> "1.50 KB". Zero and negative counts render
// as "0.00 B".
func FormatSize(bytes int64) string {
	size := float64(bytes)
	if size < 0 {
		size = 0
	}

	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// FormatDuration converts a duration to a compact human readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}
