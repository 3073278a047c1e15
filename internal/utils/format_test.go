package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{"zero bytes", 0, "0.00 B"},
		{"under one KB", 512, "512.00 B"},
		{"exactly one KB", 1024, "1.00 KB"},
		{"one and a half KB", 1536, "1.50 KB"},
		{"megabytes", 5 * 1024 * 1024, "5.00 MB"},
		{"gigabytes", 2 * 1024 * 1024 * 1024, "2.00 GB"},
		{"terabytes", 3 * 1024 * 1024 * 1024 * 1024, "3.00 TB"},
		{"negative clamps to zero", -42, "0.00 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSize(tt.bytes))
		})
	}
}

func TestFormatSizeCapsAtTerabytes(t *testing.T) {
	// Values beyond TB stay in TB rather than overflowing the unit table.
	huge := int64(1024) * 1024 * 1024 * 1024 * 1024 * 2
	assert.Equal(t, "2048.00 TB", FormatSize(huge))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"seconds only", 45 * time.Second, "45s"},
		{"minutes and seconds", 2*time.Minute + 5*time.Second, "2m 5s"},
		{"hours and minutes", 3*time.Hour + 20*time.Minute, "3h 20m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.duration))
		})
	}
}
