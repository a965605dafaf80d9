package main

import (
	"strings"
	"time"

	"resumeup/internal/registry"
)

func statusLabel(status registry.Status) string {
	switch status {
	case registry.StatusProcessing:
		return "Processing"
	case registry.StatusCompleted:
		return "Completed"
	case registry.StatusError:
		return "Error"
	default:
		return string(status)
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
