package utils

import (
	"fmt"
	"strings"
	"time"
)

// eventDateLayouts are the timestamp shapes the provider has been seen
// sending. The offset-less form is treated as UTC.
var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
}

// ParseEventDate parses a provider event date and normalizes it to UTC.
func ParseEventDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty event date")
	}
	for _, layout := range eventDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported event date format: %q", value)
}
