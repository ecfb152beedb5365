package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDList parses a comma-separated list of positive integer ids.
// Blank entries are skipped; an empty input yields a nil slice.
func ParseIDList(raw string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsTruthy interprets query-string flags such as assigned_only=1.
func IsTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "y", "t":
		return true
	}
	return false
}
