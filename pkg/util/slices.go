package util

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ParseKeyValues turns ["K=V", ...] into a map. Keys are trimmed, values kept as is.
func ParseKeyValues(slice []string) (map[string]string, error) {
	invalid, found := lo.Find(slice, func(s string) bool {
		return !strings.Contains(s, "=") || strings.TrimSpace(strings.SplitN(s, "=", 2)[0]) == ""
	})
	if found {
		return nil, errors.Errorf("invalid key=value pair %q", invalid)
	}
	return lo.SliceToMap(slice, func(s string) (string, string) {
		parts := strings.SplitN(s, "=", 2)
		return strings.TrimSpace(parts[0]), parts[1]
	}), nil
}
