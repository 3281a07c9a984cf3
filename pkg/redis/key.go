package redis

import "strings"

// Key joins non-empty parts with ':' to build a namespaced key.
func Key(parts ...string) string {
	clean := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, ":")
}
