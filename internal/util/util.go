package util

import (
	"encoding/json"
	"strings"
)

// JSONStringify converts any value to a JSON string.
func JSONStringify(val any) string {
	buf, _ := json.Marshal(val)
	return string(buf)
}

// SliceContains returns true if the slice contains the value.
func SliceContains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

// IsLocalhost returns true if the URL is localhost or 127.0.0.1 or 0.0.0.0.
func IsLocalhost(url string) bool {
	return strings.Contains(url, "localhost") || strings.Contains(url, "127.0.0.1") || strings.Contains(url, "0.0.0.0")
}
