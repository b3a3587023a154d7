package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateOrderID generates a fallback business order id for orders created
// without one (manual admin entry). Format: LSN-XXXXXXXXXXXX (uppercase hex).
func GenerateOrderID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("LSN-%s", strings.ToUpper(hex.EncodeToString(b))), nil
}

// NormalizeLicenseKeys trims whitespace and drops empties/duplicates while
// preserving input order. Used by the bulk license import endpoints.
func NormalizeLicenseKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
