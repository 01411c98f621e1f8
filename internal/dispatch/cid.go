package dispatch

import "regexp"

// The three raw-link forms a content id can be extracted from:
// a custom-scheme URI, a magnet-style btih parameter, and a bare
// 40-character hex digest. Hex matching is case-insensitive.
var (
	schemeRe  = regexp.MustCompile(`(?i)^acestream://([A-Za-z0-9]+)`)
	btihRe    = regexp.MustCompile(`(?i)btih:([A-F0-9]{40})`)
	bareHexRe = regexp.MustCompile(`(?i)^([A-F0-9]{40})$`)
)

// ExtractCID pulls a content identifier out of a raw link string.
// Dispatch never proceeds without one.
func ExtractCID(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if m := schemeRe.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if m := btihRe.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if m := bareHexRe.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return "", false
}
