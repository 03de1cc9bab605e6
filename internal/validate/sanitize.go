package validate

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// tagPattern matches HTML-like tags so <script>alert(1)</script> collapses to
// alert(1) rather than surviving as markup.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9:_-]+$`)

// SanitizeText trims whitespace and strips HTML-like tags, stray angle
// brackets, and control characters. It is a fixed point: applying it to its
// own output returns the same string.
func SanitizeText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// ValidIdentifier reports whether s fits the shared identifier rules: bounded
// length and the alphanumeric+`:_-` character class. This is the single guard
// against injection through any identifier-shaped field.
func ValidIdentifier(s string, maxLen int) bool {
	if len(s) == 0 || len(s) > maxLen {
		return false
	}
	return identifierPattern.MatchString(s)
}

// identifierField fetches raw[key] as a validated identifier string.
func identifierField(raw map[string]any, key string, maxLen int) (string, bool) {
	s, ok := raw[key].(string)
	if !ok || !ValidIdentifier(s, maxLen) {
		return "", false
	}
	return s, true
}

// NormalizeRotation wraps an angle in radians into (-pi, pi].
func NormalizeRotation(r float64) float64 {
	r = math.Mod(r, 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	} else if r > math.Pi {
		r -= 2 * math.Pi
	}
	return r
}
