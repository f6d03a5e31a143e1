package aggregator

import "strings"

// MaskString replaces the middle of value with asterisks, leaving a visible
// prefix and suffix. ratio is the fraction to hide: 0 returns the value
// unchanged, 1 hides everything. minVisible floors the visible character
// budget so very short values are not reduced to nothing. Operates on runes
// so multi-byte input is never split mid-character.
func MaskString(value string, ratio float64, minVisible int) string {
	if ratio <= 0 {
		return value
	}

	runes := []rune(value)
	n := len(runes)
	if n == 0 {
		return value
	}

	if ratio >= 1 {
		return strings.Repeat("*", n)
	}

	visible := int(float64(n) * (1 - ratio))
	if visible < minVisible {
		visible = minVisible
	}

	masked := n - visible
	if masked <= 0 {
		return value
	}

	lead := (visible + 1) / 2
	trail := visible - lead

	var b strings.Builder
	b.Grow(n)
	b.WriteString(string(runes[:lead]))
	b.WriteString(strings.Repeat("*", masked))
	if trail > 0 {
		b.WriteString(string(runes[n-trail:]))
	}
	return b.String()
}
