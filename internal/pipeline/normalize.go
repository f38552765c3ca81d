package pipeline

import (
	"regexp"
	"strings"
)

const bulletMarker = "• "

// One leading bullet glyph run or a numbered marker ("1." / "2)") that is
// followed by whitespace or the end of the line.
var reLeadingBullet = regexp.MustCompile(`^(?:[-*\x{2022}\x{25CF}\x{25E6}]+|\d+[.)](?:\s|$))\s*`)

// StripBullet removes every leading bullet marker and the surrounding
// whitespace from line.
func StripBullet(line string) string {
	s := strings.TrimSpace(line)
	for {
		loc := reLeadingBullet.FindStringIndex(s)
		if loc == nil || loc[1] == 0 {
			return s
		}
		s = strings.TrimSpace(s[loc[1]:])
	}
}

// NormalizeBullet rewrites line to start with the canonical "• " marker.
// Lines that are only bullets normalize to "".
func NormalizeBullet(line string) string {
	s := StripBullet(line)
	if s == "" {
		return ""
	}
	return bulletMarker + s
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

var reSpaces = regexp.MustCompile(`\s+`)
