package pipeline

import (
	"regexp"
	"strings"

	"caremind/internal"
)

var (
	reHeading        = regexp.MustCompile(`^([A-Za-z\s]+):?$`)
	reGenericHeading = regexp.MustCompile(`^([A-Z][A-Za-z\s]+):?$`)
)

// MatchHeading reports whether line is a heading that resolves to a section
// key through aliases. A heading-shaped line that no alias claims is not a
// heading.
func MatchHeading(line string, aliases internal.AliasTable) (internal.SectionKey, bool) {
	m := reHeading.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return ResolveAlias(m[1], aliases)
}

// ResolveAlias looks heading up by ordered substring containment.
func ResolveAlias(heading string, aliases internal.AliasTable) (internal.SectionKey, bool) {
	normalized := strings.ToLower(heading)
	for _, alias := range aliases {
		fragment := strings.ToLower(strings.TrimSpace(alias.Fragment))
		if fragment == "" {
			continue
		}
		if strings.Contains(normalized, fragment) {
			return alias.Key, true
		}
	}
	return "", false
}

// genericHeading returns the heading text of a capitalised heading-shaped line.
func genericHeading(line string) (string, bool) {
	m := reGenericHeading.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
