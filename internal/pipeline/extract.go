package pipeline

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"

	"caremind/internal"
)

// Accumulate walks raw line by line, tracking the current section. Heading
// lines switch the section and are not emitted; other lines are normalized
// and appended to the current section, or discarded while no section is
// active yet.
func Accumulate(raw string, aliases internal.AliasTable) map[internal.SectionKey][]string {
	buffers := map[internal.SectionKey][]string{}
	var current *internal.SectionKey

	for _, line := range splitLines(raw) {
		if key, ok := MatchHeading(line, aliases); ok {
			k := key
			current = &k
			continue
		}
		if current == nil {
			continue
		}
		if normalized := NormalizeBullet(line); normalized != "" {
			buffers[*current] = append(buffers[*current], normalized)
		}
	}

	return buffers
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExtractReportText returns the plain text of a PDF report, one line per
// non-empty text line, so it can be appended to a prompt.
func ExtractReportText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	lines := []string{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			lines = append(lines, normalizeSpaces(line))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// PlainText reduces an HTML fragment to its visible text with block
// elements on separate lines. Non-HTML input is returned trimmed.
func PlainText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	doc.Find("script,style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p,div,li,tr,h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	lines := []string{}
	for _, line := range splitLines(doc.Text()) {
		lines = append(lines, normalizeSpaces(line))
	}
	return strings.Join(lines, "\n")
}
