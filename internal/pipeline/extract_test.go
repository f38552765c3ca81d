package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"caremind/internal"
)

func TestAccumulateDiscardsLinesBeforeFirstHeading(t *testing.T) {
	raw := "Intro line\nProblem list:\n- Sepsis\n\nLabs\n* Lactate 4.1"
	got := Accumulate(raw, DoctorProfile.Aliases)

	require.Equal(t, map[internal.SectionKey][]string{
		internal.SectionProblems:     {"• Sepsis"},
		internal.SectionAbnormalLabs: {"• Lactate 4.1"},
	}, got)
}

func TestPlainText(t *testing.T) {
	html := `<html><head><style>p{}</style></head><body>
<h1>Discharge   summary</h1><p>Line one<br>Line two</p>
<ul><li>Item A</li><li>Item B</li></ul><script>alert(1)</script></body></html>`

	require.Equal(t, "Discharge summary\nLine one\nLine two\nItem A\nItem B", PlainText(html))
	require.Equal(t, "no markup here", PlainText("  no markup here \n"))
}

func TestExtractReportTextRejectsNonPDF(t *testing.T) {
	_, err := ExtractReportText([]byte("not a pdf"))
	require.Error(t, err)
}

func TestReadInputTextAndParseByKind(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "answer.html")
	require.NoError(t, os.WriteFile(htmlPath, []byte("<p>Monitor glucose | Before dinner</p><p>Recheck BP | In 1 hour</p>"), 0o644))

	text, err := ReadInputText(htmlPath)
	require.NoError(t, err)
	require.Equal(t, "Monitor glucose | Before dinner\nRecheck BP | In 1 hour", text)

	parsed, err := ParseByKind(KindChecklist, text)
	require.NoError(t, err)
	require.Len(t, parsed.([]internal.ChecklistItem), 2)

	txtPath := filepath.Join(dir, "answer.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("Diagnosis:\n- Pneumonia"), 0o644))
	text, err = ReadInputText(txtPath)
	require.NoError(t, err)

	parsed, err = ParseByKind(KindSummary, text)
	require.NoError(t, err)
	require.Equal(t, "• Pneumonia", parsed.(map[internal.SectionKey]string)[internal.SectionDiagnosis])

	_, err = ParseByKind("bogus", text)
	require.Error(t, err)

	_, err = ReadInputText(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}
