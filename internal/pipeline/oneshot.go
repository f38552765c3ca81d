package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParseKind names a parser reachable from the command line.
type ParseKind string

const (
	KindDoctor     ParseKind = "doctor"
	KindPharmacist ParseKind = "pharmacist"
	KindSummary    ParseKind = "summary"
	KindChecklist  ParseKind = "checklist"
	KindProblems   ParseKind = "problems"
	KindGeneric    ParseKind = "generic"
)

// ReadInputText loads AI output or a report from disk. PDF and HTML files are
// reduced to their text first.
func ReadInputText(path string) (string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ExtractReportText(blob)
	case ".html", ".htm":
		return PlainText(string(blob)), nil
	default:
		return string(blob), nil
	}
}

func ParseByKind(kind ParseKind, text string) (any, error) {
	switch kind {
	case KindDoctor:
		return ParseSectionedText(text, DoctorProfile), nil
	case KindPharmacist:
		return ParseSectionLists(text, PharmacistProfile), nil
	case KindSummary:
		return ParseSectionedText(text, PatientSummaryProfile), nil
	case KindChecklist:
		return ParseChecklist(text), nil
	case KindProblems:
		return ParseProblemList(text), nil
	case KindGeneric:
		return ParseGenericSections(text), nil
	default:
		return nil, fmt.Errorf("unsupported parse kind: %s", kind)
	}
}
