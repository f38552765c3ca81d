package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"caremind/internal"
)

// ParseProblemList reads the JSON problem list the model is asked for. Prose
// around the object is ignored. Anything unparseable yields an empty list.
func ParseProblemList(raw string) []internal.ProblemEntry {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return []internal.ProblemEntry{}
	}

	var payload struct {
		Problems []struct {
			Name     *string         `json:"name"`
			Plan     *string         `json:"plan"`
			Evidence json.RawMessage `json:"evidence"`
		} `json:"problems"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return []internal.ProblemEntry{}
	}

	out := []internal.ProblemEntry{}
	for _, item := range payload.Problems {
		name := "Unspecified problem"
		if item.Name != nil {
			name = strings.TrimSpace(*item.Name)
		}
		if name == "" {
			continue
		}
		plan := "No plan provided"
		if item.Plan != nil {
			plan = strings.TrimSpace(*item.Plan)
		}
		out = append(out, internal.ProblemEntry{
			Name:     name,
			Plan:     plan,
			Evidence: evidenceStrings(item.Evidence),
		})
	}
	return out
}

func evidenceStrings(raw json.RawMessage) []string {
	out := []string{}
	var values []any
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil {
		return out
	}
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				out = append(out, s)
			}
		case nil:
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out
}

var (
	reHashSegment  = regexp.MustCompile(`#[^#\n]+`)
	reSegmentLead  = regexp.MustCompile(`^[#•\-\d.)]+\s*`)
	reTitleSplit   = regexp.MustCompile(`[:\-]`)
	rePlanSplit    = regexp.MustCompile(`[\n•\-]`)
	defaultPlan    = "Continue current plan of care."
	defaultProblem = "Active Problem"
)

type problemSegment struct {
	Title   string
	Summary string
}

func sanitizeSegment(line string) string {
	return strings.TrimSpace(reSegmentLead.ReplaceAllString(strings.TrimSpace(line), ""))
}

// problemSegments splits an assessment into titled segments. "#"-delimited
// problems are preferred; otherwise each line is a problem when there is more
// than one.
func problemSegments(assessment, fallback string) []problemSegment {
	if strings.TrimSpace(assessment) == "" {
		return []problemSegment{{Title: fallback, Summary: fallback}}
	}
	cleaned := strings.ReplaceAll(assessment, "\r", "\n")

	segments := []problemSegment{}
	for _, match := range reHashSegment.FindAllString(cleaned, -1) {
		content := sanitizeSegment(match)
		if content == "" {
			continue
		}
		segments = append(segments, splitSegment(content))
	}

	if len(segments) == 0 {
		lines := []string{}
		for _, line := range strings.Split(cleaned, "\n") {
			if s := sanitizeSegment(line); s != "" {
				lines = append(lines, s)
			}
		}
		if len(lines) > 1 {
			for _, line := range lines {
				segments = append(segments, splitSegment(line))
			}
		}
	}

	if len(segments) == 0 {
		summary := strings.TrimSpace(cleaned)
		if summary == "" {
			summary = fallback
		}
		segments = append(segments, problemSegment{Title: fallback, Summary: summary})
	}
	return segments
}

func splitSegment(content string) problemSegment {
	parts := reTitleSplit.Split(content, -1)
	title := strings.TrimSpace(parts[0])
	summary := strings.TrimSpace(strings.Join(parts[1:], "-"))
	if summary == "" {
		summary = content
	}
	return problemSegment{Title: title, Summary: summary}
}

func planSegments(plan string) []string {
	out := []string{}
	for _, part := range rePlanSplit.Split(plan, -1) {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BuildProblemSummaries turns the patient's doctor notes into per-problem
// cards, newest note first. A title seen in a newer note shadows older ones.
func BuildProblemSummaries(patientID string, chart internal.Chart, now time.Time) []internal.ProblemSummary {
	notes := make([]internal.DoctorNote, 0, len(chart.Notes))
	for _, note := range chart.Notes {
		if note.PatientID == "" || note.PatientID == patientID {
			notes = append(notes, note)
		}
	}
	sort.SliceStable(notes, func(i, j int) bool {
		a, _ := ParseTimestamp(notes[i].Timestamp)
		b, _ := ParseTimestamp(notes[j].Timestamp)
		return a.After(b)
	})

	seen := map[string]bool{}
	out := []internal.ProblemSummary{}
	for noteIdx, note := range notes {
		fallback := firstNonEmpty(note.Diagnosis, note.ChiefComplaint, note.Problem, defaultProblem)
		plans := planSegments(note.Plan)
		for segIdx, segment := range problemSegments(note.Assessment, fallback) {
			title := firstNonEmpty(segment.Title, note.Diagnosis, defaultProblem)
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true

			plan := strings.TrimSpace(note.Plan)
			switch {
			case segIdx < len(plans):
				plan = plans[segIdx]
			case len(plans) > 0:
				plan = plans[0]
			}
			if plan == "" {
				plan = defaultPlan
			}

			out = append(out, internal.ProblemSummary{
				ID:       fmt.Sprintf("%s-%d-%d", patientID, noteIdx, segIdx),
				Title:    title,
				Summary:  segment.Summary,
				Plan:     plan,
				Evidence: BuildEvidence(title, chart),
				Todos:    PendingTodos(title, chart, now),
			})
		}
	}
	return out
}

// PendingTodos suggests follow-ups for a problem. Imaging counts as recent
// when it is at most five days older than now.
func PendingTodos(title string, chart internal.Chart, now time.Time) []string {
	todos := []string{}
	lower := strings.ToLower(title)

	if lab, _, _, ok := firstAbnormalResult(chart.Labs); ok {
		todos = append(todos, fmt.Sprintf("Trend %s – last draw %s.", lab.TestName, FormatTimestamp(lab.Timestamp)))
	}

	if strings.Contains(lower, "pneumonia") || strings.Contains(lower, "resp") {
		if hasRecentImaging(chart.Imaging, now, 5*24*time.Hour) {
			todos = append(todos, "Review most recent chest imaging interpretation.")
		} else {
			todos = append(todos, "Order follow-up chest imaging if symptoms persist.")
		}
	}

	if strings.Contains(lower, "afib") || strings.Contains(lower, "cardiac") {
		todos = append(todos, "Confirm rate control and anticoagulation adherence.")
	}

	if len(todos) == 0 {
		todos = append(todos, "Continue monitoring and reassess within 24 hours.")
	}
	return dedupeStrings(todos)
}

func hasRecentImaging(studies []internal.ImagingStudy, now time.Time, window time.Duration) bool {
	for _, study := range studies {
		at, ok := ParseTimestamp(study.Timestamp)
		if ok && now.Sub(at) <= window {
			return true
		}
	}
	return false
}

func dedupeStrings(values []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
