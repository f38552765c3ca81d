package pipeline

import (
	"strings"

	"caremind/internal"
)

// SectionProfile configures one view's sectioned parse: the ordered alias
// table, the set of keys the output must contain, and the default lines used
// when a key received nothing.
type SectionProfile struct {
	Name     string
	Aliases  internal.AliasTable
	Keys     []internal.SectionKey
	Defaults map[internal.SectionKey][]string
}

var DoctorProfile = SectionProfile{
	Name: "doctor",
	Aliases: internal.AliasTable{
		{Fragment: "problem", Key: internal.SectionProblems},
		{Fragment: "lab", Key: internal.SectionAbnormalLabs},
		{Fragment: "action", Key: internal.SectionSuggestedActions},
	},
	Keys: []internal.SectionKey{internal.SectionProblems, internal.SectionAbnormalLabs, internal.SectionSuggestedActions},
	Defaults: map[internal.SectionKey][]string{
		internal.SectionProblems:         {"No problem updates available."},
		internal.SectionAbnormalLabs:     {"No abnormal labs reported."},
		internal.SectionSuggestedActions: {"No suggestions at this time."},
	},
}

var PharmacistProfile = SectionProfile{
	Name: "pharmacist",
	Aliases: internal.AliasTable{
		{Fragment: "interaction", Key: internal.SectionInteractions},
		{Fragment: "dose", Key: internal.SectionDoseAdjustments},
		{Fragment: "alert", Key: internal.SectionAlerts},
		{Fragment: "warning", Key: internal.SectionAlerts},
	},
	Keys: []internal.SectionKey{internal.SectionInteractions, internal.SectionDoseAdjustments, internal.SectionAlerts},
	Defaults: map[internal.SectionKey][]string{
		internal.SectionInteractions:    {"No significant interactions detected."},
		internal.SectionDoseAdjustments: {"No dose adjustments recommended."},
		internal.SectionAlerts:          {},
	},
}

var PatientSummaryProfile = SectionProfile{
	Name: "patient-summary",
	Aliases: internal.AliasTable{
		{Fragment: "diagnos", Key: internal.SectionDiagnosis},
		{Fragment: "medication", Key: internal.SectionMedications},
		{Fragment: "test", Key: internal.SectionKeyTests},
		{Fragment: "trend", Key: internal.SectionTrends},
		{Fragment: "recommend", Key: internal.SectionRecommendations},
	},
	Keys: []internal.SectionKey{
		internal.SectionDiagnosis, internal.SectionMedications, internal.SectionKeyTests,
		internal.SectionTrends, internal.SectionRecommendations,
	},
	Defaults: map[internal.SectionKey][]string{
		internal.SectionDiagnosis:       {"No details provided."},
		internal.SectionMedications:     {"No details provided."},
		internal.SectionKeyTests:        {"No details provided."},
		internal.SectionTrends:          {"No details provided."},
		internal.SectionRecommendations: {"No details provided."},
	},
}

// AssembleLists fills every profile key, substituting the default for keys
// whose buffer is empty. Returned slices never alias the inputs.
func AssembleLists(buffers map[internal.SectionKey][]string, profile SectionProfile) map[internal.SectionKey][]string {
	out := make(map[internal.SectionKey][]string, len(profile.Keys))
	for _, key := range profile.Keys {
		lines := buffers[key]
		if len(lines) == 0 {
			lines = profile.Defaults[key]
		}
		out[key] = append([]string{}, lines...)
	}
	return out
}

// Assemble is AssembleLists with each buffer joined by newlines.
func Assemble(buffers map[internal.SectionKey][]string, profile SectionProfile) map[internal.SectionKey]string {
	lists := AssembleLists(buffers, profile)
	out := make(map[internal.SectionKey]string, len(lists))
	for key, lines := range lists {
		out[key] = strings.Join(lines, "\n")
	}
	return out
}

// ParseSectionedText is the single entry point the views use to turn raw AI
// text into a complete section map.
func ParseSectionedText(raw string, profile SectionProfile) map[internal.SectionKey]string {
	return Assemble(Accumulate(raw, profile.Aliases), profile)
}

func ParseSectionLists(raw string, profile SectionProfile) map[internal.SectionKey][]string {
	return AssembleLists(Accumulate(raw, profile.Aliases), profile)
}

// DefaultText returns the text form of the profile's default table.
func (p SectionProfile) DefaultText() map[internal.SectionKey]string {
	return Assemble(nil, p)
}

// ParseGenericSections splits text on any capitalised heading line. Content
// before the first heading is dropped; an empty section reads "No details
// provided.", and text with no headings at all becomes a single "Summary".
func ParseGenericSections(text string) []internal.GenericSection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sections := []internal.GenericSection{}
	var heading *string
	buffer := []string{}

	flush := func() {
		if heading != nil {
			content := strings.Join(buffer, "\n")
			if content == "" {
				content = "No details provided."
			}
			sections = append(sections, internal.GenericSection{Heading: *heading, Content: content})
		}
		buffer = buffer[:0]
	}

	for _, line := range splitLines(text) {
		if h, ok := genericHeading(line); ok {
			flush()
			heading = &h
			continue
		}
		if normalized := NormalizeBullet(line); normalized != "" {
			buffer = append(buffer, normalized)
		}
	}
	flush()

	if len(sections) == 0 {
		return []internal.GenericSection{{Heading: "Summary", Content: strings.TrimSpace(text)}}
	}
	return sections
}
