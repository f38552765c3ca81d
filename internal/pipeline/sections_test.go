package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"caremind/internal"
)

func TestDoctorSectionsAttributeLinesToHeadings(t *testing.T) {
	raw := "Problem list:\n- Diabetes\n- Hypertension\nAbnormal labs:\n- A1C high\n"

	got := ParseSectionedText(raw, DoctorProfile)
	want := map[internal.SectionKey]string{
		internal.SectionProblems:         "• Diabetes\n• Hypertension",
		internal.SectionAbnormalLabs:     "• A1C high",
		internal.SectionSuggestedActions: "No suggestions at this time.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyInputYieldsDefaults(t *testing.T) {
	for _, profile := range []SectionProfile{DoctorProfile, PharmacistProfile, PatientSummaryProfile} {
		got := ParseSectionedText("", profile)
		if diff := cmp.Diff(profile.DefaultText(), got); diff != "" {
			t.Fatalf("%s defaults mismatch (-want +got):\n%s", profile.Name, diff)
		}
		require.Len(t, got, len(profile.Keys))
	}
}

func TestUnrecognisedLeadingHeadingIsDropped(t *testing.T) {
	got := ParseSectionedText("Summary Today\nPatient improving", DoctorProfile)
	if diff := cmp.Diff(DoctorProfile.DefaultText(), got); diff != "" {
		t.Fatalf("expected exact defaults (-want +got):\n%s", diff)
	}
}

func TestTextWithoutHeadingsEqualsDefaults(t *testing.T) {
	inputs := []string{
		"The patient is stable.\nNo changes overnight.",
		"- bullet one\n- bullet two",
		"1. numbered\n2) numbered",
		"   \n\r\n\t",
	}
	for _, in := range inputs {
		for _, profile := range []SectionProfile{DoctorProfile, PharmacistProfile, PatientSummaryProfile} {
			require.Equal(t, profile.DefaultText(), ParseSectionedText(in, profile), "%s: %q", profile.Name, in)
		}
	}
}

func TestLinesStayWithTheirHeadingUntilTheNextOne(t *testing.T) {
	raw := "Drug interactions:\n* Warfarin + aspirin: bleeding risk\n\n2) Amiodarone raises digoxin\r\nDose adjustments:\n- Reduce enoxaparin for CrCl < 30\nWarnings:\n- Duplicate beta blockers\nAlerts\n• Hold metformin before contrast"

	got := ParseSectionLists(raw, PharmacistProfile)
	want := map[internal.SectionKey][]string{
		internal.SectionInteractions:    {"• Warfarin + aspirin: bleeding risk", "• Amiodarone raises digoxin"},
		internal.SectionDoseAdjustments: {"• Reduce enoxaparin for CrCl < 30"},
		internal.SectionAlerts:          {"• Duplicate beta blockers", "• Hold metformin before contrast"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestPharmacistAlertsDefaultIsEmpty(t *testing.T) {
	got := ParseSectionLists("Drug interactions:\n- None significant", PharmacistProfile)
	require.Equal(t, []string{}, got[internal.SectionAlerts])
	require.Equal(t, []string{"No dose adjustments recommended."}, got[internal.SectionDoseAdjustments])
}

func TestAssembleDoesNotAliasBuffers(t *testing.T) {
	buffers := map[internal.SectionKey][]string{internal.SectionProblems: {"• one"}}
	out := AssembleLists(buffers, DoctorProfile)
	out[internal.SectionProblems][0] = "mutated"
	out[internal.SectionAbnormalLabs][0] = "mutated"
	require.Equal(t, "• one", buffers[internal.SectionProblems][0])
	require.Equal(t, "No abnormal labs reported.", DoctorProfile.Defaults[internal.SectionAbnormalLabs][0])
}

func TestParsingIsDeterministic(t *testing.T) {
	raw := "Diagnosis:\n- CHF exacerbation\nMedications\n- Furosemide 40 mg IV BID\nKey tests:\n- BNP 1,240\nTrends:\nRecommendations:\n- Daily weights"
	first := ParseSectionedText(raw, PatientSummaryProfile)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, ParseSectionedText(raw, PatientSummaryProfile))
	}
	require.Equal(t, "No details provided.", first[internal.SectionTrends])
	require.Equal(t, "• BNP 1,240", first[internal.SectionKeyTests])
}

func TestParseGenericSections(t *testing.T) {
	raw := "intro text is dropped\nDiagnosis:\n- Community acquired pneumonia\nPlan\nFollow Up:\n- Clinic in 1 week"

	got := ParseGenericSections(raw)
	want := []internal.GenericSection{
		{Heading: "Diagnosis", Content: "• Community acquired pneumonia"},
		{Heading: "Plan", Content: "No details provided."},
		{Heading: "Follow Up", Content: "• Clinic in 1 week"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("generic sections mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGenericSectionsFallsBackToSummary(t *testing.T) {
	got := ParseGenericSections("patient is improving.\nwalking with assistance.")
	require.Len(t, got, 1)
	require.Equal(t, "Summary", got[0].Heading)
	require.Equal(t, "patient is improving.\nwalking with assistance.", got[0].Content)

	require.Empty(t, ParseGenericSections("   "))
}
