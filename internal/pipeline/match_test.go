package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"caremind/internal"
	"caremind/internal/util"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Community-acquired Pneumonia", "respiratory"},
		{"COPD exacerbation", "respiratory"},
		{"Sepsis, urinary source", "infection"},
		{"AKI on CKD", "renal"},
		{"AFib with RVR", "cardiac"},
		{"Nausea and vomiting", "gi"},
		{"Hypertension", "general"},
		{"", "general"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, CategoryFor(tt.title).ID, tt.title)
	}
}

func TestBuildEvidenceRespiratory(t *testing.T) {
	title := "Community-acquired pneumonia"
	got := BuildEvidence(title, sampleChart())

	want := []internal.EvidenceItem{
		{ID: title + "-vital-oxygenSaturation", Type: internal.EvidenceVital, Label: "O2 Sat", Detail: "91%", Source: "RN Kim", Timestamp: "Feb 13, 09:20 AM"},
		{ID: title + "-vital-respiratoryRate", Type: internal.EvidenceVital, Label: "Resp Rate", Detail: "24/min", Source: "RN Kim", Timestamp: "Feb 13, 09:20 AM"},
		{ID: title + "-lab-WBC", Type: internal.EvidenceLab, Label: "WBC", Detail: "15.2 K/uL (High)", Source: "CBC", Timestamp: "Feb 13, 06:00 AM"},
		{ID: title + "-med-M1", Type: internal.EvidenceOrder, Label: "Azithromycin", Detail: "500 mg • daily", Source: "Dr. Lee", Timestamp: "Feb 12, 10:00 AM"},
		{ID: title + "-img-I1", Type: internal.EvidenceImaging, Label: "Chest X-ray", Detail: "Right lower lobe consolidation", Source: "Dr. Patel", Timestamp: "Feb 12, 12:00 PM"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("evidence mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildEvidenceGeneralUsesFirstAbnormalLab(t *testing.T) {
	got := BuildEvidence("Hypertension", sampleChart())

	labels := []string{}
	for _, item := range got {
		labels = append(labels, string(item.Type)+":"+item.Label)
	}
	require.Equal(t, []string{
		"vital:Blood Pressure",
		"vital:Heart Rate",
		"lab:WBC",
		"order:Azithromycin",
	}, labels)
	require.Equal(t, "128/76 mmHg", got[0].Detail)
	require.Equal(t, "110 bpm", got[1].Detail)
}

func TestBuildEvidenceCardiacPrefersKeywordMedication(t *testing.T) {
	got := BuildEvidence("AFib", sampleChart())

	var order *internal.EvidenceItem
	for i := range got {
		if got[i].Type == internal.EvidenceOrder {
			order = &got[i]
		}
	}
	require.NotNil(t, order)
	require.Equal(t, "AFib-med-M2", order.ID)
	require.Equal(t, "Metoprolol", order.Label)
}

func TestBuildEvidenceLatestVitalsFallback(t *testing.T) {
	chart := internal.Chart{
		Vitals: []internal.NurseVital{{
			Timestamp: "2025-02-13T07:00:00",
			NurseName: "RN Kim",
			VitalSigns: &internal.VitalSigns{
				BloodPressure: "120/80",
				HeartRate:     util.FloatPtr(88),
			},
		}},
	}
	got := BuildEvidence("Nausea", chart)

	require.Equal(t, []internal.EvidenceItem{{
		ID:        "Nausea-vital-default",
		Type:      internal.EvidenceVital,
		Label:     "Latest Vitals",
		Detail:    "120/80 mmHg • HR 88 bpm",
		Source:    "RN Kim",
		Timestamp: "Feb 13, 07:00 AM",
	}}, got)
}

func TestBuildEvidenceEmptyChart(t *testing.T) {
	got := BuildEvidence("Pneumonia", internal.Chart{})
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestLatestVitalsTieKeepsEarlierEntry(t *testing.T) {
	vitals := []internal.NurseVital{
		{Timestamp: "2025-02-13T07:00:00", NurseName: "first", VitalSigns: &internal.VitalSigns{}},
		{Timestamp: "2025-02-13T07:00:00", NurseName: "second", VitalSigns: &internal.VitalSigns{}},
		{Timestamp: "2025-02-14T07:00:00", NurseName: "no signs"},
	}
	latest := latestVitals(vitals)
	require.NotNil(t, latest)
	require.Equal(t, "first", latest.NurseName)
}

func TestResultKeysFallsBackToSortedOrder(t *testing.T) {
	lab := internal.LabResult{Results: map[string]internal.LabValue{"b": {}, "a": {}, "c": {}}}
	require.Equal(t, []string{"a", "b", "c"}, ResultKeys(lab))

	lab.ResultOrder = []string{"c", "missing", "a"}
	require.Equal(t, []string{"c", "a"}, ResultKeys(lab))
}

func TestIsAbnormal(t *testing.T) {
	require.True(t, IsAbnormal(internal.LabValue{Flag: "High"}))
	require.True(t, IsAbnormal(internal.LabValue{Flag: "L"}))
	require.False(t, IsAbnormal(internal.LabValue{Flag: " Normal "}))
	require.False(t, IsAbnormal(internal.LabValue{}))
}

func TestFormatTimestamp(t *testing.T) {
	require.Equal(t, "Feb 13, 09:20 AM", FormatTimestamp("2025-02-13T09:20:00"))
	require.Equal(t, "Feb 13, 02:05 PM", FormatTimestamp("2025-02-13 14:05"))
	require.Equal(t, "yesterday", FormatTimestamp("yesterday"))
	require.Equal(t, "", FormatTimestamp("  "))
}
