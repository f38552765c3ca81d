package pipeline

import (
	"testing"

	"caremind/internal"
)

func TestMatchHeading(t *testing.T) {
	cases := []struct {
		line   string
		want   internal.SectionKey
		wantOK bool
	}{
		{line: "Problem list:", want: internal.SectionProblems, wantOK: true},
		{line: "  Abnormal labs  ", want: internal.SectionAbnormalLabs, wantOK: true},
		{line: "SUGGESTED ACTIONS:", want: internal.SectionSuggestedActions, wantOK: true},
		{line: "Summary Today", wantOK: false},
		{line: "- Problem list:", wantOK: false},
		{line: "Labs: WBC 14", wantOK: false},
		{line: "A1C labs", wantOK: false},
	}
	for _, tc := range cases {
		got, ok := MatchHeading(tc.line, DoctorProfile.Aliases)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("MatchHeading(%q) = %q,%v want %q,%v", tc.line, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestResolveAliasFirstMatchWins(t *testing.T) {
	aliases := internal.AliasTable{
		{Fragment: "", Key: internal.SectionTrends},
		{Fragment: "alert", Key: internal.SectionAlerts},
		{Fragment: "dose", Key: internal.SectionDoseAdjustments},
	}
	got, ok := ResolveAlias("Dose alerts", aliases)
	if !ok || got != internal.SectionAlerts {
		t.Fatalf("got %q,%v", got, ok)
	}
}

func TestPharmacistWarningAlias(t *testing.T) {
	got, ok := MatchHeading("Warnings", PharmacistProfile.Aliases)
	if !ok || got != internal.SectionAlerts {
		t.Fatalf("got %q,%v", got, ok)
	}
}
