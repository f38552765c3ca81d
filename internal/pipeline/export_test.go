package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"caremind/internal"
)

func TestExportReportsToXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "rounds.xlsx")
	reports := []PatientReport{
		{
			PatientID: "P1",
			Doctor: &DoctorView{
				PatientID: "P1",
				Sections:  DoctorProfile.DefaultText(),
				Problems: []internal.ProblemSummary{{
					Title:    "Pneumonia",
					Summary:  "improving",
					Plan:     "Switch to oral",
					Evidence: []internal.EvidenceItem{{Label: "O2 Sat", Detail: "91%", Source: "RN Kim"}},
					Todos:    []string{"Trend CBC", "Review imaging"},
				}},
			},
			Pharmacist: &PharmacistView{
				PatientID: "P1",
				Sections:  AssembleLists(nil, PharmacistProfile),
				Reconciliation: Reconciliation{
					NewOrChanged:  []internal.MedicationOrder{{MedicationName: "Azithromycin", Dosage: "500 mg"}},
					NameConflicts: []string{"Duplicate therapy for Azithromycin: 500 mg daily | 250 mg daily"},
				},
			},
			Nurse: &NurseView{
				PatientID: "P1",
				Items:     []internal.ChecklistItem{{ID: "checklist-1", Task: "Recheck BP", Timeframe: "In 1 hour"}},
			},
		},
		{
			PatientID: "P2",
			Errors:    map[View]string{ViewPharmacist: "quota", ViewDoctor: "timeout"},
		},
	}

	require.NoError(t, ExportReportsToXLSX(reports, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{"doctor", "problems", "pharmacist", "nurse", "errors"}, f.GetSheetList())

	doctor, err := f.GetRows("doctor")
	require.NoError(t, err)
	require.Len(t, doctor, 2)
	require.Equal(t, []string{"P1", "No problem updates available.", "No abnormal labs reported.", "No suggestions at this time."}, doctor[1])

	problems, err := f.GetRows("problems")
	require.NoError(t, err)
	require.Equal(t, []string{"P1", "Pneumonia", "improving", "Switch to oral", "O2 Sat: 91% (RN Kim)", "Trend CBC\nReview imaging"}, problems[1])

	pharmacist, err := f.GetRows("pharmacist")
	require.NoError(t, err)
	require.Equal(t, "Azithromycin 500 mg", pharmacist[1][4])
	require.Equal(t, "Duplicate therapy for Azithromycin: 500 mg daily | 250 mg daily", pharmacist[1][5])

	nurse, err := f.GetRows("nurse")
	require.NoError(t, err)
	require.Equal(t, []string{"P1", "checklist-1", "Recheck BP", "In 1 hour"}, nurse[1][:4])

	errs, err := f.GetRows("errors")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"patient_id", "view", "error"},
		{"P2", "doctor", "timeout"},
		{"P2", "pharmacist", "quota"},
	}, errs)
}
