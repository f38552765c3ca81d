package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"caremind/internal"
)

// PatientReport gathers the rounding views of one patient. A nil view was not
// built; Errors holds the banner text of views that fell back to defaults.
type PatientReport struct {
	PatientID  string          `json:"patientId"`
	Doctor     *DoctorView     `json:"doctor,omitempty"`
	Pharmacist *PharmacistView `json:"pharmacist,omitempty"`
	Nurse      *NurseView      `json:"nurse,omitempty"`
	Errors     map[View]string `json:"errors,omitempty"`
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func newSheet(f *excelize.File, name string, headers []string, first bool) (*sheetWriter, error) {
	if first {
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return nil, err
		}
	} else if _, err := f.NewSheet(name); err != nil {
		return nil, err
	}
	w := &sheetWriter{f: f, sheet: name, row: 1}
	values := make([]any, len(headers))
	for i, h := range headers {
		values[i] = h
	}
	w.add(values...)
	return w, nil
}

func (w *sheetWriter) add(values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, w.row)
		_ = w.f.SetCellValue(w.sheet, cell, v)
	}
	w.row++
}

// ExportReportsToXLSX writes one sheet per view plus an "errors" sheet.
func ExportReportsToXLSX(reports []PatientReport, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	doctor, err := newSheet(f, "doctor", []string{"patient_id", "problems", "abnormal_labs", "suggested_actions"}, true)
	if err != nil {
		return err
	}
	problems, err := newSheet(f, "problems", []string{"patient_id", "title", "summary", "plan", "evidence", "todos"}, false)
	if err != nil {
		return err
	}
	pharmacist, err := newSheet(f, "pharmacist", []string{"patient_id", "interactions", "dose_adjustments", "alerts", "new_or_changed", "duplicates"}, false)
	if err != nil {
		return err
	}
	nurse, err := newSheet(f, "nurse", []string{"patient_id", "item_id", "task", "timeframe", "completed"}, false)
	if err != nil {
		return err
	}
	errs, err := newSheet(f, "errors", []string{"patient_id", "view", "error"}, false)
	if err != nil {
		return err
	}

	for _, r := range reports {
		if v := r.Doctor; v != nil {
			doctor.add(r.PatientID, v.Sections[internal.SectionProblems], v.Sections[internal.SectionAbnormalLabs], v.Sections[internal.SectionSuggestedActions])
			for _, p := range v.Problems {
				problems.add(r.PatientID, p.Title, p.Summary, p.Plan, evidenceText(p.Evidence), strings.Join(p.Todos, "\n"))
			}
		}
		if v := r.Pharmacist; v != nil {
			changed := make([]string, 0, len(v.Reconciliation.NewOrChanged))
			for _, o := range v.Reconciliation.NewOrChanged {
				changed = append(changed, strings.TrimSpace(o.MedicationName+" "+o.Dosage))
			}
			dupes := append(append([]string{}, v.Reconciliation.NameConflicts...), v.Reconciliation.ClassConflicts...)
			pharmacist.add(r.PatientID,
				strings.Join(v.Sections[internal.SectionInteractions], "\n"),
				strings.Join(v.Sections[internal.SectionDoseAdjustments], "\n"),
				strings.Join(v.Sections[internal.SectionAlerts], "\n"),
				strings.Join(changed, "\n"),
				strings.Join(dupes, "\n"),
			)
		}
		if v := r.Nurse; v != nil {
			for _, item := range v.Items {
				nurse.add(r.PatientID, item.ID, item.Task, item.Timeframe, item.Completed)
			}
		}
		views := make([]string, 0, len(r.Errors))
		for view := range r.Errors {
			views = append(views, string(view))
		}
		sort.Strings(views)
		for _, view := range views {
			errs.add(r.PatientID, view, r.Errors[View(view)])
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func evidenceText(items []internal.EvidenceItem) string {
	lines := make([]string, 0, len(items))
	for _, e := range items {
		line := e.Label + ": " + e.Detail
		if e.Source != "" {
			line += " (" + e.Source + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
