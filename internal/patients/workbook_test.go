package patients

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func mkWorkbook(t *testing.T, sheets map[string][][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName(f.GetSheetName(0), name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range rows {
			for c, v := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
				require.NoError(t, f.SetCellValue(name, cell, v))
			}
		}
	}
	buf := bytes.NewBuffer(nil)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf
}

func TestImportWorkbook(t *testing.T) {
	buf := mkWorkbook(t, map[string][][]any{
		"doc": {
			{"patientId", "timestamp", "doctorName", "diagnosis", "assessment", "plan"},
			{"an1", "2026-02-13T09:00:00Z", "Dr. Lee", "Pneumonia", "#Pneumonia - improving", "Continue azithromycin"},
			{"", "2026-02-13T09:00:00Z", "Dr. Lee", "orphan", "", ""},
		},
		"drug": {
			{"patient_id", "orderId", "medicationName", "dosage", "frequency", "status", "quantity"},
			{"an1", "rx-1", "Azithromycin", "500 mg", "Daily", "Active", 5},
		},
		"lab": {
			{"patientId", "timestamp", "testName", "results"},
			{"an2", "2026-02-13T06:00:00Z", "CBC", `{"WBC":{"value":"14.2","unit":"K/uL","flag":"High"},"Hgb":{"value":"12.9","unit":"g/dL","flag":"Normal"}}`},
		},
		"nurse": {
			{"patientId", "timestamp", "nurseName", "vitalSigns"},
			{"an1", "2026-02-13T08:00:00Z", "RN Kim", `{"temperature":100.4,"bloodPressure":"128/82","heartRate":"96","oxygenSaturation":93}`},
		},
		"xray": {
			{"patientId", "orderId", "examType", "impression", "radiologistName"},
			{"an1", "img-1", "Chest X-ray", "RLL consolidation", "Dr. Park"},
		},
	})

	charts, err := ImportWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, charts, 2)
	require.Equal(t, "an1", charts[0].PatientID)
	require.Equal(t, "an2", charts[1].PatientID)

	an1 := charts[0]
	require.Len(t, an1.Notes, 1)
	require.Equal(t, "Pneumonia", an1.Notes[0].Diagnosis)
	require.Len(t, an1.Meds, 1)
	require.Equal(t, 5, an1.Meds[0].Quantity)
	require.Equal(t, "rx-1", an1.Meds[0].OrderID)
	require.NotNil(t, an1.Vitals[0].VitalSigns)
	require.Equal(t, 96.0, *an1.Vitals[0].VitalSigns.HeartRate)
	require.Equal(t, "128/82", an1.Vitals[0].VitalSigns.BloodPressure)
	require.Nil(t, an1.Vitals[0].VitalSigns.RespiratoryRate)
	require.Equal(t, "Dr. Park", an1.Imaging[0].RadiologistName)

	an2 := charts[1]
	require.Equal(t, []string{"WBC", "Hgb"}, an2.Labs[0].ResultOrder)
	require.Equal(t, "High", an2.Labs[0].Results["WBC"].Flag)
}

func TestImportWorkbookRejectsGarbage(t *testing.T) {
	_, err := ImportWorkbook(bytes.NewBufferString("not a workbook"))
	require.Error(t, err)
}
