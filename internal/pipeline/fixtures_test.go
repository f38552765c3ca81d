package pipeline

import (
	"caremind/internal"
	"caremind/internal/util"
)

func sampleChart() internal.Chart {
	return internal.Chart{
		PatientID: "P1",
		Notes: []internal.DoctorNote{
			{
				PatientID:  "P1",
				Timestamp:  "2025-02-12T08:30:00",
				DoctorName: "Dr. Lee",
				Diagnosis:  "Community-acquired pneumonia",
				Assessment: "#Pneumonia - RLL consolidation #AKI: creatinine rising",
				Plan:       "- Continue azithromycin\n- IV fluids",
			},
			{
				PatientID:  "P1",
				Timestamp:  "2025-02-13T08:30:00",
				DoctorName: "Dr. Lee",
				Diagnosis:  "Pneumonia",
				Assessment: "Pneumonia - improving",
				Plan:       "Switch to oral",
			},
			{
				PatientID:  "P2",
				Timestamp:  "2025-02-13T09:00:00",
				Diagnosis:  "Cellulitis",
				Assessment: "Cellulitis of left leg",
			},
		},
		Meds: []internal.MedicationOrder{
			{
				PatientID:      "P1",
				Timestamp:      "2025-02-12T10:00:00",
				OrderID:        "M1",
				MedicationName: "Azithromycin",
				Dosage:         "500 mg",
				Frequency:      "daily",
				PrescribedBy:   "Dr. Lee",
				Status:         "Active",
			},
			{
				PatientID:      "P1",
				Timestamp:      "2025-02-11T10:00:00",
				OrderID:        "M2",
				MedicationName: "Metoprolol",
				Dosage:         "25 mg",
				Frequency:      "BID",
				PrescribedBy:   "Dr. Chen",
				Status:         "Active",
			},
		},
		Labs: []internal.LabResult{
			{
				PatientID: "P1",
				Timestamp: "2025-02-13T06:00:00",
				TestName:  "CBC",
				Results: map[string]internal.LabValue{
					"WBC": {Value: "15.2", Unit: "K/uL", Flag: "High"},
					"Hgb": {Value: "13.1", Unit: "g/dL", Flag: "normal"},
				},
				ResultOrder: []string{"WBC", "Hgb"},
			},
			{
				PatientID: "P1",
				Timestamp: "2025-02-13T06:00:00",
				TestName:  "BMP",
				Results: map[string]internal.LabValue{
					"Creatinine": {Value: "1.1", Unit: "mg/dL"},
				},
			},
		},
		Vitals: []internal.NurseVital{
			{
				PatientID: "P1",
				Timestamp: "2025-02-12T08:00:00",
				NurseName: "RN Park",
				VitalSigns: &internal.VitalSigns{
					Temperature:      util.FloatPtr(100.4),
					BloodPressure:    "130/80",
					HeartRate:        util.FloatPtr(104),
					RespiratoryRate:  util.FloatPtr(22),
					OxygenSaturation: util.FloatPtr(92),
				},
			},
			{
				PatientID: "P1",
				Timestamp: "2025-02-13T09:20:00",
				NurseName: "RN Kim",
				VitalSigns: &internal.VitalSigns{
					Temperature:      util.FloatPtr(101.2),
					BloodPressure:    "128/76",
					HeartRate:        util.FloatPtr(110),
					RespiratoryRate:  util.FloatPtr(24),
					OxygenSaturation: util.FloatPtr(91),
				},
			},
		},
		Imaging: []internal.ImagingStudy{
			{
				PatientID:       "P1",
				Timestamp:       "2025-02-12T12:00:00",
				OrderID:         "I1",
				ExamType:        "Chest X-ray",
				Impression:      "Right lower lobe consolidation",
				RadiologistName: "Dr. Patel",
			},
		},
	}
}
