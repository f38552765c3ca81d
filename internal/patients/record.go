package patients

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"caremind/internal"
)

// ToPatientInfo lifts the handful of demographic fields the views rely on.
// The full payload is kept in Raw.
func ToPatientInfo(an string, raw map[string]any) internal.PatientInfo {
	info := internal.PatientInfo{
		AN:        firstNonEmpty(stringField(raw, "an", "AN"), an),
		Name:      stringField(raw, "name", "patient_name", "fullname"),
		Age:       stringField(raw, "age"),
		Gender:    stringField(raw, "gender", "sex"),
		Ward:      stringField(raw, "ward", "room", "ward_name"),
		Diagnosis: stringField(raw, "diagnosis", "condition", "dx"),
		Raw:       raw,
	}
	if patient, ok := raw["patient"].(map[string]any); ok {
		info.Name = firstNonEmpty(info.Name, stringField(patient, "name", "patient_name", "fullname"))
		info.Age = firstNonEmpty(info.Age, stringField(patient, "age"))
		info.Gender = firstNonEmpty(info.Gender, stringField(patient, "gender", "sex"))
		info.Ward = firstNonEmpty(info.Ward, stringField(patient, "ward", "room"))
		info.Diagnosis = firstNonEmpty(info.Diagnosis, stringField(patient, "diagnosis", "condition"))
	}
	return info
}

// ChartFromRecord maps the records API "drugs", "labs" and "xrays" arrays
// onto chart records. Labs are one value per row there, so each row becomes a
// single-result LabResult.
func ChartFromRecord(info internal.PatientInfo) internal.Chart {
	chart := internal.Chart{PatientID: info.AN}

	for i, drug := range objectList(info.Raw["drugs"]) {
		dosage := strings.TrimSpace(stringField(drug, "dose_qty") + " " + stringField(drug, "dose_unit"))
		chart.Meds = append(chart.Meds, internal.MedicationOrder{
			PatientID:      info.AN,
			Timestamp:      stringField(drug, "order_date", "verify_date", "timestamp"),
			OrderID:        firstNonEmpty(stringField(drug, "order_id", "id"), fmt.Sprintf("%s-drug-%d", info.AN, i+1)),
			MedicationName: stringField(drug, "drug_name", "name"),
			Dosage:         firstNonEmpty(dosage, stringField(drug, "dosage")),
			Route:          stringField(drug, "route"),
			Frequency:      stringField(drug, "usage_text", "frequency"),
			PrescribedBy:   stringField(drug, "doctor", "prescribed_by"),
			Instructions:   stringField(drug, "usage_text", "instructions"),
			Status:         firstNonEmpty(stringField(drug, "status"), "Active"),
		})
	}

	for _, lab := range objectList(info.Raw["labs"]) {
		test := stringField(lab, "test", "test_name")
		flag := "Normal"
		if truthy(lab["flagged"]) {
			flag = firstNonEmpty(stringField(lab, "flag"), "Abnormal")
		}
		chart.Labs = append(chart.Labs, internal.LabResult{
			PatientID: info.AN,
			Timestamp: stringField(lab, "verify_date", "timestamp"),
			TestName:  test,
			Status:    "Completed",
			Results: map[string]internal.LabValue{
				test: {Value: stringField(lab, "lab_result", "value"), Unit: stringField(lab, "unit"), Flag: flag},
			},
			ResultOrder: []string{test},
		})
	}

	for i, xray := range objectList(info.Raw["xrays"]) {
		chart.Imaging = append(chart.Imaging, internal.ImagingStudy{
			PatientID:       info.AN,
			Timestamp:       stringField(xray, "verify_date", "timestamp"),
			OrderID:         firstNonEmpty(stringField(xray, "order_id", "id"), fmt.Sprintf("%s-xray-%d", info.AN, i+1)),
			ExamType:        stringField(xray, "item_name", "exam_type"),
			Findings:        stringField(xray, "findings", "result"),
			Impression:      firstNonEmpty(stringField(xray, "impression", "result"), stringField(xray, "item_name")),
			RadiologistName: stringField(xray, "radiologist", "doctor"),
		})
	}

	return chart
}

func objectList(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch t := m[key].(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			return t.String()
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s != "" && s != "0" && s != "false" && s != "n" && s != "no"
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
