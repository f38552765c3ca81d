package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"caremind/internal"
)

// DoctorOrder is a free-text order handed to the nurse checklist prompt.
type DoctorOrder struct {
	ID        string `json:"id"`
	Note      string `json:"note"`
	CreatedAt string `json:"createdAt"`
}

// DoctorOrders derives checklist input from each note's plan and from the
// instructions on active medication orders.
func DoctorOrders(chart internal.Chart) []DoctorOrder {
	orders := []DoctorOrder{}
	for i, note := range chart.Notes {
		if strings.TrimSpace(note.Plan) == "" {
			continue
		}
		orders = append(orders, DoctorOrder{
			ID:        fmt.Sprintf("note-%d", i+1),
			Note:      strings.TrimSpace(note.Plan),
			CreatedAt: note.Timestamp,
		})
	}
	for _, med := range chart.Meds {
		if strings.TrimSpace(med.Instructions) == "" || !isActiveOrder(med) {
			continue
		}
		orders = append(orders, DoctorOrder{
			ID:        med.OrderID,
			Note:      fmt.Sprintf("%s %s: %s", med.MedicationName, med.Dosage, strings.TrimSpace(med.Instructions)),
			CreatedAt: med.Timestamp,
		})
	}
	return orders
}

func DoctorPrompt(info *internal.PatientInfo, chart internal.Chart) string {
	return strings.Join([]string{
		"You are an assistant for a supervising physician reviewing today's rounding list.",
		"Summarize key clinical changes, list abnormal or trending-worse labs with context, and suggest next actions.",
		"Respond using three sections titled: Problem list, Abnormal labs, Suggested actions.",
		"Keep items concise (max 3 per section) and grounded strictly in the chart data provided. No speculation.",
		"Patient record: " + toJSON(patientRecord(info, chart)),
	}, "\n")
}

type pharmacistOrder struct {
	MedicationName string `json:"medicationName"`
	Dosage         string `json:"dosage"`
	Route          string `json:"route"`
	Frequency      string `json:"frequency"`
	Indication     string `json:"indication"`
	Status         string `json:"status"`
	StartDate      string `json:"startDate"`
}

func PharmacistPrompt(orders []internal.MedicationOrder) string {
	payload := make([]pharmacistOrder, 0, len(orders))
	for _, o := range orders {
		payload = append(payload, pharmacistOrder{
			MedicationName: o.MedicationName,
			Dosage:         o.Dosage,
			Route:          o.Route,
			Frequency:      o.Frequency,
			Indication:     o.Indication,
			Status:         o.Status,
			StartDate:      o.StartDate,
		})
	}
	return strings.Join([]string{
		"You are assisting the clinical pharmacist on rounds.",
		"Review the active medication list, point out key pharmacodynamic or pharmacokinetic interactions, and recommend dose adjustments.",
		"Highlight any urgent alerts (e.g., renal dosing concerns, duplicate therapy) that require immediate follow-up.",
		"Respond using the following sections with bullet points: Drug interactions, Dose adjustments, Alerts.",
		"Keep each list to a maximum of 4 concise bullet points grounded only in the provided data.",
		"Medication list: " + toJSON(payload),
	}, "\n")
}

func ChecklistPrompt(orders []DoctorOrder) string {
	return strings.Join([]string{
		"You are extracting time-sensitive nursing tasks from doctor orders.",
		"Extract specific time-bound tasks that need to be checked or performed at specific times.",
		"Format each task as: TASK | TIMEFRAME",
		"Examples:",
		"- Monitor blood glucose | Before dinner",
		"- Recheck blood pressure | In 1 hour",
		"- Follow up lab results | At 3pm",
		"- Document patient education | By end of shift",
		"Only return the checklist items in the format above, one per line.",
		"Doctor Orders: " + toJSON(orders),
	}, "\n")
}

// ProblemListPrompt asks for the JSON problem list read by ParseProblemList.
func ProblemListPrompt(chart internal.Chart) string {
	var b strings.Builder
	b.WriteString("You are an ICU rounding assistant. Summarize the active problems from assessment/plan notes.\n")
	b.WriteString("Return concise JSON only in the following shape:\n")
	b.WriteString(`{"problems":[{"name":"...","plan":"...","evidence":["Vital: ...","Lab: ...","Order: ..."]}]}`)
	b.WriteString("\nUse the evidence strings to cite labs/vitals/orders sent below. NEVER invent data.\n\n")
	b.WriteString("Doctor Notes:\n" + noteDigest(chart.Notes) + "\n")
	b.WriteString("Recent Labs:\n" + labDigest(chart.Labs) + "\n")
	b.WriteString("Recent Vitals:\n" + vitalDigest(chart.Vitals) + "\n")
	b.WriteString("Active Meds/Orders:\n" + medDigest(chart.Meds) + "\n")
	return b.String()
}

func SummaryPrompt(info *internal.PatientInfo, chart internal.Chart) string {
	return strings.Join([]string{
		"You are an AI clinical scribe assisting a care coordination team.",
		"Given the structured patient chart data below, write a concise and clinician-friendly summary with short bullet points.",
		"Include headings for Diagnosis, Medications, Key Tests, Trends, and Recommendations.",
		"Avoid speculation, stay within the provided chart, and keep each section to three bullets or fewer.",
		"Patient chart: " + toJSON(patientRecord(info, chart)),
	}, "\n")
}

func FollowUpPrompt(info *internal.PatientInfo, chart internal.Chart, question string) string {
	return strings.Join([]string{
		"You are supporting a multidisciplinary care team reviewing a patient chart.",
		"Answer the question using only the chart data provided. Be clear and brief.",
		"Question: " + strings.TrimSpace(question),
		"Patient chart: " + toJSON(patientRecord(info, chart)),
	}, "\n")
}

func FamilyPrompt(info *internal.PatientInfo, chart internal.Chart) string {
	return strings.Join([]string{
		"You are communicating with a patient's family.",
		"Explain in compassionate, plain language what the patient's condition is, why the current care plan matters,",
		"and what family members should know or do to support them.",
		"Avoid medical jargon where possible. Keep the tone calm, hopeful, and informative.",
		"Patient chart: " + toJSON(patientRecord(info, chart)),
	}, "\n")
}

type promptRecord struct {
	Patient *internal.PatientInfo `json:"patient,omitempty"`
	Chart   internal.Chart        `json:"chart"`
}

func patientRecord(info *internal.PatientInfo, chart internal.Chart) promptRecord {
	if info != nil {
		trimmed := *info
		trimmed.Raw = nil
		info = &trimmed
	}
	return promptRecord{Patient: info, Chart: chart}
}

func toJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func noteDigest(notes []internal.DoctorNote) string {
	lines := []string{}
	for i, note := range notes {
		if i == 4 {
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s | Plan: %s", firstNonEmpty(note.Problem, note.Diagnosis), note.Assessment, note.Plan))
	}
	return strings.Join(lines, "\n")
}

func labDigest(labs []internal.LabResult) string {
	lines := []string{}
	for i, lab := range labs {
		if i == 3 {
			break
		}
		parts := []string{}
		for _, key := range ResultKeys(lab) {
			v := lab.Results[key]
			parts = append(parts, fmt.Sprintf("%s %s%s", key, v.Value, v.Unit))
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", lab.TestName, lab.Timestamp, strings.Join(parts, ", ")))
	}
	return strings.Join(lines, "\n")
}

func vitalDigest(vitals []internal.NurseVital) string {
	lines := []string{}
	for _, entry := range vitals {
		if entry.VitalSigns == nil {
			continue
		}
		if len(lines) == 2 {
			break
		}
		v := entry.VitalSigns
		unit := v.TemperatureUnit
		if unit == "" {
			unit = "°F"
		}
		lines = append(lines, fmt.Sprintf("Temp %s%s, BP %s, HR %s, O2 %s%% (%s)",
			formatNumber(v.Temperature), unit, v.BloodPressure, formatNumber(v.HeartRate), formatNumber(v.OxygenSaturation), entry.Timestamp))
	}
	return strings.Join(lines, "\n")
}

func medDigest(meds []internal.MedicationOrder) string {
	lines := []string{}
	for i, med := range meds {
		if i == 4 {
			break
		}
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s %s %s", med.MedicationName, med.Dosage, med.Frequency)))
	}
	return strings.Join(lines, "\n")
}
