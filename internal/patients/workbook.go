package patients

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"caremind/internal"
)

const (
	SheetDoctorNotes = "doc"
	SheetDrugs       = "drug"
	SheetLabs        = "lab"
	SheetNurse       = "nurse"
	SheetImaging     = "xray"
)

// ImportWorkbook reads a chart workbook and groups its rows by patient id.
// Sheet names and headers are matched case-insensitively, ignoring
// punctuation, so "patient_id" and "patientId" are the same column. Missing
// sheets are skipped; rows without a patient id are dropped.
func ImportWorkbook(r io.Reader) ([]internal.Chart, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	charts := map[string]*internal.Chart{}
	chartFor := func(id string) *internal.Chart {
		c, ok := charts[id]
		if !ok {
			c = &internal.Chart{PatientID: id}
			charts[id] = c
		}
		return c
	}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}
		header := headerIndex(rows[0])
		kind := strings.ToLower(strings.TrimSpace(sheet))

		for _, row := range rows[1:] {
			rec := record{header: header, cells: row}
			id := rec.get("patientid", "an")
			if id == "" {
				continue
			}
			switch kind {
			case SheetDoctorNotes:
				c := chartFor(id)
				c.Notes = append(c.Notes, internal.DoctorNote{
					PatientID:      id,
					Timestamp:      rec.get("timestamp"),
					DoctorName:     rec.get("doctorname"),
					ChiefComplaint: rec.get("chiefcomplaint"),
					Diagnosis:      rec.get("diagnosis"),
					Problem:        rec.get("problem"),
					Assessment:     rec.get("assessment"),
					Plan:           rec.get("plan"),
				})
			case SheetDrugs:
				c := chartFor(id)
				qty, _ := strconv.Atoi(rec.get("quantity"))
				c.Meds = append(c.Meds, internal.MedicationOrder{
					PatientID:      id,
					Timestamp:      rec.get("timestamp"),
					OrderID:        rec.get("orderid"),
					MedicationName: rec.get("medicationname", "drugname"),
					Dosage:         rec.get("dosage"),
					Route:          rec.get("route"),
					Frequency:      rec.get("frequency"),
					Duration:       rec.get("duration"),
					Quantity:       qty,
					PrescribedBy:   rec.get("prescribedby"),
					Indication:     rec.get("indication"),
					Instructions:   rec.get("instructions"),
					Status:         rec.get("status"),
					StartDate:      rec.get("startdate"),
					EndDate:        rec.get("enddate"),
				})
			case SheetLabs:
				c := chartFor(id)
				results, order := parseLabResults(rec.get("results"))
				c.Labs = append(c.Labs, internal.LabResult{
					PatientID:      id,
					Timestamp:      rec.get("timestamp"),
					TestName:       rec.get("testname"),
					Status:         rec.get("status"),
					Interpretation: rec.get("interpretation"),
					Results:        results,
					ResultOrder:    order,
				})
			case SheetNurse:
				c := chartFor(id)
				c.Vitals = append(c.Vitals, internal.NurseVital{
					PatientID:  id,
					Timestamp:  rec.get("timestamp"),
					NurseName:  rec.get("nursename"),
					VitalSigns: parseVitalSigns(rec.get("vitalsigns")),
					Notes:      rec.get("notes"),
				})
			case SheetImaging:
				c := chartFor(id)
				c.Imaging = append(c.Imaging, internal.ImagingStudy{
					PatientID:       id,
					Timestamp:       rec.get("timestamp"),
					OrderID:         rec.get("orderid"),
					ExamType:        rec.get("examtype"),
					Findings:        rec.get("findings"),
					Impression:      rec.get("impression"),
					RadiologistName: rec.get("radiologistname"),
				})
			}
		}
	}

	ids := make([]string, 0, len(charts))
	for id := range charts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]internal.Chart, 0, len(ids))
	for _, id := range ids {
		out = append(out, *charts[id])
	}
	return out, nil
}

type record struct {
	header map[string]int
	cells  []string
}

func (r record) get(names ...string) string {
	for _, name := range names {
		idx, ok := r.header[name]
		if !ok || idx >= len(r.cells) {
			continue
		}
		if v := strings.TrimSpace(r.cells[idx]); v != "" {
			return v
		}
	}
	return ""
}

func headerIndex(row []string) map[string]int {
	out := map[string]int{}
	for i, cell := range row {
		key := normalizeHeader(cell)
		if _, exists := out[key]; key != "" && !exists {
			out[key] = i
		}
	}
	return out
}

func normalizeHeader(cell string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(cell) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parseLabResults decodes {"WBC": {"value": "14.2", "unit": "K/uL", "flag": "High"}}
// and keeps the keys in document order.
func parseLabResults(cell string) (map[string]internal.LabValue, []string) {
	results := map[string]internal.LabValue{}
	if strings.TrimSpace(cell) == "" {
		return results, nil
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal([]byte(cell), &raw); err != nil {
		return results, nil
	}
	order := []string{}
	for _, key := range objectKeys([]byte(cell)) {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if _, dup := results[key]; dup {
			continue
		}
		results[key] = internal.LabValue{
			Value: stringField(v, "value"),
			Unit:  stringField(v, "unit"),
			Flag:  stringField(v, "flag"),
		}
		order = append(order, key)
	}
	return results, order
}

func objectKeys(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	keys := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
	}
	return keys
}

func parseVitalSigns(cell string) *internal.VitalSigns {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(cell), &raw); err != nil {
		return nil
	}
	return &internal.VitalSigns{
		Temperature:      numberField(raw, "temperature"),
		TemperatureUnit:  stringField(raw, "temperatureUnit"),
		BloodPressure:    stringField(raw, "bloodPressure"),
		HeartRate:        numberField(raw, "heartRate"),
		RespiratoryRate:  numberField(raw, "respiratoryRate"),
		OxygenSaturation: numberField(raw, "oxygenSaturation"),
		Pain:             numberField(raw, "pain"),
	}
}

func numberField(m map[string]any, key string) *float64 {
	switch t := m[key].(type) {
	case float64:
		return &t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}
