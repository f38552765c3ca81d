package pipeline

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"caremind/internal"
)

type VitalField string

const (
	VitalTemperature      VitalField = "temperature"
	VitalBloodPressure    VitalField = "bloodPressure"
	VitalHeartRate        VitalField = "heartRate"
	VitalRespiratoryRate  VitalField = "respiratoryRate"
	VitalOxygenSaturation VitalField = "oxygenSaturation"
)

// ProblemCategory selects which chart fields back a problem title.
type ProblemCategory struct {
	ID              string
	Keywords        []string
	VitalFields     []VitalField
	LabKeys         []string
	MedKeywords     []string
	ImagingKeywords []string
}

// ProblemCategories is searched in order; the first category with a keyword
// contained in the lower-cased title wins.
var ProblemCategories = []ProblemCategory{
	{
		ID:              "respiratory",
		Keywords:        []string{"resp", "copd", "pneumonia", "oxygen", "dyspnea", "bronchitis"},
		VitalFields:     []VitalField{VitalOxygenSaturation, VitalRespiratoryRate},
		LabKeys:         []string{"WBC"},
		MedKeywords:     []string{"azithromycin", "guaifenesin"},
		ImagingKeywords: []string{"chest"},
	},
	{
		ID:              "infection",
		Keywords:        []string{"infection", "sepsis", "fever"},
		VitalFields:     []VitalField{VitalTemperature, VitalHeartRate},
		LabKeys:         []string{"WBC"},
		MedKeywords:     []string{"azithromycin"},
		ImagingKeywords: []string{"chest"},
	},
	{
		ID:          "renal",
		Keywords:    []string{"aki", "renal", "kidney"},
		VitalFields: []VitalField{VitalBloodPressure},
		LabKeys:     []string{"BUN", "Creatinine"},
		MedKeywords: []string{"furosemide", "spironolactone"},
	},
	{
		ID:              "cardiac",
		Keywords:        []string{"afib", "atrial", "cardiac", "heart"},
		VitalFields:     []VitalField{VitalHeartRate, VitalBloodPressure},
		LabKeys:         []string{"BNP", "Troponin I", "CK-MB"},
		MedKeywords:     []string{"metoprolol", "apixaban"},
		ImagingKeywords: []string{"echo", "chest"},
	},
	{
		ID:              "gi",
		Keywords:        []string{"abd", "gastro", "stool", "diarrhea", "nausea"},
		VitalFields:     []VitalField{VitalTemperature},
		LabKeys:         []string{"Stool"},
		MedKeywords:     []string{"ondansetron"},
		ImagingKeywords: []string{"abdominal"},
	},
}

// GeneralCategory has no lab keys, so its lab evidence is the first abnormal
// result on the chart.
var GeneralCategory = ProblemCategory{
	ID:          "general",
	VitalFields: []VitalField{VitalBloodPressure, VitalHeartRate},
}

func CategoryFor(title string) ProblemCategory {
	normalized := strings.ToLower(title)
	for _, category := range ProblemCategories {
		for _, keyword := range category.Keywords {
			if strings.Contains(normalized, keyword) {
				return category
			}
		}
	}
	return GeneralCategory
}

// BuildEvidence cross-references a free-text problem title against the
// patient's chart. The chart must already be filtered to one patient.
func BuildEvidence(title string, chart internal.Chart) []internal.EvidenceItem {
	category := CategoryFor(title)
	evidence := []internal.EvidenceItem{}

	latest := latestVitals(chart.Vitals)
	vitalTimestamp := ""
	if latest != nil {
		vitalTimestamp = FormatTimestamp(latest.Timestamp)
		for _, field := range category.VitalFields {
			label, detail, ok := describeVital(field, latest.VitalSigns)
			if !ok {
				continue
			}
			evidence = append(evidence, internal.EvidenceItem{
				ID:        title + "-vital-" + string(field),
				Type:      internal.EvidenceVital,
				Label:     label,
				Detail:    detail,
				Source:    latest.NurseName,
				Timestamp: vitalTimestamp,
			})
		}
	}

	for _, labName := range category.LabKeys {
		lab, key, value, ok := findLabResult(labName, chart.Labs)
		if !ok {
			continue
		}
		evidence = append(evidence, labEvidence(title, lab, key, value))
	}

	if len(category.LabKeys) == 0 {
		if lab, key, value, ok := firstAbnormalResult(chart.Labs); ok {
			evidence = append(evidence, labEvidence(title, lab, key, value))
		}
	}

	if med, ok := matchMedication(category.MedKeywords, chart.Meds); ok {
		evidence = append(evidence, internal.EvidenceItem{
			ID:        title + "-med-" + med.OrderID,
			Type:      internal.EvidenceOrder,
			Label:     med.MedicationName,
			Detail:    med.Dosage + " • " + med.Frequency,
			Source:    med.PrescribedBy,
			Timestamp: FormatTimestamp(med.Timestamp),
		})
	}

	if study, ok := matchImaging(category.ImagingKeywords, chart.Imaging); ok {
		evidence = append(evidence, internal.EvidenceItem{
			ID:        title + "-img-" + study.OrderID,
			Type:      internal.EvidenceImaging,
			Label:     study.ExamType,
			Detail:    study.Impression,
			Source:    study.RadiologistName,
			Timestamp: FormatTimestamp(study.Timestamp),
		})
	}

	if len(evidence) == 0 && latest != nil {
		evidence = append(evidence, internal.EvidenceItem{
			ID:        title + "-vital-default",
			Type:      internal.EvidenceVital,
			Label:     "Latest Vitals",
			Detail:    latest.VitalSigns.BloodPressure + " mmHg • HR " + formatNumber(latest.VitalSigns.HeartRate) + " bpm",
			Source:    latest.NurseName,
			Timestamp: vitalTimestamp,
		})
	}

	return evidence
}

// latestVitals picks the entry with vital signs and the newest timestamp;
// earlier entries win ties.
func latestVitals(vitals []internal.NurseVital) *internal.NurseVital {
	var best *internal.NurseVital
	var bestAt time.Time
	for i := range vitals {
		if vitals[i].VitalSigns == nil {
			continue
		}
		at, _ := ParseTimestamp(vitals[i].Timestamp)
		if best == nil || at.After(bestAt) {
			best = &vitals[i]
			bestAt = at
		}
	}
	return best
}

func describeVital(field VitalField, signs *internal.VitalSigns) (string, string, bool) {
	if signs == nil {
		return "", "", false
	}
	switch field {
	case VitalTemperature:
		if signs.Temperature == nil {
			return "", "", false
		}
		unit := signs.TemperatureUnit
		if unit == "" {
			unit = "°F"
		}
		return "Temperature", formatNumber(signs.Temperature) + unit, true
	case VitalOxygenSaturation:
		if signs.OxygenSaturation == nil {
			return "", "", false
		}
		return "O2 Sat", formatNumber(signs.OxygenSaturation) + "%", true
	case VitalRespiratoryRate:
		if signs.RespiratoryRate == nil {
			return "", "", false
		}
		return "Resp Rate", formatNumber(signs.RespiratoryRate) + "/min", true
	case VitalHeartRate:
		if signs.HeartRate == nil {
			return "", "", false
		}
		return "Heart Rate", formatNumber(signs.HeartRate) + " bpm", true
	case VitalBloodPressure:
		if strings.TrimSpace(signs.BloodPressure) == "" {
			return "", "", false
		}
		return "Blood Pressure", signs.BloodPressure + " mmHg", true
	}
	return "", "", false
}

func labEvidence(title string, lab internal.LabResult, key string, value internal.LabValue) internal.EvidenceItem {
	detail := strings.TrimSpace(value.Value + " " + value.Unit)
	if value.Flag != "" {
		detail += " (" + value.Flag + ")"
	}
	return internal.EvidenceItem{
		ID:        title + "-lab-" + key,
		Type:      internal.EvidenceLab,
		Label:     key,
		Detail:    detail,
		Source:    lab.TestName,
		Timestamp: FormatTimestamp(lab.Timestamp),
	}
}

func findLabResult(name string, labs []internal.LabResult) (internal.LabResult, string, internal.LabValue, bool) {
	target := strings.ToLower(name)
	for _, lab := range labs {
		for _, key := range ResultKeys(lab) {
			if strings.ToLower(key) == target {
				return lab, key, lab.Results[key], true
			}
		}
	}
	return internal.LabResult{}, "", internal.LabValue{}, false
}

func firstAbnormalResult(labs []internal.LabResult) (internal.LabResult, string, internal.LabValue, bool) {
	for _, lab := range labs {
		for _, key := range ResultKeys(lab) {
			if IsAbnormal(lab.Results[key]) {
				return lab, key, lab.Results[key], true
			}
		}
	}
	return internal.LabResult{}, "", internal.LabValue{}, false
}

// ResultKeys lists a lab's result keys in recorded order, falling back to
// sorted order when none was recorded.
func ResultKeys(lab internal.LabResult) []string {
	if len(lab.ResultOrder) > 0 {
		out := make([]string, 0, len(lab.ResultOrder))
		for _, key := range lab.ResultOrder {
			if _, ok := lab.Results[key]; ok {
				out = append(out, key)
			}
		}
		return out
	}
	keys := make([]string, 0, len(lab.Results))
	for key := range lab.Results {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func IsAbnormal(value internal.LabValue) bool {
	flag := strings.ToLower(strings.TrimSpace(value.Flag))
	return flag != "" && flag != "normal"
}

func matchMedication(keywords []string, meds []internal.MedicationOrder) (internal.MedicationOrder, bool) {
	for _, med := range meds {
		name := strings.ToLower(med.MedicationName)
		for _, keyword := range keywords {
			if strings.Contains(name, keyword) {
				return med, true
			}
		}
	}
	if len(meds) > 0 {
		return meds[0], true
	}
	return internal.MedicationOrder{}, false
}

func matchImaging(keywords []string, studies []internal.ImagingStudy) (internal.ImagingStudy, bool) {
	for _, study := range studies {
		exam := strings.ToLower(study.ExamType)
		for _, keyword := range keywords {
			if strings.Contains(exam, keyword) {
				return study, true
			}
		}
	}
	return internal.ImagingStudy{}, false
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a chart timestamp as "Feb 13, 09:20 AM"; values
// that do not parse are returned unchanged.
func FormatTimestamp(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	t, ok := ParseTimestamp(value)
	if !ok {
		return value
	}
	return t.Format("Jan 2, 03:04 PM")
}
