package patients

import (
	"sort"
	"strings"

	"caremind/internal"
	"caremind/internal/util"
)

// Index is an in-memory view over the local store used to pick rounding
// lists.
type Index struct {
	PatientsByAN     map[string]internal.PatientInfo
	ChartsByPatient  map[string]internal.Chart
	ByWard           map[string][]string
	ByMedication     map[string][]string
	AbnormalPatients map[string]struct{}
}

func BuildIndex(patients []internal.PatientInfo, charts []internal.Chart) *Index {
	idx := &Index{
		PatientsByAN:     map[string]internal.PatientInfo{},
		ChartsByPatient:  map[string]internal.Chart{},
		ByWard:           map[string][]string{},
		ByMedication:     map[string][]string{},
		AbnormalPatients: map[string]struct{}{},
	}

	for _, p := range patients {
		idx.PatientsByAN[p.AN] = p
		if ward := strings.ToLower(strings.TrimSpace(p.Ward)); ward != "" {
			idx.ByWard[ward] = appendUnique(idx.ByWard[ward], p.AN)
		}
	}

	for _, c := range charts {
		idx.ChartsByPatient[c.PatientID] = c
		for _, med := range c.Meds {
			if name := util.NormalizeMedicationName(med.MedicationName); name != "" {
				idx.ByMedication[name] = appendUnique(idx.ByMedication[name], c.PatientID)
			}
		}
		for _, lab := range c.Labs {
			for _, v := range lab.Results {
				flag := strings.ToLower(strings.TrimSpace(v.Flag))
				if flag != "" && flag != "normal" {
					idx.AbnormalPatients[c.PatientID] = struct{}{}
				}
			}
		}
	}

	return idx
}

// PatientIDs lists every patient with a chart or a record, sorted.
func (idx *Index) PatientIDs() []string {
	seen := map[string]struct{}{}
	for id := range idx.ChartsByPatient {
		seen[id] = struct{}{}
	}
	for id := range idx.PatientsByAN {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (idx *Index) Ward(name string) []string {
	return append([]string(nil), idx.ByWard[strings.ToLower(strings.TrimSpace(name))]...)
}

func (idx *Index) OnMedication(name string) []string {
	return append([]string(nil), idx.ByMedication[util.NormalizeMedicationName(name)]...)
}

func (idx *Index) HasAbnormalLabs(patientID string) bool {
	_, ok := idx.AbnormalPatients[patientID]
	return ok
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
