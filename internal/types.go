package internal

type SectionKey string

const (
	SectionProblems         SectionKey = "problems"
	SectionAbnormalLabs     SectionKey = "abnormalLabs"
	SectionSuggestedActions SectionKey = "suggestedActions"

	SectionInteractions    SectionKey = "interactions"
	SectionDoseAdjustments SectionKey = "doseAdjustments"
	SectionAlerts          SectionKey = "alerts"

	SectionDiagnosis       SectionKey = "diagnosis"
	SectionMedications     SectionKey = "medications"
	SectionKeyTests        SectionKey = "keyTests"
	SectionTrends          SectionKey = "trends"
	SectionRecommendations SectionKey = "recommendations"
)

// HeadingAlias resolves a heading containing Fragment (case-insensitive) to Key.
type HeadingAlias struct {
	Fragment string
	Key      SectionKey
}

// AliasTable is ordered; the first alias whose fragment matches wins.
type AliasTable []HeadingAlias

type ChecklistItem struct {
	ID        string `json:"id"`
	Task      string `json:"task"`
	Timeframe string `json:"timeframe"`
	Completed bool   `json:"completed"`
}

type ProblemEntry struct {
	Name     string   `json:"name"`
	Plan     string   `json:"plan"`
	Evidence []string `json:"evidence"`
}

type EvidenceType string

const (
	EvidenceVital   EvidenceType = "vital"
	EvidenceLab     EvidenceType = "lab"
	EvidenceOrder   EvidenceType = "order"
	EvidenceImaging EvidenceType = "imaging"
)

type EvidenceItem struct {
	ID        string       `json:"id"`
	Type      EvidenceType `json:"type"`
	Label     string       `json:"label"`
	Detail    string       `json:"detail"`
	Source    string       `json:"source,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
}

type ProblemSummary struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Summary  string         `json:"summary"`
	Plan     string         `json:"plan"`
	Evidence []EvidenceItem `json:"evidence"`
	Todos    []string       `json:"todos"`
}

// GenericSection is a heading/content pair for free-form summaries where any
// capitalised heading starts a new section.
type GenericSection struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

type DoctorNote struct {
	PatientID      string `json:"patientId"`
	Timestamp      string `json:"timestamp"`
	DoctorName     string `json:"doctorName"`
	ChiefComplaint string `json:"chiefComplaint"`
	Diagnosis      string `json:"diagnosis"`
	Problem        string `json:"problem"`
	Assessment     string `json:"assessment"`
	Plan           string `json:"plan"`
}

type MedicationOrder struct {
	PatientID      string `json:"patientId"`
	Timestamp      string `json:"timestamp"`
	OrderID        string `json:"orderId"`
	MedicationName string `json:"medicationName"`
	Dosage         string `json:"dosage"`
	Route          string `json:"route"`
	Frequency      string `json:"frequency"`
	Duration       string `json:"duration"`
	Quantity       int    `json:"quantity"`
	PrescribedBy   string `json:"prescribedBy"`
	Indication     string `json:"indication"`
	Instructions   string `json:"instructions"`
	Status         string `json:"status"`
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
}

type LabValue struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
	Flag  string `json:"flag"`
}

// LabResult keeps result keys in ResultOrder so that "first abnormal value"
// lookups do not depend on map iteration.
type LabResult struct {
	PatientID      string              `json:"patientId"`
	Timestamp      string              `json:"timestamp"`
	TestName       string              `json:"testName"`
	Status         string              `json:"status"`
	Interpretation string              `json:"interpretation"`
	Results        map[string]LabValue `json:"results"`
	ResultOrder    []string            `json:"resultOrder,omitempty"`
}

type VitalSigns struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TemperatureUnit  string   `json:"temperatureUnit,omitempty"`
	BloodPressure    string   `json:"bloodPressure,omitempty"`
	HeartRate        *float64 `json:"heartRate,omitempty"`
	RespiratoryRate  *float64 `json:"respiratoryRate,omitempty"`
	OxygenSaturation *float64 `json:"oxygenSaturation,omitempty"`
	Pain             *float64 `json:"pain,omitempty"`
}

type NurseVital struct {
	PatientID  string      `json:"patientId"`
	Timestamp  string      `json:"timestamp"`
	NurseName  string      `json:"nurseName"`
	VitalSigns *VitalSigns `json:"vitalSigns,omitempty"`
	Notes      string      `json:"notes"`
}

type ImagingStudy struct {
	PatientID       string `json:"patientId"`
	Timestamp       string `json:"timestamp"`
	OrderID         string `json:"orderId"`
	ExamType        string `json:"examType"`
	Findings        string `json:"findings"`
	Impression      string `json:"impression"`
	RadiologistName string `json:"radiologistName"`
}

// Chart is every locally held record for one patient.
type Chart struct {
	PatientID string            `json:"patientId"`
	Notes     []DoctorNote      `json:"notes"`
	Meds      []MedicationOrder `json:"meds"`
	Labs      []LabResult       `json:"labs"`
	Vitals    []NurseVital      `json:"vitals"`
	Imaging   []ImagingStudy    `json:"imaging"`
}

// PatientInfo is the record served by the records API. Only a handful of
// fields are relied on; everything else is kept in Raw.
type PatientInfo struct {
	AN        string         `json:"an"`
	Name      string         `json:"name"`
	Age       string         `json:"age"`
	Gender    string         `json:"gender"`
	Ward      string         `json:"ward"`
	Diagnosis string         `json:"diagnosis"`
	Raw       map[string]any `json:"raw"`
}

type RunRow struct {
	ID        int
	TraceID   string
	PatientID string
	View      string
	Status    string
	Error     string
	Result    string
	CreatedAt string
}

// ShareRow records a handoff email handed to a draft provider.
type ShareRow struct {
	ID        int
	PatientID string
	Provider  string
	MessageID string
	RawRef    string
	CreatedAt string
}

// OutgoingMessage is a rendered MIME message ready for a draft provider.
type OutgoingMessage struct {
	PatientID string
	MessageID string
	Subject   string
	To        string
	Raw       []byte
}
