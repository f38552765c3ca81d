package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"caremind/internal"
	"caremind/internal/config"
	"caremind/internal/logger"
	"caremind/internal/storage"
)

type View string

const (
	ViewDoctor         View = "doctor"
	ViewPharmacist     View = "pharmacist"
	ViewNurse          View = "nurse"
	ViewProblems       View = "problems"
	ViewPatientSummary View = "patient-summary"
	ViewFollowUp       View = "follow-up"
	ViewFamily         View = "family"
)

const (
	DefaultFamilyUpdate = "We do not have any updates yet. Please check back soon."
	DefaultAnswer       = "No answer returned."
)

// Asker is the AI text endpoint: one prompt in, one trimmed answer out.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type DoctorView struct {
	PatientID string                         `json:"patientId"`
	Sections  map[internal.SectionKey]string `json:"sections"`
	Problems  []internal.ProblemSummary      `json:"problems"`
}

type PharmacistView struct {
	PatientID      string                           `json:"patientId"`
	Sections       map[internal.SectionKey][]string `json:"sections"`
	Reconciliation Reconciliation                   `json:"reconciliation"`
}

type NurseView struct {
	PatientID string                   `json:"patientId"`
	Items     []internal.ChecklistItem `json:"items"`
}

type ProblemListView struct {
	PatientID string                  `json:"patientId"`
	Problems  []internal.ProblemEntry `json:"problems"`
}

type PatientSummaryView struct {
	PatientID string                         `json:"patientId"`
	Sections  map[internal.SectionKey]string `json:"sections"`
	Generic   []internal.GenericSection      `json:"generic"`
}

type TextView struct {
	PatientID string `json:"patientId"`
	Text      string `json:"text"`
}

// ViewService builds every role view for one patient. On an AI failure each
// method returns the view's defaults together with the error; callers show
// both.
type ViewService struct {
	db  *storage.DB
	ai  Asker
	cfg config.Config
	log zerolog.Logger
	now func() time.Time
}

func NewViewService(db *storage.DB, ai Asker, cfg config.Config) *ViewService {
	return &ViewService{db: db, ai: ai, cfg: cfg, log: logger.NewLogger("views"), now: time.Now}
}

func (s *ViewService) load(patientID string) (*internal.PatientInfo, internal.Chart, error) {
	chart, err := s.db.MustChart(patientID)
	if err != nil {
		return nil, internal.Chart{}, err
	}
	info, err := s.db.GetPatient(patientID)
	if err != nil {
		return nil, internal.Chart{}, err
	}
	return info, chart, nil
}

func (s *ViewService) ask(ctx context.Context, patientID string, view View, prompt string) (string, string, error) {
	trace := uuid.NewString()
	start := time.Now()
	text, err := s.ai.Ask(ctx, prompt)
	event := s.log.Info()
	if err != nil {
		event = s.log.Warn().Err(err)
	}
	event.Str("traceId", trace).Str("patientId", patientID).Str("view", string(view)).
		Dur("elapsed", time.Since(start)).Msg("ai call")
	return text, trace, err
}

func (s *ViewService) record(trace, patientID string, view View, result any, err error) {
	status, msg := "ok", ""
	if err != nil {
		status, msg = "error", err.Error()
	}
	if trace == "" {
		trace = uuid.NewString()
	}
	if dbErr := s.db.InsertRun(trace, patientID, string(view), status, msg, result); dbErr != nil {
		s.log.Warn().Err(dbErr).Str("traceId", trace).Msg("run not recorded")
	}
}

func (s *ViewService) Doctor(ctx context.Context, patientID string) (DoctorView, error) {
	out := DoctorView{PatientID: patientID, Sections: DoctorProfile.DefaultText(), Problems: []internal.ProblemSummary{}}
	info, chart, err := s.load(patientID)
	if err != nil {
		return out, err
	}
	out.Problems = BuildProblemSummaries(patientID, chart, s.now())

	text, trace, err := s.ask(ctx, patientID, ViewDoctor, DoctorPrompt(info, chart))
	if err == nil {
		out.Sections = ParseSectionedText(text, DoctorProfile)
	}
	s.record(trace, patientID, ViewDoctor, out, err)
	return out, err
}

func (s *ViewService) Pharmacist(ctx context.Context, patientID string) (PharmacistView, error) {
	out := PharmacistView{PatientID: patientID, Sections: AssembleLists(nil, PharmacistProfile)}
	_, chart, err := s.load(patientID)
	if err != nil {
		return out, err
	}
	window := time.Duration(s.cfg.ReconcileWindowHrs) * time.Hour
	out.Reconciliation = Reconcile(chart.Meds, window, s.now())

	text, trace, err := s.ask(ctx, patientID, ViewPharmacist, PharmacistPrompt(ActiveOrders(chart.Meds)))
	if err == nil {
		out.Sections = ParseSectionLists(text, PharmacistProfile)
	}
	s.record(trace, patientID, ViewPharmacist, out, err)
	return out, err
}

func (s *ViewService) Nurse(ctx context.Context, patientID string) (NurseView, error) {
	out := NurseView{PatientID: patientID, Items: []internal.ChecklistItem{}}
	_, chart, err := s.load(patientID)
	if err != nil {
		return out, err
	}

	text, trace, err := s.ask(ctx, patientID, ViewNurse, ChecklistPrompt(DoctorOrders(chart)))
	if err == nil {
		out.Items = ParseChecklist(text)
	}
	s.record(trace, patientID, ViewNurse, out, err)
	return out, err
}

// ErrEmptyProblemList is returned when the model answered but no usable
// problem could be read from it.
var ErrEmptyProblemList = errors.New("AI returned an empty list. Showing last known state")

func (s *ViewService) Problems(ctx context.Context, patientID string) (ProblemListView, error) {
	out := ProblemListView{PatientID: patientID, Problems: []internal.ProblemEntry{}}
	_, chart, err := s.load(patientID)
	if err != nil {
		return out, err
	}

	text, trace, err := s.ask(ctx, patientID, ViewProblems, ProblemListPrompt(chart))
	if err == nil {
		out.Problems = ParseProblemList(text)
		if len(out.Problems) == 0 {
			err = ErrEmptyProblemList
		}
	}
	s.record(trace, patientID, ViewProblems, out, err)
	return out, err
}

func (s *ViewService) PatientSummary(ctx context.Context, patientID string) (PatientSummaryView, error) {
	out := PatientSummaryView{PatientID: patientID, Sections: PatientSummaryProfile.DefaultText(), Generic: []internal.GenericSection{}}
	info, chart, err := s.load(patientID)
	if err != nil {
		return out, err
	}

	text, trace, err := s.ask(ctx, patientID, ViewPatientSummary, SummaryPrompt(info, chart))
	if err == nil {
		out.Sections = ParseSectionedText(text, PatientSummaryProfile)
		out.Generic = ParseGenericSections(text)
	}
	s.record(trace, patientID, ViewPatientSummary, out, err)
	return out, err
}

func (s *ViewService) FollowUp(ctx context.Context, patientID, question string) (TextView, error) {
	out := TextView{PatientID: patientID}
	if strings.TrimSpace(question) == "" {
		return out, errors.New("question is empty")
	}
	info, chart, err := s.load(patientID)
	if err != nil {
		return out, err
	}

	text, trace, err := s.ask(ctx, patientID, ViewFollowUp, FollowUpPrompt(info, chart, question))
	if err == nil {
		out.Text = firstNonEmpty(text, DefaultAnswer)
	}
	s.record(trace, patientID, ViewFollowUp, out, err)
	return out, err
}

func (s *ViewService) Family(ctx context.Context, patientID string) (TextView, error) {
	out := TextView{PatientID: patientID}
	info, chart, err := s.load(patientID)
	if err != nil {
		return out, err
	}

	text, trace, err := s.ask(ctx, patientID, ViewFamily, FamilyPrompt(info, chart))
	if err == nil {
		out.Text = firstNonEmpty(text, DefaultFamilyUpdate)
	}
	s.record(trace, patientID, ViewFamily, out, err)
	return out, err
}
