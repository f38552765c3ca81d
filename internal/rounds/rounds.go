package rounds

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"caremind/internal/config"
	"caremind/internal/logger"
	"caremind/internal/patients"
	"caremind/internal/pipeline"
	"caremind/internal/storage"
)

// Views is the subset of the view service a rounding pass needs.
type Views interface {
	Doctor(ctx context.Context, patientID string) (pipeline.DoctorView, error)
	Pharmacist(ctx context.Context, patientID string) (pipeline.PharmacistView, error)
	Nurse(ctx context.Context, patientID string) (pipeline.NurseView, error)
}

type Service struct {
	db    *storage.DB
	views Views
	cfg   config.Config
	log   zerolog.Logger
	now   func() time.Time
}

type Result struct {
	Patients   int
	Failed     int
	Imported   int
	ExportPath string
	Reports    []pipeline.PatientReport
}

func NewService(db *storage.DB, views Views, cfg config.Config) *Service {
	return &Service{db: db, views: views, cfg: cfg, log: logger.NewLogger("rounds"), now: time.Now}
}

// Run repeats RunCycle every ROUNDS_INTERVAL_SEC until ctx is done. Cycle
// errors are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.RoundsIntervalSec) * time.Second
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	for {
		res, err := s.RunCycle(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("rounds cycle failed")
		} else {
			s.log.Info().Int("patients", res.Patients).Int("failed", res.Failed).
				Int("imported", res.Imported).Str("export", res.ExportPath).Msg("rounds cycle done")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (Result, error) {
	res := Result{}
	if s.cfg.RoundsWorkbookPath != "" {
		imported, err := patients.NewSyncService(s.db, s.cfg).ImportWorkbookFile(s.cfg.RoundsWorkbookPath)
		if err != nil {
			return res, fmt.Errorf("import workbook: %w", err)
		}
		res.Imported = imported
	}

	ids, err := s.db.ListChartPatientIDs()
	if err != nil {
		return res, err
	}
	reports, err := s.BuildReports(ctx, ids)
	if err != nil {
		return res, err
	}
	res.Patients = len(reports)
	res.Reports = reports
	for _, r := range reports {
		if len(r.Errors) > 0 {
			res.Failed++
		}
	}

	started := s.now()
	if s.cfg.RoundsAutoExport && len(reports) > 0 {
		res.ExportPath = filepath.Join(s.cfg.OutputDir, "rounds", fmt.Sprintf("rounds_%s.xlsx", started.Format("20060102_150405")))
		if err := pipeline.ExportReportsToXLSX(reports, res.ExportPath); err != nil {
			return res, fmt.Errorf("export rounds: %w", err)
		}
	}
	if err := s.db.SetMetadata("rounds.last_run", started.UTC().Format(time.RFC3339)); err != nil {
		s.log.Warn().Err(err).Msg("rounds last run not recorded")
	}
	return res, nil
}

// BuildReports builds the doctor, pharmacist and nurse views of every patient
// with at most ROUNDS_CONCURRENCY patients in flight. A view that fails keeps
// its defaults and its error lands in the report; only cancellation aborts.
func (s *Service) BuildReports(ctx context.Context, patientIDs []string) ([]pipeline.PatientReport, error) {
	reports := make([]pipeline.PatientReport, len(patientIDs))
	limit := s.cfg.RoundsConcurrency
	if limit <= 0 {
		limit = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, id := range patientIDs {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			reports[i] = s.buildReport(gCtx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) buildReport(ctx context.Context, patientID string) pipeline.PatientReport {
	report := pipeline.PatientReport{PatientID: patientID, Errors: map[pipeline.View]string{}}
	fail := func(view pipeline.View, err error) {
		if err != nil {
			report.Errors[view] = err.Error()
			s.log.Warn().Err(err).Str("patientId", patientID).Str("view", string(view)).Msg("view fell back to defaults")
		}
	}

	doctor, err := s.views.Doctor(ctx, patientID)
	fail(pipeline.ViewDoctor, err)
	report.Doctor = &doctor

	pharmacist, err := s.views.Pharmacist(ctx, patientID)
	fail(pipeline.ViewPharmacist, err)
	report.Pharmacist = &pharmacist

	nurse, err := s.views.Nurse(ctx, patientID)
	fail(pipeline.ViewNurse, err)
	report.Nurse = &nurse

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return report
}
