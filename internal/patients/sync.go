package patients

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"caremind/internal"
	"caremind/internal/config"
	"caremind/internal/logger"
	"caremind/internal/storage"
)

const (
	SourceRecordsAPI = "records-api"
	SourceWorkbook   = "workbook"
)

type SyncService struct {
	db     *storage.DB
	client *Client
	cfg    config.Config
	log    zerolog.Logger
}

func NewSyncService(db *storage.DB, cfg config.Config) *SyncService {
	return &SyncService{db: db, client: NewClient(cfg), cfg: cfg, log: logger.NewLogger("patients")}
}

// SyncAll pulls every admitted patient from the records API into the local
// store. Patients the API reports as missing are skipped.
func (s *SyncService) SyncAll(ctx context.Context) (int, error) {
	ans, err := s.client.GetPatientList(ctx)
	if err != nil {
		return 0, err
	}

	infos := []internal.PatientInfo{}
	charts := []internal.Chart{}
	for _, an := range ans {
		info, err := s.client.GetPatientInfo(ctx, an)
		if err != nil {
			return 0, err
		}
		if info == nil {
			s.log.Warn().Str("an", an).Msg("records api returned no data")
			continue
		}
		infos = append(infos, *info)

		chart, err := s.mergeChart(ChartFromRecord(*info))
		if err != nil {
			return 0, err
		}
		charts = append(charts, chart)
	}

	if err := s.db.UpsertPatients(infos); err != nil {
		return 0, err
	}
	if err := s.db.SaveCharts(charts, SourceRecordsAPI); err != nil {
		return 0, err
	}
	_ = s.db.SetMetadata("patients.last_sync", time.Now().UTC().Format(time.RFC3339))
	s.log.Info().Int("patients", len(infos)).Msg("records sync complete")
	return len(infos), nil
}

// SyncOne refreshes a single patient. It returns nil when the API has no
// record for an.
func (s *SyncService) SyncOne(ctx context.Context, an string) (*internal.PatientInfo, error) {
	info, err := s.client.GetPatientInfo(ctx, an)
	if err != nil || info == nil {
		return nil, err
	}
	chart, err := s.mergeChart(ChartFromRecord(*info))
	if err != nil {
		return nil, err
	}
	if err := s.db.UpsertPatients([]internal.PatientInfo{*info}); err != nil {
		return nil, err
	}
	if err := s.db.SaveCharts([]internal.Chart{chart}, SourceRecordsAPI); err != nil {
		return nil, err
	}
	return info, nil
}

// mergeChart keeps locally imported notes and vitals; API medication, lab and
// imaging lists replace the stored ones when present.
func (s *SyncService) mergeChart(fresh internal.Chart) (internal.Chart, error) {
	existing, err := s.db.GetChart(fresh.PatientID)
	if err != nil || existing == nil {
		return fresh, err
	}
	merged := *existing
	if len(fresh.Meds) > 0 {
		merged.Meds = fresh.Meds
	}
	if len(fresh.Labs) > 0 {
		merged.Labs = fresh.Labs
	}
	if len(fresh.Imaging) > 0 {
		merged.Imaging = fresh.Imaging
	}
	return merged, nil
}

func (s *SyncService) ImportWorkbookFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	charts, err := ImportWorkbook(f)
	if err != nil {
		return 0, err
	}
	if err := s.db.SaveCharts(charts, SourceWorkbook); err != nil {
		return 0, fmt.Errorf("save charts: %w", err)
	}
	_ = s.db.SetMetadata("charts.last_import", time.Now().UTC().Format(time.RFC3339))
	s.log.Info().Str("path", path).Int("charts", len(charts)).Msg("workbook imported")
	return len(charts), nil
}
