package rounds

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"caremind/internal"
	"caremind/internal/config"
	"caremind/internal/logger"
	"caremind/internal/pipeline"
	"caremind/internal/storage"
)

type fakeViews struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	failFor  string
}

func (f *fakeViews) enter() func() {
	n := f.inFlight.Add(1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeViews) Doctor(_ context.Context, id string) (pipeline.DoctorView, error) {
	defer f.enter()()
	view := pipeline.DoctorView{PatientID: id, Sections: pipeline.DoctorProfile.DefaultText()}
	if id == f.failFor {
		return view, errors.New("All Gemini models failed. Last error: quota")
	}
	return view, nil
}

func (f *fakeViews) Pharmacist(_ context.Context, id string) (pipeline.PharmacistView, error) {
	return pipeline.PharmacistView{PatientID: id, Sections: pipeline.AssembleLists(nil, pipeline.PharmacistProfile)}, nil
}

func (f *fakeViews) Nurse(_ context.Context, id string) (pipeline.NurseView, error) {
	return pipeline.NurseView{PatientID: id, Items: []internal.ChecklistItem{{ID: "c-" + id, Task: "Recheck BP", Timeframe: "In 1 hour"}}}, nil
}

func newTestService(t *testing.T, views Views, cfg config.Config) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "caremind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	charts := []internal.Chart{}
	for _, id := range []string{"P1", "P2", "P3", "P4", "P5"} {
		charts = append(charts, internal.Chart{PatientID: id})
	}
	require.NoError(t, db.SaveCharts(charts, "test"))

	svc := NewService(db, views, cfg)
	svc.log = zerolog.Nop()
	svc.now = func() time.Time { return time.Date(2025, 2, 14, 7, 30, 0, 0, time.UTC) }
	return svc, db
}

func TestRunCycleBuildsAndExportsReports(t *testing.T) {
	out := t.TempDir()
	views := &fakeViews{failFor: "P3"}
	svc, db := newTestService(t, views, config.Config{OutputDir: out, RoundsConcurrency: 2, RoundsAutoExport: true})

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, res.Patients)
	require.Equal(t, 1, res.Failed)
	require.LessOrEqual(t, views.peak.Load(), int32(2))

	ids := []string{}
	for _, r := range res.Reports {
		ids = append(ids, r.PatientID)
		require.NotNil(t, r.Doctor)
		require.NotNil(t, r.Pharmacist)
		require.NotNil(t, r.Nurse)
	}
	require.Equal(t, []string{"P1", "P2", "P3", "P4", "P5"}, ids)
	require.Equal(t, "All Gemini models failed. Last error: quota", res.Reports[2].Errors[pipeline.ViewDoctor])
	require.Nil(t, res.Reports[0].Errors)

	require.Equal(t, filepath.Join(out, "rounds", "rounds_20250214_073000.xlsx"), res.ExportPath)
	f, err := excelize.OpenFile(res.ExportPath)
	require.NoError(t, err)
	defer f.Close()
	nurse, err := f.GetRows("nurse")
	require.NoError(t, err)
	require.Len(t, nurse, 6)
	errs, err := f.GetRows("errors")
	require.NoError(t, err)
	require.Equal(t, []string{"P3", "doctor", "All Gemini models failed. Last error: quota"}, errs[1])

	last, err := db.GetMetadata("rounds.last_run")
	require.NoError(t, err)
	require.Equal(t, "2025-02-14T07:30:00Z", *last)
}

func TestRunCycleWithoutExport(t *testing.T) {
	svc, _ := newTestService(t, &fakeViews{}, config.Config{OutputDir: t.TempDir(), RoundsConcurrency: 0})

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, res.Patients)
	require.Empty(t, res.ExportPath)
}

func TestBuildReportsStopsOnCancel(t *testing.T) {
	svc, _ := newTestService(t, &fakeViews{}, config.Config{RoundsConcurrency: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.BuildReports(ctx, []string{"P1", "P2"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	svc, _ := newTestService(t, &fakeViews{}, config.Config{RoundsIntervalSec: 3600, RoundsConcurrency: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, svc.Run(ctx))
}

func TestRunCycleImportsWorkbook(t *testing.T) {
	_, err := (&Service{cfg: config.Config{RoundsWorkbookPath: filepath.Join(t.TempDir(), "missing.xlsx")}}).RunCycle(context.Background())
	require.ErrorContains(t, err, "import workbook")
}

type closingViews struct {
	fakeViews
	once sync.Once
	db   *storage.DB
}

func (c *closingViews) Nurse(ctx context.Context, id string) (pipeline.NurseView, error) {
	c.once.Do(func() { _ = c.db.Close() })
	return c.fakeViews.Nurse(ctx, id)
}

func TestRunCycleLogsUnrecordedLastRun(t *testing.T) {
	views := &closingViews{}
	svc, db := newTestService(t, views, config.Config{RoundsConcurrency: 1})
	views.db = db
	var buf bytes.Buffer
	svc.log = logger.NewWithWriter(&buf, "rounds", "INFO")

	res, err := svc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, res.Patients)
	require.Contains(t, buf.String(), "rounds last run not recorded")
}
