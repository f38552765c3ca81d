package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"caremind/internal/config"
	"caremind/internal/connectors"
	"caremind/internal/gemini"
	"caremind/internal/patients"
	"caremind/internal/pipeline"
	"caremind/internal/report"
	"caremind/internal/rounds"
	"caremind/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	if cmd == "parse" {
		runParse(os.Args[2:])
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "patients:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		an := fs.String("an", "", "sync a single admission number")
		_ = fs.Parse(os.Args[2:])
		svc := patients.NewSyncService(db, cfg)
		if strings.TrimSpace(*an) != "" {
			info, err := svc.SyncOne(ctx, *an)
			must(err)
			if info == nil {
				must(fmt.Errorf("patient not found: an=%s", *an))
			}
			fmt.Printf("patient sync complete an=%s name=%s\n", info.AN, info.Name)
			return
		}
		count, err := svc.SyncAll(ctx)
		must(err)
		fmt.Printf("patient sync complete: %d patients\n", count)
	case "chart:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "chart workbook (.xlsx)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		count, err := patients.NewSyncService(db, cfg).ImportWorkbookFile(*file)
		must(err)
		fmt.Printf("chart import complete: %d charts\n", count)
	case "doctor:summary", "pharmacist:review", "nurse:checklist", "problems:summary", "patient:summary", "family:update":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		patientID := fs.String("patient", "", "patient id (AN)")
		_ = fs.Parse(os.Args[2:])
		requirePatient(*patientID)
		views := newViews(ctx, cfg, db)
		view, err := runView(ctx, views, cmd, *patientID)
		printJSON(view)
		must(err)
	case "patient:ask":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		patientID := fs.String("patient", "", "patient id (AN)")
		question := fs.String("question", "", "question about the chart")
		_ = fs.Parse(os.Args[2:])
		requirePatient(*patientID)
		answer, err := newViews(ctx, cfg, db).FollowUp(ctx, *patientID, *question)
		must(err)
		fmt.Println(answer.Text)
	case "report:export":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", "", "output xlsx path")
		ids := fs.String("patients", "", "comma separated patient ids (default: every stored chart)")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--out is required"))
		}
		patientIDs := splitList(*ids)
		if len(patientIDs) == 0 {
			patientIDs, err = db.ListChartPatientIDs()
			must(err)
		}
		svc := rounds.NewService(db, newViews(ctx, cfg, db), cfg)
		reports, err := svc.BuildReports(ctx, patientIDs)
		must(err)
		must(pipeline.ExportReportsToXLSX(reports, *out))
		fmt.Printf("exported %d patients to %s\n", len(reports), *out)
	case "report:share":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		patientID := fs.String("patient", "", "patient id (AN)")
		_ = fs.Parse(os.Args[2:])
		requirePatient(*patientID)
		shareReport(ctx, cfg, db, *patientID)
	case "rounds:run":
		svc := rounds.NewService(db, newViews(ctx, cfg, db), cfg)
		res, err := svc.RunCycle(ctx)
		must(err)
		fmt.Printf("rounds done patients=%d failed=%d imported=%d export=%s\n", res.Patients, res.Failed, res.Imported, res.ExportPath)
	case "rounds:listen":
		svc := rounds.NewService(db, newViews(ctx, cfg, db), cfg)
		must(svc.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func newViews(ctx context.Context, cfg config.Config, db *storage.DB) *pipeline.ViewService {
	ai, err := gemini.New(ctx, cfg, db)
	must(err)
	return pipeline.NewViewService(db, ai, cfg)
}

func runView(ctx context.Context, views *pipeline.ViewService, cmd, patientID string) (any, error) {
	switch cmd {
	case "doctor:summary":
		return views.Doctor(ctx, patientID)
	case "pharmacist:review":
		return views.Pharmacist(ctx, patientID)
	case "nurse:checklist":
		return views.Nurse(ctx, patientID)
	case "problems:summary":
		return views.Problems(ctx, patientID)
	case "patient:summary":
		return views.PatientSummary(ctx, patientID)
	default:
		return views.Family(ctx, patientID)
	}
}

func shareReport(ctx context.Context, cfg config.Config, db *storage.DB, patientID string) {
	must(cfg.Require("MAIL_FROM", cfg.MailFrom))
	must(cfg.Require("MAIL_TO", cfg.MailTo))

	views := newViews(ctx, cfg, db)
	reports, err := rounds.NewService(db, views, cfg).BuildReports(ctx, []string{patientID})
	must(err)
	family, err := views.Family(ctx, patientID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: family update: %v\n", err)
	}
	info, err := db.GetPatient(patientID)
	must(err)

	msg, err := report.BuildHandoffEmail(cfg, report.Handoff{Patient: info, Family: family.Text, Report: reports[0]}, time.Now())
	must(err)
	sink, err := connectors.NewDraftSink(ctx, cfg)
	must(err)
	res, err := connectors.NewShareService(db, cfg.RawMailDir, sink).Share(ctx, msg)
	must(err)
	fmt.Printf("report shared provider=%s messageId=%s raw=%s\n", res.Provider, res.MessageID, res.RawPath)
}

func runParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	kind := fs.String("kind", "", "doctor|pharmacist|summary|checklist|problems|generic")
	input := fs.String("input", "", "file with AI output or a report (.txt, .html, .pdf)")
	_ = fs.Parse(args)
	if *kind == "" || *input == "" {
		must(fmt.Errorf("--kind and --input are required"))
	}
	text, err := pipeline.ReadInputText(*input)
	must(err)
	parsed, err := pipeline.ParseByKind(pipeline.ParseKind(*kind), text)
	must(err)
	printJSON(parsed)
}

func requirePatient(patientID string) {
	if strings.TrimSpace(patientID) == "" {
		must(fmt.Errorf("--patient is required"))
	}
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	must(err)
	fmt.Println(string(raw))
}

func usage() {
	fmt.Println("usage: " + filepath.Base(os.Args[0]) + " <command>")
	fmt.Println("commands:")
	fmt.Println("  patients:sync [--an=...]")
	fmt.Println("  chart:import --file=charts.xlsx")
	fmt.Println("  doctor:summary --patient=AN")
	fmt.Println("  pharmacist:review --patient=AN")
	fmt.Println("  nurse:checklist --patient=AN")
	fmt.Println("  problems:summary --patient=AN")
	fmt.Println("  patient:summary --patient=AN")
	fmt.Println("  patient:ask --patient=AN --question=...")
	fmt.Println("  family:update --patient=AN")
	fmt.Println("  report:export --out=./out/rounds.xlsx [--patients=AN1,AN2]")
	fmt.Println("  report:share --patient=AN")
	fmt.Println("  rounds:run")
	fmt.Println("  rounds:listen")
	fmt.Println("  parse --kind=doctor|pharmacist|summary|checklist|problems|generic --input=...")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
