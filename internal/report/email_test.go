package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/require"

	"caremind/internal"
	"caremind/internal/config"
	"caremind/internal/pipeline"
)

func testConfig() config.Config {
	return config.Config{
		MailFrom:    "CareMind <rounds@example.org>",
		MailTo:      "Family <family@example.org>, charge@example.org",
		MailSubject: "CareMind update",
	}
}

func TestBuildHandoffEmail(t *testing.T) {
	h := Handoff{
		Patient: &internal.PatientInfo{AN: "P1", Name: "Avery Cole"},
		Family:  "Avery is resting comfortably & eating.",
		Report: pipeline.PatientReport{
			PatientID: "P1",
			Doctor: &pipeline.DoctorView{
				PatientID: "P1",
				Sections:  pipeline.DoctorProfile.DefaultText(),
			},
			Nurse: &pipeline.NurseView{
				PatientID: "P1",
				Items:     []internal.ChecklistItem{{ID: "c1", Task: "Recheck BP", Timeframe: "In 1 hour"}},
			},
		},
	}

	msg, err := BuildHandoffEmail(testConfig(), h, time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, "P1", msg.PatientID)
	require.Equal(t, "CareMind update - Avery Cole (P1)", msg.Subject)
	require.Contains(t, msg.MessageID, "@caremind>")

	env, err := enmime.ReadEnvelope(bytes.NewReader(msg.Raw))
	require.NoError(t, err)
	require.Equal(t, msg.Subject, env.GetHeader("Subject"))
	require.Contains(t, env.GetHeader("To"), "family@example.org")
	require.Contains(t, env.GetHeader("To"), "charge@example.org")
	require.Contains(t, env.Text, "Family update:")
	require.Contains(t, env.Text, "Avery is resting comfortably & eating.")
	require.Contains(t, env.Text, "[ ] Recheck BP | In 1 hour")
	require.Contains(t, env.Text, "No suggestions at this time.")
	require.Contains(t, env.HTML, "&amp; eating")

	require.Len(t, env.Attachments, 1)
	require.Equal(t, "P1-report.json", env.Attachments[0].FileName)
	var decoded pipeline.PatientReport
	require.NoError(t, json.Unmarshal(env.Attachments[0].Content, &decoded))
	require.Equal(t, "P1", decoded.PatientID)
	require.Equal(t, "Recheck BP", decoded.Nurse.Items[0].Task)
}

func TestBuildHandoffEmailDefaultsFamilyText(t *testing.T) {
	msg, err := BuildHandoffEmail(testConfig(), Handoff{Report: pipeline.PatientReport{PatientID: "P2"}}, time.Now())
	require.NoError(t, err)
	require.Equal(t, "CareMind update - P2", msg.Subject)

	env, err := enmime.ReadEnvelope(bytes.NewReader(msg.Raw))
	require.NoError(t, err)
	require.Contains(t, env.Text, pipeline.DefaultFamilyUpdate)
}

func TestBuildHandoffEmailRequiresAddresses(t *testing.T) {
	cfg := testConfig()
	cfg.MailFrom = ""
	_, err := BuildHandoffEmail(cfg, Handoff{Report: pipeline.PatientReport{PatientID: "P1"}}, time.Now())
	require.ErrorContains(t, err, "MAIL_FROM")

	cfg = testConfig()
	cfg.MailTo = "not an address"
	_, err = BuildHandoffEmail(cfg, Handoff{Report: pipeline.PatientReport{PatientID: "P1"}}, time.Now())
	require.ErrorContains(t, err, "MAIL_TO")
}
