package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"

	"caremind/internal"
	"caremind/internal/config"
	"caremind/internal/pipeline"
)

// Handoff is everything that goes into one shared patient email.
type Handoff struct {
	Patient *internal.PatientInfo
	Family  string
	Report  pipeline.PatientReport
}

// BuildHandoffEmail renders a multipart text/HTML email with the patient
// report attached as JSON.
func BuildHandoffEmail(cfg config.Config, h Handoff, now time.Time) (internal.OutgoingMessage, error) {
	from, err := mail.ParseAddress(cfg.MailFrom)
	if err != nil {
		return internal.OutgoingMessage{}, fmt.Errorf("parse MAIL_FROM: %w", err)
	}
	to, err := mail.ParseAddressList(cfg.MailTo)
	if err != nil {
		return internal.OutgoingMessage{}, fmt.Errorf("parse MAIL_TO: %w", err)
	}

	patientID := h.Report.PatientID
	subject := strings.TrimSpace(cfg.MailSubject + " - " + patientLabel(h.Patient, patientID))
	messageID := fmt.Sprintf("<%s@caremind>", uuid.NewString())

	attachment, err := json.MarshalIndent(h.Report, "", "  ")
	if err != nil {
		return internal.OutgoingMessage{}, err
	}

	builder := enmime.Builder().
		From(from.Name, from.Address).
		Subject(subject).
		Date(now).
		Header("Message-Id", messageID).
		Text([]byte(textBody(h))).
		HTML([]byte(htmlBody(h))).
		AddAttachment(attachment, "application/json", patientID+"-report.json")
	for _, addr := range to {
		builder = builder.To(addr.Name, addr.Address)
	}

	part, err := builder.Build()
	if err != nil {
		return internal.OutgoingMessage{}, err
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return internal.OutgoingMessage{}, err
	}

	return internal.OutgoingMessage{
		PatientID: patientID,
		MessageID: messageID,
		Subject:   subject,
		To:        cfg.MailTo,
		Raw:       buf.Bytes(),
	}, nil
}

func patientLabel(info *internal.PatientInfo, patientID string) string {
	if info == nil || strings.TrimSpace(info.Name) == "" {
		return patientID
	}
	return fmt.Sprintf("%s (%s)", info.Name, patientID)
}

// blocks lists the body as (heading, lines) pairs shared by both renderings.
func blocks(h Handoff) [][2]string {
	out := [][2]string{}
	family := strings.TrimSpace(h.Family)
	if family == "" {
		family = pipeline.DefaultFamilyUpdate
	}
	out = append(out, [2]string{"Family update", family})

	if v := h.Report.Doctor; v != nil {
		out = append(out,
			[2]string{"Problem list", v.Sections[internal.SectionProblems]},
			[2]string{"Abnormal labs", v.Sections[internal.SectionAbnormalLabs]},
			[2]string{"Suggested actions", v.Sections[internal.SectionSuggestedActions]},
		)
	}
	if v := h.Report.Pharmacist; v != nil {
		lines := append([]string{}, v.Sections[internal.SectionAlerts]...)
		lines = append(lines, v.Reconciliation.NameConflicts...)
		lines = append(lines, v.Reconciliation.ClassConflicts...)
		if len(lines) > 0 {
			out = append(out, [2]string{"Medication alerts", strings.Join(lines, "\n")})
		}
	}
	if v := h.Report.Nurse; v != nil && len(v.Items) > 0 {
		lines := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			mark := "[ ]"
			if item.Completed {
				mark = "[x]"
			}
			lines = append(lines, fmt.Sprintf("%s %s | %s", mark, item.Task, item.Timeframe))
		}
		out = append(out, [2]string{"Nursing checklist", strings.Join(lines, "\n")})
	}
	return out
}

func textBody(h Handoff) string {
	var b strings.Builder
	for i, block := range blocks(h) {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block[0] + ":\n" + block[1] + "\n")
	}
	return b.String()
}

func htmlBody(h Handoff) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, block := range blocks(h) {
		b.WriteString("<h3>" + html.EscapeString(block[0]) + "</h3><p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(block[1]), "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
