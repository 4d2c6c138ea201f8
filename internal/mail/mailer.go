package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	gomail "gopkg.in/mail.v2"

	"github.com/simpleit/sitepilot/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	// GuideFilename is the attachment name of the lead-magnet PDF.
	GuideFilename = "IT-Security-Checklist-Guide.pdf"

	guideSubject = "Your IT Security Checklist from Simple IT"
	timeLayout   = "1/2/2006, 3:04:05 PM"
)

var priorityClasses = map[string]bool{"urgent": true, "high": true, "normal": true, "low": true}

// Addresses are the mailboxes the site sends from and alerts to.
type Addresses struct {
	From     string // info@ mailbox for audit and guide mail
	Support  string // ticket confirmations
	Internal string // lead alerts
}

// Mailer renders and sends every outbound email.
type Mailer struct {
	sender Sender
	addr   Addresses
	now    func() time.Time
}

// NewMailer returns a Mailer. Empty addresses fall back to the
// simple-it.us mailboxes.
func NewMailer(s Sender, addr Addresses) *Mailer {
	if addr.From == "" {
		addr.From = "info@simple-it.us"
	}
	if addr.Support == "" {
		addr.Support = "support@simple-it.us"
	}
	if addr.Internal == "" {
		addr.Internal = addr.From
	}
	return &Mailer{
		sender: s,
		addr:   addr,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for lead timestamps and footers.
func (m *Mailer) WithClock(now func() time.Time) *Mailer {
	if now != nil {
		m.now = now
	}
	return m
}

type reportRow struct {
	Label string
	Score int
	Color string
	Issue string
}

// SendAuditReport emails the audit results to the requester.
func (m *Mailer) SendAuditReport(ctx context.Context, to, name, auditedDomain string, res *domain.AuditResult) error {
	greeting := "Hi,"
	if n := strings.TrimSpace(name); n != "" {
		greeting = "Hi " + n + ","
	}
	rows := make([]reportRow, 0, len(domain.CategoryKeys))
	for _, key := range domain.CategoryKeys {
		cat := res.Categories[key]
		rows = append(rows, reportRow{
			Label: domain.CategoryLabels[key],
			Score: cat.Score,
			Color: domain.ScoreColor(cat.Score),
			Issue: cat.VisibleIssue,
		})
	}

	body, err := render("audit_report.html", map[string]any{
		"Greeting":   greeting,
		"Domain":     auditedDomain,
		"Result":     res,
		"ScoreColor": domain.ScoreColor(res.OverallScore),
		"Rows":       rows,
	})
	if err != nil {
		return err
	}
	msg, err := m.message(m.addr.From, "SitePilot by Simple IT", to,
		fmt.Sprintf("Your SEO Audit Results for %s — Grade: %s", auditedDomain, res.OverallGrade), body)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

// SendAuditLead alerts the internal mailbox that a visitor asked for their
// audit by email.
func (m *Mailer) SendAuditLead(ctx context.Context, email, name, auditedDomain string, res *domain.AuditResult) error {
	who := strings.TrimSpace(name)
	if who == "" {
		who = email
	}
	body, err := render("audit_lead.html", map[string]any{
		"Name":   strings.TrimSpace(name),
		"Email":  email,
		"Domain": auditedDomain,
		"Result": res,
		"Time":   m.now().Format(timeLayout),
	})
	if err != nil {
		return err
	}
	msg, err := m.message(m.addr.From, "SitePilot Lead", m.addr.Internal,
		fmt.Sprintf("SitePilot Lead: %s audited %s (%s)", who, auditedDomain, res.OverallGrade), body)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

// SendGuide emails the lead-magnet PDF to the visitor.
func (m *Mailer) SendGuide(ctx context.Context, to, name string, pdf []byte) error {
	body, err := render("guide_delivery.html", map[string]any{"Name": name})
	if err != nil {
		return err
	}
	msg, err := m.message(m.addr.From, "Simple IT", to, guideSubject, body)
	if err != nil {
		return err
	}
	msg.AttachReader(GuideFilename, bytes.NewReader(pdf), gomail.SetHeader(map[string][]string{
		"Content-Type": {"application/pdf"},
	}))
	return m.sender.Send(ctx, msg)
}

// SendGuideLead alerts the internal mailbox about a guide download.
func (m *Mailer) SendGuideLead(ctx context.Context, name, email, company string) error {
	body, err := render("guide_lead.html", map[string]any{
		"Name":    name,
		"Email":   email,
		"Company": strings.TrimSpace(company),
		"Time":    m.now().Format(timeLayout),
	})
	if err != nil {
		return err
	}
	msg, err := m.message(m.addr.From, "Website Lead", m.addr.Internal,
		fmt.Sprintf("New Lead: %s downloaded IT Security Checklist", name), body)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

// Ticket is the data shown in a ticket confirmation.
type Ticket struct {
	ContactEmail string
	ContactName  string
	Subject      string
	TicketNumber string
	Priority     string
}

// PriorityLabel maps urgent/high/normal/low to a display label; anything
// else reads "Normal".
func (m *Mailer) PriorityLabel(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if !priorityClasses[p] {
		return "Normal"
	}
	// Casers carry state and are not shared between goroutines.
	return cases.Title(language.English).String(p)
}

// SendTicketConfirmation acknowledges a support ticket.
func (m *Mailer) SendTicketConfirmation(ctx context.Context, t Ticket) error {
	class := strings.ToLower(strings.TrimSpace(t.Priority))
	if !priorityClasses[class] {
		class = "normal"
	}
	body, err := render("ticket_confirmation.html", map[string]any{
		"ContactName":   t.ContactName,
		"TicketNumber":  t.TicketNumber,
		"Subject":       t.Subject,
		"PriorityClass": class,
		"PriorityLabel": m.PriorityLabel(t.Priority),
		"Year":          m.now().Year(),
	})
	if err != nil {
		return err
	}
	msg, err := m.message(m.addr.Support, "Simple IT Support", t.ContactEmail,
		fmt.Sprintf("Ticket Received: %s [#%s]", t.Subject, t.TicketNumber), body)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

// SendTest sends a plain connectivity check message.
func (m *Mailer) SendTest(ctx context.Context, to string) error {
	msg, err := m.message(m.addr.From, "Simple IT Test", to, "SMTP2GO Test from SitePilot", "")
	if err != nil {
		return err
	}
	msg.SetBody("text/plain", "If you receive this, SMTP2GO is working!")
	msg.AddAlternative("text/html", "<b>If you receive this, SMTP2GO is working!</b>")
	return m.sender.Send(ctx, msg)
}

func (m *Mailer) message(from, fromName, to, subject, html string) (*gomail.Message, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, ErrNoRecipient
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", from, fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetDateHeader("Date", m.now())
	msg.SetBody("text/html", html)
	return msg, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
