package mail

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/s/leadBoard/internal/config"
)

// Notifier sends the application's e-mails. Implementations must not block
// the caller on network I/O.
type Notifier interface {
	LeadAssigned(to string, n LeadAssignment)
	BulkUploadFinished(to string, s UploadSummary)
	Welcome(to, name string)
}

type LeadAssignment struct {
	AssigneeName string
	LeadID       uint
	LeadName     string
	MobileNumber string
	Course       string
	Status       string
}

type UploadSummary struct {
	Name     string
	FileName string
	Total    int
	Inserted int
}

// New returns an SMTP notifier, or Noop when SMTP is not configured.
func New(cfg config.SMTPConfig) Notifier {
	if !cfg.Enabled() {
		slog.Warn("SMTP_HOST is not set, e-mail notifications are disabled")
		return Noop{}
	}
	return NewSMTP(cfg)
}

type Noop struct{}

func (Noop) LeadAssigned(string, LeadAssignment)      {}
func (Noop) BulkUploadFinished(string, UploadSummary) {}
func (Noop) Welcome(string, string)                   {}

// SendFunc has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTP struct {
	cfg  config.SMTPConfig
	send SendFunc
	now  func() time.Time
	wg   sync.WaitGroup
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg, send: smtp.SendMail, now: time.Now}
}

// WithSender swaps the transport, mostly for tests.
func (s *SMTP) WithSender(fn SendFunc) *SMTP {
	s.send = fn
	return s
}

// Wait blocks until every queued message has been handed to the transport.
func (s *SMTP) Wait() { s.wg.Wait() }

var (
	leadAssignedTmpl = template.Must(template.New("assigned").Parse(
		`Hello {{.AssigneeName}},

A lead has been assigned to you.

  Lead:    {{.LeadName}} (#{{.LeadID}})
  Mobile:  {{.MobileNumber}}
  Course:  {{.Course}}
  Status:  {{.Status}}
`))

	uploadTmpl = template.Must(template.New("upload").Parse(
		`Hello {{.Name}},

Your bulk upload "{{.FileName}}" has finished: {{.Inserted}} of {{.Total}} leads were imported.
`))

	welcomeTmpl = template.Must(template.New("welcome").Parse(
		`Hello {{.}},

An account has been created for you on the lead board. Sign in with this e-mail address.
`))
)

func (s *SMTP) LeadAssigned(to string, n LeadAssignment) {
	s.queue(to, fmt.Sprintf("New lead assigned: %s", n.LeadName), leadAssignedTmpl, n)
}

func (s *SMTP) BulkUploadFinished(to string, sum UploadSummary) {
	s.queue(to, "Bulk upload finished", uploadTmpl, sum)
}

func (s *SMTP) Welcome(to, name string) {
	s.queue(to, "Welcome to the lead board", welcomeTmpl, name)
}

func (s *SMTP) queue(to, subject string, tmpl *template.Template, data interface{}) {
	to = headerValue(to)
	if to == "" {
		return
	}
	if _, err := netmail.ParseAddress(to); err != nil {
		slog.Error("invalid e-mail recipient", "to", to, "error", err)
		return
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		slog.Error("render e-mail", "template", tmpl.Name(), "error", err)
		return
	}
	msg := s.compose(to, subject, body.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.deliver(to, msg); err != nil {
			slog.Error("send e-mail failed", "to", to, "subject", subject, "error", err)
			return
		}
		slog.Info("e-mail sent", "to", to, "subject", subject)
	}()
}

func (s *SMTP) compose(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", headerValue(s.cfg.From))
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(subject)))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// headerValue folds a value onto one line so user data cannot start a new
// header.
func headerValue(v string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' {
			return ' '
		}
		return r
	}, v))
}

func (s *SMTP) deliver(to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var a smtp.Auth
	if s.cfg.Username != "" {
		a = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	return s.send(addr, a, s.cfg.From, []string{to}, msg)
}
