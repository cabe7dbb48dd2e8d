package mail

import (
	"errors"
	"mime"
	"net/smtp"
	"strings"
	"sync"
	"testing"

	"github.com/s/leadBoard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	addr string
	from string
	to   []string
	msg  string
}

func recorder() (*[]sent, *sync.Mutex, SendFunc) {
	var mu sync.Mutex
	var out []sent
	return &out, &mu, func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		out = append(out, sent{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
}

func TestNewWithoutHostIsNoop(t *testing.T) {
	n := New(config.SMTPConfig{})
	assert.IsType(t, Noop{}, n)
	n.Welcome("a@example.com", "A")
}

func TestLeadAssigned(t *testing.T) {
	out, _, fn := recorder()
	s := NewSMTP(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "crm@example.com"}).WithSender(fn)

	s.LeadAssigned("rep@example.com", LeadAssignment{
		AssigneeName: "Sam",
		LeadID:       42,
		LeadName:     "Anna",
		MobileNumber: "555-0101",
		Course:       "Go Basics",
		Status:       "prospect",
	})
	s.Wait()

	require.Len(t, *out, 1)
	m := (*out)[0]
	assert.Equal(t, "smtp.example.com:587", m.addr)
	assert.Equal(t, "crm@example.com", m.from)
	assert.Equal(t, []string{"rep@example.com"}, m.to)
	assert.Contains(t, m.msg, "Subject: New lead assigned: Anna\r\n")
	assert.Contains(t, m.msg, "Anna (#42)")
	assert.Contains(t, m.msg, "Go Basics")
}

func headers(msg string) []string {
	head, _, _ := strings.Cut(msg, "\r\n\r\n")
	return strings.Split(head, "\r\n")
}

func TestLeadNameCannotInjectHeaders(t *testing.T) {
	out, _, fn := recorder()
	s := NewSMTP(config.SMTPConfig{Host: "h", Port: 25, From: "crm@example.com"}).WithSender(fn)

	s.LeadAssigned("rep@example.com", LeadAssignment{LeadName: "Eve\r\nBcc: evil@example.com", LeadID: 1})
	s.Wait()

	require.Len(t, *out, 1)
	hs := headers((*out)[0].msg)
	for _, h := range hs {
		assert.False(t, strings.HasPrefix(h, "Bcc:"), h)
	}
	assert.Len(t, hs, 6)
	assert.Contains(t, hs, "Subject: New lead assigned: Eve  Bcc: evil@example.com")
}

func TestNonASCIISubjectIsEncoded(t *testing.T) {
	out, _, fn := recorder()
	s := NewSMTP(config.SMTPConfig{Host: "h", Port: 25, From: "crm@example.com"}).WithSender(fn)

	s.LeadAssigned("rep@example.com", LeadAssignment{LeadName: "Zoë Ågren", LeadID: 2})
	s.Wait()

	require.Len(t, *out, 1)
	var subject string
	for _, h := range headers((*out)[0].msg) {
		if v, ok := strings.CutPrefix(h, "Subject: "); ok {
			subject = v
		}
	}
	assert.True(t, strings.HasPrefix(subject, "=?utf-8?q?"), subject)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, "New lead assigned: Zoë Ågren", decoded)
}

func TestInvalidRecipientIsDropped(t *testing.T) {
	out, _, fn := recorder()
	s := NewSMTP(config.SMTPConfig{Host: "h", Port: 25}).WithSender(fn)

	s.Welcome("not an address", "A")
	s.Wait()
	assert.Empty(t, *out)
}

func TestQueueSkipsEmptyRecipient(t *testing.T) {
	out, _, fn := recorder()
	s := NewSMTP(config.SMTPConfig{Host: "h", Port: 25}).WithSender(fn)

	s.Welcome("  ", "nobody")
	s.BulkUploadFinished("ops@example.com", UploadSummary{Name: "Ops", FileName: "leads.csv", Total: 3, Inserted: 3})
	s.Wait()

	require.Len(t, *out, 1)
	assert.Contains(t, (*out)[0].msg, "3 of 3 leads")
}

func TestSendFailureIsSwallowed(t *testing.T) {
	s := NewSMTP(config.SMTPConfig{Host: "h", Port: 25}).WithSender(
		func(string, smtp.Auth, string, []string, []byte) error { return errors.New("boom") },
	)
	s.Welcome("a@example.com", "A")
	s.Wait()
}
