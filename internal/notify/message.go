package notify

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/phrazzld/dibs-api/internal/domain"
)

// Message is a plain-text email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Bytes renders the message with its headers, ready for SMTP DATA.
func (m Message) Bytes() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return b.Bytes()
}

// Settings are the site details quoted in loan emails.
type Settings struct {
	Sender      string
	BaseURL     string
	FeedbackURL string
}

const loanEmailBody = `You started a digital loan at {{.Start}}.

  Title: {{.Title}}
  Author: {{.Author}}

  The loan period ends at {{.End}}
  Link to web viewer: {{.Viewer}}

Information about loan policies can be found at {{.InfoPage}}
{{if .Feedback}}
We welcome feedback. Reply to {{.Sender}} or use the anonymous form at {{.Feedback}}
{{end}}`

var loanEmailTemplate = template.Must(template.New("loan_email").Parse(loanEmailBody))

// humanTime formats loan times for people.
func humanTime(t time.Time) string {
	return t.UTC().Format("Monday, January 2, 2006 at 15:04 UTC")
}

// ComposeLoanEmail builds the message sent when a loan is granted.
func ComposeLoanEmail(notice domain.LoanNotice, s Settings) (Message, error) {
	base := strings.TrimRight(s.BaseURL, "/")

	var body bytes.Buffer
	err := loanEmailTemplate.Execute(&body, map[string]string{
		"Start":    humanTime(notice.Start),
		"End":      humanTime(notice.End),
		"Title":    notice.Title,
		"Author":   notice.Author,
		"Viewer":   base + "/view/" + url.PathEscape(notice.Barcode),
		"InfoPage": base + "/info",
		"Sender":   s.Sender,
		"Feedback": s.FeedbackURL,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render loan email: %w", err)
	}

	title := notice.Title
	if title == "" {
		title = notice.Barcode
	}

	return Message{
		From:    s.Sender,
		To:      notice.User,
		Subject: fmt.Sprintf("Digital loan for %q", title),
		Body:    body.String(),
	}, nil
}
