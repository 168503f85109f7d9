package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"

	"github.com/phrazzld/dibs-api/internal/task"
)

// Mailer delivers a message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay without authentication, the way
// campus relays are usually reached.
type SMTPMailer struct {
	addr string
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for host:port.
func NewSMTPMailer(host string, port int) *SMTPMailer {
	return &SMTPMailer{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		send: smtp.SendMail,
	}
}

// Send implements Mailer.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.send(m.addr, nil, msg.From, []string{msg.To}, msg.Bytes()); err != nil {
		err = fmt.Errorf("failed to send mail via %s: %w", m.addr, err)
		if isRejection(err) {
			return task.Permanent(err)
		}
		return err
	}
	return nil
}

// isRejection reports whether the relay answered with a permanent (5xx)
// SMTP reply, such as an unknown recipient.
func isRejection(err error) bool {
	var reply *textproto.Error
	return errors.As(err, &reply) && reply.Code >= 500 && reply.Code < 600
}

// LogMailer logs messages instead of sending them. It is used when mail is
// disabled.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger.With(slog.String("component", "log_mailer"))}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "mail disabled, not sending",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject))
	return nil
}
