// Package mailer delivers validation reports by email. Reports carry up
// to two spreadsheet attachments, one per partition, and the sender
// decides which partitions to include.
package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"
)

// ErrNoAttachments is returned when a message selects no partitions.
var ErrNoAttachments = errors.New("no files selected for sending")

// Attachment is one file to attach.
type Attachment struct {
	Name string
	Data []byte
}

// Message is one validation report email.
type Message struct {
	Recipient   string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Mailer sends validation report messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends reports through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers the message. Subject and body fall back to defaults when
// empty, so a bare recipient is enough to ship a report.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.Attachments) == 0 {
		return ErrNoAttachments
	}
	if msg.Subject == "" {
		msg.Subject = "Validation Results - " + time.Now().Format("2006-01-02")
	}
	if msg.Body == "" {
		msg.Body = "Please find attached validation results."
	}

	payload, err := buildMIME(m.cfg.From, msg)
	if err != nil {
		return fmt.Errorf("smtp: build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	// smtp.SendMail has no context support, so the send runs in a
	// goroutine and the caller's deadline is honored here.
	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.cfg.From, []string{msg.Recipient}, payload)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("smtp: send: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: send: %w", err)
		}
		return nil
	}
}

// buildMIME renders a multipart/mixed message with a text part followed
// by base64-encoded attachments.
func buildMIME(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.Recipient)
	fmt.Fprintf(&buf, "Subject: %s\r\n", msg.Subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", w.Boundary())
	buf.WriteString("\r\n")

	textHeader := textproto.MIMEHeader{}
	textHeader.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := w.CreatePart(textHeader)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "application/octet-stream")
		header.Set("Content-Transfer-Encoding", "base64")
		header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.Name))
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, att.Data); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 encodes data in 76-character lines per RFC 2045.
func writeBase64(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	var sb strings.Builder
	for len(encoded) > 76 {
		sb.WriteString(encoded[:76])
		sb.WriteString("\r\n")
		encoded = encoded[76:]
	}
	sb.WriteString(encoded)
	sb.WriteString("\r\n")
	_, err := w.Write([]byte(sb.String()))
	return err
}
