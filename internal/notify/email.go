// Package notify delivers analysis reports by email.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/charmbracelet/log"

	"github.com/juparave/legacyfix/internal/config"
	"github.com/juparave/legacyfix/internal/domain"
	"github.com/juparave/legacyfix/internal/report"
)

const (
	sendAttempts = 3
	sendTimeout  = 30 * time.Second
)

// Service handles email notifications
type Service struct {
	config    config.EmailConfig
	logger    *log.Logger
	formatter *report.Formatter
	backoff   time.Duration
	send      func(addr string, message []byte) error
}

// NewService creates a notification Service
func NewService(cfg config.EmailConfig, logger *log.Logger) (*Service, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.ToAddress == "" {
		return nil, fmt.Errorf("to_address is required")
	}
	if cfg.FromAddress == "" {
		cfg.FromAddress = cfg.SMTPUser
	}

	s := &Service{
		config:    cfg,
		logger:    logger,
		formatter: report.NewFormatter("", nil),
		backoff:   time.Second,
	}
	s.send = s.sendWithTimeout
	return s, nil
}

// SendReport emails the HTML rendering of the run
func (s *Service) SendReport(ctx context.Context, run *domain.AnalysisRun) error {
	body, err := s.formatter.ToHTML(run)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.config.SMTPHost, fmt.Sprint(s.config.SMTPPort))
	message := s.buildMessage(Subject(run), body)

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		err := s.send(addr, message)
		if err == nil {
			return nil
		}
		lastErr = err
		s.logger.Warn("email attempt failed", "attempt", attempt, "err", lastErr)

		if attempt < sendAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * s.backoff):
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", sendAttempts, lastErr)
}

// Subject summarizes the run for the mail subject line
func Subject(run *domain.AnalysisRun) string {
	date := run.StartedAt.Format("Jan 2")

	if !run.HasSuggestions() && run.Count(domain.OutcomeError) == 0 {
		return fmt.Sprintf("[legacyfix] %s - ✅ No deprecated patterns", date)
	}
	if errs := run.Count(domain.OutcomeError); errs > 0 {
		return fmt.Sprintf("[legacyfix] %s - ⚠️ %d suggestions (%d files failed)", date, run.TotalSuggestions(), errs)
	}
	return fmt.Sprintf("[legacyfix] %s - %d suggestions", date, run.TotalSuggestions())
}

func (s *Service) buildMessage(subject, htmlBody string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s <%s>\r\n", s.config.FromName, s.config.FromAddress)
	fmt.Fprintf(&buf, "To: %s\r\n", s.config.ToAddress)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&buf, "Message-ID: <%d@%s>\r\n", time.Now().UnixNano(), s.config.SMTPHost)
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)

	return buf.Bytes()
}

func (s *Service) sendWithTimeout(addr string, message []byte) error {
	conn, err := net.DialTimeout("tcp", addr, sendTimeout)
	if err != nil {
		return fmt.Errorf("connecting to SMTP server: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(sendTimeout))

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Quit()

	// 587 is the submission port; it expects STARTTLS
	if s.config.SMTPPort == 587 {
		if err = client.StartTLS(&tls.Config{ServerName: s.config.SMTPHost}); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	if s.config.SMTPUser != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUser, s.config.SMTPPassword, s.config.SMTPHost)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err = client.Mail(s.config.FromAddress); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err = client.Rcpt(s.config.ToAddress); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("getting data writer: %w", err)
	}
	if _, err = writer.Write(message); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}

	return writer.Close()
}
