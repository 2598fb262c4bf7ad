// Package smtp содержит реализацию отправки уведомлений по SMTP.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"megachess/internal/auth/config"
	svc "megachess/internal/auth/ports/services"
	"megachess/pkg/logger"
)

// Константы для логирования.
const (
	LogMailDisabled = "smtp disabled, notification logged only"
	LogMailSent     = "notification sent"

	ErrorFailedToDial  = "failed to connect to smtp server"
	ErrorFailedToSend  = "failed to send notification"
	ErrorFailedToClose = "failed to close smtp client"
)

// Notifier реализует интерфейс Notifier поверх SMTP.
// При выключенном SMTP уведомление только логируется: сервис остается
// работоспособным в окружениях без почтового сервера.
type Notifier struct {
	cfg *config.SMTPConfig
}

// New создает новый SMTP-нотификатор.
func New(cfg *config.SMTPConfig) svc.Notifier {
	return &Notifier{cfg: cfg}
}

// Send доставляет одно сообщение на адрес. Доставка best-effort:
// вызывающая сторона сама решает, игнорировать ли ошибку.
func (n *Notifier) Send(ctx context.Context, address, subject, body string) error {
	log := logger.Log(ctx).With(
		zap.String("to", address),
		zap.String("subject", subject),
	)

	if !n.cfg.Enabled {
		log.Info(ctx, LogMailDisabled)
		return nil
	}

	from := mail.Address{Name: n.cfg.FromName, Address: n.cfg.FromAddress}
	msg := buildMessage(from, address, subject, body)

	if err := n.deliver(from.Address, address, msg); err != nil {
		log.Error(ctx, ErrorFailedToSend, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSend, err)
	}

	log.Info(ctx, LogMailSent)
	return nil
}

// deliver выполняет SMTP-диалог с сервером.
func (n *Notifier) deliver(from, to, msg string) error {
	addr := n.cfg.GetAddress()

	conn, err := net.DialTimeout("tcp", addr, n.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("%s %s: %w", ErrorFailedToDial, addr, err)
	}

	client, err := gosmtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if n.cfg.StartTLS {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starting tls: %w", err)
		}
	}

	if n.cfg.Username != "" {
		auth := gosmtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("opening data stream: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing data stream: %w", err)
	}

	return client.Quit()
}

// buildMessage собирает сообщение в формате RFC 2822.
func buildMessage(from mail.Address, to, subject, body string) string {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from.String()))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}
