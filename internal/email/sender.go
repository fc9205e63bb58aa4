// Package email envía notificaciones por SMTP. El gateway lo usa para la
// confirmación de borrado de cuenta; si SMTP no está configurado el sender
// es nil y el flujo sigue sin notificar.
package email

import (
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"
	"go.uber.org/zap"
)

// Sender envía un email con cuerpo de texto plano.
type Sender interface {
	Send(to, subject, textBody string) error
}

// SMTPSender implementa Sender sobre SMTP con STARTTLS.
type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string

	log *zap.Logger
}

func NewSMTPSender(host string, port int, from, user, pass string, log *zap.Logger) *SMTPSender {
	return &SMTPSender{Host: host, Port: port, From: from, User: user, Pass: pass, log: log}
}

func (s *SMTPSender) Send(to, subject, textBody string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host}

	if err := d.DialAndSend(m); err != nil {
		s.log.Error("smtp_send_failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	s.log.Info("email_sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
