// Package email sends transactional mail over SMTP. Sends are
// fire-and-forget from the caller's point of view: failures are logged
// and never surfaced to the request that triggered them.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/olegkanal/taskapp/internal/utils"
)

type Service struct {
	cfg    utils.SMTPConfig
	logger *zap.Logger
}

func NewService(cfg utils.SMTPConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, logger: logger}
}

// SendWelcome mails the post-signup greeting. Designed to be called in a
// goroutine; it returns nothing and reports problems through the logger.
func (s *Service) SendWelcome(ctx context.Context, to, name string) {
	if !s.cfg.Enabled() {
		return
	}
	if name == "" {
		name = "there"
	}

	subject := "Welcome to the Task App"
	body := fmt.Sprintf("<h3>Hello, %s! Thanks for joining the Task App!</h3>", name)

	if err := s.send(to, subject, body); err != nil {
		s.logger.Error("welcome email failed", zap.String("email", to), zap.Error(err))
		return
	}
	s.logger.Info("welcome email sent", zap.String("email", to))
}

func (s *Service) send(to, subject, body string) error {
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.cfg.From, to, subject, body,
	))

	addr := s.cfg.Host + ":" + s.cfg.Port
	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg)
}
