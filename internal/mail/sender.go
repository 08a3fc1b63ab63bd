package mail

import (
	"errors"
	"fmt"
	"io"
	"time"

	"shopware_reports/internal/config"
	"shopware_reports/internal/report"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("smtp is not configured")

// Sender delivers rendered reports over SMTP. Chart images are attached
// inline with Content-ID headers so the HTML body can reference them by
// cid.
type Sender struct {
	host      string
	port      int
	username  string
	password  string
	from      string
	fromName  string
	recipient string
	logger    *zap.Logger
}

func NewSender(cfg config.Config, logger *zap.Logger) *Sender {
	return &Sender{
		host:      cfg.SMTPHost,
		port:      cfg.SMTPPort,
		username:  cfg.SMTPUsername,
		password:  cfg.SMTPPassword,
		from:      cfg.SenderEmail,
		fromName:  cfg.SenderName,
		recipient: cfg.RecipientEmail,
		logger:    logger.Named("mail"),
	}
}

func (s *Sender) Send(subject, html string, images []report.ChartImage) error {
	if s.host == "" || s.from == "" || s.recipient == "" {
		return ErrNotConfigured
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", s.recipient)
	m.SetHeader("Subject", fmt.Sprintf("%s - %s", subject, time.Now().Format("2006-01-02")))
	m.SetBody("text/html", html)

	for _, img := range images {
		png := img.PNG
		m.Embed(img.CID+".png",
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(png)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-ID": {"<" + img.CID + ">"},
			}),
		)
	}

	dialer := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email %q: %w", subject, err)
	}

	s.logger.Info("email sent",
		zap.String("subject", subject),
		zap.String("to", s.recipient),
		zap.Int("inline_images", len(images)),
	)
	return nil
}
