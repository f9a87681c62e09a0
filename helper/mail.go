package helper

import (
	"gopkg.in/gomail.v2"

	"grocery_store/config"
	"grocery_store/utils"
)

type SMTPMailer struct {
	dialer    *gomail.Dialer
	from      string
	storeName string
}

func NewSMTPMailer(settings config.SMTPSettings, storeName string) *SMTPMailer {
	return &SMTPMailer{
		dialer:    gomail.NewDialer(settings.Host, settings.Port, settings.Username, settings.Password),
		from:      settings.From,
		storeName: storeName,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	return m.dialer.DialAndSend(m.message(to, subject, body))
}

func (m *SMTPMailer) message(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	html, err := utils.RenderNotificationEmail(utils.NotificationEmailData{
		Title:     subject,
		Message:   body,
		StoreName: m.storeName,
	})
	if err == nil {
		msg.AddAlternative("text/html", html)
	}
	return msg
}
