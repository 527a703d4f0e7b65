package mail

import (
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// Mailer is the outbound email collaborator. Delivery is fire-and-forget:
// callers log failures but never surface them to the client.
type Mailer interface {
	Send(subject, body, from, to string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
}

func NewSMTPMailer(host, port, username, password string) *SMTPMailer {
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 587
	}
	return &SMTPMailer{
		Host:     host,
		Port:     p,
		Username: username,
		Password: password,
	}
}

func (m *SMTPMailer) Send(subject, body, from, to string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return d.DialAndSend(msg)
}
