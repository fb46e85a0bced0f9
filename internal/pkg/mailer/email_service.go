package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendCancellationApproved(toEmail, fullName string, refundApproved bool, refundAmount float64) error
	SendCancellationRejected(toEmail, fullName, adminNotes string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	senderName  string
}

func NewEmailService(host string, port int, username, password, senderEmail, senderName string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (s *emailService) SendCancellationApproved(toEmail, fullName string, refundApproved bool, refundAmount float64) error {
	body := fmt.Sprintf("Hi %s,<br><br>Your membership cancellation has been approved and your membership has ended.", fullName)
	if refundApproved {
		body += fmt.Sprintf("<br>A refund of %.0f will be transferred to the bank account you provided.", refundAmount)
	}
	body += "<br><br>We're sorry to see you go."

	return s.send(toEmail, "Your cancellation has been approved", body)
}

func (s *emailService) SendCancellationRejected(toEmail, fullName, adminNotes string) error {
	body := fmt.Sprintf("Hi %s,<br><br>Your membership cancellation request was not approved and your membership remains active.", fullName)
	if adminNotes != "" {
		body += fmt.Sprintf("<br><br>Note from our team: %s", adminNotes)
	}

	return s.send(toEmail, "About your cancellation request", body)
}

func (s *emailService) send(toEmail, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.senderEmail, s.senderName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	return s.dialer.DialAndSend(m)
}
