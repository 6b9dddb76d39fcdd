package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/addistalk/addistalk/config"
)

// ErrMailNotConfigured is returned when no SMTP host or sender address is set.
var ErrMailNotConfigured = errors.New("smtp not configured")

// MailConfigured reports whether outgoing mail can be sent.
func MailConfigured() bool {
	cfg := config.Get()
	return cfg.SMTP.Host != "" && cfg.SMTP.From != ""
}

// SendMail sends a plain text email using SMTP settings from config.
func SendMail(to, subject, body string) error {
	sc := config.Get().SMTP
	if sc.Host == "" || sc.From == "" {
		return ErrMailNotConfigured
	}
	addr := net.JoinHostPort(sc.Host, strconv.Itoa(sc.Port))
	auth := smtp.PlainAuth("", sc.Username, sc.Password, sc.Host)

	fromName := sc.FromName
	if fromName == "" {
		fromName = config.Get().App.SiteName
	}
	msg := buildMessage(fmt.Sprintf("%s <%s>", mime.BEncoding.Encode("UTF-8", fromName), sc.From), to, subject, body)

	if !sc.TLS {
		return smtp.SendMail(addr, auth, sc.From, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, sc.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: sc.Host}); err != nil {
			return err
		}
	}
	if sc.Username != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(sc.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("UTF-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// NotifyStaff mails every recipient, logging failures instead of returning them.
func NotifyStaff(recipients []string, subject, body string) {
	for _, to := range recipients {
		if err := SendMail(to, subject, body); err != nil {
			Sugar.Warnw("staff notification failed", "to", to, "err", err)
		}
	}
}
