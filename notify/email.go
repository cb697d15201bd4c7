package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailClient sends plain-text mail over SMTP. The stdlib client is enough
// here: one recipient list, no attachments, no HTML.
type EmailClient struct {
	addr string // host:port
	from string
	to   []string
	auth smtp.Auth
}

func NewEmailClient(addr, from string, to []string, auth smtp.Auth) *EmailClient {
	return &EmailClient{
		addr: addr,
		from: from,
		to:   to,
		auth: auth,
	}
}

func (c *EmailClient) Notify(ctx context.Context, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(c.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	b.WriteString(message)

	if err := smtp.SendMail(c.addr, c.auth, c.from, c.to, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
