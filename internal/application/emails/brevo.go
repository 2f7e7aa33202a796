package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches Brevo API v3 send transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Message is one rendered transactional email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Mailer delivers rendered messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// BrevoClient sends emails via Brevo (Sendinblue). Env: SENDINBLUE_API_KEY, MAIL_FROM.
type BrevoClient struct {
	APIKey    string
	MailFrom  string
	BrandName string
	// Endpoint overrides the Brevo API URL (tests).
	Endpoint string
	Client   *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@estates.example"
}

func (c *BrevoClient) endpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return brevoAPI
}

// Send posts one email. Without an API key it is a no-op.
func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	if c.APIKey == "" {
		return nil
	}
	body := BrevoSendRequest{
		Sender:      BrevoSender{Email: c.from(), Name: c.BrandName},
		To:          []BrevoTo{{Email: msg.ToEmail, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		ReplyTo:     &BrevoReplyTo{Email: c.from(), Name: c.BrandName},
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}
