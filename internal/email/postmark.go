package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mfalkner/kinfolk/internal/model"
)

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	httpClient  *http.Client
	retries     uint64
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithRetries sets how many times a failed send is retried. Default 3.
func WithRetries(n uint64) Option {
	return func(cl *Client) {
		cl.retries = n
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
		retries:     3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendAuthCode sends a 6-digit login code for login, registration, or
// invitation.
func (c *Client) SendAuthCode(ctx context.Context, toEmail, code, purpose, familyName string) error {
	var subject, action string
	switch purpose {
	case "login":
		subject = "Sign in to Kinfolk"
		action = "sign in"
	case "register":
		subject = "Welcome to Kinfolk"
		action = "complete your registration"
	case "invite":
		subject = fmt.Sprintf("You've been invited to %s on Kinfolk", familyName)
		action = "accept your invitation"
	default:
		subject = "Your Kinfolk code"
		action = "continue"
	}

	textBody := fmt.Sprintf("Enter this code to %s:\n\n%s\n\nThe code expires in 15 minutes.", action, code)
	htmlBody := fmt.Sprintf(
		`<p>Enter this code to %s:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>The code expires in 15 minutes.</p>`,
		action, code,
	)

	return c.send(ctx, toEmail, subject, htmlBody, textBody)
}

// SendBirthdayCard sends a birthday greeting card for a member to a
// recipient, usually the family's reminder address.
func (c *Client) SendBirthdayCard(ctx context.Context, toEmail string, m model.Member) error {
	subject := fmt.Sprintf("Happy birthday, %s!", m.Name)
	textBody := fmt.Sprintf("It's %s's birthday today (born %s). Don't forget to send your wishes!", m.Name, m.Born)
	htmlBody := fmt.Sprintf(
		`<div style="text-align:center"><h1>🎂 Happy Birthday, %s!</h1><p>Born %s</p><p>Don't forget to send your wishes!</p></div>`,
		m.Name, m.Born,
	)
	return c.send(ctx, toEmail, subject, htmlBody, textBody)
}

// send posts to the Postmark API, retrying transient failures with
// exponential backoff. 4xx responses are permanent and not retried.
func (c *Client) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/email", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.serverToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("send email: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("postmark API error: status %d", resp.StatusCode))
		case resp.StatusCode >= 400:
			return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
		}
		return nil
	})
}
