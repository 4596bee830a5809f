package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/web3ld/contact-api/internal/api/dto/v1/contact"
	"github.com/web3ld/contact-api/internal/logging"
)

const brevoSendURL = "https://api.brevo.com/v3/smtp/email"

// EmailService dispatches contact submissions through Brevo's
// transactional API.
type EmailService struct {
	apiKey        string
	senderEmail   string
	receiverEmail string
	sendURL       string
	client        *http.Client
}

// DispatchResult normalizes the provider's success/failure response. A
// dispatch only counts as successful when the provider confirmed it with
// a message ID; HTTP success alone is not enough.
type DispatchResult struct {
	Success   bool
	MessageID string
	Error     string
	Details   interface{}
}

// NewEmailService creates a new Brevo email service
func NewEmailService(apiKey, senderEmail, receiverEmail string) *EmailService {
	return &EmailService{
		apiKey:        apiKey,
		senderEmail:   senderEmail,
		receiverEmail: receiverEmail,
		sendURL:       brevoSendURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Brevo API payload types
type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	TextContent string         `json:"textContent"`
	ReplyTo     brevoAddress   `json:"replyTo"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

// Send submits both renderings of the message to Brevo. Reply-to is the
// submitter's own address so replies route directly to them. Failures
// come back as a result value, never an error.
func (s *EmailService) Send(ctx context.Context, data *contact.ContactRequest) DispatchResult {
	logger := logging.GetLogger()

	payload := brevoEmail{
		Sender: brevoAddress{
			Email: s.senderEmail,
			Name:  "Contact Form",
		},
		To: []brevoAddress{
			{Email: s.receiverEmail, Name: "Admin"},
		},
		Subject:     fmt.Sprintf("New Contact Form Submission from %s", data.Name),
		HTMLContent: formatHTMLEmail(data),
		TextContent: formatTextEmail(data),
		ReplyTo: brevoAddress{
			Email: data.Email,
			Name:  data.Name,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return DispatchResult{Success: false, Error: "Failed to build email request", Details: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewBuffer(body))
	if err != nil {
		return DispatchResult{Success: false, Error: "Failed to build email request", Details: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Error("brevo API error: %v", err)
		return DispatchResult{Success: false, Error: "Email service error", Details: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read brevo response: %v", err)
		return DispatchResult{Success: false, Error: "Email service error", Details: err.Error()}
	}

	var result brevoResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.Error("failed to parse brevo response: %s", raw)
		return DispatchResult{Success: false, Error: "Invalid response from email service", Details: string(raw)}
	}

	httpOK := resp.StatusCode >= 200 && resp.StatusCode < 300
	if httpOK && result.MessageID != "" {
		return DispatchResult{Success: true, MessageID: result.MessageID}
	}

	logger.Error("brevo API rejected send: status=%d body=%s", resp.StatusCode, raw)
	errMsg := result.Message
	if errMsg == "" {
		errMsg = "Failed to send email"
	}
	return DispatchResult{Success: false, Error: errMsg, Details: result}
}

func formatHTMLEmail(data *contact.ContactRequest) string {
	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>\n")
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>\n", html.EscapeString(data.Name))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>\n", html.EscapeString(data.Email))
	if data.Organization != "" {
		fmt.Fprintf(&b, "<p><strong>Organization:</strong> %s</p>\n", html.EscapeString(data.Organization))
	}
	if data.Title != "" {
		fmt.Fprintf(&b, "<p><strong>Title:</strong> %s</p>\n", html.EscapeString(data.Title))
	}
	b.WriteString("<p><strong>Message:</strong></p>\n")
	message := strings.ReplaceAll(html.EscapeString(data.Message), "\n", "<br>")
	fmt.Fprintf(&b, "<p>%s</p>\n", message)
	b.WriteString("<hr>\n")
	b.WriteString(`<p style="color: #666; font-size: 12px;">Sent via Contact Form</p>`)
	return b.String()
}

func formatTextEmail(data *contact.ContactRequest) string {
	var b strings.Builder
	b.WriteString("New Contact Form Submission\n\n")
	fmt.Fprintf(&b, "Name: %s\n", data.Name)
	fmt.Fprintf(&b, "Email: %s\n", data.Email)
	if data.Organization != "" {
		fmt.Fprintf(&b, "Organization: %s\n", data.Organization)
	}
	if data.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", data.Title)
	}
	fmt.Fprintf(&b, "\nMessage:\n%s", data.Message)
	return b.String()
}
