package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"folio/internal/model"
)

const DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJS sends through an EmailJS template using the public REST endpoint.
type EmailJS struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	Endpoint   string
	Client     *http.Client
}

type emailJSPayload struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

func (e *EmailJS) Method() Method { return MethodEmailJS }

func (e *EmailJS) Configured() bool {
	return IsConfigured(e.ServiceID, PlaceholderEmailJSService) &&
		IsConfigured(e.TemplateID, PlaceholderEmailJSTemplate) &&
		IsConfigured(e.PublicKey, PlaceholderEmailJSPublicKey)
}

func (e *EmailJS) Attempt(ctx context.Context, req model.ReplyRequest) (Outcome, error) {
	payload := emailJSPayload{
		ServiceID:  e.ServiceID,
		TemplateID: e.TemplateID,
		UserID:     e.PublicKey,
		TemplateParams: map[string]string{
			"to_email":   req.To,
			"to_name":    orDefault(req.ToName, "User"),
			"from_name":  orDefault(req.FromName, "Admin"),
			"from_email": orDefault(req.FromEmail, "admin@yoursite.com"),
			"subject":    req.Subject,
			"message":    req.Message,
			"reply_to":   orDefault(req.FromEmail, "admin@yoursite.com"),
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode payload: %w", err)
	}

	endpoint := e.Endpoint
	if endpoint == "" {
		endpoint = DefaultEmailJSEndpoint
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return Outcome{}, err
	}
	hreq.Header.Set("Content-Type", "application/json")

	raw, status, err := do(httpClient(e.Client), hreq)
	out := Outcome{Response: string(raw)}
	if err != nil {
		return out, err
	}
	if status != http.StatusOK {
		return out, fmt.Errorf("http status %d: %s", status, strings.TrimSpace(string(raw)))
	}
	out.Message = "Email sent successfully via EmailJS!"
	return out, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
