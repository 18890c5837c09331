package web

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"folio/internal/model"
	"folio/internal/util"
)

const (
	defaultSubject = "General Inquiry"
	maxFormBytes   = 64 << 10
)

type contactResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// handleContact stores a visitor's message and, when enabled, notifies the
// owner in the background. Notification failures never reach the visitor.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	in, err := decodeContact(w, r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, msg := validateContact(in)
	if msg != "" {
		writeJSONError(w, http.StatusBadRequest, msg)
		return
	}

	sub, err := s.dash.Submit(r.Context(), in)
	if err != nil {
		s.log.Error("store contact submission", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "could not save your message, please try again later")
		return
	}

	if s.notifyOwner {
		s.notifyInBackground(r.Context(), sub)
	}
	writeJSON(w, http.StatusCreated, contactResponse{Success: true, ID: sub.ID, Message: "Thank you! Your message has been sent."})
}

func (s *Server) notifyInBackground(parent context.Context, sub model.Submission) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.notifyTimeout)
		defer cancel()
		s.dash.Notify(ctx, sub)
	}()
}

type contactErr string

func (e contactErr) Error() string { return string(e) }

func decodeContact(w http.ResponseWriter, r *http.Request) (model.NewSubmission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var in model.NewSubmission
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, contactErr("invalid JSON body")
		}
		return in, nil
	}
	if err := r.ParseForm(); err != nil {
		return model.NewSubmission{}, contactErr("invalid form body")
	}
	return model.NewSubmission{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Subject: r.PostForm.Get("subject"),
		Message: r.PostForm.Get("message"),
	}, nil
}

// validateContact trims the fields and applies the subject default. A
// non-empty message describes the first problem found.
func validateContact(in model.NewSubmission) (model.NewSubmission, string) {
	in.Name = util.Collapse(in.Name)
	in.Subject = util.Collapse(in.Subject)
	in.Message = strings.TrimSpace(in.Message)
	switch {
	case in.Name == "":
		return in, "name is required"
	case strings.TrimSpace(in.Email) == "":
		return in, "email is required"
	case in.Message == "":
		return in, "message is required"
	}
	email, ok := util.NormalizeEmail(in.Email)
	if !ok {
		return in, "email is not a valid address"
	}
	in.Email = email
	if in.Subject == "" {
		in.Subject = defaultSubject
	}
	return in, ""
}

type webhookPayload struct {
	Record *webhookRecord `json:"record"`
}

type webhookRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	SubmittedAt string `json:"submitted_at"`
}

// handleWebhook receives the row-insert webhook for contact_submissions and
// mails the owner.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var p webhookPayload
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Record == nil ||
		strings.TrimSpace(p.Record.Name) == "" || strings.TrimSpace(p.Record.Email) == "" {
		writeJSONError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	rec := p.Record
	sub := model.Submission{
		ID:      rec.ID,
		Name:    rec.Name,
		Email:   rec.Email,
		Subject: rec.Subject,
		Message: rec.Message,
		Status:  model.StatusNew,
	}
	if t, err := time.Parse(time.RFC3339Nano, rec.SubmittedAt); err == nil {
		sub.SubmittedAt = t
	} else {
		sub.SubmittedAt = time.Now()
	}

	res := s.dash.Notify(r.Context(), sub)
	if !res.Success {
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification sent successfully", "method": string(res.Method)})
}
