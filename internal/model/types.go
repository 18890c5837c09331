package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrUnauthenticated    = errors.New("not signed in")
)

// NavigationItem is one entry of the site navigation. Href is a fragment ("#about").
type NavigationItem struct {
	Label string `yaml:"label" json:"label"`
	Href  string `yaml:"href" json:"href"`
}

// SectionID returns the fragment id without the leading '#'.
func (n NavigationItem) SectionID() string { return strings.TrimPrefix(n.Href, "#") }

// Section is the rendered content of one navigation target.
type Section struct {
	ID    string   `yaml:"id" json:"id"`
	Title string   `yaml:"title" json:"title"`
	Body  []string `yaml:"body" json:"body"`
}

type Status string

const (
	StatusNew  Status = "new"
	StatusRead Status = "read"
)

// Valid reports whether s is one of the two known submission states.
func (s Status) Valid() bool { return s == StatusNew || s == StatusRead }

// Submission is one contact-form record as held by the row store.
type Submission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Subject     string     `json:"subject"`
	Message     string     `json:"message"`
	SubmittedAt time.Time  `json:"submitted_at"`
	Status      Status     `json:"status"`
	ReadAt      *time.Time `json:"read_at"`
}

func (s Submission) FilterValue() string { return s.Name + " " + s.Email + " " + s.Subject }

// NewSubmission holds the visitor-provided fields of a contact form.
type NewSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type Stats struct {
	Total int `json:"total"`
	New   int `json:"new"`
	Read  int `json:"read"`
	Today int `json:"today"`
}

// ReplyRequest is built per send and lives only for one delivery attempt.
type ReplyRequest struct {
	To        string `json:"to"`
	ToName    string `json:"toName"`
	FromName  string `json:"fromName"`
	FromEmail string `json:"fromEmail"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	// HTML is an optional rich body; channels that only carry text ignore it.
	HTML string `json:"-"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	Token     string    `json:"access_token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthEventKind string

const (
	SignedIn  AuthEventKind = "signed_in"
	SignedOut AuthEventKind = "signed_out"
)

// AuthEvent is published whenever a session starts or ends.
type AuthEvent struct {
	Kind    AuthEventKind
	Session *Session
}

// TallyStats counts subs by status; Today counts submissions made on now's
// local calendar day.
func TallyStats(subs []Submission, now time.Time) Stats {
	y, m, d := now.Date()
	loc := now.Location()
	var st Stats
	for _, s := range subs {
		st.Total++
		switch s.Status {
		case StatusNew:
			st.New++
		case StatusRead:
			st.Read++
		}
		sy, sm, sd := s.SubmittedAt.In(loc).Date()
		if sy == y && sm == m && sd == d {
			st.Today++
		}
	}
	return st
}
