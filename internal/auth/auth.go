// Package auth signs admins in against the local store and validates their
// session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"folio/internal/bus"
	"folio/internal/model"
	"folio/internal/store"
)

// Authenticator is implemented by the local Service and by the hosted backend client.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (model.Session, error)
	SignUp(ctx context.Context, email, password string) (model.User, error)
	SignOut(ctx context.Context, token string) error
	Session(ctx context.Context, token string) (model.Session, error)
	Subscribe(fn func(model.AuthEvent)) (cancel func())
}

// UserStore is the part of the row store auth needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, password string) (model.User, error)
	Authenticate(ctx context.Context, email, password string) (model.User, error)
	UserByID(ctx context.Context, id string) (model.User, error)
	CreateSession(ctx context.Context, userID string, ttl time.Duration) (store.SessionRecord, error)
	SessionByID(ctx context.Context, id string) (store.SessionRecord, error)
	RevokeSession(ctx context.Context, id string) error
}

const issuer = "folio"

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	store  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	events *bus.Bus[model.AuthEvent]
	log    *zap.Logger
}

func NewService(st UserStore, secret string, ttl time.Duration, log *zap.Logger) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth: session secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  st,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		events: bus.New[model.AuthEvent](),
		log:    log,
	}, nil
}

// SignIn checks the password and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	email = strings.TrimSpace(email)
	u, err := s.store.Authenticate(ctx, email, password)
	if err != nil {
		s.log.Info("sign-in rejected", zap.String("email", email), zap.Error(err))
		return model.Session{}, err
	}
	rec, err := s.store.CreateSession(ctx, u.ID, s.ttl)
	if err != nil {
		return model.Session{}, err
	}
	tok, err := s.sign(u, rec)
	if err != nil {
		return model.Session{}, err
	}
	sess := model.Session{Token: tok, User: u, ExpiresAt: rec.ExpiresAt}
	s.log.Info("signed in", zap.String("email", u.Email))
	s.events.Publish(string(model.SignedIn), model.AuthEvent{Kind: model.SignedIn, Session: &sess})
	return sess, nil
}

func (s *Service) SignUp(ctx context.Context, email, password string) (model.User, error) {
	return s.store.CreateUser(ctx, strings.TrimSpace(email), password)
}

// SignOut revokes the session behind token. An already invalid token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	c, err := s.parse(token)
	if err != nil {
		return nil
	}
	if err := s.store.RevokeSession(ctx, c.ID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.log.Info("signed out", zap.String("email", c.Email))
	s.events.Publish(string(model.SignedOut), model.AuthEvent{Kind: model.SignedOut})
	return nil
}

// Session validates token and returns the live session it names.
func (s *Service) Session(ctx context.Context, token string) (model.Session, error) {
	c, err := s.parse(token)
	if err != nil {
		return model.Session{}, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}
	rec, err := s.store.SessionByID(ctx, c.ID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, model.ErrUnauthenticated
	}
	if err != nil {
		return model.Session{}, err
	}
	if rec.Revoked || !s.now().Before(rec.ExpiresAt) || rec.UserID != c.Subject {
		return model.Session{}, model.ErrUnauthenticated
	}
	u, err := s.store.UserByID(ctx, rec.UserID)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{Token: token, User: u, ExpiresAt: rec.ExpiresAt}, nil
}

// Subscribe registers fn for sign-in and sign-out events.
func (s *Service) Subscribe(fn func(model.AuthEvent)) (cancel func()) {
	return s.events.SubscribeAll(fn)
}

func (s *Service) sign(u model.User, rec store.SessionRecord) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.ID,
			ID:        rec.ID,
			IssuedAt:  jwt.NewNumericDate(rec.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
		},
	})
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return signed, nil
}

func (s *Service) parse(token string) (*claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
