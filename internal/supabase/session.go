package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"folio/internal/model"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn uses the password grant. Provider error text is returned as is.
func (c *Client) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}},
		credentials{Email: email, Password: password}, "", nil)
	if err != nil {
		c.log.Info("sign-in rejected", zap.String("email", email), zap.Error(err))
		return model.Session{}, err
	}
	res := gjson.ParseBytes(raw)
	tok := res.Get("access_token").String()
	if tok == "" {
		return model.Session{}, errors.New("sign-in response carried no access token")
	}
	sess := model.Session{
		Token:     tok,
		User:      parseUser(res.Get("user")),
		ExpiresAt: c.now().Add(time.Duration(res.Get("expires_in").Int()) * time.Second),
	}
	c.events.Publish(string(model.SignedIn), model.AuthEvent{Kind: model.SignedIn, Session: &sess})
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (model.User, error) {
	raw, err := c.do(ctx, http.MethodPost, "/auth/v1/signup", nil, credentials{Email: email, Password: password}, "", nil)
	if err != nil {
		return model.User{}, err
	}
	res := gjson.ParseBytes(raw)
	if u := res.Get("user"); u.Exists() {
		return parseUser(u), nil
	}
	return parseUser(res), nil
}

func (c *Client) SignOut(ctx context.Context, token string) error {
	if _, err := c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, token, nil); err != nil {
		var apiErr *APIError
		// An already dead token is as signed out as it gets.
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			return fmt.Errorf("sign out: %w", err)
		}
	}
	c.events.Publish(string(model.SignedOut), model.AuthEvent{Kind: model.SignedOut})
	return nil
}

// Session asks GoTrue who token belongs to.
func (c *Client) Session(ctx context.Context, token string) (model.Session, error) {
	if token == "" {
		return model.Session{}, model.ErrUnauthenticated
	}
	raw, err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, token, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			return model.Session{}, fmt.Errorf("%w: %s", model.ErrUnauthenticated, apiErr.Message)
		}
		return model.Session{}, err
	}
	return model.Session{Token: token, User: parseUser(gjson.ParseBytes(raw)), ExpiresAt: tokenExpiry(token)}, nil
}

func (c *Client) Subscribe(fn func(model.AuthEvent)) (cancel func()) {
	return c.events.SubscribeAll(fn)
}

func parseUser(u gjson.Result) model.User {
	created, _ := time.Parse(time.RFC3339Nano, u.Get("created_at").String())
	return model.User{ID: u.Get("id").String(), Email: u.Get("email").String(), CreatedAt: created}
}

// tokenExpiry reads exp from an access token GoTrue has already vouched for.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
