package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"folio/internal/admin"
	"folio/internal/auth"
	"folio/internal/model"
)

type sessionKey struct{}

func sessionFrom(ctx context.Context) model.Session {
	sess, _ := ctx.Value(sessionKey{}).(model.Session)
	return sess
}

// requireSession rejects requests without a live admin session and passes
// the caller's token on to the store.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.TokenFromRequest(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, model.ErrUnauthenticated.Error())
			return
		}
		sess, err := s.auth.Session(r.Context(), token)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				s.log.Warn("session check failed", zap.Error(err))
			}
			writeJSONError(w, status, err.Error())
			return
		}
		ctx := auth.WithToken(r.Context(), token)
		ctx = context.WithValue(ctx, sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	sess, err := s.auth.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		// The provider's text is shown to the user as is.
		writeJSONError(w, http.StatusUnauthorized, err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := s.auth.SignOut(r.Context(), token); err != nil {
			s.log.Warn("sign out failed", zap.Error(err))
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := admin.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.dash.Load(r.Context())
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	subs := filter.Apply(snap.Submissions)
	writeJSON(w, http.StatusOK, map[string]any{
		"filter":      filter,
		"submissions": subs,
		"stats":       snap.Stats,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.dash.Load(r.Context())
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap.Stats)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, s.dash.MarkRead(r.Context(), r.PathValue("id")))
}

func (s *Server) handleMarkUnread(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, s.dash.MarkUnread(r.Context(), r.PathValue("id")))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.respondAction(w, s.dash.Delete(r.Context(), r.PathValue("id")))
}

func (s *Server) respondAction(w http.ResponseWriter, err error) {
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type replyRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	var in replyRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sub, err := s.dash.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	res, err := s.dash.Reply(r.Context(), sub, in.Message)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}
