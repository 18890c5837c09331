// Package web serves the portfolio page, the contact endpoints and the
// admin JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"folio/internal/admin"
	"folio/internal/auth"
	"folio/internal/config"
)

type Options struct {
	Site      *config.Site
	Dashboard *admin.Dashboard
	Auth      auth.Authenticator
	// NotifyOwner sends an owner notification after each contact submission.
	NotifyOwner bool
	// NotifyTimeout bounds a background notification.
	NotifyTimeout time.Duration
	SecureCookie  bool
	Logger        *zap.Logger
}

type Server struct {
	site          *config.Site
	dash          *admin.Dashboard
	auth          auth.Authenticator
	notifyOwner   bool
	notifyTimeout time.Duration
	secureCookie  bool
	log           *zap.Logger
	page          *pageRenderer

	// background tracks owner notifications still in flight.
	background sync.WaitGroup
}

func New(opts Options) (*Server, error) {
	if opts.Site == nil || opts.Dashboard == nil || opts.Auth == nil {
		return nil, errors.New("web: site, dashboard and auth are required")
	}
	page, err := newPageRenderer(opts.Site)
	if err != nil {
		return nil, err
	}
	s := &Server{
		site:          opts.Site,
		dash:          opts.Dashboard,
		auth:          opts.Auth,
		notifyOwner:   opts.NotifyOwner,
		notifyTimeout: opts.NotifyTimeout,
		secureCookie:  opts.SecureCookie,
		log:           opts.Logger,
		page:          page,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.notifyTimeout <= 0 {
		s.notifyTimeout = time.Minute
	}
	return s, nil
}

// Handler returns the routed handler with the standard middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/contact", s.handleContact)
	mux.HandleFunc("/api/contact-webhook", s.handleWebhook)

	mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	mux.HandleFunc("POST /api/admin/logout", s.handleLogout)
	mux.Handle("GET /api/admin/session", s.requireSession(http.HandlerFunc(s.handleSession)))
	mux.Handle("GET /api/admin/submissions", s.requireSession(http.HandlerFunc(s.handleList)))
	mux.Handle("GET /api/admin/stats", s.requireSession(http.HandlerFunc(s.handleStats)))
	mux.Handle("POST /api/admin/submissions/{id}/read", s.requireSession(http.HandlerFunc(s.handleMarkRead)))
	mux.Handle("POST /api/admin/submissions/{id}/unread", s.requireSession(http.HandlerFunc(s.handleMarkUnread)))
	mux.Handle("DELETE /api/admin/submissions/{id}", s.requireSession(http.HandlerFunc(s.handleDelete)))
	mux.Handle("POST /api/admin/submissions/{id}/reply", s.requireSession(http.HandlerFunc(s.handleReply)))

	return Chain(mux, RequestID(), RecoverPanic(s.log), AccessLog(s.log))
}

// Run serves on addr until ctx is done, then shuts down gracefully and waits
// for background notifications.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		s.background.Wait()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	s.background.Wait()
	s.log.Info("http server stopped")
	return err
}

// Wait blocks until background notifications have finished.
func (s *Server) Wait() { s.background.Wait() }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
