// Package gmail sends mail through the Gmail API on behalf of the site owner.
package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	credentialsFile = "client_secret.json"
	tokenFile       = "token.json"
)

// ErrNoToken means Authorize has not been run for this config dir.
var ErrNoToken = errors.New("gmail: no cached token; run `folio gmail-auth`")

// Sender delivers pre-rendered messages as the authorized account.
type Sender struct {
	svc *gmailv1.Service
}

// NewSender builds a Sender from the credentials and cached token in
// configDir. It never prompts.
func NewSender(ctx context.Context, configDir string) (*Sender, error) {
	cfg, err := oauthConfig(configDir)
	if err != nil {
		return nil, err
	}
	tok, err := readToken(filepath.Join(configDir, tokenFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("read token: %w", err)
	}
	svc, err := gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Sender{svc: svc}, nil
}

// Send renders m and submits it. It returns the Gmail message id.
func (s *Sender) Send(ctx context.Context, m Message) (string, error) {
	raw, err := BuildMessage(m)
	if err != nil {
		return "", err
	}
	sent, err := s.svc.Users.Messages.Send("me", &gmailv1.Message{Raw: EncodeRaw(raw)}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}
	return sent.Id, nil
}

// Authorize runs the browser consent flow and caches the resulting token in
// configDir. A loopback redirect is tried first; after a timeout the user can
// paste the code or the full redirect URL into in.
func Authorize(ctx context.Context, configDir string, in io.Reader, out io.Writer) error {
	cfg, err := oauthConfig(configDir)
	if err != nil {
		return err
	}
	tok, err := tokenFromWeb(ctx, cfg, in, out)
	if err != nil {
		return err
	}
	return saveToken(filepath.Join(configDir, tokenFile), tok)
}

func oauthConfig(configDir string) (*oauth2.Config, error) {
	credPath := filepath.Join(configDir, credentialsFile)
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w", credPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, gmailv1.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}
	return cfg, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func tokenFromWeb(ctx context.Context, cfg *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	codes := make(chan string, 1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		port := ln.Addr().(*net.TCPAddr).Port
		redirect := fmt.Sprintf("http://127.0.0.1:%d/", port)
		oldRedirect := cfg.RedirectURL
		cfg.RedirectURL = redirect

		mux := http.NewServeMux()
		srv := &http.Server{ReadHeaderTimeout: 5 * time.Second, Handler: mux}
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authentication complete. You can close this window.")
			select {
			case codes <- code:
			default:
			}
		})
		go func() { _ = srv.Serve(ln) }()
		defer func() { _ = srv.Shutdown(context.Background()) }()

		fmt.Fprintln(out, "Open this URL in your browser to authorize sending:")
		fmt.Fprintln(out, cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
		fmt.Fprintf(out, "Waiting for redirect on %s …\n", redirect)

		select {
		case <-ctx.Done():
			cfg.RedirectURL = oldRedirect
			return nil, ctx.Err()
		case code := <-codes:
			// The exchange must use the same redirect the code was issued for.
			return exchange(ctx, cfg, code, out)
		case <-time.After(120 * time.Second):
			cfg.RedirectURL = oldRedirect
			fmt.Fprintln(out, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	fmt.Fprintln(out, "Open this URL in your browser to authorize sending:")
	fmt.Fprintln(out, cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Paste the AUTH CODE itself or the FULL redirect URL here, then press Enter.")
	fmt.Fprint(out, "> ")

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	code, err := ParseAuthCode(sc.Text())
	if err != nil {
		return nil, err
	}
	return exchange(ctx, cfg, code, out)
}

func exchange(ctx context.Context, cfg *oauth2.Config, code string, out io.Writer) (*oauth2.Token, error) {
	fmt.Fprintln(out, "Exchanging code for token…")
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	fmt.Fprintln(out, "Authentication successful.")
	return tok, nil
}

// ParseAuthCode accepts either a bare code or a pasted redirect URL.
func ParseAuthCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty authorization code")
	}
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect URL: %w", err)
	}
	c := u.Query().Get("code")
	if c == "" {
		return "", errors.New("no 'code' parameter found in pasted URL")
	}
	return c, nil
}
