package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"

	"folio/internal/model"
)

const DefaultWeb3FormsEndpoint = "https://api.web3forms.com/submit"

// maxResponse caps how much of a provider response is kept for the log.
const maxResponse = 64 << 10

// Web3Forms posts the message as a multipart form to the Web3Forms relay.
type Web3Forms struct {
	AccessKey string
	Endpoint  string
	Client    *http.Client
}

func (w *Web3Forms) Method() Method { return MethodWeb3Forms }

func (w *Web3Forms) Configured() bool { return IsConfigured(w.AccessKey, PlaceholderWeb3FormsKey) }

func (w *Web3Forms) Attempt(ctx context.Context, req model.ReplyRequest) (Outcome, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := []struct{ k, v string }{
		{"access_key", w.AccessKey},
		{"subject", req.Subject},
		{"email", req.To},
		{"name", orDefault(req.ToName, "User")},
		{"message", req.Message},
		{"from_name", req.FromName},
		{"reply_to", req.FromEmail},
		{"from_email", req.FromEmail},
		{"to_email", req.To},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.k, f.v); err != nil {
			return Outcome{}, fmt.Errorf("encode form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return Outcome{}, fmt.Errorf("encode form: %w", err)
	}

	endpoint := w.Endpoint
	if endpoint == "" {
		endpoint = DefaultWeb3FormsEndpoint
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return Outcome{}, err
	}
	hreq.Header.Set("Content-Type", mw.FormDataContentType())
	hreq.Header.Set("Accept", "application/json")

	raw, status, err := do(httpClient(w.Client), hreq)
	out := Outcome{Response: string(raw)}
	if err != nil {
		return out, err
	}
	if status < 200 || status > 299 {
		return out, fmt.Errorf("http status %d", status)
	}
	if !gjson.ValidBytes(raw) {
		return out, errors.New("response is not JSON")
	}
	res := gjson.ParseBytes(raw)
	if !res.Get("success").Bool() {
		msg := res.Get("message").String()
		if msg == "" {
			msg = "submission rejected"
		}
		return out, errors.New(msg)
	}
	out.Message = "Email sent successfully via Web3Forms!"
	return out, nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return cleanhttp.DefaultPooledClient()
}

func do(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return raw, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
