package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"folio/internal/gmail"
	"folio/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

func sampleRequest() model.ReplyRequest {
	return model.ReplyRequest{
		To:        "ada@example.com",
		ToName:    "Ada",
		FromName:  "Site Owner",
		FromEmail: "owner@example.com",
		Subject:   "Re: Hello",
		Message:   "Thanks for reaching out!",
	}
}

type fakeChannel struct {
	method     Method
	configured bool
	err        error
	calls      int
}

func (f *fakeChannel) Method() Method   { return f.method }
func (f *fakeChannel) Configured() bool { return f.configured }
func (f *fakeChannel) Attempt(context.Context, model.ReplyRequest) (Outcome, error) {
	f.calls++
	if f.err != nil {
		return Outcome{}, f.err
	}
	return Outcome{Message: "ok via " + string(f.method)}, nil
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, IsConfigured("", PlaceholderWeb3FormsKey))
	assert.False(t, IsConfigured("   ", PlaceholderWeb3FormsKey))
	assert.False(t, IsConfigured(PlaceholderWeb3FormsKey, PlaceholderWeb3FormsKey))
	assert.True(t, IsConfigured("abc-123", PlaceholderWeb3FormsKey))
}

func TestChain_DemoShortCircuits(t *testing.T) {
	ch := &fakeChannel{method: MethodWeb3Forms, configured: true}
	c := NewChain([]Channel{ch}, WithDemo(true, time.Millisecond))

	res := c.Send(context.Background(), sampleRequest())

	assert.True(t, res.Success)
	assert.Equal(t, MethodDemo, res.Method)
	assert.Zero(t, ch.calls)
	assert.Equal(t, []Method{MethodDemo}, c.Methods())
}

func TestChain_DemoHonorsContext(t *testing.T) {
	c := NewChain(nil, WithDemo(true, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Send(ctx, sampleRequest())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestChain_SkipsUnconfigured(t *testing.T) {
	w3 := &fakeChannel{method: MethodWeb3Forms}
	ejs := &fakeChannel{method: MethodEmailJS, configured: true}
	client := &fakeChannel{method: MethodClient, configured: true}
	c := NewChain([]Channel{w3, ejs, client})

	res := c.Send(context.Background(), sampleRequest())

	require.True(t, res.Success)
	assert.Equal(t, MethodEmailJS, res.Method)
	assert.Zero(t, w3.calls)
	assert.Zero(t, client.calls)
	assert.True(t, res.Delivered())
	assert.Equal(t, []Method{MethodEmailJS, MethodClient}, c.Methods())
}

func TestChain_FallsThroughToClient(t *testing.T) {
	w3 := &fakeChannel{method: MethodWeb3Forms, configured: true, err: errors.New("boom")}
	ejs := &fakeChannel{method: MethodEmailJS, configured: true, err: errors.New("bang")}
	var opened string
	c := NewChain([]Channel{w3, ejs, &MailClient{Launcher: LauncherFunc(func(u string) error {
		opened = u
		return nil
	})}})

	res := c.Send(context.Background(), sampleRequest())

	require.True(t, res.Success)
	assert.Equal(t, MethodClient, res.Method)
	assert.False(t, res.Delivered())
	assert.Equal(t, opened, res.Link)
	assert.True(t, strings.HasPrefix(opened, "mailto:ada@example.com?subject=Re%3A%20Hello&body="))
	assert.Equal(t, 1, w3.calls)
	assert.Equal(t, 1, ejs.calls)
}

func TestChain_AllFail(t *testing.T) {
	w3 := &fakeChannel{method: MethodWeb3Forms, configured: true, err: errors.New("boom")}
	c := NewChain([]Channel{w3, &MailClient{Launcher: LauncherFunc(func(string) error {
		return errors.New("no handler")
	})}})

	res := c.Send(context.Background(), sampleRequest())

	assert.False(t, res.Success)
	assert.Equal(t, "all delivery methods failed", res.Error)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrAllFailed)
	assert.Contains(t, res.Err.Error(), "web3forms: boom")
	assert.Contains(t, res.Err.Error(), "client: no handler")
}

func TestChain_NothingConfigured(t *testing.T) {
	c := NewChain([]Channel{&fakeChannel{method: MethodWeb3Forms}})
	res := c.Send(context.Background(), sampleRequest())
	assert.False(t, res.Success)
	assert.Equal(t, ErrAllFailed.Error(), res.Error)
}

func TestWeb3Forms_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "key-1", r.FormValue("access_key"))
		assert.Equal(t, "ada@example.com", r.FormValue("to_email"))
		assert.Equal(t, "owner@example.com", r.FormValue("reply_to"))
		assert.Equal(t, "Re: Hello", r.FormValue("subject"))
		_, _ = io.WriteString(w, `{"success":true,"message":"Email sent"}`)
	}))
	defer srv.Close()

	w3 := &Web3Forms{AccessKey: "key-1", Endpoint: srv.URL, Client: srv.Client()}
	require.True(t, w3.Configured())

	out, err := w3.Attempt(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, out.Response, `"success":true`)
}

func TestWeb3Forms_FailureFlagFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Invalid access key"}`)
	}))
	defer srv.Close()

	var emailjsHits atomic.Int32
	ejsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		emailjsHits.Add(1)
		_, _ = io.WriteString(w, "OK")
	}))
	defer ejsSrv.Close()

	c := NewChain([]Channel{
		&Web3Forms{AccessKey: "key-1", Endpoint: srv.URL, Client: srv.Client()},
		&EmailJS{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub", Endpoint: ejsSrv.URL, Client: ejsSrv.Client()},
		&MailClient{},
	})
	res := c.Send(context.Background(), sampleRequest())

	require.True(t, res.Success)
	assert.Equal(t, MethodEmailJS, res.Method)
	assert.EqualValues(t, 1, emailjsHits.Load())
}

func TestWeb3Forms_DefaultRecipientName(t *testing.T) {
	var name string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		name = r.FormValue("name")
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	req := sampleRequest()
	req.ToName = ""
	w3 := &Web3Forms{AccessKey: "key-1", Endpoint: srv.URL, Client: srv.Client()}
	_, err := w3.Attempt(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "User", name)
}

func TestWeb3Forms_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	w3 := &Web3Forms{AccessKey: "key-1", Endpoint: srv.URL, Client: srv.Client()}
	_, err := w3.Attempt(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "http status 500")
}

func TestWeb3Forms_Placeholder(t *testing.T) {
	assert.False(t, (&Web3Forms{AccessKey: PlaceholderWeb3FormsKey}).Configured())
}

func TestEmailJS_Payload(t *testing.T) {
	var got emailJSPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, "OK")
	}))
	defer srv.Close()

	ejs := &EmailJS{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub", Endpoint: srv.URL, Client: srv.Client()}
	req := sampleRequest()
	req.ToName = ""
	_, err := ejs.Attempt(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "svc", got.ServiceID)
	assert.Equal(t, "tpl", got.TemplateID)
	assert.Equal(t, "pub", got.UserID)
	assert.Equal(t, "User", got.TemplateParams["to_name"])
	assert.Equal(t, "owner@example.com", got.TemplateParams["reply_to"])
	assert.Equal(t, "Thanks for reaching out!", got.TemplateParams["message"])
}

func TestEmailJS_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "The Public Key is invalid")
	}))
	defer srv.Close()

	ejs := &EmailJS{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub", Endpoint: srv.URL, Client: srv.Client()}
	_, err := ejs.Attempt(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "The Public Key is invalid")
}

func TestEmailJS_ConfiguredNeedsAllThree(t *testing.T) {
	assert.False(t, (&EmailJS{ServiceID: "svc", TemplateID: "tpl", PublicKey: PlaceholderEmailJSPublicKey}).Configured())
	assert.False(t, (&EmailJS{ServiceID: "svc", PublicKey: "pub"}).Configured())
	assert.True(t, (&EmailJS{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub"}).Configured())
}

type fakeGmail struct {
	got gmail.Message
	err error
}

func (f *fakeGmail) Send(_ context.Context, m gmail.Message) (string, error) {
	f.got = m
	return "msg-1", f.err
}

func TestGmail_Channel(t *testing.T) {
	assert.False(t, (&Gmail{}).Configured())

	fg := &fakeGmail{}
	g := &Gmail{Sender: fg}
	require.True(t, g.Configured())
	out, err := g.Attempt(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "msg-1", out.Response)
	assert.Equal(t, "ada@example.com", fg.got.To)
	assert.Equal(t, "owner@example.com", fg.got.ReplyTo)
}

func TestMailtoLink_Escaping(t *testing.T) {
	link := MailtoLink("ada+x@example.com", "Re: Q&A (part 1)", "a b\nc=d")
	assert.Equal(t, "mailto:ada%2Bx@example.com?subject=Re%3A%20Q%26A%20(part%201)&body=a%20b%0Ac%3Dd", link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "Re: Q&A (part 1)", q.Get("subject"))
	assert.Equal(t, "a b\nc=d", q.Get("body"))
}

func TestMailClient_ServerSideReturnsLink(t *testing.T) {
	out, err := (&MailClient{}).Attempt(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.True(t, out.Partial)
	assert.True(t, strings.HasPrefix(out.Link, "mailto:"))
}

func TestChain_AttemptTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewChain([]Channel{
		&EmailJS{ServiceID: "svc", TemplateID: "tpl", PublicKey: "pub", Endpoint: srv.URL, Client: srv.Client()},
		&MailClient{},
	}, WithAttemptTimeout(50*time.Millisecond))

	res := c.Send(context.Background(), sampleRequest())
	require.True(t, res.Success)
	assert.Equal(t, MethodClient, res.Method)
}
