package gmail

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"
)

func TestBuildMessage_PlainText(t *testing.T) {
	raw, err := BuildMessage(Message{
		FromName: "Site Owner",
		From:     "owner@example.com",
		ToName:   "Ada",
		To:       "ada@example.com",
		Subject:  "Re: Hello",
		Text:     "line one\nline two",
		Date:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := msg.Header.Get("To"); got != `"Ada" <ada@example.com>` {
		t.Fatalf("To header got %q", got)
	}
	if got := msg.Header.Get("Subject"); got != "Re: Hello" {
		t.Fatalf("Subject header got %q", got)
	}
	body, _ := io.ReadAll(msg.Body)
	if string(body) != "line one\r\nline two" {
		t.Fatalf("body got %q", body)
	}
}

func TestBuildMessage_HTMLAlternative(t *testing.T) {
	raw, err := BuildMessage(Message{
		To:      "ada@example.com",
		Subject: "Grüße",
		HTML:    "<p>Hello &amp; welcome</p><p>Bye</p>",
	})
	if err != nil {
		t.Fatalf("BuildMessage: %v", err)
	}
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	dec := new(mime.WordDecoder)
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil || subject != "Grüße" {
		t.Fatalf("subject got %q (%v)", subject, err)
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/alternative" {
		t.Fatalf("content type got %q (%v)", mediaType, err)
	}
	mr := multipart.NewReader(msg.Body, params["boundary"])

	plain, err := mr.NextPart()
	if err != nil {
		t.Fatalf("first part: %v", err)
	}
	text, _ := io.ReadAll(plain)
	if !strings.Contains(string(text), "Hello & welcome") || strings.Contains(string(text), "<p>") {
		t.Fatalf("derived text got %q", text)
	}

	html, err := mr.NextPart()
	if err != nil {
		t.Fatalf("second part: %v", err)
	}
	if !strings.HasPrefix(html.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("second part type %q", html.Header.Get("Content-Type"))
	}
}

func TestBuildMessage_RequiresRecipient(t *testing.T) {
	if _, err := BuildMessage(Message{Subject: "x"}); err == nil {
		t.Fatal("expected error without recipient")
	}
}

func TestEncodeRaw_Unpadded(t *testing.T) {
	enc := EncodeRaw([]byte("ab?"))
	if strings.ContainsAny(enc, "=+/") {
		t.Fatalf("not raw url encoding: %q", enc)
	}
	dec, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil || string(dec) != "ab?" {
		t.Fatalf("round trip got %q (%v)", dec, err)
	}
}

func TestParseAuthCode(t *testing.T) {
	cases := map[string]string{
		"  4/abc  ": "4/abc",
		"http://127.0.0.1:5555/?state=state-token&code=4%2Fxyz": "4/xyz",
	}
	for in, want := range cases {
		got, err := ParseAuthCode(in)
		if err != nil || got != want {
			t.Fatalf("ParseAuthCode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseAuthCode("https://example.com/?state=x"); err == nil {
		t.Fatal("expected error for URL without code")
	}
	if _, err := ParseAuthCode("   "); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestOpenURL_RejectsOtherSchemes(t *testing.T) {
	if err := OpenURL("file:///etc/passwd"); err == nil {
		t.Fatal("expected refusal for file URL")
	}
}

func TestStripHTMLTags(t *testing.T) {
	got := stripHTMLTags("<div>a</div><div>b<br>c</div>\n\n\n\n<p>&lt;d&gt;</p>")
	want := "a\nb\nc\n\n<d>"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
