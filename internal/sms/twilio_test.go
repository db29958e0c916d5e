package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func twilioConfig(serverURL string) TwilioConfig {
	return TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+15550001111",
		BaseURL:    serverURL,
		Logger:     quietLogger(),
	}
}

func TestTwilioSend(t *testing.T) {
	var form url.Values
	var user, pass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		user, pass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		form = r.PostForm
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid": "SM123", "status": "queued", "date_created": "Wed, 24 Sep 2025 10:00:00 +0000"}`))
	}))
	defer server.Close()

	sender := NewTwilioSender(twilioConfig(server.URL))
	receipt, err := sender.Send(context.Background(), Message{To: "+351910000000", Body: "We are cooking!"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if user != "AC123" || pass != "token" {
		t.Errorf("basic auth = %s:%s", user, pass)
	}
	if form.Get("To") != "+351910000000" || form.Get("Body") != "We are cooking!" {
		t.Errorf("unexpected form: %v", form)
	}
	if form.Get("From") != "+15550001111" {
		t.Errorf("From = %q", form.Get("From"))
	}
	if receipt.ID != "SM123" || receipt.Status != "queued" || receipt.Provider != ProviderTwilio {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
	if receipt.CreatedAt != "Wed, 24 Sep 2025 10:00:00 +0000" {
		t.Errorf("CreatedAt = %q", receipt.CreatedAt)
	}
}

func TestTwilioPrefersMessagingService(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		w.Write([]byte(`{"sid": "SM1", "status": "accepted"}`))
	}))
	defer server.Close()

	cfg := twilioConfig(server.URL)
	cfg.MessagingServiceSID = "MG123"
	sender := NewTwilioSender(cfg)
	if _, err := sender.Send(context.Background(), Message{From: "Augusta", To: "+351910000000", Body: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	if form.Get("MessagingServiceSid") != "MG123" {
		t.Errorf("MessagingServiceSid = %q", form.Get("MessagingServiceSid"))
	}
	if form.Get("From") != "" {
		t.Errorf("From should be omitted when a messaging service is set, got %q", form.Get("From"))
	}
}

func TestTwilioErrorDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": 21211, "message": "Invalid 'To' phone number", "status": 400}`))
	}))
	defer server.Close()

	sender := NewTwilioSender(twilioConfig(server.URL))
	_, err := sender.Send(context.Background(), Message{To: "garbage", Body: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "21211") || !strings.Contains(err.Error(), "Invalid 'To' phone number") {
		t.Fatalf("expected decoded code and message, got %v", err)
	}
}

func TestTwilioDoesNotRetryClientErrors(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": 21211, "message": "Invalid 'To' phone number", "status": 400}`))
	}))
	defer server.Close()

	sender := NewTwilioSender(twilioConfig(server.URL))
	if _, err := sender.Send(context.Background(), Message{To: "garbage", Body: "hi"}); err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("4xx should not be retried, got %d attempts", attempts)
	}
}

func TestTwilioRetriesServerErrors(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"sid": "SM2", "status": "queued"}`))
	}))
	defer server.Close()

	sender := NewTwilioSender(twilioConfig(server.URL))
	receipt, err := sender.Send(context.Background(), Message{To: "+351910000000", Body: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if attempts != 2 || receipt.ID != "SM2" {
		t.Fatalf("expected retry then success, got %d attempts, %+v", attempts, receipt)
	}
}

func TestTwilioValidation(t *testing.T) {
	sender := NewTwilioSender(TwilioConfig{BaseURL: "http://localhost:1", Logger: quietLogger()})
	if _, err := sender.Send(context.Background(), Message{To: "+1", Body: "hi"}); err == nil {
		t.Errorf("expected missing credentials error")
	}

	// No From anywhere and no messaging service: nothing to send as.
	sender = NewTwilioSender(TwilioConfig{AccountSID: "AC1", AuthToken: "t", BaseURL: "http://localhost:1", Logger: quietLogger()})
	if _, err := sender.Send(context.Background(), Message{To: "+1", Body: "hi"}); err == nil {
		t.Errorf("expected missing sender error")
	}
}

func TestFormatTwilioError(t *testing.T) {
	if got := formatTwilioError(500, nil); got != "status 500" {
		t.Errorf("empty body: %q", got)
	}
	if got := formatTwilioError(400, []byte(`{"message": "nope"}`)); got != "status 400: nope" {
		t.Errorf("message only: %q", got)
	}
	if got := formatTwilioError(502, []byte("<html>bad gateway</html>")); !strings.Contains(got, "bad gateway") {
		t.Errorf("non-JSON body: %q", got)
	}
}
