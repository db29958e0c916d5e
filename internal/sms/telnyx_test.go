package sms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error", "text")
}

func testMessage() Message {
	return Message{From: "Augusta", To: "+351910000000", Body: "We are cooking!"}
}

func TestTelnyxSend(t *testing.T) {
	var body map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"data": {"id": "msg_123", "status": "queued", "received_at": "2025-09-24T10:00:00Z"}}`))
	}))
	defer server.Close()

	sender := NewTelnyxSender(TelnyxConfig{
		APIKey:             "KEY123",
		MessagingProfileID: "profile-1",
		BaseURL:            server.URL,
		Logger:             quietLogger(),
	})
	receipt, err := sender.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if auth != "Bearer KEY123" {
		t.Errorf("Authorization = %q", auth)
	}
	if body["from"] != "Augusta" || body["to"] != "+351910000000" || body["text"] != "We are cooking!" {
		t.Errorf("unexpected payload: %v", body)
	}
	if body["messaging_profile_id"] != "profile-1" {
		t.Errorf("messaging_profile_id = %v", body["messaging_profile_id"])
	}
	if receipt.ID != "msg_123" || receipt.Status != "queued" || receipt.Provider != ProviderTelnyx {
		t.Errorf("unexpected receipt: %+v", receipt)
	}
}

func TestTelnyxOmitsProfileWhenUnset(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"data": {"id": "msg_1", "status": "queued"}}`))
	}))
	defer server.Close()

	sender := NewTelnyxSender(TelnyxConfig{APIKey: "k", BaseURL: server.URL, Logger: quietLogger()})
	if _, err := sender.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, present := body["messaging_profile_id"]; present {
		t.Errorf("messaging_profile_id should be omitted: %v", body)
	}
}

func TestTelnyxValidation(t *testing.T) {
	sender := NewTelnyxSender(TelnyxConfig{BaseURL: "http://localhost:1", Logger: quietLogger()})
	if _, err := sender.Send(context.Background(), testMessage()); err == nil {
		t.Errorf("expected missing api key error")
	}

	sender = NewTelnyxSender(TelnyxConfig{APIKey: "k", BaseURL: "http://localhost:1", Logger: quietLogger()})
	msg := testMessage()
	msg.From = ""
	if _, err := sender.Send(context.Background(), msg); err == nil {
		t.Errorf("expected missing from error")
	}
	msg = testMessage()
	msg.Body = "   "
	if _, err := sender.Send(context.Background(), msg); err == nil {
		t.Errorf("expected blank body error")
	}
}

func TestTelnyxRetriesThenSucceeds(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"data": {"id": "msg_retry", "status": "queued"}}`))
	}))
	defer server.Close()

	sender := NewTelnyxSender(TelnyxConfig{APIKey: "k", BaseURL: server.URL, Logger: quietLogger()})
	receipt, err := sender.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if receipt.ID != "msg_retry" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestTelnyxGivesUpAfterThreeAttempts(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors": [{"detail": "invalid destination"}]}`))
	}))
	defer server.Close()

	sender := NewTelnyxSender(TelnyxConfig{APIKey: "k", BaseURL: server.URL, Logger: quietLogger()})
	_, err := sender.Send(context.Background(), testMessage())
	if err == nil || !strings.Contains(err.Error(), "status 422") {
		t.Fatalf("expected the provider error surfaced, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

// failingTransport fails every request at the transport layer.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestTelnyxTransportError(t *testing.T) {
	sender := NewTelnyxSender(TelnyxConfig{
		APIKey:     "k",
		BaseURL:    "http://telnyx.invalid",
		HTTPClient: &http.Client{Transport: failingTransport{}},
		Logger:     quietLogger(),
	})
	if _, err := sender.Send(context.Background(), testMessage()); err == nil {
		t.Fatalf("expected transport error")
	}
}
