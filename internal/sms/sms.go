// Package sms sends test messages through Telnyx or Twilio and reports
// what the provider accepted. Both senders retry transient failures a
// few times; the harness wants a definitive accepted/rejected answer,
// not a queue.
package sms

import (
	"context"
	"errors"
	"strings"
)

// Provider identifies an SMS backend.
type Provider string

const (
	// ProviderAuto tries Telnyx first, then Twilio.
	ProviderAuto Provider = "auto"
	// ProviderTelnyx forces the Telnyx sender when credentials exist.
	ProviderTelnyx Provider = "telnyx"
	// ProviderTwilio forces the Twilio sender when credentials exist.
	ProviderTwilio Provider = "twilio"
)

// Message is one outbound SMS. From may be an alphanumeric sender ID on
// providers that support it.
type Message struct {
	From string
	To   string
	Body string
}

func (m Message) validate() error {
	if m.To == "" {
		return errors.New("sms: to required")
	}
	if strings.TrimSpace(m.Body) == "" {
		return errors.New("sms: body required")
	}
	return nil
}

// Receipt is a provider's acknowledgement of one accepted message.
type Receipt struct {
	ID string
	// Status is the provider's initial delivery status, such as "queued".
	Status string
	// CreatedAt is the provider's timestamp, verbatim; formats differ
	// between providers and the harness only reports it.
	CreatedAt string
	Provider  Provider
}

// Sender dispatches a single message and returns the provider receipt.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}
