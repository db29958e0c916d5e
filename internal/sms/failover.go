package sms

import (
	"context"
	"errors"

	"github.com/wolfman30/glintt-harness/pkg/logging"
)

// FailoverSender attempts a primary send, then falls back to a secondary
// provider on error.
type FailoverSender struct {
	primary       Sender
	secondary     Sender
	primaryName   Provider
	secondaryName Provider
	logger        *logging.Logger
}

// NewFailoverSender builds a failover sender with named providers.
func NewFailoverSender(primary Sender, primaryName Provider, secondary Sender, secondaryName Provider, logger *logging.Logger) *FailoverSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverSender{
		primary:       primary,
		secondary:     secondary,
		primaryName:   primaryName,
		secondaryName: secondaryName,
		logger:        logger,
	}
}

var _ Sender = (*FailoverSender)(nil)

// Send tries the primary provider first, then the secondary on failure.
// The receipt always comes from the provider that actually accepted the
// message.
func (f *FailoverSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if f == nil || f.primary == nil {
		return nil, errors.New("sms: failover primary sender not configured")
	}

	receipt, err := f.primary.Send(ctx, msg)
	if err == nil {
		return receipt, nil
	}
	if f.secondary == nil {
		return nil, err
	}

	f.logger.Warn("primary sms send failed; attempting fallback",
		"provider", f.primaryName,
		"fallback", f.secondaryName,
		"error", err,
		"to", msg.To,
	)
	receipt, fallbackErr := f.secondary.Send(ctx, msg)
	if fallbackErr != nil {
		f.logger.Error("fallback sms send failed",
			"provider", f.secondaryName,
			"error", fallbackErr,
			"to", msg.To,
		)
		return nil, fallbackErr
	}
	return receipt, nil
}
