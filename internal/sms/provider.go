package sms

import (
	"fmt"
	"strings"

	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

// SelectionConfig captures the credentials and preference used to choose
// an SMS sender.
type SelectionConfig struct {
	Preference          string
	TelnyxAPIKey        string
	TelnyxProfileID     string
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioFrom          string
	TwilioMessagingSSID string
	Logger              *logging.Logger
	Metrics             *metrics.HarnessMetrics
}

// BuildSender instantiates a Sender based on the preferred provider. It
// returns the sender (nil when nothing is usable), the provider that was
// selected, and a "provider: reason" line for every provider that could
// not be built, whether or not the selection succeeded; the test command
// prints those so a half-configured .env is obvious.
//
// Preference "auto" picks Telnyx when configured, Twilio otherwise, and
// both together become a failover pair.
func BuildSender(cfg SelectionConfig) (Sender, Provider, []string) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	preference := Provider(strings.ToLower(strings.TrimSpace(cfg.Preference)))
	if preference == "" {
		preference = ProviderAuto
	}

	var skipped []string
	var telnyx, twilio Sender

	if cfg.TelnyxAPIKey != "" {
		telnyx = NewTelnyxSender(TelnyxConfig{
			APIKey:             cfg.TelnyxAPIKey,
			MessagingProfileID: cfg.TelnyxProfileID,
			Logger:             logger,
			Metrics:            cfg.Metrics,
		})
	} else {
		skipped = append(skipped, fmt.Sprintf("%s: TELNYX_API_KEY missing", ProviderTelnyx))
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twilio = NewTwilioSender(TwilioConfig{
			AccountSID:          cfg.TwilioAccountSID,
			AuthToken:           cfg.TwilioAuthToken,
			From:                cfg.TwilioFrom,
			MessagingServiceSID: cfg.TwilioMessagingSSID,
			Logger:              logger,
			Metrics:             cfg.Metrics,
		})
	} else {
		var reasons []string
		if cfg.TwilioAccountSID == "" {
			reasons = append(reasons, "TWILIO_ACCOUNT_SID missing")
		}
		if cfg.TwilioAuthToken == "" {
			reasons = append(reasons, "TWILIO_AUTH_TOKEN missing")
		}
		skipped = append(skipped, fmt.Sprintf("%s: %s", ProviderTwilio, strings.Join(reasons, ", ")))
	}

	switch preference {
	case ProviderTelnyx:
		if telnyx != nil {
			return telnyx, ProviderTelnyx, skipped
		}
		return nil, "", skipped
	case ProviderTwilio:
		if twilio != nil {
			return twilio, ProviderTwilio, skipped
		}
		return nil, "", skipped
	}

	if telnyx != nil && twilio != nil {
		combined := Provider(string(ProviderTelnyx) + "+" + string(ProviderTwilio))
		return NewFailoverSender(telnyx, ProviderTelnyx, twilio, ProviderTwilio, logger), combined, skipped
	}
	if telnyx != nil {
		return telnyx, ProviderTelnyx, skipped
	}
	if twilio != nil {
		return twilio, ProviderTwilio, skipped
	}
	if len(skipped) == 0 {
		skipped = append(skipped, "no SMS providers configured")
	}
	return nil, "", skipped
}
