package sms

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func fullCredentials() SelectionConfig {
	return SelectionConfig{
		TelnyxAPIKey:     "tk",
		TelnyxProfileID:  "profile",
		TwilioAccountSID: "AC1",
		TwilioAuthToken:  "token",
		TwilioFrom:       "+15550001111",
		Logger:           quietLogger(),
	}
}

func TestBuildSenderAuto(t *testing.T) {
	t.Run("both configured becomes failover", func(t *testing.T) {
		sender, provider, skipped := BuildSender(fullCredentials())
		if sender == nil {
			t.Fatalf("expected a sender")
		}
		if _, ok := sender.(*FailoverSender); !ok {
			t.Fatalf("expected a failover sender, got %T", sender)
		}
		if provider != "telnyx+twilio" {
			t.Errorf("provider = %q", provider)
		}
		if len(skipped) != 0 {
			t.Errorf("nothing should be skipped: %v", skipped)
		}
	})

	t.Run("telnyx only", func(t *testing.T) {
		cfg := fullCredentials()
		cfg.TwilioAccountSID = ""
		cfg.TwilioAuthToken = ""
		sender, provider, skipped := BuildSender(cfg)
		if _, ok := sender.(*TelnyxSender); !ok {
			t.Fatalf("expected telnyx, got %T", sender)
		}
		if provider != ProviderTelnyx {
			t.Errorf("provider = %q", provider)
		}
		if len(skipped) != 1 || !strings.Contains(skipped[0], "TWILIO_ACCOUNT_SID") {
			t.Errorf("skipped = %v", skipped)
		}
	})

	t.Run("twilio fallback when telnyx missing", func(t *testing.T) {
		cfg := fullCredentials()
		cfg.TelnyxAPIKey = ""
		sender, provider, skipped := BuildSender(cfg)
		if _, ok := sender.(*TwilioSender); !ok {
			t.Fatalf("expected twilio, got %T", sender)
		}
		if provider != ProviderTwilio {
			t.Errorf("provider = %q", provider)
		}
		if len(skipped) != 1 || !strings.Contains(skipped[0], "TELNYX_API_KEY") {
			t.Errorf("skipped = %v", skipped)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		sender, provider, skipped := BuildSender(SelectionConfig{Logger: quietLogger()})
		if sender != nil || provider != "" {
			t.Fatalf("expected no sender, got %T (%q)", sender, provider)
		}
		if len(skipped) != 2 {
			t.Errorf("both providers should report why: %v", skipped)
		}
	})
}

func TestBuildSenderExplicitPreference(t *testing.T) {
	t.Run("explicit twilio ignores telnyx", func(t *testing.T) {
		cfg := fullCredentials()
		cfg.Preference = "twilio"
		sender, provider, _ := BuildSender(cfg)
		if _, ok := sender.(*TwilioSender); !ok {
			t.Fatalf("expected twilio, got %T", sender)
		}
		if provider != ProviderTwilio {
			t.Errorf("provider = %q", provider)
		}
	})

	t.Run("explicit provider without credentials fails", func(t *testing.T) {
		cfg := fullCredentials()
		cfg.Preference = "telnyx"
		cfg.TelnyxAPIKey = ""
		sender, _, skipped := BuildSender(cfg)
		if sender != nil {
			t.Fatalf("explicit preference must not fall back, got %T", sender)
		}
		if len(skipped) == 0 || !strings.Contains(skipped[0], "TELNYX_API_KEY") {
			t.Errorf("skipped = %v", skipped)
		}
	})

	t.Run("preference is case-insensitive", func(t *testing.T) {
		cfg := fullCredentials()
		cfg.Preference = " Telnyx "
		_, provider, _ := BuildSender(cfg)
		if provider != ProviderTelnyx {
			t.Errorf("provider = %q", provider)
		}
	})
}

// scriptedSender returns canned results in order.
type scriptedSender struct {
	receipts []*Receipt
	errs     []error
	calls    int
}

func (s *scriptedSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.receipts) {
		return s.receipts[i], nil
	}
	return nil, errors.New("unscripted call")
}

func TestFailoverSender(t *testing.T) {
	t.Run("primary success skips secondary", func(t *testing.T) {
		primary := &scriptedSender{receipts: []*Receipt{{ID: "p1", Provider: ProviderTelnyx}}}
		secondary := &scriptedSender{}
		f := NewFailoverSender(primary, ProviderTelnyx, secondary, ProviderTwilio, quietLogger())

		receipt, err := f.Send(context.Background(), testMessage())
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if receipt.ID != "p1" || secondary.calls != 0 {
			t.Fatalf("secondary should not have been called: %+v, %d calls", receipt, secondary.calls)
		}
	})

	t.Run("primary failure falls back", func(t *testing.T) {
		primary := &scriptedSender{errs: []error{errors.New("telnyx down")}}
		secondary := &scriptedSender{receipts: []*Receipt{{ID: "s1", Provider: ProviderTwilio}}}
		f := NewFailoverSender(primary, ProviderTelnyx, secondary, ProviderTwilio, quietLogger())

		receipt, err := f.Send(context.Background(), testMessage())
		if err != nil {
			t.Fatalf("send: %v", err)
		}
		if receipt.ID != "s1" || receipt.Provider != ProviderTwilio {
			t.Fatalf("receipt should come from the fallback: %+v", receipt)
		}
	})

	t.Run("both failing returns the fallback error", func(t *testing.T) {
		primary := &scriptedSender{errs: []error{errors.New("telnyx down")}}
		secondary := &scriptedSender{errs: []error{errors.New("twilio down")}}
		f := NewFailoverSender(primary, ProviderTelnyx, secondary, ProviderTwilio, quietLogger())

		_, err := f.Send(context.Background(), testMessage())
		if err == nil || !strings.Contains(err.Error(), "twilio down") {
			t.Fatalf("expected the fallback error, got %v", err)
		}
	})
}
