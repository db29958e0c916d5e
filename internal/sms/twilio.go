package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

var twilioTracer = otel.Tracer("glintt-harness/internal/sms/twilio")

const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig configures the Twilio sender. AccountSID and AuthToken
// are required. When MessagingServiceSID is set it takes precedence over
// From, letting Twilio pick the sending number.
type TwilioConfig struct {
	AccountSID          string
	AuthToken           string
	From                string
	MessagingServiceSID string
	BaseURL             string // defaults to the public Twilio API
	Timeout             time.Duration
	HTTPClient          *http.Client
	Logger              *logging.Logger
	Metrics             *metrics.HarnessMetrics
}

// TwilioSender posts SMS messages using Twilio's REST API.
type TwilioSender struct {
	accountSID          string
	authToken           string
	from                string
	messagingServiceSID string
	baseURL             string
	httpClient          *http.Client
	logger              *logging.Logger
	metrics             *metrics.HarnessMetrics
}

// NewTwilioSender builds a sender with sane defaults.
func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &TwilioSender{
		accountSID:          cfg.AccountSID,
		authToken:           cfg.AuthToken,
		from:                cfg.From,
		messagingServiceSID: cfg.MessagingServiceSID,
		baseURL:             strings.TrimSuffix(baseURL, "/"),
		httpClient:          httpClient,
		logger:              logger,
		metrics:             cfg.Metrics,
	}
}

var _ Sender = (*TwilioSender)(nil)

// Send dispatches a single SMS, retrying transient failures. Non-429
// client errors are not retried; Twilio will keep rejecting them.
func (s *TwilioSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if s.accountSID == "" || s.authToken == "" {
		return nil, errors.New("sms: twilio credentials missing")
	}
	if msg.From == "" {
		msg.From = s.from
	}
	if msg.From == "" && s.messagingServiceSID == "" {
		return nil, errors.New("sms: from or messaging service required")
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}

	ctx, span := twilioTracer.Start(ctx, "sms.twilio.send")
	defer span.End()
	span.SetAttributes(attribute.String("sms.to", msg.To))

	payload := url.Values{}
	payload.Set("To", msg.To)
	payload.Set("Body", msg.Body)
	if s.messagingServiceSID != "" {
		payload.Set("MessagingServiceSid", s.messagingServiceSID)
	} else {
		payload.Set("From", msg.From)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload.Encode()))
		if err != nil {
			lastErr = err
			break
		}
		req.SetBasicAuth(s.accountSID, s.authToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					SID         string `json:"sid"`
					Status      string `json:"status"`
					DateCreated string `json:"date_created"`
				}
				if err := json.Unmarshal(body, &parsed); err != nil {
					s.metrics.ObserveSMSSend(string(ProviderTwilio), "decode_error")
					return nil, fmt.Errorf("sms: failed to decode twilio response: %w", err)
				}
				s.metrics.ObserveSMSSend(string(ProviderTwilio), "ok")
				s.logger.Info("twilio sms sent", "to", msg.To, "sid", parsed.SID)
				return &Receipt{
					ID:        parsed.SID,
					Status:    parsed.Status,
					CreatedAt: parsed.DateCreated,
					Provider:  ProviderTwilio,
				}, nil
			}
			lastErr = fmt.Errorf("sms: twilio send failed: %s", formatTwilioError(resp.StatusCode, body))
			// Don't retry non-rate-limit 4xx errors.
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != 429 {
				break
			}
		}

		if attempt < 3 {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	s.metrics.ObserveSMSSend(string(ProviderTwilio), "error")
	if lastErr != nil {
		span.RecordError(lastErr)
		s.logger.Error("failed to send twilio sms", "error", lastErr, "to", msg.To)
	}
	return nil, lastErr
}

type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatTwilioError(status int, body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return fmt.Sprintf("status %d", status)
	}
	var parsed twilioAPIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, string(body))
}
