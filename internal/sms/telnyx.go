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
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

var telnyxTracer = otel.Tracer("glintt-harness/internal/sms/telnyx")

const defaultTelnyxBaseURL = "https://api.telnyx.com"

// TelnyxConfig configures the Telnyx sender. APIKey is required; the
// messaging profile ID is optional but Telnyx rejects alphanumeric
// senders without one on most accounts.
type TelnyxConfig struct {
	APIKey             string
	MessagingProfileID string
	BaseURL            string // defaults to the public Telnyx API
	Timeout            time.Duration
	HTTPClient         *http.Client
	Logger             *logging.Logger
	Metrics            *metrics.HarnessMetrics
}

// TelnyxSender posts SMS messages using Telnyx's V2 API.
type TelnyxSender struct {
	apiKey             string
	messagingProfileID string
	baseURL            string
	httpClient         *http.Client
	logger             *logging.Logger
	metrics            *metrics.HarnessMetrics
}

// NewTelnyxSender builds a sender for the Telnyx V2 API.
func NewTelnyxSender(cfg TelnyxConfig) *TelnyxSender {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultTelnyxBaseURL
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
	return &TelnyxSender{
		apiKey:             cfg.APIKey,
		messagingProfileID: cfg.MessagingProfileID,
		baseURL:            strings.TrimSuffix(baseURL, "/"),
		httpClient:         httpClient,
		logger:             logger,
		metrics:            cfg.Metrics,
	}
}

var _ Sender = (*TelnyxSender)(nil)

// Send dispatches a single SMS via Telnyx, retrying transient failures.
func (s *TelnyxSender) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if s.apiKey == "" {
		return nil, errors.New("sms: telnyx api key missing")
	}
	if msg.From == "" {
		return nil, errors.New("sms: from required")
	}
	if err := msg.validate(); err != nil {
		return nil, err
	}

	ctx, span := telnyxTracer.Start(ctx, "sms.telnyx.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("sms.to", msg.To),
		attribute.String("sms.from", msg.From),
	)

	payload := map[string]any{
		"from": msg.From,
		"to":   msg.To,
		"text": msg.Body,
	}
	if s.messagingProfileID != "" {
		payload["messaging_profile_id"] = s.messagingProfileID
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("sms: failed to marshal telnyx payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/messages", bytes.NewReader(bodyBytes))
		if err != nil {
			lastErr = err
			break
		}
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				var parsed struct {
					Data struct {
						ID         string `json:"id"`
						Status     string `json:"status"`
						ReceivedAt string `json:"received_at"`
					} `json:"data"`
				}
				if err := json.Unmarshal(body, &parsed); err != nil {
					s.metrics.ObserveSMSSend(string(ProviderTelnyx), "decode_error")
					return nil, fmt.Errorf("sms: failed to decode telnyx response: %w", err)
				}
				s.metrics.ObserveSMSSend(string(ProviderTelnyx), "ok")
				s.logger.Info("telnyx sms sent",
					"to", msg.To, "from", msg.From, "message_id", parsed.Data.ID)
				return &Receipt{
					ID:        parsed.Data.ID,
					Status:    parsed.Data.Status,
					CreatedAt: parsed.Data.ReceivedAt,
					Provider:  ProviderTelnyx,
				}, nil
			}
			var errorBody map[string]any
			if len(body) > 0 && json.Unmarshal(body, &errorBody) == nil {
				lastErr = fmt.Errorf("sms: telnyx send failed: status %d, body: %v", resp.StatusCode, errorBody)
			} else {
				lastErr = fmt.Errorf("sms: telnyx send failed: status %d", resp.StatusCode)
			}
		}

		if attempt < 3 {
			time.Sleep(time.Duration(200+rand.Intn(300)) * time.Millisecond)
		}
	}

	s.metrics.ObserveSMSSend(string(ProviderTelnyx), "error")
	if lastErr != nil {
		span.RecordError(lastErr)
		s.logger.Error("failed to send telnyx sms", "error", lastErr, "to", msg.To)
	}
	return nil, lastErr
}
