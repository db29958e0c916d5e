// Package glintt provides a client for the Glintt HMS scheduling API
// used by the test harness: token authentication, slot search, appointment
// scheduling and rescheduling, appointment verification, and the patient
// and human-resources probe endpoints.
package glintt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

var tracer = otel.Tracer("glintt-harness/internal/glintt")

// API gateway paths, relative to the configured base URL.
const (
	tokenPath         = "/Glintt.GPlatform.APIGateway.CoreWebAPI/token"
	searchSlotsPath   = "/Glintt.HMS.CoreWebAPI/api/hms/appointment/ExternalSearchSlots"
	schedulePath      = "/Glintt.HMS.CoreWebAPI/api/hms/appointment/ExternalScheduleAppointment"
	appointmentsPath  = "/Hms.OutPatient.Api/hms/outpatient/Appointment"
	createPatientPath = "/Glintt.HMS.CoreWebAPI.ExternalAccess/api/hms/Patient/CreateUpdatePatient"
	patientSearchPath = "/Hms.PatientAdministration.Api/hms/patientadministration/Patient/search"
	staffSearchPath   = "/Glintt.HMS.CoreWebAPI/api/hms/humanresources/search"
	staffDetailPath   = "/Glintt.HMS.CoreWebAPI/api/hms/humanresources/search-detail"
)

// Wire constants required by the Glintt gateway.
const (
	originCode      = "MALO_ADMIN"
	patientTypeMC   = "MC"
	validateModule  = "ATDWEB_VALIDATEAPPOINTMENT"
	episodeConsulta = "Consultas"
	episodeFicha    = "Ficha-ID"
)

// ErrNotAuthenticated is returned by operations that require a bearer token
// before Authenticate has succeeded.
var ErrNotAuthenticated = errors.New("glintt: not authenticated, call Authenticate first")

// Config holds Glintt client configuration. BaseURL through Username are
// required; the rest have defaults.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TenantID     string
	FacilityID   string
	Username     string

	// CallingApp is the query parameter sent to CreateUpdatePatient.
	// Defaults to "AUGUSTALABS".
	CallingApp string

	Timeout    time.Duration // defaults to 30s
	HTTPClient *http.Client  // optional override, primarily for tests
	Logger     *logging.Logger
	Metrics    *metrics.HarnessMetrics
}

// Client talks to the Glintt HMS API gateway. It is not safe for concurrent
// use; the harness drives it strictly sequentially.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	tenantID     string
	facilityID   string
	username     string
	callingApp   string

	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.HarnessMetrics

	token string
}

// New validates cfg and returns a client. Missing required fields are
// reported by their environment variable names so the error tells the
// operator exactly what to put in .env.
func New(cfg Config) (*Client, error) {
	required := []struct {
		env   string
		value string
	}{
		{"GLINTT_BASE_URL", cfg.BaseURL},
		{"GLINTT_CLIENT_ID", cfg.ClientID},
		{"GLINTT_CLIENT_SECRET", cfg.ClientSecret},
		{"GLINTT_TENANT_ID", cfg.TenantID},
		{"GLINTT_FACILITY_ID", cfg.FacilityID},
		{"GLINTT_USERNAME", cfg.Username},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.env)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("glintt: missing required configuration: %s", strings.Join(missing, ", "))
	}

	callingApp := cfg.CallingApp
	if callingApp == "" {
		callingApp = "AUGUSTALABS"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tenantID:     cfg.TenantID,
		facilityID:   cfg.FacilityID,
		username:     cfg.Username,
		callingApp:   callingApp,
		httpClient:   httpClient,
		logger:       logger,
		metrics:      cfg.Metrics,
	}, nil
}

// Authenticated reports whether a bearer token has been obtained.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// Authenticate obtains a bearer token from the gateway token endpoint.
// The token is opaque to the harness: no expiry tracking, no refresh.
func (c *Client) Authenticate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "glintt.authenticate")
	defer span.End()

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "password")
	form.Set("TenantID", c.tenantID)
	form.Set("FacilityID", c.facilityID)
	form.Set("USERNAME", c.username)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("glintt: failed to create token request: %w", err)
	}
	c.setBaseHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("token", "error", start)
		span.RecordError(err)
		return fmt.Errorf("glintt: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe("token", fmt.Sprintf("%d", resp.StatusCode), start)
		err := fmt.Errorf("glintt: authentication failed (HTTP %d)", resp.StatusCode)
		span.RecordError(err)
		return err
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		c.observe("token", "decode_error", start)
		return fmt.Errorf("glintt: failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		c.observe("token", "empty_token", start)
		return errors.New("glintt: token response missing access_token")
	}

	c.token = tokenResp.AccessToken
	c.observe("token", "ok", start)
	// Never log the full token.
	c.logger.Info("authenticated with glintt", "token_prefix", tokenPreview(c.token))
	span.SetAttributes(attribute.Bool("glintt.authenticated", true))
	return nil
}

// apiError is a non-2xx gateway response. The body is truncated for
// display but kept verbatim for callers that want to inspect it.
type apiError struct {
	StatusCode int
	Body       []byte
}

func (e *apiError) Error() string {
	detail := errorDetail(e.Body)
	if detail == "" {
		return fmt.Sprintf("glintt: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("glintt: HTTP %d: %s", e.StatusCode, detail)
}

// errorDetail renders an error body for display: compact JSON when the
// body parses, otherwise the first 200 bytes of text.
func errorDetail(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err == nil {
		if compact, err := json.Marshal(parsed); err == nil {
			return string(compact)
		}
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return string(trimmed)
}

// invoke performs a single authenticated request and returns the raw
// response body. The harness makes exactly one attempt per call: a test
// run should surface flakiness, not mask it with retries.
func (c *Client) invoke(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	if c.token == "" {
		return nil, ErrNotAuthenticated
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("glintt: failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("glintt: failed to create %s request: %w", op, err)
	}
	c.setBaseHeaders(req)
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, "error", start)
		return nil, fmt.Errorf("glintt: %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(op, "read_error", start)
		return nil, fmt.Errorf("glintt: failed to read %s response: %w", op, err)
	}

	c.observe(op, fmt.Sprintf("%d", resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: data}
	}
	return data, nil
}

// setBaseHeaders applies the headers the gateway expects on every request.
// Accept-Encoding is left to the transport so responses are transparently
// decompressed.
func (c *Client) setBaseHeaders(req *http.Request) {
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")
}

func (c *Client) observe(op, status string, start time.Time) {
	c.metrics.ObserveAPIRequest(op, status, time.Since(start).Seconds())
}

// tokenPreview returns at most the first 20 characters of a token.
func tokenPreview(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}

// truthy mirrors the gateway's loose error envelopes: a field counts as an
// error signal only when it is present and non-empty.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case json.Number:
		return t.String() != "" && t.String() != "0"
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// stringField reads m[key] as a string, tolerating numeric JSON values.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%.0f", v), ".")
	default:
		return ""
	}
}

// decodeObject decodes a JSON object preserving number literals.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
