package config

import (
	"os"
	"strings"
	"time"
)

// Config holds harness configuration
type Config struct {
	Env       string
	LogLevel  string
	LogFormat string

	// Glintt API access
	GlinttBaseURL      string
	GlinttClientID     string
	GlinttClientSecret string
	GlinttTenantID     string
	GlinttFacilityID   string
	GlinttUsername     string
	GlinttCallingApp   string
	GlinttTimeout      time.Duration

	// Glintt test data. These identify records in the Glintt TEST
	// environment, not production data.
	TestPatientID           string
	TestServiceCode         string
	TestMedicalActCode      string
	TestDoctorCode          string
	TestFinancialEntityCode string
	TestStartDate           string
	TestEndDate             string
	TestEpisodeID           string

	// SMS providers
	SMSProvider              string
	TelnyxAPIKey             string
	TelnyxMessagingProfileID string
	TwilioAccountSID         string
	TwilioAuthToken          string
	TwilioMessagingService   string
	TwilioFromNumber         string
	TestPhoneNumber          string
	TestSMSFrom              string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		GlinttBaseURL:      getEnv("GLINTT_BASE_URL", ""),
		GlinttClientID:     getEnv("GLINTT_CLIENT_ID", ""),
		GlinttClientSecret: getEnv("GLINTT_CLIENT_SECRET", ""),
		GlinttTenantID:     getEnv("GLINTT_TENANT_ID", ""),
		GlinttFacilityID:   getEnv("GLINTT_FACILITY_ID", ""),
		GlinttUsername:     getEnv("GLINTT_USERNAME", ""),
		GlinttCallingApp:   getEnv("GLINTT_CALLING_APP", "AUGUSTALABS"),
		GlinttTimeout:      getEnvAsDuration("GLINTT_TIMEOUT", 30*time.Second),

		TestPatientID:           getEnv("GLINTT_TEST_PATIENT_ID", "150847"),
		TestServiceCode:         getEnv("GLINTT_TEST_SERVICE_CODE", "36"),
		TestMedicalActCode:      getEnv("GLINTT_TEST_MEDICAL_ACT_CODE", "1"),
		TestDoctorCode:          getEnv("GLINTT_TEST_DOCTOR_CODE", ""),
		TestFinancialEntityCode: getEnv("GLINTT_TEST_FINANCIAL_ENTITY_CODE", "998"),
		TestStartDate:           getEnv("GLINTT_TEST_START_DATE", ""),
		TestEndDate:             getEnv("GLINTT_TEST_END_DATE", ""),
		TestEpisodeID:           getEnv("GLINTT_TEST_EPISODE_ID", ""),

		SMSProvider:              strings.ToLower(strings.TrimSpace(getEnv("SMS_PROVIDER", "auto"))),
		TelnyxAPIKey:             getEnv("TELNYX_API_KEY", ""),
		TelnyxMessagingProfileID: getEnv("TELNYX_MESSAGING_PROFILE_ID", ""),
		TwilioAccountSID:         getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:          getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioMessagingService:   getEnv("TWILIO_MESSAGING_SERVICE_SID", ""),
		TwilioFromNumber:         getEnv("TWILIO_FROM_NUMBER", ""),
		TestPhoneNumber:          getEnv("TEST_PHONE_NUMBER", ""),
		TestSMSFrom:              getEnv("TEST_SMS_FROM", "Augusta"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
