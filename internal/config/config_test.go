package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GLINTT_BASE_URL", "")
	t.Setenv("GLINTT_TEST_PATIENT_ID", "")
	t.Setenv("GLINTT_TEST_SERVICE_CODE", "")
	t.Setenv("GLINTT_TEST_MEDICAL_ACT_CODE", "")
	t.Setenv("GLINTT_TEST_FINANCIAL_ENTITY_CODE", "")
	t.Setenv("GLINTT_CALLING_APP", "")
	t.Setenv("SMS_PROVIDER", "")
	t.Setenv("TEST_SMS_FROM", "")
	cfg := Load()
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.GlinttBaseURL != "" {
		t.Fatalf("expected empty base url by default, got %s", cfg.GlinttBaseURL)
	}
	if cfg.TestPatientID != "150847" {
		t.Fatalf("expected default test patient, got %s", cfg.TestPatientID)
	}
	if cfg.TestServiceCode != "36" {
		t.Fatalf("expected default service code, got %s", cfg.TestServiceCode)
	}
	if cfg.TestMedicalActCode != "1" {
		t.Fatalf("expected default medical act code, got %s", cfg.TestMedicalActCode)
	}
	if cfg.TestFinancialEntityCode != "998" {
		t.Fatalf("expected default financial entity, got %s", cfg.TestFinancialEntityCode)
	}
	if cfg.GlinttCallingApp != "AUGUSTALABS" {
		t.Fatalf("expected default calling app, got %s", cfg.GlinttCallingApp)
	}
	if cfg.GlinttTimeout != 30*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.GlinttTimeout)
	}
	if cfg.SMSProvider != "auto" {
		t.Fatalf("expected auto provider by default, got %s", cfg.SMSProvider)
	}
	if cfg.TestSMSFrom != "Augusta" {
		t.Fatalf("expected default sms sender, got %s", cfg.TestSMSFrom)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GLINTT_BASE_URL", "https://glintt.example.test")
	t.Setenv("GLINTT_CLIENT_ID", "client-1")
	t.Setenv("GLINTT_TEST_PATIENT_ID", "99001")
	t.Setenv("GLINTT_TEST_DOCTOR_CODE", "1917")
	t.Setenv("GLINTT_TIMEOUT", "5s")
	t.Setenv("SMS_PROVIDER", " Telnyx ")
	t.Setenv("TWILIO_MESSAGING_SERVICE_SID", "MG123")
	cfg := Load()
	if cfg.GlinttBaseURL != "https://glintt.example.test" {
		t.Fatalf("expected base url override, got %s", cfg.GlinttBaseURL)
	}
	if cfg.GlinttClientID != "client-1" {
		t.Fatalf("expected client id override, got %s", cfg.GlinttClientID)
	}
	if cfg.TestPatientID != "99001" {
		t.Fatalf("expected patient override, got %s", cfg.TestPatientID)
	}
	if cfg.TestDoctorCode != "1917" {
		t.Fatalf("expected doctor override, got %s", cfg.TestDoctorCode)
	}
	if cfg.GlinttTimeout != 5*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.GlinttTimeout)
	}
	if cfg.SMSProvider != "telnyx" {
		t.Fatalf("expected provider trimmed and lowered, got %q", cfg.SMSProvider)
	}
	if cfg.TwilioMessagingService != "MG123" {
		t.Fatalf("expected messaging service override, got %s", cfg.TwilioMessagingService)
	}
}
