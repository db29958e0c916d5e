// Command sms-test sends one test SMS through the configured provider
// and prints the provider's receipt.
//
// Usage:
//
//	sms-test [-provider telnyx|twilio|auto] [-to +3519...] [-from Augusta] [-body "..."]
//
// Flags override the SMS_PROVIDER, TEST_PHONE_NUMBER, and TEST_SMS_FROM
// environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/harness"
	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/internal/sms"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func main() {
	provider := flag.String("provider", "", "provider override: telnyx, twilio, or auto")
	to := flag.String("to", "", "destination number (defaults to TEST_PHONE_NUMBER)")
	from := flag.String("from", "", "sender ID or number (defaults to TEST_SMS_FROM)")
	body := flag.String("body", "We are cooking!", "message body")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	smsMetrics := metrics.NewHarnessMetrics(nil)

	preference := cfg.SMSProvider
	if *provider != "" {
		preference = *provider
	}
	dest := cfg.TestPhoneNumber
	if *to != "" {
		dest = *to
	}
	senderID := cfg.TestSMSFrom
	if *from != "" {
		senderID = *from
	}

	harness.Banner(os.Stdout, "SMS SEND TEST")

	if dest == "" {
		fmt.Println("FAIL: no destination number (use -to or set TEST_PHONE_NUMBER)")
		os.Exit(1)
	}

	sender, selected, skipped := sms.BuildSender(sms.SelectionConfig{
		Preference:          preference,
		TelnyxAPIKey:        cfg.TelnyxAPIKey,
		TelnyxProfileID:     cfg.TelnyxMessagingProfileID,
		TwilioAccountSID:    cfg.TwilioAccountSID,
		TwilioAuthToken:     cfg.TwilioAuthToken,
		TwilioFrom:          cfg.TwilioFromNumber,
		TwilioMessagingSSID: cfg.TwilioMessagingService,
		Logger:              logger,
		Metrics:             smsMetrics,
	})
	for _, reason := range skipped {
		fmt.Printf("Skipped %s\n", reason)
	}
	if sender == nil {
		fmt.Println("FAIL: no SMS provider available")
		os.Exit(1)
	}

	fmt.Printf("Provider: %s\n", selected)
	fmt.Printf("To: %s\n", dest)
	fmt.Printf("From: %s\n", senderID)
	fmt.Printf("Body: %s\n", *body)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	receipt, err := sender.Send(ctx, sms.Message{From: senderID, To: dest, Body: *body})
	if err != nil {
		fmt.Printf("\n❌ Send failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n✅ Message accepted by %s\n", receipt.Provider)
	fmt.Printf("  ID: %s\n", receipt.ID)
	fmt.Printf("  Status: %s\n", receipt.Status)
	if receipt.CreatedAt != "" {
		fmt.Printf("  Created: %s\n", receipt.CreatedAt)
	}

	if lines := smsMetrics.Summary(); len(lines) > 0 {
		fmt.Println("\nSMS metrics:")
		for _, line := range lines {
			fmt.Printf("  %s\n", line)
		}
	}
}
