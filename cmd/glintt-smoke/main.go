// Command glintt-smoke runs the automated schedule + reschedule +
// verification cycle against the Glintt TEST environment and writes a
// test_run_<timestamp>.json record.
//
// Usage:
//
//	glintt-smoke [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-mock] [-notify]
//
// -mock runs the same cycle against an in-process fake gateway instead
// of the real TEST environment. -notify sends the outcome by SMS through
// the configured provider.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/glintt/glinttest"
	"github.com/wolfman30/glintt-harness/internal/harness"
	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/internal/sms"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func main() {
	start := flag.String("start", "", "slot search start date (YYYY-MM-DD)")
	end := flag.String("end", "", "slot search end date (YYYY-MM-DD)")
	mock := flag.Bool("mock", false, "run against an in-process fake gateway")
	notify := flag.Bool("notify", false, "send the outcome by SMS")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	harnessMetrics := metrics.NewHarnessMetrics(nil)

	harness.Warning(os.Stdout,
		"GLINTT TEST HARNESS - Schedule + Reschedule Verification",
		"",
		"WARNING: This creates REAL appointments in the Glintt TEST env",
	)

	if *mock {
		srv := httptest.NewServer(seededFake(cfg, *start, *end))
		defer srv.Close()
		cfg.GlinttBaseURL = srv.URL
		for _, field := range []*string{
			&cfg.GlinttClientID, &cfg.GlinttClientSecret, &cfg.GlinttTenantID,
			&cfg.GlinttFacilityID, &cfg.GlinttUsername,
		} {
			if *field == "" {
				*field = "mock"
			}
		}
		fmt.Printf("Running against in-process mock gateway at %s\n\n", srv.URL)
	}

	client, err := glintt.New(glintt.Config{
		BaseURL:      cfg.GlinttBaseURL,
		ClientID:     cfg.GlinttClientID,
		ClientSecret: cfg.GlinttClientSecret,
		TenantID:     cfg.GlinttTenantID,
		FacilityID:   cfg.GlinttFacilityID,
		Username:     cfg.GlinttUsername,
		CallingApp:   cfg.GlinttCallingApp,
		Timeout:      cfg.GlinttTimeout,
		Logger:       logger,
		Metrics:      harnessMetrics,
	})
	if err != nil {
		fmt.Printf("FAIL: %v\n", err)
		os.Exit(1)
	}

	smoke := &harness.Smoke{
		Client:    client,
		Config:    cfg,
		Metrics:   harnessMetrics,
		StartDate: *start,
		EndDate:   *end,
	}
	_, results := smoke.Run(context.Background())
	success := results.Summary()

	fmt.Println()
	if success {
		harness.Banner(os.Stdout, "ALL TESTS PASSED")
	} else {
		harness.Banner(os.Stdout, "TESTS FAILED - See details above")
	}

	if *notify {
		sendOutcome(cfg, logger, harnessMetrics, success)
	}

	if !success {
		os.Exit(1)
	}
}

// seededFake builds a fake gateway carrying a small slot inventory in
// the run's search window: two free slots and one already occupied, so
// the schedule and reschedule phases both have something to book.
func seededFake(cfg *config.Config, start, end string) *glinttest.Server {
	if start == "" {
		start = cfg.TestStartDate
	}
	if end == "" {
		end = cfg.TestEndDate
	}
	day, _ := glintt.DefaultSearchPeriod(start, end)

	fake := glinttest.New()
	fake.SeedSlots(
		glintt.Slot{SlotDateTime: day + "T09:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-0900"},
		glintt.Slot{SlotDateTime: day + "T10:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-1000", Occupation: true, OccupationReason: "OCUPADO"},
		glintt.Slot{SlotDateTime: day + "T11:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-1100"},
	)
	return fake
}

func sendOutcome(cfg *config.Config, logger *logging.Logger, m *metrics.HarnessMetrics, success bool) {
	if cfg.TestPhoneNumber == "" {
		fmt.Println("\nSkipping SMS notification (TEST_PHONE_NUMBER not set)")
		return
	}

	sender, _, skipped := sms.BuildSender(sms.SelectionConfig{
		Preference:          cfg.SMSProvider,
		TelnyxAPIKey:        cfg.TelnyxAPIKey,
		TelnyxProfileID:     cfg.TelnyxMessagingProfileID,
		TwilioAccountSID:    cfg.TwilioAccountSID,
		TwilioAuthToken:     cfg.TwilioAuthToken,
		TwilioFrom:          cfg.TwilioFromNumber,
		TwilioMessagingSSID: cfg.TwilioMessagingService,
		Logger:              logger,
		Metrics:             m,
	})
	if sender == nil {
		fmt.Println("\nSkipping SMS notification: no provider available")
		for _, reason := range skipped {
			fmt.Printf("  %s\n", reason)
		}
		return
	}

	outcome := "passed"
	if !success {
		outcome = "FAILED"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	receipt, err := sender.Send(ctx, sms.Message{
		From: cfg.TestSMSFrom,
		To:   cfg.TestPhoneNumber,
		Body: fmt.Sprintf("Glintt smoke test %s at %s", outcome, time.Now().Format("2006-01-02 15:04")),
	})
	if err != nil {
		fmt.Printf("\n❌ Outcome SMS failed: %v\n", err)
		return
	}
	fmt.Printf("\n✅ Outcome SMS sent via %s (ID: %s)\n", receipt.Provider, receipt.ID)
}
