// Command glintt-appointments fetches today's outpatient appointments,
// paging through the full result set, prints the first record, and saves
// everything to appointments_<timestamp>.json.
//
// Usage:
//
//	go run ./scripts/glintt-appointments [-date YYYY-MM-DD] [-status SCHEDULED] [-doctor CODE]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/harness"
	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func main() {
	date := flag.String("date", "", "day to list (YYYY-MM-DD, defaults to today)")
	status := flag.String("status", glintt.StatusScheduled, "appointment status filter")
	doctor := flag.String("doctor", "", "doctor code filter")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	out := os.Stdout

	harness.Banner(out, "GLINTT APPOINTMENT PROBE")

	day := *date
	if day == "" {
		day = time.Now().Format("2006-01-02")
	}
	fmt.Fprintf(out, "Date: %s\n", day)
	fmt.Fprintf(out, "Status: %s\n", *status)

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
		Metrics:      metrics.NewHarnessMetrics(nil),
	})
	if err != nil {
		fmt.Fprintf(out, "FAIL: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	harness.Step(out, 1, "Authentication")
	if err := client.Authenticate(ctx); err != nil {
		fmt.Fprintf(out, "FAIL: Authentication failed: %v\n", err)
		os.Exit(1)
	}

	harness.Step(out, 2, "Fetch appointments")
	appointments, err := client.AllAppointments(ctx, glintt.AppointmentQuery{
		BeginDate:  day + "T00:00:00",
		EndDate:    day + "T23:59:59",
		Status:     *status,
		DoctorCode: *doctor,
	})
	if err != nil {
		fmt.Fprintf(out, "❌ Could not fetch appointments: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(out, "✅ Total appointments: %d\n", len(appointments))
	if len(appointments) > 0 {
		fmt.Fprintln(out, "\nFirst appointment record:")
		pretty, err := json.MarshalIndent(appointments[0], "", "  ")
		if err == nil {
			fmt.Fprintln(out, string(pretty))
		}
	}

	filename, err := harness.WriteResultFile("", "appointments", appointments)
	if err != nil {
		fmt.Fprintf(out, "FAIL: Could not save results: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(out, "\nResults saved to: %s\n", filename)
}
