// Command glintt-schedule creates a new appointment in the Glintt TEST
// environment: authenticate, search slots, pick one, book it. The result
// file it writes feeds glintt-reschedule's -from-file flag.
//
// Usage:
//
//	go run ./scripts/glintt-schedule [-auto] [-start YYYY-MM-DD] [-end YYYY-MM-DD]
//
// Without -auto the script lists the available slots and reads a
// selection from stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/harness"
	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func main() {
	auto := flag.Bool("auto", false, "auto-select the first available slot")
	start := flag.String("start", "", "slot search start date (YYYY-MM-DD)")
	end := flag.String("end", "", "slot search end date (YYYY-MM-DD)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	out := os.Stdout

	harness.Banner(out, "GLINTT SCHEDULE TEST")
	fmt.Fprintf(out, "Patient ID: %s\n", cfg.TestPatientID)
	fmt.Fprintf(out, "Service: %s\n", cfg.TestServiceCode)
	fmt.Fprintf(out, "Medical Act: %s\n", cfg.TestMedicalActCode)

	startDate, endDate := glintt.DefaultSearchPeriod(
		firstNonEmpty(*start, cfg.TestStartDate),
		firstNonEmpty(*end, cfg.TestEndDate),
	)
	fmt.Fprintf(out, "Date Range: %s to %s\n", startDate, endDate)
	fmt.Fprintln(out, strings.Repeat("=", 70))

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

	harness.Step(out, 2, "Search available slots")
	slots, err := client.SearchSlots(ctx, glintt.SlotSearch{
		StartDate:      startDate,
		EndDate:        endDate,
		PatientID:      cfg.TestPatientID,
		ServiceCode:    cfg.TestServiceCode,
		MedicalActCode: cfg.TestMedicalActCode,
		DoctorCode:     cfg.TestDoctorCode,
	})
	if err != nil {
		fmt.Fprintf(out, "FAIL: Slot search failed: %v\n", err)
		os.Exit(1)
	}
	if len(slots) == 0 {
		fmt.Fprintln(out, "FAIL: No available slots found")
		os.Exit(1)
	}

	harness.Step(out, 3, "Slot selection")
	var selected *glintt.Slot
	if *auto {
		selected = &slots[0]
		fmt.Fprintf(out, "  Auto-selected: %s\n", selected.SlotDateTime)
	} else {
		selected = selectSlot(out, slots)
		if selected == nil {
			fmt.Fprintln(out, "FAIL: No slot selected")
			os.Exit(1)
		}
	}

	harness.Step(out, 4, "Schedule appointment")
	result, err := client.ScheduleAppointment(ctx, glintt.Booking{
		Slot:                *selected,
		PatientID:           cfg.TestPatientID,
		ServiceCode:         cfg.TestServiceCode,
		MedicalActCode:      cfg.TestMedicalActCode,
		FinancialEntityCode: cfg.TestFinancialEntityCode,
	})
	if err != nil {
		fmt.Fprintf(out, "FAIL: Schedule failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintln(out)
	harness.Banner(out, "SCHEDULE RESULT")
	fmt.Fprintf(out, "Appointment ID: %s\n", result.AppointmentID)
	fmt.Fprintf(out, "Scheduled Time: %s\n", selected.SlotDateTime)
	fmt.Fprintf(out, "Doctor: %s\n", selected.HumanResourceCode)
	fmt.Fprintln(out, strings.Repeat("=", 70))

	record := harness.ScheduleRecord{
		AppointmentID: result.AppointmentID,
		ScheduledTime: selected.SlotDateTime,
		DoctorCode:    selected.HumanResourceCode,
		BookingID:     selected.BookingID,
		PatientID:     cfg.TestPatientID,
		ServiceCode:   cfg.TestServiceCode,
		Result:        result.Raw,
	}
	filename, err := harness.WriteResultFile("", "schedule_result", record)
	if err != nil {
		fmt.Fprintf(out, "FAIL: Could not save result: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(out, "\nResult saved to: %s\n", filename)
}

// selectSlot lists the slots and reads a 1-based choice from stdin until
// the operator picks a valid one or quits with q.
func selectSlot(out *os.File, slots []glintt.Slot) *glintt.Slot {
	harness.ListSlots(out, "AVAILABLE SLOTS", slots, "")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprintf(out, "\nSelect slot (1-%d) or 'q' to quit: ", len(slots))
		if !scanner.Scan() {
			return nil
		}
		choice := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(choice, "q") {
			return nil
		}
		index, err := strconv.Atoi(choice)
		if err != nil {
			fmt.Fprintln(out, "Invalid input. Enter a number or 'q'")
			continue
		}
		if index < 1 || index > len(slots) {
			fmt.Fprintf(out, "Invalid choice. Enter 1-%d\n", len(slots))
			continue
		}
		return &slots[index-1]
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
