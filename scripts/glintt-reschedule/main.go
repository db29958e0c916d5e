// Command glintt-reschedule moves an existing appointment in the Glintt
// TEST environment to a new slot. The episode ID of the appointment being
// moved comes from -episode-id, from a schedule_result JSON file written
// by glintt-schedule, or from GLINTT_TEST_EPISODE_ID.
//
// Usage:
//
//	go run ./scripts/glintt-reschedule -episode-id <ID> [-auto]
//	go run ./scripts/glintt-reschedule -from-file schedule_result_<ts>.json [-auto]
//
// With -auto the first slot whose time differs from the original is
// picked; without it the script lists the slots, marks the current one,
// and reads a selection from stdin.
package main

import (
	"bufio"
	"context"
	"encoding/json"
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
	episodeID := flag.String("episode-id", "", "episode ID of the appointment to reschedule")
	fromFile := flag.String("from-file", "", "read the episode ID from a schedule result JSON file")
	auto := flag.Bool("auto", false, "auto-select the first slot with a different time")
	start := flag.String("start", "", "slot search start date (YYYY-MM-DD)")
	end := flag.String("end", "", "slot search end date (YYYY-MM-DD)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	out := os.Stdout

	harness.Banner(out, "GLINTT RESCHEDULE TEST")

	episode, originalTime, err := resolveEpisode(*episodeID, *fromFile, cfg)
	if err != nil {
		fmt.Fprintf(out, "FAIL: %v\n", err)
		fmt.Fprintln(out, "Use -episode-id <ID> or -from-file <file> or set GLINTT_TEST_EPISODE_ID")
		os.Exit(1)
	}

	fmt.Fprintf(out, "Episode ID: %s\n", episode)
	if originalTime != "" {
		fmt.Fprintf(out, "Original Time: %s\n", originalTime)
	}
	fmt.Fprintf(out, "Patient ID: %s\n", cfg.TestPatientID)
	fmt.Fprintf(out, "Service: %s\n", cfg.TestServiceCode)

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

	harness.Step(out, 2, "Search available slots (reschedule)")
	slots, err := client.SearchSlots(ctx, glintt.SlotSearch{
		StartDate:      startDate,
		EndDate:        endDate,
		PatientID:      cfg.TestPatientID,
		ServiceCode:    cfg.TestServiceCode,
		MedicalActCode: cfg.TestMedicalActCode,
		DoctorCode:     cfg.TestDoctorCode,
		Reschedule:     true,
		EpisodeID:      episode,
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
		for i := range slots {
			if originalTime != "" && slots[i].SlotDateTime == originalTime {
				continue
			}
			selected = &slots[i]
			break
		}
		if selected == nil {
			selected = &slots[0]
		}
		fmt.Fprintf(out, "  Auto-selected: %s\n", selected.SlotDateTime)
	} else {
		selected = selectSlot(out, slots, originalTime)
		if selected == nil {
			fmt.Fprintln(out, "FAIL: No slot selected")
			os.Exit(1)
		}
	}

	harness.Step(out, 4, "Reschedule appointment")
	result, err := client.RescheduleAppointment(ctx, glintt.Booking{
		Slot:                *selected,
		PatientID:           cfg.TestPatientID,
		ServiceCode:         cfg.TestServiceCode,
		MedicalActCode:      cfg.TestMedicalActCode,
		FinancialEntityCode: cfg.TestFinancialEntityCode,
	}, glintt.Episode{ID: episode})
	if err != nil {
		fmt.Fprintf(out, "FAIL: Reschedule failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintln(out)
	harness.Banner(out, "RESCHEDULE RESULT")
	fmt.Fprintf(out, "Original Episode ID: %s\n", episode)
	if originalTime != "" {
		fmt.Fprintf(out, "Original Time: %s\n", originalTime)
	}
	fmt.Fprintf(out, "New Appointment ID: %s\n", result.AppointmentID)
	fmt.Fprintf(out, "New Time: %s\n", selected.SlotDateTime)
	fmt.Fprintf(out, "Doctor: %s\n", selected.HumanResourceCode)
	fmt.Fprintln(out, strings.Repeat("=", 70))

	record := harness.RescheduleRecord{
		OriginalEpisodeID: episode,
		OriginalTime:      originalTime,
		NewAppointmentID:  result.AppointmentID,
		NewTime:           selected.SlotDateTime,
		DoctorCode:        selected.HumanResourceCode,
		BookingID:         selected.BookingID,
		PatientID:         cfg.TestPatientID,
		Result:            result.Raw,
	}
	filename, err := harness.WriteResultFile("", "reschedule_result", record)
	if err != nil {
		fmt.Fprintf(out, "FAIL: Could not save result: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(out, "\nResult saved to: %s\n", filename)
}

// resolveEpisode picks the episode ID from the flag, a schedule result
// file, or the environment, in that flag-precedence order.
func resolveEpisode(flagID, fromFile string, cfg *config.Config) (episode, originalTime string, err error) {
	if fromFile != "" {
		data, err := os.ReadFile(fromFile)
		if err != nil {
			return "", "", fmt.Errorf("could not read file: %w", err)
		}
		var record harness.ScheduleRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return "", "", fmt.Errorf("could not parse %s: %w", fromFile, err)
		}
		if record.AppointmentID == "" {
			return "", "", fmt.Errorf("%s has no appointmentId", fromFile)
		}
		fmt.Printf("Loaded from file: %s\n", fromFile)
		return record.AppointmentID, record.ScheduledTime, nil
	}
	if flagID != "" {
		return flagID, "", nil
	}
	if cfg.TestEpisodeID != "" {
		return cfg.TestEpisodeID, "", nil
	}
	return "", "", fmt.Errorf("no episode ID provided")
}

// selectSlot lists the slots, marking the original time, and reads a
// 1-based choice from stdin. Picking the current slot asks to confirm.
func selectSlot(out *os.File, slots []glintt.Slot, originalTime string) *glintt.Slot {
	harness.ListSlots(out, "AVAILABLE SLOTS FOR RESCHEDULE", slots, originalTime)

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
		selected := &slots[index-1]
		if originalTime != "" && selected.SlotDateTime == originalTime {
			fmt.Fprint(out, "This is the current slot. Continue? (y/n): ")
			if !scanner.Scan() || !strings.EqualFold(strings.TrimSpace(scanner.Text()), "y") {
				continue
			}
		}
		return selected
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
