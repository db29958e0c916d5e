package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
)

// Smoke drives the full cycle against the configured gateway: schedule
// (or adopt) an appointment, reschedule it, and verify the move through
// the outpatient appointment listing.
type Smoke struct {
	Client  *glintt.Client
	Config  *config.Config
	Metrics *metrics.HarnessMetrics

	// Out receives the console report; defaults to stdout.
	Out io.Writer
	// ResultDir is where the run record lands; defaults to the working
	// directory.
	ResultDir string
	// StartDate and EndDate bound the slot search (YYYY-MM-DD). When
	// unset the configured test dates apply, and failing those,
	// tomorrow through seven days out.
	StartDate string
	EndDate   string
}

// Run executes the five phases and returns the run record plus the
// pass/fail tally. The record is nil when the run aborted before results
// were assembled. Callers print the summary and choose the exit code.
func (s *Smoke) Run(ctx context.Context) (*RunRecord, *Results) {
	out := s.Out
	if out == nil {
		out = os.Stdout
	}
	cfg := s.Config
	results := NewResults(out)

	Banner(out, "GLINTT TEST RUNNER")
	fmt.Fprintf(out, "Started: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintln(out, strings.Repeat("=", 70))

	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintf(out, "  Base URL: %s\n", cfg.GlinttBaseURL)
	fmt.Fprintf(out, "  Patient ID: %s\n", cfg.TestPatientID)
	fmt.Fprintf(out, "  Service Code: %s\n", cfg.TestServiceCode)
	fmt.Fprintf(out, "  Medical Act: %s\n", cfg.TestMedicalActCode)

	start := s.StartDate
	if start == "" {
		start = cfg.TestStartDate
	}
	end := s.EndDate
	if end == "" {
		end = cfg.TestEndDate
	}
	startDate, endDate := glintt.DefaultSearchPeriod(start, end)
	fmt.Fprintf(out, "  Date Range: %s to %s\n", startDate, endDate)

	Phase(out, "PHASE 1: Authentication")

	if err := s.Client.Authenticate(ctx); err != nil {
		results.AddFail("Authentication failed")
		return nil, results
	}
	results.AddPass("Authentication successful")

	Phase(out, "PHASE 2: Get or Create Appointment")

	verifyStart := startDate + "T00:00:00"
	verifyEnd := endDate + "T23:59:59"
	verifyQuery := glintt.AppointmentQuery{
		BeginDate: verifyStart,
		EndDate:   verifyEnd,
		Status:    glintt.StatusScheduled,
	}

	fmt.Fprintln(out, "Checking for existing appointments...")
	existing, err := s.Client.Appointments(ctx, verifyQuery)
	if err != nil {
		// Not fatal; the run can still schedule a fresh appointment.
		fmt.Fprintf(out, "  Could not check existing appointments: %v\n", err)
	}

	var appointmentID, scheduleTime, scheduleDoctor string
	for _, apt := range existing {
		if apt.PatientIdentifier.ID != cfg.TestPatientID {
			continue
		}
		appointmentID = apt.AppointmentID
		scheduleTime = apt.AppointmentHour
		scheduleDoctor = apt.DoctorCode
		fmt.Fprintf(out, "  Found existing appointment ID: %s\n", appointmentID)
		fmt.Fprintf(out, "  Scheduled at: %s (Doctor: %s)\n", scheduleTime, scheduleDoctor)
		results.AddPass(fmt.Sprintf("Using existing appointment ID %s", appointmentID))
		break
	}

	if appointmentID == "" {
		fmt.Fprintln(out, "No existing appointment found, scheduling new one...")

		slots, err := s.Client.SearchSlots(ctx, glintt.SlotSearch{
			StartDate:      startDate,
			EndDate:        endDate,
			PatientID:      cfg.TestPatientID,
			ServiceCode:    cfg.TestServiceCode,
			MedicalActCode: cfg.TestMedicalActCode,
			DoctorCode:     cfg.TestDoctorCode,
		})
		if err != nil || len(slots) == 0 {
			results.AddFail("No available slots for scheduling and no existing appointment")
			return nil, results
		}
		results.AddPass(fmt.Sprintf("Found %d available slots", len(slots)))

		slot := slots[0]
		scheduleTime = slot.SlotDateTime
		scheduleDoctor = slot.HumanResourceCode
		fmt.Fprintf(out, "  Selected slot: %s (Doctor: %s)\n", scheduleTime, scheduleDoctor)

		if _, err := s.Client.ScheduleAppointment(ctx, s.booking(slot)); err != nil {
			results.AddFail("Schedule appointment failed")
			return nil, results
		}

		// The schedule response's appointmentID is not always the
		// outpatient record's ID; fetch it back from the listing.
		fmt.Fprintln(out, "Fetching appointment ID from GET /Appointment...")
		fresh, err := s.Client.Appointments(ctx, verifyQuery)
		if err != nil {
			fmt.Fprintf(out, "  Could not fetch appointments: %v\n", err)
		}
		for _, apt := range fresh {
			if apt.PatientIdentifier.ID == cfg.TestPatientID &&
				strings.Contains(apt.AppointmentHour, scheduleTime) {
				appointmentID = apt.AppointmentID
				fmt.Fprintf(out, "  Found new appointment ID: %s\n", appointmentID)
				break
			}
		}
		if appointmentID == "" {
			results.AddFail("Schedule succeeded but could not retrieve appointmentID from GET /Appointment")
			return nil, results
		}
		results.AddPass(fmt.Sprintf("Scheduled new appointment ID %s at %s", appointmentID, scheduleTime))
	}

	Phase(out, "PHASE 3: Reschedule Appointment")

	rescheduleSlots, err := s.Client.SearchSlots(ctx, glintt.SlotSearch{
		StartDate:      startDate,
		EndDate:        endDate,
		PatientID:      cfg.TestPatientID,
		ServiceCode:    cfg.TestServiceCode,
		MedicalActCode: cfg.TestMedicalActCode,
		DoctorCode:     cfg.TestDoctorCode,
		Reschedule:     true,
		EpisodeID:      appointmentID,
	})
	if err != nil || len(rescheduleSlots) == 0 {
		results.AddFail("No available slots for rescheduling")
		return nil, results
	}
	results.AddPass(fmt.Sprintf("Found %d available slots for reschedule", len(rescheduleSlots)))

	var newSlot *glintt.Slot
	for i := range rescheduleSlots {
		if rescheduleSlots[i].SlotDateTime != scheduleTime {
			newSlot = &rescheduleSlots[i]
			break
		}
	}
	if newSlot == nil {
		// Every slot carries the original time; keep going so the run
		// still exercises the reschedule call, but record the problem.
		results.AddFail("Could not find a different slot for rescheduling")
		newSlot = &rescheduleSlots[0]
	}

	rescheduleTime := newSlot.SlotDateTime
	rescheduleDoctor := newSlot.HumanResourceCode

	fmt.Fprintf(out, "  Original time: %s\n", scheduleTime)
	fmt.Fprintf(out, "  New time: %s\n", rescheduleTime)

	rescheduled, err := s.Client.RescheduleAppointment(ctx, s.booking(*newSlot), glintt.Episode{ID: appointmentID})
	if err != nil {
		results.AddFail("Reschedule appointment failed")
		return nil, results
	}
	newAppointmentID := rescheduled.AppointmentID
	results.AddPass(fmt.Sprintf("Reschedule moved appointment to %s", rescheduleTime))

	Phase(out, "PHASE 4: Verification via GET /Appointment")

	verifyQuery.DoctorCode = rescheduleDoctor
	appointments, err := s.Client.Appointments(ctx, verifyQuery)
	if err != nil {
		results.AddFail("Could not fetch appointments for verification")
		return nil, results
	}

	foundAtNew := glintt.FindAppointmentByTime(appointments, rescheduleTime, cfg.TestPatientID)
	if foundAtNew != nil {
		results.AddPass(fmt.Sprintf("Verification: Found appointment at new time (ID: %s)", foundAtNew.AppointmentID))
	} else {
		results.AddFail(fmt.Sprintf("Verification: Appointment NOT found at new time %s", rescheduleTime))
	}

	foundAtOld := glintt.FindAppointmentByTime(appointments, scheduleTime, cfg.TestPatientID)
	if foundAtOld != nil {
		switch foundAtOld.Status {
		case glintt.StatusRescheduled, glintt.StatusAnnulled:
			results.AddPass(fmt.Sprintf("Verification: Original appointment marked as %s", foundAtOld.Status))
		default:
			fmt.Fprintf(out, "  Note: Appointment still exists at old time (ID: %s, status: %s)\n",
				foundAtOld.AppointmentID, foundAtOld.Status)
			fmt.Fprintln(out, "  This may be expected behavior - check Glintt documentation")
		}
	} else {
		results.AddPass("Verification: No appointment at original time (as expected)")
	}

	Phase(out, "PHASE 5: Save Results")

	record := &RunRecord{
		Timestamp: time.Now().Format(time.RFC3339),
		Configuration: RunConfiguration{
			BaseURL:     cfg.GlinttBaseURL,
			PatientID:   cfg.TestPatientID,
			ServiceCode: cfg.TestServiceCode,
			DateRange:   fmt.Sprintf("%s to %s", startDate, endDate),
		},
		Schedule: RunSchedule{
			AppointmentID: appointmentID,
			ScheduledTime: scheduleTime,
			DoctorCode:    scheduleDoctor,
		},
		Reschedule: RunReschedule{
			OriginalTime:     scheduleTime,
			NewTime:          rescheduleTime,
			NewAppointmentID: newAppointmentID,
			DoctorCode:       rescheduleDoctor,
		},
		Verification: RunVerification{
			FoundAtNewTime: foundAtNew != nil,
			FoundAtOldTime: foundAtOld != nil,
		},
		Results: RunResults{Passed: results.Passed(), Failed: results.Failed()},
	}

	filename, err := WriteResultFile(s.ResultDir, "test_run", record)
	if err != nil {
		results.AddFail(fmt.Sprintf("Could not save results: %v", err))
	} else {
		fmt.Fprintf(out, "Results saved to: %s\n", filename)
	}

	if lines := s.Metrics.Summary(); len(lines) > 0 {
		fmt.Fprintln(out, "\nAPI metrics:")
		for _, line := range lines {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	return record, results
}

func (s *Smoke) booking(slot glintt.Slot) glintt.Booking {
	return glintt.Booking{
		Slot:                slot,
		PatientID:           s.Config.TestPatientID,
		ServiceCode:         s.Config.TestServiceCode,
		MedicalActCode:      s.Config.TestMedicalActCode,
		FinancialEntityCode: s.Config.TestFinancialEntityCode,
	}
}
