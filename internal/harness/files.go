package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ScheduleRecord is the file a schedule probe writes so a later
// reschedule probe can pick the appointment back up.
type ScheduleRecord struct {
	AppointmentID string         `json:"appointmentId"`
	ScheduledTime string         `json:"scheduledTime"`
	DoctorCode    string         `json:"doctorCode"`
	BookingID     string         `json:"bookingId"`
	PatientID     string         `json:"patientId"`
	ServiceCode   string         `json:"serviceCode"`
	Result        map[string]any `json:"result"`
}

// RescheduleRecord is the file a reschedule probe writes.
type RescheduleRecord struct {
	OriginalEpisodeID string         `json:"originalEpisodeId"`
	OriginalTime      string         `json:"originalTime"`
	NewAppointmentID  string         `json:"newAppointmentId"`
	NewTime           string         `json:"newTime"`
	DoctorCode        string         `json:"doctorCode"`
	BookingID         string         `json:"bookingId"`
	PatientID         string         `json:"patientId"`
	Result            map[string]any `json:"result"`
}

// RunConfiguration echoes the configuration a smoke run used.
type RunConfiguration struct {
	BaseURL     string `json:"baseUrl"`
	PatientID   string `json:"patientId"`
	ServiceCode string `json:"serviceCode"`
	DateRange   string `json:"dateRange"`
}

// RunSchedule captures the appointment the run scheduled or adopted.
type RunSchedule struct {
	AppointmentID string `json:"appointmentId"`
	ScheduledTime string `json:"scheduledTime"`
	DoctorCode    string `json:"doctorCode"`
}

// RunReschedule captures the move the run performed.
type RunReschedule struct {
	OriginalTime     string `json:"originalTime"`
	NewTime          string `json:"newTime"`
	NewAppointmentID string `json:"newAppointmentId"`
	DoctorCode       string `json:"doctorCode"`
}

// RunVerification captures what the final appointment listing showed.
type RunVerification struct {
	FoundAtNewTime bool `json:"foundAtNewTime"`
	FoundAtOldTime bool `json:"foundAtOldTime"`
}

// RunResults is the pass/fail tally embedded in the run record.
type RunResults struct {
	Passed []string `json:"passed"`
	Failed []string `json:"failed"`
}

// RunRecord is the full output of one smoke run.
type RunRecord struct {
	Timestamp     string           `json:"timestamp"`
	Configuration RunConfiguration `json:"configuration"`
	Schedule      RunSchedule      `json:"schedule"`
	Reschedule    RunReschedule    `json:"reschedule"`
	Verification  RunVerification  `json:"verification"`
	Results       RunResults       `json:"results"`
}

// WriteResultFile saves v as 2-space-indented JSON under dir (the working
// directory when empty) as <prefix>_<YYYYMMDD_HHMMSS>.json and returns
// the written path.
func WriteResultFile(dir, prefix string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("harness: failed to encode result: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", prefix, time.Now().Format("20060102_150405"))
	path := name
	if dir != "" {
		path = filepath.Join(dir, name)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("harness: failed to write result file: %w", err)
	}
	return path, nil
}
