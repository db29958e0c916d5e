package harness

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/glintt/glinttest"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func newSmokeFixture(t *testing.T) (*glinttest.Server, *Smoke, *bytes.Buffer) {
	t.Helper()
	fake := glinttest.New()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		GlinttBaseURL:           server.URL,
		TestPatientID:           "150847",
		TestServiceCode:         "36",
		TestMedicalActCode:      "1",
		TestFinancialEntityCode: "998",
	}

	client, err := glintt.New(glintt.Config{
		BaseURL:      server.URL,
		ClientID:     "MALO_TEST",
		ClientSecret: "secret",
		TenantID:     "DEFAULT",
		FacilityID:   "DEFAULT",
		Username:     "ADMIN",
		Logger:       logging.NewWithWriter(io.Discard, "error", "text"),
	})
	require.NoError(t, err)

	var out bytes.Buffer
	smoke := &Smoke{
		Client:    client,
		Config:    cfg,
		Out:       &out,
		ResultDir: t.TempDir(),
		StartDate: "2025-09-24",
		EndDate:   "2025-09-30",
	}
	return fake, smoke, &out
}

func TestSmokeScheduleAndRescheduleCycle(t *testing.T) {
	fake, smoke, out := newSmokeFixture(t)
	fake.SeedSlots(
		glintt.Slot{SlotDateTime: "2025-09-24T10:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-1"},
		glintt.Slot{SlotDateTime: "2025-09-24T11:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-2"},
	)

	record, results := smoke.Run(context.Background())
	require.NotNil(t, record, "run should finish:\n%s", out.String())
	assert.True(t, results.Success(), "failures: %v", results.Failed())

	assert.Equal(t, "2025-09-24T10:00:00", record.Schedule.ScheduledTime)
	assert.Equal(t, "1917", record.Schedule.DoctorCode)
	assert.NotEmpty(t, record.Schedule.AppointmentID)

	assert.Equal(t, "2025-09-24T11:00:00", record.Reschedule.NewTime)
	assert.True(t, record.Verification.FoundAtNewTime)
	// The original appointment is RESCHEDULED by now and the verification
	// listing only asks for SCHEDULED ones.
	assert.False(t, record.Verification.FoundAtOldTime)

	matches, err := filepath.Glob(filepath.Join(smoke.ResultDir, "test_run_*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), record.Schedule.AppointmentID)
}

func TestSmokeAdoptsExistingAppointment(t *testing.T) {
	fake, smoke, out := newSmokeFixture(t)
	fake.SeedAppointments(glintt.Appointment{
		AppointmentID:     "5000001",
		AppointmentHour:   "2025-09-24T09:00:00.000Z",
		DoctorCode:        "1917",
		Status:            glintt.StatusScheduled,
		PatientIdentifier: glintt.PatientIdentifier{ID: "150847"},
	})
	fake.SeedSlots(glintt.Slot{SlotDateTime: "2025-09-25T11:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-3"})

	record, results := smoke.Run(context.Background())
	require.NotNil(t, record, "run should finish:\n%s", out.String())
	assert.True(t, results.Success(), "failures: %v", results.Failed())

	adopted := false
	for _, line := range results.Passed() {
		if strings.Contains(line, "Using existing appointment ID 5000001") {
			adopted = true
		}
	}
	assert.True(t, adopted, "expected the existing appointment to be adopted, passed: %v", results.Passed())
	assert.Equal(t, "5000001", record.Schedule.AppointmentID)
	assert.Equal(t, "2025-09-25T11:00:00", record.Reschedule.NewTime)
	assert.True(t, record.Verification.FoundAtNewTime)
}

func TestSmokeSameTimeSlotStillReschedules(t *testing.T) {
	// The only alternative slot is at the exact time already booked. The
	// run records the failure but still exercises the reschedule call.
	fake, smoke, out := newSmokeFixture(t)
	fake.SeedSlots(
		glintt.Slot{SlotDateTime: "2025-09-24T10:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-1"},
		glintt.Slot{SlotDateTime: "2025-09-24T10:00:00", HumanResourceCode: "2045", Duration: 20, BookingID: "BK-2"},
	)

	record, results := smoke.Run(context.Background())
	require.NotNil(t, record, "run should still finish:\n%s", out.String())
	assert.False(t, results.Success())

	sameTime := false
	for _, line := range results.Failed() {
		if strings.Contains(line, "Could not find a different slot") {
			sameTime = true
		}
	}
	assert.True(t, sameTime, "failures: %v", results.Failed())
	assert.Equal(t, record.Schedule.ScheduledTime, record.Reschedule.NewTime)
	assert.True(t, record.Verification.FoundAtNewTime)
}

func TestSmokeAbortsWhenNoSlots(t *testing.T) {
	fake, smoke, _ := newSmokeFixture(t)
	fake.FailSlotSearch("availability engine offline")

	record, results := smoke.Run(context.Background())
	assert.Nil(t, record)
	require.False(t, results.Success())
	assert.Contains(t, results.Failed()[0], "No available slots")
}
