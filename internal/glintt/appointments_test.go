package glintt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func loadAppointmentsFixture(t *testing.T) []Appointment {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "appointments.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var appointments []Appointment
	if err := json.Unmarshal(data, &appointments); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return appointments
}

func TestFindAppointmentByTime(t *testing.T) {
	appointments := []Appointment{
		{AppointmentID: "A", AppointmentHour: "2025-09-24T09:00:00.000Z", PatientIdentifier: PatientIdentifier{ID: "150847"}},
		{AppointmentID: "B", AppointmentHour: "2025-09-24T10:00:00.123Z", PatientIdentifier: PatientIdentifier{ID: "150847"}},
		{AppointmentID: "C", AppointmentHour: "2025-09-24T10:00:00.000Z", PatientIdentifier: PatientIdentifier{ID: "999999"}},
		{AppointmentID: "D", AppointmentHour: "2025-09-24T10:00:00", PatientIdentifier: PatientIdentifier{ID: "150847"}},
	}

	tests := []struct {
		name      string
		target    string
		patientID string
		wantID    string
	}{
		{"fraction ignored on both sides", "2025-09-24T10:00:00.000Z", "150847", "B"},
		{"fraction ignored on candidate only", "2025-09-24T10:00:00", "150847", "B"},
		{"patient mismatch skipped", "2025-09-24T10:00:00.000Z", "999999", "C"},
		{"no Z on target", "2025-09-24T09:00:00", "150847", "A"},
		{"no match for unknown time", "2025-09-24T11:00:00", "150847", ""},
		{"no match for unknown patient", "2025-09-24T09:00:00", "000000", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindAppointmentByTime(appointments, tt.target, tt.patientID)
			if tt.wantID == "" {
				if got != nil {
					t.Fatalf("expected no match, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected appointment %s, got nil", tt.wantID)
			}
			if got.AppointmentID != tt.wantID {
				t.Fatalf("matched %s, want %s", got.AppointmentID, tt.wantID)
			}
		})
	}
}

func TestFindAppointmentByTimeFirstMatchWins(t *testing.T) {
	appointments := []Appointment{
		{AppointmentID: "first", AppointmentHour: "2025-09-24T10:00:00.000Z", PatientIdentifier: PatientIdentifier{ID: "150847"}},
		{AppointmentID: "second", AppointmentHour: "2025-09-24T10:00:00.999Z", PatientIdentifier: PatientIdentifier{ID: "150847"}},
	}
	got := FindAppointmentByTime(appointments, "2025-09-24T10:00:00", "150847")
	if got == nil || got.AppointmentID != "first" {
		t.Fatalf("expected the first match in response order, got %+v", got)
	}
}

func TestFindAppointmentByTimeFixture(t *testing.T) {
	appointments := loadAppointmentsFixture(t)

	got := FindAppointmentByTime(appointments, "2025-09-24T10:00:00.000Z", "150847")
	if got == nil || got.AppointmentID != "5012342" {
		t.Fatalf("expected 5012342 (fractional seconds ignored), got %+v", got)
	}

	if got := FindAppointmentByTime(appointments, "2025-09-24T10:00:00.000Z", "123456"); got != nil {
		t.Fatalf("expected no match for unknown patient, got %+v", got)
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2025-09-24T10:00:00.000Z", "2025-09-24T10:00:00"},
		{"2025-09-24T10:00:00Z", "2025-09-24T10:00:00"},
		{"2025-09-24T10:00:00", "2025-09-24T10:00:00"},
		// Every Z is removed, not just a trailing one; the original
		// matcher behaves this way and callers may rely on it.
		{"Z2025-09-24T10:00:00", "2025-09-24T10:00:00"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeClock(tt.in); got != tt.want {
			t.Errorf("normalizeClock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAppointmentsQueryParams(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Appointments(context.Background(), AppointmentQuery{
		BeginDate:  "2025-09-24T00:00:00",
		EndDate:    "2025-09-24T23:59:59",
		DoctorCode: "1917",
	})
	if err != nil {
		t.Fatalf("appointments: %v", err)
	}

	want := map[string]string{
		"beginDate":  "2025-09-24T00:00:00",
		"endDate":    "2025-09-24T23:59:59",
		"status":     "SCHEDULED",
		"skip":       "0",
		"take":       "100",
		"doctorCode": "1917",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestAppointmentsOmitsEmptyDoctorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, present := r.URL.Query()["doctorCode"]; present {
			t.Errorf("doctorCode should be omitted when empty")
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	if _, err := client.Appointments(context.Background(), AppointmentQuery{
		BeginDate: "2025-09-24T00:00:00",
		EndDate:   "2025-09-24T23:59:59",
	}); err != nil {
		t.Fatalf("appointments: %v", err)
	}
}

func TestAppointmentsRejectsNonArrayResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some gateway errors come back as a 200 object.
		w.Write([]byte(`{"message": "internal error"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Appointments(context.Background(), AppointmentQuery{
		BeginDate: "2025-09-24T00:00:00",
		EndDate:   "2025-09-24T23:59:59",
	})
	if err == nil || !strings.Contains(err.Error(), "unexpected appointment response format") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestAllAppointmentsPagination(t *testing.T) {
	// 5 appointments served in pages of 2: the loop must issue three
	// requests and stop on the short final page.
	all := make([]Appointment, 5)
	for i := range all {
		all[i] = Appointment{
			AppointmentID:     strconv.Itoa(5012340 + i),
			AppointmentHour:   "2025-09-24T09:00:00",
			Status:            StatusScheduled,
			PatientIdentifier: PatientIdentifier{ID: "150847"},
		}
	}

	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		take, _ := strconv.Atoi(r.URL.Query().Get("take"))
		page := all[min(skip, len(all)):]
		if len(page) > take {
			page = page[:take]
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	got, err := client.AllAppointments(context.Background(), AppointmentQuery{
		BeginDate: "2025-09-24T00:00:00",
		EndDate:   "2025-09-24T23:59:59",
		Take:      2,
	})
	if err != nil {
		t.Fatalf("all appointments: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 appointments, got %d", len(got))
	}
	if requests != 3 {
		t.Fatalf("expected 3 paged requests, got %d", requests)
	}
	if got[4].AppointmentID != "5012344" {
		t.Fatalf("pages out of order: %+v", got[4])
	}
}

func TestAllAppointmentsSingleShortPage(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`[{"appointmentId": "1"}]`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	got, err := client.AllAppointments(context.Background(), AppointmentQuery{
		BeginDate: "2025-09-24T00:00:00",
		EndDate:   "2025-09-24T23:59:59",
	})
	if err != nil {
		t.Fatalf("all appointments: %v", err)
	}
	if len(got) != 1 || requests != 1 {
		t.Fatalf("short first page should end the loop: %d records, %d requests", len(got), requests)
	}
}
