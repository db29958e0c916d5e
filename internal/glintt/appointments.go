package glintt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Appointment status values used by the outpatient API.
const (
	StatusScheduled   = "SCHEDULED"
	StatusRescheduled = "RESCHEDULED"
	StatusAnnulled    = "ANNULLED"
)

// PatientIdentifier nests the patient ID inside appointment records.
type PatientIdentifier struct {
	ID string `json:"id"`
}

// Appointment is one outpatient appointment record. Only the fields the
// harness inspects are mapped; the gateway returns many more.
type Appointment struct {
	AppointmentID     string            `json:"appointmentId"`
	AppointmentHour   string            `json:"appointmentHour"`
	DoctorCode        string            `json:"doctorCode"`
	Status            string            `json:"status"`
	PatientIdentifier PatientIdentifier `json:"patientIdentifier"`
}

// AppointmentQuery selects outpatient appointments. BeginDate and EndDate
// are full timestamps such as 2025-09-24T00:00:00. Status defaults to
// SCHEDULED and Take to 100.
type AppointmentQuery struct {
	BeginDate  string
	EndDate    string
	Status     string
	DoctorCode string
	Skip       int
	Take       int
}

func (q AppointmentQuery) withDefaults() AppointmentQuery {
	if q.Status == "" {
		q.Status = StatusScheduled
	}
	if q.Take <= 0 {
		q.Take = 100
	}
	return q
}

// Appointments fetches one page of outpatient appointments.
func (c *Client) Appointments(ctx context.Context, q AppointmentQuery) ([]Appointment, error) {
	ctx, span := tracer.Start(ctx, "glintt.appointments")
	defer span.End()

	if q.BeginDate == "" || q.EndDate == "" {
		err := fmt.Errorf("glintt: appointment query requires a begin and end date")
		span.RecordError(err)
		return nil, err
	}
	q = q.withDefaults()

	query := url.Values{}
	query.Set("beginDate", q.BeginDate)
	query.Set("endDate", q.EndDate)
	query.Set("status", q.Status)
	query.Set("skip", strconv.Itoa(q.Skip))
	query.Set("take", strconv.Itoa(q.Take))
	if q.DoctorCode != "" {
		query.Set("doctorCode", q.DoctorCode)
	}

	data, err := c.invoke(ctx, "Appointment", http.MethodGet, appointmentsPath, query, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// The endpoint returns a bare JSON array; anything else (usually an
	// error object served with a 200) is unexpected.
	var appointments []Appointment
	if err := json.Unmarshal(data, &appointments); err != nil {
		err := fmt.Errorf("glintt: unexpected appointment response format: %s", errorDetail(data))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("glintt.appointments.page", len(appointments)))
	return appointments, nil
}

// AllAppointments pages through Appointments until a short page signals
// the end of the result set.
func (c *Client) AllAppointments(ctx context.Context, q AppointmentQuery) ([]Appointment, error) {
	q = q.withDefaults()

	var all []Appointment
	for {
		page, err := c.Appointments(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < q.Take {
			return all, nil
		}
		q.Skip += q.Take
	}
}

// normalizeClock reduces a gateway timestamp to a bare wall-clock string:
// every "Z" is removed and everything from the first "." on is dropped,
// so "2025-09-24T10:00:00.000Z" equals "2025-09-24T10:00:00". This is
// string surgery on purpose, not time parsing: the gateway echoes the
// scheduled wall-clock back without a real offset, and converting either
// side to UTC would stop the round-trip from matching.
func normalizeClock(s string) string {
	s = strings.ReplaceAll(s, "Z", "")
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i]
	}
	return s
}

// FindAppointmentByTime returns the first appointment in response order
// whose hour matches targetTime after normalization and whose patient
// matches patientID, or nil when none does.
func FindAppointmentByTime(appointments []Appointment, targetTime, patientID string) *Appointment {
	want := normalizeClock(targetTime)
	for i := range appointments {
		if normalizeClock(appointments[i].AppointmentHour) == want &&
			appointments[i].PatientIdentifier.ID == patientID {
			return &appointments[i]
		}
	}
	return nil
}
