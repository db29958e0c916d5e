package glintt

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Booking carries everything needed to book one slot for a patient.
type Booking struct {
	Slot                Slot
	PatientID           string
	ServiceCode         string
	MedicalActCode      string
	FinancialEntityCode string
}

func (b Booking) validate() error {
	var missing []string
	if b.Slot.SlotDateTime == "" {
		missing = append(missing, "slot date/time")
	}
	if b.PatientID == "" {
		missing = append(missing, "patient ID")
	}
	if b.ServiceCode == "" {
		missing = append(missing, "service code")
	}
	if b.MedicalActCode == "" {
		missing = append(missing, "medical act code")
	}
	if b.FinancialEntityCode == "" {
		missing = append(missing, "financial entity code")
	}
	if len(missing) > 0 {
		return fmt.Errorf("glintt: booking missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Episode identifies an existing appointment on the reschedule endpoint.
type Episode struct {
	Type string // defaults to "Consultas"
	ID   string
}

// ScheduleResult is the gateway's booking acknowledgement.
type ScheduleResult struct {
	// AppointmentID is the created appointment's identifier, empty when
	// the gateway acknowledged without one.
	AppointmentID string
	// Raw is the decoded response body, preserved for result files.
	Raw map[string]any
}

// financialEntity is the payer block on booking payloads. EntityCard is
// always blank and Exemption always "S" for the test financial entity.
type financialEntity struct {
	EntityCode string `json:"EntityCode"`
	EntityCard string `json:"EntityCard"`
	Exemption  string `json:"Exemption"`
}

// scheduleEntry is one element of a fresh booking payload. The gateway
// takes an array even though the harness only ever books one appointment.
// A fresh schedule carries FirstTime, a lowercase episode keyed by the
// patient's Ficha-ID, and the validation module name.
type scheduleEntry struct {
	Patient           patientRef      `json:"Patient"`
	ScheduleDate      string          `json:"ScheduleDate"`
	MedicalActCode    string          `json:"MedicalActCode"`
	ServiceCode       string          `json:"ServiceCode"`
	HumanResourceCode string          `json:"HumanResourceCode"`
	Duration          int             `json:"Duration"`
	BookingID         string          `json:"BookingID"`
	FinancialEntity   financialEntity `json:"FinancialEntity"`
	Origin            string          `json:"Origin"`
	FirstTime         bool            `json:"FirstTime"`
	Episode           episodeRef      `json:"episode"`
	Module            string          `json:"Module"`
}

// rescheduleEntry is one element of a reschedule payload. Unlike a fresh
// schedule it carries RescheduleFlag and a capital-E Episode naming the
// appointment being moved; the casing difference is the gateway's, not
// ours, and both spellings must be preserved exactly.
type rescheduleEntry struct {
	Patient           patientRef      `json:"Patient"`
	ScheduleDate      string          `json:"ScheduleDate"`
	MedicalActCode    string          `json:"MedicalActCode"`
	ServiceCode       string          `json:"ServiceCode"`
	HumanResourceCode string          `json:"HumanResourceCode"`
	Duration          int             `json:"Duration"`
	BookingID         string          `json:"BookingID"`
	FinancialEntity   financialEntity `json:"FinancialEntity"`
	Origin            string          `json:"Origin"`
	RescheduleFlag    bool            `json:"RescheduleFlag"`
	Episode           episodeRef      `json:"Episode"`
}

// ScheduleAppointment books b's slot via ExternalScheduleAppointment.
// A 200 response can still reject the booking through an errorDetails
// field; that is surfaced as an error.
func (c *Client) ScheduleAppointment(ctx context.Context, b Booking) (*ScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "glintt.schedule_appointment")
	defer span.End()

	if err := b.validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	entry := scheduleEntry{
		Patient:           patientRef{PatientType: patientTypeMC, PatientID: b.PatientID},
		ScheduleDate:      b.Slot.SlotDateTime,
		MedicalActCode:    b.MedicalActCode,
		ServiceCode:       b.ServiceCode,
		HumanResourceCode: b.Slot.HumanResourceCode,
		Duration:          b.Slot.Duration,
		BookingID:         b.Slot.BookingID,
		FinancialEntity:   financialEntity{EntityCode: b.FinancialEntityCode, EntityCard: "", Exemption: "S"},
		Origin:            originCode,
		FirstTime:         false,
		Episode:           episodeRef{EpisodeType: episodeFicha, EpisodeID: b.PatientID},
		Module:            validateModule,
	}

	c.logger.Info("scheduling appointment",
		"slot", b.Slot.SlotDateTime, "doctor", b.Slot.HumanResourceCode)

	data, err := c.invoke(ctx, "ExternalScheduleAppointment", http.MethodPost, schedulePath, nil, []scheduleEntry{entry})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := decodeBookingResult(data, "schedule")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.logger.Info("appointment scheduled", "appointment_id", result.AppointmentID)
	span.SetAttributes(attribute.String("glintt.appointment_id", result.AppointmentID))
	return result, nil
}

// RescheduleAppointment moves the appointment identified by ep onto b's
// slot.
func (c *Client) RescheduleAppointment(ctx context.Context, b Booking, ep Episode) (*ScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "glintt.reschedule_appointment")
	defer span.End()

	if err := b.validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if ep.ID == "" {
		err := fmt.Errorf("glintt: reschedule requires the episode ID of the appointment being moved")
		span.RecordError(err)
		return nil, err
	}
	episodeType := ep.Type
	if episodeType == "" {
		episodeType = episodeConsulta
	}

	entry := rescheduleEntry{
		Patient:           patientRef{PatientType: patientTypeMC, PatientID: b.PatientID},
		ScheduleDate:      b.Slot.SlotDateTime,
		MedicalActCode:    b.MedicalActCode,
		ServiceCode:       b.ServiceCode,
		HumanResourceCode: b.Slot.HumanResourceCode,
		Duration:          b.Slot.Duration,
		BookingID:         b.Slot.BookingID,
		FinancialEntity:   financialEntity{EntityCode: b.FinancialEntityCode, EntityCard: "", Exemption: "S"},
		Origin:            originCode,
		RescheduleFlag:    true,
		Episode:           episodeRef{EpisodeType: episodeType, EpisodeID: ep.ID},
	}

	c.logger.Info("rescheduling appointment",
		"episode_id", ep.ID, "new_slot", b.Slot.SlotDateTime)

	data, err := c.invoke(ctx, "ExternalScheduleAppointment", http.MethodPost, schedulePath, nil, []rescheduleEntry{entry})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := decodeBookingResult(data, "reschedule")
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.logger.Info("appointment rescheduled",
		"episode_id", ep.ID, "new_appointment_id", result.AppointmentID)
	span.SetAttributes(attribute.String("glintt.appointment_id", result.AppointmentID))
	return result, nil
}

// decodeBookingResult parses the shared response shape of schedule and
// reschedule calls. The error field on this endpoint is lowercase
// errorDetails, unlike the slot search's ErrorDetails.
func decodeBookingResult(data []byte, op string) (*ScheduleResult, error) {
	result, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("glintt: failed to decode %s response: %w", op, err)
	}
	if details, ok := result["errorDetails"]; ok && truthy(details) {
		return nil, fmt.Errorf("glintt: %s rejected: %s", op, renderValue(details))
	}
	return &ScheduleResult{
		AppointmentID: stringField(result, "appointmentID"),
		Raw:           result,
	}, nil
}
