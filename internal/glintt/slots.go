package glintt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Slot is one bookable unit returned by ExternalSearchSlots.
type Slot struct {
	SlotDateTime      string `json:"SlotDateTime"`
	HumanResourceCode string `json:"HumanResourceCode"`
	Duration          int    `json:"Duration"`
	BookingID         string `json:"BookingID"`
	Occupation        bool   `json:"Occupation"`
	OccupationReason  string `json:"OccupationReason"`
}

// SlotSearch describes one availability query. StartDate and EndDate are
// YYYY-MM-DD. DoctorCode narrows the search to a single human resource.
// For reschedules the episode of the appointment being moved must be
// provided so the gateway excludes its own slot correctly.
type SlotSearch struct {
	StartDate      string
	EndDate        string
	PatientID      string
	ServiceCode    string
	MedicalActCode string
	DoctorCode     string
	Reschedule     bool
	EpisodeID      string
	EpisodeType    string // defaults to "Consultas"
}

func (q SlotSearch) validate() error {
	switch {
	case q.StartDate == "" || q.EndDate == "":
		return fmt.Errorf("glintt: slot search requires a start and end date")
	case q.PatientID == "":
		return fmt.Errorf("glintt: slot search requires a patient ID")
	case q.ServiceCode == "" || q.MedicalActCode == "":
		return fmt.Errorf("glintt: slot search requires service and medical act codes")
	}
	return nil
}

type patientRef struct {
	PatientType string `json:"PatientType"`
	PatientID   string `json:"PatientID,omitempty"`
}

type episodeRef struct {
	EpisodeType string `json:"EpisodeType"`
	EpisodeID   string `json:"EpisodeID"`
}

// slotListEntry is one element of ExternalMedicalActSlotsList. The episode
// key is lowercase on this endpoint.
type slotListEntry struct {
	StartDate         string      `json:"StartDate"`
	EndDate           string      `json:"EndDate"`
	MedicalActCode    string      `json:"MedicalActCode"`
	ServiceCode       string      `json:"ServiceCode"`
	RescheduleFlag    bool        `json:"RescheduleFlag"`
	Origin            string      `json:"origin"`
	HumanResourceCode string      `json:"HumanResourceCode,omitempty"`
	Episode           *episodeRef `json:"episode,omitempty"`
}

type slotSearchRequest struct {
	LoadAppointments  bool            `json:"LoadAppointments"`
	FullSearch        bool            `json:"FullSearch"`
	NumberOfRegisters int             `json:"NumberOfRegisters"`
	Patient           patientRef      `json:"Patient"`
	Period            []string        `json:"Period"`
	DaysOfWeek        []string        `json:"DaysOfWeek"`
	SlotsList         []slotListEntry `json:"ExternalMedicalActSlotsList"`
}

type slotSearchResponse struct {
	Slots        []Slot         `json:"ExternalSearchSlot"`
	ErrorDetails map[string]any `json:"ErrorDetails"`
}

// SearchSlots queries ExternalSearchSlots and returns only the slots that
// are not occupied. A 200 response can still carry an error envelope; that
// is reported as an error, not an empty result.
func (c *Client) SearchSlots(ctx context.Context, q SlotSearch) ([]Slot, error) {
	ctx, span := tracer.Start(ctx, "glintt.search_slots")
	defer span.End()

	if err := q.validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	episodeType := q.EpisodeType
	if episodeType == "" {
		episodeType = episodeConsulta
	}

	entry := slotListEntry{
		StartDate:         q.StartDate,
		EndDate:           q.EndDate,
		MedicalActCode:    q.MedicalActCode,
		ServiceCode:       q.ServiceCode,
		RescheduleFlag:    q.Reschedule,
		Origin:            originCode,
		HumanResourceCode: q.DoctorCode,
	}
	if q.Reschedule && q.EpisodeID != "" {
		entry.Episode = &episodeRef{EpisodeType: episodeType, EpisodeID: q.EpisodeID}
	}

	body := slotSearchRequest{
		LoadAppointments:  false,
		FullSearch:        true,
		NumberOfRegisters: 20,
		Patient:           patientRef{PatientType: patientTypeMC, PatientID: q.PatientID},
		Period:            []string{},
		DaysOfWeek:        []string{},
		SlotsList:         []slotListEntry{entry},
	}

	c.logger.Info("searching slots",
		"start", q.StartDate, "end", q.EndDate, "reschedule", q.Reschedule)

	data, err := c.invoke(ctx, "ExternalSearchSlots", http.MethodPost, searchSlotsPath, nil, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var result slotSearchResponse
	if err := unmarshalStrictNumbers(data, &result); err != nil {
		return nil, fmt.Errorf("glintt: failed to decode slot search response: %w", err)
	}

	if len(result.ErrorDetails) > 0 && truthy(result.ErrorDetails["Error"]) {
		err := fmt.Errorf("glintt: slot search error: %s", formatDetails(result.ErrorDetails))
		span.RecordError(err)
		return nil, err
	}

	available := make([]Slot, 0, len(result.Slots))
	for _, s := range result.Slots {
		if !s.Occupation {
			available = append(available, s)
		}
	}

	c.logger.Info("slot search complete",
		"total", len(result.Slots), "available", len(available))
	span.SetAttributes(attribute.Int("glintt.slots.available", len(available)))
	return available, nil
}

// DefaultSearchPeriod returns the slot search window: the configured
// dates when both are set, otherwise tomorrow through seven days out.
func DefaultSearchPeriod(start, end string) (string, string) {
	if start != "" && end != "" {
		return start, end
	}
	now := time.Now()
	return now.AddDate(0, 0, 1).Format("2006-01-02"), now.AddDate(0, 0, 7).Format("2006-01-02")
}
