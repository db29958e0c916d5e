// Package glinttest provides an in-memory stand-in for the Glintt API
// gateway, covering the endpoints the harness drives. Bookings made
// through it become visible on the appointment endpoint and reschedules
// mark the original appointment RESCHEDULED, so a full harness cycle can
// run against it without touching the real TEST environment.
package glinttest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/glintt-harness/internal/glintt"
)

// RecordedRequest is one request the server saw, body included.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
}

// Server implements http.Handler, so tests mount it on httptest.NewServer
// and the mock command listens on a real port with it.
type Server struct {
	mu             sync.Mutex
	router         chi.Router
	tokens         map[string]bool
	slots          []glintt.Slot
	appointments   []glintt.Appointment
	patients       []glintt.Patient
	staff          []glintt.StaffMember
	requests       []RecordedRequest
	slotErr        string
	scheduleErr    string
	appointmentSeq int
	patientSeq     int
}

// New returns an empty server. Seed it before pointing a client at it.
func New() *Server {
	s := &Server{
		tokens:         make(map[string]bool),
		appointmentSeq: 5000000,
		patientSeq:     90000,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Post("/Glintt.GPlatform.APIGateway.CoreWebAPI/token", s.handleToken)
	r.Post("/Glintt.HMS.CoreWebAPI/api/hms/appointment/ExternalSearchSlots", s.requireAuth(s.handleSearchSlots))
	r.Post("/Glintt.HMS.CoreWebAPI/api/hms/appointment/ExternalScheduleAppointment", s.requireAuth(s.handleSchedule))
	r.Get("/Hms.OutPatient.Api/hms/outpatient/Appointment", s.requireAuth(s.handleAppointments))
	r.Post("/Glintt.HMS.CoreWebAPI.ExternalAccess/api/hms/Patient/CreateUpdatePatient", s.requireAuth(s.handleCreatePatient))
	r.Get("/Hms.PatientAdministration.Api/hms/patientadministration/Patient/search", s.requireAuth(s.handlePatientSearch))
	r.Post("/Glintt.HMS.CoreWebAPI/api/hms/humanresources/search", s.requireAuth(s.handleStaffSearch))
	r.Post("/Glintt.HMS.CoreWebAPI/api/hms/humanresources/search-detail", s.requireAuth(s.handleStaffDetail))
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SeedSlots replaces the slot inventory returned by the slot search.
func (s *Server) SeedSlots(slots ...glintt.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append([]glintt.Slot(nil), slots...)
}

// SeedAppointments replaces the outpatient appointment list.
func (s *Server) SeedAppointments(appointments ...glintt.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = append([]glintt.Appointment(nil), appointments...)
}

// SeedPatients replaces the patient administration records.
func (s *Server) SeedPatients(patients ...glintt.Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = append([]glintt.Patient(nil), patients...)
}

// SeedStaff replaces the human resources directory.
func (s *Server) SeedStaff(staff ...glintt.StaffMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff = append([]glintt.StaffMember(nil), staff...)
}

// FailSlotSearch makes the slot search return an ErrorDetails envelope
// with the given message. Pass "" to clear.
func (s *Server) FailSlotSearch(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotErr = message
}

// FailSchedule makes booking calls return an errorDetails envelope with
// the given message. Pass "" to clear.
func (s *Server) FailSchedule(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleErr = message
}

// Appointments returns a copy of the current appointment list.
func (s *Server) Appointments() []glintt.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]glintt.Appointment(nil), s.appointments...)
}

// Requests returns a copy of every request the server has seen.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Body:   string(body),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if ok {
			s.mu.Lock()
			ok = s.tokens[token]
			s.mu.Unlock()
		}
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil ||
		r.PostForm.Get("grant_type") != "password" ||
		r.PostForm.Get("client_id") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	token := "test-token-" + uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleSearchSlots(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SlotsList []struct {
			HumanResourceCode string `json:"HumanResourceCode"`
		} `json:"ExternalMedicalActSlotsList"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	doctor := ""
	if len(req.SlotsList) > 0 {
		doctor = req.SlotsList[0].HumanResourceCode
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slotErr != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"ErrorDetails": map[string]any{"Error": s.slotErr},
		})
		return
	}

	slots := make([]glintt.Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		if doctor != "" && slot.HumanResourceCode != doctor {
			continue
		}
		slots = append(slots, slot)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ExternalSearchSlot": slots})
}

// bookingEntry accepts both booking payload shapes: a fresh schedule
// carries a lowercase episode, a reschedule RescheduleFlag plus a
// capital-E Episode.
type bookingEntry struct {
	Patient struct {
		PatientType string `json:"PatientType"`
		PatientID   string `json:"PatientID"`
	} `json:"Patient"`
	ScheduleDate      string       `json:"ScheduleDate"`
	HumanResourceCode string       `json:"HumanResourceCode"`
	BookingID         string       `json:"BookingID"`
	RescheduleFlag    bool         `json:"RescheduleFlag"`
	ScheduleEpisode   *wireEpisode `json:"episode"`
	MoveEpisode       *wireEpisode `json:"Episode"`
}

type wireEpisode struct {
	EpisodeType string `json:"EpisodeType"`
	EpisodeID   string `json:"EpisodeID"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var entries []bookingEntry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil || len(entries) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed booking payload"})
		return
	}
	entry := entries[0]

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduleErr != "" {
		writeJSON(w, http.StatusOK, map[string]string{"errorDetails": s.scheduleErr})
		return
	}

	if entry.RescheduleFlag {
		if entry.MoveEpisode == nil || entry.MoveEpisode.EpisodeID == "" {
			writeJSON(w, http.StatusOK, map[string]string{"errorDetails": "reschedule requires an episode"})
			return
		}
		for i := range s.appointments {
			if s.appointments[i].AppointmentID == entry.MoveEpisode.EpisodeID {
				s.appointments[i].Status = glintt.StatusRescheduled
			}
		}
	}

	// The booked slot stops being available.
	for i := range s.slots {
		if s.slots[i].SlotDateTime == entry.ScheduleDate &&
			s.slots[i].HumanResourceCode == entry.HumanResourceCode {
			s.slots[i].Occupation = true
			s.slots[i].OccupationReason = "OCUPADO"
		}
	}

	s.appointmentSeq++
	id := strconv.Itoa(s.appointmentSeq)
	s.appointments = append(s.appointments, glintt.Appointment{
		AppointmentID:     id,
		AppointmentHour:   entry.ScheduleDate + ".000Z",
		DoctorCode:        entry.HumanResourceCode,
		Status:            glintt.StatusScheduled,
		PatientIdentifier: glintt.PatientIdentifier{ID: entry.Patient.PatientID},
	})

	writeJSON(w, http.StatusOK, map[string]string{"appointmentID": id})
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")
	doctor := q.Get("doctorCode")
	skip, _ := strconv.Atoi(q.Get("skip"))
	take, err := strconv.Atoi(q.Get("take"))
	if err != nil || take <= 0 {
		take = 100
	}

	s.mu.Lock()
	matched := []glintt.Appointment{}
	for _, apt := range s.appointments {
		if status != "" && apt.Status != status {
			continue
		}
		if doctor != "" && apt.DoctorCode != doctor {
			continue
		}
		matched = append(matched, apt)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, page(matched, skip, take))
}

func (s *Server) handleCreatePatient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"Name"`
		PatientData struct {
			Gender       string `json:"Gender"`
			Birthdate    string `json:"Birthdate"`
			PhoneNumber1 string `json:"PhoneNumber1"`
			Email        string `json:"Email"`
		} `json:"PatientData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed patient payload"})
		return
	}
	if r.URL.Query().Get("callingApp") == "" {
		writeJSON(w, http.StatusOK, map[string]string{"errorDetails": "callingApp is required"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusOK, map[string]string{"errorDetails": "patient name is required"})
		return
	}

	s.mu.Lock()
	s.patientSeq++
	id := strconv.Itoa(s.patientSeq)
	s.patients = append(s.patients, glintt.Patient{
		ID:                   id,
		Name:                 req.Name,
		Type:                 "MC",
		AdministrativeGender: req.PatientData.Gender,
		BirthDate:            req.PatientData.Birthdate,
		Contacts: &glintt.PatientContacts{
			PhoneNumber1: req.PatientData.PhoneNumber1,
			Email:        req.PatientData.Email,
		},
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"PatientID": id})
}

func (s *Server) handlePatientSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	patientID := q.Get("patientId")
	skip, _ := strconv.Atoi(q.Get("skip"))
	take, err := strconv.Atoi(q.Get("take"))
	if err != nil || take <= 0 {
		take = 10
	}

	s.mu.Lock()
	matched := []glintt.Patient{}
	for _, p := range s.patients {
		if patientID != "" && p.ID != patientID {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, page(matched, skip, take))
}

func (s *Server) handleStaffSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SearchString     string   `json:"SearchString"`
		HumanResourceIDs []string `json:"HumanResourceIDs"`
		Types            []string `json:"Types"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed search payload"})
		return
	}

	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("skip"))
	take, err := strconv.Atoi(q.Get("take"))
	if err != nil || take <= 0 {
		take = 9999
	}

	needle := strings.ToLower(req.SearchString)

	s.mu.Lock()
	matched := []glintt.StaffMember{}
	for _, m := range s.staff {
		if needle != "" && !strings.Contains(strings.ToLower(m.Name), needle) {
			continue
		}
		if len(req.HumanResourceIDs) > 0 && !slices.Contains(req.HumanResourceIDs, m.ID) {
			continue
		}
		if len(req.Types) > 0 && !slices.Contains(req.Types, m.Type) {
			continue
		}
		matched = append(matched, m)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, page(matched, skip, take))
}

func (s *Server) handleStaffDetail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HumanResourceIDs []string `json:"HumanResourceIDs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed detail payload"})
		return
	}

	s.mu.Lock()
	matched := []glintt.StaffMember{}
	for _, m := range s.staff {
		if slices.Contains(req.HumanResourceIDs, m.ID) {
			matched = append(matched, m)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, matched)
}

func page[T any](items []T, skip, take int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if len(items) > take {
		items = items[:take]
	}
	return items
}


func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
