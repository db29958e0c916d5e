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

// NewPatient is the input to CreatePatient. Birthdate is YYYY-MM-DD and
// Gender is the gateway's single-letter code (M or F).
type NewPatient struct {
	Name              string
	Gender            string
	Birthdate         string
	FinancialEntityID string
	PhoneNumber       string
	Email             string
}

func (p NewPatient) validate() error {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Gender == "" {
		missing = append(missing, "gender")
	}
	if p.Birthdate == "" {
		missing = append(missing, "birthdate")
	}
	if p.FinancialEntityID == "" {
		missing = append(missing, "financial entity ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("glintt: new patient missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// CreatePatientResult is the gateway's acknowledgement of a new patient.
type CreatePatientResult struct {
	PatientID string
	Raw       map[string]any
}

type newPatientRequest struct {
	Patient patientRef     `json:"Patient"`
	Name    string         `json:"Name"`
	Data    newPatientData `json:"PatientData"`
}

type newPatientData struct {
	Gender            string `json:"Gender"`
	Birthdate         string `json:"Birthdate"`
	FinancialEntityID string `json:"FinancialEntityID"`
	PhoneNumber1      string `json:"PhoneNumber1"`
	Email             string `json:"Email"`
}

// CreatePatient registers a new MC patient through CreateUpdatePatient.
// The callingApp query parameter identifies this integration to the
// gateway; rejections come back as errorDetails in a 200 response.
func (c *Client) CreatePatient(ctx context.Context, p NewPatient) (*CreatePatientResult, error) {
	ctx, span := tracer.Start(ctx, "glintt.create_patient")
	defer span.End()

	if err := p.validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	query := url.Values{}
	query.Set("callingApp", c.callingApp)

	payload := newPatientRequest{
		Patient: patientRef{PatientType: patientTypeMC},
		Name:    p.Name,
		Data: newPatientData{
			Gender:            p.Gender,
			Birthdate:         p.Birthdate,
			FinancialEntityID: p.FinancialEntityID,
			PhoneNumber1:      p.PhoneNumber,
			Email:             p.Email,
		},
	}

	c.logger.Info("creating patient", "name", p.Name)

	data, err := c.invoke(ctx, "CreateUpdatePatient", http.MethodPost, createPatientPath, query, payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := decodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("glintt: failed to decode create patient response: %w", err)
	}
	if details, ok := result["errorDetails"]; ok && truthy(details) {
		err := fmt.Errorf("glintt: create patient rejected: %s", renderValue(details))
		span.RecordError(err)
		return nil, err
	}

	created := &CreatePatientResult{
		PatientID: stringField(result, "PatientID"),
		Raw:       result,
	}
	c.logger.Info("patient created", "patient_id", created.PatientID)
	span.SetAttributes(attribute.String("glintt.patient_id", created.PatientID))
	return created, nil
}

// PatientContacts is the contact block nested in patient records.
type PatientContacts struct {
	PhoneNumber1 string `json:"phoneNumber1"`
	PhoneNumber2 string `json:"phoneNumber2"`
	Email        string `json:"email"`
}

// Patient is one record from the patient administration search.
type Patient struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Type                 string           `json:"type"`
	AdministrativeGender string           `json:"administrativeGender"`
	BirthDate            string           `json:"birthDate"`
	FiscalNumber         string           `json:"fiscalNumber"`
	Deceased             bool             `json:"deceased"`
	Contacts             *PatientContacts `json:"contacts,omitempty"`
}

// SearchPatients looks a patient up by ID in the patient administration
// API. Take defaults to 10.
func (c *Client) SearchPatients(ctx context.Context, patientID string, skip, take int) ([]Patient, error) {
	ctx, span := tracer.Start(ctx, "glintt.patient_search")
	defer span.End()

	if patientID == "" {
		err := fmt.Errorf("glintt: patient search requires a patient ID")
		span.RecordError(err)
		return nil, err
	}
	if take <= 0 {
		take = 10
	}

	query := url.Values{}
	query.Set("patientId", patientID)
	query.Set("skip", strconv.Itoa(skip))
	query.Set("take", strconv.Itoa(take))

	data, err := c.invoke(ctx, "PatientSearch", http.MethodGet, patientSearchPath, query, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var patients []Patient
	if err := json.Unmarshal(data, &patients); err != nil {
		err := fmt.Errorf("glintt: unexpected patient search response format: %s", errorDetail(data))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("glintt.patients.count", len(patients)))
	return patients, nil
}
