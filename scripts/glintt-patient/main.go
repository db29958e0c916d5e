// Command glintt-patient exercises the patient endpoints: create a test
// patient through CreateUpdatePatient and look patients up in the patient
// administration search.
//
// Usage:
//
//	go run ./scripts/glintt-patient -create [-name "João Silva Teste"] [-gender M] \
//	    [-birthdate 1990-05-15] [-phone +351900000000] [-email teste@example.com]
//	go run ./scripts/glintt-patient -search 150847
//
// Both flags can be combined; create runs first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/harness"
	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func main() {
	create := flag.Bool("create", false, "create a test patient")
	search := flag.String("search", "", "patient ID to look up")
	name := flag.String("name", "João Silva Teste", "patient name for -create")
	gender := flag.String("gender", "M", "patient gender for -create (M or F)")
	birthdate := flag.String("birthdate", "1990-05-15", "patient birthdate for -create (YYYY-MM-DD)")
	phone := flag.String("phone", "+351900000000", "patient phone for -create")
	email := flag.String("email", "teste@example.com", "patient email for -create")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if !*create && *search == "" {
		fmt.Println("FAIL: nothing to do (use -create and/or -search <id>)")
		os.Exit(1)
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	out := os.Stdout

	harness.Banner(out, "GLINTT PATIENT PROBE")

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
	step := 1

	harness.Step(out, step, "Authentication")
	if err := client.Authenticate(ctx); err != nil {
		fmt.Fprintf(out, "FAIL: Authentication failed: %v\n", err)
		os.Exit(1)
	}

	if *create {
		step++
		harness.Step(out, step, "Create patient")
		fmt.Fprintf(out, "  Name: %s\n", *name)
		fmt.Fprintf(out, "  Birthdate: %s\n", *birthdate)
		fmt.Fprintf(out, "  Phone: %s\n", *phone)

		created, err := client.CreatePatient(ctx, glintt.NewPatient{
			Name:              *name,
			Gender:            *gender,
			Birthdate:         *birthdate,
			FinancialEntityID: cfg.TestFinancialEntityCode,
			PhoneNumber:       *phone,
			Email:             *email,
		})
		if err != nil {
			fmt.Fprintf(out, "❌ Create failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(out, "✅ Patient created, ID: %s\n", created.PatientID)

		filename, err := harness.WriteResultFile("", "patient_created", created.Raw)
		if err != nil {
			fmt.Fprintf(out, "FAIL: Could not save result: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(out, "Result saved to: %s\n", filename)
	}

	if *search != "" {
		step++
		harness.Step(out, step, fmt.Sprintf("Search patient %s", *search))

		patients, err := client.SearchPatients(ctx, *search, 0, 10)
		if err != nil {
			fmt.Fprintf(out, "❌ Search failed: %v\n", err)
			os.Exit(1)
		}
		if len(patients) == 0 {
			fmt.Fprintln(out, "No patients found")
			return
		}
		fmt.Fprintf(out, "✅ Found %d patient(s)\n", len(patients))
		for _, p := range patients {
			fmt.Fprintf(out, "\n  ID: %s\n", p.ID)
			fmt.Fprintf(out, "  Name: %s\n", p.Name)
			fmt.Fprintf(out, "  Gender: %s\n", p.AdministrativeGender)
			fmt.Fprintf(out, "  Birthdate: %s\n", p.BirthDate)
			if p.FiscalNumber != "" {
				fmt.Fprintf(out, "  Fiscal Number: %s\n", p.FiscalNumber)
			}
			if p.Contacts != nil {
				if p.Contacts.PhoneNumber1 != "" {
					fmt.Fprintf(out, "  Phone: %s\n", p.Contacts.PhoneNumber1)
				}
				if p.Contacts.Email != "" {
					fmt.Fprintf(out, "  Email: %s\n", p.Contacts.Email)
				}
			}
		}
	}
}
