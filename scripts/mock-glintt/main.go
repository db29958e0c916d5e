// Command mock-glintt serves the fake Glintt gateway on a local port so
// the other harnesses can run offline:
//
//	go run ./scripts/mock-glintt [-addr :8080]
//	GLINTT_BASE_URL=http://localhost:8080 go run ./scripts/glintt-schedule -auto
//
// Any GLINTT_CLIENT_ID/secret/tenant values work against it; the token
// endpoint accepts everything non-empty. It starts seeded with a small
// slot inventory, a patient, and a few staff records.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/glintt/glinttest"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := logging.Default()

	fake := glinttest.New()
	seed(fake)

	handler := logRequests(logger, fake)

	fmt.Printf("Mock Glintt gateway listening on %s\n", *addr)
	fmt.Printf("Point harnesses at it with GLINTT_BASE_URL=http://localhost%s\n", normalizeAddr(*addr))

	if err := http.ListenAndServe(*addr, handler); err != nil {
		logger.Error("mock gateway stopped", "error", err)
		os.Exit(1)
	}
}

// seed loads a believable starting inventory: free and occupied slots
// tomorrow, one known patient, and a small staff directory.
func seed(fake *glinttest.Server) {
	day := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	fake.SeedSlots(
		glintt.Slot{SlotDateTime: day + "T09:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-0900"},
		glintt.Slot{SlotDateTime: day + "T09:20:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-0920", Occupation: true, OccupationReason: "OCUPADO"},
		glintt.Slot{SlotDateTime: day + "T10:00:00", HumanResourceCode: "1917", Duration: 20, BookingID: "BK-1000"},
		glintt.Slot{SlotDateTime: day + "T11:00:00", HumanResourceCode: "2045", Duration: 30, BookingID: "BK-1100"},
	)
	fake.SeedPatients(
		glintt.Patient{
			ID:                   "150847",
			Name:                 "João Silva Teste",
			Type:                 "MC",
			AdministrativeGender: "M",
			BirthDate:            "1990-05-15",
			Contacts: &glintt.PatientContacts{
				PhoneNumber1: "+351900000000",
				Email:        "teste@example.com",
			},
		},
	)
	fake.SeedStaff(
		glintt.StaffMember{ID: "1917", Name: "José Carlos Mendes", Type: "MED"},
		glintt.StaffMember{ID: "2045", Name: "Maria Fernanda Costa", Type: "MED"},
		glintt.StaffMember{ID: "3310", Name: "Ana Beatriz Santos", Type: "ENF"},
		glintt.StaffMember{ID: "4102", Name: "Rui Pedro Almeida", Type: "TEC"},
	)
}

func logRequests(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// normalizeAddr turns ":8080" into ":8080" and "0.0.0.0:8080" into
// ":8080" for the printed hint.
func normalizeAddr(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[i:]
		}
	}
	return addr
}
