// Command glintt-staff probes the human resources directory: a name
// search swept through casing/accent variations, or a detail lookup by
// explicit IDs.
//
// Usage:
//
//	go run ./scripts/glintt-staff -name "José Silva"
//	go run ./scripts/glintt-staff -ids 1917,2045
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/wolfman30/glintt-harness/internal/config"
	"github.com/wolfman30/glintt-harness/internal/glintt"
	"github.com/wolfman30/glintt-harness/internal/harness"
	"github.com/wolfman30/glintt-harness/internal/observability/metrics"
	"github.com/wolfman30/glintt-harness/pkg/logging"
)

func main() {
	name := flag.String("name", "", "staff name to search (variation sweep)")
	ids := flag.String("ids", "", "comma-separated human resource IDs for a detail lookup")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if *name == "" && *ids == "" {
		fmt.Println("FAIL: nothing to do (use -name <name> and/or -ids <id,...>)")
		os.Exit(1)
	}

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	out := os.Stdout

	harness.Banner(out, "GLINTT HUMAN RESOURCES PROBE")

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

	if *name != "" {
		step++
		harness.Step(out, step, fmt.Sprintf("Name sweep for %q", *name))

		members, err := client.SearchStaffVariations(ctx, *name)
		if err != nil {
			fmt.Fprintf(out, "❌ Search failed: %v\n", err)
			os.Exit(1)
		}
		printStaff(out, members)

		filename, err := harness.WriteResultFile("", "human_resources_search", members)
		if err != nil {
			fmt.Fprintf(out, "FAIL: Could not save results: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(out, "\nResults saved to: %s\n", filename)
	}

	if *ids != "" {
		step++
		harness.Step(out, step, "Detail lookup")

		var idList []string
		for _, id := range strings.Split(*ids, ",") {
			if id = strings.TrimSpace(id); id != "" {
				idList = append(idList, id)
			}
		}
		members, err := client.StaffDetails(ctx, idList)
		if err != nil {
			fmt.Fprintf(out, "❌ Detail lookup failed: %v\n", err)
			os.Exit(1)
		}
		printStaff(out, members)
	}
}

// printStaff lists the matches grouped by staff type with a per-type
// tally.
func printStaff(out *os.File, members []glintt.StaffMember) {
	if len(members) == 0 {
		fmt.Fprintln(out, "No staff members found")
		return
	}
	fmt.Fprintf(out, "✅ Found %d staff member(s)\n", len(members))

	byType := make(map[string]int)
	for _, m := range members {
		byType[m.Type]++
		fmt.Fprintf(out, "  [%s] %s - %s\n", m.Type, m.ID, m.Name)
	}

	fmt.Fprintln(out, "\nBy type:")
	for _, t := range []string{"MED", "ENF", "TEC"} {
		if byType[t] > 0 {
			fmt.Fprintf(out, "  %s: %d\n", t, byType[t])
		}
	}
	for t, n := range byType {
		if t != "MED" && t != "ENF" && t != "TEC" {
			fmt.Fprintf(out, "  %s: %d\n", t, n)
		}
	}
}
