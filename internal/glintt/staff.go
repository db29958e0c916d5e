package glintt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// defaultStaffTypes covers doctors, nurses, and technicians.
var defaultStaffTypes = []string{"MED", "ENF", "TEC"}

// StaffMember is one human resource record.
type StaffMember struct {
	ID   string `json:"ID"`
	Name string `json:"Name"`
	Type string `json:"Type"`
}

// StaffSearch is a human resources query. Types defaults to
// defaultStaffTypes and Take to 9999 so a name sweep sees the full
// directory.
type StaffSearch struct {
	SearchString string
	IDs          []string
	Types        []string
	Skip         int
	Take         int
}

type staffSearchRequest struct {
	SearchString     string   `json:"SearchString"`
	HumanResourceIDs []string `json:"HumanResourceIDs"`
	Types            []string `json:"Types"`
}

// SearchStaff queries the human resources directory.
func (c *Client) SearchStaff(ctx context.Context, q StaffSearch) ([]StaffMember, error) {
	ctx, span := tracer.Start(ctx, "glintt.staff_search")
	defer span.End()

	take := q.Take
	if take <= 0 {
		take = 9999
	}
	types := q.Types
	if len(types) == 0 {
		types = defaultStaffTypes
	}
	ids := q.IDs
	if ids == nil {
		ids = []string{}
	}

	query := url.Values{}
	query.Set("skip", strconv.Itoa(q.Skip))
	query.Set("take", strconv.Itoa(take))

	body := staffSearchRequest{
		SearchString:     q.SearchString,
		HumanResourceIDs: ids,
		Types:            types,
	}

	data, err := c.invoke(ctx, "HumanResourcesSearch", http.MethodPost, staffSearchPath, query, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var members []StaffMember
	if err := json.Unmarshal(data, &members); err != nil {
		err := fmt.Errorf("glintt: unexpected staff search response format: %s", errorDetail(data))
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("glintt.staff.count", len(members)))
	return members, nil
}

// StaffDetails fetches full records for specific human resource IDs.
func (c *Client) StaffDetails(ctx context.Context, ids []string) ([]StaffMember, error) {
	ctx, span := tracer.Start(ctx, "glintt.staff_details")
	defer span.End()

	if len(ids) == 0 {
		err := fmt.Errorf("glintt: staff details requires at least one human resource ID")
		span.RecordError(err)
		return nil, err
	}

	query := url.Values{}
	query.Set("skip", "0")
	query.Set("take", strconv.Itoa(len(ids)))

	body := struct {
		HumanResourceIDs []string `json:"HumanResourceIDs"`
	}{HumanResourceIDs: ids}

	data, err := c.invoke(ctx, "HumanResourcesSearchDetail", http.MethodPost, staffDetailPath, query, body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var members []StaffMember
	if err := json.Unmarshal(data, &members); err != nil {
		err := fmt.Errorf("glintt: unexpected staff detail response format: %s", errorDetail(data))
		span.RecordError(err)
		return nil, err
	}
	return members, nil
}

// SearchStaffVariations sweeps variations of a name through SearchStaff
// and merges the results, deduplicated by ID in first-seen order. Glintt
// stores names inconsistently across facilities (casing and accents
// vary), so a single exact query routinely misses records that a folded
// or accent-stripped query finds. Variations that fail are logged and
// skipped rather than aborting the sweep.
func (c *Client) SearchStaffVariations(ctx context.Context, name string) ([]StaffMember, error) {
	ctx, span := tracer.Start(ctx, "glintt.staff_variation_sweep")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		err := fmt.Errorf("glintt: staff variation sweep requires a name")
		span.RecordError(err)
		return nil, err
	}

	var merged []StaffMember
	seen := make(map[string]bool)
	for _, variation := range nameVariations(name) {
		members, err := c.SearchStaff(ctx, StaffSearch{SearchString: variation})
		if err != nil {
			c.logger.Warn("staff variation query failed",
				"variation", variation, "error", err)
			continue
		}
		for _, m := range members {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			merged = append(merged, m)
		}
	}

	c.logger.Info("staff variation sweep complete",
		"name", name, "matches", len(merged))
	span.SetAttributes(attribute.Int("glintt.staff.matches", len(merged)))
	return merged, nil
}

// nameVariations generates the query sweep for one name: as given,
// case-folded both ways, accent-stripped, and the first and last words
// for partial matches. Duplicates collapse so each variation is queried
// once.
func nameVariations(name string) []string {
	candidates := []string{
		name,
		strings.ToLower(name),
		strings.ToUpper(name),
		stripAccents(name),
	}
	if fields := strings.Fields(name); len(fields) > 1 {
		candidates = append(candidates, fields[0], fields[len(fields)-1])
	}

	var out []string
	seen := make(map[string]bool, len(candidates))
	for _, v := range candidates {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// stripAccents removes combining marks, so "José" becomes "Jose".
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
