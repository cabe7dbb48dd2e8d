// Package leadquery parses and renders the lead filters shared by the HTTP
// handlers, the storage layer and the API client.
package leadquery

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/s/leadBoard/internal/models"
)

const dateLayout = "2006-01-02"

// DateRange is inclusive on both ends, at day granularity.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Filter enumerates every supported lead filter. Empty sets mean "any".
type Filter struct {
	Statuses    []models.LeadStatus
	CourseIDs   []uint
	BatchIDs    []uint
	TrainerIDs  []uint
	AssigneeIDs []uint
	UnitIDs     []uint
	CardTypeIDs []uint
	FeeStatuses []models.FeeStatus
	Created     DateRange
	Search      string
}

// Parse reads a filter from query parameters. Set-valued keys may be
// repeated or comma separated: ?statuses=enquiry,prospect&course_ids=3
func Parse(q url.Values) (Filter, error) {
	var f Filter
	var err error

	for _, raw := range splitValues(q, "statuses", "status") {
		s, perr := models.ParseLeadStatus(raw)
		if perr != nil {
			return Filter{}, perr
		}
		f.Statuses = append(f.Statuses, s)
	}
	for _, raw := range splitValues(q, "fee_statuses", "fee_status") {
		fs := models.FeeStatus(strings.ToLower(raw))
		if !fs.Valid() {
			return Filter{}, fmt.Errorf("unknown fee status %q", raw)
		}
		f.FeeStatuses = append(f.FeeStatuses, fs)
	}

	idSets := []struct {
		dst  *[]uint
		keys []string
	}{
		{&f.CourseIDs, []string{"course_ids", "course_id"}},
		{&f.BatchIDs, []string{"batch_ids", "batch_id"}},
		{&f.TrainerIDs, []string{"trainer_ids", "trainer_id"}},
		{&f.AssigneeIDs, []string{"assignee_ids", "assignee_id"}},
		{&f.UnitIDs, []string{"unit_ids", "unit_id"}},
		{&f.CardTypeIDs, []string{"card_type_ids", "card_type_id"}},
	}
	for _, set := range idSets {
		if *set.dst, err = parseIDs(splitValues(q, set.keys...)); err != nil {
			return Filter{}, fmt.Errorf("%s: %w", set.keys[0], err)
		}
	}

	if f.Created.From, err = parseDate(q.Get("created_from")); err != nil {
		return Filter{}, fmt.Errorf("created_from: %w", err)
	}
	if f.Created.To, err = parseDate(q.Get("created_to")); err != nil {
		return Filter{}, fmt.Errorf("created_to: %w", err)
	}
	if f.Created.From != nil && f.Created.To != nil && f.Created.To.Before(*f.Created.From) {
		return Filter{}, fmt.Errorf("created_to is before created_from")
	}

	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}

// Values renders the filter back into query parameters.
func (f Filter) Values() url.Values {
	q := url.Values{}
	if len(f.Statuses) > 0 {
		q.Set("statuses", strings.Join(StatusStrings(f.Statuses), ","))
	}
	if len(f.FeeStatuses) > 0 {
		fee := make([]string, len(f.FeeStatuses))
		for i, s := range f.FeeStatuses {
			fee[i] = string(s)
		}
		q.Set("fee_statuses", strings.Join(fee, ","))
	}
	for key, ids := range map[string][]uint{
		"course_ids":    f.CourseIDs,
		"batch_ids":     f.BatchIDs,
		"trainer_ids":   f.TrainerIDs,
		"assignee_ids":  f.AssigneeIDs,
		"unit_ids":      f.UnitIDs,
		"card_type_ids": f.CardTypeIDs,
	} {
		if len(ids) == 0 {
			continue
		}
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatUint(uint64(id), 10)
		}
		q.Set(key, strings.Join(parts, ","))
	}
	if f.Created.From != nil {
		q.Set("created_from", f.Created.From.Format(dateLayout))
	}
	if f.Created.To != nil {
		q.Set("created_to", f.Created.To.Format(dateLayout))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// StatusStrings converts statuses for use in SQL IN clauses.
func StatusStrings(statuses []models.LeadStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func splitValues(q url.Values, keys ...string) []string {
	var out []string
	for _, key := range keys {
		for _, v := range q[key] {
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" && part != "all" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

func parseIDs(raw []string) ([]uint, error) {
	var ids []uint
	for _, r := range raw {
		n, err := strconv.ParseUint(r, 10, 32)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid id %q", r)
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("want YYYY-MM-DD, got %q", raw)
	}
	return &t, nil
}
