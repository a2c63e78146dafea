package event

import "sort"

// Filter is a declarative subscription-style query over events. All present
// fields are conjunctive; an empty filter matches everything. Tags maps a tag
// name (without the "#" prefix used on the wire) to the set of accepted
// primary values.
type Filter struct {
	IDs     []string            `json:"ids,omitempty"`
	Authors []string            `json:"authors,omitempty"`
	Kinds   []int               `json:"kinds,omitempty"`
	Tags    map[string][]string `json:"tags,omitempty"`
	Since   *int64              `json:"since,omitempty"`
	Until   *int64              `json:"until,omitempty"`
	Limit   int                 `json:"limit,omitempty"`
}

// Matches reports whether ev satisfies every constraint present in the
// filter. The evaluator is total: a contradictory filter (since > until)
// matches nothing rather than erroring.
func (f Filter) Matches(ev Event) bool {
	if f.Since != nil && f.Until != nil && *f.Since > *f.Until {
		return false
	}
	if len(f.IDs) > 0 && !containsString(f.IDs, ev.ID) {
		return false
	}
	if len(f.Authors) > 0 && !containsString(f.Authors, ev.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !containsInt(f.Kinds, ev.Kind) {
		return false
	}
	for name, accepted := range f.Tags {
		// A tag name mapped to an empty value set is an unsatisfiable
		// constraint: no event carries one of zero accepted values.
		if !hasTagValue(ev, name, accepted) {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	return true
}

// SelectAll returns the events matching the filter, newest first. Ties on
// CreatedAt break by ID ascending so the ordering is deterministic; Limit,
// when positive, truncates the sorted result from the front.
func (f Filter) SelectAll(events []Event) []Event {
	matched := make([]Event, 0, len(events))
	for _, ev := range events {
		if f.Matches(ev) {
			matched = append(matched, ev)
		}
	}
	SortNewestFirst(matched)
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched
}

// SortNewestFirst orders events by CreatedAt descending, ID ascending on ties.
func SortNewestFirst(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt != events[j].CreatedAt {
			return events[i].CreatedAt > events[j].CreatedAt
		}
		return events[i].ID < events[j].ID
	})
}

// hasTagValue reports whether ev carries a tag named name whose primary value
// is one of accepted.
func hasTagValue(ev Event, name string, accepted []string) bool {
	for _, t := range ev.Tags {
		if t.Name() != name {
			continue
		}
		if containsString(accepted, t.Value()) {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}
