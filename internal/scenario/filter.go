package scenario

import "slices"

// TagFilter selects scenarios by tag. A scenario matches when it carries any Include
// tag (or Include is empty) and none of the Exclude tags.
type TagFilter struct {
	Include []string
	Exclude []string
}

// Match reports whether tags pass the filter.
func (f TagFilter) Match(tags []string) bool {
	for _, t := range f.Exclude {
		if slices.Contains(tags, t) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, t := range f.Include {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}

// Select returns the scenarios that match f, in their original order.
func Select(all []Scenario, f TagFilter) []Scenario {
	var out []Scenario
	for _, s := range all {
		if f.Match(s.Tags) {
			out = append(out, s)
		}
	}
	return out
}
