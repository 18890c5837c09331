package admin

import (
	"fmt"

	"folio/internal/model"
)

type Filter string

const (
	FilterAll  Filter = "all"
	FilterNew  Filter = "new"
	FilterRead Filter = "read"
)

var filters = []Filter{FilterAll, FilterNew, FilterRead}

// ParseFilter accepts "", all, new or read.
func ParseFilter(s string) (Filter, error) {
	if s == "" {
		return FilterAll, nil
	}
	for _, f := range filters {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q (want all, new or read)", s)
}

// Next cycles all → new → read → all.
func (f Filter) Next() Filter {
	for i, x := range filters {
		if x == f {
			return filters[(i+1)%len(filters)]
		}
	}
	return FilterAll
}

// Apply keeps order and returns a new slice.
func (f Filter) Apply(subs []model.Submission) []model.Submission {
	out := make([]model.Submission, 0, len(subs))
	for _, s := range subs {
		if f == FilterAll || string(s.Status) == string(f) {
			out = append(out, s)
		}
	}
	return out
}
