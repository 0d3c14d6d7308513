package filter

import (
	"strings"

	"github.com/s0up4200/reelpick/api"
)

// Subject is a movie together with what the signed-in user knows about it
type Subject struct {
	Movie   api.Movie
	Watched bool
	// MyRating is the user's committed rating, 0 when unrated.
	MyRating int
}

// Filter decides whether a movie should be shown
type Filter interface {
	Match(s Subject) bool
}

// CompiledFilter is a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	Compile(expression string) (CompiledFilter, error)
}

// Apply returns the subjects f matches, in order. A nil filter matches everything.
func Apply(f Filter, subjects []Subject) []Subject {
	if f == nil {
		return subjects
	}
	out := make([]Subject, 0, len(subjects))
	for _, s := range subjects {
		if f.Match(s) {
			out = append(out, s)
		}
	}
	return out
}

// NeedsRatings reports whether any of the filters reads MyRating or Rated,
// so the caller has to look up the user's ratings first
func NeedsRatings(filters ...Filter) bool {
	for _, f := range filters {
		cf, ok := f.(CompiledFilter)
		if !ok {
			continue
		}
		if e := cf.Expression(); strings.Contains(e, "MyRating") || strings.Contains(e, "Rated") {
			return true
		}
	}
	return false
}
