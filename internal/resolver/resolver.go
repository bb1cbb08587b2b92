// Package resolver maps free-text kennel tags from scraped rows onto
// registered groups. Automatic resolution is exact-only (short name or alias,
// case-insensitive); fuzzy scoring is a separate suggestion path for
// operators and never resolves a tag by itself.
package resolver

import (
	"strings"

	"github.com/harrierhub/hareline/internal/event"
	"github.com/harrierhub/hareline/internal/fuzzy"
)

// Resolution is the outcome of resolving one tag.
type Resolution struct {
	Matched bool
	GroupID string
}

// Resolver resolves tags against a fixed group set. The cache is scoped to
// one pipeline run: construct a Resolver per scrape (or call Reset between
// unrelated runs) so concurrent jobs never share cached resolutions.
type Resolver struct {
	groups []event.Group
	cache  map[string]Resolution
}

// New builds a run-scoped resolver over the given groups.
func New(groups []event.Group) *Resolver {
	return &Resolver{
		groups: groups,
		cache:  make(map[string]Resolution),
	}
}

// Resolve maps a tag to a group by exact case-insensitive short-name or
// alias match. No exact match means unmatched; it never falls through to
// fuzzy scoring.
func (r *Resolver) Resolve(tag string) Resolution {
	key := normalizeTag(tag)
	if key == "" {
		return Resolution{}
	}
	if res, ok := r.cache[key]; ok {
		return res
	}

	res := Resolution{}
	for i := range r.groups {
		if r.groups[i].MatchesTag(tag) {
			res = Resolution{Matched: true, GroupID: r.groups[i].ID}
			break
		}
	}
	r.cache[key] = res
	return res
}

// Suggest returns ranked fuzzy candidates for an unresolvable tag. Results
// are operator-facing suggestions only.
func (r *Resolver) Suggest(tag string, limit int) []fuzzy.Match {
	return fuzzy.RankCandidates(tag, r.groups, limit)
}

// Reset clears cached resolutions. Call at run boundaries when reusing a
// resolver across pipeline invocations.
func (r *Resolver) Reset() {
	r.cache = make(map[string]Resolution)
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
