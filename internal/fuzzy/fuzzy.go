// Package fuzzy scores string similarity for kennel tag resolution. It is a
// plain edit-distance engine; nothing in here knows about events or sources.
package fuzzy

import (
	"sort"
	"strings"

	"github.com/harrierhub/hareline/internal/event"
)

const (
	// substringBonus rewards one name containing the other, which is how
	// most near-miss tags relate to the registered name ("Larrikin" vs
	// "Larrikin H3").
	substringBonus = 0.3

	// discardThreshold drops candidates that are noise rather than typos.
	discardThreshold = 0.2

	// DefaultLimit is the suggestion count callers get unless they ask.
	DefaultLimit = 5
)

// EditDistance returns the classic Levenshtein distance between a and b:
// unit-cost inserts, deletes, and substitutions.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// NameSimilarity scores two names in [0,1] after case and whitespace
// normalization. Exact match is 1; empty input on either side is 0.
func NameSimilarity(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	longest := len([]rune(na))
	if l := len([]rune(nb)); l > longest {
		longest = l
	}
	return 1 - float64(EditDistance(na, nb))/float64(longest)
}

// Match is one scored candidate from RankCandidates.
type Match struct {
	Group event.Group
	Score float64
}

// RankCandidates scores input against every candidate group's short name,
// full name, and aliases, keeping the best score per group. Exact matches
// score 1 and short-circuit the group's remaining names; otherwise a
// substring relationship adds substringBonus to the raw similarity, capped
// at 1. Groups scoring at or below discardThreshold are dropped; survivors
// come back sorted by descending score, truncated to limit. Ties keep input
// order.
func RankCandidates(input string, candidates []event.Group, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if normalize(input) == "" {
		return nil
	}

	matches := make([]Match, 0, len(candidates))
	for _, g := range candidates {
		score := scoreGroup(input, &g)
		if score > discardThreshold {
			matches = append(matches, Match{Group: g, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func scoreGroup(input string, g *event.Group) float64 {
	best := 0.0
	for _, name := range g.Names() {
		s := scoreName(input, name)
		if s == 1 {
			return 1
		}
		if s > best {
			best = s
		}
	}
	return best
}

func scoreName(input, name string) float64 {
	ni, nn := normalize(input), normalize(name)
	if ni == "" || nn == "" {
		return 0
	}
	if ni == nn {
		return 1
	}
	score := NameSimilarity(input, name)
	if strings.Contains(ni, nn) || strings.Contains(nn, ni) {
		score += substringBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
