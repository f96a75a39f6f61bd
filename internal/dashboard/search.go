package dashboard

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Search keeps the cards whose title matches query, best match first.
// A title matches when it contains the query, or when one of its words is
// within a small edit distance of it (about one typo per three letters).
// An empty query returns cards unchanged.
func Search(cards []Card, query string) []Card {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return cards
	}
	budget := len([]rune(query)) / 3
	if budget < 1 {
		budget = 1
	}

	type scored struct {
		card Card
		dist int
	}
	var hits []scored
	for _, c := range cards {
		title := strings.ToLower(c.Title)
		if strings.Contains(title, query) {
			hits = append(hits, scored{card: c, dist: 0})
			continue
		}
		best := -1
		for _, word := range strings.Fields(title) {
			d := levenshtein.ComputeDistance(query, word)
			if best < 0 || d < best {
				best = d
			}
		}
		if best >= 0 && best <= budget {
			hits = append(hits, scored{card: c, dist: best})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]Card, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.card)
	}
	return out
}
