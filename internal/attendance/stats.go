package attendance

import "math"

// Summary buckets a set of people by their attendance shape on one day.
// The buckets are disjoint: a person attending both services counts only
// in Both.
type Summary struct {
	Total       int
	WorshipOnly int
	MokjangOnly int
	Both        int
	Absent      int
	Rate        int
}

// GroupSummary is a Summary scoped to one mokjang.
type GroupSummary struct {
	Group string
	Summary
}

// Summarize computes the day summary over the given people.
func Summarize(people []Person, day string) Summary {
	var s Summary
	s.Total = len(people)
	for _, p := range people {
		f := p.FactFor(day)
		switch {
		case f.Worship && f.Mokjang:
			s.Both++
		case f.Worship:
			s.WorshipOnly++
		case f.Mokjang:
			s.MokjangOnly++
		default:
			s.Absent++
		}
	}
	s.Rate = rate(s.Total-s.Absent, s.Total)
	return s
}

// SummarizeByGroup computes per-mokjang summaries in first-seen group order.
func SummarizeByGroup(people []Person, day string) []GroupSummary {
	groups := GroupByMokjang(people)
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupSummary{
			Group:   g.Name,
			Summary: Summarize(g.People, day),
		})
	}
	return out
}

// rate is an integer attendance percentage, rounded half up.
func rate(attended, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}
