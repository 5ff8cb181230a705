package attendance

import (
	"sort"
	"strings"
)

// GroupView is one mokjang with its members in roster order.
type GroupView struct {
	Name   string
	People []Person
}

// Filter returns the people matching a name search and a group filter,
// keeping roster order. Empty query matches everyone; empty group (or
// "all") disables the group filter.
func Filter(people []Person, query, group string) []Person {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]Person, 0, len(people))
	for _, p := range people {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		if group != "" && group != "all" && p.Group != group {
			continue
		}
		out = append(out, p)
	}
	return out
}

// SortByName returns a copy sorted by member name, ties broken by id so
// the order is stable across reloads.
func SortByName(people []Person) []Person {
	out := append([]Person(nil), people...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GroupByMokjang buckets people by group in first-seen order. People
// without a group land in the UnassignedGroup bucket, which keeps the
// ordering total.
func GroupByMokjang(people []Person) []GroupView {
	index := make(map[string]int)
	var out []GroupView
	for _, p := range people {
		name := p.Group
		if name == "" {
			name = UnassignedGroup
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, GroupView{Name: name})
		}
		out[i].People = append(out[i].People, p)
	}
	return out
}

// GroupNames returns the distinct group names in first-seen order.
func GroupNames(people []Person) []string {
	groups := GroupByMokjang(people)
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	return names
}
