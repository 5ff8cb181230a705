package store

import (
	"context"

	"mokjang/internal/attendance"
)

// SeedSampleRoster fills a fresh store with a small demo congregation so
// the backend is usable out of the box.
func SeedSampleRoster(s *InMemory) []attendance.Person {
	members := []struct {
		name  string
		group string
	}{
		{"김민준", "은혜"},
		{"이서연", "은혜"},
		{"박지훈", "은혜"},
		{"최수빈", "사랑"},
		{"정예은", "사랑"},
		{"강도윤", "사랑"},
		{"조하은", "믿음"},
		{"윤시우", "믿음"},
		{"임지아", ""},
	}
	people := make([]attendance.Person, 0, len(members))
	for _, m := range members {
		p, _ := s.CreatePerson(context.Background(), m.name, m.group)
		people = append(people, p)
	}
	return people
}
