package api

import (
	"encoding/json"
	"sort"

	"mokjang/internal/attendance"
)

// Push channel message tags. Receivers ignore unknown tags so the protocol
// can grow without breaking old clients.
const (
	TypeAttendanceUpdated = "attendance_updated"
	TypeError             = "error"
)

// Envelope is a tagged push-channel message.
type Envelope struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// AttendanceUpdate is the payload fanned out when a flag pair changes. It
// carries the resulting field values only; there is no correlation id.
type AttendanceUpdate struct {
	StudentID      int64  `json:"studentId"`
	AttendanceDate string `json:"attendanceDate"`
	Worship        bool   `json:"worship"`
	Mokjang        bool   `json:"mokjang"`
}

// NewAttendanceUpdated wraps a fact in a broadcast envelope.
func NewAttendanceUpdated(fact attendance.Fact) (Envelope, error) {
	data, err := json.Marshal(AttendanceUpdate{
		StudentID:      fact.PersonID,
		AttendanceDate: fact.Day,
		Worship:        fact.Worship,
		Mokjang:        fact.Mokjang,
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: TypeAttendanceUpdated, Data: data}, nil
}

// Student is the wire shape of a roster member.
type Student struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	MokjangName string              `json:"mokjangName"`
	Attendances []StudentAttendance `json:"attendances"`
}

// StudentAttendance is one day's flag pair inside a Student payload.
type StudentAttendance struct {
	AttendanceDate string `json:"attendanceDate"`
	Worship        bool   `json:"worship"`
	Mokjang        bool   `json:"mokjang"`
}

// OverallStats mirrors the backend's day-level aggregate.
type OverallStats struct {
	TotalStudents  int `json:"total_students"`
	WorshipOnly    int `json:"worship_only"`
	MokjangOnly    int `json:"mokjang_only"`
	Both           int `json:"both"`
	Attended       int `json:"attended"`
	Absent         int `json:"absent"`
	AttendanceRate int `json:"attendance_rate"`
}

// MokjangStats is OverallStats scoped to one mokjang.
type MokjangStats struct {
	Mokjang        string `json:"mokjang"`
	Total          int    `json:"total"`
	WorshipOnly    int    `json:"worship_only"`
	MokjangOnly    int    `json:"mokjang_only"`
	Both           int    `json:"both"`
	Absent         int    `json:"absent"`
	AttendanceRate int    `json:"attendance_rate"`
}

// Stats is the full stats payload for one day.
type Stats struct {
	Overall   OverallStats   `json:"overall"`
	ByMokjang []MokjangStats `json:"by_mokjang"`
}

// MokjangInfo is one entry of the mokjang list endpoint.
type MokjangInfo struct {
	Mokjang      string `json:"mokjang"`
	StudentCount int    `json:"student_count"`
}

// ToPerson converts a wire Student to the domain model, canonicalizing
// attendance days. Entries with unparseable days are skipped; a bad row
// must not poison the rest of the roster.
func (s Student) ToPerson() attendance.Person {
	p := attendance.Person{
		ID:    s.ID,
		Name:  s.Name,
		Group: s.MokjangName,
		Facts: make(map[string]attendance.Fact, len(s.Attendances)),
	}
	if p.Group == "" {
		p.Group = attendance.UnassignedGroup
	}
	for _, a := range s.Attendances {
		day, err := attendance.NormalizeDay(a.AttendanceDate)
		if err != nil {
			continue
		}
		p.Facts[day] = attendance.Fact{
			PersonID: s.ID,
			Day:      day,
			Worship:  a.Worship,
			Mokjang:  a.Mokjang,
		}
	}
	return p
}

// FromPerson converts a domain person to the wire shape, optionally
// restricted to a single day. An empty day includes every known fact.
func FromPerson(p attendance.Person, day string) Student {
	s := Student{
		ID:          p.ID,
		Name:        p.Name,
		MokjangName: p.Group,
		Attendances: []StudentAttendance{},
	}
	for d, f := range p.Facts {
		if day != "" && d != day {
			continue
		}
		s.Attendances = append(s.Attendances, StudentAttendance{
			AttendanceDate: d,
			Worship:        f.Worship,
			Mokjang:        f.Mokjang,
		})
	}
	sort.Slice(s.Attendances, func(i, j int) bool {
		return s.Attendances[i].AttendanceDate < s.Attendances[j].AttendanceDate
	})
	return s
}
