package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokjang/internal/attendance"
)

func TestStudentToPerson(t *testing.T) {
	s := Student{
		ID:          3,
		Name:        "박지훈",
		MokjangName: "은혜",
		Attendances: []StudentAttendance{
			{AttendanceDate: "2025-03-09T00:00:00Z", Worship: true},
			{AttendanceDate: "garbage", Worship: true},
			{AttendanceDate: "2025-03-16", Mokjang: true},
		},
	}

	p := s.ToPerson()
	assert.Equal(t, "은혜", p.Group)
	require.Len(t, p.Facts, 2, "unparseable day skipped")
	assert.True(t, p.Facts["2025-03-09"].Worship, "timestamp day canonicalized")
	assert.True(t, p.Facts["2025-03-16"].Mokjang)
}

func TestStudentToPersonDefaultsGroup(t *testing.T) {
	p := Student{ID: 1, Name: "임지아"}.ToPerson()
	assert.Equal(t, attendance.UnassignedGroup, p.Group)
}

func TestFromPerson(t *testing.T) {
	p := attendance.Person{
		ID:    3,
		Name:  "박지훈",
		Group: "은혜",
		Facts: map[string]attendance.Fact{
			"2025-03-16": {PersonID: 3, Day: "2025-03-16", Mokjang: true},
			"2025-03-09": {PersonID: 3, Day: "2025-03-09", Worship: true},
		},
	}

	t.Run("single day keeps only that day's fact", func(t *testing.T) {
		s := FromPerson(p, "2025-03-09")
		require.Len(t, s.Attendances, 1)
		assert.Equal(t, "2025-03-09", s.Attendances[0].AttendanceDate)
		assert.True(t, s.Attendances[0].Worship)
	})

	t.Run("empty day includes all facts sorted by date", func(t *testing.T) {
		s := FromPerson(p, "")
		require.Len(t, s.Attendances, 2)
		assert.Equal(t, "2025-03-09", s.Attendances[0].AttendanceDate)
		assert.Equal(t, "2025-03-16", s.Attendances[1].AttendanceDate)
	})

	t.Run("attendances is never nil on the wire", func(t *testing.T) {
		s := FromPerson(attendance.Person{ID: 1}, "2025-03-09")
		assert.NotNil(t, s.Attendances)
	})
}
