package attendance

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RosterSuite struct {
	suite.Suite
	roster *Roster
}

func (s *RosterSuite) SetupTest() {
	s.roster = NewRoster()
	s.roster.Load([]Person{
		{ID: 1, Name: "김민준", Group: "은혜"},
		{ID: 2, Name: "이서연", Group: "사랑", Facts: map[string]Fact{
			"2025-03-09": {PersonID: 2, Day: "2025-03-09", Worship: true},
		}},
		{ID: 3, Name: "박지훈"},
	})
}

func TestRosterSuite(t *testing.T) {
	suite.Run(t, new(RosterSuite))
}

func (s *RosterSuite) TestLoad() {
	s.Run("preserves input order", func() {
		people := s.roster.People()
		s.Require().Len(people, 3)
		s.Equal(int64(1), people[0].ID)
		s.Equal(int64(2), people[1].ID)
		s.Equal(int64(3), people[2].ID)
	})

	s.Run("defaults empty group to unassigned", func() {
		people := s.roster.People()
		s.Equal(UnassignedGroup, people[2].Group)
	})

	s.Run("replaces previous contents wholesale", func() {
		s.roster.Load([]Person{{ID: 9, Name: "최수빈"}})
		s.Equal(1, s.roster.Len())
		s.Equal(Fact{PersonID: 2, Day: "2025-03-09"}, s.roster.FactFor(2, "2025-03-09"))
	})

	s.Run("does not alias the caller's fact map", func() {
		src := []Person{{ID: 7, Facts: map[string]Fact{"2025-03-09": {Worship: true}}}}
		s.roster.Load(src)
		src[0].Facts["2025-03-09"] = Fact{}
		s.True(s.roster.FactFor(7, "2025-03-09").Worship)
	})
}

func (s *RosterSuite) TestFactFor() {
	s.Run("returns recorded fact", func() {
		f := s.roster.FactFor(2, "2025-03-09")
		s.True(f.Worship)
		s.False(f.Mokjang)
	})

	s.Run("defaults to all-false for unrecorded day", func() {
		f := s.roster.FactFor(1, "2025-03-09")
		s.Equal(Fact{PersonID: 1, Day: "2025-03-09"}, f)
	})

	s.Run("defaults to all-false for unknown person", func() {
		f := s.roster.FactFor(99, "2025-03-09")
		s.Equal(Fact{PersonID: 99, Day: "2025-03-09"}, f)
	})
}

func (s *RosterSuite) TestReplace() {
	s.Run("upserts over existing fact", func() {
		s.roster.Replace(2, "2025-03-09", Fact{Worship: true, Mokjang: true})
		f := s.roster.FactFor(2, "2025-03-09")
		s.True(f.Worship)
		s.True(f.Mokjang)
	})

	s.Run("stamps key fields onto the fact", func() {
		s.roster.Replace(1, "2025-03-16", Fact{Worship: true})
		f := s.roster.FactFor(1, "2025-03-16")
		s.Equal(int64(1), f.PersonID)
		s.Equal("2025-03-16", f.Day)
	})

	s.Run("ignores unknown people", func() {
		s.roster.Replace(99, "2025-03-09", Fact{Worship: true})
		s.Equal(3, s.roster.Len())
		s.False(s.roster.FactFor(99, "2025-03-09").Worship)
	})
}

func (s *RosterSuite) TestRemove() {
	s.roster.Remove(2)
	s.Equal(2, s.roster.Len())
	people := s.roster.People()
	s.Equal(int64(1), people[0].ID)
	s.Equal(int64(3), people[1].ID)

	s.Run("unknown person is a no-op", func() {
		s.roster.Remove(42)
		s.Equal(2, s.roster.Len())
	})
}

func (s *RosterSuite) TestPeopleReturnsCopies() {
	people := s.roster.People()
	people[1].Facts["2025-03-09"] = Fact{PersonID: 2, Day: "2025-03-09"}
	s.True(s.roster.FactFor(2, "2025-03-09").Worship)
}
