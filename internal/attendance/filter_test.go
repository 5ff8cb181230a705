package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster() []Person {
	return []Person{
		{ID: 1, Name: "김민준", Group: "은혜"},
		{ID: 2, Name: "이서연", Group: "사랑"},
		{ID: 3, Name: "박지훈", Group: "은혜"},
		{ID: 4, Name: "Aaron", Group: ""},
	}
}

func TestFilter(t *testing.T) {
	t.Run("empty query and group match everyone", func(t *testing.T) {
		assert.Len(t, Filter(roster(), "", ""), 4)
	})

	t.Run("query matches substring case-insensitively", func(t *testing.T) {
		got := Filter(roster(), "aAr", "")
		require.Len(t, got, 1)
		assert.Equal(t, int64(4), got[0].ID)
	})

	t.Run("group filter narrows to one mokjang", func(t *testing.T) {
		got := Filter(roster(), "", "은혜")
		require.Len(t, got, 2)
		assert.Equal(t, int64(1), got[0].ID)
		assert.Equal(t, int64(3), got[1].ID)
	})

	t.Run("group all disables the group filter", func(t *testing.T) {
		assert.Len(t, Filter(roster(), "", "all"), 4)
	})

	t.Run("query and group combine", func(t *testing.T) {
		got := Filter(roster(), "지훈", "은혜")
		require.Len(t, got, 1)
		assert.Equal(t, int64(3), got[0].ID)
	})
}

func TestSortByName(t *testing.T) {
	people := []Person{
		{ID: 2, Name: "이서연"},
		{ID: 3, Name: "김민준"},
		{ID: 1, Name: "김민준"},
	}
	sorted := SortByName(people)

	assert.Equal(t, int64(1), sorted[0].ID, "ties broken by id")
	assert.Equal(t, int64(3), sorted[1].ID)
	assert.Equal(t, int64(2), sorted[2].ID)
	assert.Equal(t, int64(2), people[0].ID, "input left untouched")
}

func TestGroupByMokjang(t *testing.T) {
	groups := GroupByMokjang(roster())
	require.Len(t, groups, 3)

	assert.Equal(t, "은혜", groups[0].Name)
	assert.Len(t, groups[0].People, 2)
	assert.Equal(t, "사랑", groups[1].Name)
	assert.Equal(t, UnassignedGroup, groups[2].Name)
}

func TestGroupNames(t *testing.T) {
	assert.Equal(t, []string{"은혜", "사랑", UnassignedGroup}, GroupNames(roster()))
}
