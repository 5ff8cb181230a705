package attendance

// UnassignedGroup is the sentinel mokjang label for people without a group.
// Grouping and sorting need a total order, so absence is a named group
// rather than an empty string special-cased at every comparison.
const UnassignedGroup = "unassigned"

// Fact is one flag-pair observation for one person on one day. Day is
// always canonical YYYY-MM-DD (see NormalizeDay); at most one Fact per
// (PersonID, Day) is current in a Roster.
type Fact struct {
	PersonID int64
	Day      string
	Worship  bool
	Mokjang  bool
}

// Person is a roster member together with the facts loaded for the current
// day window. Facts are keyed by canonical day and die with the Person in
// local memory; the server remains the source of truth per day window.
type Person struct {
	ID    int64
	Name  string
	Group string
	Facts map[string]Fact
}

// FactFor returns the person's fact for a day, defaulting to all-false.
func (p Person) FactFor(day string) Fact {
	if f, ok := p.Facts[day]; ok {
		return f
	}
	return Fact{PersonID: p.ID, Day: day}
}

// Attended reports whether the person attended anything on the day.
func (p Person) Attended(day string) bool {
	f := p.FactFor(day)
	return f.Worship || f.Mokjang
}
