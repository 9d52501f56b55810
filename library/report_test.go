package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCatalog builds a small catalog with loans:
//
//	P1 (standard) holds S1, D1
//	P2 (student)  holds S2
//	P3 (faculty)  holds S3, Y1
//	P4 (standard) holds nothing
func seedCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := newCatalog(t)
	items := []*Item{
		NewItem("S1", "Dune", "Frank Herbert", 1965),
		NewItem("S2", "Emma", "Jane Austen", 1815),
		NewItem("S3", "Ulysses", "James Joyce", 1922),
		NewDigitalItem("D1", "Go in Action", "Kennedy", 2015, 4.5, "pdf"),
		NewDigitalItem("D2", "Effective Go", "Go Team", 2009, 1.5, "html"),
		NewPhysicalItem("Y1", "World Atlas", "Various", 1999, "Map-1", "Fair"),
	}
	for _, it := range items {
		require.NoError(t, c.AddItem(it))
	}
	for _, p := range []*Patron{
		NewPatron("P1", "Ann", "ann@x", day0),
		NewStudent("P2", "Sam", "sam@x", day0, "S-9", "History"),
		NewFaculty("P3", "Fay", "fay@x", day0, "F-2", "Maths"),
		NewPatron("P4", "Bob", "bob@x", day0),
	} {
		require.NoError(t, c.AddPatron(p))
	}
	for _, loan := range [][2]string{{"P1", "S1"}, {"P1", "D1"}, {"P2", "S2"}, {"P3", "S3"}, {"P3", "Y1"}} {
		_, err := c.BorrowItem(loan[0], loan[1])
		require.NoError(t, err)
	}
	return c
}

func itemKeys(items []*Item) []string {
	out := []string{}
	for _, it := range items {
		out = append(out, it.Key)
	}
	return out
}

func patronKeys(patrons []*Patron) []string {
	out := []string{}
	for _, p := range patrons {
		out = append(out, p.Key)
	}
	return out
}

func TestFilters(t *testing.T) {
	c := seedCatalog(t)

	assert.Equal(t, []string{"D2"}, itemKeys(c.AvailableItems()))
	assert.Equal(t, []string{"S1", "S2", "S3", "D1", "Y1"}, itemKeys(c.BorrowedItems()))
	assert.Equal(t, []string{"D1", "D2"}, itemKeys(c.ItemsByKind(ItemDigital)))
	assert.Equal(t, []string{"P1", "P4"}, patronKeys(c.PatronsByKind(PatronStandard)))
	assert.Equal(t, []string{"S2", "S3"}, itemKeys(c.ItemsByYear(1800, 1930)))
	assert.Equal(t, []string{}, itemKeys(c.ItemsByKind("scroll")))
}

func TestOverdueItems(t *testing.T) {
	c := seedCatalog(t)

	// Standard and physical loans are due day0+14, digital and faculty day0+30.
	assert.Empty(t, c.OverdueItems(day0.AddDays(14)))
	assert.Equal(t, []string{"S1", "S2"}, itemKeys(c.OverdueItems(day0.AddDays(15))))
	assert.Equal(t, []string{"S1", "S2", "S3", "D1", "Y1"}, itemKeys(c.OverdueItems(day0.AddDays(31))))
}

func TestOverdueReport(t *testing.T) {
	c := seedCatalog(t)
	lines := c.OverdueReport(day0.AddDays(20))
	require.Len(t, lines, 2)

	l := lines[0]
	assert.Equal(t, "S1", l.ItemKey)
	assert.Equal(t, "Ann", l.BorrowerName)
	assert.Equal(t, "ann@x", l.ContactAddress)
	assert.Equal(t, PatronStandard, l.BorrowerKind)
	assert.Equal(t, 6, l.DaysOverdue)
	assert.True(t, l.Overdue())
}

func TestBorrowedReport(t *testing.T) {
	c := seedCatalog(t)
	lines := c.BorrowedReport(day0.AddDays(20))
	require.Len(t, lines, 5)

	var overdue int
	for _, l := range lines {
		if l.Overdue() {
			overdue++
		}
	}
	assert.Equal(t, 2, overdue)
	assert.Equal(t, "Fay", lines[2].BorrowerName)
	assert.Zero(t, lines[2].DaysOverdue)
}

func TestPatronActivity(t *testing.T) {
	c := seedCatalog(t)
	acts := c.PatronActivity()
	require.Len(t, acts, 4)

	assert.Equal(t, "P1", acts[0].PatronKey)
	assert.Equal(t, 2, acts[0].Loans)
	assert.Equal(t, []string{"Dune", "Go in Action"}, acts[0].Titles)
	assert.InDelta(t, 66.67, acts[0].Utilisation, 0.01)

	assert.Equal(t, 0, acts[3].Loans)
	assert.Empty(t, acts[3].Titles)
	assert.Zero(t, acts[3].Utilisation)
}

func TestTopBorrowers(t *testing.T) {
	c := seedCatalog(t)

	assert.Equal(t, []string{"P1", "P3", "P2"}, patronKeys(c.TopBorrowers(-1)), "ties keep insertion order")
	assert.Equal(t, []string{"P1", "P3"}, patronKeys(c.TopBorrowers(2)))
	assert.Equal(t, []string{}, patronKeys(c.TopBorrowers(0)))
}

func TestPopularAuthors(t *testing.T) {
	c := newCatalog(t)
	for _, it := range []*Item{
		NewItem("A", "Emma", "Jane Austen", 1815),
		NewItem("B", "Dune", "Frank Herbert", 1965),
		NewItem("C", "Persuasion", "Jane Austen", 1817),
		NewItem("D", "Children of Dune", "Frank Herbert", 1976),
		NewItem("E", "Ulysses", "James Joyce", 1922),
		NewItem("F", "Sense and Sensibility", "Jane Austen", 1811),
	} {
		require.NoError(t, c.AddItem(it))
	}

	assert.Equal(t, []AuthorCount{
		{Author: "Jane Austen", Items: 3},
		{Author: "Frank Herbert", Items: 2},
	}, c.PopularAuthors(2))
	assert.Len(t, c.PopularAuthors(-1), 3)
	assert.Empty(t, NewCatalog("empty").PopularAuthors(5))
}

func TestGroupByKind(t *testing.T) {
	c := seedCatalog(t)

	items := c.GroupItemsByKind()
	assert.Len(t, items, len(ItemKinds))
	assert.Equal(t, []string{"S1", "S2", "S3"}, itemKeys(items[ItemStandard]))
	assert.Equal(t, []string{"Y1"}, itemKeys(items[ItemPhysical]))

	patrons := NewCatalog("empty").GroupPatronsByKind()
	assert.Len(t, patrons, len(PatronKinds))
	assert.Empty(t, patrons[PatronFaculty])
}

func TestKindStats(t *testing.T) {
	c := seedCatalog(t)
	assert.Equal(t, []KindStat{
		{Kind: ItemStandard, Total: 3, Available: 0, Borrowed: 3},
		{Kind: ItemDigital, Total: 2, Available: 1, Borrowed: 1},
		{Kind: ItemPhysical, Total: 1, Available: 0, Borrowed: 1},
	}, c.KindStats())
}

func TestBorrowingStats(t *testing.T) {
	c := seedCatalog(t)
	s := c.BorrowingStats()

	assert.Equal(t, 4, s.TotalPatrons)
	assert.Equal(t, 3, s.PatronsWithLoans)
	assert.Equal(t, 5, s.TotalLoans)
	assert.InDelta(t, 1.25, s.AveragePerPatron, 1e-9)
	assert.Equal(t, 0, s.PatronsAtLimit)
	assert.InDelta(t, 6.0, s.TotalDigitalSizeMB, 1e-9)

	assert.Equal(t, BorrowingStats{}, NewCatalog("empty").BorrowingStats())
}
