package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = NewDate(2024, time.March, 1)

func TestItemBorrowAndRelease(t *testing.T) {
	it := NewItem("B1", "Dune", "Frank Herbert", 1965)
	require.True(t, it.Available())

	require.NoError(t, it.borrow("P1", day0, 14))
	who, onLoan := it.Borrower()
	assert.True(t, onLoan)
	assert.Equal(t, "P1", who)
	due, _ := it.DueDate()
	assert.Equal(t, "2024-03-15", due.String())

	assert.ErrorIs(t, it.borrow("P2", day0, 14), ErrAlreadyBorrowed)

	require.NoError(t, it.release())
	assert.True(t, it.Available())
	_, onLoan = it.Borrower()
	assert.False(t, onLoan)
	assert.True(t, it.due.IsZero())
	assert.Empty(t, it.borrower)

	assert.ErrorIs(t, it.release(), ErrNotBorrowed)
}

func TestItemVariantDefaults(t *testing.T) {
	assert.Equal(t, 14, NewItem("S", "t", "a", 1).LoanDays())

	d := NewDigitalItem("D", "t", "a", 1, 2.5, "epub")
	assert.Equal(t, 30, d.LoanDays())
	assert.Equal(t, "EPUB", d.Digital.Format)

	p := NewPhysicalItem("P", "t", "a", 1, "A-1", "")
	assert.Equal(t, 14, p.LoanDays())
	assert.Equal(t, "Good", p.Physical.Condition)

	assert.Equal(t, "PDF", NewDigitalItem("D", "t", "a", 1, 0, "").Digital.Format)
	assert.Equal(t, "Unknown", NewPhysicalItem("P", "t", "a", 1, " ", "Fair").Physical.ShelfLocation)
}

func TestItemIsOverdue(t *testing.T) {
	it := NewItem("B1", "Dune", "Frank Herbert", 1965)
	assert.False(t, it.IsOverdue(day0.AddDays(100)))

	require.NoError(t, it.borrow("P1", day0, 14))
	assert.False(t, it.IsOverdue(day0.AddDays(14)), "due today is not overdue")
	assert.True(t, it.IsOverdue(day0.AddDays(15)))
}

func TestPatronLimits(t *testing.T) {
	tests := []struct {
		p     *Patron
		limit int
	}{
		{NewPatron("M", "Mia", "m@x", day0), 3},
		{NewStudent("S", "Sam", "s@x", day0, "S-1", "CS"), 5},
		{NewFaculty("F", "Fay", "f@x", day0, "F-1", "Maths"), 10},
	}
	for _, tt := range tests {
		t.Run(string(tt.p.Kind), func(t *testing.T) {
			assert.Equal(t, tt.limit, tt.p.Limit())
			for i := range tt.limit {
				require.NoError(t, tt.p.recordBorrow(string(rune('a'+i))))
			}
			assert.False(t, tt.p.CanBorrow())
			assert.ErrorIs(t, tt.p.recordBorrow("overflow"), ErrLimitReached)
			assert.Equal(t, tt.limit, tt.p.LoanCount())
		})
	}
}

func TestPatronRecordBorrowAndReturn(t *testing.T) {
	p := NewPatron("P1", "Ann", "ann@x", day0)

	require.NoError(t, p.recordBorrow("B1"))
	require.NoError(t, p.recordBorrow("B2"))
	assert.ErrorIs(t, p.recordBorrow("B1"), ErrDuplicateLoan)
	assert.Equal(t, []string{"B1", "B2"}, p.Borrowed())

	require.NoError(t, p.recordReturn("B1"))
	assert.ErrorIs(t, p.recordReturn("B1"), ErrNotOnLoan)
	assert.Equal(t, []string{"B2"}, p.Borrowed())
}

func TestPatronBorrowedIsACopy(t *testing.T) {
	p := NewPatron("P1", "Ann", "ann@x", day0)
	require.NoError(t, p.recordBorrow("B1"))

	keys := p.Borrowed()
	keys[0] = "tampered"
	assert.True(t, p.HasBorrowed("B1"))
}

func TestFacultyLoanPeriod(t *testing.T) {
	f := NewFaculty("F1", "Fay", "f@x", day0, "F-1", "Maths")
	days, ok := f.LoanPeriod()
	require.True(t, ok)
	assert.Equal(t, 30, days)

	f.Faculty.ExtendedLoan = false
	days, _ = f.LoanPeriod()
	assert.Equal(t, 14, days)

	_, ok = NewStudent("S1", "Sam", "s@x", day0, "S-1", "CS").LoanPeriod()
	assert.False(t, ok)
}

func TestParseKinds(t *testing.T) {
	for tag, want := range map[string]ItemKind{
		"standard": ItemStandard, "Digital": ItemDigital, "physical": ItemPhysical,
		"Book": ItemStandard, "EBook": ItemDigital, "PhysicalBook": ItemPhysical,
	} {
		got, ok := ParseItemKind(tag)
		assert.True(t, ok, tag)
		assert.Equal(t, want, got, tag)
	}
	got, ok := ParseItemKind("scroll")
	assert.False(t, ok)
	assert.Equal(t, ItemStandard, got)

	for tag, want := range map[string]PatronKind{
		"standard": PatronStandard, "Student": PatronStudent, "faculty": PatronFaculty,
		"Member": PatronStandard, "Teacher": PatronFaculty,
	} {
		got, ok := ParsePatronKind(tag)
		assert.True(t, ok, tag)
		assert.Equal(t, want, got, tag)
	}
	pk, ok := ParsePatronKind("alien")
	assert.False(t, ok)
	assert.Equal(t, PatronStandard, pk)
}
