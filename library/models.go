package library

import (
	"fmt"
	"slices"
	"strings"
)

// Item represents a lendable catalog entry and its current loan state.
//
// Exactly one of Digital / Physical is set for the matching Kind; both are nil for
// standard items. The loan fields are unexported: they only change through the
// Catalog's borrow and return operations.
type Item struct {
	Key    string
	Title  string
	Author string
	Year   int
	Kind   ItemKind

	Digital  *DigitalInfo
	Physical *PhysicalInfo

	available bool
	borrower  string
	due       Date
}

// DigitalInfo holds attributes specific to digital items.
type DigitalInfo struct {
	FileSizeMB float64
	Format     string
}

// PhysicalInfo holds attributes specific to physical items.
type PhysicalInfo struct {
	ShelfLocation string
	Condition     string
}

// NewItem creates an available standard item.
func NewItem(key, title, author string, year int) *Item {
	return &Item{
		Key:       key,
		Title:     title,
		Author:    author,
		Year:      year,
		Kind:      ItemStandard,
		available: true,
	}
}

// NewDigitalItem creates an available digital item. The format is upper-cased;
// an empty format means "PDF".
func NewDigitalItem(key, title, author string, year int, sizeMB float64, format string) *Item {
	it := NewItem(key, title, author, year)
	it.Kind = ItemDigital
	it.Digital = &DigitalInfo{FileSizeMB: sizeMB, Format: format}
	it.fillPayload()
	return it
}

// NewPhysicalItem creates an available physical item. An empty shelf means
// "Unknown" and an empty condition means "Good".
func NewPhysicalItem(key, title, author string, year int, shelf, condition string) *Item {
	it := NewItem(key, title, author, year)
	it.Kind = ItemPhysical
	it.Physical = &PhysicalInfo{ShelfLocation: shelf, Condition: condition}
	it.fillPayload()
	return it
}

// normalize resolves Kind, accepting legacy spellings, and makes the variant
// payload match it. An empty Kind means standard.
func (it *Item) normalize() error {
	kind := ItemStandard
	if it.Kind != "" {
		k, ok := ParseItemKind(string(it.Kind))
		if !ok {
			return fmt.Errorf("item %s kind %q: %w", it.Key, it.Kind, ErrUnknownKind)
		}
		kind = k
	}
	it.Kind = kind
	it.fillPayload()
	return nil
}

// fillPayload creates the payload for Kind, drops any other, and fills empty
// payload fields with their defaults.
func (it *Item) fillPayload() {
	switch it.Kind {
	case ItemDigital:
		if it.Digital == nil {
			it.Digital = &DigitalInfo{}
		}
		it.Digital.Format = strings.ToUpper(strings.TrimSpace(it.Digital.Format))
		if it.Digital.Format == "" {
			it.Digital.Format = defaultFormat
		}
		it.Physical = nil
	case ItemPhysical:
		if it.Physical == nil {
			it.Physical = &PhysicalInfo{}
		}
		if strings.TrimSpace(it.Physical.ShelfLocation) == "" {
			it.Physical.ShelfLocation = defaultShelf
		}
		if it.Physical.Condition == "" {
			it.Physical.Condition = defaultCondition
		}
		it.Digital = nil
	default:
		it.Digital, it.Physical = nil, nil
	}
}

func (it *Item) Available() bool { return it.available }

// Borrower returns the key of the patron holding the item, if any.
func (it *Item) Borrower() (string, bool) { return it.borrower, !it.available }

// DueDate returns the date the item is due back, if it is on loan.
func (it *Item) DueDate() (Date, bool) { return it.due, !it.available }

// LoanDays is the item's own default loan period.
func (it *Item) LoanDays() int { return it.Kind.LoanDays() }

// IsOverdue reports whether the item is on loan and was due before today.
func (it *Item) IsOverdue(today Date) bool {
	return !it.available && it.due.Before(today)
}

// borrow marks the item as lent to patronKey until today+loanDays.
func (it *Item) borrow(patronKey string, today Date, loanDays int) error {
	if !it.available {
		return fmt.Errorf("borrow %s: %w", it.Key, ErrAlreadyBorrowed)
	}
	it.available = false
	it.borrower = patronKey
	it.due = today.AddDays(loanDays)
	return nil
}

// release clears the loan state.
func (it *Item) release() error {
	if it.available {
		return fmt.Errorf("return %s: %w", it.Key, ErrNotBorrowed)
	}
	it.available = true
	it.borrower = ""
	it.due = Date{}
	return nil
}

func (it *Item) String() string {
	status := "Available"
	if !it.available {
		status = "Borrowed (Due: " + it.due.String() + ")"
	}
	s := fmt.Sprintf("[%s] [%s] %s by %s (%d) - %s", it.Kind, it.Key, it.Title, it.Author, it.Year, status)
	switch {
	case it.Digital != nil:
		s += fmt.Sprintf(" | %s (%.1fMB)", it.Digital.Format, it.Digital.FileSizeMB)
	case it.Physical != nil:
		s += fmt.Sprintf(" | Shelf: %s | Condition: %s", it.Physical.ShelfLocation, it.Physical.Condition)
	}
	return s
}

// Patron represents a person permitted to borrow items.
//
// Student and Faculty carry the variant payload for the matching Kind.
type Patron struct {
	Key      string
	Name     string
	Contact  string
	JoinDate Date
	Kind     PatronKind

	Student *StudentInfo
	Faculty *FacultyInfo

	limit    int
	borrowed []string
}

// StudentInfo holds attributes specific to student patrons.
type StudentInfo struct {
	StudentID string
	Major     string
}

// FacultyInfo holds attributes specific to faculty patrons.
type FacultyInfo struct {
	FacultyID    string
	Department   string
	ExtendedLoan bool
}

// NewPatron creates a standard patron with no loans.
func NewPatron(key, name, contact string, joined Date) *Patron {
	return &Patron{
		Key:      key,
		Name:     name,
		Contact:  contact,
		JoinDate: joined,
		Kind:     PatronStandard,
		limit:    PatronStandard.Limit(),
	}
}

// NewStudent creates a student patron.
func NewStudent(key, name, contact string, joined Date, studentID, major string) *Patron {
	p := NewPatron(key, name, contact, joined)
	p.Kind = PatronStudent
	p.limit = PatronStudent.Limit()
	p.Student = &StudentInfo{StudentID: studentID, Major: major}
	return p
}

// NewFaculty creates a faculty patron with extended loans enabled.
func NewFaculty(key, name, contact string, joined Date, facultyID, department string) *Patron {
	p := NewPatron(key, name, contact, joined)
	p.Kind = PatronFaculty
	p.limit = PatronFaculty.Limit()
	p.Faculty = &FacultyInfo{FacultyID: facultyID, Department: department, ExtendedLoan: true}
	return p
}

// normalize resolves Kind, accepting legacy spellings, creates a missing variant
// payload and drops a mismatched one. A patron without a limit gets the one for
// its kind.
func (p *Patron) normalize() error {
	kind := PatronStandard
	if p.Kind != "" {
		k, ok := ParsePatronKind(string(p.Kind))
		if !ok {
			return fmt.Errorf("patron %s kind %q: %w", p.Key, p.Kind, ErrUnknownKind)
		}
		kind = k
	}
	p.Kind = kind
	switch kind {
	case PatronStudent:
		if p.Student == nil {
			p.Student = &StudentInfo{}
		}
		p.Faculty = nil
	case PatronFaculty:
		if p.Faculty == nil {
			p.Faculty = &FacultyInfo{ExtendedLoan: true}
		}
		p.Student = nil
	default:
		p.Student, p.Faculty = nil, nil
	}
	if p.limit <= 0 {
		p.limit = kind.Limit()
	}
	return nil
}

// Limit is the maximum number of concurrent loans.
func (p *Patron) Limit() int { return p.limit }

// Borrowed returns a copy of the keys currently on loan, in borrow order.
func (p *Patron) Borrowed() []string { return slices.Clone(p.borrowed) }

func (p *Patron) LoanCount() int { return len(p.borrowed) }

func (p *Patron) HasBorrowed(itemKey string) bool { return slices.Contains(p.borrowed, itemKey) }

func (p *Patron) CanBorrow() bool { return len(p.borrowed) < p.limit }

// LoanPeriod returns the faculty loan period and whether the patron has one.
// Faculty with extended loans get 30 days, otherwise 14.
func (p *Patron) LoanPeriod() (int, bool) {
	if p.Kind != PatronFaculty {
		return 0, false
	}
	if p.Faculty != nil && p.Faculty.ExtendedLoan {
		return extendedLoanDays, true
	}
	return facultyLoanDays, true
}

func (p *Patron) recordBorrow(itemKey string) error {
	if p.HasBorrowed(itemKey) {
		return fmt.Errorf("patron %s, item %s: %w", p.Key, itemKey, ErrDuplicateLoan)
	}
	if !p.CanBorrow() {
		return fmt.Errorf("patron %s (%d items): %w", p.Key, p.limit, ErrLimitReached)
	}
	p.borrowed = append(p.borrowed, itemKey)
	return nil
}

func (p *Patron) recordReturn(itemKey string) error {
	i := slices.Index(p.borrowed, itemKey)
	if i < 0 {
		return fmt.Errorf("patron %s, item %s: %w", p.Key, itemKey, ErrNotOnLoan)
	}
	p.borrowed = slices.Delete(p.borrowed, i, i+1)
	return nil
}

func (p *Patron) String() string {
	s := fmt.Sprintf("[%s] [%s] %s (%s) - %d/%d items borrowed", p.Kind, p.Key, p.Name, p.Contact, len(p.borrowed), p.limit)
	switch {
	case p.Student != nil:
		s += fmt.Sprintf(" | Student ID: %s | Major: %s", p.Student.StudentID, p.Student.Major)
	case p.Faculty != nil:
		s += fmt.Sprintf(" | Faculty ID: %s | Dept: %s", p.Faculty.FacultyID, p.Faculty.Department)
	}
	return s
}
