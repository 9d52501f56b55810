package library

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is the persisted shape of a whole Catalog.
type Record struct {
	Name    string         `json:"name"`
	Items   []ItemRecord   `json:"items"`
	Patrons []PatronRecord `json:"patrons"`
}

// ItemRecord flattens an Item and its variant payload into one object.
type ItemRecord struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Year      int    `json:"year"`
	Available bool   `json:"available"`
	Borrower  string `json:"borrower,omitempty"`
	DueDate   string `json:"due_date,omitempty"`

	FileSizeMB    float64 `json:"file_size_mb,omitempty"`
	Format        string  `json:"format,omitempty"`
	ShelfLocation string  `json:"shelf_location,omitempty"`
	Condition     string  `json:"condition,omitempty"`
}

// PatronRecord flattens a Patron and its variant payload into one object.
type PatronRecord struct {
	Type     string   `json:"type"`
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Contact  string   `json:"contact"`
	JoinDate string   `json:"join_date"`
	MaxBooks int      `json:"max_books"`
	Borrowed []string `json:"borrowed_keys"`

	StudentID    string `json:"student_id,omitempty"`
	Major        string `json:"major,omitempty"`
	FacultyID    string `json:"faculty_id,omitempty"`
	Department   string `json:"department,omitempty"`
	ExtendedLoan *bool  `json:"extended_loan,omitempty"`
}

// ------------------ Encoding ------------------

// Serialize captures the full state of c, items and patrons in insertion order.
func Serialize(c *Catalog) Record {
	rec := Record{
		Name:    c.Name,
		Items:   make([]ItemRecord, 0, len(c.itemKeys)),
		Patrons: make([]PatronRecord, 0, len(c.patronKeys)),
	}
	for _, it := range c.Items() {
		rec.Items = append(rec.Items, itemRecord(it))
	}
	for _, p := range c.Patrons() {
		rec.Patrons = append(rec.Patrons, patronRecord(p))
	}
	return rec
}

func itemRecord(it *Item) ItemRecord {
	r := ItemRecord{
		Type:      string(it.Kind),
		Key:       it.Key,
		Title:     it.Title,
		Author:    it.Author,
		Year:      it.Year,
		Available: it.available,
		Borrower:  it.borrower,
		DueDate:   it.due.String(),
	}
	if it.Digital != nil {
		r.FileSizeMB = it.Digital.FileSizeMB
		r.Format = it.Digital.Format
	}
	if it.Physical != nil {
		r.ShelfLocation = it.Physical.ShelfLocation
		r.Condition = it.Physical.Condition
	}
	return r
}

func patronRecord(p *Patron) PatronRecord {
	r := PatronRecord{
		Type:     string(p.Kind),
		Key:      p.Key,
		Name:     p.Name,
		Contact:  p.Contact,
		JoinDate: p.JoinDate.String(),
		MaxBooks: p.limit,
		Borrowed: p.Borrowed(),
	}
	if r.Borrowed == nil {
		r.Borrowed = []string{}
	}
	if p.Student != nil {
		r.StudentID = p.Student.StudentID
		r.Major = p.Student.Major
	}
	if p.Faculty != nil {
		ext := p.Faculty.ExtendedLoan
		r.FacultyID = p.Faculty.FacultyID
		r.Department = p.Faculty.Department
		r.ExtendedLoan = &ext
	}
	return r
}

// Marshal serialises c to indented JSON.
func Marshal(c *Catalog) ([]byte, error) {
	data, err := json.MarshalIndent(Serialize(c), "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return data, nil
}

// ------------------ Decoding ------------------

// The wire types below accept both the current field names and the ones written
// by the earlier catalog program (isbn, is_available, member_id, ...). Current
// names win when both are present. Null loan fields read as empty.

type recordWire struct {
	Name    string         `json:"name"`
	Items   []ItemRecord   `json:"items"`
	Books   []ItemRecord   `json:"books"`
	Patrons []PatronRecord `json:"patrons"`
	Members []PatronRecord `json:"members"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Name = w.Name
	r.Items = append(w.Items, w.Books...)
	r.Patrons = append(w.Patrons, w.Members...)
	return nil
}

type itemWire struct {
	Type   string `json:"type"`
	Key    string `json:"key"`
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`

	Available   *bool   `json:"available"`
	IsAvailable *bool   `json:"is_available"`
	Borrower    *string `json:"borrower"`
	BorrowedBy  *string `json:"borrowed_by"`
	DueDate     *string `json:"due_date"`

	FileSizeMB    float64 `json:"file_size_mb"`
	Format        string  `json:"format"`
	FileFormat    string  `json:"file_format"`
	ShelfLocation string  `json:"shelf_location"`
	Condition     string  `json:"condition"`
}

// UnmarshalJSON implements json.Unmarshaler. A record without an availability
// flag is available unless it names a borrower or a due date.
func (r *ItemRecord) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var w itemWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = ItemRecord{
		Type:          w.Type,
		Key:           firstOf(w.Key, w.ISBN),
		Title:         w.Title,
		Author:        w.Author,
		Year:          w.Year,
		Borrower:      firstOf(deref(w.Borrower), deref(w.BorrowedBy)),
		DueDate:       deref(w.DueDate),
		FileSizeMB:    w.FileSizeMB,
		Format:        firstOf(w.Format, w.FileFormat),
		ShelfLocation: w.ShelfLocation,
		Condition:     w.Condition,
	}
	switch {
	case w.Available != nil:
		r.Available = *w.Available
	case w.IsAvailable != nil:
		r.Available = *w.IsAvailable
	default:
		r.Available = r.Borrower == "" && r.DueDate == ""
	}
	return nil
}

type patronWire struct {
	Type     string `json:"type"`
	Key      string `json:"key"`
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Email    string `json:"email"`
	JoinDate string `json:"join_date"`
	MaxBooks int    `json:"max_books"`

	Borrowed      []string `json:"borrowed_keys"`
	BorrowedBooks []string `json:"borrowed_books"`

	StudentID    string `json:"student_id"`
	Major        string `json:"major"`
	FacultyID    string `json:"faculty_id"`
	Department   string `json:"department"`
	ExtendedLoan *bool  `json:"extended_loan"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *PatronRecord) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var w patronWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	borrowed := w.Borrowed
	if borrowed == nil {
		borrowed = w.BorrowedBooks
	}
	*r = PatronRecord{
		Type:         w.Type,
		Key:          firstOf(w.Key, w.MemberID),
		Name:         w.Name,
		Contact:      firstOf(w.Contact, w.Email),
		JoinDate:     w.JoinDate,
		MaxBooks:     w.MaxBooks,
		Borrowed:     borrowed,
		StudentID:    w.StudentID,
		Major:        w.Major,
		FacultyID:    w.FacultyID,
		Department:   w.Department,
		ExtendedLoan: w.ExtendedLoan,
	}
	return nil
}

func firstOf(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Unmarshal decodes data produced by Marshal. Any malformed input yields an error
// wrapping ErrCorruptStore.
func Unmarshal(data []byte, opts ...Option) (*Catalog, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrCorruptStore)
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrCorruptStore)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStore, err)
	}
	return Deserialize(rec, opts...)
}

// Deserialize rebuilds a Catalog from rec, restoring every loan field verbatim.
// Unknown variant tags decode as the standard variant. Records that break the
// loan invariants, repeat a key, or carry unparsable dates wrap ErrCorruptStore.
func Deserialize(rec Record, opts ...Option) (*Catalog, error) {
	c := NewCatalog(rec.Name, opts...)

	for i, r := range rec.Items {
		it, err := itemFromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", ErrCorruptStore, i, err)
		}
		if _, dup := c.items[it.Key]; dup {
			return nil, fmt.Errorf("%w: item %q: %w", ErrCorruptStore, it.Key, ErrDuplicateKey)
		}
		c.insertItem(it)
	}

	for i, r := range rec.Patrons {
		p, err := patronFromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: patron %d: %w", ErrCorruptStore, i, err)
		}
		if _, dup := c.patrons[p.Key]; dup {
			return nil, fmt.Errorf("%w: patron %q: %w", ErrCorruptStore, p.Key, ErrDuplicateKey)
		}
		c.insertPatron(p)
	}

	if err := c.checkLoans(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptStore, err)
	}
	return c, nil
}

func itemFromRecord(r ItemRecord) (*Item, error) {
	if r.Key == "" {
		return nil, ErrInvalidKey
	}
	kind, _ := ParseItemKind(r.Type)

	var it *Item
	switch kind {
	case ItemDigital:
		it = NewDigitalItem(r.Key, r.Title, r.Author, r.Year, r.FileSizeMB, r.Format)
	case ItemPhysical:
		it = NewPhysicalItem(r.Key, r.Title, r.Author, r.Year, r.ShelfLocation, r.Condition)
	default:
		it = NewItem(r.Key, r.Title, r.Author, r.Year)
	}

	it.available = r.Available
	it.borrower = r.Borrower
	if r.DueDate != "" {
		due, err := ParseDate(r.DueDate)
		if err != nil {
			return nil, err
		}
		it.due = due
	}
	onLoan := it.borrower != "" || !it.due.IsZero()
	if it.available == onLoan || (onLoan && (it.borrower == "" || it.due.IsZero())) {
		return nil, fmt.Errorf("item %s: available=%t borrower=%q due=%q", r.Key, r.Available, r.Borrower, r.DueDate)
	}
	return it, nil
}

func patronFromRecord(r PatronRecord) (*Patron, error) {
	if r.Key == "" {
		return nil, ErrInvalidKey
	}
	var joined Date
	if r.JoinDate != "" {
		d, err := ParseDate(r.JoinDate)
		if err != nil {
			return nil, err
		}
		joined = d
	}

	kind, _ := ParsePatronKind(r.Type)

	var p *Patron
	switch kind {
	case PatronStudent:
		p = NewStudent(r.Key, r.Name, r.Contact, joined, r.StudentID, r.Major)
	case PatronFaculty:
		p = NewFaculty(r.Key, r.Name, r.Contact, joined, r.FacultyID, r.Department)
		if r.ExtendedLoan != nil {
			p.Faculty.ExtendedLoan = *r.ExtendedLoan
		}
	default:
		p = NewPatron(r.Key, r.Name, r.Contact, joined)
	}

	if r.MaxBooks > 0 {
		p.limit = r.MaxBooks
	}
	for _, k := range r.Borrowed {
		if p.HasBorrowed(k) {
			return nil, fmt.Errorf("patron %s: item %s: %w", r.Key, k, ErrDuplicateLoan)
		}
		p.borrowed = append(p.borrowed, k)
	}
	if len(p.borrowed) > p.limit {
		return nil, fmt.Errorf("patron %s holds %d items: %w", r.Key, len(p.borrowed), ErrLimitReached)
	}
	return p, nil
}

// checkLoans verifies that every loan is recorded on both sides.
func (c *Catalog) checkLoans() error {
	for _, it := range c.items {
		if it.available {
			continue
		}
		p, ok := c.patrons[it.borrower]
		if !ok {
			return fmt.Errorf("item %s lent to %s: %w", it.Key, it.borrower, ErrPatronNotFound)
		}
		if !p.HasBorrowed(it.Key) {
			return fmt.Errorf("item %s lent to %s: %w", it.Key, it.borrower, ErrNotOnLoan)
		}
	}
	for _, p := range c.patrons {
		for _, k := range p.borrowed {
			it, ok := c.items[k]
			if !ok {
				return fmt.Errorf("patron %s holds %s: %w", p.Key, k, ErrItemNotFound)
			}
			if it.available || it.borrower != p.Key {
				return fmt.Errorf("patron %s holds %s: %w", p.Key, k, ErrWrongBorrower)
			}
		}
	}
	return nil
}
