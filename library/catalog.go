package library

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Catalog owns every Item and Patron of one lending institution and is the only
// place where loans are created or closed.
//
// Items and patrons are iterated in insertion order. A Catalog is not safe for
// concurrent use; callers serialise access.
type Catalog struct {
	Name string

	items      map[string]*Item
	itemKeys   []string
	patrons    map[string]*Patron
	patronKeys []string

	today  func() Date
	logger *slog.Logger

	// lend and takeBack perform the item side of a borrow and a return; replaced
	// in tests to exercise rollback.
	lend     func(it *Item, patronKey string, today Date, days int) error
	takeBack func(it *Item) error
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock sets the source of "today" used to compute due dates.
func WithClock(today func() Date) Option {
	return func(c *Catalog) { c.today = today }
}

// WithLogger sets the logger used for transaction events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// NewCatalog returns an empty catalog.
func NewCatalog(name string, opts ...Option) *Catalog {
	c := &Catalog{
		Name:     name,
		items:    make(map[string]*Item),
		patrons:  make(map[string]*Patron),
		today:    Today,
		logger:   slog.New(slog.DiscardHandler),
		lend:     (*Item).borrow,
		takeBack: (*Item).release,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ------------------ Items ------------------

// AddItem inserts a new item. New entries always start available, with a known
// Kind and the payload that Kind carries.
func (c *Catalog) AddItem(it *Item) error {
	if strings.TrimSpace(it.Key) == "" {
		return fmt.Errorf("add item: %w", ErrInvalidKey)
	}
	if _, ok := c.items[it.Key]; ok {
		return fmt.Errorf("add item %s: %w", it.Key, ErrDuplicateKey)
	}
	if err := it.normalize(); err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	it.available, it.borrower, it.due = true, "", Date{}
	c.insertItem(it)
	return nil
}

func (c *Catalog) insertItem(it *Item) {
	c.items[it.Key] = it
	c.itemKeys = append(c.itemKeys, it.Key)
}

// RemoveItem deletes an item that is not on loan.
func (c *Catalog) RemoveItem(key string) error {
	it, ok := c.items[key]
	if !ok {
		return fmt.Errorf("remove item %s: %w", key, ErrItemNotFound)
	}
	if !it.available {
		return fmt.Errorf("remove item %s: %w", key, ErrItemBorrowed)
	}
	delete(c.items, key)
	c.itemKeys = slices.DeleteFunc(c.itemKeys, func(k string) bool { return k == key })
	return nil
}

// Item looks up an item by key.
func (c *Catalog) Item(key string) (*Item, bool) {
	it, ok := c.items[key]
	return it, ok
}

// Items returns every item in insertion order.
func (c *Catalog) Items() []*Item {
	return c.filterItems(func(*Item) bool { return true })
}

// UpdateCondition changes the recorded condition of a physical item.
func (c *Catalog) UpdateCondition(key, condition string) error {
	it, ok := c.items[key]
	if !ok {
		return fmt.Errorf("update condition %s: %w", key, ErrItemNotFound)
	}
	if it.Kind != ItemPhysical {
		return fmt.Errorf("update condition %s (%s): %w", key, it.Kind, ErrWrongVariant)
	}
	if !validCondition(condition) {
		return fmt.Errorf("update condition %s to %q: %w", key, condition, ErrInvalidCondition)
	}
	if it.Physical == nil {
		it.Physical = &PhysicalInfo{}
	}
	it.Physical.Condition = condition
	return nil
}

// ------------------ Patrons ------------------

// AddPatron inserts a new patron. New entries always start with no loans.
func (c *Catalog) AddPatron(p *Patron) error {
	if strings.TrimSpace(p.Key) == "" {
		return fmt.Errorf("add patron: %w", ErrInvalidKey)
	}
	if _, ok := c.patrons[p.Key]; ok {
		return fmt.Errorf("add patron %s: %w", p.Key, ErrDuplicateKey)
	}
	if err := p.normalize(); err != nil {
		return fmt.Errorf("add patron: %w", err)
	}
	p.borrowed = nil
	c.insertPatron(p)
	return nil
}

func (c *Catalog) insertPatron(p *Patron) {
	c.patrons[p.Key] = p
	c.patronKeys = append(c.patronKeys, p.Key)
}

// RemovePatron deletes a patron with no outstanding loans.
func (c *Catalog) RemovePatron(key string) error {
	p, ok := c.patrons[key]
	if !ok {
		return fmt.Errorf("remove patron %s: %w", key, ErrPatronNotFound)
	}
	if len(p.borrowed) > 0 {
		return fmt.Errorf("remove patron %s (%d loans): %w", key, len(p.borrowed), ErrPatronHasLoans)
	}
	delete(c.patrons, key)
	c.patronKeys = slices.DeleteFunc(c.patronKeys, func(k string) bool { return k == key })
	return nil
}

// Patron looks up a patron by key.
func (c *Catalog) Patron(key string) (*Patron, bool) {
	p, ok := c.patrons[key]
	return p, ok
}

// Patrons returns every patron in insertion order.
func (c *Catalog) Patrons() []*Patron {
	return c.filterPatrons(func(*Patron) bool { return true })
}

// PatronLoans returns the items on loan to a patron, in borrow order.
func (c *Catalog) PatronLoans(patronKey string) ([]*Item, error) {
	p, ok := c.patrons[patronKey]
	if !ok {
		return nil, fmt.Errorf("loans of %s: %w", patronKey, ErrPatronNotFound)
	}
	out := make([]*Item, 0, len(p.borrowed))
	for _, k := range p.borrowed {
		if it, ok := c.items[k]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// ------------------ Circulation ------------------

// LoanPeriod is the number of days p may keep it: faculty use their own loan
// period, everyone else gets the item's default.
func LoanPeriod(p *Patron, it *Item) int {
	if days, ok := p.LoanPeriod(); ok {
		return days
	}
	return it.LoanDays()
}

// BorrowItem lends an item to a patron and returns its due date.
//
// The patron side is recorded first; the item side second. If the item update
// fails the patron record is compensated and ErrTransactionFailed is returned, so
// neither side is ever left updated without the other.
func (c *Catalog) BorrowItem(patronKey, itemKey string) (Date, error) {
	p, ok := c.patrons[patronKey]
	if !ok {
		return Date{}, fmt.Errorf("borrow %s: %w", itemKey, ErrPatronNotFound)
	}
	it, ok := c.items[itemKey]
	if !ok {
		return Date{}, fmt.Errorf("borrow %s: %w", itemKey, ErrItemNotFound)
	}
	if !it.available {
		return Date{}, fmt.Errorf("borrow %s: %w", itemKey, ErrItemNotAvailable)
	}

	days := LoanPeriod(p, it)

	if err := p.recordBorrow(itemKey); err != nil {
		return Date{}, err
	}

	if err := c.lend(it, patronKey, c.today(), days); err != nil {
		if cerr := p.recordReturn(itemKey); cerr != nil {
			err = errors.Join(err, fmt.Errorf("compensate: %w", cerr))
		}
		c.logger.Error("borrow_rolled_back",
			slog.String("patron", patronKey),
			slog.String("item", itemKey),
			slog.Any("error", err),
		)
		return Date{}, fmt.Errorf("borrow %s by %s: %w: %w", itemKey, patronKey, ErrTransactionFailed, err)
	}

	c.logger.Debug("item_borrowed",
		slog.String("patron", patronKey),
		slog.String("item", itemKey),
		slog.Int("loan_days", days),
		slog.String("due", it.due.String()),
	)
	return it.due, nil
}

// ReturnItem closes the loan of itemKey held by patronKey.
func (c *Catalog) ReturnItem(patronKey, itemKey string) error {
	p, ok := c.patrons[patronKey]
	if !ok {
		return fmt.Errorf("return %s: %w", itemKey, ErrPatronNotFound)
	}
	it, ok := c.items[itemKey]
	if !ok {
		return fmt.Errorf("return %s: %w", itemKey, ErrItemNotFound)
	}
	if it.available || it.borrower != patronKey {
		return fmt.Errorf("return %s by %s: %w", itemKey, patronKey, ErrWrongBorrower)
	}

	held := slices.Clone(p.borrowed)
	if err := p.recordReturn(itemKey); err != nil {
		c.logger.Error("return_failed", slog.String("patron", patronKey), slog.String("item", itemKey), slog.Any("error", err))
		return fmt.Errorf("return %s by %s: %w: %w", itemKey, patronKey, ErrTransactionFailed, err)
	}
	if err := c.takeBack(it); err != nil {
		p.borrowed = held
		c.logger.Error("return_rolled_back", slog.String("patron", patronKey), slog.String("item", itemKey), slog.Any("error", err))
		return fmt.Errorf("return %s by %s: %w: %w", itemKey, patronKey, ErrTransactionFailed, err)
	}

	c.logger.Debug("item_returned", slog.String("patron", patronKey), slog.String("item", itemKey))
	return nil
}

// ------------------ Search ------------------

// Search returns items whose title or author contains keyword, compared with
// Unicode case folding. An empty keyword matches nothing.
func (c *Catalog) Search(keyword string) []*Item {
	if strings.TrimSpace(keyword) == "" {
		return []*Item{}
	}
	fold := cases.Fold()
	needle := fold.String(keyword)
	return c.filterItems(func(it *Item) bool {
		return strings.Contains(fold.String(it.Title), needle) ||
			strings.Contains(fold.String(it.Author), needle)
	})
}

func (c *Catalog) filterItems(keep func(*Item) bool) []*Item {
	out := []*Item{}
	for _, k := range c.itemKeys {
		if it := c.items[k]; keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func (c *Catalog) filterPatrons(keep func(*Patron) bool) []*Patron {
	out := []*Patron{}
	for _, k := range c.patronKeys {
		if p := c.patrons[k]; keep(p) {
			out = append(out, p)
		}
	}
	return out
}
