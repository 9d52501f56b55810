package library

// ItemsByKind returns the items of one variant.
func (c *Catalog) ItemsByKind(kind ItemKind) []*Item {
	return c.filterItems(func(it *Item) bool { return it.Kind == kind })
}

// PatronsByKind returns the patrons of one variant.
func (c *Catalog) PatronsByKind(kind PatronKind) []*Patron {
	return c.filterPatrons(func(p *Patron) bool { return p.Kind == kind })
}

func (c *Catalog) AvailableItems() []*Item {
	return c.filterItems(func(it *Item) bool { return it.available })
}

func (c *Catalog) BorrowedItems() []*Item {
	return c.filterItems(func(it *Item) bool { return !it.available })
}

// OverdueItems returns borrowed items whose due date is strictly before today.
func (c *Catalog) OverdueItems(today Date) []*Item {
	return c.filterItems(func(it *Item) bool { return it.IsOverdue(today) })
}

// ItemsByYear returns items published between from and to, inclusive.
func (c *Catalog) ItemsByYear(from, to int) []*Item {
	return c.filterItems(func(it *Item) bool { return it.Year >= from && it.Year <= to })
}
