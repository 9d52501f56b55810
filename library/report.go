package library

import (
	"cmp"
	"slices"
)

// LoanLine describes one outstanding loan for reporting.
type LoanLine struct {
	ItemKey        string
	Title          string
	Kind           ItemKind
	BorrowerKey    string
	BorrowerName   string
	BorrowerKind   PatronKind
	ContactAddress string
	DueDate        Date
	DaysOverdue    int
}

// Overdue reports whether the loan was past due when the line was built.
func (l LoanLine) Overdue() bool { return l.DaysOverdue > 0 }

// BorrowedReport lists every outstanding loan with its borrower, as seen on today.
func (c *Catalog) BorrowedReport(today Date) []LoanLine {
	return c.loanLines(c.BorrowedItems(), today)
}

// OverdueReport lists the loans that are past due on today.
func (c *Catalog) OverdueReport(today Date) []LoanLine {
	return c.loanLines(c.OverdueItems(today), today)
}

func (c *Catalog) loanLines(items []*Item, today Date) []LoanLine {
	lines := make([]LoanLine, 0, len(items))
	for _, it := range items {
		l := LoanLine{
			ItemKey:      it.Key,
			Title:        it.Title,
			Kind:         it.Kind,
			BorrowerKey:  it.borrower,
			BorrowerName: "Unknown",
			DueDate:      it.due,
		}
		if p, ok := c.patrons[it.borrower]; ok {
			l.BorrowerName = p.Name
			l.BorrowerKind = p.Kind
			l.ContactAddress = p.Contact
		}
		if it.IsOverdue(today) {
			l.DaysOverdue = it.due.DaysUntil(today)
		}
		lines = append(lines, l)
	}
	return lines
}

// Activity summarises one patron's current borrowing.
type Activity struct {
	PatronKey   string
	Name        string
	Kind        PatronKind
	Loans       int
	Limit       int
	Utilisation float64 // percentage of Limit in use
	Titles      []string
}

// PatronActivity returns one Activity per patron, in insertion order.
func (c *Catalog) PatronActivity() []Activity {
	out := make([]Activity, 0, len(c.patronKeys))
	for _, p := range c.Patrons() {
		a := Activity{
			PatronKey: p.Key,
			Name:      p.Name,
			Kind:      p.Kind,
			Loans:     len(p.borrowed),
			Limit:     p.limit,
			Titles:    []string{},
		}
		if p.limit > 0 {
			a.Utilisation = float64(len(p.borrowed)) / float64(p.limit) * 100
		}
		for _, k := range p.borrowed {
			if it, ok := c.items[k]; ok {
				a.Titles = append(a.Titles, it.Title)
			}
		}
		out = append(out, a)
	}
	return out
}

// TopBorrowers returns up to n patrons with at least one loan, ordered by loan
// count descending. Ties keep insertion order.
func (c *Catalog) TopBorrowers(n int) []*Patron {
	ranked := c.filterPatrons(func(p *Patron) bool { return len(p.borrowed) > 0 })
	slices.SortStableFunc(ranked, func(a, b *Patron) int {
		return cmp.Compare(len(b.borrowed), len(a.borrowed))
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// AuthorCount is the number of catalog items by one author.
type AuthorCount struct {
	Author string
	Items  int
}

// PopularAuthors returns up to n authors ranked by how many items they have in
// the catalog. Ties keep the order in which authors first appear.
func (c *Catalog) PopularAuthors(n int) []AuthorCount {
	var ranked []AuthorCount
	index := make(map[string]int)
	for _, it := range c.Items() {
		i, ok := index[it.Author]
		if !ok {
			i = len(ranked)
			index[it.Author] = i
			ranked = append(ranked, AuthorCount{Author: it.Author})
		}
		ranked[i].Items++
	}
	slices.SortStableFunc(ranked, func(a, b AuthorCount) int {
		return cmp.Compare(b.Items, a.Items)
	})
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// GroupItemsByKind buckets items by variant. Every known kind has an entry.
func (c *Catalog) GroupItemsByKind() map[ItemKind][]*Item {
	out := make(map[ItemKind][]*Item, len(ItemKinds))
	for _, k := range ItemKinds {
		out[k] = c.ItemsByKind(k)
	}
	return out
}

// GroupPatronsByKind buckets patrons by variant. Every known kind has an entry.
func (c *Catalog) GroupPatronsByKind() map[PatronKind][]*Patron {
	out := make(map[PatronKind][]*Patron, len(PatronKinds))
	for _, k := range PatronKinds {
		out[k] = c.PatronsByKind(k)
	}
	return out
}

// KindStat counts the items of one variant by availability.
type KindStat struct {
	Kind      ItemKind
	Total     int
	Available int
	Borrowed  int
}

// KindStats returns one KindStat per known item variant.
func (c *Catalog) KindStats() []KindStat {
	stats := make([]KindStat, 0, len(ItemKinds))
	for _, k := range ItemKinds {
		s := KindStat{Kind: k}
		for _, it := range c.ItemsByKind(k) {
			s.Total++
			if it.available {
				s.Available++
			}
		}
		s.Borrowed = s.Total - s.Available
		stats = append(stats, s)
	}
	return stats
}

// BorrowingStats aggregates loans across all patrons.
type BorrowingStats struct {
	TotalPatrons       int
	PatronsWithLoans   int
	TotalLoans         int
	AveragePerPatron   float64
	PatronsAtLimit     int
	TotalDigitalSizeMB float64
}

func (c *Catalog) BorrowingStats() BorrowingStats {
	var s BorrowingStats
	for _, p := range c.Patrons() {
		s.TotalPatrons++
		s.TotalLoans += len(p.borrowed)
		if len(p.borrowed) > 0 {
			s.PatronsWithLoans++
		}
		if len(p.borrowed) >= p.limit {
			s.PatronsAtLimit++
		}
	}
	if s.TotalPatrons > 0 {
		s.AveragePerPatron = float64(s.TotalLoans) / float64(s.TotalPatrons)
	}
	for _, it := range c.Items() {
		if it.Digital != nil {
			s.TotalDigitalSizeMB += it.Digital.FileSizeMB
		}
	}
	return s
}
