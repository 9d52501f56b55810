package library

import (
	"slices"
	"strings"
)

// ItemKind tags the variant of an Item.
type ItemKind string

const (
	ItemStandard ItemKind = "standard"
	ItemDigital  ItemKind = "digital"
	ItemPhysical ItemKind = "physical"
)

// PatronKind tags the variant of a Patron.
type PatronKind string

const (
	PatronStandard PatronKind = "standard"
	PatronStudent  PatronKind = "student"
	PatronFaculty  PatronKind = "faculty"
)

// ItemKinds and PatronKinds list the known variants in reporting order.
var (
	ItemKinds   = []ItemKind{ItemStandard, ItemDigital, ItemPhysical}
	PatronKinds = []PatronKind{PatronStandard, PatronStudent, PatronFaculty}
)

// Default loan period in days by item variant.
var itemLoanDays = map[ItemKind]int{
	ItemStandard: 14,
	ItemDigital:  30,
	ItemPhysical: 14,
}

// Borrowing limit by patron variant.
var patronLimits = map[PatronKind]int{
	PatronStandard: 3,
	PatronStudent:  5,
	PatronFaculty:  10,
}

const (
	facultyLoanDays  = 14
	extendedLoanDays = 30
)

// Physical item conditions accepted by UpdateCondition.
var conditions = []string{"New", "Good", "Fair", "Poor"}

// Payload values used when a digital or physical item is created without them.
const (
	defaultFormat    = "PDF"
	defaultShelf     = "Unknown"
	defaultCondition = "Good"
)

// Legacy variant names still found in older data files.
var (
	itemKindAliases = map[string]ItemKind{
		"book":         ItemStandard,
		"ebook":        ItemDigital,
		"physicalbook": ItemPhysical,
	}
	patronKindAliases = map[string]PatronKind{
		"member":  PatronStandard,
		"teacher": PatronFaculty,
	}
)

// LoanDays is the default loan period for items of this kind. Unknown kinds fall
// back to the standard variant.
func (k ItemKind) LoanDays() int {
	if d, ok := itemLoanDays[k]; ok {
		return d
	}
	return itemLoanDays[ItemStandard]
}

// Limit is the borrowing limit for patrons of this kind. Unknown kinds fall back
// to the standard variant.
func (k PatronKind) Limit() int {
	if n, ok := patronLimits[k]; ok {
		return n
	}
	return patronLimits[PatronStandard]
}

// ParseItemKind maps a tag (current or legacy spelling) to an ItemKind. Unknown
// tags yield ItemStandard and ok=false.
func ParseItemKind(tag string) (ItemKind, bool) {
	t := strings.ToLower(strings.TrimSpace(tag))
	if _, ok := itemLoanDays[ItemKind(t)]; ok {
		return ItemKind(t), true
	}
	if k, ok := itemKindAliases[t]; ok {
		return k, true
	}
	return ItemStandard, false
}

// ParsePatronKind maps a tag (current or legacy spelling) to a PatronKind. Unknown
// tags yield PatronStandard and ok=false.
func ParsePatronKind(tag string) (PatronKind, bool) {
	t := strings.ToLower(strings.TrimSpace(tag))
	if _, ok := patronLimits[PatronKind(t)]; ok {
		return PatronKind(t), true
	}
	if k, ok := patronKindAliases[t]; ok {
		return k, true
	}
	return PatronStandard, false
}

func validCondition(c string) bool { return slices.Contains(conditions, c) }
