package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"lending-catalog/config"
	"lending-catalog/library"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app carries what every command needs once the root pre-run has loaded config.
type app struct {
	cfg *config.Config
	log *slog.Logger
	mgr *library.LibraryManager

	// flag overrides
	store, path, name string
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if library.IsConsistencyFault(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run executes one command line and always releases the store.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Manage a lending catalog of items and patrons",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.store, "store", "", "store backend: file or sqlite (overrides LIBRARY_STORE)")
	root.PersistentFlags().StringVar(&a.path, "path", "", "store location (overrides LIBRARY_PATH)")
	root.PersistentFlags().StringVar(&a.name, "name", "", "catalog name for a new store (overrides LIBRARY_NAME)")

	root.AddCommand(
		a.itemCmd(),
		a.patronCmd(),
		a.borrowCmd(),
		a.returnCmd(),
		a.searchCmd(),
		a.reportCmd(),
		a.historyCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context, logOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.store != "" {
		cfg.Store = a.store
	}
	if a.path != "" {
		cfg.Path = a.path
	}
	if a.name != "" {
		cfg.Name = a.name
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = newLogger(cfg, logOut)

	store, err := library.OpenStore(cfg.Store, cfg.Path, cfg.SnapshotHistory)
	if err != nil {
		return err
	}
	a.mgr, err = library.NewLibraryManager(ctx, store, cfg.Name, a.log)
	if err != nil {
		store.Close()
		return err
	}
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lvl, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: lvl}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(slog.String("app", "library"))
}

// ------------------ Items ------------------

func (a *app) itemCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "item", Short: "Add, remove and list items"}

	var kind, format, shelf, condition string
	var sizeMB float64
	add := &cobra.Command{
		Use:   "add KEY TITLE AUTHOR YEAR",
		Short: "Add an item to the catalog",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[3])
			}
			k, ok := library.ParseItemKind(kind)
			if !ok {
				return fmt.Errorf("unknown item kind %q", kind)
			}
			var it *library.Item
			switch k {
			case library.ItemDigital:
				it = library.NewDigitalItem(args[0], args[1], args[2], year, sizeMB, format)
			case library.ItemPhysical:
				it = library.NewPhysicalItem(args[0], args[1], args[2], year, shelf, condition)
			default:
				it = library.NewItem(args[0], args[1], args[2], year)
			}
			if err := a.mgr.AddItem(cmd.Context(), it); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", it)
			return nil
		},
	}
	add.Flags().StringVar(&kind, "kind", "standard", "standard, digital or physical")
	add.Flags().Float64Var(&sizeMB, "size", 0, "file size in MB (digital)")
	add.Flags().StringVar(&format, "format", "PDF", "file format (digital)")
	add.Flags().StringVar(&shelf, "shelf", "Unknown", "shelf location (physical)")
	add.Flags().StringVar(&condition, "condition", "Good", "condition (physical)")

	remove := &cobra.Command{
		Use:   "remove KEY",
		Short: "Remove an item that is not on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.RemoveItem(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed item %s\n", args[0])
			return nil
		},
	}

	var listKind string
	var onlyAvailable, onlyBorrowed bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := a.mgr.Catalog()
			items := cat.Items()
			switch {
			case onlyAvailable:
				items = cat.AvailableItems()
			case onlyBorrowed:
				items = cat.BorrowedItems()
			}
			if listKind != "" {
				k, _ := library.ParseItemKind(listKind)
				items = keepKind(items, k)
			}
			a.printItems(cmd.OutOrStdout(), items)
			return nil
		},
	}
	list.Flags().StringVar(&listKind, "kind", "", "only items of this kind")
	list.Flags().BoolVar(&onlyAvailable, "available", false, "only available items")
	list.Flags().BoolVar(&onlyBorrowed, "borrowed", false, "only items on loan")
	list.MarkFlagsMutuallyExclusive("available", "borrowed")

	cond := &cobra.Command{
		Use:   "condition KEY CONDITION",
		Short: "Record the condition of a physical item (New, Good, Fair, Poor)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.UpdateCondition(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %s is now in %s condition\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(add, remove, list, cond)
	return cmd
}

func keepKind(items []*library.Item, k library.ItemKind) []*library.Item {
	out := items[:0:0]
	for _, it := range items {
		if it.Kind == k {
			out = append(out, it)
		}
	}
	return out
}

// ------------------ Patrons ------------------

func (a *app) patronCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "patron", Short: "Add, remove and list patrons"}

	var key, kind, studentID, major, facultyID, department, joined string
	add := &cobra.Command{
		Use:   "add NAME CONTACT",
		Short: "Register a patron; a key is generated unless --key is given",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, ok := library.ParsePatronKind(kind)
			if !ok {
				return fmt.Errorf("unknown patron kind %q", kind)
			}
			if key == "" {
				key = uuid.NewString()
			}
			joinDate := library.Today()
			if joined != "" {
				d, err := library.ParseDate(joined)
				if err != nil {
					return err
				}
				joinDate = d
			}
			var p *library.Patron
			switch k {
			case library.PatronStudent:
				p = library.NewStudent(key, args[0], args[1], joinDate, studentID, major)
			case library.PatronFaculty:
				p = library.NewFaculty(key, args[0], args[1], joinDate, facultyID, department)
			default:
				p = library.NewPatron(key, args[0], args[1], joinDate)
			}
			if err := a.mgr.AddPatron(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", p)
			return nil
		},
	}
	add.Flags().StringVar(&key, "key", "", "patron key")
	add.Flags().StringVar(&kind, "kind", "standard", "standard, student or faculty")
	add.Flags().StringVar(&joined, "joined", "", "join date YYYY-MM-DD (default today)")
	add.Flags().StringVar(&studentID, "student-id", "", "student id (student)")
	add.Flags().StringVar(&major, "major", "", "major (student)")
	add.Flags().StringVar(&facultyID, "faculty-id", "", "faculty id (faculty)")
	add.Flags().StringVar(&department, "department", "", "department (faculty)")

	remove := &cobra.Command{
		Use:   "remove KEY",
		Short: "Remove a patron with no outstanding loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.RemovePatron(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed patron %s\n", args[0])
			return nil
		},
	}

	var listKind string
	list := &cobra.Command{
		Use:   "list",
		Short: "List patrons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := a.mgr.Catalog()
			patrons := cat.Patrons()
			if listKind != "" {
				k, _ := library.ParsePatronKind(listKind)
				patrons = cat.PatronsByKind(k)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-36s %-25s %-9s %-6s\n", "Key", "Name", "Kind", "Loans")
			fmt.Fprintln(w, strings.Repeat("-", 80))
			for _, p := range patrons {
				fmt.Fprintf(w, "%-36s %-25s %-9s %d/%d\n", p.Key, a.fit(p.Name, 25), p.Kind, p.LoanCount(), p.Limit())
			}
			return nil
		},
	}
	list.Flags().StringVar(&listKind, "kind", "", "only patrons of this kind")

	loans := &cobra.Command{
		Use:   "loans KEY",
		Short: "List the items a patron has on loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.mgr.Catalog().PatronLoans(args[0])
			if err != nil {
				return err
			}
			a.printItems(cmd.OutOrStdout(), items)
			return nil
		},
	}

	cmd.AddCommand(add, remove, list, loans)
	return cmd
}

// ------------------ Circulation ------------------

func (a *app) borrowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "borrow PATRON ITEM",
		Short: "Lend an item to a patron",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			due, err := a.mgr.BorrowItem(cmd.Context(), args[0], args[1])
			if err != nil {
				if library.IsConsistencyFault(err) {
					a.log.Error("borrow_failed", "patron", args[0], "item", args[1], "error", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %s lent to %s, due %s\n", args[1], args[0], due)
			return nil
		},
	}
}

func (a *app) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return PATRON ITEM",
		Short: "Take back an item from a patron",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.mgr.ReturnItem(cmd.Context(), args[0], args[1]); err != nil {
				if library.IsConsistencyFault(err) {
					a.log.Error("return_failed", "patron", args[0], "item", args[1], "error", err)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Item %s returned by %s\n", args[1], args[0])
			return nil
		},
	}
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search KEYWORD...",
		Short: "Find items whose title or author contains the keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := a.mgr.Catalog().Search(strings.Join(args, " "))
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching items.")
				return nil
			}
			a.printItems(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

// ------------------ Reports ------------------

func (a *app) reportCmd() *cobra.Command {
	var on string
	cmd := &cobra.Command{Use: "report", Short: "Catalog reports"}
	cmd.PersistentFlags().StringVar(&on, "on", "", "evaluate as of this date YYYY-MM-DD (default today)")

	asOf := func() (library.Date, error) {
		if on == "" {
			return library.Today(), nil
		}
		return library.ParseDate(on)
	}

	available := &cobra.Command{
		Use:   "available",
		Short: "Items that can be borrowed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.printItems(cmd.OutOrStdout(), a.mgr.Catalog().AvailableItems())
			return nil
		},
	}

	loanReport := func(use, short string, build func(*library.Catalog, library.Date) []library.LoanLine) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				today, err := asOf()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%-10s %-30s %-20s %-10s %s\n", "Item", "Title", "Borrower", "Due", "Overdue")
				fmt.Fprintln(w, strings.Repeat("-", 85))
				for _, l := range build(a.mgr.Catalog(), today) {
					overdue := ""
					if l.Overdue() {
						overdue = fmt.Sprintf("%d days", l.DaysOverdue)
					}
					fmt.Fprintf(w, "%-10s %-30s %-20s %-10s %s\n", l.ItemKey, a.fit(l.Title, 30), a.fit(l.BorrowerName, 20), l.DueDate, overdue)
				}
				return nil
			},
		}
	}
	borrowed := loanReport("borrowed", "Every outstanding loan", (*library.Catalog).BorrowedReport)
	overdue := loanReport("overdue", "Loans past their due date", (*library.Catalog).OverdueReport)

	activity := &cobra.Command{
		Use:   "activity",
		Short: "Current loans per patron",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, act := range a.mgr.Catalog().PatronActivity() {
				fmt.Fprintf(w, "%-25s %-9s %d/%d (%.0f%%)\n", a.fit(act.Name, 25), act.Kind, act.Loans, act.Limit, act.Utilisation)
				for _, title := range act.Titles {
					fmt.Fprintf(w, "    %s\n", a.fit(title, 60))
				}
			}
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Totals by item kind and borrowing summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat := a.mgr.Catalog()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-9s %6s %9s %8s\n", "Kind", "Total", "Available", "Borrowed")
			for _, s := range cat.KindStats() {
				fmt.Fprintf(w, "%-9s %6d %9d %8d\n", s.Kind, s.Total, s.Available, s.Borrowed)
			}
			b := cat.BorrowingStats()
			fmt.Fprintf(w, "\nPatrons: %d (%d with loans, %d at limit)\n", b.TotalPatrons, b.PatronsWithLoans, b.PatronsAtLimit)
			fmt.Fprintf(w, "Loans: %d (%.2f per patron)\n", b.TotalLoans, b.AveragePerPatron)
			fmt.Fprintf(w, "Digital collection: %.1f MB\n", b.TotalDigitalSizeMB)
			return nil
		},
	}

	var n int
	top := &cobra.Command{
		Use:   "top",
		Short: "Patrons with the most items on loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for i, p := range a.mgr.Catalog().TopBorrowers(n) {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-25s %d\n", i+1, a.fit(p.Name, 25), p.LoanCount())
			}
			return nil
		},
	}
	top.Flags().IntVarP(&n, "limit", "n", 5, "number of patrons to show")

	var nAuthors int
	authors := &cobra.Command{
		Use:   "authors",
		Short: "Authors with the most items in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for i, ac := range a.mgr.Catalog().PopularAuthors(nAuthors) {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s: %d item(s)\n", i+1, a.fit(ac.Author, 40), ac.Items)
			}
			return nil
		},
	}
	authors.Flags().IntVarP(&nAuthors, "limit", "n", 5, "number of authors to show")

	cmd.AddCommand(available, borrowed, overdue, activity, stats, top, authors)
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List retained snapshots (sqlite store only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, ok := a.mgr.Store().(*library.SQLiteStore)
			if !ok {
				return errors.New("history is only kept by the sqlite store")
			}
			snaps, err := db.Snapshots(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range snaps {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s  %-20s %8d bytes  %s\n", s.ID, s.SavedAt.Format("2006-01-02 15:04:05"), a.fit(s.Name, 20), s.Size, s.Checksum[:12])
			}
			return nil
		},
	}
}

// ------------------ Output ------------------

func (a *app) printItems(w io.Writer, items []*library.Item) {
	fmt.Fprintf(w, "%-10s %-30s %-25s %-9s %-10s %-20s %s\n", "Key", "Title", "Author", "Kind", "Available", "Borrower", "Due")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	cat := a.mgr.Catalog()
	for _, it := range items {
		borrower := ""
		if key, ok := it.Borrower(); ok {
			borrower = "Unknown"
			if p, ok := cat.Patron(key); ok {
				borrower = p.Name
			}
		}
		row := *it
		row.Title = a.fit(it.Title, 30)
		row.Author = a.fit(it.Author, 25)
		fmt.Fprintln(w, a.fitLine(library.PrettyItem(&row, a.fit(borrower, 20))))
	}
}

// fit truncates s to width runes only when writing to a terminal.
func (a *app) fit(s string, width int) string {
	if termWidth() == 0 {
		return s
	}
	return truncateString(s, width)
}

// fitLine clips a whole row to the terminal width.
func (a *app) fitLine(s string) string {
	if w := termWidth(); w > 0 {
		return truncateString(s, w)
	}
	return s
}

// termWidth returns the width of stdout, or 0 when stdout is not a terminal.
func termWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
