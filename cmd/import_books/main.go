package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"lending-catalog/config"
	"lending-catalog/library"

	"github.com/spf13/cobra"
)

func main() {
	if err := newImportCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var store, path string
	cmd := &cobra.Command{
		Use:           "import_books FILE.csv",
		Short:         "Import items from CSV rows: key,title,author,year,kind[,extra1,extra2]",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if store != "" {
				cfg.Store = store
			}
			if path != "" {
				cfg.Path = path
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			lvl, _ := cfg.Level()
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))

			st, err := library.OpenStore(cfg.Store, cfg.Path, cfg.SnapshotHistory)
			if err != nil {
				return err
			}
			manager, err := library.NewLibraryManager(cmd.Context(), st, cfg.Name, log)
			if err != nil {
				st.Close()
				return err
			}
			defer manager.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := importItems(cmd.Context(), manager, f, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nImport complete!\n")
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully imported: %d items\n", res.imported)
			fmt.Fprintf(cmd.OutOrStdout(), "Errors: %d\n", res.failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&store, "store", "", "store backend: file or sqlite (overrides LIBRARY_STORE)")
	cmd.Flags().StringVar(&path, "path", "", "store location (overrides LIBRARY_PATH)")
	return cmd
}

type result struct {
	imported, failed int
}

// importItems adds one item per CSV row and saves the catalog once at the end. A
// leading header row whose first field is "key" is skipped. Bad rows are
// reported and counted, not fatal.
func importItems(ctx context.Context, manager *library.LibraryManager, r io.Reader, out io.Writer) (result, error) {
	var res result
	err := manager.Batch(ctx, "import", func(cat *library.Catalog) error {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true

		for line := 1; ; line++ {
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read csv: %w", err)
			}
			if line == 1 && strings.EqualFold(row[0], "key") {
				continue
			}

			it, err := parseRow(row)
			if err == nil {
				err = cat.AddItem(it)
			}
			if err != nil {
				fmt.Fprintf(out, "line %d: ERROR - %v\n", line, err)
				res.failed++
				continue
			}
			fmt.Fprintf(out, "Imported: %s by %s\n", truncateString(it.Title, 50), truncateString(it.Author, 30))
			res.imported++
		}
	})
	return res, err
}

func parseRow(row []string) (*library.Item, error) {
	if len(row) < 5 {
		return nil, fmt.Errorf("want at least 5 fields, got %d", len(row))
	}
	key, title, author := row[0], row[1], row[2]
	year, err := strconv.Atoi(row[3])
	if err != nil {
		return nil, fmt.Errorf("invalid year %q", row[3])
	}
	extra := func(i int) string {
		if len(row) > i {
			return row[i]
		}
		return ""
	}

	kind, ok := library.ParseItemKind(row[4])
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", row[4])
	}
	switch kind {
	case library.ItemDigital:
		size := 0.0
		if s := extra(5); s != "" {
			if size, err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("invalid file size %q", s)
			}
		}
		return library.NewDigitalItem(key, title, author, year, size, extra(6)), nil
	case library.ItemPhysical:
		return library.NewPhysicalItem(key, title, author, year, extra(5), extra(6)), nil
	default:
		return library.NewItem(key, title, author, year), nil
	}
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
