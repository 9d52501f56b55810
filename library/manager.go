package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// LibraryManager is a thin façade over a Catalog and its Store, keeping CLI code
// simple. Every successful mutation is written back to the store before the call
// returns.
type LibraryManager struct {
	store  Store
	cat    *Catalog
	logger *slog.Logger
}

// NewLibraryManager loads the catalog held in store. An empty store starts a new
// catalog called name. A corrupt store is logged and replaced by an empty catalog
// on the next save.
func NewLibraryManager(ctx context.Context, store Store, name string, logger *slog.Logger, opts ...Option) (*LibraryManager, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = append([]Option{WithLogger(logger)}, opts...)

	cat, err := Load(ctx, store, name, opts...)
	switch {
	case errors.Is(err, ErrCorruptStore):
		logger.Warn("store_corrupt", "error", err)
	case err != nil:
		return nil, err
	}
	logger.Info("catalog_loaded",
		"name", cat.Name,
		"items", len(cat.itemKeys),
		"patrons", len(cat.patronKeys),
	)
	return &LibraryManager{store: store, cat: cat, logger: logger}, nil
}

// OpenStore returns the store named by kind ("file" or "sqlite") rooted at path.
func OpenStore(kind, path string, history int) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(path), nil
	case "sqlite":
		return NewSQLiteStore(path, history)
	default:
		return nil, fmt.Errorf("unknown store %q", kind)
	}
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

// Catalog exposes the loaded catalog for queries and reports.
func (lm *LibraryManager) Catalog() *Catalog { return lm.cat }

// Store returns the backing store.
func (lm *LibraryManager) Store() Store { return lm.store }

func (lm *LibraryManager) persist(ctx context.Context, op string) error {
	if err := Save(ctx, lm.store, lm.cat); err != nil {
		lm.logger.Error("catalog_save_failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	lm.logger.Debug("catalog_saved", "op", op)
	return nil
}

// Batch runs fn against the catalog and saves once afterwards, so a bulk change
// produces a single snapshot. Whatever fn changed is saved even when it returns
// an error.
func (lm *LibraryManager) Batch(ctx context.Context, op string, fn func(*Catalog) error) error {
	err := fn(lm.cat)
	if perr := lm.persist(ctx, op); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

// ------------------ Item helpers ------------------

func (lm *LibraryManager) AddItem(ctx context.Context, it *Item) error {
	if err := lm.cat.AddItem(it); err != nil {
		return err
	}
	return lm.persist(ctx, "add item")
}

func (lm *LibraryManager) RemoveItem(ctx context.Context, key string) error {
	if err := lm.cat.RemoveItem(key); err != nil {
		return err
	}
	return lm.persist(ctx, "remove item")
}

func (lm *LibraryManager) UpdateCondition(ctx context.Context, key, condition string) error {
	if err := lm.cat.UpdateCondition(key, condition); err != nil {
		return err
	}
	return lm.persist(ctx, "update condition")
}

// ------------------ Patron helpers ------------------

func (lm *LibraryManager) AddPatron(ctx context.Context, p *Patron) error {
	if err := lm.cat.AddPatron(p); err != nil {
		return err
	}
	return lm.persist(ctx, "add patron")
}

func (lm *LibraryManager) RemovePatron(ctx context.Context, key string) error {
	if err := lm.cat.RemovePatron(key); err != nil {
		return err
	}
	return lm.persist(ctx, "remove patron")
}

// ------------------ Circulation ------------------

// BorrowItem lends itemKey to patronKey and returns the due date.
func (lm *LibraryManager) BorrowItem(ctx context.Context, patronKey, itemKey string) (Date, error) {
	due, err := lm.cat.BorrowItem(patronKey, itemKey)
	if err != nil {
		return Date{}, err
	}
	return due, lm.persist(ctx, "borrow")
}

func (lm *LibraryManager) ReturnItem(ctx context.Context, patronKey, itemKey string) error {
	if err := lm.cat.ReturnItem(patronKey, itemKey); err != nil {
		return err
	}
	return lm.persist(ctx, "return")
}

// ------------------ Utilities ------------------

// PrettyItem formats an item for lists.
func PrettyItem(it *Item, borrowerName string) string {
	due := ""
	if d, ok := it.DueDate(); ok {
		due = d.String()
	}
	return fmt.Sprintf("%-10s %-30s %-25s %-9s %-10t %-20s %s", it.Key, it.Title, it.Author, it.Kind, it.available, borrowerName, due)
}
