package library

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoSnapshot is returned by a Store that has nothing saved yet.
var ErrNoSnapshot = errors.New("no saved catalog")

// Store persists the serialised catalog as a single blob. Save must either
// replace the previous blob completely or leave it untouched.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Load reads a catalog from s.
//
// A store with nothing saved yields an empty catalog named name and no error.
// Corrupt data yields an empty catalog named name together with an error wrapping
// ErrCorruptStore, so callers can report it and carry on. Any other failure
// returns a nil catalog.
func Load(ctx context.Context, s Store, name string, opts ...Option) (*Catalog, error) {
	data, err := s.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return NewCatalog(name, opts...), nil
	}
	if errors.Is(err, ErrCorruptStore) {
		return NewCatalog(name, opts...), err
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	c, err := Unmarshal(data, opts...)
	if err != nil {
		return NewCatalog(name, opts...), err
	}
	return c, nil
}

// Save writes the full state of c to s.
func Save(ctx context.Context, s Store, c *Catalog) error {
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	if ns, ok := s.(namedSaver); ok {
		err = ns.SaveNamed(ctx, c.Name, data)
	} else {
		err = s.Save(ctx, data)
	}
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

// namedSaver is implemented by stores that record the catalog name per save.
type namedSaver interface {
	SaveNamed(ctx context.Context, name string, data []byte) error
}
