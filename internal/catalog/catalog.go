// Package catalog holds the immutable dilemma catalog. It is built once at
// process start from a Source, optionally shuffled, and never mutated
// afterwards, which makes every reader concurrency-safe without locks.
package catalog

import (
	"context"
	"fmt"
	"math/rand"

	"dilemma-arena/internal/domain"
)

// Source produces the raw dilemma set (static data, Postgres, a cache, ...).
type Source interface {
	LoadDilemmas(ctx context.Context) ([]domain.Dilemma, error)
}

// Catalog is the loaded, validated, read-only dilemma collection.
type Catalog struct {
	dilemmas []domain.Dilemma
	byID     map[string]int
}

// Load builds the catalog from source. When shuffle is true the order is
// permuted once with a Fisher-Yates shuffle; rooms later take prefixes of
// this order, so one shuffle per process is enough variety.
func Load(ctx context.Context, source Source, shuffle bool) (*Catalog, error) {
	return load(ctx, source, shuffle, rand.Int63())
}

func load(ctx context.Context, source Source, shuffle bool, seed int64) (*Catalog, error) {
	dilemmas, err := source.LoadDilemmas(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dilemmas: %w", err)
	}
	if len(dilemmas) == 0 {
		return nil, domain.ErrCatalogEmpty
	}
	for _, d := range dilemmas {
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("dilemma %q: %w", d.ID, err)
		}
	}

	if shuffle {
		rnd := rand.New(rand.NewSource(seed))
		rnd.Shuffle(len(dilemmas), func(i, j int) {
			dilemmas[i], dilemmas[j] = dilemmas[j], dilemmas[i]
		})
	}

	byID := make(map[string]int, len(dilemmas))
	for i, d := range dilemmas {
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("dilemma %q: duplicate id", d.ID)
		}
		byID[d.ID] = i
	}
	return &Catalog{dilemmas: dilemmas, byID: byID}, nil
}

// validate maps raw catalog data onto the fixed framework enumeration at
// load time so play-time code never has to normalize framework strings.
func validate(d domain.Dilemma) error {
	if len(d.Options) < 2 || len(d.Options) > 4 {
		return fmt.Errorf("has %d options, want 2-4", len(d.Options))
	}
	known := make(map[domain.Framework]bool, 5)
	for _, fw := range domain.Frameworks() {
		known[fw] = true
	}
	for _, opt := range d.Options {
		if opt.OverallScore < 0 || opt.OverallScore > 100 {
			return fmt.Errorf("option %q: overall score %d out of range", opt.ID, opt.OverallScore)
		}
		for _, fs := range opt.Frameworks {
			if !known[fs.Framework] {
				return fmt.Errorf("option %q: unknown framework %q", opt.ID, fs.Framework)
			}
		}
	}
	return nil
}

// Len returns the catalog size.
func (c *Catalog) Len() int {
	return len(c.dilemmas)
}

// All returns the full ordered catalog. The returned slice is a fresh
// header copy; callers must not mutate the shared dilemma values.
func (c *Catalog) All() []domain.Dilemma {
	out := make([]domain.Dilemma, len(c.dilemmas))
	copy(out, c.dilemmas)
	return out
}

// ForGame returns the first count dilemmas in catalog order. Requests
// beyond the catalog size are capped at the catalog size, not cycled.
func (c *Catalog) ForGame(count int) []domain.Dilemma {
	if count <= 0 || count > len(c.dilemmas) {
		count = len(c.dilemmas)
	}
	out := make([]domain.Dilemma, count)
	copy(out, c.dilemmas[:count])
	return out
}

// ByID looks up a dilemma by id.
func (c *Catalog) ByID(id string) (domain.Dilemma, error) {
	i, ok := c.byID[id]
	if !ok {
		return domain.Dilemma{}, domain.ErrDilemmaNotFound
	}
	return c.dilemmas[i], nil
}

// Option resolves a (dilemma, option) pair.
func (c *Catalog) Option(dilemmaID, optionID string) (domain.Option, bool) {
	i, ok := c.byID[dilemmaID]
	if !ok {
		return domain.Option{}, false
	}
	for _, opt := range c.dilemmas[i].Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return domain.Option{}, false
}
