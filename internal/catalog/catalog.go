package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mediaid-gateway/internal/config"
	"mediaid-gateway/internal/models"
)

// ErrNotFound indicates no drug exists with the requested id.
var ErrNotFound = errors.New("drug not found")

// Catalog is a read-only store of drug records.
//
// Search matches the query case-insensitively as a substring of the name,
// generic name, symptoms and uses. Results are ordered by the best field that
// matched (name, generic name, symptom, use) and then by catalog order.
// A query that matches nothing yields an empty, non-nil slice.
type Catalog interface {
	Search(ctx context.Context, query string) ([]models.DrugRecord, error)
	LookupByKeywords(ctx context.Context, text string) ([]models.DrugRecord, error)
	List(ctx context.Context, symptom string) ([]models.DrugRecord, error)
	Get(ctx context.Context, id string) (models.DrugRecord, error)
	Close() error
}

// Open builds the catalog backend selected by cfg and seeds it.
func Open(ctx context.Context, cfg config.CatalogConfig) (Catalog, error) {
	seed, err := LoadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case config.CatalogMemory, "":
		return NewMemory(seed)
	case config.CatalogSQLite:
		return NewSQLite(ctx, cfg.DSN, seed)
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", cfg.Driver)
	}
}

func normalizeQuery(query string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", fmt.Errorf("%w: search query must not be empty", models.ErrInvalidInput)
	}
	return q, nil
}
