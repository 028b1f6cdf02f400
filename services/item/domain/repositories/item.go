package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/catalog/services/item/domain/models"
)

// Query is the full signature of a list request: filter, sort and page.
// Its Signature() is the list-cache key, so every field that changes the
// result set must participate in it.
type Query struct {
	// NameFilter, when non-empty, restricts results to items whose name
	// contains the filter case-insensitively.
	NameFilter string
	SortBy     SortField
	SortDesc   bool
	Page       int // zero-based
	Size       int
}

// SortField names the columns list queries may sort by.
type SortField string

const (
	SortByName      SortField = "name"
	SortByCode      SortField = "code"
	SortByPrice     SortField = "price"
	SortByStock     SortField = "stock"
	SortByCreatedAt SortField = "created_at"
)

// Valid reports whether s is an allowed sort column.
func (s SortField) Valid() bool {
	switch s {
	case SortByName, SortByCode, SortByPrice, SortByStock, SortByCreatedAt:
		return true
	}
	return false
}

// Signature returns a stable cache key for the query.
func (q Query) Signature() string {
	dir := "asc"
	if q.SortDesc {
		dir = "desc"
	}
	return fmt.Sprintf("%s|%s|%s|%d|%d", strings.ToLower(q.NameFilter), q.SortBy, dir, q.Page, q.Size)
}

// Page is one page of list results plus the unpaginated total.
type Page struct {
	Items []*models.Item
	Total int64
}

// ItemLookups is the read-only slice of the store the validation pipeline
// depends on: uniqueness probes and volume counters. All exclude
// soft-deleted rows.
type ItemLookups interface {
	// ExistsByName reports whether a non-deleted item other than excludeID
	// carries the name, compared case-insensitively.
	ExistsByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	// ExistsByCode reports whether a non-deleted item other than excludeID
	// carries the code.
	ExistsByCode(ctx context.Context, code string, excludeID uuid.UUID) (bool, error)
	CountByCategory(ctx context.Context, category string) (int64, error)
	CountByNamePrefix(ctx context.Context, prefix string) (int64, error)
	// CountByPriceBucket counts non-deleted items with low <= price < high.
	CountByPriceBucket(ctx context.Context, low, high decimal.Decimal) (int64, error)
}

// ItemStore is the persistence interface for the Item aggregate. The domain
// layer owns this interface; infrastructure implements it. Every operation
// excludes soft-deleted rows except FindDeleted.
type ItemStore interface {
	ItemLookups

	// FindByID returns the item or domain.ErrItemNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// FindByIDAny returns the item regardless of its deleted flag. Used by
	// the delete path to tell "already deleted" (no-op) from "never existed".
	FindByIDAny(ctx context.Context, id uuid.UUID) (*models.Item, error)
	// FindFiltered runs a list query and returns one page plus the total.
	FindFiltered(ctx context.Context, q Query) (*Page, error)

	// Insert persists a brand-new item (version 1). A unique-constraint
	// violation surfaces as a uniqueness ValidationError (conflict class).
	Insert(ctx context.Context, item *models.Item) error

	// Save persists a mutated snapshot with compare-and-set semantics: the
	// row is written only if its stored version equals expectedVersion,
	// otherwise domain.ErrVersionConflict is returned and nothing changes.
	// A nil expectedVersion is the explicit last-writer-wins mode: the
	// version check is skipped but the write is still atomic per row.
	Save(ctx context.Context, item *models.Item, expectedVersion *int64) error

	// IncrementViewCount bumps the read counter without touching version.
	IncrementViewCount(ctx context.Context, id uuid.UUID) error

	// FindDeleted returns soft-deleted items (maintenance view).
	FindDeleted(ctx context.Context) ([]*models.Item, error)
}
