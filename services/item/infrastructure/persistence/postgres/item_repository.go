package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/ghuser/catalog/pkg/database"
	domain "github.com/ghuser/catalog/services/item/domain"
	"github.com/ghuser/catalog/services/item/domain/models"
	"github.com/ghuser/catalog/services/item/domain/repositories"
)

const uniqueViolation = "23505"

const itemColumns = `id, name, code, description, price::text, stock, category, status,
	version, created_at, created_by, updated_at, updated_by,
	deleted, deleted_at, deleted_by, view_count, rating::text, review_count`

// ItemRepository implements repositories.ItemStore against PostgreSQL.
// All queries exclude soft-deleted rows except FindDeleted; the version
// column arbitrates concurrent writes (compare-and-set in Save).
type ItemRepository struct {
	db *database.Database
}

// NewItemRepository returns an ItemRepository backed by the given pool.
func NewItemRepository(db *database.Database) *ItemRepository {
	return &ItemRepository{db: db}
}

// Insert persists a brand-new item. Unique-index violations on name or code
// map to uniqueness validation errors (conflict class).
func (r *ItemRepository) Insert(ctx context.Context, item *models.Item) error {
	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO items (
			id, name, code, description, price, stock, category, status,
			version, created_at, created_by, updated_at, updated_by,
			deleted, deleted_at, deleted_by, view_count, rating, review_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		item.ID, item.Name, item.Code, item.Description, item.Price.String(),
		item.Stock, nullable(item.Category), string(item.Status),
		item.Version, item.CreatedAt, item.CreatedBy, item.UpdatedAt, item.UpdatedBy,
		item.Deleted, item.DeletedAt, nullable(item.DeletedBy),
		item.ViewCount, item.Rating.String(), item.ReviewCount,
	)
	if err != nil {
		if dup := mapUniqueViolation(err, item); dup != nil {
			return dup
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// Save persists a mutated snapshot with compare-and-set semantics. With a
// non-nil expectedVersion the row is written only if the stored version
// still matches; otherwise nothing changes and ErrVersionConflict is
// returned. A nil expectedVersion is the explicit last-writer-wins mode:
// the stored version is bumped atomically and written back into item.
func (r *ItemRepository) Save(ctx context.Context, item *models.Item, expectedVersion *int64) error {
	var (
		row pgx.Row
		err error
	)
	if expectedVersion != nil {
		row = r.db.Pool().QueryRow(ctx, `
			UPDATE items SET
				name = $2, code = $3, description = $4, price = $5, stock = $6,
				category = $7, status = $8, version = $9,
				updated_at = $10, updated_by = $11,
				deleted = $12, deleted_at = $13, deleted_by = $14,
				rating = $15, review_count = $16
			WHERE id = $1 AND version = $17 AND NOT deleted
			RETURNING version`,
			item.ID, item.Name, item.Code, item.Description, item.Price.String(), item.Stock,
			nullable(item.Category), string(item.Status), item.Version,
			item.UpdatedAt, item.UpdatedBy,
			item.Deleted, item.DeletedAt, nullable(item.DeletedBy),
			item.Rating.String(), item.ReviewCount,
			*expectedVersion,
		)
	} else {
		row = r.db.Pool().QueryRow(ctx, `
			UPDATE items SET
				name = $2, code = $3, description = $4, price = $5, stock = $6,
				category = $7, status = $8, version = version + 1,
				updated_at = $9, updated_by = $10,
				deleted = $11, deleted_at = $12, deleted_by = $13,
				rating = $14, review_count = $15
			WHERE id = $1 AND NOT deleted
			RETURNING version`,
			item.ID, item.Name, item.Code, item.Description, item.Price.String(), item.Stock,
			nullable(item.Category), string(item.Status),
			item.UpdatedAt, item.UpdatedBy,
			item.Deleted, item.DeletedAt, nullable(item.DeletedBy),
			item.Rating.String(), item.ReviewCount,
		)
	}

	var version int64
	if err = row.Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifySaveMiss(ctx, item.ID)
		}
		if dup := mapUniqueViolation(err, item); dup != nil {
			return dup
		}
		return fmt.Errorf("save item: %w", err)
	}
	item.Version = version
	return nil
}

// classifySaveMiss distinguishes a stale version from a missing or deleted
// row after a zero-row compare-and-set.
func (r *ItemRepository) classifySaveMiss(ctx context.Context, id uuid.UUID) error {
	var deleted bool
	err := r.db.Pool().QueryRow(ctx, `SELECT deleted FROM items WHERE id = $1`, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrItemNotFound
	}
	if err != nil {
		return fmt.Errorf("classify save miss: %w", err)
	}
	if deleted {
		return domain.ErrItemNotFound
	}
	return domain.ErrVersionConflict
}

// FindByID returns the non-deleted item or domain.ErrItemNotFound.
func (r *ItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1 AND NOT deleted`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

// FindByIDAny returns the item regardless of its deleted flag.
func (r *ItemRepository) FindByIDAny(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	return item, nil
}

// ExistsByName reports whether a non-deleted item other than excludeID
// carries the name (case-insensitive).
func (r *ItemRepository) ExistsByName(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM items
			WHERE lower(name) = lower($1) AND id <> $2 AND NOT deleted
		)`, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by name: %w", err)
	}
	return exists, nil
}

// ExistsByCode reports whether a non-deleted item other than excludeID
// carries the code.
func (r *ItemRepository) ExistsByCode(ctx context.Context, code string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM items
			WHERE code = $1 AND id <> $2 AND NOT deleted
		)`, code, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by code: %w", err)
	}
	return exists, nil
}

// CountByCategory counts non-deleted items in the category.
func (r *ItemRepository) CountByCategory(ctx context.Context, category string) (int64, error) {
	var n int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT count(*) FROM items WHERE category = $1 AND NOT deleted`, category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count by category: %w", err)
	}
	return n, nil
}

// CountByNamePrefix counts non-deleted items whose name starts with prefix,
// case-insensitively. The prefix has already passed the name pattern so it
// cannot carry LIKE metacharacters.
func (r *ItemRepository) CountByNamePrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT count(*) FROM items WHERE name ILIKE $1 || '%' AND NOT deleted`, prefix).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count by name prefix: %w", err)
	}
	return n, nil
}

// CountByPriceBucket counts non-deleted items with low <= price < high.
func (r *ItemRepository) CountByPriceBucket(ctx context.Context, low, high decimal.Decimal) (int64, error) {
	var n int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT count(*) FROM items WHERE price >= $1::numeric AND price < $2::numeric AND NOT deleted`,
		low.String(), high.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count by price bucket: %w", err)
	}
	return n, nil
}

// FindFiltered runs one list query: optional case-insensitive name filter,
// whitelisted sort column, limit/offset pagination, plus the total count.
func (r *ItemRepository) FindFiltered(ctx context.Context, q repositories.Query) (*repositories.Page, error) {
	sortBy := q.SortBy
	if !sortBy.Valid() {
		sortBy = repositories.SortByCreatedAt
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	size := q.Size
	if size <= 0 {
		size = 20
	}
	offset := q.Page * size

	where := "NOT deleted"
	args := []any{}
	if q.NameFilter != "" {
		args = append(args, q.NameFilter)
		where += fmt.Sprintf(" AND name ILIKE '%%' || $%d || '%%'", len(args))
	}

	// sortBy comes from the SortField whitelist, never from raw input.
	query := fmt.Sprintf(`SELECT `+itemColumns+` FROM items WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		where, string(sortBy), dir, size, offset)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query filtered items: %w", err)
	}
	defer rows.Close()
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	var total int64
	countQuery := fmt.Sprintf(`SELECT count(*) FROM items WHERE %s`, where)
	if err := r.db.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count filtered items: %w", err)
	}

	return &repositories.Page{Items: items, Total: total}, nil
}

// IncrementViewCount bumps the read counter without touching the version.
func (r *ItemRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool().Exec(ctx,
		`UPDATE items SET view_count = view_count + 1 WHERE id = $1 AND NOT deleted`, id)
	if err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// FindDeleted returns soft-deleted items, newest deletion first.
func (r *ItemRepository) FindDeleted(ctx context.Context) ([]*models.Item, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE deleted ORDER BY deleted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query deleted items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// mapUniqueViolation turns a 23505 on the partial unique indexes into the
// matching uniqueness validation error, nil for anything else.
func mapUniqueViolation(err error, item *models.Item) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	if strings.Contains(pgErr.ConstraintName, "code") {
		return domain.NewValidationError(domain.KindUniqueness, "code",
			"an item with code %q already exists", item.Code)
	}
	return domain.NewValidationError(domain.KindUniqueness, "name",
		"an item named %q already exists", item.Name)
}

func scanItem(row pgx.Row) (*models.Item, error) {
	var (
		item                  models.Item
		category, deletedBy   *string
		priceText, ratingText string
		status                string
	)
	err := row.Scan(
		&item.ID, &item.Name, &item.Code, &item.Description, &priceText, &item.Stock,
		&category, &status,
		&item.Version, &item.CreatedAt, &item.CreatedBy, &item.UpdatedAt, &item.UpdatedBy,
		&item.Deleted, &item.DeletedAt, &deletedBy, &item.ViewCount, &ratingText, &item.ReviewCount,
	)
	if err != nil {
		return nil, err
	}
	if category != nil {
		item.Category = *category
	}
	if deletedBy != nil {
		item.DeletedBy = *deletedBy
	}
	item.Status = models.ItemStatus(status)
	if item.Price, err = decimal.NewFromString(priceText); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	if item.Rating, err = decimal.NewFromString(ratingText); err != nil {
		return nil, fmt.Errorf("parse rating: %w", err)
	}
	return &item, nil
}

func scanItems(rows pgx.Rows) ([]*models.Item, error) {
	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// nullable maps "" to NULL for optional text columns.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
