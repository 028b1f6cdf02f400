// Package services contains stateless domain services for the item bounded
// context. The validation pipeline here is a pure predicate over the
// candidate snapshot plus read-only store lookups; it never mutates anything.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/ghuser/catalog/services/item/domain"
	"github.com/ghuser/catalog/services/item/domain/models"
	"github.com/ghuser/catalog/services/item/domain/repositories"
)

// Mode selects which rule set applies: creation or update of an existing item.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

const (
	minNameLength        = 2
	maxNameLength        = 100
	minCodeLength        = 3
	maxCodeLength        = 50
	maxDescriptionLength = 1000
	maxCategoryLength    = 50

	namePrefixLength = 10
)

var (
	namePattern     = regexp.MustCompile(`^[a-zA-Z0-9\s\-_.,()]+$`)
	codePattern     = regexp.MustCompile(`^[A-Z0-9_]+$`)
	categoryPattern = regexp.MustCompile(`^[a-zA-Z\s]+$`)

	sqlKeywords        = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "EXEC", "UNION"}
	xssMarkers         = []string{"<script", "javascript:", "onload=", "onerror=", "onclick="}
	dangerousChars     = []string{"<", ">", `"`, "'", "&", `\`, "/"}
	prohibitedWords    = []string{"admin", "root", "system", "test", "dummy"}
	reservedCodes      = []string{"NULL", "TRUE", "FALSE", "DEFAULT", "PRIMARY", "FOREIGN"}
	inappropriateWords = []string{"spam", "scam", "fake", "fraud"}

	priceBucketWidth = decimal.NewFromInt(10)
)

// Limits holds the configured ceilings and anti-abuse thresholds the
// pipeline enforces. Zero values are not defaulted; start from DefaultLimits
// and override from configuration.
type Limits struct {
	MaxPrice decimal.Decimal
	MaxStock int

	// Volume thresholds (anti-abuse heuristics, not correctness invariants).
	MaxItemsPerCategory    int64
	MaxItemsPerNamePrefix  int64
	MaxItemsPerPriceBucket int64

	AllowedCategories []string
}

// DefaultLimits returns the stock production thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxPrice:               decimal.RequireFromString("999999.99"),
		MaxStock:               1_000_000,
		MaxItemsPerCategory:    1000,
		MaxItemsPerNamePrefix:  100,
		MaxItemsPerPriceBucket: 500,
		AllowedCategories:      []string{"Electronics", "Clothing", "Books", "Home", "Sports", "Food"},
	}
}

// Validator runs the four-stage validation pipeline:
//
//	structural → security → business → volume
//
// Stages run in fixed order and short-circuit on the first failure. The only
// external dependency is the read-only ItemLookups slice of the store, used
// for uniqueness probes and volume counters.
type Validator struct {
	lookups repositories.ItemLookups
	limits  Limits
}

// NewValidator returns a Validator over the given lookups and limits.
func NewValidator(lookups repositories.ItemLookups, limits Limits) *Validator {
	return &Validator{lookups: lookups, limits: limits}
}

// Validate checks candidate for the given mode. existing is the currently
// stored snapshot for updates (nil for creates). The first failing rule is
// returned as a *domain.ValidationError; lookup failures are wrapped as
// domain.ErrInternal.
func (v *Validator) Validate(ctx context.Context, candidate *models.Item, existing *models.Item, mode Mode) error {
	if candidate == nil {
		return domain.NewValidationError(domain.KindRequired, "item", "candidate must not be nil")
	}
	if err := v.validateStructural(candidate); err != nil {
		return err
	}
	if err := v.validateSecurity(candidate); err != nil {
		return err
	}
	if err := v.validateBusiness(ctx, candidate, existing, mode); err != nil {
		return err
	}
	return v.validateVolume(ctx, candidate)
}

// --- stage 1: structural -----------------------------------------------

func (v *Validator) validateStructural(item *models.Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return domain.NewValidationError(domain.KindRequired, "name", "name is required")
	}
	if len(item.Name) < minNameLength || len(item.Name) > maxNameLength {
		return domain.NewValidationError(domain.KindLength, "name",
			"name must be between %d and %d characters", minNameLength, maxNameLength)
	}
	if !namePattern.MatchString(item.Name) {
		return domain.NewValidationError(domain.KindPattern, "name", "name contains disallowed characters")
	}

	if strings.TrimSpace(item.Code) == "" {
		return domain.NewValidationError(domain.KindRequired, "code", "code is required")
	}
	if len(item.Code) < minCodeLength || len(item.Code) > maxCodeLength {
		return domain.NewValidationError(domain.KindLength, "code",
			"code must be between %d and %d characters", minCodeLength, maxCodeLength)
	}
	if !codePattern.MatchString(item.Code) {
		return domain.NewValidationError(domain.KindPattern, "code",
			"code must contain only uppercase letters, digits and underscores")
	}

	if len(item.Description) > maxDescriptionLength {
		return domain.NewValidationError(domain.KindLength, "description",
			"description must not exceed %d characters", maxDescriptionLength)
	}

	if item.Category != "" {
		if len(item.Category) > maxCategoryLength {
			return domain.NewValidationError(domain.KindLength, "category",
				"category must not exceed %d characters", maxCategoryLength)
		}
		if !categoryPattern.MatchString(item.Category) {
			return domain.NewValidationError(domain.KindPattern, "category",
				"category must contain only letters and spaces")
		}
	}

	if item.Price.IsNegative() {
		return domain.NewValidationError(domain.KindLength, "price", "price must not be negative")
	}
	if item.Price.GreaterThan(v.limits.MaxPrice) {
		return domain.NewValidationError(domain.KindLength, "price",
			"price must not exceed %s", v.limits.MaxPrice)
	}
	if item.Price.Exponent() < -2 {
		return domain.NewValidationError(domain.KindPattern, "price",
			"price must have at most 2 decimal places")
	}

	if item.Stock < 0 {
		return domain.NewValidationError(domain.KindLength, "stock", "stock must not be negative")
	}
	if item.Stock > v.limits.MaxStock {
		return domain.NewValidationError(domain.KindLength, "stock",
			"stock must not exceed %d", v.limits.MaxStock)
	}

	if !item.Status.Valid() {
		return domain.NewValidationError(domain.KindPattern, "status", "unknown status %q", string(item.Status))
	}
	return nil
}

// --- stage 2: security sanitization ------------------------------------

// validateSecurity is a content filter, not a parser: any match is a hard
// rejection, never escaped or stripped.
func (v *Validator) validateSecurity(item *models.Item) error {
	textUpper := strings.ToUpper(item.Name + " " + item.Description + " " + item.Category)
	for _, kw := range sqlKeywords {
		if strings.Contains(textUpper, kw) {
			return domain.NewValidationError(domain.KindSecurity, "", "content contains SQL keyword %q", kw)
		}
	}

	textLower := strings.ToLower(item.Name + " " + item.Description)
	for _, marker := range xssMarkers {
		if strings.Contains(textLower, marker) {
			return domain.NewValidationError(domain.KindSecurity, "", "content contains script marker %q", marker)
		}
	}

	raw := item.Name + item.Description + item.Category
	for _, ch := range dangerousChars {
		if strings.Contains(raw, ch) {
			return domain.NewValidationError(domain.KindSecurity, "", "content contains dangerous character %q", ch)
		}
	}

	nameLower := strings.ToLower(item.Name)
	for _, word := range prohibitedWords {
		if strings.Contains(nameLower, word) {
			return domain.NewValidationError(domain.KindSecurity, "name", "name contains prohibited word %q", word)
		}
	}

	for _, word := range reservedCodes {
		if item.Code == word {
			return domain.NewValidationError(domain.KindSecurity, "code", "code must not be the reserved word %q", word)
		}
	}

	descLower := strings.ToLower(item.Description)
	for _, word := range inappropriateWords {
		if strings.Contains(descLower, word) {
			return domain.NewValidationError(domain.KindSecurity, "description",
				"description contains inappropriate word %q", word)
		}
	}
	return nil
}

// --- stage 3: business rules -------------------------------------------

func (v *Validator) validateBusiness(ctx context.Context, item *models.Item, existing *models.Item, mode Mode) error {
	if mode == ModeUpdate {
		if existing == nil {
			return domain.NewValidationError(domain.KindRequired, "item", "update target is required")
		}
		if existing.Deleted {
			return domain.NewValidationError(domain.KindConsistency, "item", "cannot update a deleted item")
		}
		if existing.Status == models.StatusDiscontinued {
			return domain.NewValidationError(domain.KindConsistency, "item", "cannot update a discontinued item")
		}
	}

	excludeID := uuid.Nil
	if mode == ModeUpdate {
		excludeID = item.ID
	}

	taken, err := v.lookups.ExistsByName(ctx, item.Name, excludeID)
	if err != nil {
		return fmt.Errorf("%w: name uniqueness probe: %w", domain.ErrInternal, err)
	}
	if taken {
		return domain.NewValidationError(domain.KindUniqueness, "name", "an item named %q already exists", item.Name)
	}

	taken, err = v.lookups.ExistsByCode(ctx, item.Code, excludeID)
	if err != nil {
		return fmt.Errorf("%w: code uniqueness probe: %w", domain.ErrInternal, err)
	}
	if taken {
		return domain.NewValidationError(domain.KindUniqueness, "code", "an item with code %q already exists", item.Code)
	}

	// Price/stock consistency: a priced item must be in stock, an
	// out-of-stock item must be free.
	if item.Price.IsPositive() && item.Stock <= 0 {
		return domain.NewValidationError(domain.KindConsistency, "price",
			"an item without stock cannot have a positive price")
	}

	if item.Category != "" && !v.categoryAllowed(item.Category) {
		return domain.NewValidationError(domain.KindConsistency, "category",
			"category %q is not in the allow-list", item.Category)
	}
	return nil
}

func (v *Validator) categoryAllowed(category string) bool {
	for _, allowed := range v.limits.AllowedCategories {
		if strings.EqualFold(allowed, category) {
			return true
		}
	}
	return false
}

// --- stage 4: volume / rate limits -------------------------------------

func (v *Validator) validateVolume(ctx context.Context, item *models.Item) error {
	if item.Category != "" {
		n, err := v.lookups.CountByCategory(ctx, item.Category)
		if err != nil {
			return fmt.Errorf("%w: category count: %w", domain.ErrInternal, err)
		}
		if n >= v.limits.MaxItemsPerCategory {
			return domain.NewValidationError(domain.KindLimit, "category",
				"category %q has reached its item limit", item.Category)
		}
	}

	prefix := item.Name
	if len(prefix) > namePrefixLength {
		prefix = prefix[:namePrefixLength]
	}
	n, err := v.lookups.CountByNamePrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("%w: name prefix count: %w", domain.ErrInternal, err)
	}
	if n >= v.limits.MaxItemsPerNamePrefix {
		return domain.NewValidationError(domain.KindLimit, "name", "too many items share the name prefix %q", prefix)
	}

	low, high := PriceBucket(item.Price)
	n, err = v.lookups.CountByPriceBucket(ctx, low, high)
	if err != nil {
		return fmt.Errorf("%w: price bucket count: %w", domain.ErrInternal, err)
	}
	if n >= v.limits.MaxItemsPerPriceBucket {
		return domain.NewValidationError(domain.KindLimit, "price", "too many items in the same price range")
	}
	return nil
}

// PriceBucket returns the [low, high) 10-wide bucket containing price.
func PriceBucket(price decimal.Decimal) (low, high decimal.Decimal) {
	low = price.Div(priceBucketWidth).Floor().Mul(priceBucketWidth)
	return low, low.Add(priceBucketWidth)
}
