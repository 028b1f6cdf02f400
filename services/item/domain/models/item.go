package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemStatus enumerates the lifecycle states of a catalog item.
type ItemStatus string

const (
	StatusActive       ItemStatus = "ACTIVE"
	StatusInactive     ItemStatus = "INACTIVE"
	StatusDiscontinued ItemStatus = "DISCONTINUED"
	StatusOutOfStock   ItemStatus = "OUT_OF_STOCK"
)

// Valid reports whether s is a known status value.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDiscontinued, StatusOutOfStock:
		return true
	}
	return false
}

// Item is the core aggregate for this bounded context. Values are treated as
// immutable snapshots: every transition (ApplyPatch, MarkDeleted) returns a
// fresh copy with the version bumped, so a snapshot handed to a caller is
// never aliased with one being persisted.
type Item struct {
	ID          uuid.UUID
	Name        string
	Code        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Status      ItemStatus

	// Version is the optimistic-concurrency token. It starts at 1 and
	// increases by exactly 1 on every accepted mutation.
	Version int64

	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string

	// Deleted is terminal: once set, only DeletedAt/DeletedBy/Version change.
	Deleted   bool
	DeletedAt *time.Time
	DeletedBy string

	// Derived metrics, not invariant-bearing.
	ViewCount   int64
	Rating      decimal.Decimal
	ReviewCount int64
}

// Draft carries the caller-supplied fields for a new item.
type Draft struct {
	Name        string
	Code        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Status      ItemStatus
}

// NewItem constructs a candidate Item from a draft with generated ID,
// version 1 and audit fields stamped for the given actor. The result is a
// candidate only; it must pass the validation pipeline before persistence.
func NewItem(d Draft, actor string) *Item {
	now := time.Now().UTC()
	status := d.Status
	if status == "" {
		status = StatusActive
	}
	return &Item{
		ID:          uuid.New(),
		Name:        d.Name,
		Code:        d.Code,
		Description: d.Description,
		Price:       d.Price,
		Stock:       d.Stock,
		Category:    d.Category,
		Status:      status,
		Version:     1,
		CreatedAt:   now,
		CreatedBy:   actor,
		UpdatedAt:   now,
		UpdatedBy:   actor,
		Rating:      decimal.Zero,
	}
}

// Patch is a partial update. Nil fields are left unchanged.
// ExpectedVersion selects the concurrency mode: non-nil enforces the
// optimistic-lock check against the stored version; nil is the explicit
// last-writer-wins mode (the check is bypassed, documented and deliberate).
type Patch struct {
	Name        *string
	Code        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *string
	Status      *ItemStatus

	ExpectedVersion *int64
}

// ApplyPatch returns a new snapshot with the patch applied, the version
// bumped by one and the update audit fields stamped for actor. The receiver
// is not modified.
func (i *Item) ApplyPatch(p Patch, actor string) *Item {
	next := *i
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Code != nil {
		next.Code = *p.Code
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Price != nil {
		next.Price = *p.Price
	}
	if p.Stock != nil {
		next.Stock = *p.Stock
	}
	if p.Category != nil {
		next.Category = *p.Category
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	next.Version = i.Version + 1
	next.UpdatedAt = time.Now().UTC()
	next.UpdatedBy = actor
	return &next
}

// MarkDeleted returns a soft-deleted snapshot: deleted flag set, deletion
// audit stamped, version bumped. All business fields are carried unchanged.
func (i *Item) MarkDeleted(actor string) *Item {
	now := time.Now().UTC()
	next := *i
	next.Deleted = true
	next.DeletedAt = &now
	next.DeletedBy = actor
	next.Version = i.Version + 1
	next.UpdatedAt = now
	next.UpdatedBy = actor
	return &next
}

// CanBeModified reports whether update is permitted: deleted and
// discontinued items are frozen.
func (i *Item) CanBeModified() bool {
	return !i.Deleted && i.Status != StatusDiscontinued
}

// CanBeDeleted reports whether soft-delete is permitted. Items holding stock
// must be drained first.
func (i *Item) CanBeDeleted() bool {
	return !i.Deleted && i.Stock == 0
}

// Available reports whether the item can be purchased.
func (i *Item) Available() bool {
	return !i.Deleted && i.Status == StatusActive && i.Stock > 0
}

// InventoryValue returns price × stock.
func (i *Item) InventoryValue() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Stock)))
}
