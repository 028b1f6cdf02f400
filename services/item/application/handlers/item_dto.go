package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/catalog/pkg/auth"
	"github.com/ghuser/catalog/services/item/domain/models"
)

// ItemResponse is the wire representation of an item.
type ItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category,omitempty"`
	Status      string          `json:"status"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	CreatedBy   string          `json:"created_by,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
	UpdatedBy   string          `json:"updated_by,omitempty"`
	ViewCount   int64           `json:"view_count"`
	Rating      decimal.Decimal `json:"rating"`
	ReviewCount int64           `json:"review_count"`
	Deleted     bool            `json:"deleted,omitempty"`
	DeletedAt   *time.Time      `json:"deleted_at,omitempty"`
	DeletedBy   string          `json:"deleted_by,omitempty"`
}

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func toItemResponse(item *models.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Code:        item.Code,
		Description: item.Description,
		Price:       item.Price,
		Stock:       item.Stock,
		Category:    item.Category,
		Status:      string(item.Status),
		Version:     item.Version,
		CreatedAt:   item.CreatedAt,
		CreatedBy:   item.CreatedBy,
		UpdatedAt:   item.UpdatedAt,
		UpdatedBy:   item.UpdatedBy,
		ViewCount:   item.ViewCount,
		Rating:      item.Rating,
		ReviewCount: item.ReviewCount,
		Deleted:     item.Deleted,
		DeletedAt:   item.DeletedAt,
		DeletedBy:   item.DeletedBy,
	}
}

// actorFrom returns the authenticated actor from the request context, or
// "anonymous" when the route is mounted without the auth middleware.
func actorFrom(r *http.Request) string {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		return "anonymous"
	}
	return actor
}
