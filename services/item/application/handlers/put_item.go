package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ghuser/catalog/pkg/errhttp"
	"github.com/ghuser/catalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/catalog/pkg/validator"
	appsvcs "github.com/ghuser/catalog/services/item/application/services"
	"github.com/ghuser/catalog/services/item/domain/models"
)

// UpdateItemRequest is the request body for PUT /items/{id}. Absent fields
// are left unchanged. ExpectedVersion enables the optimistic-concurrency
// check; omitting it is the explicit last-writer-wins mode.
type UpdateItemRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=2,max=100"`
	Code        *string          `json:"code" validate:"omitempty,min=3,max=50"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Category    *string          `json:"category" validate:"omitempty,max=50"`
	Status      *string          `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE DISCONTINUED OUT_OF_STOCK"`

	ExpectedVersion *int64 `json:"expected_version" validate:"omitempty,gte=1"`
}

// PutItemHandler handles PUT /items/{id} requests.
type PutItemHandler struct {
	svc *appsvcs.Services
}

// NewPutItemHandler returns a PutItemHandler backed by the given services.
func NewPutItemHandler(svc *appsvcs.Services) *PutItemHandler {
	return &PutItemHandler{svc: svc}
}

// Execute applies a partial update and returns the new snapshot.
// A stale expected_version yields 409 Conflict.
func (h *PutItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[UpdateItemRequest](w, r)
	if !ok {
		return
	}

	patch := models.Patch{
		Name:            req.Name,
		Code:            req.Code,
		Description:     req.Description,
		Price:           req.Price,
		Stock:           req.Stock,
		Category:        req.Category,
		ExpectedVersion: req.ExpectedVersion,
	}
	if req.Status != nil {
		status := models.ItemStatus(*req.Status)
		patch.Status = &status
	}

	item, err := h.svc.Item.Update(r.Context(), id, patch, actorFrom(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}
