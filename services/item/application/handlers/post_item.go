package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ghuser/catalog/pkg/errhttp"
	"github.com/ghuser/catalog/pkg/httpx"
	pkgvalidator "github.com/ghuser/catalog/pkg/validator"
	appsvcs "github.com/ghuser/catalog/services/item/application/services"
	"github.com/ghuser/catalog/services/item/domain/models"
)

// CreateItemRequest is the request body for POST /items.
// Structural bounds here are a first-line check only; the domain pipeline
// enforces the full rule set (patterns, security, uniqueness, volume).
type CreateItemRequest struct {
	Name        string          `json:"name" validate:"required,min=2,max=100"`
	Code        string          `json:"code" validate:"required,min=3,max=50"`
	Description string          `json:"description" validate:"max=1000"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Category    string          `json:"category" validate:"max=50"`
	Status      string          `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE DISCONTINUED OUT_OF_STOCK"`
}

// PostItemHandler handles POST /items requests.
type PostItemHandler struct {
	svc *appsvcs.Services
}

// NewPostItemHandler returns a PostItemHandler backed by the given services.
func NewPostItemHandler(svc *appsvcs.Services) *PostItemHandler {
	return &PostItemHandler{svc: svc}
}

// Execute creates a new item and returns it with status 201.
func (h *PostItemHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := pkgvalidator.ValidateRequest[CreateItemRequest](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Item.Create(r.Context(), models.Draft{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		Status:      models.ItemStatus(req.Status),
	}, actorFrom(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toItemResponse(item))
}
