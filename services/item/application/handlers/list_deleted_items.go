package handlers

import (
	"net/http"

	"github.com/ghuser/catalog/pkg/errhttp"
	"github.com/ghuser/catalog/pkg/httpx"
	appsvcs "github.com/ghuser/catalog/services/item/application/services"
)

// ListDeletedItemsResponse wraps the soft-deleted items.
type ListDeletedItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

// ListDeletedItemsHandler handles GET /items/deleted requests.
type ListDeletedItemsHandler struct {
	svc *appsvcs.Services
}

// NewListDeletedItemsHandler returns a ListDeletedItemsHandler backed by the given services.
func NewListDeletedItemsHandler(svc *appsvcs.Services) *ListDeletedItemsHandler {
	return &ListDeletedItemsHandler{svc: svc}
}

// Execute returns all soft-deleted items (maintenance view).
func (h *ListDeletedItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Item.ListDeleted(r.Context())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	out := make([]ItemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	httpx.JSON(w, http.StatusOK, ListDeletedItemsResponse{Items: out})
}
