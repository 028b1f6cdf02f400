package handlers

import (
	"net/http"
	"strconv"

	"github.com/ghuser/catalog/pkg/errhttp"
	"github.com/ghuser/catalog/pkg/httpx"
	appsvcs "github.com/ghuser/catalog/services/item/application/services"
	"github.com/ghuser/catalog/services/item/domain/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListItemsResponse is one page of items plus paging metadata.
type ListItemsResponse struct {
	Items []ItemResponse `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// ListItemsHandler handles GET /items requests.
type ListItemsHandler struct {
	svc *appsvcs.Services
}

// NewListItemsHandler returns a ListItemsHandler backed by the given services.
func NewListItemsHandler(svc *appsvcs.Services) *ListItemsHandler {
	return &ListItemsHandler{svc: svc}
}

// Execute lists non-deleted items. Query parameters:
//
//	name    substring filter, case-insensitive
//	sort    one of name|code|price|stock|created_at (default name)
//	order   asc|desc (default asc)
//	page    zero-based page number (default 0)
//	size    page size, capped at 100 (default 20)
func (h *ListItemsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.svc.Item.List(r.Context(), q)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	items := make([]ItemResponse, len(page.Items))
	for i, item := range page.Items {
		items[i] = toItemResponse(item)
	}
	httpx.JSON(w, http.StatusOK, ListItemsResponse{
		Items: items,
		Total: page.Total,
		Page:  q.Page,
		Size:  q.Size,
	})
}

func parseListQuery(r *http.Request) (repositories.Query, error) {
	q := repositories.Query{
		NameFilter: r.URL.Query().Get("name"),
		SortBy:     repositories.SortByName,
		Page:       0,
		Size:       defaultPageSize,
	}

	if sort := r.URL.Query().Get("sort"); sort != "" {
		field := repositories.SortField(sort)
		if !field.Valid() {
			return q, errInvalidParam("sort", sort)
		}
		q.SortBy = field
	}
	switch order := r.URL.Query().Get("order"); order {
	case "", "asc":
	case "desc":
		q.SortDesc = true
	default:
		return q, errInvalidParam("order", order)
	}
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return q, errInvalidParam("page", raw)
		}
		q.Page = page
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return q, errInvalidParam("size", raw)
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		q.Size = size
	}
	return q, nil
}

type paramError struct{ param, value string }

func errInvalidParam(param, value string) error {
	return &paramError{param: param, value: value}
}

func (e *paramError) Error() string {
	return "invalid value for " + e.param + ": " + e.value
}
