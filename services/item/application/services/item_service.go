package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgcache "github.com/ghuser/catalog/pkg/cache"
	"github.com/ghuser/catalog/pkg/logger"
	"github.com/ghuser/catalog/pkg/resilience"
	"github.com/ghuser/catalog/pkg/telemetry"
	domain "github.com/ghuser/catalog/services/item/domain"
	domainevents "github.com/ghuser/catalog/services/item/domain/events"
	"github.com/ghuser/catalog/services/item/domain/models"
	"github.com/ghuser/catalog/services/item/domain/repositories"
	domainsvcs "github.com/ghuser/catalog/services/item/domain/services"
)

// EventPublisher is the narrow slice of the event bus the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// PointCache is the narrow slice of the per-item cache the service needs.
// Get reports a miss with redis.Nil.
type PointCache interface {
	Get(ctx context.Context, id uuid.UUID) (*pkgcache.CachedItem, error)
	Set(ctx context.Context, item *pkgcache.CachedItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

const (
	opList   = "list"
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"

	eventPublishTimeout = 5 * time.Second
)

// ItemService orchestrates the item lifecycle:
//
//	resilience → { cache → validation → concurrency check → store } → events
//
// Each public operation is wrapped by its own resilience executor so a
// failing operation cannot starve the others. Cache and event failures are
// absorbed (degrade to direct store access, log-and-continue); only store
// failures on the critical write path surface as internal errors.
//
// The acting principal is an explicit actor parameter on every mutating
// call — never read from ambient state.
type ItemService struct {
	store     repositories.ItemStore
	validator *domainsvcs.Validator
	itemCache PointCache
	listCache *pkgcache.ListCache
	bus       EventPublisher
	log       logger.Logger
	metrics   *telemetry.Metrics

	listExec   *resilience.Executor[*repositories.Page]
	getExec    *resilience.Executor[*models.Item]
	createExec *resilience.Executor[*models.Item]
	updateExec *resilience.Executor[*models.Item]
	deleteExec *resilience.Executor[bool]
}

// ItemServiceDeps carries the collaborators for NewItemService. Cache, bus
// and metrics are optional; the service degrades gracefully without them.
type ItemServiceDeps struct {
	Store     repositories.ItemStore
	Validator *domainsvcs.Validator
	ItemCache PointCache
	ListCache *pkgcache.ListCache
	Bus       EventPublisher
	Log       logger.Logger
	Metrics   *telemetry.Metrics

	// ReadPolicy applies to list/get (retries allowed), WritePolicy to
	// create/update/delete (never retried).
	ReadPolicy  resilience.Policy
	WritePolicy resilience.Policy
}

// NewItemService wires an ItemService with per-operation resilience
// executors built from the given policies.
func NewItemService(d ItemServiceDeps) *ItemService {
	d.ReadPolicy.IsCallerError = isCallerError
	d.WritePolicy.IsCallerError = isCallerError
	d.WritePolicy.MaxRetries = 0 // mutations are not safely repeatable

	return &ItemService{
		store:      d.Store,
		validator:  d.Validator,
		itemCache:  d.ItemCache,
		listCache:  d.ListCache,
		bus:        d.Bus,
		log:        d.Log,
		metrics:    d.Metrics,
		listExec:   resilience.NewExecutor[*repositories.Page](opList, d.ReadPolicy),
		getExec:    resilience.NewExecutor[*models.Item](opGet, d.ReadPolicy),
		createExec: resilience.NewExecutor[*models.Item](opCreate, d.WritePolicy),
		updateExec: resilience.NewExecutor[*models.Item](opUpdate, d.WritePolicy),
		deleteExec: resilience.NewExecutor[bool](opDelete, d.WritePolicy),
	}
}

// isCallerError marks errors that are the caller's fault: they are never
// retried and do not move the circuit breaker.
func isCallerError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrConflict) ||
		errors.Is(err, domain.ErrItemNotFound)
}

// List returns one page of non-deleted items for the query. Reads go through
// the list cache keyed by the full query signature. On resilience fallback
// (breaker open, bulkhead full, retries exhausted) it degrades to an empty
// page rather than an error.
func (s *ItemService) List(ctx context.Context, q repositories.Query) (*repositories.Page, error) {
	start := time.Now()
	page, err := s.listExec.Execute(ctx, func(ctx context.Context) (*repositories.Page, error) {
		sig := q.Signature()
		if s.listCache != nil {
			if cached, ok := s.listCache.Get(sig); ok {
				return pageFromCached(cached), nil
			}
		}

		page, err := s.store.FindFiltered(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		if s.listCache != nil {
			s.listCache.Set(sig, cachedFromPage(page))
		}
		return page, nil
	})
	if err != nil {
		if isCallerError(err) {
			s.metrics.Record(ctx, opList, start, failureKind(err))
			return nil, err
		}
		s.log.WarnContext(ctx, "list degraded to empty page", "error", err)
		s.metrics.Record(ctx, opList, start, failureKind(err))
		return &repositories.Page{Items: []*models.Item{}, Total: 0}, nil
	}
	s.metrics.Record(ctx, opList, start, "")
	return page, nil
}

// Get returns the item by id using the cache-aside point cache. A cache hit
// never touches the store; a miss fetches the row, populates the cache
// before returning and bumps the view counter asynchronously. Resilience
// fallback degrades to not-found rather than an error; absent is the safe
// default for a read.
func (s *ItemService) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	start := time.Now()
	item, err := s.getExec.Execute(ctx, func(ctx context.Context) (*models.Item, error) {
		if s.itemCache != nil {
			cached, err := s.itemCache.Get(ctx, id)
			switch {
			case err == nil:
				return itemFromCached(cached), nil
			case !errors.Is(err, redis.Nil):
				s.log.WarnContext(ctx, "point cache read failed, falling through to store", "error", err)
			}
		}

		item, err := s.store.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				return nil, domain.ErrItemNotFound
			}
			return nil, fmt.Errorf("get item: %w", err)
		}

		// Populate synchronously so a concurrent update's refresh can never
		// be overwritten by a delayed write of the pre-mutation snapshot.
		s.refreshPointCache(ctx, item)
		s.bumpViewCount(item.ID)
		return item, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			s.metrics.Record(ctx, opGet, start, failureKind(err))
			return nil, domain.ErrItemNotFound
		}
		if isCallerError(err) {
			s.metrics.Record(ctx, opGet, start, failureKind(err))
			return nil, err
		}
		s.log.WarnContext(ctx, "get degraded to not-found", "item_id", id, "error", err)
		s.metrics.Record(ctx, opGet, start, failureKind(err))
		return nil, domain.ErrItemNotFound
	}
	s.metrics.Record(ctx, opGet, start, "")
	return item, nil
}

// Create validates and persists a new item (version 1), invalidates the
// list caches before acknowledging, and emits ItemCreated best-effort.
// There is no safe fallback for create: resilience rejection surfaces as
// ErrServiceUnavailable, distinct from validation and not-found.
func (s *ItemService) Create(ctx context.Context, draft models.Draft, actor string) (*models.Item, error) {
	start := time.Now()
	item, err := s.createExec.Execute(ctx, func(ctx context.Context) (*models.Item, error) {
		candidate := models.NewItem(draft, actor)

		if err := s.validator.Validate(ctx, candidate, nil, domainsvcs.ModeCreate); err != nil {
			return nil, err
		}
		if err := s.store.Insert(ctx, candidate); err != nil {
			return nil, err
		}

		s.invalidateLists()
		s.emit(ctx, domainevents.TopicItemCreated, candidate, actor)
		return candidate, nil
	})
	if err != nil {
		s.metrics.Record(ctx, opCreate, start, failureKind(err))
		return nil, s.mapWriteError(ctx, opCreate, err)
	}
	s.metrics.Record(ctx, opCreate, start, "")
	return item, nil
}

// Update applies a partial patch under optimistic locking. A non-nil
// patch.ExpectedVersion must match the stored version or the call fails
// with ErrVersionConflict and no mutation; a nil one is the explicit
// last-writer-wins mode. The point entry is refreshed and list caches are
// purged before the caller sees the result.
func (s *ItemService) Update(ctx context.Context, id uuid.UUID, patch models.Patch, actor string) (*models.Item, error) {
	start := time.Now()
	item, err := s.updateExec.Execute(ctx, func(ctx context.Context) (*models.Item, error) {
		// Load regardless of the deleted flag: updating a soft-deleted item
		// is a rejected update (consistency rule), not a missing item.
		existing, err := s.store.FindByIDAny(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				return nil, domain.ErrItemNotFound
			}
			return nil, fmt.Errorf("load item for update: %w", err)
		}

		candidate := existing.ApplyPatch(patch, actor)
		if err := s.validator.Validate(ctx, candidate, existing, domainsvcs.ModeUpdate); err != nil {
			return nil, err
		}
		if err := s.store.Save(ctx, candidate, patch.ExpectedVersion); err != nil {
			return nil, err
		}

		s.refreshPointCache(ctx, candidate)
		s.invalidateLists()
		s.emit(ctx, domainevents.TopicItemUpdated, candidate, actor)
		return candidate, nil
	})
	if err != nil {
		s.metrics.Record(ctx, opUpdate, start, failureKind(err))
		return nil, s.mapWriteError(ctx, opUpdate, err)
	}
	s.metrics.Record(ctx, opUpdate, start, "")
	return item, nil
}

// Delete soft-deletes the item. Preconditions: the item exists and holds no
// stock. Deleting an already-deleted item is a no-op returning false, not
// an error. Returns true when this call performed the deletion.
func (s *ItemService) Delete(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	start := time.Now()
	deleted, err := s.deleteExec.Execute(ctx, func(ctx context.Context) (bool, error) {
		existing, err := s.store.FindByIDAny(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				return false, domain.ErrItemNotFound
			}
			return false, fmt.Errorf("load item for delete: %w", err)
		}
		if existing.Deleted {
			return false, nil // nothing to do
		}
		if !existing.CanBeDeleted() {
			return false, domain.NewValidationError(domain.KindConsistency, "stock",
				"cannot delete an item with stock on hand (%d)", existing.Stock)
		}

		marked := existing.MarkDeleted(actor)
		if err := s.store.Save(ctx, marked, &existing.Version); err != nil {
			if errors.Is(err, domain.ErrItemNotFound) {
				// Deleted by a concurrent caller between load and write.
				return false, nil
			}
			return false, err
		}

		s.evictPointCache(ctx, id)
		s.invalidateLists()
		s.emit(ctx, domainevents.TopicItemDeleted, marked, actor)
		return true, nil
	})
	if err != nil {
		s.metrics.Record(ctx, opDelete, start, failureKind(err))
		return false, s.mapWriteError(ctx, opDelete, err)
	}
	s.metrics.Record(ctx, opDelete, start, "")
	return deleted, nil
}

// ListDeleted returns the soft-deleted items (maintenance view, uncached).
func (s *ItemService) ListDeleted(ctx context.Context) ([]*models.Item, error) {
	items, err := s.store.FindDeleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deleted items: %w", err)
	}
	return items, nil
}

// mapWriteError classifies a failed mutation: caller errors pass through,
// resilience rejections become ErrServiceUnavailable (never disguised as
// not-found), anything else is an internal store failure.
func (s *ItemService) mapWriteError(ctx context.Context, op string, err error) error {
	if isCallerError(err) {
		return err
	}
	if resilience.IsRejection(err) {
		s.log.WarnContext(ctx, "operation rejected by resilience stack", "operation", op, "error", err)
		return domain.ErrServiceUnavailable
	}
	s.log.ErrorContext(ctx, "operation failed", "operation", op, "error", err)
	return fmt.Errorf("%w: %s: %w", domain.ErrInternal, op, err)
}

// failureKind labels err for metrics; empty means success-class.
func failureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrItemNotFound):
		return "not_found"
	case resilience.IsRejection(err):
		return "unavailable"
	default:
		return "internal"
	}
}

// --- cache plumbing ------------------------------------------------------

// invalidateLists purges every list entry. Query signatures are unbounded,
// so invalidation is coarse: correctness over precision. Runs before the
// mutation is acknowledged to the caller.
func (s *ItemService) invalidateLists() {
	if s.listCache != nil {
		s.listCache.Purge()
	}
}

func (s *ItemService) refreshPointCache(ctx context.Context, item *models.Item) {
	if s.itemCache == nil {
		return
	}
	if err := s.itemCache.Set(ctx, cachedFromItem(item)); err != nil {
		s.log.WarnContext(ctx, "point cache refresh failed, evicting instead", "item_id", item.ID, "error", err)
		s.evictPointCache(ctx, item.ID)
	}
}

func (s *ItemService) evictPointCache(ctx context.Context, id uuid.UUID) {
	if s.itemCache == nil {
		return
	}
	if err := s.itemCache.Delete(ctx, id); err != nil {
		s.log.WarnContext(ctx, "point cache evict failed", "item_id", id, "error", err)
	}
}

// bumpViewCount increments the derived read counter best-effort; it never
// bears on the version or blocks the read.
func (s *ItemService) bumpViewCount(id uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.store.IncrementViewCount(ctx, id); err != nil {
			s.log.Warn("view count increment failed", "item_id", id, "error", err)
		}
	}()
}

// --- event plumbing ------------------------------------------------------

// emit publishes a lifecycle event best-effort: asynchronous, never blocking
// or failing the triggering operation. Delivery is at-least-once from the
// bus's perspective but publication itself is fire-and-forget.
func (s *ItemService) emit(ctx context.Context, topic string, item *models.Item, actor string) {
	if s.bus == nil {
		return
	}
	event := domainevents.ItemEvent{
		EventID:    uuid.New(),
		Version:    1,
		ItemID:     item.ID,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
		Item: domainevents.ItemSnapshot{
			ID:       item.ID,
			Name:     item.Name,
			Code:     item.Code,
			Category: item.Category,
			Price:    item.Price.String(),
			Stock:    item.Stock,
			Status:   string(item.Status),
			Version:  item.Version,
			Deleted:  item.Deleted,
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.ErrorContext(ctx, "marshal event", "topic", topic, "error", err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", event.EventID.String())
	msg.Metadata.Set("event_version", "1")

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.bus.Publish(pubCtx, topic, msg); err != nil {
			s.log.Error("event publish failed", "topic", topic, "item_id", event.ItemID, "error", err)
		}
	}()
}

// --- cache model conversion ---------------------------------------------

func cachedFromItem(item *models.Item) *pkgcache.CachedItem {
	return &pkgcache.CachedItem{
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
	}
}

func itemFromCached(c *pkgcache.CachedItem) *models.Item {
	return &models.Item{
		ID:          c.ID,
		Name:        c.Name,
		Code:        c.Code,
		Description: c.Description,
		Price:       c.Price,
		Stock:       c.Stock,
		Category:    c.Category,
		Status:      models.ItemStatus(c.Status),
		Version:     c.Version,
		CreatedAt:   c.CreatedAt,
		CreatedBy:   c.CreatedBy,
		UpdatedAt:   c.UpdatedAt,
		UpdatedBy:   c.UpdatedBy,
		ViewCount:   c.ViewCount,
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
	}
}

func cachedFromPage(page *repositories.Page) pkgcache.CachedPage {
	items := make([]pkgcache.CachedItem, len(page.Items))
	for i, item := range page.Items {
		items[i] = *cachedFromItem(item)
	}
	return pkgcache.CachedPage{Items: items, Total: page.Total}
}

func pageFromCached(cached pkgcache.CachedPage) *repositories.Page {
	items := make([]*models.Item, len(cached.Items))
	for i := range cached.Items {
		items[i] = itemFromCached(&cached.Items[i])
	}
	return &repositories.Page{Items: items, Total: cached.Total}
}
