package services

import (
	"github.com/shopspring/decimal"

	"github.com/ghuser/catalog/pkg/app"
	"github.com/ghuser/catalog/pkg/cache"
	"github.com/ghuser/catalog/pkg/resilience"
	domainsvcs "github.com/ghuser/catalog/services/item/domain/services"
	"github.com/ghuser/catalog/services/item/infrastructure/persistence/postgres"
)

// Services is the application-layer service container for this bounded context.
// It wires domain services with their infrastructure implementations.
type Services struct {
	Item *ItemService
}

// New wires all item application services with infrastructure from the Application container.
func New(a *app.Application) *Services {
	repo := postgres.NewItemRepository(a.Db)

	limits := domainsvcs.DefaultLimits()
	limits.MaxPrice = decimal.NewFromFloat(a.Config.MaxItemPrice)
	limits.MaxStock = a.Config.MaxItemStock
	limits.MaxItemsPerCategory = a.Config.MaxItemsPerCategory
	limits.MaxItemsPerNamePrefix = a.Config.MaxItemsPerNamePrefix
	limits.MaxItemsPerPriceBucket = a.Config.MaxItemsPerPriceBand

	readPolicy := resilience.DefaultPolicy()
	readPolicy.MaxConcurrent = int64(a.Config.BulkheadMaxConcurrent)
	readPolicy.Timeout = a.Config.OperationTimeout
	readPolicy.MaxRetries = uint(a.Config.ReadMaxRetries)
	readPolicy.RetryInterval = a.Config.RetryInterval
	readPolicy.BreakerOpenFor = a.Config.BreakerOpenFor

	writePolicy := readPolicy
	writePolicy.MaxRetries = 0

	return &Services{
		Item: NewItemService(ItemServiceDeps{
			Store:       repo,
			Validator:   domainsvcs.NewValidator(repo, limits),
			ItemCache:   cache.NewItemCache(a.Redis, a.Config.ItemCacheTTL),
			ListCache:   cache.NewListCache(a.Config.ListCacheLen, a.Config.ListCacheTTL),
			Bus:         a.EventBus,
			Log:         a.Logger,
			Metrics:     a.Metrics,
			ReadPolicy:  readPolicy,
			WritePolicy: writePolicy,
		}),
	}
}
