package catalog

import (
	"github.com/smallbiznis/certihub/internal/cache"
	"github.com/smallbiznis/certihub/internal/catalog/repository"
	"github.com/smallbiznis/certihub/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(cache.NewCatalogCache),
	fx.Provide(service.NewService),
)
