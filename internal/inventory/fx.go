package inventory

import (
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/inventory/repository"
	"github.com/smallbiznis/karat/internal/inventory/service"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		func(s catalogdomain.Service) service.ProductSource { return s },
		func(s materialdomain.Service) service.MaterialSource { return s },
	),
	fx.Provide(service.New),
)
