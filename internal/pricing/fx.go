package pricing

import (
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/pricing/domain"
	"github.com/smallbiznis/karat/internal/pricing/repository"
	"github.com/smallbiznis/karat/internal/pricing/service"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("pricing.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		func(s catalogdomain.Service) service.ProductSource { return s },
		func(s ratedomain.Service) service.RateSource { return s },
		func(s materialdomain.Service) service.MaterialSource { return s },
	),
	fx.Provide(service.New),
	fx.Provide(
		func(s *service.Service) domain.Service { return s },
		func(s *service.Service) domain.SettingsStore { return s },
	),
)
