package alert

import (
	"github.com/smallbiznis/karat/internal/alert/repository"
	"github.com/smallbiznis/karat/internal/alert/service"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		func(s pricingdomain.Service) service.Pricer { return s },
		func(s catalogdomain.Service) service.ProductSource { return s },
	),
	fx.Provide(service.New),
)
