package analytics

import (
	"github.com/smallbiznis/karat/internal/analytics/service"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("analytics.service",
	fx.Provide(
		func(s ratedomain.Service) service.RateSource { return s },
		func(s pricingdomain.Service) service.Pricer { return s },
		func(s catalogdomain.Service) service.Catalog { return s },
	),
	fx.Provide(service.New),
)
