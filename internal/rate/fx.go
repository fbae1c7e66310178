package rate

import (
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/providers/exchangerate"
	"github.com/smallbiznis/karat/internal/providers/vendorrate"
	"github.com/smallbiznis/karat/internal/rate/domain"
	"github.com/smallbiznis/karat/internal/rate/repository"
	"github.com/smallbiznis/karat/internal/rate/service"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		func(s supplierdomain.Service) domain.VendorSource { return s },
		func(s materialdomain.Service) domain.MaterialLister { return s },
		func(c *vendorrate.Client) domain.VendorClient { return c },
		func(c *exchangerate.Client) domain.ExchangeClient { return c },
	),
	fx.Provide(service.New),
)
