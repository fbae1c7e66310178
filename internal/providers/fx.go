package providers

import (
	"net/http"

	"github.com/smallbiznis/karat/internal/config"
	"github.com/smallbiznis/karat/internal/providers/email"
	"github.com/smallbiznis/karat/internal/providers/exchangerate"
	"github.com/smallbiznis/karat/internal/providers/vendorrate"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	fx.Provide(NewVendorRateClient),
	fx.Provide(NewExchangeRateClient),
)

func NewVendorRateClient(cfg config.Config) *vendorrate.Client {
	return vendorrate.NewClient(&http.Client{}, cfg.Rates.VendorTimeout)
}

func NewExchangeRateClient(cfg config.Config) *exchangerate.Client {
	return exchangerate.NewClient(&http.Client{}, cfg.Rates.ExchangeBaseURL, cfg.Rates.ExchangeTimeout)
}
