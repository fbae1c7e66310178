package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// StoreSettings are the storefront values an operator may change without a restart.
type StoreSettings struct {
	Currency         string  `mapstructure:"currency"`
	PriceDecimals    int32   `mapstructure:"priceDecimals"`
	DefaultLaborCost float64 `mapstructure:"defaultLaborCost"`
}

func DefaultStoreSettings(cfg Config) StoreSettings {
	return StoreSettings{
		Currency:         cfg.Pricing.StoreCurrency,
		PriceDecimals:    cfg.Pricing.PriceDecimals,
		DefaultLaborCost: cfg.Pricing.DefaultLaborCost,
	}
}

type StoreSettingsHolder struct {
	current atomic.Value // holds StoreSettings
}

// NewStaticStoreSettings returns a holder that never reloads. Used by tests and tools.
func NewStaticStoreSettings(settings StoreSettings) *StoreSettingsHolder {
	holder := &StoreSettingsHolder{}
	holder.current.Store(normalizeStoreSettings(settings))
	return holder
}

func NewStoreSettingsHolder(cfg Config) (*StoreSettingsHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(cfg.Pricing.SettingsPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("store")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/karat")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KARAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultStoreSettings(cfg)
	v.SetDefault("store.currency", defaults.Currency)
	v.SetDefault("store.priceDecimals", defaults.PriceDecimals)
	v.SetDefault("store.defaultLaborCost", defaults.DefaultLaborCost)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// no store.yml, defaults from env apply
		fileLoaded = false
	}

	var settings StoreSettings
	if err := v.UnmarshalKey("store", &settings); err != nil {
		return nil, err
	}
	settings = normalizeStoreSettings(settings)
	if err := validateStoreSettings(settings); err != nil {
		return nil, err
	}

	holder := &StoreSettingsHolder{}
	holder.current.Store(settings)

	if fileLoaded {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated StoreSettings
			if err := v.UnmarshalKey("store", &updated); err != nil {
				log.Printf("[store-settings] reload failed: %v", err)
				return
			}
			updated = normalizeStoreSettings(updated)
			if err := validateStoreSettings(updated); err != nil {
				log.Printf("[store-settings] invalid settings ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[store-settings] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *StoreSettingsHolder) Get() StoreSettings {
	return h.current.Load().(StoreSettings)
}

func normalizeStoreSettings(s StoreSettings) StoreSettings {
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	return s
}

func validateStoreSettings(s StoreSettings) error {
	if len(s.Currency) != 3 {
		return errors.New("store.currency must be a 3-letter code")
	}
	if s.PriceDecimals < 0 || s.PriceDecimals > 6 {
		return errors.New("store.priceDecimals must be between 0 and 6")
	}
	if s.DefaultLaborCost < 0 {
		return errors.New("store.defaultLaborCost cannot be negative")
	}
	return nil
}
