package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/cache"
	"github.com/smallbiznis/karat/internal/clock"
	"github.com/smallbiznis/karat/internal/config"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/observability/metrics"
	"github.com/smallbiznis/karat/internal/rate/domain"
	"github.com/smallbiznis/karat/internal/ratelimit"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const refreshLockKey = "karat:lock:rate_refresh"

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Cfg          config.Config
	Settings     *config.StoreSettingsHolder
	Repo         domain.Repository
	Cache        cache.Store
	Clock        clock.Clock
	Vendors      domain.VendorSource
	VendorClient domain.VendorClient
	Exchange     domain.ExchangeClient
	Materials    domain.MaterialLister
	Locker       *ratelimit.Locker   `optional:"true"`
	Metrics      *metrics.Metrics    `optional:"true"`
	AuditSvc     auditdomain.Service `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	cfg          config.RatesConfig
	settings     *config.StoreSettingsHolder
	repo         domain.Repository
	cache        cache.Store
	clock        clock.Clock
	vendors      domain.VendorSource
	vendorClient domain.VendorClient
	exchange     domain.ExchangeClient
	materials    domain.MaterialLister
	locker       *ratelimit.Locker
	metrics      *metrics.Metrics
	auditSvc     auditdomain.Service

	mu sync.Mutex
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("rate.service"),
		genID:        p.GenID,
		cfg:          p.Cfg.Rates,
		settings:     p.Settings,
		repo:         p.Repo,
		cache:        p.Cache,
		clock:        clk,
		vendors:      p.Vendors,
		vendorClient: p.VendorClient,
		exchange:     p.Exchange,
		materials:    p.Materials,
		locker:       p.Locker,
		metrics:      p.Metrics,
		auditSvc:     p.AuditSvc,
	}
}

type vendorQuotes struct {
	vendor supplierdomain.Vendor
	quotes map[string]float64
}

func (s *Service) RefreshRates(ctx context.Context) (domain.RateTable, error) {
	// a started cycle always completes, even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker.Enabled() {
		token, acquired, err := s.locker.TryLock(ctx, refreshLockKey, s.cfg.RefreshLockTTL)
		switch {
		case err != nil:
			s.log.Warn("rate refresh lock unavailable, relying on process lock", zap.Error(err))
		case !acquired:
			s.metrics.RecordRateRefresh(ctx, "skipped")
			return nil, domain.ErrRefreshInProgress
		default:
			defer func() {
				if err := s.locker.Release(ctx, refreshLockKey, token); err != nil {
					s.log.Warn("failed to release rate refresh lock", zap.Error(err))
				}
			}()
		}
	}

	vendors, err := s.vendors.ListActive(ctx)
	if err != nil {
		s.metrics.RecordRateRefresh(ctx, "error")
		return nil, err
	}
	materials, err := s.materials.List(ctx)
	if err != nil {
		s.metrics.RecordRateRefresh(ctx, "error")
		return nil, err
	}

	results := s.fetchAll(ctx, vendors)
	fetchedAt := s.clock.Now()

	s.appendHistory(ctx, results, materials, fetchedAt)

	table := aggregate(results)
	if len(table) == 0 {
		s.log.Warn("rate refresh produced no quotes, keeping current table",
			zap.Int("vendors", len(vendors)),
		)
		s.metrics.RecordRateRefresh(ctx, "empty")
		return nil, domain.ErrNoRates
	}

	table, currency := s.convert(ctx, table, s.cfg.VendorCurrency)

	if err := s.repo.ReplaceCurrent(ctx, s.db, table, currency, fetchedAt); err != nil {
		s.log.Error("failed to persist current rates", zap.Error(err))
		s.metrics.RecordRateRefresh(ctx, "error")
		return nil, err
	}
	if err := s.cache.Set(ctx, domain.CacheKeyRates, table, s.cfg.RateCacheTTL); err != nil {
		s.log.Warn("failed to cache current rates", zap.Error(err))
	}

	s.metrics.RecordRateRefresh(ctx, "success")
	s.log.Info("rates refreshed",
		zap.Int("materials", len(table)),
		zap.Int("vendors_responded", len(results)),
		zap.String("currency", currency),
	)
	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.ActionRatesUpdated, map[string]any{
			"materials":         len(table),
			"vendors_responded": len(results),
			"currency":          currency,
		})
	}
	return table.Clone(), nil
}

// fetchAll polls vendors concurrently. Failed vendors are logged and left out.
func (s *Service) fetchAll(ctx context.Context, vendors []supplierdomain.Vendor) []vendorQuotes {
	slots := make([]*vendorQuotes, len(vendors))

	var g errgroup.Group
	if s.cfg.MaxConcurrentVendor > 0 {
		g.SetLimit(s.cfg.MaxConcurrentVendor)
	}
	for i := range vendors {
		i, vendor := i, vendors[i]
		g.Go(func() error {
			quotes, err := s.vendorClient.Fetch(ctx, vendor)
			if err != nil {
				s.log.Warn("vendor fetch failed",
					zap.String("vendor_id", vendor.ID.String()),
					zap.String("vendor", vendor.Name),
					zap.Error(err),
				)
				s.metrics.RecordVendorFetch(ctx, vendor.Name, "error")
				return nil
			}
			s.metrics.RecordVendorFetch(ctx, vendor.Name, "success")
			slots[i] = &vendorQuotes{vendor: vendor, quotes: quotes}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]vendorQuotes, 0, len(slots))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}
	return results
}

func (s *Service) appendHistory(ctx context.Context, results []vendorQuotes, materials []materialdomain.Material, fetchedAt time.Time) {
	byCode := make(map[string]snowflake.ID, len(materials))
	for _, m := range materials {
		byCode[m.Code] = m.ID
	}

	currency := strings.ToUpper(s.cfg.VendorCurrency)
	var snapshots []domain.RateSnapshot
	for _, result := range results {
		for name, rate := range result.quotes {
			materialID, ok := byCode[materialdomain.CodeFor(name)]
			if !ok {
				continue
			}
			snapshots = append(snapshots, domain.RateSnapshot{
				ID:         s.genID.Generate(),
				MaterialID: materialID,
				VendorID:   result.vendor.ID,
				Rate:       rate,
				Currency:   currency,
				FetchedAt:  fetchedAt,
			})
		}
	}

	if err := s.repo.AppendHistory(ctx, s.db, snapshots); err != nil {
		s.log.Warn("failed to append rate history", zap.Int("snapshots", len(snapshots)), zap.Error(err))
	}
}

// aggregate takes the arithmetic mean of every quote per material.
func aggregate(results []vendorQuotes) domain.RateTable {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, result := range results {
		for name, rate := range result.quotes {
			code := materialdomain.CodeFor(name)
			if code == "" {
				continue
			}
			sums[code] += rate
			counts[code]++
		}
	}

	table := make(domain.RateTable, len(sums))
	for code, sum := range sums {
		table[code] = sum / float64(counts[code])
	}
	return table
}

// convert applies the from->store currency exchange rate. When the rate is
// unavailable the table passes through in its original currency.
func (s *Service) convert(ctx context.Context, table domain.RateTable, from string) (domain.RateTable, string) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to := s.settings.Get().Currency
	if from == "" || from == to {
		return table, to
	}

	factor, err := s.exchangeRate(ctx, from, to)
	if err != nil {
		s.log.Warn("exchange rate unavailable, skipping conversion",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err),
		)
		return table, from
	}

	converted := make(domain.RateTable, len(table))
	for code, rate := range table {
		converted[code] = rate * factor
	}
	return converted, to
}

func (s *Service) exchangeRate(ctx context.Context, from, to string) (float64, error) {
	key := cache.Key("exchange", from, to)

	var cached float64
	if ok, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("exchange cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok && cached > 0 {
		return cached, nil
	}

	rate, err := s.exchange.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Set(ctx, key, rate, s.cfg.ExchangeCacheTTL); err != nil {
		s.log.Warn("exchange cache write failed", zap.String("key", key), zap.Error(err))
	}
	return rate, nil
}

// GetRates prefers the cache and falls back to the durable table, re-warming
// the cache on a durable hit. An empty table is a valid answer.
func (s *Service) GetRates(ctx context.Context) (domain.RateTable, error) {
	var cached domain.RateTable
	ok, err := s.cache.Get(ctx, domain.CacheKeyRates, &cached)
	if err != nil {
		s.log.Warn("rate cache read failed", zap.Error(err))
	}
	if ok && cached != nil {
		return cached, nil
	}

	table, err := s.repo.LoadCurrent(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(table) > 0 {
		if err := s.cache.Set(ctx, domain.CacheKeyRates, table, s.cfg.RateCacheTTL); err != nil {
			s.log.Warn("failed to re-warm rate cache", zap.Error(err))
		}
	}
	return table, nil
}

func (s *Service) History(ctx context.Context, materialID string, days int) ([]domain.HistoryPoint, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(materialID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidMaterialID
	}
	since, err := s.windowStart(days)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.repo.History(ctx, s.db, id, since)
	if err != nil {
		return nil, err
	}

	points := make([]domain.HistoryPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		points = append(points, domain.HistoryPoint{
			VendorID:  snap.VendorID.String(),
			Rate:      snap.Rate,
			Currency:  snap.Currency,
			FetchedAt: snap.FetchedAt,
		})
	}
	return points, nil
}

func (s *Service) OldestRates(ctx context.Context, days int) (domain.RateTable, error) {
	since, err := s.windowStart(days)
	if err != nil {
		return nil, err
	}

	materials, err := s.materials.List(ctx)
	if err != nil {
		return nil, err
	}
	codes := make(map[snowflake.ID]string, len(materials))
	for _, m := range materials {
		codes[m.ID] = m.Code
	}

	snapshots, err := s.repo.HistorySince(ctx, s.db, since)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		at       time.Time
		sum      float64
		count    int
		currency string
	}
	earliest := make(map[string]*bucket)
	for _, snap := range snapshots {
		code, ok := codes[snap.MaterialID]
		if !ok {
			continue
		}
		b, seen := earliest[code]
		switch {
		case !seen:
			earliest[code] = &bucket{at: snap.FetchedAt, sum: snap.Rate, count: 1, currency: snap.Currency}
		case snap.FetchedAt.Equal(b.at):
			b.sum += snap.Rate
			b.count++
		}
	}

	byCurrency := make(map[string]domain.RateTable)
	for code, b := range earliest {
		if byCurrency[b.currency] == nil {
			byCurrency[b.currency] = domain.RateTable{}
		}
		byCurrency[b.currency][code] = b.sum / float64(b.count)
	}

	out := domain.RateTable{}
	for currency, table := range byCurrency {
		converted, _ := s.convert(ctx, table, currency)
		for code, rate := range converted {
			out[code] = rate
		}
	}
	return out, nil
}

func (s *Service) windowStart(days int) (time.Time, error) {
	if days == 0 {
		days = domain.DefaultDays
	}
	if days < 0 || days > domain.MaxHistoryDays {
		return time.Time{}, domain.ErrInvalidDays
	}
	return s.clock.Now().AddDate(0, 0, -days), nil
}
