package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/inventory/domain"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/observability/metrics"
	"github.com/smallbiznis/karat/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockStripes = 64

type ProductSource interface {
	GetProduct(ctx context.Context, id string) (catalogdomain.Product, error)
}

type MaterialSource interface {
	List(ctx context.Context) ([]materialdomain.Material, error)
}

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Repo      domain.Repository
	Products  ProductSource
	Materials MaterialSource
	Metrics   *metrics.Metrics    `optional:"true"`
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	repo      domain.Repository
	products  ProductSource
	materials MaterialSource
	metrics   *metrics.Metrics
	auditSvc  auditdomain.Service

	stripes [lockStripes]sync.Mutex
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("inventory.service"),
		repo:      p.Repo,
		products:  p.Products,
		materials: p.Materials,
		metrics:   p.Metrics,
		auditSvc:  p.AuditSvc,
	}
}

type delta struct {
	materialID snowflake.ID
	change     decimal.Decimal
}

func (s *Service) UpdateQuantity(ctx context.Context, materialID string, change decimal.Decimal) (*domain.Adjustment, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(materialID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidMaterialID
	}
	known, err := s.knownMaterials(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := known[id]; !ok {
		return nil, domain.ErrMaterialNotFound
	}

	adjustments, err := s.apply(ctx, []delta{{materialID: id, change: change}}, nil)
	if err != nil {
		return nil, err
	}
	return &adjustments[0], nil
}

func (s *Service) Deduct(ctx context.Context, product catalogdomain.Product, quantity int) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	deltas, err := s.deductions(ctx, []catalogdomain.Product{product}, []int{quantity})
	if err != nil {
		return err
	}
	_, err = s.apply(ctx, deltas, nil)
	return err
}

func (s *Service) HasSufficient(ctx context.Context, product catalogdomain.Product, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, domain.ErrInvalidQuantity
	}
	jewelry, ok := product.Kind.(catalogdomain.Jewelry)
	if !ok {
		return true, nil
	}

	known, err := s.knownMaterials(ctx)
	if err != nil {
		return false, err
	}

	qty := decimal.NewFromInt(int64(quantity))
	for _, component := range jewelry.Composition {
		if !component.Weight.IsPositive() {
			continue
		}
		// deleted materials are not deducted either
		if _, ok := known[component.MaterialID]; !ok {
			continue
		}
		record, err := s.repo.Find(ctx, s.db, component.MaterialID)
		if err != nil {
			return false, err
		}
		onHand := decimal.Zero
		if record != nil {
			onHand = record.Quantity
		}
		if onHand.LessThan(component.Weight.Mul(qty)) {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) CheckProduct(ctx context.Context, productID string, quantity int) (bool, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return s.HasSufficient(ctx, product, quantity)
}

func (s *Service) ProcessOrder(ctx context.Context, orderID string, items []catalogdomain.OrderItem) (*domain.OrderResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrInvalidOrderID
	}

	products := make([]catalogdomain.Product, 0, len(items))
	quantities := make([]int, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			s.log.Warn("order item skipped",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
			continue
		}
		products = append(products, product)
		quantities = append(quantities, item.Quantity)
	}

	deltas, err := s.deductions(ctx, products, quantities)
	if err != nil {
		return nil, err
	}

	ledger := &domain.OrderDeduction{OrderID: orderID, ProcessedAt: time.Now().UTC()}
	adjustments, err := s.apply(ctx, deltas, ledger)
	if err != nil {
		return nil, err
	}

	if s.auditSvc != nil {
		_ = s.auditSvc.Record(ctx, auditdomain.ActionOrderInventoryDeduct, map[string]any{
			"order_id":  orderID,
			"materials": len(adjustments),
		})
	}
	return &domain.OrderResult{OrderID: orderID, Adjustments: adjustments}, nil
}

func (s *Service) Get(ctx context.Context, materialID string) (*domain.Record, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(materialID))
	if err != nil || id == 0 {
		return nil, domain.ErrInvalidMaterialID
	}
	record, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &domain.Record{MaterialID: id, Quantity: decimal.Zero}, nil
	}
	return record, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Record, error) {
	return s.repo.List(ctx, s.db)
}

// deductions turns ordered products into per-material negative deltas.
// Standard products and unknown materials contribute nothing.
func (s *Service) deductions(ctx context.Context, products []catalogdomain.Product, quantities []int) ([]delta, error) {
	totals := make(map[snowflake.ID]decimal.Decimal)
	for i, product := range products {
		jewelry, ok := product.Kind.(catalogdomain.Jewelry)
		if !ok {
			continue
		}
		qty := decimal.NewFromInt(int64(quantities[i]))
		for _, component := range jewelry.Composition {
			if !component.Weight.IsPositive() {
				continue
			}
			totals[component.MaterialID] = totals[component.MaterialID].Add(component.Weight.Mul(qty))
		}
	}
	if len(totals) == 0 {
		return nil, nil
	}

	known, err := s.knownMaterials(ctx)
	if err != nil {
		return nil, err
	}

	deltas := make([]delta, 0, len(totals))
	for materialID, total := range totals {
		if _, ok := known[materialID]; !ok {
			s.log.Warn("composition references unknown material", zap.String("material_id", materialID.String()))
			continue
		}
		deltas = append(deltas, delta{materialID: materialID, change: total.Neg()})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].materialID < deltas[j].materialID })
	return deltas, nil
}

// apply writes deltas in one transaction under the per-material locks. When
// ledger is set its insert shares the transaction, so a repeated order id
// rolls everything back.
func (s *Service) apply(ctx context.Context, deltas []delta, ledger *domain.OrderDeduction) ([]domain.Adjustment, error) {
	unlock := s.lock(deltas)
	defer unlock()

	now := time.Now().UTC()
	adjustments := make([]domain.Adjustment, 0, len(deltas))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ledger != nil {
			if err := s.repo.InsertOrderDeduction(ctx, tx, ledger); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return domain.ErrOrderAlreadyProcessed
				}
				return err
			}
		}
		for _, d := range deltas {
			quantity, err := s.repo.Adjust(ctx, tx, d.materialID, d.change, now)
			if err != nil {
				return err
			}
			adjustments = append(adjustments, domain.Adjustment{
				MaterialID:  d.materialID.String(),
				Change:      d.change,
				NewQuantity: quantity,
			})
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrOrderAlreadyProcessed) {
			s.log.Error("inventory update failed", zap.Error(err))
		}
		return nil, err
	}

	for _, adj := range adjustments {
		if adj.Change.IsNegative() {
			s.metrics.RecordInventoryDeduction(ctx, adj.MaterialID)
		}
		if s.auditSvc != nil {
			_ = s.auditSvc.Record(ctx, auditdomain.ActionInventoryUpdated, map[string]any{
				"material_id":  adj.MaterialID,
				"change":       adj.Change.String(),
				"new_quantity": adj.NewQuantity.String(),
			})
		}
	}
	return adjustments, nil
}

// lock acquires the stripes covering deltas in ascending order.
func (s *Service) lock(deltas []delta) func() {
	seen := make(map[int]struct{}, len(deltas))
	indexes := make([]int, 0, len(deltas))
	for _, d := range deltas {
		idx := int(uint64(d.materialID) % lockStripes)
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	for _, idx := range indexes {
		s.stripes[idx].Lock()
	}
	return func() {
		for i := len(indexes) - 1; i >= 0; i-- {
			s.stripes[indexes[i]].Unlock()
		}
	}
}

func (s *Service) knownMaterials(ctx context.Context) (map[snowflake.ID]struct{}, error) {
	materials, err := s.materials.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[snowflake.ID]struct{}, len(materials))
	for _, m := range materials {
		known[m.ID] = struct{}{}
	}
	return known, nil
}
