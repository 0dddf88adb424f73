package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/aidosgk/kaspi-orders-backend/pkg/db"
	"github.com/aidosgk/kaspi-orders-backend/pkg/db/models"
	apperrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

// ReceiveInput describes one inbound stock delivery.
type ReceiveInput struct {
	ProductCode string
	ProductName *string
	ReceivedAt  time.Time
	UnitCost    decimal.Decimal
	Qty         int
	Note        *string
}

// Allocation records how much of a consumption came out of one receipt.
type Allocation struct {
	ReceiptID uuid.UUID       `json:"receipt_id"`
	Qty       int             `json:"qty"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// StockRow is one product's current stock position.
type StockRow struct {
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	QtyReceived int    `json:"qty_received"`
	QtySold     int    `json:"qty_sold"`
	QtyLeft     int    `json:"qty_left"`
	Threshold   int    `json:"threshold"`
	Low         bool   `json:"low"`
}

// RecalcResult reports one product's ledger rebuild. QtySold is the true
// sales figure even when it exceeds what was ever received; Shortfall is
// how many sold units had no receipt to draw from.
type RecalcResult struct {
	ProductCode string `json:"product_code"`
	QtySold     int    `json:"qty_sold"`
	Consumed    int    `json:"consumed"`
	Shortfall   int    `json:"shortfall"`
}

// Service is the FIFO inventory ledger.
type Service interface {
	Receive(ctx context.Context, in ReceiveInput) (*models.StockReceipt, error)
	Consume(ctx context.Context, productCode string, qty int) (decimal.Decimal, []Allocation, error)
	EstimateCost(ctx context.Context, productCode string, qty int) (decimal.Decimal, error)
	Recalc(ctx context.Context, productCode string, qtySold int) (*RecalcResult, error)
	RecalcAll(ctx context.Context, sales map[string]int) ([]RecalcResult, error)
	StockSummary(ctx context.Context) ([]StockRow, error)
	SetThreshold(ctx context.Context, productCode string, threshold int, preferredName *string) error
}

type service struct {
	client *db.Client
	repo   Repository
	logg   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService builds the inventory service.
func NewService(client *db.Client, repo Repository, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, errors.New("db client is required")
	}
	if repo == nil {
		return nil, errors.New("inventory repository is required")
	}
	return &service{
		client: client,
		repo:   repo,
		logg:   logg,
		locks:  map[string]*sync.Mutex{},
	}, nil
}

// lockProduct serializes ledger mutations per product code.
func (s *service) lockProduct(productCode string) func() {
	s.mu.Lock()
	lock, ok := s.locks[productCode]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[productCode] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (s *service) Receive(ctx context.Context, in ReceiveInput) (*models.StockReceipt, error) {
	if in.ProductCode == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "product code is required")
	}
	if in.Qty <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("receipt qty must be positive, got %d", in.Qty))
	}
	if in.UnitCost.IsNegative() {
		return nil, apperrors.New(apperrors.CodeValidation, "unit cost must not be negative")
	}
	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	unlock := s.lockProduct(in.ProductCode)
	defer unlock()

	receipt := &models.StockReceipt{
		ID:           uuid.New(),
		ProductCode:  in.ProductCode,
		ProductName:  in.ProductName,
		ReceivedAt:   receivedAt,
		UnitCost:     in.UnitCost,
		QtyReceived:  in.Qty,
		QtyRemaining: in.Qty,
		Note:         in.Note,
	}
	created, err := s.repo.CreateReceipt(ctx, receipt)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "saving stock receipt")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithProductCode(ctx, in.ProductCode), "stock receipt recorded")
	}
	return created, nil
}

// Consume draws qty units from the oldest receipts first and returns the
// blended cost. If stock is short the ledger is left untouched.
func (s *service) Consume(ctx context.Context, productCode string, qty int) (decimal.Decimal, []Allocation, error) {
	if productCode == "" {
		return decimal.Zero, nil, apperrors.New(apperrors.CodeValidation, "product code is required")
	}
	if qty <= 0 {
		return decimal.Zero, nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("consume qty must be positive, got %d", qty))
	}

	unlock := s.lockProduct(productCode)
	defer unlock()

	var totalCost decimal.Decimal
	var allocations []Allocation

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		receipts, err := repo.ReceiptsFIFO(ctx, productCode)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading receipts")
		}

		available := 0
		for _, receipt := range receipts {
			available += receipt.QtyRemaining
		}
		if available < qty {
			return apperrors.New(apperrors.CodeInsufficientStock,
				fmt.Sprintf("product %s has %d unit(s) left, need %d", productCode, available, qty))
		}

		remaining := qty
		for _, receipt := range receipts {
			if remaining == 0 {
				break
			}
			if receipt.QtyRemaining <= 0 {
				continue
			}
			take := receipt.QtyRemaining
			if take > remaining {
				take = remaining
			}
			if err := repo.SetRemaining(ctx, receipt.ID, receipt.QtyRemaining-take); err != nil {
				return apperrors.Wrap(apperrors.CodeDependency, err, "updating receipt remainder")
			}
			totalCost = totalCost.Add(receipt.UnitCost.Mul(decimal.NewFromInt(int64(take))))
			allocations = append(allocations, Allocation{
				ReceiptID: receipt.ID,
				Qty:       take,
				UnitCost:  receipt.UnitCost,
			})
			remaining -= take
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, nil, err
	}
	return totalCost, allocations, nil
}

// EstimateCost prices a hypothetical FIFO draw without touching the ledger.
// A short position prices only the units that exist.
func (s *service) EstimateCost(ctx context.Context, productCode string, qty int) (decimal.Decimal, error) {
	if productCode == "" || qty <= 0 {
		return decimal.Zero, nil
	}

	receipts, err := s.repo.ReceiptsFIFO(ctx, productCode)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeDependency, err, "loading receipts")
	}

	remaining := qty
	var total decimal.Decimal
	for _, receipt := range receipts {
		if remaining == 0 {
			break
		}
		if receipt.QtyRemaining <= 0 {
			continue
		}
		take := receipt.QtyRemaining
		if take > remaining {
			take = remaining
		}
		total = total.Add(receipt.UnitCost.Mul(decimal.NewFromInt(int64(take))))
		remaining -= take
	}
	return total, nil
}

// Recalc rebuilds a product's remainders from scratch: every receipt is
// restored to full, then the sold quantity is replayed FIFO. Consumption
// caps at what was received; the shortfall is reported, not hidden.
func (s *service) Recalc(ctx context.Context, productCode string, qtySold int) (*RecalcResult, error) {
	if productCode == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "product code is required")
	}
	if qtySold < 0 {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("qty sold must be >= 0, got %d", qtySold))
	}

	unlock := s.lockProduct(productCode)
	defer unlock()

	result := &RecalcResult{ProductCode: productCode, QtySold: qtySold}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.ResetRemaining(ctx, productCode); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "resetting receipt remainders")
		}

		receipts, err := repo.ReceiptsFIFO(ctx, productCode)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "loading receipts")
		}

		remaining := qtySold
		for _, receipt := range receipts {
			if remaining == 0 {
				break
			}
			take := receipt.QtyReceived
			if take > remaining {
				take = remaining
			}
			if err := repo.SetRemaining(ctx, receipt.ID, receipt.QtyReceived-take); err != nil {
				return apperrors.Wrap(apperrors.CodeDependency, err, "updating receipt remainder")
			}
			result.Consumed += take
			remaining -= take
		}
		result.Shortfall = remaining
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Shortfall > 0 && s.logg != nil {
		s.logg.Warn(s.logg.WithProductCode(ctx, productCode), "sales exceed received stock")
	}
	return result, nil
}

// RecalcAll replays a sales aggregate over the whole ledger. Products with
// receipts but no sales are reset to full. A failing product does not stop
// the rest; errors are combined.
func (s *service) RecalcAll(ctx context.Context, sales map[string]int) ([]RecalcResult, error) {
	codes, err := s.repo.ProductCodes(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading product codes")
	}

	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		seen[code] = struct{}{}
	}
	for code := range sales {
		if _, ok := seen[code]; !ok {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	var combined error
	results := make([]RecalcResult, 0, len(codes))
	for _, code := range codes {
		result, err := s.Recalc(ctx, code, sales[code])
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("recalc %s: %w", code, err))
			continue
		}
		results = append(results, *result)
	}
	return results, combined
}

func (s *service) StockSummary(ctx context.Context) ([]StockRow, error) {
	receipts, err := s.repo.AllReceipts(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading receipts")
	}
	thresholds, err := s.repo.Thresholds(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading thresholds")
	}

	byCode := map[string]*StockRow{}
	for _, receipt := range receipts {
		row, ok := byCode[receipt.ProductCode]
		if !ok {
			row = &StockRow{ProductCode: receipt.ProductCode}
			byCode[receipt.ProductCode] = row
		}
		row.QtyReceived += receipt.QtyReceived
		row.QtyLeft += receipt.QtyRemaining
		if row.ProductName == "" && receipt.ProductName != nil {
			row.ProductName = *receipt.ProductName
		}
	}

	for _, threshold := range thresholds {
		row, ok := byCode[threshold.ProductCode]
		if !ok {
			continue
		}
		row.Threshold = threshold.Threshold
		if threshold.PreferredName != nil && *threshold.PreferredName != "" {
			row.ProductName = *threshold.PreferredName
		}
	}

	rows := make([]StockRow, 0, len(byCode))
	for _, row := range byCode {
		row.QtySold = row.QtyReceived - row.QtyLeft
		row.Low = row.Threshold > 0 && row.QtyLeft <= row.Threshold
		rows = append(rows, *row)
	}

	// Low-stock products surface first, the emptiest at the top.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Low != rows[j].Low {
			return rows[i].Low
		}
		if rows[i].QtyLeft != rows[j].QtyLeft {
			return rows[i].QtyLeft < rows[j].QtyLeft
		}
		return rows[i].ProductCode < rows[j].ProductCode
	})
	return rows, nil
}

func (s *service) SetThreshold(ctx context.Context, productCode string, threshold int, preferredName *string) error {
	if productCode == "" {
		return apperrors.New(apperrors.CodeValidation, "product code is required")
	}
	if threshold < 0 {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("threshold must be >= 0, got %d", threshold))
	}
	err := s.repo.UpsertThreshold(ctx, &models.StockThreshold{
		ProductCode:   productCode,
		Threshold:     threshold,
		PreferredName: preferredName,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "saving threshold")
	}
	return nil
}
