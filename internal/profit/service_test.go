package profit

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/internal/businessday"
	"github.com/aidosgk/kaspi-orders-backend/internal/kaspi"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	"github.com/aidosgk/kaspi-orders-backend/pkg/db/models"
	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
	apperrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"gorm.io/gorm"
)

type fakeOrders struct {
	order   *kaspi.Order
	entries []kaspi.OrderEntry
}

func (f *fakeOrders) GetOrder(ctx context.Context, orderID string) (*kaspi.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, apperrors.New(apperrors.CodeOrderNotFound, "order not found upstream")
	}
	return f.order, nil
}

func (f *fakeOrders) OrderEntries(ctx context.Context, orderID string) ([]kaspi.OrderEntry, error) {
	return f.entries, nil
}

type fakeSummaries struct {
	items []analytics.OrderSummary
}

func (f *fakeSummaries) ListOrderSummaries(ctx context.Context, q analytics.Query) ([]analytics.OrderSummary, error) {
	return f.items, nil
}

type fakeCosts struct {
	costs map[string]string
}

func (f *fakeCosts) EstimateCost(ctx context.Context, productCode string, qty int) (decimal.Decimal, error) {
	raw, ok := f.costs[productCode]
	if !ok {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

type fakeRepo struct {
	costs map[string]models.ManualCost
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{costs: map[string]models.ManualCost{}}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) UpsertManualCost(ctx context.Context, cost *models.ManualCost) error {
	f.costs[cost.OrderNumber] = *cost
	return nil
}

func (f *fakeRepo) ManualCost(ctx context.Context, orderNumber string) (*models.ManualCost, bool, error) {
	cost, ok := f.costs[orderNumber]
	if !ok {
		return nil, false, nil
	}
	return &cost, true, nil
}

func (f *fakeRepo) ManualCosts(ctx context.Context, orderNumbers []string) (map[string]models.ManualCost, error) {
	out := map[string]models.ManualCost{}
	for _, number := range orderNumbers {
		if cost, ok := f.costs[number]; ok {
			out[number] = cost
		}
	}
	return out, nil
}

type stubSettings struct {
	fees settings.FeeConfig
}

func (s *stubSettings) BusinessDayRule(ctx context.Context) (businessday.Rule, businessday.Mode, error) {
	rule, err := businessday.NewRule("20:00", 3, "Asia/Almaty")
	return rule, businessday.ModeCutoff, err
}

func (s *stubSettings) SetBusinessDay(ctx context.Context, in settings.BusinessDayInput) (businessday.Rule, businessday.Mode, error) {
	return businessday.Rule{}, businessday.ModeCutoff, nil
}

func (s *stubSettings) Fees(ctx context.Context) (settings.FeeConfig, error) {
	return s.fees, nil
}

func (s *stubSettings) SetFees(ctx context.Context, in settings.FeesInput) (settings.FeeConfig, error) {
	return s.fees, nil
}

func (s *stubSettings) RawValues(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

type fakeBumper struct {
	bumps int
}

func (f *fakeBumper) BumpGeneration(ctx context.Context) (int64, error) {
	f.bumps++
	return int64(f.bumps), nil
}

func dec(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatal(err)
	}
	return value
}

func defaultFees(t *testing.T) settings.FeeConfig {
	t.Helper()
	return settings.FeeConfig{
		CommissionPercent: dec(t, "12"),
		AcquiringPercent:  dec(t, "0"),
		DeliveryFixed:     dec(t, "0"),
		OtherFixed:        dec(t, "0"),
	}
}

func TestComputeProfitWithFIFOCost(t *testing.T) {
	orders := &fakeOrders{
		order: &kaspi.Order{
			ID: "o-1",
			OrderAttributes: kaspi.OrderAttributes{
				Code:                  "1001",
				State:                 "COMPLETED",
				TotalPrice:            10000,
				DeliveryCostForSeller: 500,
			},
		},
		entries: []kaspi.OrderEntry{
			{ProductCode: "SKU-1", ProductName: "Widget", Quantity: 2, TotalPrice: 6000},
			{ProductCode: "SKU-2", Quantity: 1, TotalPrice: 4000},
		},
	}
	costs := &fakeCosts{costs: map[string]string{"SKU-1": "1500", "SKU-2": "800"}}

	svc, err := NewService(newFakeRepo(), orders, nil, costs, &stubSettings{fees: defaultFees(t)}, nil, nil)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}

	result, err := svc.ComputeProfit(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if result.Gross.String() != "10000" {
		t.Fatalf("expected gross 10000, got %s", result.Gross)
	}
	if result.Commission.String() != "1200" {
		t.Fatalf("expected commission 1200, got %s", result.Commission)
	}
	if result.Delivery.String() != "500" {
		t.Fatalf("delivery must come from the order, got %s", result.Delivery)
	}
	if result.Cost.String() != "2300" || result.CostSource != CostSourceFIFO {
		t.Fatalf("unexpected cost %s (%s)", result.Cost, result.CostSource)
	}
	// 10000 - 1200 - 500 - 2300
	if result.Net.String() != "6000" {
		t.Fatalf("expected net 6000, got %s", result.Net)
	}
	if len(result.Entries) != 2 || result.Entries[0].Cost.String() != "1500" {
		t.Fatalf("unexpected entries %+v", result.Entries)
	}
}

func TestComputeProfitManualCostWins(t *testing.T) {
	orders := &fakeOrders{
		order: &kaspi.Order{
			ID:              "o-1",
			OrderAttributes: kaspi.OrderAttributes{Code: "1001", State: "COMPLETED", TotalPrice: 10000},
		},
		entries: []kaspi.OrderEntry{
			{ProductCode: "SKU-1", Quantity: 1, TotalPrice: 10000},
		},
	}
	repo := newFakeRepo()
	note := "supplier invoice"
	repo.costs["1001"] = models.ManualCost{OrderNumber: "1001", Cost: dec(t, "4200"), Note: &note}
	costs := &fakeCosts{costs: map[string]string{"SKU-1": "9999"}}

	svc, err := NewService(repo, orders, nil, costs, &stubSettings{fees: defaultFees(t)}, nil, nil)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}

	result, err := svc.ComputeProfit(context.Background(), "o-1")
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if result.Cost.String() != "4200" || result.CostSource != CostSourceManual {
		t.Fatalf("manual cost must win: %s (%s)", result.Cost, result.CostSource)
	}
	if result.CostNote == nil || *result.CostNote != "supplier invoice" {
		t.Fatalf("note must round-trip: %+v", result.CostNote)
	}
}

func TestComputeProfitOrderNotFound(t *testing.T) {
	svc, err := NewService(newFakeRepo(), &fakeOrders{}, nil, nil, &stubSettings{fees: defaultFees(t)}, nil, nil)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	if _, err := svc.ComputeProfit(context.Background(), "missing"); !apperrors.Is(err, apperrors.CodeOrderNotFound) {
		t.Fatalf("expected order-not-found, got %v", err)
	}
}

func TestSetManualCost(t *testing.T) {
	repo := newFakeRepo()
	bumper := &fakeBumper{}
	svc, err := NewService(repo, &fakeOrders{}, nil, nil, &stubSettings{fees: defaultFees(t)}, bumper, nil)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	ctx := context.Background()

	if err := svc.SetManualCost(ctx, "1001", dec(t, "4200"), nil); err != nil {
		t.Fatalf("set: %v", err)
	}
	if repo.costs["1001"].Cost.String() != "4200" {
		t.Fatalf("cost not persisted: %+v", repo.costs)
	}
	if bumper.bumps != 1 {
		t.Fatalf("expected cache invalidation, got %d bumps", bumper.bumps)
	}

	if err := svc.SetManualCost(ctx, "", dec(t, "1"), nil); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error for empty number, got %v", err)
	}
	if err := svc.SetManualCost(ctx, "1001", dec(t, "-1"), nil); !apperrors.Is(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error for negative cost, got %v", err)
	}
}

func TestRangeReport(t *testing.T) {
	summaries := &fakeSummaries{items: []analytics.OrderSummary{
		{ID: "o-1", Number: "1001", State: enums.OrderStateCompleted, BucketDate: "2025-08-01", AmountMinor: 1000000, City: "Almaty"},
		{ID: "o-2", Number: "1002", State: enums.OrderStateCompleted, BucketDate: "2025-08-01", AmountMinor: 500000},
	}}
	repo := newFakeRepo()
	repo.costs["1001"] = models.ManualCost{OrderNumber: "1001", Cost: dec(t, "4200")}

	svc, err := NewService(repo, &fakeOrders{}, summaries, nil, &stubSettings{fees: defaultFees(t)}, nil, nil)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}

	rule, err := businessday.NewRule("20:00", 3, "Asia/Almaty")
	if err != nil {
		t.Fatal(err)
	}
	start, _ := rule.ParseDate("2025-08-01")
	report, err := svc.RangeReport(context.Background(), analytics.Query{
		Start:     start,
		End:       start.Add(24 * time.Hour),
		DateField: enums.DateFieldCreation,
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	if len(report.Items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(report.Items))
	}
	// 10000 gross, 12% commission, 4200 manual cost.
	first := report.Items[0]
	if first.Gross.String() != "10000" || first.Commission.String() != "1200" || first.Cost.String() != "4200" {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Net.String() != "4600" {
		t.Fatalf("expected net 4600, got %s", first.Net)
	}
	if report.Totals.Gross.String() != "15000" {
		t.Fatalf("expected total gross 15000, got %s", report.Totals.Gross)
	}
	if report.Totals.Costs.String() != "4200" {
		t.Fatalf("expected total costs 4200, got %s", report.Totals.Costs)
	}
}
