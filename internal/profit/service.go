package profit

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/internal/kaspi"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	"github.com/aidosgk/kaspi-orders-backend/pkg/db/models"
	apperrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

var oneHundred = decimal.NewFromInt(100)

// Cost sources reported back to the caller.
const (
	CostSourceManual = "manual"
	CostSourceFIFO   = "fifo"
	CostSourceNone   = "none"
)

// EntryProfit is the profit decomposition of one line item.
type EntryProfit struct {
	ProductCode string          `json:"product_code,omitempty"`
	ProductName string          `json:"product_name,omitempty"`
	Category    string          `json:"category,omitempty"`
	Qty         int             `json:"qty"`
	Gross       decimal.Decimal `json:"gross"`
	Cost        decimal.Decimal `json:"cost"`
}

// OrderProfit is the full profit decomposition of one order.
type OrderProfit struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	State       string          `json:"state"`
	Gross       decimal.Decimal `json:"gross"`
	Commission  decimal.Decimal `json:"commission"`
	Acquiring   decimal.Decimal `json:"acquiring"`
	Delivery    decimal.Decimal `json:"delivery"`
	Other       decimal.Decimal `json:"other"`
	Cost        decimal.Decimal `json:"cost"`
	CostSource  string          `json:"cost_source"`
	CostNote    *string         `json:"cost_note,omitempty"`
	Net         decimal.Decimal `json:"net"`
	Entries     []EntryProfit   `json:"entries,omitempty"`
}

// ReportRow is one order in a range profit report.
type ReportRow struct {
	OrderID     string          `json:"id"`
	OrderNumber string          `json:"number"`
	State       string          `json:"state"`
	Date        string          `json:"date"`
	City        string          `json:"city,omitempty"`
	Gross       decimal.Decimal `json:"gross"`
	Commission  decimal.Decimal `json:"commission"`
	Acquiring   decimal.Decimal `json:"acquiring"`
	Delivery    decimal.Decimal `json:"delivery_fixed"`
	Other       decimal.Decimal `json:"other_fixed"`
	Cost        decimal.Decimal `json:"cost"`
	Net         decimal.Decimal `json:"net"`
}

// ReportTotals sums a range report.
type ReportTotals struct {
	Gross      decimal.Decimal `json:"gross"`
	Commission decimal.Decimal `json:"commission"`
	Acquiring  decimal.Decimal `json:"acquiring"`
	Delivery   decimal.Decimal `json:"delivery_fixed"`
	Other      decimal.Decimal `json:"other_fixed"`
	Costs      decimal.Decimal `json:"costs"`
	Net        decimal.Decimal `json:"net"`
}

// Report is the range profit payload.
type Report struct {
	Items  []ReportRow        `json:"items"`
	Totals ReportTotals       `json:"totals"`
	Fees   settings.FeeConfig `json:"-"`
}

// Orders abstracts the upstream order lookups profit needs.
type Orders interface {
	GetOrder(ctx context.Context, orderID string) (*kaspi.Order, error)
	OrderEntries(ctx context.Context, orderID string) ([]kaspi.OrderEntry, error)
}

// Summaries abstracts the analytics order feed for range reports.
type Summaries interface {
	ListOrderSummaries(ctx context.Context, q analytics.Query) ([]analytics.OrderSummary, error)
}

// Costs abstracts the FIFO cost estimator.
type Costs interface {
	EstimateCost(ctx context.Context, productCode string, qty int) (decimal.Decimal, error)
}

// CacheInvalidator drops cached aggregates after manual cost changes.
type CacheInvalidator interface {
	BumpGeneration(ctx context.Context) (int64, error)
}

// Service computes per-order and per-range profit.
type Service interface {
	ComputeProfit(ctx context.Context, orderID string) (*OrderProfit, error)
	SetManualCost(ctx context.Context, orderNumber string, cost decimal.Decimal, note *string) error
	RangeReport(ctx context.Context, q analytics.Query) (*Report, error)
}

type service struct {
	repo      Repository
	orders    Orders
	summaries Summaries
	costs     Costs
	settings  settings.Service
	cache     CacheInvalidator
	logg      *logger.Logger
}

// NewService builds the profit service.
func NewService(repo Repository, orders Orders, summaries Summaries, costs Costs, settingsSvc settings.Service, cache CacheInvalidator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("profit repository is required")
	}
	if orders == nil {
		return nil, errors.New("orders client is required")
	}
	if settingsSvc == nil {
		return nil, errors.New("settings service is required")
	}
	return &service{
		repo:      repo,
		orders:    orders,
		summaries: summaries,
		costs:     costs,
		settings:  settingsSvc,
		cache:     cache,
		logg:      logg,
	}, nil
}

// ComputeProfit fetches the order and its line items upstream and breaks the
// total down into fees and cost of goods. A manual cost override beats the
// FIFO estimate.
func (s *service) ComputeProfit(ctx context.Context, orderID string) (*OrderProfit, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	entries, err := s.orders.OrderEntries(ctx, orderID)
	if err != nil {
		return nil, err
	}
	fees, err := s.settings.Fees(ctx)
	if err != nil {
		return nil, err
	}

	number := order.Code
	if number == "" {
		number = order.ID
	}

	result := &OrderProfit{
		OrderID:     order.ID,
		OrderNumber: number,
		State:       order.OrderState().String(),
		CostSource:  CostSourceNone,
	}

	var gross decimal.Decimal
	for _, entry := range entries {
		lineGross := decimal.NewFromFloat(entry.TotalPrice)
		gross = gross.Add(lineGross)
		result.Entries = append(result.Entries, EntryProfit{
			ProductCode: entry.ProductCode,
			ProductName: entry.ProductName,
			Category:    entry.Category,
			Qty:         entry.Quantity,
			Gross:       lineGross,
		})
	}
	if len(entries) == 0 {
		gross = decimal.NewFromFloat(order.TotalPrice)
	}
	result.Gross = gross

	result.Commission = gross.Mul(fees.CommissionPercent).Div(oneHundred).Round(2)
	result.Acquiring = gross.Mul(fees.AcquiringPercent).Div(oneHundred).Round(2)
	result.Delivery = deliveryFee(order, fees)
	result.Other = fees.OtherFixed

	manual, found, err := s.repo.ManualCost(ctx, number)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading manual cost")
	}
	switch {
	case found:
		result.Cost = manual.Cost
		result.CostSource = CostSourceManual
		result.CostNote = manual.Note
	case s.costs != nil:
		var total decimal.Decimal
		priced := false
		for i, entry := range entries {
			if entry.ProductCode == "" {
				continue
			}
			cost, err := s.costs.EstimateCost(ctx, entry.ProductCode, entry.Quantity)
			if err != nil {
				return nil, err
			}
			result.Entries[i].Cost = cost
			total = total.Add(cost)
			if cost.IsPositive() {
				priced = true
			}
		}
		result.Cost = total
		if priced {
			result.CostSource = CostSourceFIFO
		}
	}

	result.Net = gross.
		Sub(result.Commission).
		Sub(result.Acquiring).
		Sub(result.Delivery).
		Sub(result.Other).
		Sub(result.Cost)
	return result, nil
}

// deliveryFee prefers what the marketplace charged the seller, falling back
// to the configured fixed fee.
func deliveryFee(order *kaspi.Order, fees settings.FeeConfig) decimal.Decimal {
	if order.DeliveryCostForSeller > 0 {
		return decimal.NewFromFloat(order.DeliveryCostForSeller)
	}
	if order.DeliveryCost > 0 {
		return decimal.NewFromFloat(order.DeliveryCost)
	}
	return fees.DeliveryFixed
}

func (s *service) SetManualCost(ctx context.Context, orderNumber string, cost decimal.Decimal, note *string) error {
	if orderNumber == "" {
		return apperrors.New(apperrors.CodeValidation, "order number is required")
	}
	if cost.IsNegative() {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("cost must not be negative, got %s", cost))
	}

	err := s.repo.UpsertManualCost(ctx, &models.ManualCost{
		OrderNumber: orderNumber,
		Cost:        cost,
		Note:        note,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "saving manual cost")
	}

	if s.cache != nil {
		if _, err := s.cache.BumpGeneration(ctx); err != nil && s.logg != nil {
			s.logg.Error(ctx, "invalidating aggregate cache after manual cost change", err)
		}
	}
	return nil
}

// RangeReport decomposes every order in the range using the fee schedule and
// any manual cost overrides. One upstream fetch covers the whole range.
func (s *service) RangeReport(ctx context.Context, q analytics.Query) (*Report, error) {
	if s.summaries == nil {
		return nil, errors.New("summaries feed is not configured")
	}

	items, err := s.summaries.ListOrderSummaries(ctx, q)
	if err != nil {
		return nil, err
	}
	fees, err := s.settings.Fees(ctx)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(items))
	for _, item := range items {
		numbers = append(numbers, item.Number)
	}
	costs, err := s.repo.ManualCosts(ctx, numbers)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading manual costs")
	}

	report := &Report{Items: make([]ReportRow, 0, len(items)), Fees: fees}
	for _, item := range items {
		gross := decimal.New(item.AmountMinor, -2)
		commission := gross.Mul(fees.CommissionPercent).Div(oneHundred).Round(2)
		acquiring := gross.Mul(fees.AcquiringPercent).Div(oneHundred).Round(2)

		var cost decimal.Decimal
		if manual, ok := costs[item.Number]; ok {
			cost = manual.Cost
		}

		net := gross.
			Sub(commission).
			Sub(acquiring).
			Sub(fees.DeliveryFixed).
			Sub(fees.OtherFixed).
			Sub(cost)

		report.Items = append(report.Items, ReportRow{
			OrderID:     item.ID,
			OrderNumber: item.Number,
			State:       item.State.String(),
			Date:        item.BucketDate,
			City:        item.City,
			Gross:       gross,
			Commission:  commission,
			Acquiring:   acquiring,
			Delivery:    fees.DeliveryFixed,
			Other:       fees.OtherFixed,
			Cost:        cost,
			Net:         net,
		})

		report.Totals.Gross = report.Totals.Gross.Add(gross)
		report.Totals.Commission = report.Totals.Commission.Add(commission)
		report.Totals.Acquiring = report.Totals.Acquiring.Add(acquiring)
		report.Totals.Delivery = report.Totals.Delivery.Add(fees.DeliveryFixed)
		report.Totals.Other = report.Totals.Other.Add(fees.OtherFixed)
		report.Totals.Costs = report.Totals.Costs.Add(cost)
		report.Totals.Net = report.Totals.Net.Add(net)
	}
	return report, nil
}
