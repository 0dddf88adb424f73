package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/internal/inventory"
	"github.com/aidosgk/kaspi-orders-backend/internal/kaspi"
	"github.com/aidosgk/kaspi-orders-backend/pkg/db/models"
)

type stubInventory struct {
	receipt *models.StockReceipt
	rows    []inventory.StockRow
	results []inventory.RecalcResult
	err     error

	lastReceive   *inventory.ReceiveInput
	lastSales     map[string]int
	lastThreshold int
	lastCode      string
}

func (s *stubInventory) Receive(ctx context.Context, in inventory.ReceiveInput) (*models.StockReceipt, error) {
	s.lastReceive = &in
	return s.receipt, s.err
}

func (s *stubInventory) Consume(ctx context.Context, productCode string, qty int) (decimal.Decimal, []inventory.Allocation, error) {
	return decimal.Zero, nil, s.err
}

func (s *stubInventory) EstimateCost(ctx context.Context, productCode string, qty int) (decimal.Decimal, error) {
	return decimal.Zero, s.err
}

func (s *stubInventory) Recalc(ctx context.Context, productCode string, qtySold int) (*inventory.RecalcResult, error) {
	return nil, s.err
}

func (s *stubInventory) RecalcAll(ctx context.Context, sales map[string]int) ([]inventory.RecalcResult, error) {
	s.lastSales = sales
	return s.results, s.err
}

func (s *stubInventory) StockSummary(ctx context.Context) ([]inventory.StockRow, error) {
	return s.rows, s.err
}

func (s *stubInventory) SetThreshold(ctx context.Context, productCode string, threshold int, preferredName *string) error {
	s.lastCode = productCode
	s.lastThreshold = threshold
	return s.err
}

type stubSummarySource struct {
	summaries []analytics.OrderSummary
}

func (s *stubSummarySource) ListOrderSummaries(ctx context.Context, q analytics.Query) ([]analytics.OrderSummary, error) {
	return s.summaries, nil
}

type stubEntrySource struct {
	entries map[string][]kaspi.OrderEntry
}

func (s *stubEntrySource) OrderEntries(ctx context.Context, orderID string) ([]kaspi.OrderEntry, error) {
	return s.entries[orderID], nil
}

func inventoryRouter(svc inventory.Service, sales *inventory.SalesCounter, settingsSvc *stubSettings) http.Handler {
	r := chi.NewRouter()
	r.Post("/inventory/receipts", ReceiveStock(svc, nil))
	r.Get("/inventory/stock", StockSummary(svc, nil))
	r.Put("/inventory/thresholds/{code}", SetStockThreshold(svc, nil))
	r.Post("/inventory/recalc", RecalcStock(svc, sales, settingsSvc, nil))
	return r
}

func TestReceiveStockSuccess(t *testing.T) {
	svc := &stubInventory{receipt: &models.StockReceipt{
		ID:           uuid.New(),
		ProductCode:  "SKU-1",
		UnitCost:     decimal.NewFromInt(100),
		QtyReceived:  10,
		QtyRemaining: 10,
	}}
	router := inventoryRouter(svc, nil, nil)

	body := strings.NewReader(`{"product_code":"SKU-1","unit_cost":"100","qty":10,"received_at":"2025-08-01T10:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/inventory/receipts", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastReceive == nil || svc.lastReceive.ProductCode != "SKU-1" {
		t.Fatalf("unexpected receive input %+v", svc.lastReceive)
	}
	if !svc.lastReceive.UnitCost.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected unit cost 100 got %s", svc.lastReceive.UnitCost)
	}
	if want := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC); !svc.lastReceive.ReceivedAt.Equal(want) {
		t.Fatalf("expected received_at %v got %v", want, svc.lastReceive.ReceivedAt)
	}
}

func TestReceiveStockRejectsMissingQty(t *testing.T) {
	svc := &stubInventory{}
	router := inventoryRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/inventory/receipts", strings.NewReader(`{"product_code":"SKU-1","unit_cost":"100"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if svc.lastReceive != nil {
		t.Fatal("service must not be called on invalid input")
	}
}

func TestSetStockThreshold(t *testing.T) {
	svc := &stubInventory{}
	router := inventoryRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPut, "/inventory/thresholds/SKU-1", strings.NewReader(`{"threshold":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastCode != "SKU-1" || svc.lastThreshold != 5 {
		t.Fatalf("unexpected threshold call %s=%d", svc.lastCode, svc.lastThreshold)
	}
}

func TestStockSummaryEndpoint(t *testing.T) {
	svc := &stubInventory{rows: []inventory.StockRow{
		{ProductCode: "SKU-1", QtyLeft: 2, Threshold: 5, Low: true},
	}}
	router := inventoryRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/inventory/stock", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var data struct {
		Items []inventory.StockRow `json:"items"`
	}
	decodeData(t, rec, &data)
	if len(data.Items) != 1 || !data.Items[0].Low {
		t.Fatalf("unexpected rows %+v", data.Items)
	}
}

func TestRecalcStockWithExplicitSales(t *testing.T) {
	svc := &stubInventory{results: []inventory.RecalcResult{{ProductCode: "SKU-1", QtySold: 5, Consumed: 5}}}
	router := inventoryRouter(svc, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/inventory/recalc", strings.NewReader(`{"sales":{"SKU-1":5}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSales["SKU-1"] != 5 {
		t.Fatalf("expected sales map to pass through, got %v", svc.lastSales)
	}
}

func TestRecalcStockDerivesSalesFromUpstream(t *testing.T) {
	svc := &stubInventory{}
	counter, err := inventory.NewSalesCounter(
		&stubSummarySource{summaries: []analytics.OrderSummary{{ID: "order-1"}, {ID: "order-2"}}},
		&stubEntrySource{entries: map[string][]kaspi.OrderEntry{
			"order-1": {{ProductCode: "SKU-1", Quantity: 2}},
			"order-2": {{ProductCode: "SKU-1", Quantity: 3}, {ProductCode: "SKU-2", Quantity: 1}},
		}},
		nil,
	)
	if err != nil {
		t.Fatalf("build sales counter: %v", err)
	}
	router := inventoryRouter(svc, counter, newStubSettings(t))

	req := httptest.NewRequest(http.MethodPost, "/inventory/recalc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSales["SKU-1"] != 5 || svc.lastSales["SKU-2"] != 1 {
		t.Fatalf("unexpected derived sales %v", svc.lastSales)
	}
}
