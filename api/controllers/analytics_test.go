package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
)

type stubAnalytics struct {
	result    *analytics.Result
	summaries []analytics.OrderSummary
	err       error
	lastQuery analytics.Query
}

func (s *stubAnalytics) FetchAggregate(ctx context.Context, q analytics.Query) (*analytics.Result, error) {
	s.lastQuery = q
	return s.result, s.err
}

func (s *stubAnalytics) ListOrderSummaries(ctx context.Context, q analytics.Query) ([]analytics.OrderSummary, error) {
	s.lastQuery = q
	return s.summaries, s.err
}

func TestAnalyticsAggregateSuccess(t *testing.T) {
	svc := &stubAnalytics{result: &analytics.Result{Currency: "KZT"}}
	handler := AnalyticsAggregate(svc, newStubSettings(t), nil)

	url := "/api/v1/analytics/aggregate?start=2025-08-01&end=2025-08-07&states=COMPLETED,ARCHIVE&with_prev=true"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	q := svc.lastQuery
	loc, _ := time.LoadLocation("Asia/Almaty")
	if want := time.Date(2025, 8, 1, 0, 0, 0, 0, loc); !q.Start.Equal(want) {
		t.Fatalf("expected start %v got %v", want, q.Start)
	}
	if len(q.States) != 2 || q.States[0] != enums.OrderStateCompleted {
		t.Fatalf("unexpected states %v", q.States)
	}
	if !q.ExcludeCancelled {
		t.Fatal("expected exclude_cancelled to default to true")
	}
	if !q.WithPrev {
		t.Fatal("expected with_prev to be set")
	}
}

func TestAnalyticsAggregateMissingStart(t *testing.T) {
	handler := AnalyticsAggregate(&stubAnalytics{}, newStubSettings(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/aggregate?end=2025-08-07", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR got %s", code)
	}
}

func TestAnalyticsAggregateInvertedRange(t *testing.T) {
	handler := AnalyticsAggregate(&stubAnalytics{}, newStubSettings(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/aggregate?start=2025-08-07&end=2025-08-01", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_RANGE" {
		t.Fatalf("expected INVALID_RANGE got %s", code)
	}
}

func TestAnalyticsAggregateUnknownState(t *testing.T) {
	handler := AnalyticsAggregate(&stubAnalytics{}, newStubSettings(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/aggregate?start=2025-08-01&end=2025-08-07&states=BOGUS", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAnalyticsOrdersAppliesLimit(t *testing.T) {
	svc := &stubAnalytics{}
	for i := 0; i < 5; i++ {
		svc.summaries = append(svc.summaries, analytics.OrderSummary{ID: fmt.Sprintf("order-%d", i)})
	}
	handler := AnalyticsOrders(svc, newStubSettings(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/orders?start=2025-08-01&end=2025-08-07&limit=2", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	var data struct {
		Orders []analytics.OrderSummary `json:"orders"`
		Total  int                      `json:"total"`
	}
	decodeData(t, rec, &data)
	if len(data.Orders) != 2 {
		t.Fatalf("expected 2 orders got %d", len(data.Orders))
	}
	if data.Total != 5 {
		t.Fatalf("expected total 5 got %d", data.Total)
	}
}
