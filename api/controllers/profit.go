package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aidosgk/kaspi-orders-backend/api/responses"
	"github.com/aidosgk/kaspi-orders-backend/api/validators"
	"github.com/aidosgk/kaspi-orders-backend/internal/profit"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	pkgerrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

type manualCostPayload struct {
	Cost string  `json:"cost" validate:"required"`
	Note *string `json:"note,omitempty"`
}

// OrderProfit computes the profit decomposition of one order.
func OrderProfit(svc profit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profit service unavailable"))
			return
		}

		orderID := strings.TrimSpace(chi.URLParam(r, "id"))
		if orderID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id is required"))
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		result, err := svc.ComputeProfit(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// SetManualCost upserts the operator-entered cost for an order number.
// Manual costs win over FIFO estimates in profit calculations.
func SetManualCost(svc profit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profit service unavailable"))
			return
		}

		orderNumber := strings.TrimSpace(chi.URLParam(r, "number"))
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order number is required"))
			return
		}

		var payload manualCostPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		cost, err := decimal.NewFromString(payload.Cost)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cost must be a decimal number"))
			return
		}

		if err := svc.SetManualCost(ctx, orderNumber, cost, payload.Note); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"order_number": orderNumber,
			"cost":         cost,
			"note":         payload.Note,
		})
	}
}

// ProfitReport builds the per-order profit report over a date range.
func ProfitReport(svc profit.Service, settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profit service unavailable"))
			return
		}

		query, err := parseAnalyticsQuery(r, settingsSvc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		report, err := svc.RangeReport(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
