package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aidosgk/kaspi-orders-backend/api/responses"
	"github.com/aidosgk/kaspi-orders-backend/api/validators"
	"github.com/aidosgk/kaspi-orders-backend/internal/inventory"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	pkgerrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

const defaultRecalcWindowDays = 30

type receiveStockPayload struct {
	ProductCode string  `json:"product_code" validate:"required"`
	ProductName *string `json:"product_name,omitempty"`
	ReceivedAt  *string `json:"received_at,omitempty"`
	UnitCost    string  `json:"unit_cost" validate:"required"`
	Qty         int     `json:"qty" validate:"required,gt=0"`
	Note        *string `json:"note,omitempty"`
}

type thresholdPayload struct {
	Threshold   int     `json:"threshold" validate:"gte=0"`
	ProductName *string `json:"product_name,omitempty"`
}

type recalcPayload struct {
	WindowDays int            `json:"window_days,omitempty" validate:"omitempty,gt=0"`
	Sales      map[string]int `json:"sales,omitempty"`
}

// ReceiveStock records an inbound delivery as a new FIFO cost layer.
func ReceiveStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload receiveStockPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		unitCost, err := decimal.NewFromString(payload.UnitCost)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unit_cost must be a decimal number"))
			return
		}

		receivedAt := time.Now()
		if payload.ReceivedAt != nil {
			receivedAt, err = time.Parse(time.RFC3339, *payload.ReceivedAt)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "received_at must be RFC3339"))
				return
			}
		}

		receipt, err := svc.Receive(ctx, inventory.ReceiveInput{
			ProductCode: payload.ProductCode,
			ProductName: payload.ProductName,
			ReceivedAt:  receivedAt,
			UnitCost:    unitCost,
			Qty:         payload.Qty,
			Note:        payload.Note,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, receipt)
	}
}

// StockSummary reports current stock positions, low-stock first.
func StockSummary(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		rows, err := svc.StockSummary(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

// SetStockThreshold stores the low-stock alert level for a product.
func SetStockThreshold(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		productCode := strings.TrimSpace(chi.URLParam(r, "code"))
		if productCode == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product code is required"))
			return
		}

		var payload thresholdPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithProductCode(ctx, productCode)
		}

		if err := svc.SetThreshold(ctx, productCode, payload.Threshold, payload.ProductName); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"product_code": productCode,
			"threshold":    payload.Threshold,
		})
	}
}

// RecalcStock rebuilds FIFO remaining quantities. The sales signal comes
// from the request body when given, otherwise it is derived from the
// upstream order feed over the trailing window.
func RecalcStock(svc inventory.Service, sales *inventory.SalesCounter, settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		payload := recalcPayload{WindowDays: defaultRecalcWindowDays}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if payload.WindowDays == 0 {
				payload.WindowDays = defaultRecalcWindowDays
			}
		}

		salesMap := payload.Sales
		if salesMap == nil {
			if sales == nil || settingsSvc == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales counter unavailable"))
				return
			}
			rule, _, err := settingsSvc.BusinessDayRule(ctx)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			now := time.Now().In(rule.Location)
			end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, rule.Location)
			start := end.AddDate(0, 0, -(payload.WindowDays - 1))
			salesMap, err = sales.CountSales(ctx, start, end)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		results, err := svc.RecalcAll(ctx, salesMap)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"results": results})
	}
}
