package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aidosgk/kaspi-orders-backend/api/responses"
	"github.com/aidosgk/kaspi-orders-backend/api/validators"
	"github.com/aidosgk/kaspi-orders-backend/internal/businessday"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	pkgerrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

type businessDayPayload struct {
	Cutoff       *string `json:"cutoff,omitempty"`
	Timezone     *string `json:"timezone,omitempty"`
	LookbackDays *int    `json:"lookback_days,omitempty" validate:"omitempty,gte=0"`
	Mode         *string `json:"mode,omitempty" validate:"omitempty,oneof=cutoff shift"`
}

type feesPayload struct {
	CommissionPercent *string `json:"commission_percent,omitempty"`
	AcquiringPercent  *string `json:"acquiring_percent,omitempty"`
	DeliveryFixed     *string `json:"delivery_fixed,omitempty"`
	OtherFixed        *string `json:"other_fixed,omitempty"`
}

func businessDayView(rule businessday.Rule, mode businessday.Mode) map[string]any {
	return map[string]any{
		"cutoff":        formatCutoff(rule.Cutoff),
		"timezone":      rule.Location.String(),
		"lookback_days": rule.LookbackDays,
		"mode":          string(mode),
	}
}

func feesView(fees settings.FeeConfig) map[string]any {
	return map[string]any{
		"commission_percent": fees.CommissionPercent,
		"acquiring_percent":  fees.AcquiringPercent,
		"delivery_fixed":     fees.DeliveryFixed,
		"other_fixed":        fees.OtherFixed,
	}
}

func formatCutoff(offset time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(offset.Hours()), int(offset.Minutes())%60)
}

// GetBusinessDay returns the effective business-day rule.
func GetBusinessDay(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		rule, mode, err := svc.BusinessDayRule(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, businessDayView(rule, mode))
	}
}

// PutBusinessDay updates the business-day rule. Omitted fields keep their
// current values; invalid updates change nothing.
func PutBusinessDay(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload businessDayPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rule, mode, err := svc.SetBusinessDay(ctx, settings.BusinessDayInput{
			Cutoff:       payload.Cutoff,
			Timezone:     payload.Timezone,
			LookbackDays: payload.LookbackDays,
			Mode:         payload.Mode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, businessDayView(rule, mode))
	}
}

// GetFees returns the effective fee schedule.
func GetFees(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		fees, err := svc.Fees(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, feesView(fees))
	}
}

// PutFees updates the fee schedule. Omitted fields keep their current
// values; invalid updates change nothing.
func PutFees(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload feesPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		fees, err := svc.SetFees(ctx, settings.FeesInput{
			CommissionPercent: payload.CommissionPercent,
			AcquiringPercent:  payload.AcquiringPercent,
			DeliveryFixed:     payload.DeliveryFixed,
			OtherFixed:        payload.OtherFixed,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, feesView(fees))
	}
}
