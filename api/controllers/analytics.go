package controllers

import (
	"net/http"

	"github.com/aidosgk/kaspi-orders-backend/api/responses"
	"github.com/aidosgk/kaspi-orders-backend/api/validators"
	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	pkgerrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

const (
	defaultSummaryLimit = 100
	maxSummaryLimit     = 500
)

// AnalyticsAggregate serves the business-day aggregate for a date range.
func AnalyticsAggregate(svc analytics.Service, settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		query, err := parseAnalyticsQuery(r, settingsSvc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.FetchAggregate(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AnalyticsOrders lists the individual orders behind an aggregate.
func AnalyticsOrders(svc analytics.Service, settingsSvc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		query, err := parseAnalyticsQuery(r, settingsSvc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", defaultSummaryLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if limit <= 0 || limit > maxSummaryLimit {
			limit = maxSummaryLimit
		}

		summaries, err := svc.ListOrderSummaries(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		total := len(summaries)
		if len(summaries) > limit {
			summaries = summaries[:limit]
		}

		responses.WriteSuccess(w, map[string]any{
			"orders": summaries,
			"total":  total,
		})
	}
}

// parseAnalyticsQuery resolves start/end in the store's timezone plus the
// shared filter parameters.
func parseAnalyticsQuery(r *http.Request, settingsSvc settings.Service) (analytics.Query, error) {
	var query analytics.Query
	if settingsSvc == nil {
		return query, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable")
	}

	rule, _, err := settingsSvc.BusinessDayRule(r.Context())
	if err != nil {
		return query, err
	}

	startRaw, err := validators.RequireQuery(r, "start")
	if err != nil {
		return query, err
	}
	endRaw, err := validators.RequireQuery(r, "end")
	if err != nil {
		return query, err
	}

	start, err := rule.ParseDate(startRaw)
	if err != nil {
		return query, err
	}
	end, err := rule.ParseDate(endRaw)
	if err != nil {
		return query, err
	}
	if end.Before(start) {
		return query, pkgerrors.New(pkgerrors.CodeInvalidRange, "end must not be before start")
	}

	dateField, err := validators.ParseQueryDateField(r, "date_field")
	if err != nil {
		return query, err
	}
	states, err := validators.ParseQueryStates(r, "states")
	if err != nil {
		return query, err
	}
	excludeCancelled, err := validators.ParseQueryBool(r, "exclude_cancelled", true)
	if err != nil {
		return query, err
	}
	withPrev, err := validators.ParseQueryBool(r, "with_prev", false)
	if err != nil {
		return query, err
	}

	return analytics.Query{
		Start:            start,
		End:              end,
		DateField:        dateField,
		States:           states,
		ExcludeCancelled: excludeCancelled,
		WithPrev:         withPrev,
	}, nil
}
