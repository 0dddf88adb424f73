package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/aidosgk/kaspi-orders-backend/internal/businessday"
	"github.com/aidosgk/kaspi-orders-backend/internal/kaspi"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

// Query is a resolved analytics request. Start and End are business-day
// dates at midnight in the store's timezone.
type Query struct {
	Start            time.Time
	End              time.Time
	DateField        enums.DateField
	States           []enums.OrderState
	ExcludeCancelled bool
	WithPrev         bool
}

// Range echoes the requested period back to the caller.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Result is the full analytics payload.
type Result struct {
	Aggregate
	Currency  string      `json:"currency"`
	DateField string      `json:"date_field"`
	Range     Range       `json:"range"`
	PrevDays  []DayBucket `json:"prev_days,omitempty"`
}

// Upstream abstracts the marketplace order feed.
type Upstream interface {
	FetchOrders(ctx context.Context, params kaspi.FetchParams) ([]kaspi.Order, error)
}

// Service computes order analytics over a business-day range.
type Service interface {
	FetchAggregate(ctx context.Context, q Query) (*Result, error)
	ListOrderSummaries(ctx context.Context, q Query) ([]OrderSummary, error)
}

type service struct {
	upstream      Upstream
	settings      settings.Service
	cache         Cache
	currency      string
	amountDivisor float64
	logg          *logger.Logger
}

// Options configures the analytics service.
type Options struct {
	Currency      string
	AmountDivisor float64
}

// NewService builds the analytics service.
func NewService(upstream Upstream, settingsSvc settings.Service, cache Cache, opts Options, logg *logger.Logger) (Service, error) {
	if upstream == nil {
		return nil, errors.New("upstream client is required")
	}
	if settingsSvc == nil {
		return nil, errors.New("settings service is required")
	}
	currency := opts.Currency
	if currency == "" {
		currency = "KZT"
	}
	divisor := opts.AmountDivisor
	if divisor <= 0 {
		divisor = 1
	}
	return &service{
		upstream:      upstream,
		settings:      settingsSvc,
		cache:         cache,
		currency:      currency,
		amountDivisor: divisor,
		logg:          logg,
	}, nil
}

func (s *service) FetchAggregate(ctx context.Context, q Query) (*Result, error) {
	rule, mode, err := s.settings.BusinessDayRule(ctx)
	if err != nil {
		return nil, err
	}

	signature := Signature(q, rule, mode)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, signature); ok {
			if s.logg != nil {
				s.logg.Debug(s.logg.WithField(ctx, "signature", signature), "aggregate served from cache")
			}
			return cached, nil
		}
	}

	items, err := s.collect(ctx, q, rule, mode)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Aggregate: aggregate(items),
		Currency:  s.currency,
		DateField: q.DateField.String(),
		Range: Range{
			Start: q.Start.Format(businessday.DateLayout),
			End:   q.End.Format(businessday.DateLayout),
		},
	}

	if q.WithPrev {
		prev := q
		span := int(q.End.Sub(q.Start).Hours()/24) + 1
		prev.Start = q.Start.AddDate(0, 0, -span)
		prev.End = q.Start.AddDate(0, 0, -1)
		prev.WithPrev = false

		prevItems, err := s.collect(ctx, prev, rule, mode)
		if err != nil {
			return nil, err
		}
		result.PrevDays = aggregate(prevItems).Days
	}

	if s.cache != nil {
		s.cache.Set(ctx, signature, result)
	}
	return result, nil
}

func (s *service) ListOrderSummaries(ctx context.Context, q Query) ([]OrderSummary, error) {
	rule, mode, err := s.settings.BusinessDayRule(ctx)
	if err != nil {
		return nil, err
	}
	return s.collect(ctx, q, rule, mode)
}

// collect fetches the upstream window covering the requested business days
// and keeps only orders whose bucket lands inside the range.
func (s *service) collect(ctx context.Context, q Query, rule businessday.Rule, mode businessday.Mode) ([]OrderSummary, error) {
	from, to, err := rule.QueryWindow(q.Start, q.End, mode)
	if err != nil {
		return nil, err
	}

	orders, err := s.upstream.FetchOrders(ctx, kaspi.FetchParams{
		From:      from,
		To:        to,
		DateField: q.DateField,
	})
	if err != nil {
		return nil, err
	}

	include := make(map[enums.OrderState]struct{}, len(q.States))
	for _, state := range q.States {
		include[state] = struct{}{}
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		state := order.OrderState()
		if q.ExcludeCancelled && state.IsCancelledLike() {
			continue
		}
		if len(include) > 0 {
			if _, ok := include[state]; !ok {
				continue
			}
		}

		occurred, ok := order.TimestampFor(q.DateField)
		if !ok {
			continue
		}
		bucket := rule.Bucket(occurred, mode)
		if bucket.Before(q.Start) || bucket.After(q.End) {
			continue
		}

		number := order.Code
		if number == "" {
			number = order.ID
		}
		summaries = append(summaries, OrderSummary{
			ID:          order.ID,
			Number:      number,
			State:       state,
			BucketDate:  bucket.Format(businessday.DateLayout),
			OccurredAt:  occurred,
			AmountMinor: order.AmountMinor(s.amountDivisor),
			City:        order.CityName(),
		})
	}
	return summaries, nil
}
