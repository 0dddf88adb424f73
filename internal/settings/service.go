package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/aidosgk/kaspi-orders-backend/internal/businessday"
	"github.com/aidosgk/kaspi-orders-backend/pkg/config"
	apperrors "github.com/aidosgk/kaspi-orders-backend/pkg/errors"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
)

// Setting keys stored in store_settings.
const (
	KeyCutoff       = "business_day_cutoff"
	KeyTimezone     = "timezone"
	KeyLookbackDays = "lookback_days"
	KeyMode         = "business_day_mode"

	KeyCommissionPercent = "commission_percent"
	KeyAcquiringPercent  = "acquiring_percent"
	KeyDeliveryFixed     = "delivery_fixed"
	KeyOtherFixed        = "other_fixed"
)

var oneHundred = decimal.NewFromInt(100)

// FeeConfig is the resolved fee schedule applied to profit calculations.
type FeeConfig struct {
	CommissionPercent decimal.Decimal
	AcquiringPercent  decimal.Decimal
	DeliveryFixed     decimal.Decimal
	OtherFixed        decimal.Decimal
}

// BusinessDayInput carries a business-day rule update. Nil fields keep the
// current value.
type BusinessDayInput struct {
	Cutoff       *string
	Timezone     *string
	LookbackDays *int
	Mode         *string
}

// FeesInput carries a fee schedule update. Values are decimal strings.
type FeesInput struct {
	CommissionPercent *string
	AcquiringPercent  *string
	DeliveryFixed     *string
	OtherFixed        *string
}

// CacheInvalidator drops derived aggregates when settings change.
type CacheInvalidator interface {
	BumpGeneration(ctx context.Context) (int64, error)
}

// Service resolves and updates store-level settings.
type Service interface {
	BusinessDayRule(ctx context.Context) (businessday.Rule, businessday.Mode, error)
	SetBusinessDay(ctx context.Context, in BusinessDayInput) (businessday.Rule, businessday.Mode, error)
	Fees(ctx context.Context) (FeeConfig, error)
	SetFees(ctx context.Context, in FeesInput) (FeeConfig, error)
	RawValues(ctx context.Context) (map[string]string, error)
}

type service struct {
	repo        Repository
	cache       CacheInvalidator
	dayDefaults config.BusinessDayConfig
	feeDefaults config.FeesConfig
	logg        *logger.Logger
}

// NewService builds the settings service.
func NewService(repo Repository, cache CacheInvalidator, cfg *config.Config, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("settings repository is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return &service{
		repo:        repo,
		cache:       cache,
		dayDefaults: cfg.BusinessDay,
		feeDefaults: cfg.Fees,
		logg:        logg,
	}, nil
}

func (s *service) BusinessDayRule(ctx context.Context) (businessday.Rule, businessday.Mode, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return businessday.Rule{}, "", apperrors.Wrap(apperrors.CodeDependency, err, "loading business day settings")
	}
	return s.ruleFromValues(values)
}

func (s *service) ruleFromValues(values map[string]string) (businessday.Rule, businessday.Mode, error) {
	cutoff := valueOr(values, KeyCutoff, s.dayDefaults.Cutoff)
	timezone := valueOr(values, KeyTimezone, s.dayDefaults.Timezone)
	lookback := s.dayDefaults.LookbackDays
	if raw, ok := values[KeyLookbackDays]; ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return businessday.Rule{}, "", apperrors.New(apperrors.CodeInternal,
				fmt.Sprintf("stored lookback_days %q is not a number", raw))
		}
		lookback = parsed
	}

	rule, err := businessday.NewRule(cutoff, lookback, timezone)
	if err != nil {
		return businessday.Rule{}, "", err
	}

	mode := businessday.ModeCutoff
	if raw, ok := values[KeyMode]; ok {
		parsed, err := parseMode(raw)
		if err != nil {
			return businessday.Rule{}, "", err
		}
		mode = parsed
	}
	return rule, mode, nil
}

func (s *service) SetBusinessDay(ctx context.Context, in BusinessDayInput) (businessday.Rule, businessday.Mode, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return businessday.Rule{}, "", apperrors.Wrap(apperrors.CodeDependency, err, "loading business day settings")
	}

	updates := map[string]string{}
	if in.Cutoff != nil {
		updates[KeyCutoff] = *in.Cutoff
	}
	if in.Timezone != nil {
		updates[KeyTimezone] = *in.Timezone
	}
	if in.LookbackDays != nil {
		updates[KeyLookbackDays] = strconv.Itoa(*in.LookbackDays)
	}
	if in.Mode != nil {
		mode, err := parseMode(*in.Mode)
		if err != nil {
			return businessday.Rule{}, "", err
		}
		updates[KeyMode] = string(mode)
	}
	for key, value := range updates {
		values[key] = value
	}

	// Validate the merged rule before persisting anything.
	rule, mode, err := s.ruleFromValues(values)
	if err != nil {
		return businessday.Rule{}, "", err
	}

	for key, value := range updates {
		if err := s.repo.Set(ctx, key, value); err != nil {
			return businessday.Rule{}, "", apperrors.Wrap(apperrors.CodeDependency, err, "saving business day settings")
		}
	}
	s.invalidate(ctx)
	return rule, mode, nil
}

func (s *service) Fees(ctx context.Context) (FeeConfig, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return FeeConfig{}, apperrors.Wrap(apperrors.CodeDependency, err, "loading fee settings")
	}
	return s.feesFromValues(values)
}

func (s *service) feesFromValues(values map[string]string) (FeeConfig, error) {
	commission, err := parsePercent(valueOr(values, KeyCommissionPercent, s.feeDefaults.CommissionPercent), "commission")
	if err != nil {
		return FeeConfig{}, err
	}
	acquiring, err := parsePercent(valueOr(values, KeyAcquiringPercent, s.feeDefaults.AcquiringPercent), "acquiring")
	if err != nil {
		return FeeConfig{}, err
	}
	delivery, err := parseFixed(valueOr(values, KeyDeliveryFixed, s.feeDefaults.DeliveryFixed), "delivery")
	if err != nil {
		return FeeConfig{}, err
	}
	other, err := parseFixed(valueOr(values, KeyOtherFixed, s.feeDefaults.OtherFixed), "other")
	if err != nil {
		return FeeConfig{}, err
	}
	return FeeConfig{
		CommissionPercent: commission,
		AcquiringPercent:  acquiring,
		DeliveryFixed:     delivery,
		OtherFixed:        other,
	}, nil
}

func (s *service) SetFees(ctx context.Context, in FeesInput) (FeeConfig, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return FeeConfig{}, apperrors.Wrap(apperrors.CodeDependency, err, "loading fee settings")
	}

	updates := map[string]string{}
	if in.CommissionPercent != nil {
		updates[KeyCommissionPercent] = *in.CommissionPercent
	}
	if in.AcquiringPercent != nil {
		updates[KeyAcquiringPercent] = *in.AcquiringPercent
	}
	if in.DeliveryFixed != nil {
		updates[KeyDeliveryFixed] = *in.DeliveryFixed
	}
	if in.OtherFixed != nil {
		updates[KeyOtherFixed] = *in.OtherFixed
	}
	for key, value := range updates {
		values[key] = value
	}

	fees, err := s.feesFromValues(values)
	if err != nil {
		return FeeConfig{}, err
	}

	for key, value := range updates {
		if err := s.repo.Set(ctx, key, value); err != nil {
			return FeeConfig{}, apperrors.Wrap(apperrors.CodeDependency, err, "saving fee settings")
		}
	}
	s.invalidate(ctx)
	return fees, nil
}

func (s *service) RawValues(ctx context.Context) (map[string]string, error) {
	values, err := s.repo.All(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "loading settings")
	}
	return values, nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.BumpGeneration(ctx); err != nil && s.logg != nil {
		s.logg.Error(ctx, "invalidating aggregate cache after settings change", err)
	}
}

func valueOr(values map[string]string, key, fallback string) string {
	if v, ok := values[key]; ok && v != "" {
		return v
	}
	return fallback
}

func parseMode(raw string) (businessday.Mode, error) {
	switch businessday.Mode(raw) {
	case businessday.ModeShift:
		return businessday.ModeShift, nil
	case businessday.ModeCutoff:
		return businessday.ModeCutoff, nil
	default:
		return "", apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("mode %q must be %q or %q", raw, businessday.ModeShift, businessday.ModeCutoff))
	}
}

func parsePercent(raw, name string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("%s percent %q is not a number", name, raw))
	}
	if value.IsNegative() || value.GreaterThan(oneHundred) {
		return decimal.Zero, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("%s percent must be between 0 and 100, got %s", name, raw))
	}
	return value, nil
}

func parseFixed(raw, name string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("%s fee %q is not a number", name, raw))
	}
	if value.IsNegative() {
		return decimal.Zero, apperrors.New(apperrors.CodeValidation,
			fmt.Sprintf("%s fee must not be negative, got %s", name, raw))
	}
	return value, nil
}
