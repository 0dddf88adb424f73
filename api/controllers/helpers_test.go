package controllers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/aidosgk/kaspi-orders-backend/internal/businessday"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
)

// stubSettings serves a fixed rule and fee schedule.
type stubSettings struct {
	rule businessday.Rule
	mode businessday.Mode
	fees settings.FeeConfig
	err  error

	lastBusinessDay *settings.BusinessDayInput
	lastFees        *settings.FeesInput
}

func newStubSettings(t *testing.T) *stubSettings {
	t.Helper()
	rule, err := businessday.NewRule("20:00", 3, "Asia/Almaty")
	if err != nil {
		t.Fatalf("build rule: %v", err)
	}
	return &stubSettings{rule: rule, mode: businessday.ModeCutoff}
}

func (s *stubSettings) BusinessDayRule(ctx context.Context) (businessday.Rule, businessday.Mode, error) {
	return s.rule, s.mode, s.err
}

func (s *stubSettings) SetBusinessDay(ctx context.Context, in settings.BusinessDayInput) (businessday.Rule, businessday.Mode, error) {
	s.lastBusinessDay = &in
	return s.rule, s.mode, s.err
}

func (s *stubSettings) Fees(ctx context.Context) (settings.FeeConfig, error) {
	return s.fees, s.err
}

func (s *stubSettings) SetFees(ctx context.Context, in settings.FeesInput) (settings.FeeConfig, error) {
	s.lastFees = &in
	return s.fees, s.err
}

func (s *stubSettings) RawValues(ctx context.Context) (map[string]string, error) {
	return map[string]string{}, s.err
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(envelope.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}
