package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidRange, http.StatusBadRequest},
		{CodeOrderNotFound, http.StatusNotFound},
		{CodeUpstream, http.StatusBadGateway},
		{CodeCancelled, http.StatusRequestTimeout},
		{CodeInsufficientStock, http.StatusUnprocessableEntity},
		{Code("made_up"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("MetadataFor(%s) status = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("socket closed")
	err := Wrap(CodeUpstream, cause, "fetching orders page")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	if got := As(fmt.Errorf("outer: %w", err)); got == nil || got.Code() != CodeUpstream {
		t.Fatalf("expected As to find the typed error, got %v", got)
	}
}

func TestIs(t *testing.T) {
	err := New(CodeInsufficientStock, "SKU1 short by 2")
	if !Is(err, CodeInsufficientStock) {
		t.Fatal("expected Is to match the code")
	}
	if Is(err, CodeUpstream) {
		t.Fatal("expected Is to reject a different code")
	}
	if Is(stdErrors.New("plain"), CodeInternal) {
		t.Fatal("plain errors should not match any code")
	}
}

func TestDumpChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "redis down")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("unexpected code %s", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
}
