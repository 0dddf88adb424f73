package analytics

import (
	"testing"
	"time"

	"github.com/aidosgk/kaspi-orders-backend/internal/businessday"
	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
)

func signatureQuery(t *testing.T) (Query, businessday.Rule) {
	t.Helper()
	rule, err := businessday.NewRule("20:00", 3, "Asia/Almaty")
	if err != nil {
		t.Fatal(err)
	}
	start, _ := rule.ParseDate("2025-08-01")
	end, _ := rule.ParseDate("2025-08-07")
	return Query{Start: start, End: end, DateField: enums.DateFieldCreation}, rule
}

func TestSignatureIgnoresStateOrder(t *testing.T) {
	q, rule := signatureQuery(t)

	a := q
	a.States = []enums.OrderState{enums.OrderStateCompleted, enums.OrderStateDelivery}
	b := q
	b.States = []enums.OrderState{enums.OrderStateDelivery, enums.OrderStateCompleted}

	if Signature(a, rule, businessday.ModeCutoff) != Signature(b, rule, businessday.ModeCutoff) {
		t.Fatal("state order must not change the signature")
	}
}

func TestSignatureChangesWithInputs(t *testing.T) {
	q, rule := signatureQuery(t)
	base := Signature(q, rule, businessday.ModeCutoff)

	shifted := q
	shifted.End = q.End.AddDate(0, 0, 1)
	if Signature(shifted, rule, businessday.ModeCutoff) == base {
		t.Fatal("different range must change the signature")
	}

	if Signature(q, rule, businessday.ModeShift) == base {
		t.Fatal("different mode must change the signature")
	}

	otherRule := rule
	otherRule.Cutoff = 21 * time.Hour
	if Signature(q, otherRule, businessday.ModeCutoff) == base {
		t.Fatal("different cutoff must change the signature")
	}

	withPrev := q
	withPrev.WithPrev = true
	if Signature(withPrev, rule, businessday.ModeCutoff) == base {
		t.Fatal("with_prev must change the signature")
	}
}

func TestSignatureIsStable(t *testing.T) {
	q, rule := signatureQuery(t)
	if Signature(q, rule, businessday.ModeCutoff) != Signature(q, rule, businessday.ModeCutoff) {
		t.Fatal("signature must be deterministic")
	}
	if len(Signature(q, rule, businessday.ModeCutoff)) != 64 {
		t.Fatal("signature must be a sha256 hex digest")
	}
}
