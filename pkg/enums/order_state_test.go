package enums

import "testing"

func TestNormalizeOrderState(t *testing.T) {
	if got := NormalizeOrderState("  completed "); got != OrderStateCompleted {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := NormalizeOrderState("SOMETHING_NEW"); got != OrderState("SOMETHING_NEW") {
		t.Fatalf("unknown states should pass through, got %q", got)
	}
}

func TestParseOrderStates(t *testing.T) {
	states := ParseOrderStates("new, delivery ,,CANCELLED")
	if len(states) != 3 {
		t.Fatalf("expected 3 states, got %v", states)
	}
	if states[0] != OrderStateNew || states[1] != OrderStateDelivery || states[2] != OrderStateCancelled {
		t.Fatalf("unexpected states %v", states)
	}
	if ParseOrderStates("  ") != nil {
		t.Fatal("blank input should yield nil")
	}
}

func TestCancelledLike(t *testing.T) {
	if !OrderStateCancelled.IsCancelledLike() || !OrderStateCancelledAlt.IsCancelledLike() {
		t.Fatal("both cancelled spellings must match the cancelled set")
	}
	if OrderStateReturned.IsCancelledLike() {
		t.Fatal("RETURNED is not cancelled-like")
	}
}

func TestParseDateField(t *testing.T) {
	field, err := ParseDateField("")
	if err != nil || field != DateFieldCreation {
		t.Fatalf("empty input should default to creationDate, got %v, %v", field, err)
	}
	if _, err := ParseDateField("bogusDate"); err == nil {
		t.Fatal("expected error for unknown field")
	}
	if f, err := ParseDateField("plannedShipmentDate"); err != nil || f != DateFieldPlannedShipment {
		t.Fatalf("unexpected parse result %v, %v", f, err)
	}
}
