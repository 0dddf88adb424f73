package enums

import (
	"fmt"
	"strings"
)

// OrderState is the upstream marketplace order lifecycle tag.
type OrderState string

const (
	OrderStateNew                 OrderState = "NEW"
	OrderStateSignRequired        OrderState = "SIGN_REQUIRED"
	OrderStatePickup              OrderState = "PICKUP"
	OrderStateAcceptedByMerchant  OrderState = "ACCEPTED_BY_MERCHANT"
	OrderStateApprovedByBank      OrderState = "APPROVED_BY_BANK"
	OrderStateAssembly            OrderState = "ASSEMBLE"
	OrderStateDelivery            OrderState = "DELIVERY"
	OrderStateKaspiDelivery       OrderState = "KASPI_DELIVERY"
	OrderStateDeliveryTransferred OrderState = "DELIVERY_TRANSFERRED"
	OrderStateCompleted           OrderState = "COMPLETED"
	OrderStateArchive             OrderState = "ARCHIVE"
	OrderStateCancelled           OrderState = "CANCELLED"
	OrderStateCancelledAlt        OrderState = "CANCELED"
	OrderStateReturned            OrderState = "RETURNED"
)

var validOrderStates = []OrderState{
	OrderStateNew,
	OrderStateSignRequired,
	OrderStatePickup,
	OrderStateAcceptedByMerchant,
	OrderStateApprovedByBank,
	OrderStateAssembly,
	OrderStateDelivery,
	OrderStateKaspiDelivery,
	OrderStateDeliveryTransferred,
	OrderStateCompleted,
	OrderStateArchive,
	OrderStateCancelled,
	OrderStateCancelledAlt,
	OrderStateReturned,
}

// cancelledLikeStates are excluded when a caller asks to drop cancelled orders.
var cancelledLikeStates = map[OrderState]struct{}{
	OrderStateCancelled:    {},
	OrderStateCancelledAlt: {},
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsCancelledLike reports whether the state belongs to the fixed cancelled set.
func (s OrderState) IsCancelledLike() bool {
	_, ok := cancelledLikeStates[s]
	return ok
}

// IsTerminalSold reports whether the order counts as a completed sale.
func (s OrderState) IsTerminalSold() bool {
	return s == OrderStateCompleted || s == OrderStateArchive
}

// NormalizeOrderState uppercases and trims raw upstream state values. Unknown
// states are preserved as-is so new upstream tags still show up in breakdowns.
func NormalizeOrderState(value string) OrderState {
	return OrderState(strings.ToUpper(strings.TrimSpace(value)))
}

// ParseOrderStates splits a comma separated list into normalized states.
func ParseOrderStates(csv string) []OrderState {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var states []OrderState
	for _, part := range strings.Split(csv, ",") {
		if state := NormalizeOrderState(part); state != "" {
			states = append(states, state)
		}
	}
	return states
}

// ParseOrderState converts raw input into a known OrderState.
func ParseOrderState(value string) (OrderState, error) {
	state := NormalizeOrderState(value)
	if !state.IsValid() {
		return "", fmt.Errorf("unknown order state %q", value)
	}
	return state, nil
}
