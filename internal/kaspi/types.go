package kaspi

import (
	"math"
	"time"

	"github.com/aidosgk/kaspi-orders-backend/pkg/enums"
)

// Order is a single marketplace order with its JSON:API id flattened in.
type Order struct {
	ID string
	OrderAttributes
}

// OrderAttributes mirrors the attribute payload the marketplace returns for
// an order. Timestamps are epoch milliseconds.
type OrderAttributes struct {
	Code                  string  `json:"code"`
	State                 string  `json:"state"`
	Status                string  `json:"status"`
	TotalPrice            float64 `json:"totalPrice"`
	DeliveryCost          float64 `json:"deliveryCost"`
	DeliveryCostForSeller float64 `json:"deliveryCostForSeller"`
	CreationDate          int64   `json:"creationDate"`
	PlannedShipmentDate   int64   `json:"plannedShipmentDate"`
	PlannedDeliveryDate   int64   `json:"plannedDeliveryDate"`
	ShipmentDate          int64   `json:"shipmentDate"`
	DeliveryDate          int64   `json:"deliveryDate"`
	City                  string  `json:"city"`
	DeliveryAddressCity   string  `json:"deliveryAddressCity"`
	CustomerCity          string  `json:"customerCity"`
}

// TimestampFor returns the order timestamp for the requested date field. The
// second return is false when the field is absent from the payload.
func (a OrderAttributes) TimestampFor(field enums.DateField) (time.Time, bool) {
	var ms int64
	switch field {
	case enums.DateFieldPlannedShipment:
		ms = a.PlannedShipmentDate
	case enums.DateFieldPlannedDelivery:
		ms = a.PlannedDeliveryDate
	case enums.DateFieldShipment:
		ms = a.ShipmentDate
	case enums.DateFieldDelivery:
		ms = a.DeliveryDate
	default:
		ms = a.CreationDate
	}
	if ms == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

// CityName returns the first populated city field.
func (a OrderAttributes) CityName() string {
	for _, candidate := range []string{a.City, a.DeliveryAddressCity, a.CustomerCity} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// AmountMinor converts the order total into integer minor units, applying the
// configured divisor for stores whose upstream totals are already scaled.
func (a OrderAttributes) AmountMinor(divisor float64) int64 {
	if divisor <= 0 {
		divisor = 1
	}
	return int64(math.Round(a.TotalPrice / divisor * 100))
}

// OrderState returns the normalized order state.
func (a OrderAttributes) OrderState() enums.OrderState {
	return enums.NormalizeOrderState(a.State)
}

// OrderEntry is a single line item of an order.
type OrderEntry struct {
	ID          string
	LineIndex   int
	ProductCode string
	ProductName string
	Category    string
	Quantity    int
	UnitPrice   float64
	TotalPrice  float64
}

// FetchParams bound an order listing request.
type FetchParams struct {
	From      time.Time
	To        time.Time
	DateField enums.DateField
	State     enums.OrderState
}

// JSON:API envelope types.

type ordersResponse struct {
	Data []orderResource `json:"data"`
	Meta pageMeta        `json:"meta"`
}

type orderResponse struct {
	Data orderResource `json:"data"`
}

type orderResource struct {
	ID         string          `json:"id"`
	Attributes OrderAttributes `json:"attributes"`
}

type pageMeta struct {
	PageCount  *int `json:"pageCount"`
	TotalCount *int `json:"totalCount"`
}

type entriesResponse struct {
	Data     []entryResource `json:"data"`
	Included []includedItem  `json:"included"`
}

type entryResource struct {
	ID            string                  `json:"id"`
	Attributes    entryAttributes         `json:"attributes"`
	Relationships map[string]relationship `json:"relationships"`
}

type entryAttributes struct {
	Quantity        int       `json:"quantity"`
	TotalPrice      *float64  `json:"totalPrice"`
	BasePrice       *float64  `json:"basePrice"`
	Price           *float64  `json:"price"`
	UnitPrice       *float64  `json:"unitPrice"`
	Code            string    `json:"code"`
	SKU             string    `json:"sku"`
	Category        *titleRef `json:"category"`
	Offer           *codeRef  `json:"offer"`
	Product         *codeRef  `json:"product"`
	MerchantProduct *codeRef  `json:"merchantProduct"`
}

type titleRef struct {
	Title string `json:"title"`
}

type codeRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type relationship struct {
	Data *resourceIdentifier `json:"data"`
}

type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type includedItem struct {
	Type       string  `json:"type"`
	ID         string  `json:"id"`
	Attributes codeRef `json:"attributes"`
}
