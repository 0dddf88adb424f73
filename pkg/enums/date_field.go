package enums

import "fmt"

// DateField names an order timestamp the upstream API can filter on.
type DateField string

const (
	DateFieldCreation        DateField = "creationDate"
	DateFieldPlannedShipment DateField = "plannedShipmentDate"
	DateFieldPlannedDelivery DateField = "plannedDeliveryDate"
	DateFieldShipment        DateField = "shipmentDate"
	DateFieldDelivery        DateField = "deliveryDate"
)

var validDateFields = []DateField{
	DateFieldCreation,
	DateFieldPlannedShipment,
	DateFieldPlannedDelivery,
	DateFieldShipment,
	DateFieldDelivery,
}

// String implements fmt.Stringer.
func (f DateField) String() string {
	return string(f)
}

// IsValid reports whether the value is a known DateField.
func (f DateField) IsValid() bool {
	for _, candidate := range validDateFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseDateField converts raw input into a DateField, defaulting to creationDate.
func ParseDateField(value string) (DateField, error) {
	if value == "" {
		return DateFieldCreation, nil
	}
	for _, candidate := range validDateFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unknown date field %q", value)
}
