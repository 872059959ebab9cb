package enums

import "fmt"

// PaymentType describes how a billing product is charged.
type PaymentType string

const (
	PaymentTypeRecurring PaymentType = "recurring"
	PaymentTypeOneTime   PaymentType = "one_time"
)

var validPaymentTypes = []PaymentType{
	PaymentTypeRecurring,
	PaymentTypeOneTime,
}

// String implements fmt.Stringer.
func (p PaymentType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentType.
func (p PaymentType) IsValid() bool {
	for _, candidate := range validPaymentTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentType converts raw input into a PaymentType.
func ParsePaymentType(value string) (PaymentType, error) {
	for _, candidate := range validPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment type %q", value)
}
