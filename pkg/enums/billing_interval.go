package enums

import "fmt"

// BillingInterval is the renewal cadence of a plan.
type BillingInterval string

const (
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

// String implements fmt.Stringer.
func (b BillingInterval) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingInterval.
func (b BillingInterval) IsValid() bool {
	return b == BillingIntervalMonth || b == BillingIntervalYear
}

// ParseBillingInterval converts raw catalog input into a BillingInterval.
func ParseBillingInterval(value string) (BillingInterval, error) {
	interval := BillingInterval(value)
	if !interval.IsValid() {
		return "", fmt.Errorf("invalid billing interval %q", value)
	}
	return interval, nil
}
