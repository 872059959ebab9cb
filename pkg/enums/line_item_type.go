package enums

import "fmt"

// LineItemType describes how a subscription line item is priced.
type LineItemType string

const (
	LineItemTypeFlat    LineItemType = "flat"
	LineItemTypePerSeat LineItemType = "per_seat"
	LineItemTypeMetered LineItemType = "metered"
)

var validLineItemTypes = []LineItemType{
	LineItemTypeFlat,
	LineItemTypePerSeat,
	LineItemTypeMetered,
}

// String implements fmt.Stringer.
func (l LineItemType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LineItemType.
func (l LineItemType) IsValid() bool {
	for _, candidate := range validLineItemTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLineItemType converts raw input into a LineItemType.
func ParseLineItemType(value string) (LineItemType, error) {
	for _, candidate := range validLineItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid line item type %q", value)
}
