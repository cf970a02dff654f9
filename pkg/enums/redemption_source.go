package enums

import "fmt"

// RedemptionSource names the flow that wrote a redemption record.
type RedemptionSource string

const (
	RedemptionSourceCheckoutCOD RedemptionSource = "checkout_cod"
	RedemptionSourceWebhook     RedemptionSource = "webhook"
)

var validRedemptionSources = []RedemptionSource{
	RedemptionSourceCheckoutCOD,
	RedemptionSourceWebhook,
}

// String implements fmt.Stringer.
func (r RedemptionSource) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RedemptionSource.
func (r RedemptionSource) IsValid() bool {
	for _, candidate := range validRedemptionSources {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRedemptionSource converts raw input into a RedemptionSource.
func ParseRedemptionSource(value string) (RedemptionSource, error) {
	for _, candidate := range validRedemptionSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid redemption source %q", value)
}
