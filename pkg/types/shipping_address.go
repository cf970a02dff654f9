package types

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	minPhoneDigits = 8
	minZipLength   = 3
)

// ShippingAddress is the delivery destination captured at checkout and
// snapshotted onto the order as JSON.
type ShippingAddress struct {
	FullName string  `json:"full_name"`
	Phone    string  `json:"phone"`
	Street   string  `json:"street"`
	Line2    *string `json:"line2,omitempty"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	Zip      string  `json:"zip"`
	Country  string  `json:"country"`
}

// Normalize trims every field in place.
func (a *ShippingAddress) Normalize() {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.TrimSpace(a.Country)
	if a.Line2 != nil {
		line2 := strings.TrimSpace(*a.Line2)
		if line2 == "" {
			a.Line2 = nil
		} else {
			a.Line2 = &line2
		}
	}
}

// FieldError names the address field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("shipping_address.%s %s", e.Field, e.Reason)
}

// Validate checks the address after trimming. It returns the first failing field.
func (a ShippingAddress) Validate() *FieldError {
	required := []struct {
		field string
		value string
	}{
		{"full_name", a.FullName},
		{"phone", a.Phone},
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
		{"country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Field: r.field, Reason: "is required"}
		}
	}
	if countDigits(a.Phone) < minPhoneDigits {
		return &FieldError{Field: "phone", Reason: fmt.Sprintf("must contain at least %d digits", minPhoneDigits)}
	}
	if len([]rune(strings.TrimSpace(a.Zip))) < minZipLength {
		return &FieldError{Field: "zip", Reason: fmt.Sprintf("must be at least %d characters", minZipLength)}
	}
	return nil
}

func countDigits(value string) int {
	n := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
