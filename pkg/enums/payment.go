package enums

import "fmt"

// PaymentMethod is how the buyer settles an order.
type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "cod"
	PaymentMethodPayOS PaymentMethod = "payos"
)

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCOD, PaymentMethodPayOS:
		return true
	}
	return false
}

// PaidOnline reports whether the order needs a hosted payment link before
// it can ship.
func (p PaymentMethod) PaidOnline() bool {
	return p == PaymentMethodPayOS
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	if m := PaymentMethod(value); m.IsValid() {
		return m, nil
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentStatus is the order-level view of payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	}
	return false
}

// IsSettled is true once money has been received.
func (p PaymentStatus) IsSettled() bool {
	return p == PaymentStatusCompleted
}

// TransactionStatus tracks a single attempt at the payment provider. An order
// may carry several transactions while its PaymentStatus stays pending.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

func (t TransactionStatus) String() string { return string(t) }

func (t TransactionStatus) IsValid() bool {
	switch t {
	case TransactionStatusPending, TransactionStatusSuccess, TransactionStatusFailed:
		return true
	}
	return false
}

// IsFinal reports whether the provider will send no further updates.
func (t TransactionStatus) IsFinal() bool {
	return t == TransactionStatusSuccess || t == TransactionStatusFailed
}
