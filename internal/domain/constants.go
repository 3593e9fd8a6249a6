package domain

import "fmt"

// OrderStatus is the closed set of states an order can be observed in.
type OrderStatus string

// Order Statuses
const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusShipping        OrderStatus = "SHIPPING"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusReceived        OrderStatus = "RECEIVED"
	OrderStatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	OrderStatusReturned        OrderStatus = "RETURNED"
	OrderStatusReturnReceived  OrderStatus = "RETURN_RECEIVED"
	OrderStatusReturnRejected  OrderStatus = "RETURN_REJECTED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
)

// List Exports for API
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusShipping,
	OrderStatusDelivered,
	OrderStatusReceived,
	OrderStatusReturnRequested,
	OrderStatusReturned,
	OrderStatusReturnReceived,
	OrderStatusReturnRejected,
	OrderStatusCanceled,
}

// ParseOrderStatus accepts only the enumerated values. Wire data carrying anything
// else is rejected rather than coerced.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusShipping, OrderStatusDelivered, OrderStatusReceived,
		OrderStatusReturnRequested, OrderStatusReturned, OrderStatusReturnReceived,
		OrderStatusReturnRejected, OrderStatusCanceled:
		return OrderStatus(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOrderStatus, s)
	}
}

func (s OrderStatus) Valid() bool {
	_, err := ParseOrderStatus(string(s))
	return err == nil
}

func (s OrderStatus) String() string {
	return string(s)
}

// UnmarshalText rejects unknown statuses during JSON decoding.
func (s *OrderStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseOrderStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Payment Types
const (
	PaymentTypeCOD     = "COD"
	PaymentTypeBanking = "BANKING"
)

var PaymentTypes = []string{
	PaymentTypeCOD,
	PaymentTypeBanking,
}

// DefaultAdminRoleName is the role name the backend gives to back-office accounts.
const DefaultAdminRoleName = "SUPER_ADMIN"

// Admin console tab that disables status filtering.
const StatusTabAll = "ALL"
