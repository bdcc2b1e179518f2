package order

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipping   Status = "shipping"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Order status moves forward only; cancellation is allowed from pending
// alone. delivered and cancelled are terminal.
var statusNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipping: true},
	StatusShipping:   {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentPending: {PaymentPaid: true, PaymentFailed: true},
	PaymentPaid:    {},
	PaymentFailed:  {},
}

func CanTransition(from, to Status) bool {
	return statusNext[from][to]
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return paymentNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Valid() bool {
	_, ok := statusNext[s]
	return ok
}

func (p PaymentStatus) Valid() bool {
	_, ok := paymentNext[p]
	return ok
}
