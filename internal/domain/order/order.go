package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: conflict")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrAlreadyPaid       = errors.New("order: already paid")
	ErrEmptyCart         = errors.New("order: cart must contain at least one item")
	ErrInvalidQuantity   = errors.New("order: quantity must be greater than zero")
	ErrInvalidAddress    = errors.New("order: shipping address is incomplete")
)

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "COD"
	PaymentMethodGateway PaymentMethod = "ExternalGateway"
)

// Item is a line of a committed order. UnitPrice is the variant price
// captured at reservation time, never re-read later.
type Item struct {
	VariantID string
	ProductID string
	Quantity  int
	UnitPrice int64
}

type Address struct {
	FullName string
	Phone    string
	Street   string
	Ward     string
	District string
	City     string
}

func (a Address) Validate() error {
	if a.FullName == "" || a.Phone == "" || a.Street == "" ||
		a.Ward == "" || a.District == "" || a.City == "" {
		return ErrInvalidAddress
	}
	return nil
}

// Order is a snapshot of a committed purchase. Orders are never deleted;
// cancellation is a terminal status, not removal.
type Order struct {
	ID              string
	Number          string
	CustomerID      string
	Items           []Item
	ShippingAddress Address
	Subtotal        int64
	Discount        int64
	VoucherCode     string
	ShippingFee     int64
	Total           int64
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Status          Status
	TransactionID   string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) Touch() {
	o.UpdatedAt = time.Now().UTC()
}
