package domain

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// --- Cart Entities ---

type CartLine struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Thumbnail   string          `json:"thumbnail"`
	Variant     string          `json:"variant"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the snapshot persisted between visits.
type Cart struct {
	UserID    string     `json:"userId"`
	Lines     []CartLine `json:"lines"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Clone returns a copy whose lines can be mutated independently.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

// CheckoutForm is the delivery/payment form submitted with the cart.
type CheckoutForm struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	PaymentType string `json:"paymentType"`
}

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

func (f CheckoutForm) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(f.Name) == "" {
		v.Add("name", "name is required")
	}
	if !phonePattern.MatchString(strings.TrimSpace(f.Phone)) {
		v.Add("phone", "phone must be 9 to 15 digits")
	}
	if strings.TrimSpace(f.Address) == "" {
		v.Add("address", "address is required")
	}
	if !slices.Contains(PaymentTypes, f.PaymentType) {
		v.Add("paymentType", "payment type must be COD or BANKING")
	}
	return v.OrNil()
}

// --- Interfaces ---

// CartSnapshotRepository persists the cart between sessions.
type CartSnapshotRepository interface {
	Load(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Delete(ctx context.Context, userID string) error
}
