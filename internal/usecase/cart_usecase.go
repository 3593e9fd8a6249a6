package usecase

import (
	"context"
	"fmt"

	"storefront-console/internal/domain"
	"storefront-console/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultMaxCartQuantity = 1000

// CartHolder is the session side of the cart: a snapshot to read and an atomic
// update that persists before it is applied.
type CartHolder interface {
	Cart() (domain.Cart, error)
	UpdateCart(ctx context.Context, fn func(cart *domain.Cart) error) (domain.Cart, error)
}

// CartView is the cart as rendered, with derived totals.
type CartView struct {
	Lines []domain.CartLine `json:"lines"`
	Count int               `json:"count"`
	Total decimal.Decimal   `json:"total"`
}

func NewCartView(c domain.Cart) CartView {
	lines := c.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return CartView{Lines: lines, Count: c.Count(), Total: c.Total()}
}

type CartUsecase struct {
	catalog     *CatalogUsecase
	orders      domain.OrderGateway
	maxQuantity int
}

func NewCartUsecase(catalog *CatalogUsecase, orders domain.OrderGateway, maxQuantity int) *CartUsecase {
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxCartQuantity
	}
	return &CartUsecase{catalog: catalog, orders: orders, maxQuantity: maxQuantity}
}

func (u *CartUsecase) Get(holder CartHolder) (CartView, error) {
	c, err := holder.Cart()
	if err != nil {
		return CartView{}, err
	}
	return NewCartView(c), nil
}

// Add puts quantity units of a product variant into the cart. An existing line for
// the same product and variant accumulates instead of being duplicated.
func (u *CartUsecase) Add(ctx context.Context, holder CartHolder, productID, variant string, quantity int) (CartView, error) {
	if quantity < 1 {
		return CartView{}, quantityError("quantity must be at least 1")
	}
	product, err := u.catalog.GetProduct(ctx, productID)
	if err != nil {
		return CartView{}, fmt.Errorf("add to cart: %w", err)
	}
	v, err := product.ResolveVariant(variant)
	if err != nil {
		verr := domain.NewValidationError()
		verr.Add("variant", "the selected version or color is not available")
		return CartView{}, verr
	}
	price := v.Price
	if price.IsZero() {
		price = product.Price
	}

	c, err := holder.UpdateCart(ctx, func(cart *domain.Cart) error {
		for i := range cart.Lines {
			l := &cart.Lines[i]
			if l.ProductID == productID && l.Variant == v.Label() {
				next := l.Quantity + quantity
				if err := u.checkQuantity(next, v.Quantity); err != nil {
					return err
				}
				l.Quantity = next
				l.UnitPrice = price
				return nil
			}
		}
		if err := u.checkQuantity(quantity, v.Quantity); err != nil {
			return err
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			ID:          uuid.NewString(),
			ProductID:   product.ID,
			ProductName: product.Name,
			Thumbnail:   product.Thumbnail,
			Variant:     v.Label(),
			Quantity:    quantity,
			UnitPrice:   price,
		})
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	return NewCartView(c), nil
}

// SetQuantity changes one line. Zero or less removes it.
func (u *CartUsecase) SetQuantity(ctx context.Context, holder CartHolder, lineID string, quantity int) (CartView, error) {
	if quantity <= 0 {
		return u.Remove(ctx, holder, lineID)
	}

	current, err := holder.Cart()
	if err != nil {
		return CartView{}, err
	}
	line, ok := findLine(current, lineID)
	if !ok {
		return CartView{}, fmt.Errorf("cart line %s: %w", lineID, domain.ErrNotFound)
	}

	stock := -1
	if product, err := u.catalog.GetProduct(ctx, line.ProductID); err == nil {
		if v, err := product.ResolveVariant(line.Variant); err == nil {
			stock = v.Quantity
		}
	} else {
		logger.WithContext(ctx).Warn().Err(err).Str("product_id", line.ProductID).Msg("Stock unknown, only the cart limit applies")
	}

	c, err := holder.UpdateCart(ctx, func(cart *domain.Cart) error {
		for i := range cart.Lines {
			if cart.Lines[i].ID == lineID {
				if err := u.checkQuantity(quantity, stock); err != nil {
					return err
				}
				cart.Lines[i].Quantity = quantity
				return nil
			}
		}
		return fmt.Errorf("cart line %s: %w", lineID, domain.ErrNotFound)
	})
	if err != nil {
		return CartView{}, err
	}
	return NewCartView(c), nil
}

func (u *CartUsecase) Remove(ctx context.Context, holder CartHolder, lineID string) (CartView, error) {
	c, err := holder.UpdateCart(ctx, func(cart *domain.Cart) error {
		for i := range cart.Lines {
			if cart.Lines[i].ID == lineID {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("cart line %s: %w", lineID, domain.ErrNotFound)
	})
	if err != nil {
		return CartView{}, err
	}
	return NewCartView(c), nil
}

func (u *CartUsecase) Clear(ctx context.Context, holder CartHolder) (CartView, error) {
	c, err := holder.UpdateCart(ctx, func(cart *domain.Cart) error {
		cart.Lines = nil
		return nil
	})
	if err != nil {
		return CartView{}, err
	}
	return NewCartView(c), nil
}

// Checkout validates the form, submits the cart as a new order and empties the
// cart. Invalid forms and empty carts never reach the backend.
func (u *CartUsecase) Checkout(ctx context.Context, holder CartHolder, form domain.CheckoutForm) (*domain.Order, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	c, err := holder.Cart()
	if err != nil {
		return nil, err
	}
	if len(c.Lines) == 0 {
		return nil, domain.ErrCartEmpty
	}

	items := make([]domain.OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, domain.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Variant:     l.Variant,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}

	created, err := u.orders.CreateOrder(ctx, domain.NewOrder{
		Name:        form.Name,
		Address:     form.Address,
		Phone:       form.Phone,
		PaymentType: form.PaymentType,
		Items:       items,
		TotalPrice:  domain.SumItems(items),
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}

	if _, err := u.Clear(ctx, holder); err != nil {
		logger.WithContext(ctx).Error().Err(err).Str("order_id", created.ID).Msg("Order placed but cart could not be cleared")
	}
	logger.WithContext(ctx).Info().
		Str("order_id", created.ID).
		Int("lines", len(items)).
		Str("total", created.TotalPrice.String()).
		Msg("Order placed")
	return created, nil
}

// checkQuantity enforces the cart limit and, when stock is known (>= 0), the stock.
func (u *CartUsecase) checkQuantity(quantity, stock int) error {
	if quantity > u.maxQuantity {
		return quantityError(fmt.Sprintf("at most %d units per item", u.maxQuantity))
	}
	if stock >= 0 && quantity > stock {
		if stock == 0 {
			return quantityError("this item is out of stock")
		}
		return quantityError(fmt.Sprintf("only %d units in stock", stock))
	}
	return nil
}

func quantityError(msg string) error {
	v := domain.NewValidationError()
	v.Add("quantity", msg)
	return v
}

func findLine(c domain.Cart, lineID string) (domain.CartLine, bool) {
	for _, l := range c.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return domain.CartLine{}, false
}
