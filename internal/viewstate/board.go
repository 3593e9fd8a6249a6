// Package viewstate holds the per-session order views the consoles render. A
// Board is a small reducer: every change goes through one of its actions, each
// touching only the fields that action owns.
package viewstate

import (
	"fmt"
	"sync"

	"storefront-console/internal/domain"
)

// Generation identifies one mount of a view. Responses that arrive for an older
// generation are discarded.
type Generation uint64

type Board struct {
	mu            sync.Mutex
	generation    Generation
	mounted       bool
	orders        map[string]domain.Order
	ids           []string
	meta          domain.Meta
	notifications []domain.Notification
}

func NewBoard() *Board {
	return &Board{orders: make(map[string]domain.Order)}
}

// Mount replaces the board's content with a freshly loaded page and starts a new
// generation.
func (b *Board) Mount(page domain.Page[domain.Order]) Generation {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generation++
	b.mounted = true
	b.meta = page.Meta
	b.orders = make(map[string]domain.Order, len(page.Result))
	b.ids = make([]string, 0, len(page.Result))
	for _, o := range page.Result {
		if _, dup := b.orders[o.ID]; !dup {
			b.ids = append(b.ids, o.ID)
		}
		b.orders[o.ID] = o.Clone()
	}
	return b.generation
}

// Unmount drops the content. Anything still in flight for the old generation is
// ignored when it completes.
func (b *Board) Unmount() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.generation++
	b.mounted = false
	b.orders = make(map[string]domain.Order)
	b.ids = nil
	b.meta = domain.Meta{}
}

func (b *Board) Generation() Generation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

func (b *Board) Mounted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mounted
}

// Order returns a copy of one order of the current generation.
func (b *Board) Order(id string) (domain.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

// Orders returns copies of the mounted orders in display order.
func (b *Board) Orders() []domain.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Order, 0, len(b.ids))
	for _, id := range b.ids {
		out = append(out, b.orders[id].Clone())
	}
	return out
}

func (b *Board) Meta() domain.Meta {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meta
}

// TransitionApplied records a successful transition. Only the status of the
// targeted order changes.
func (b *Board) TransitionApplied(gen Generation, orderID string, status domain.OrderStatus) error {
	return b.setStatus(gen, orderID, status)
}

// StatusRefreshed records the status re-read from the backend after a rejected
// transition.
func (b *Board) StatusRefreshed(gen Generation, orderID string, status domain.OrderStatus) error {
	if status == "" {
		return nil
	}
	return b.setStatus(gen, orderID, status)
}

func (b *Board) setStatus(gen Generation, orderID string, status domain.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownOrderStatus, status)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation || !b.mounted {
		return domain.ErrStaleView
	}
	o, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	o.Status = status
	b.orders[orderID] = o
	return nil
}

// Notify queues a notification for the current generation. Notifications for a
// generation that is no longer mounted are dropped.
func (b *Board) Notify(gen Generation, n domain.Notification) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation || !b.mounted {
		return false
	}
	b.notifications = append(b.notifications, n)
	return true
}

// DrainNotifications returns and clears the queued notifications.
func (b *Board) DrainNotifications() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notifications
	b.notifications = nil
	return out
}
