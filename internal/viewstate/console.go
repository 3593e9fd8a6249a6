package viewstate

import (
	"sync"

	"storefront-console/internal/domain"
)

// Console is the admin order board. It remembers the filter it was last loaded
// with so that a successful action can reload the same list.
type Console struct {
	*Board

	mu     sync.Mutex
	filter domain.OrderFilter
	loaded bool
}

func NewConsole() *Console {
	return &Console{Board: NewBoard()}
}

// Remember stores the filter of the latest load.
func (c *Console) Remember(filter domain.OrderFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
	c.loaded = true
}

// LastFilter returns the remembered filter, or the default filter when the
// console was never loaded.
func (c *Console) LastFilter() domain.OrderFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return domain.OrderFilter{}.Normalize()
	}
	return c.filter
}
