package domain

import "strings"

// Meta is the pagination block of a backend list response.
type Meta struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
	Pages    int `json:"pages"`
	Total    int `json:"total"`
}

// Page is one page of a backend list.
type Page[T any] struct {
	Meta   Meta `json:"meta"`
	Result []T  `json:"result"`
}

// Notification is a transient message surfaced to the user after an action.
type Notification struct {
	Level   string `json:"level"` // success | error
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
