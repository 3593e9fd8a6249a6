package domain

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, s := range OrderStatuses {
		got, err := ParseOrderStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	assert.Len(t, OrderStatuses, 9)

	for _, bad := range []string{"", "pending", "REFUNDED", "RETURN-REQUESTED"} {
		_, err := ParseOrderStatus(bad)
		assert.ErrorIs(t, err, ErrUnknownOrderStatus, bad)
	}
}

func TestOrderStatus_DecodeRejectsUnknown(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"status":"SHIPPING"}`), &o))
	assert.Equal(t, OrderStatusShipping, o.Status)

	err := json.Unmarshal([]byte(`{"status":"LOST"}`), &o)
	assert.Error(t, err)
}

func TestTransitionTable(t *testing.T) {
	want := map[OrderStatus]map[Role][]Operation{
		OrderStatusPending: {
			RoleAdmin:    {OpShip},
			RoleCustomer: {OpCancel},
		},
		OrderStatusShipping: {
			RoleAdmin: {OpDeliver},
		},
		OrderStatusDelivered: {
			RoleCustomer: {OpConfirmReceived, OpRequestReturn},
		},
		OrderStatusReturnRequested: {
			RoleAdmin: {OpApproveReturn, OpRejectReturn},
		},
		OrderStatusReturned: {
			RoleAdmin: {OpMarkReturnReceived},
		},
	}

	for _, status := range OrderStatuses {
		terminal := true
		for _, role := range []Role{RoleAdmin, RoleCustomer} {
			expected := want[status][role]
			if expected == nil {
				expected = []Operation{}
			}
			if len(expected) > 0 {
				terminal = false
			}

			t.Run(string(status)+"/"+string(role), func(t *testing.T) {
				assert.Equal(t, expected, AllowedOperations(status, role))

				enabled := map[Operation]bool{}
				for _, c := range Controls(status, role, true) {
					if c.Enabled {
						enabled[c.Op] = true
					}
				}
				assert.Len(t, enabled, len(expected))
				for _, op := range expected {
					assert.True(t, enabled[op], op)
				}

				for _, op := range Operations {
					_, ok := Lookup(status, op, role)
					assert.Equal(t, enabled[op], ok, op)
				}
			})
		}
		assert.Equal(t, terminal, IsTerminal(status), status)
	}
}

func TestTransition_AcceptsReportedStatus(t *testing.T) {
	tr, ok := Lookup(OrderStatusDelivered, OpRequestReturn, RoleCustomer)
	require.True(t, ok)
	assert.True(t, tr.Accepts(OrderStatusReturnRequested))
	assert.True(t, tr.Accepts(OrderStatusReturned))
	assert.False(t, tr.Accepts(OrderStatusCanceled))

	_, ok = Lookup(OrderStatusDelivered, OpRequestReturn, RoleAdmin)
	assert.False(t, ok)
}

func TestAuthorize(t *testing.T) {
	order := &Order{ID: "o-1", CustomerID: "u-1", Status: OrderStatusPending}

	tr, err := Authorize(order, OpCancel, CustomerActor("u-1"))
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCanceled, tr.To)

	_, err = Authorize(order, OpCancel, CustomerActor("u-2"))
	assert.ErrorIs(t, err, ErrNotOrderOwner)

	_, err = Authorize(order, OpDeliver, AdminActor("a-1"))
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, ErrTransitionNotAllowed)
	assert.Equal(t, OrderStatusPending, terr.From)

	// Admins do not need to own the order.
	_, err = Authorize(order, OpShip, AdminActor("a-1"))
	assert.NoError(t, err)
}

func TestControls(t *testing.T) {
	customer := Controls(OrderStatusShipping, RoleCustomer, false)
	assert.Empty(t, customer)

	admin := Controls(OrderStatusShipping, RoleAdmin, true)
	enabled := map[Operation]bool{}
	for _, c := range admin {
		enabled[c.Op] = c.Enabled
	}
	assert.Len(t, admin, 5)
	assert.True(t, enabled[OpDeliver])
	assert.False(t, enabled[OpShip])
	assert.False(t, enabled[OpApproveReturn])
	_, hasCancel := enabled[OpCancel]
	assert.False(t, hasCancel)
}

func TestOrderFilter_Query(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	q := OrderFilter{Status: "PENDING", Name: "ann", CreatedFrom: &from, CreatedTo: &to}.Query()
	assert.Equal(t, "1", q.Get("current"))
	assert.Equal(t, "10", q.Get("pageSize"))
	assert.Equal(t, "PENDING", q.Get("status"))
	assert.Equal(t, "/ann/i", q.Get("name"))
	assert.Equal(t, "2024-03-01T00:00:00Z", q.Get("createdAt>"))
	assert.Equal(t, "2024-03-31T23:59:59Z", q.Get("createdAt<"))
	assert.Equal(t, "-createdAt", q.Get("sort"))

	q = OrderFilter{Status: StatusTabAll, SortField: OrderSortTotalPrice, CreatedFrom: &from}.Query()
	assert.False(t, q.Has("status"))
	assert.Equal(t, "2024-03-01T00:00:00Z", q.Get("createdAt>"))
	assert.False(t, q.Has("createdAt<"))
	assert.Equal(t, "totalPrice", q.Get("sort"))

	q = OrderFilter{CreatedTo: &to}.Query()
	assert.False(t, q.Has("createdAt>"))
	assert.Equal(t, "2024-03-31T23:59:59Z", q.Get("createdAt<"))

	endOfDay := time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC)
	q = OrderFilter{CreatedTo: &endOfDay}.Query()
	assert.Equal(t, "2024-03-31T23:59:59.999999999Z", q.Get("createdAt<"))
}

func TestOrderFilter_QueryEscapesName(t *testing.T) {
	q := OrderFilter{Name: "a.(b"}.Query()
	assert.Equal(t, `/a\.\(b/i`, q.Get("name"))

	o := Order{CustomerName: "Shop a.(b", Status: OrderStatusPending}
	assert.True(t, OrderFilter{Name: "a.(b"}.Matches(o))
	assert.False(t, OrderFilter{Name: "a.(b"}.Matches(Order{CustomerName: "axxb"}))
}

func TestOrderFilter_Matches(t *testing.T) {
	o := Order{CustomerName: "Ann Lee", Status: OrderStatusPending, CreatedAt: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, OrderFilter{Status: StatusTabAll, Name: "LEE", CreatedFrom: &from}.Matches(o))
	assert.False(t, OrderFilter{Status: "SHIPPING"}.Matches(o))
	assert.False(t, OrderFilter{Name: "bob"}.Matches(o))
}

func TestValidationError_OrNil(t *testing.T) {
	v := NewValidationError()
	assert.NoError(t, v.OrNil())

	v.Add("name", "required")
	v.Add("name", "ignored")
	assert.Equal(t, "validation failed: name: required", v.OrNil().Error())
}
