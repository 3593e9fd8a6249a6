package domain

import "fmt"

// Role is the actor role a transition is invoked under.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Actor is whoever invokes a transition: the owning customer or an administrator.
type Actor struct {
	UserID string
	Role   Role
}

func CustomerActor(userID string) Actor {
	return Actor{UserID: userID, Role: RoleCustomer}
}

func AdminActor(userID string) Actor {
	return Actor{UserID: userID, Role: RoleAdmin}
}

// Operation names a transition.
type Operation string

const (
	OpShip               Operation = "ship"
	OpCancel             Operation = "cancel"
	OpDeliver            Operation = "deliver"
	OpConfirmReceived    Operation = "confirm-received"
	OpRequestReturn      Operation = "request-return"
	OpApproveReturn      Operation = "approve-return"
	OpRejectReturn       Operation = "reject-return"
	OpMarkReturnReceived Operation = "mark-return-received"
)

// Operations lists every operation in a stable display order.
var Operations = []Operation{
	OpShip,
	OpCancel,
	OpDeliver,
	OpConfirmReceived,
	OpRequestReturn,
	OpApproveReturn,
	OpRejectReturn,
	OpMarkReturnReceived,
}

func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// Transition is one row of the lifecycle table.
type Transition struct {
	From   OrderStatus
	Op     Operation
	To     OrderStatus
	Role   Role
	Accept []OrderStatus // other results the server may report for this operation
}

// transitions is the single source of truth for order gating. Both consoles derive
// their controls from it.
var transitions = []Transition{
	{From: OrderStatusPending, Op: OpShip, To: OrderStatusShipping, Role: RoleAdmin},
	{From: OrderStatusPending, Op: OpCancel, To: OrderStatusCanceled, Role: RoleCustomer},
	{From: OrderStatusShipping, Op: OpDeliver, To: OrderStatusDelivered, Role: RoleAdmin},
	{From: OrderStatusDelivered, Op: OpConfirmReceived, To: OrderStatusReceived, Role: RoleCustomer},
	{From: OrderStatusDelivered, Op: OpRequestReturn, To: OrderStatusReturnRequested, Role: RoleCustomer,
		Accept: []OrderStatus{OrderStatusReturned}},
	{From: OrderStatusReturnRequested, Op: OpApproveReturn, To: OrderStatusReturned, Role: RoleAdmin},
	{From: OrderStatusReturnRequested, Op: OpRejectReturn, To: OrderStatusReturnRejected, Role: RoleAdmin},
	{From: OrderStatusReturned, Op: OpMarkReturnReceived, To: OrderStatusReturnReceived, Role: RoleAdmin},
}

type transitionKey struct {
	from OrderStatus
	role Role
}

var transitionIndex = buildTransitionIndex()

func buildTransitionIndex() map[transitionKey][]Transition {
	idx := make(map[transitionKey][]Transition)
	for _, t := range transitions {
		k := transitionKey{from: t.From, role: t.Role}
		idx[k] = append(idx[k], t)
	}
	return idx
}

// Transitions returns a copy of the full table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// AllowedOperations returns the operations the role may invoke from status.
func AllowedOperations(status OrderStatus, role Role) []Operation {
	rows := transitionIndex[transitionKey{from: status, role: role}]
	ops := make([]Operation, 0, len(rows))
	for _, t := range rows {
		ops = append(ops, t.Op)
	}
	return ops
}

// Lookup resolves (status, op, role) to its table row.
func Lookup(status OrderStatus, op Operation, role Role) (Transition, bool) {
	for _, t := range transitionIndex[transitionKey{from: status, role: role}] {
		if t.Op == op {
			return t, true
		}
	}
	return Transition{}, false
}

// RoleFor reports which role owns an operation.
func RoleFor(op Operation) (Role, bool) {
	for _, t := range transitions {
		if t.Op == op {
			return t.Role, true
		}
	}
	return "", false
}

// IsTerminal reports whether no role can move the order any further.
func IsTerminal(status OrderStatus) bool {
	return len(AllowedOperations(status, RoleAdmin)) == 0 &&
		len(AllowedOperations(status, RoleCustomer)) == 0
}

// Accepts reports whether a server-reported status is a legitimate outcome of t.
func (t Transition) Accepts(status OrderStatus) bool {
	if status == t.To {
		return true
	}
	for _, s := range t.Accept {
		if s == status {
			return true
		}
	}
	return false
}

// Authorize checks a transition for an actor against an order without touching the
// network. Customer operations also require the actor to own the order.
func Authorize(order *Order, op Operation, actor Actor) (Transition, error) {
	t, ok := Lookup(order.Status, op, actor.Role)
	if !ok {
		return Transition{}, &TransitionError{
			OrderID: order.ID,
			Op:      op,
			From:    order.Status,
			Err:     ErrTransitionNotAllowed,
		}
	}
	if actor.Role == RoleCustomer && !order.OwnedBy(actor.UserID) {
		return Transition{}, &TransitionError{
			OrderID: order.ID,
			Op:      op,
			From:    order.Status,
			Err:     ErrNotOrderOwner,
		}
	}
	return t, nil
}

// Control is a derived UI control for one operation on one order.
type Control struct {
	Op       Operation `json:"op"`
	Enabled  bool      `json:"enabled"`
	InFlight bool      `json:"inFlight,omitempty"`
}

// Controls derives the controls a surface shows for a role. With showDisabled the
// full set of role operations is returned, illegal ones disabled; otherwise illegal
// operations are absent.
func Controls(status OrderStatus, role Role, showDisabled bool) []Control {
	allowed := make(map[Operation]bool)
	for _, op := range AllowedOperations(status, role) {
		allowed[op] = true
	}

	controls := make([]Control, 0, len(Operations))
	for _, op := range Operations {
		owner, _ := RoleFor(op)
		if owner != role {
			continue
		}
		if allowed[op] {
			controls = append(controls, Control{Op: op, Enabled: true})
		} else if showDisabled {
			controls = append(controls, Control{Op: op, Enabled: false})
		}
	}
	return controls
}
