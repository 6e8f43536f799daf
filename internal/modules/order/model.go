// README: Order aggregate and status definitions.
package order

import (
	"time"

	"fixgo/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusRequested Status = "requested"
	StatusAccepted  Status = "accepted"
	StatusEnRoute   Status = "en_route"
	StatusArrived   Status = "arrived"
	StatusDone      Status = "done"
	StatusCancelled Status = "cancelled"
)

// Order is a single tracked service engagement between a client and a
// provider. Destination is fixed at creation; ProviderPos is overwritten by
// every watcher tick and stays nil until the first position report.
type Order struct {
	ID            types.ID
	ClientID      types.ID
	ProviderID    types.ID
	Status        Status
	StatusVersion int
	Destination   types.Point
	ProviderPos   *types.Point
	// Server-authoritative estimate; clients fall back to the locally
	// computed route duration when absent.
	ETASeconds   *int
	CreatedAt    time.Time
	AcceptedAt   *time.Time
	DepartedAt   *time.Time
	ArrivedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

type Event struct {
	ID         int64
	OrderID    types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  string
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions is the full transition table. Cancellation is reachable
// only from requested; done and cancelled are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusRequested: {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusEnRoute},
	StatusEnRoute:   {StatusArrived},
	StatusArrived:   {StatusDone},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist from s.
func Terminal(s Status) bool {
	return len(AllowedTransitions[s]) == 0
}
