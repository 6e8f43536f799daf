// README: Order service implements guarded state transitions and persistence.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fixgo/internal/realtime"
	"fixgo/internal/types"
)

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order state conflict")
	ErrActiveOrder  = errors.New("client has active order")
	ErrBadRequest   = errors.New("bad request")
	ErrForbidden    = errors.New("actor does not own this order")
)

// Hooks are invoked after a transition commits. Depart starts the tracking
// session for the order; Complete stops it.
type Hooks struct {
	OnDepart   func(ctx context.Context, o *Order)
	OnComplete func(ctx context.Context, o *Order)
}

type Service struct {
	store Store
	bus   realtime.Bus
	hooks Hooks
	log   *zap.Logger
}

func NewService(store Store, bus realtime.Bus, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, bus: bus, log: log}
}

// SetHooks must be called before the service receives traffic.
func (s *Service) SetHooks(h Hooks) { s.hooks = h }

type CreateCommand struct {
	ClientID    types.ID
	ProviderID  types.ID
	Destination types.Point
	ETASeconds  *int
}

type CancelCommand struct {
	OrderID  types.ID
	ClientID types.ID
	Reason   string
}

type AcceptCommand struct {
	OrderID    types.ID
	ProviderID types.ID
}

type DepartCommand struct {
	OrderID    types.ID
	ProviderID types.ID
}

type ArriveCommand struct {
	OrderID    types.ID
	ProviderID types.ID
}

type CompleteCommand struct {
	OrderID    types.ID
	ProviderID types.ID
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (types.ID, error) {
	if cmd.ClientID == "" || cmd.ProviderID == "" {
		return "", ErrBadRequest
	}
	active, err := s.store.HasActiveByClient(ctx, cmd.ClientID)
	if err != nil {
		return "", err
	}
	if active {
		return "", ErrActiveOrder
	}

	id := types.ID(uuid.NewString())
	now := nowUTC()
	o := &Order{
		ID:          id,
		ClientID:    cmd.ClientID,
		ProviderID:  cmd.ProviderID,
		Status:      StatusRequested,
		Destination: cmd.Destination,
		ETASeconds:  cmd.ETASeconds,
		CreatedAt:   now,
	}
	if err := s.store.Create(ctx, o); err != nil {
		return "", err
	}
	s.appendEvent(ctx, id, StatusNone, StatusRequested, "client", &cmd.ClientID)
	s.publish(ctx, o)
	return id, nil
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	_, err := s.transition(ctx, cmd.OrderID, StatusCancelled, "client", &cmd.ClientID, ownedByClient(cmd.ClientID))
	return err
}

func (s *Service) Accept(ctx context.Context, cmd AcceptCommand) error {
	_, err := s.transition(ctx, cmd.OrderID, StatusAccepted, "provider", &cmd.ProviderID, ownedByProvider(cmd.ProviderID))
	return err
}

// Depart moves the order to en_route and starts live tracking.
func (s *Service) Depart(ctx context.Context, cmd DepartCommand) error {
	o, err := s.transition(ctx, cmd.OrderID, StatusEnRoute, "provider", &cmd.ProviderID, ownedByProvider(cmd.ProviderID))
	if err != nil {
		return err
	}
	if s.hooks.OnDepart != nil {
		s.hooks.OnDepart(ctx, o)
	}
	return nil
}

func (s *Service) Arrive(ctx context.Context, cmd ArriveCommand) error {
	_, err := s.transition(ctx, cmd.OrderID, StatusArrived, "provider", &cmd.ProviderID, ownedByProvider(cmd.ProviderID))
	return err
}

// Complete moves the order to done and stops live tracking.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) error {
	o, err := s.transition(ctx, cmd.OrderID, StatusDone, "provider", &cmd.ProviderID, ownedByProvider(cmd.ProviderID))
	if err != nil {
		return err
	}
	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(ctx, o)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

// UpdateProviderPosition overwrites the order's last known provider position.
// Last writer wins; intermediate samples are allowed to be lost.
func (s *Service) UpdateProviderPosition(ctx context.Context, id types.ID, p types.Point) error {
	if err := s.store.UpdateProviderPosition(ctx, id, p); err != nil {
		return err
	}
	if s.bus != nil {
		if err := s.bus.Publish(ctx, realtime.OrderTopic(id)); err != nil {
			s.log.Warn("publishing position change", zap.String("order_id", string(id)), zap.Error(err))
		}
	}
	return nil
}

func ownedByClient(id types.ID) func(*Order) error {
	return func(o *Order) error {
		if o.ClientID != id {
			return ErrForbidden
		}
		return nil
	}
}

func ownedByProvider(id types.ID) func(*Order) error {
	return func(o *Order) error {
		if o.ProviderID != id {
			return ErrForbidden
		}
		return nil
	}
}

// transition performs the guarded CAS transition, appends the state event,
// and publishes the change. Every illegal (state, action) pair fails with
// ErrInvalidState and leaves the order untouched.
func (s *Service) transition(ctx context.Context, id types.ID, to Status, actorType string, actorID *types.ID, guard func(*Order) error) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if guard != nil {
		if err := guard(o); err != nil {
			return nil, err
		}
	}
	if !CanTransition(o.Status, to) {
		return nil, ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, to, o.StatusVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	s.appendEvent(ctx, o.ID, o.Status, to, actorType, actorID)

	updated, err := s.store.Get(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)
	return updated, nil
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actorType string, actorID *types.ID) {
	err := s.store.AppendEvent(ctx, &Event{
		OrderID:    id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actorType,
		ActorID:    actorID,
		CreatedAt:  nowUTC(),
	})
	if err != nil {
		s.log.Warn("appending state event", zap.String("order_id", string(id)), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, o *Order) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, realtime.OrderTopic(o.ID)); err != nil {
		s.log.Warn("publishing order change", zap.String("order_id", string(o.ID)), zap.Error(err))
	}
}

func nowUTC() time.Time { return time.Now().UTC() }
