// internal/plans/implementation.go
package plans

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gymnexus/internal/channel"
)

// service implements the Service interface.
type service struct {
	store       Store
	consumer    channel.Consumer
	logger      *slog.Logger
	consumeWait time.Duration
	newID       func() uuid.UUID
}

// Option configures the catalog service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithConsumeWait(d time.Duration) Option {
	return func(s *service) { s.consumeWait = d }
}

// WithIDGenerator replaces uuid.New for new membership types.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService creates a new membership type catalog.
func NewService(store Store, consumer channel.Consumer, opts ...Option) Service {
	s := &service{
		store:       store,
		consumer:    consumer,
		logger:      slog.New(slog.DiscardHandler),
		consumeWait: 5 * time.Second,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validate(mt MembershipType) error {
	if strings.TrimSpace(mt.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrMalformedPayload)
	}
	if mt.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrMalformedPayload)
	}
	return nil
}

func (s *service) CreateMembershipType(ctx context.Context) (*CreateResult, error) {
	return channel.ProcessOne(ctx, s.consumer, Topic, s.consumeWait, s.ProcessCreate)
}

// ProcessCreate stores mt under a new id; any id carried by the request is
// ignored.
func (s *service) ProcessCreate(ctx context.Context, mt MembershipType) (*CreateResult, error) {
	if err := validate(mt); err != nil {
		return nil, err
	}
	mt.ID = s.newID()
	mt.Name = strings.TrimSpace(mt.Name)
	if err := s.store.InsertMembershipType(ctx, &mt); err != nil {
		s.logger.ErrorContext(ctx, "failed to create membership type", "component", "plans", "error", err)
		return nil, fmt.Errorf("failed to create membership type: %w", err)
	}
	s.logger.InfoContext(ctx, "membership type created",
		"component", "plans",
		"membership_type_id", mt.ID,
		"name", mt.Name,
	)
	return &CreateResult{Outcome: OutcomeCreated, MembershipType: &mt}, nil
}

// GetMembershipTypeByID returns (nil, nil) when the plan does not exist.
func (s *service) GetMembershipTypeByID(ctx context.Context, id uuid.UUID) (*MembershipType, error) {
	mt, err := s.store.GetMembershipType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership type %s: %w", id, err)
	}
	return mt, nil
}

// GetMembershipTypeByName returns (nil, nil) when no plan has the name.
func (s *service) GetMembershipTypeByName(ctx context.Context, name string) (*MembershipType, error) {
	mt, err := s.store.GetMembershipTypeByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("failed to get membership type %q: %w", name, err)
	}
	return mt, nil
}

func (s *service) ListMembershipTypes(ctx context.Context) ([]*MembershipType, error) {
	mts, err := s.store.ListMembershipTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list membership types: %w", err)
	}
	if mts == nil {
		mts = []*MembershipType{}
	}
	return mts, nil
}

func (s *service) UpdateMembershipType(ctx context.Context, mt MembershipType) (Outcome, error) {
	if err := validate(mt); err != nil {
		return "", err
	}
	existing, err := s.store.GetMembershipType(ctx, mt.ID)
	if err != nil {
		return "", fmt.Errorf("failed to get membership type %s: %w", mt.ID, err)
	}
	if existing == nil {
		return OutcomeNotFound, nil
	}
	mt.Name = strings.TrimSpace(mt.Name)
	if err := s.store.UpdateMembershipType(ctx, &mt); err != nil {
		return "", fmt.Errorf("failed to update membership type %s: %w", mt.ID, err)
	}
	s.logger.InfoContext(ctx, "membership type updated", "component", "plans", "membership_type_id", mt.ID)
	return OutcomeUpdated, nil
}

// DeleteMembershipType removes the plan. Deleting an absent plan is not an
// error. Memberships referencing the plan are left in place.
func (s *service) DeleteMembershipType(ctx context.Context, id uuid.UUID) (Outcome, error) {
	if err := s.store.DeleteMembershipType(ctx, id); err != nil {
		return "", fmt.Errorf("failed to delete membership type %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "membership type deleted", "component", "plans", "membership_type_id", id)
	return OutcomeDeleted, nil
}
