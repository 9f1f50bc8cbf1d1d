// internal/membership/implementation.go
package membership

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"gymnexus/internal/channel"
	"gymnexus/internal/database"
)

// service implements the Service interface.
type service struct {
	store        Store
	catalog      Catalog
	users        UserDirectory
	pricer       *Pricer
	consumer     channel.Consumer
	logger       *slog.Logger
	consumeWait  time.Duration
	now          func() time.Time
	newID        func() uuid.UUID
	promRegistry prometheus.Registerer
	metrics      *engineMetrics
}

// Option configures the membership engine.
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

// WithClock sets the time used to decide whether a discount has expired.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces uuid.New for new memberships.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func WithPromRegistry(reg prometheus.Registerer) Option {
	return func(s *service) { s.promRegistry = reg }
}

// NewService creates a new membership engine.
func NewService(
	store Store,
	catalog Catalog,
	users UserDirectory,
	ledger DiscountLedger,
	consumer channel.Consumer,
	opts ...Option,
) Service {
	s := &service{
		store:       store,
		catalog:     catalog,
		users:       users,
		consumer:    consumer,
		logger:      slog.New(slog.DiscardHandler),
		consumeWait: 5 * time.Second,
		now:         time.Now,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pricer = NewPricer(ledger, s.now)
	s.metrics = newEngineMetrics(s.promRegistry)
	return s
}

func (s *service) CreateMembership(ctx context.Context) (*CreateResult, error) {
	return channel.ProcessOne(ctx, s.consumer, Topic, s.consumeWait,
		func(ctx context.Context, raw json.RawMessage) (*CreateResult, error) {
			return s.ProcessCreate(ctx, raw)
		})
}

func (s *service) ProcessCreate(ctx context.Context, payload []byte) (*CreateResult, error) {
	var m Membership
	if err := channel.DecodeJSON(payload, &m); err != nil {
		return nil, err
	}
	m.StartDate = m.StartDate.UTC().Truncate(time.Microsecond)
	m.EndDate = m.EndDate.UTC().Truncate(time.Microsecond)

	outcome, err := s.create(ctx, &m)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create membership", "component", "membership", "error", err)
		return nil, err
	}
	s.metrics.observe(outcome)
	if outcome != OutcomeCreated {
		s.logger.InfoContext(ctx, "membership not created",
			"component", "membership",
			"outcome", string(outcome),
			"user_id", m.UserID,
			"membership_type_id", m.MembershipTypeID,
		)
		return &CreateResult{Outcome: outcome}, nil
	}
	s.logger.InfoContext(ctx, "membership created",
		"component", "membership",
		"membership_id", m.ID,
		"user_id", m.UserID,
		"price", m.Price.String(),
	)
	return &CreateResult{Outcome: OutcomeCreated, Membership: &m}, nil
}

// create runs the validation steps in order and writes m on success. Only
// the final step writes.
func (s *service) create(ctx context.Context, m *Membership) (Outcome, error) {
	existing, err := s.store.ListMembershipsByUserID(ctx, m.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to list memberships for user %s: %w", m.UserID, err)
	}
	for _, e := range existing {
		if e.UserID == m.UserID && e.sameIntent(m) {
			return OutcomeDuplicate, nil
		}
	}

	plan, err := s.catalog.GetMembershipTypeByID(ctx, m.MembershipTypeID)
	if err != nil {
		return "", fmt.Errorf("failed to get membership type %s: %w", m.MembershipTypeID, err)
	}
	if plan == nil {
		return OutcomePlanNotFound, nil
	}

	m.ID = s.newID()
	taken, err := s.store.GetMembership(ctx, m.ID)
	if err != nil {
		return "", fmt.Errorf("failed to check membership id %s: %w", m.ID, err)
	}
	if taken != nil {
		return OutcomeIDCollision, nil
	}

	user, err := s.users.GetUser(ctx, m.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to get user %s: %w", m.UserID, err)
	}
	if user == nil {
		return OutcomeUserNotFound, nil
	}

	if m.Price, err = s.pricer.Price(ctx, plan.Price, m.UserID); err != nil {
		return "", err
	}

	if err := s.store.InsertMembership(ctx, m); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return OutcomeIDCollision, nil
		}
		return "", fmt.Errorf("failed to insert membership %s: %w", m.ID, err)
	}
	return OutcomeCreated, nil
}

// reprice overwrites m.Price from the plan's current list price. When the
// plan has since been deleted the stored price is left as is.
func (s *service) reprice(ctx context.Context, m *Membership) error {
	plan, err := s.catalog.GetMembershipTypeByID(ctx, m.MembershipTypeID)
	if err != nil {
		return fmt.Errorf("failed to get membership type %s: %w", m.MembershipTypeID, err)
	}
	if plan == nil {
		s.logger.WarnContext(ctx, "membership references a missing plan",
			"component", "membership",
			"membership_id", m.ID,
			"membership_type_id", m.MembershipTypeID,
		)
		return nil
	}
	price, err := s.pricer.Price(ctx, plan.Price, m.UserID)
	if err != nil {
		return err
	}
	m.Price = price
	return nil
}

func (s *service) GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error) {
	m, err := s.store.GetMembership(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership %s: %w", id, err)
	}
	if m == nil {
		s.logger.DebugContext(ctx, "membership not found", "component", "membership", "membership_id", id)
		return nil, nil
	}
	if err := s.reprice(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) GetMembershipsByUserID(ctx context.Context, userID uuid.UUID) ([]*Membership, error) {
	ms, err := s.store.ListMembershipsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships for user %s: %w", userID, err)
	}
	for _, m := range ms {
		if err := s.reprice(ctx, m); err != nil {
			return nil, err
		}
	}
	if ms == nil {
		ms = []*Membership{}
	}
	return ms, nil
}

func (s *service) EditMembership(ctx context.Context, id uuid.UUID, update Membership) (*Membership, error) {
	m, err := s.store.GetMembership(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership %s: %w", id, err)
	}
	if m == nil {
		s.logger.InfoContext(ctx, "membership to edit not found", "component", "membership", "membership_id", id)
		return nil, nil
	}

	m.MembershipTypeID = update.MembershipTypeID
	m.IsActive = update.IsActive
	m.UserID = update.UserID

	plan, err := s.catalog.GetMembershipTypeByID(ctx, m.MembershipTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get membership type %s: %w", m.MembershipTypeID, err)
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, m.MembershipTypeID)
	}
	if m.Price, err = s.pricer.Price(ctx, plan.Price, m.UserID); err != nil {
		return nil, err
	}

	if err := s.store.UpdateMembership(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update membership %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "membership edited",
		"component", "membership",
		"membership_id", m.ID,
		"user_id", m.UserID,
		"price", m.Price.String(),
	)
	return m, nil
}
