// internal/discounts/implementation.go
package discounts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gymnexus/internal/channel"
)

// service implements the Service interface.
type service struct {
	store       Store
	users       UserDirectory
	consumer    channel.Consumer
	logger      *slog.Logger
	consumeWait time.Duration
	now         func() time.Time
	newID       func() uuid.UUID
}

// Option configures the discount ledger.
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

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(s *service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService creates a new discount ledger.
func NewService(store Store, users UserDirectory, consumer channel.Consumer, opts ...Option) Service {
	s := &service{
		store:       store,
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
	return s
}

func normalize(d *Discount) {
	d.StartDate = d.StartDate.UTC().Truncate(time.Microsecond)
	d.EndDate = d.EndDate.UTC().Truncate(time.Microsecond)
}

func (s *service) CreateDiscount(ctx context.Context) (*CreateResult, error) {
	return channel.ProcessOne(ctx, s.consumer, Topic, s.consumeWait, s.ProcessCreate)
}

func (s *service) ProcessCreate(ctx context.Context, d Discount) (*CreateResult, error) {
	user, err := s.users.GetUser(ctx, d.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", d.UserID, err)
	}
	if user == nil {
		s.logger.InfoContext(ctx, "discount owner does not exist", "component", "discounts", "user_id", d.UserID)
		return &CreateResult{Outcome: UserNotFoundOutcome(d.UserID)}, nil
	}

	d.ID = s.newID()
	normalize(&d)
	if err := s.store.InsertDiscount(ctx, &d); err != nil {
		s.logger.ErrorContext(ctx, "failed to create discount", "component", "discounts", "error", err)
		return nil, fmt.Errorf("failed to create discount: %w", err)
	}
	s.logger.InfoContext(ctx, "discount created",
		"component", "discounts",
		"discount_id", d.ID,
		"user_id", d.UserID,
		"percentage", d.Percentage.String(),
	)
	return &CreateResult{Outcome: OutcomeCreated, Discount: &d}, nil
}

func (s *service) GetDiscountByID(ctx context.Context, id uuid.UUID) (*Discount, error) {
	d, err := s.store.GetDiscount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get discount %s: %w", id, err)
	}
	return d, nil
}

func (s *service) GetDiscountByUserID(ctx context.Context, userID uuid.UUID) (*Discount, error) {
	ds, err := s.store.ListDiscountsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts for user %s: %w", userID, err)
	}
	return Select(ds, s.now()), nil
}

func (s *service) ListDiscountsByUserID(ctx context.Context, userID uuid.UUID) ([]*Discount, error) {
	ds, err := s.store.ListDiscountsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts for user %s: %w", userID, err)
	}
	if ds == nil {
		ds = []*Discount{}
	}
	return ds, nil
}

// UpdateDiscount overwrites every field of an existing discount. The owner
// is not re-validated.
func (s *service) UpdateDiscount(ctx context.Context, d Discount) (Outcome, error) {
	existing, err := s.store.GetDiscount(ctx, d.ID)
	if err != nil {
		return "", fmt.Errorf("failed to get discount %s: %w", d.ID, err)
	}
	if existing == nil {
		return OutcomeNotFound, nil
	}
	normalize(&d)
	if err := s.store.UpdateDiscount(ctx, &d); err != nil {
		return "", fmt.Errorf("failed to update discount %s: %w", d.ID, err)
	}
	s.logger.InfoContext(ctx, "discount updated", "component", "discounts", "discount_id", d.ID)
	return OutcomeUpdated, nil
}

func (s *service) DeleteDiscount(ctx context.Context, id uuid.UUID) (Outcome, error) {
	if err := s.store.DeleteDiscount(ctx, id); err != nil {
		return "", fmt.Errorf("failed to delete discount %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "discount deleted", "component", "discounts", "discount_id", id)
	return OutcomeDeleted, nil
}
