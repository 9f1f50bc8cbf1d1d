// internal/registration/implementation.go
package registration

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
	store     Store
	publisher channel.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures the registration service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new registration service.
func NewService(store Store, publisher channel.Publisher, opts ...Option) Service {
	s := &service{
		store:     store,
		publisher: publisher,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func validate(r Registration) error {
	switch {
	case strings.TrimSpace(r.FirstName) == "" || strings.TrimSpace(r.LastName) == "":
		return fmt.Errorf("%w: first and last name are required", ErrInvalidRegistration)
	case !strings.Contains(r.Email, "@"):
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidRegistration, r.Email)
	case r.BodyFat < 0 || r.Height < 0 || r.Weight < 0:
		return fmt.Errorf("%w: measurements must not be negative", ErrInvalidRegistration)
	}
	return nil
}

// Register persists before publishing, so every announced registration can
// be read back. A failed publish is logged and does not undo the write.
func (s *service) Register(ctx context.Context, r Registration) (*Registration, error) {
	if err := validate(r); err != nil {
		return nil, err
	}
	r.ID = uuid.New()
	r.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	r.BirthDate = r.BirthDate.UTC()

	if err := s.store.SaveRegistration(ctx, &r); err != nil {
		s.logger.ErrorContext(ctx, "failed to save registration", "component", "registration", "error", err)
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}

	ack, err := channel.PublishJSON(ctx, s.publisher, Topic, r)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish registration",
			"component", "registration",
			"registration_id", r.ID,
			"error", err,
		)
		return &r, nil
	}
	s.logger.InfoContext(ctx, "registration saved",
		"component", "registration",
		"registration_id", r.ID,
		"ack", ack.String(),
	)
	return &r, nil
}

func (s *service) GetRegistration(ctx context.Context, id uuid.UUID) (*Registration, error) {
	r, err := s.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration %s: %w", id, err)
	}
	return r, nil
}

func (s *service) ListRegistrations(ctx context.Context) ([]*Registration, error) {
	rs, err := s.store.ListRegistrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	if rs == nil {
		rs = []*Registration{}
	}
	return rs, nil
}
