// internal/users/implementation.go
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"gymnexus/internal/channel"
	"gymnexus/internal/database"
)

// service implements the Service interface.
type service struct {
	store        Store
	consumer     channel.Consumer
	logger       *slog.Logger
	consumeWait  time.Duration
	loginLimiter *rate.Limiter
	now          func() time.Time
}

// Option configures the user service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithConsumeWait bounds how long RegisterUser waits for a message.
func WithConsumeWait(d time.Duration) Option {
	return func(s *service) { s.consumeWait = d }
}

// WithLoginLimiter replaces the default login limiter of 5 attempts per
// minute.
func WithLoginLimiter(l *rate.Limiter) Option {
	return func(s *service) {
		if l != nil {
			s.loginLimiter = l
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

// NewService creates a new user service instance.
func NewService(store Store, consumer channel.Consumer, opts ...Option) Service {
	s := &service{
		store:        store,
		consumer:     consumer,
		logger:       slog.New(slog.DiscardHandler),
		consumeWait:  5 * time.Second,
		loginLimiter: rate.NewLimiter(rate.Every(1*time.Minute/5), 5),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser consumes one registration request and processes it.
func (s *service) RegisterUser(ctx context.Context) (*RegisterResult, error) {
	return channel.ProcessOne(ctx, s.consumer, Topic, s.consumeWait, s.ProcessRegister)
}

// ProcessRegister registers a user unless the id is taken or a user with the
// same email already uses the username.
func (s *service) ProcessRegister(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrMalformedPayload)
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}

	existing, err := s.store.GetUser(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %s: %w", req.ID, err)
	}
	if existing != nil {
		s.logger.InfoContext(ctx, "user id already exists", "component", "users", "user_id", req.ID)
		return &RegisterResult{Outcome: OutcomeIDExists}, nil
	}

	sameEmail, err := s.store.ListUsersByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to list users by email: %w", err)
	}
	for _, u := range sameEmail {
		if u.Username == req.Username {
			s.logger.InfoContext(ctx, "username already taken for email",
				"component", "users",
				"username", req.Username,
			)
			return &RegisterResult{Outcome: OutcomeUsernameTaken}, nil
		}
	}

	hash, salt, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := s.now().UTC().Truncate(time.Microsecond)
	user := &User{
		ID:        req.ID,
		Username:  req.Username,
		Email:     req.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.InsertUser(ctx, user, &Credential{UserID: user.ID, PasswordHash: hash, Salt: salt})
	if errors.Is(err, database.ErrConflict) {
		// registered concurrently between the lookup and the insert
		return &RegisterResult{Outcome: OutcomeIDExists}, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to register user", "component", "users", "error", err)
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", "component", "users", "user_id", user.ID)
	return &RegisterResult{Outcome: OutcomeRegistered, User: user}, nil
}

// GetUser retrieves a user by id. It returns (nil, nil) when absent.
func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail returns the earliest registered user with the email.
func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	users, err := s.ListUsersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (s *service) ListUsersByEmail(ctx context.Context, email string) ([]*User, error) {
	users, err := s.store.ListUsersByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to list users by email: %w", err)
	}
	if users == nil {
		users = []*User{}
	}
	return users, nil
}

// Authenticate verifies a login, which may be a username or an email, and
// returns the matching user.
func (s *service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	if !s.loginLimiter.Allow() {
		return nil, ErrRateLimited
	}

	login = strings.TrimSpace(login)
	candidates, err := s.store.ListUsersByUsername(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	byEmail, err := s.store.ListUsersByEmail(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	candidates = append(candidates, byEmail...)

	for _, user := range candidates {
		cred, err := s.store.GetCredential(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		if cred == nil {
			continue
		}
		ok, err := verifyPassword(password, cred.Salt, cred.PasswordHash)
		if err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		if ok {
			return user, nil
		}
	}
	s.logger.InfoContext(ctx, "login rejected", "component", "users")
	return nil, ErrInvalidCredentials
}

// EditUser overwrites username, email and password. It returns (nil, nil)
// and writes nothing when the user does not exist.
func (s *service) EditUser(ctx context.Context, id uuid.UUID, req EditRequest) (*User, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrMalformedPayload)
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	if user == nil {
		s.logger.InfoContext(ctx, "user not found for edit", "component", "users", "user_id", id)
		return nil, nil
	}

	hash, salt, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.Username = strings.TrimSpace(req.Username)
	user.Email = strings.TrimSpace(req.Email)
	user.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)
	if err := s.store.UpdateUser(ctx, user, &Credential{UserID: id, PasswordHash: hash, Salt: salt}); err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "user edited", "component", "users", "user_id", id)
	return user, nil
}
