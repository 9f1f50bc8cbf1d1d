// Package app assembles the gymnexus services from their components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"gymnexus/internal/channel"
	"gymnexus/internal/config"
	"gymnexus/internal/database"
	"gymnexus/internal/discounts"
	"gymnexus/internal/httpx"
	"gymnexus/internal/membership"
	"gymnexus/internal/plans"
	"gymnexus/internal/registration"
	"gymnexus/internal/users"
)

// Channel is a publisher together with a way to join consumer groups.
type Channel struct {
	Publisher channel.Publisher
	Consumers func(group string) channel.Consumer
}

// MemoryChannel wraps an in-process channel.
func MemoryChannel(m *channel.Memory) Channel {
	return Channel{
		Publisher: m,
		Consumers: func(group string) channel.Consumer { return m.Consumer(group) },
	}
}

// PGLogChannel wraps a PostgreSQL backed channel.
func PGLogChannel(l *channel.PGLog) Channel {
	return Channel{
		Publisher: l,
		Consumers: func(group string) channel.Consumer { return l.Consumer(group) },
	}
}

// OpenChannel selects the channel backend named by cfg. The postgres
// backend creates its tables on db.
func OpenChannel(
	ctx context.Context,
	cfg *config.Config,
	db *sql.DB,
	logger *slog.Logger,
	reg prometheus.Registerer,
) (Channel, error) {
	switch cfg.ChannelBackend {
	case config.ChannelBackendMemory:
		return MemoryChannel(channel.NewMemory(reg)), nil
	case config.ChannelBackendPostgres:
		if db == nil {
			return Channel{}, fmt.Errorf("channel backend %q needs a database", cfg.ChannelBackend)
		}
		l := channel.NewPGLog(db,
			channel.WithPollInterval(cfg.PollInterval),
			channel.WithLogger(logger),
			channel.WithPromRegistry(reg),
		)
		if err := l.EnsureSchema(ctx); err != nil {
			return Channel{}, err
		}
		return PGLogChannel(l), nil
	default:
		return Channel{}, fmt.Errorf("unknown channel backend %q", cfg.ChannelBackend)
	}
}

// Deps are the components shared by every service router.
type Deps struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry prometheus.Registerer
	Channel  Channel
}

func (d Deps) router(service string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.RequestLogger(d.Logger))
	if d.Registry != nil {
		r.Use(httpx.Metrics(d.Registry, service))
	}
	r.Get("/healthz", httpx.Healthz)
	return r
}

func (d Deps) createLimiter() func(http.Handler) http.Handler {
	if d.Config.RateLimit <= 0 {
		return nil
	}
	return httpx.RateLimit(d.Config.RateLimit, d.Config.RateBurst)
}

// NewMembershipRouter wires users, membership types, discounts and
// memberships over db and mounts them under /api.
func NewMembershipRouter(db *sql.DB, d Deps) http.Handler {
	group := d.Config.ConsumerGroup
	wait := d.Config.ConsumeWait

	userSvc := users.NewService(users.NewPGStore(db), d.Channel.Consumers(group),
		users.WithLogger(d.Logger),
		users.WithConsumeWait(wait),
	)
	planSvc := plans.NewService(plans.NewPGStore(db), d.Channel.Consumers(group),
		plans.WithLogger(d.Logger),
		plans.WithConsumeWait(wait),
	)
	discountSvc := discounts.NewService(discounts.NewPGStore(db), userSvc, d.Channel.Consumers(group),
		discounts.WithLogger(d.Logger),
		discounts.WithConsumeWait(wait),
	)
	membershipSvc := membership.NewService(
		membership.NewPGStore(db),
		planSvc,
		userSvc,
		discountSvc,
		d.Channel.Consumers(group),
		membership.WithLogger(d.Logger),
		membership.WithConsumeWait(wait),
		membership.WithPromRegistry(d.Registry),
	)

	limit := d.createLimiter()
	r := d.router("membership")
	r.Mount("/api/registration", users.NewHandler(userSvc, d.Channel.Publisher, d.Logger).Routes(limit))
	r.Mount("/api/membershiptypes", plans.NewHandler(planSvc, d.Channel.Publisher, d.Logger).Routes(limit))
	r.Mount("/api/discount", discounts.NewHandler(discountSvc, d.Channel.Publisher, d.Logger).Routes(limit))
	r.Mount("/api/membership", membership.NewHandler(membershipSvc, d.Channel.Publisher, d.Logger).Routes(limit))
	return r
}

// NewRegistrationRouter mounts the personal information intake under
// /api/registration. Stored registrations are announced on the channel.
func NewRegistrationRouter(db *gorm.DB, d Deps) http.Handler {
	svc := registration.NewService(registration.NewGormStore(db), d.Channel.Publisher,
		registration.WithLogger(d.Logger),
	)
	r := d.router("registration")
	r.Mount("/api/registration", registration.NewHandler(svc, d.Logger).Routes(d.createLimiter()))
	return r
}

// OpenDatabase connects to PostgreSQL and creates the service tables.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
