// internal/registration/store.go
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Open connects to the registration database and migrates its schema. A
// dsn that is empty or starts with "file:" opens SQLite; anything else is
// handed to the PostgreSQL driver. An empty dsn yields a shared in-memory
// database.
func Open(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case dsn == "":
		dialector = sqlite.Open("file::memory:?cache=shared")
	case strings.HasPrefix(dsn, "file:"):
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registration database: %w", err)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("failed to enable gorm tracing: %w", err)
	}
	if err := db.AutoMigrate(&Registration{}); err != nil {
		return nil, fmt.Errorf("failed to migrate registration schema: %w", err)
	}
	return db, nil
}

// GormStore keeps registrations through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) SaveRegistration(ctx context.Context, r *Registration) error {
	if result := s.db.WithContext(ctx).Create(r); result.Error != nil {
		return fmt.Errorf("insert registration: %w", result.Error)
	}
	return nil
}

func (s *GormStore) GetRegistration(ctx context.Context, id uuid.UUID) (*Registration, error) {
	var r Registration
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&r)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("query registration: %w", result.Error)
	}
	return &r, nil
}

func (s *GormStore) ListRegistrations(ctx context.Context) ([]*Registration, error) {
	var rs []*Registration
	if result := s.db.WithContext(ctx).Order("created_at, id").Find(&rs); result.Error != nil {
		return nil, fmt.Errorf("query registrations: %w", result.Error)
	}
	return rs, nil
}
