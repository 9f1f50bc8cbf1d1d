// internal/plans/store.go
package plans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PGStore keeps membership types in PostgreSQL.
type PGStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{
		db:     db,
		tracer: otel.Tracer("gymnexus/plans"),
	}
}

func (s *PGStore) InsertMembershipType(ctx context.Context, mt *MembershipType) error {
	ctx, span := s.tracer.Start(ctx, "plans.insert",
		trace.WithAttributes(attribute.String("membership_type.id", mt.ID.String())),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO membership_types (id, name, description, price)
		VALUES ($1, $2, $3, $4)
	`, mt.ID, mt.Name, mt.Description, mt.Price)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert membership type: %w", err)
	}
	return nil
}

func (s *PGStore) GetMembershipType(ctx context.Context, id uuid.UUID) (*MembershipType, error) {
	ctx, span := s.tracer.Start(ctx, "plans.get",
		trace.WithAttributes(attribute.String("membership_type.id", id.String())),
	)
	defer span.End()
	return s.getOne(ctx, span, `SELECT id, name, description, price FROM membership_types WHERE id = $1`, id)
}

// GetMembershipTypeByName returns the first plan with the name, ordered by id.
func (s *PGStore) GetMembershipTypeByName(ctx context.Context, name string) (*MembershipType, error) {
	ctx, span := s.tracer.Start(ctx, "plans.get_by_name",
		trace.WithAttributes(attribute.String("membership_type.name", name)),
	)
	defer span.End()
	return s.getOne(ctx, span, `
		SELECT id, name, description, price
		FROM membership_types
		WHERE name = $1
		ORDER BY id
		LIMIT 1
	`, name)
}

func (s *PGStore) getOne(ctx context.Context, span trace.Span, query string, args ...any) (*MembershipType, error) {
	mt := &MembershipType{}
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&mt.ID, &mt.Name, &mt.Description, &mt.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query membership type: %w", err)
	}
	return mt, nil
}

func (s *PGStore) ListMembershipTypes(ctx context.Context) ([]*MembershipType, error) {
	ctx, span := s.tracer.Start(ctx, "plans.list")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, price
		FROM membership_types
		ORDER BY name, id
	`)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query membership types: %w", err)
	}
	defer rows.Close()

	var mts []*MembershipType
	for rows.Next() {
		mt := &MembershipType{}
		if err := rows.Scan(&mt.ID, &mt.Name, &mt.Description, &mt.Price); err != nil {
			return nil, fmt.Errorf("scan membership type: %w", err)
		}
		mts = append(mts, mt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership types: %w", err)
	}
	return mts, nil
}

func (s *PGStore) UpdateMembershipType(ctx context.Context, mt *MembershipType) error {
	ctx, span := s.tracer.Start(ctx, "plans.update",
		trace.WithAttributes(attribute.String("membership_type.id", mt.ID.String())),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		UPDATE membership_types
		SET name = $1, description = $2, price = $3
		WHERE id = $4
	`, mt.Name, mt.Description, mt.Price, mt.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update membership type: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteMembershipType(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "plans.delete",
		trace.WithAttributes(attribute.String("membership_type.id", id.String())),
	)
	defer span.End()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM membership_types WHERE id = $1`, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete membership type: %w", err)
	}
	return nil
}
