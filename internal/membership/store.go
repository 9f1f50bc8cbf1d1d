// internal/membership/store.go
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gymnexus/internal/database"
)

// PGStore keeps memberships in PostgreSQL. Lookups by owner go through the
// memberships_user_id_idx index.
type PGStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{
		db:     db,
		tracer: otel.Tracer("gymnexus/membership"),
	}
}

const membershipColumns = `id, user_id, membership_type_id, is_active, start_date, end_date, price`

type scanner interface {
	Scan(dest ...any) error
}

func scanMembership(row scanner) (*Membership, error) {
	m := &Membership{}
	err := row.Scan(&m.ID, &m.UserID, &m.MembershipTypeID, &m.IsActive, &m.StartDate, &m.EndDate, &m.Price)
	if err != nil {
		return nil, err
	}
	m.StartDate = m.StartDate.UTC()
	m.EndDate = m.EndDate.UTC()
	return m, nil
}

func (s *PGStore) InsertMembership(ctx context.Context, m *Membership) error {
	ctx, span := s.tracer.Start(ctx, "membership.insert",
		trace.WithAttributes(
			attribute.String("membership.id", m.ID.String()),
			attribute.String("user.id", m.UserID.String()),
		),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.UserID, m.MembershipTypeID, m.IsActive, m.StartDate, m.EndDate, m.Price)
	if database.IsUniqueViolation(err) {
		return database.ErrConflict
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *PGStore) GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error) {
	ctx, span := s.tracer.Start(ctx, "membership.get",
		trace.WithAttributes(attribute.String("membership.id", id.String())),
	)
	defer span.End()

	m, err := scanMembership(s.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query membership: %w", err)
	}
	return m, nil
}

func (s *PGStore) ListMembershipsByUserID(ctx context.Context, userID uuid.UUID) ([]*Membership, error) {
	ctx, span := s.tracer.Start(ctx, "membership.list_by_user",
		trace.WithAttributes(attribute.String("user.id", userID.String())),
	)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+membershipColumns+`
		FROM memberships
		WHERE user_id = $1
		ORDER BY start_date, id
	`, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var ms []*Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		ms = append(ms, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	span.SetAttributes(attribute.Int("membership.count", len(ms)))
	return ms, nil
}

// UpdateMembership writes every column of m.
func (s *PGStore) UpdateMembership(ctx context.Context, m *Membership) error {
	ctx, span := s.tracer.Start(ctx, "membership.update",
		trace.WithAttributes(attribute.String("membership.id", m.ID.String())),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		UPDATE memberships
		SET user_id = $1, membership_type_id = $2, is_active = $3, start_date = $4, end_date = $5, price = $6
		WHERE id = $7
	`, m.UserID, m.MembershipTypeID, m.IsActive, m.StartDate, m.EndDate, m.Price, m.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update membership: %w", err)
	}
	return nil
}
