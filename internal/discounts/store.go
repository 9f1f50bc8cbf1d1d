// internal/discounts/store.go
package discounts

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

// PGStore keeps discounts in PostgreSQL.
type PGStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{
		db:     db,
		tracer: otel.Tracer("gymnexus/discounts"),
	}
}

const discountColumns = `id, user_id, percentage, start_date, end_date, is_active`

type scanner interface {
	Scan(dest ...any) error
}

func scanDiscount(row scanner) (*Discount, error) {
	d := &Discount{}
	if err := row.Scan(&d.ID, &d.UserID, &d.Percentage, &d.StartDate, &d.EndDate, &d.IsActive); err != nil {
		return nil, err
	}
	d.StartDate = d.StartDate.UTC()
	d.EndDate = d.EndDate.UTC()
	return d, nil
}

func (s *PGStore) InsertDiscount(ctx context.Context, d *Discount) error {
	ctx, span := s.tracer.Start(ctx, "discounts.insert",
		trace.WithAttributes(
			attribute.String("discount.id", d.ID.String()),
			attribute.String("user.id", d.UserID.String()),
		),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO discounts (`+discountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.ID, d.UserID, d.Percentage, d.StartDate, d.EndDate, d.IsActive)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert discount: %w", err)
	}
	return nil
}

func (s *PGStore) GetDiscount(ctx context.Context, id uuid.UUID) (*Discount, error) {
	ctx, span := s.tracer.Start(ctx, "discounts.get",
		trace.WithAttributes(attribute.String("discount.id", id.String())),
	)
	defer span.End()

	d, err := scanDiscount(s.db.QueryRowContext(ctx, `SELECT `+discountColumns+` FROM discounts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query discount: %w", err)
	}
	return d, nil
}

func (s *PGStore) ListDiscountsByUserID(ctx context.Context, userID uuid.UUID) ([]*Discount, error) {
	ctx, span := s.tracer.Start(ctx, "discounts.list_by_user",
		trace.WithAttributes(attribute.String("user.id", userID.String())),
	)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+discountColumns+`
		FROM discounts
		WHERE user_id = $1
		ORDER BY start_date DESC, id
	`, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query discounts: %w", err)
	}
	defer rows.Close()

	var ds []*Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan discount: %w", err)
		}
		ds = append(ds, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discounts: %w", err)
	}
	span.SetAttributes(attribute.Int("discount.count", len(ds)))
	return ds, nil
}

func (s *PGStore) UpdateDiscount(ctx context.Context, d *Discount) error {
	ctx, span := s.tracer.Start(ctx, "discounts.update",
		trace.WithAttributes(attribute.String("discount.id", d.ID.String())),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		UPDATE discounts
		SET user_id = $1, percentage = $2, start_date = $3, end_date = $4, is_active = $5
		WHERE id = $6
	`, d.UserID, d.Percentage, d.StartDate, d.EndDate, d.IsActive, d.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update discount: %w", err)
	}
	return nil
}

func (s *PGStore) DeleteDiscount(ctx context.Context, id uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "discounts.delete",
		trace.WithAttributes(attribute.String("discount.id", id.String())),
	)
	defer span.End()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM discounts WHERE id = $1`, id); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete discount: %w", err)
	}
	return nil
}
