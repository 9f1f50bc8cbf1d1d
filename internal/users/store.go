// internal/users/store.go
package users

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

// PGStore keeps users in PostgreSQL.
type PGStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{
		db:     db,
		tracer: otel.Tracer("gymnexus/users"),
	}
}

const userColumns = `id, username, email, created_at, updated_at`

func (s *PGStore) InsertUser(ctx context.Context, user *User, cred *Credential) error {
	ctx, span := s.tracer.Start(ctx, "users.insert",
		trace.WithAttributes(attribute.String("user.id", user.ID.String())),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Username, user.Email, cred.PasswordHash, cred.Salt, user.CreatedAt, user.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return database.ErrConflict
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PGStore) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	ctx, span := s.tracer.Start(ctx, "users.get",
		trace.WithAttributes(attribute.String("user.id", id.String())),
	)
	defer span.End()

	user := &User{}
	err := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

func (s *PGStore) ListUsersByEmail(ctx context.Context, email string) ([]*User, error) {
	ctx, span := s.tracer.Start(ctx, "users.list_by_email")
	defer span.End()
	return s.list(ctx, span, `SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY created_at, id`, email)
}

func (s *PGStore) ListUsersByUsername(ctx context.Context, username string) ([]*User, error) {
	ctx, span := s.tracer.Start(ctx, "users.list_by_username")
	defer span.End()
	return s.list(ctx, span, `SELECT `+userColumns+` FROM users WHERE username = $1 ORDER BY created_at, id`, username)
}

func (s *PGStore) list(ctx context.Context, span trace.Span, query string, args ...any) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user := &User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	span.SetAttributes(attribute.Int("user.count", len(users)))
	return users, nil
}

func (s *PGStore) GetCredential(ctx context.Context, userID uuid.UUID) (*Credential, error) {
	ctx, span := s.tracer.Start(ctx, "users.get_credential",
		trace.WithAttributes(attribute.String("user.id", userID.String())),
	)
	defer span.End()

	cred := &Credential{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash, salt
		FROM users
		WHERE id = $1
	`, userID).Scan(&cred.UserID, &cred.PasswordHash, &cred.Salt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query credential: %w", err)
	}
	return cred, nil
}

func (s *PGStore) UpdateUser(ctx context.Context, user *User, cred *Credential) error {
	ctx, span := s.tracer.Start(ctx, "users.update",
		trace.WithAttributes(attribute.String("user.id", user.ID.String())),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username = $1, email = $2, password_hash = $3, salt = $4, updated_at = $5
		WHERE id = $6
	`, user.Username, user.Email, cred.PasswordHash, cred.Salt, user.UpdatedAt, user.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
