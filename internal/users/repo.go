package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/musclelog/backend/internal/telemetry/tracing"
)

var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create stores a new user. The unique constraint on user_id is the
// source of truth for taken names, a prior existence check would race.
func (r *Repo) Create(ctx context.Context, userID, passwordHash string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO users (user_id, password) VALUES ($1, $2);`,
		userID, passwordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var user User
	err = r.db.QueryRow(
		ctx,
		`SELECT user_id, password, created_at FROM users WHERE user_id = $1;`,
		userID,
	).Scan(&user.UserID, &user.Password, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query row scan: %w", err)
	}

	return &user, nil
}

func (r *Repo) UpdatePassword(ctx context.Context, userID, passwordHash string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.updatePassword")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET password = $1 WHERE user_id = $2;`,
		passwordHash, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the user account. Exercises and muscle records go with
// it through the schema's ON DELETE CASCADE, one statement is enough.
func (r *Repo) Delete(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM users WHERE user_id = $1;`,
		userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Stats returns the registration date and the number of distinct days
// on which the user logged at least one set.
func (r *Repo) Stats(ctx context.Context, userID string) (_ *Stats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.users.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var stats Stats
	err = r.db.QueryRow(
		ctx,
		`SELECT
			to_char(u.created_at, 'YYYY-MM-DD'),
			(SELECT COUNT(DISTINCT r.recorded_at::date)
				FROM muscle_records r
				WHERE r.user_id = u.user_id)
		FROM users u
		WHERE u.user_id = $1;`,
		userID,
	).Scan(&stats.RegistrationDate, &stats.WorkoutDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("query row scan: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.days", stats.WorkoutDays))

	return &stats, nil
}
