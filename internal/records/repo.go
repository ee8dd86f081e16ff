package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/musclelog/backend/internal/telemetry/tracing"
)

var ErrRecordNotFound = errors.New("muscle record not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add stores one set. The muscle value is computed here, whatever the
// client sent for it is ignored.
func (r *Repo) Add(ctx context.Context, record Record) (_ *Record, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	record.MuscleValue = MuscleValueFor(record.Weight, record.Reps)

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO muscle_records (user_id, exercise_id, weight, reps, muscle_value)
			VALUES ($1, $2, $3, $4, $5)
		RETURNING id, recorded_at;`,
		record.UserID, record.ExerciseID, record.Weight, record.Reps, record.MuscleValue,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	if err := rows.Scan(&record.ID, &record.RecordedAt); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	span.SetAttributes(attribute.Int("record.id", record.ID))

	return &record, nil
}

// Update changes weight and reps of the user's record and recomputes
// the muscle value in the same statement.
func (r *Repo) Update(ctx context.Context, userID string, id int, weight float64, reps int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE muscle_records
			SET weight = $1, reps = $2, muscle_value = $3
			WHERE user_id = $4 AND id = $5;`,
		weight, reps, MuscleValueFor(weight, reps), userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, userID string, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM muscle_records WHERE user_id = $1 AND id = $2;`,
		userID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DailySummary returns the user's sets logged today (server date), newest first.
func (r *Repo) DailySummary(ctx context.Context, userID string) (_ []SummaryItem, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.dailySummary")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT e.category, e.name, r.weight, r.reps, r.muscle_value
			FROM muscle_records r
			JOIN exercises e ON e.id = r.exercise_id
			WHERE r.user_id = $1 AND r.recorded_at::date = CURRENT_DATE
			ORDER BY r.recorded_at DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	items := make([]SummaryItem, 0)
	for rows.Next() {
		var item SummaryItem
		if err := rows.Scan(
			&item.Category, &item.ExerciseName, &item.Weight, &item.Reps, &item.MuscleValue,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// Dates returns the distinct days on which the user logged anything,
// formatted YYYY-MM-DD, most recent first.
func (r *Repo) Dates(ctx context.Context, userID string) (_ []string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.dates")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT DISTINCT to_char(recorded_at::date, 'YYYY-MM-DD') AS day
			FROM muscle_records
			WHERE user_id = $1
			ORDER BY day DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	dates := make([]string, 0)
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		dates = append(dates, day)
	}

	return dates, nil
}

// DailyHistory returns the user's sets for one calendar day, newest first.
func (r *Repo) DailyHistory(ctx context.Context, userID string, day time.Time) (_ []HistoryItem, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.dailyHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day.Format("2006-01-02")))

	rows, err := r.db.Query(
		ctx,
		`SELECT r.id, e.category, e.name, r.weight, r.reps, r.muscle_value
			FROM muscle_records r
			JOIN exercises e ON e.id = r.exercise_id
			WHERE r.user_id = $1 AND r.recorded_at::date = $2::date
			ORDER BY r.recorded_at DESC;`,
		userID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	items := make([]HistoryItem, 0)
	for rows.Next() {
		var item HistoryItem
		if err := rows.Scan(
			&item.ID, &item.Category, &item.Exercise, &item.Weight, &item.Reps, &item.MuscleValue,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// CategoryTotals sums muscle values per category over the user's whole history.
func (r *Repo) CategoryTotals(ctx context.Context, userID string) (_ []CategoryTotal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.categoryTotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT e.category, SUM(r.muscle_value)
			FROM muscle_records r
			JOIN exercises e ON e.id = r.exercise_id
			WHERE r.user_id = $1
			GROUP BY e.category
			ORDER BY e.category;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	totals := make([]CategoryTotal, 0)
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.Category, &t.TotalMuscleValue); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		totals = append(totals, t)
	}

	return totals, nil
}

func (r *Repo) OverallTotal(ctx context.Context, userID string) (_ float64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.overallTotal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var total float64
	if err := r.db.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(muscle_value), 0)
			FROM muscle_records
			WHERE user_id = $1;`,
		userID,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("query row scan: %w", err)
	}

	return total, nil
}

// WeeklyByCategory aggregates per ISO week and category. IYYY-IW keys
// sort chronologically as plain strings.
func (r *Repo) WeeklyByCategory(ctx context.Context, userID string) (_ []WeeklyCategoryTotal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.weeklyByCategory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT to_char(r.recorded_at, 'IYYY-IW') AS week, e.category, SUM(r.muscle_value)
			FROM muscle_records r
			JOIN exercises e ON e.id = r.exercise_id
			WHERE r.user_id = $1
			GROUP BY week, e.category
			ORDER BY week;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	totals := make([]WeeklyCategoryTotal, 0)
	for rows.Next() {
		var t WeeklyCategoryTotal
		if err := rows.Scan(&t.Week, &t.Category, &t.Total); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		totals = append(totals, t)
	}

	return totals, nil
}

func (r *Repo) WeeklyTotals(ctx context.Context, userID string) (_ []WeeklyTotal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.records.weeklyTotals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT to_char(recorded_at, 'IYYY-IW') AS week, SUM(muscle_value)
			FROM muscle_records
			WHERE user_id = $1
			GROUP BY week
			ORDER BY week;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	totals := make([]WeeklyTotal, 0)
	for rows.Next() {
		var t WeeklyTotal
		if err := rows.Scan(&t.Week, &t.Total); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		totals = append(totals, t)
	}

	return totals, nil
}
