package records

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/musclelog/backend/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=analyzer_mocks_test.go -package=records_test

type weeklyRepo interface {
	WeeklyByCategory(ctx context.Context, userID string) ([]WeeklyCategoryTotal, error)
	WeeklyTotals(ctx context.Context, userID string) ([]WeeklyTotal, error)
}

// Analyzer turns the sparse weekly aggregation rows into a dense
// per-week table the charts on the client can consume directly.
type Analyzer struct {
	repo weeklyRepo
}

func NewAnalyzer(repo weeklyRepo) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// WeekRow is one row of the weekly view: the week key, the overall
// total, and a value for every category the user has ever trained.
// Weeks where a category was not trained carry an explicit zero.
type WeekRow struct {
	Week        string
	TotalMuscle float64
	Categories  map[string]float64
}

// MarshalJSON flattens the category map into the row object, so a row
// serializes as {"week": ..., "total_muscle": ..., "chest": ..., "back": ...}.
func (row WeekRow) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(row.Categories)+2)
	flat["week"] = row.Week
	flat["total_muscle"] = row.TotalMuscle
	for category, value := range row.Categories {
		flat[category] = value
	}
	return json.Marshal(flat)
}

// WeeklyData builds the dense weekly table, oldest week first. Every row
// has the same category keys: the union of categories seen across the
// user's whole history, zero-filled where a week has no sets for one.
func (a *Analyzer) WeeklyData(ctx context.Context, userID string) (_ []WeekRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.records.weeklyData")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	byCategory, err := a.repo.WeeklyByCategory(ctx, userID)
	if err != nil {
		return nil, err
	}
	totals, err := a.repo.WeeklyTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	categorySet := make(map[string]struct{})
	for _, row := range byCategory {
		categorySet[row.Category] = struct{}{}
	}

	weekSet := make(map[string]struct{})
	for _, t := range totals {
		weekSet[t.Week] = struct{}{}
	}
	for _, row := range byCategory {
		weekSet[row.Week] = struct{}{}
	}

	// IYYY-IW keys sort chronologically as strings
	weeks := make([]string, 0, len(weekSet))
	for week := range weekSet {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)

	rowsByWeek := make(map[string]*WeekRow, len(weeks))
	for _, week := range weeks {
		categories := make(map[string]float64, len(categorySet))
		for category := range categorySet {
			categories[category] = 0
		}
		rowsByWeek[week] = &WeekRow{Week: week, Categories: categories}
	}

	for _, t := range totals {
		rowsByWeek[t.Week].TotalMuscle = t.Total
	}
	for _, row := range byCategory {
		rowsByWeek[row.Week].Categories[row.Category] = row.Total
	}

	weeklyData := make([]WeekRow, 0, len(weeks))
	for _, week := range weeks {
		weeklyData = append(weeklyData, *rowsByWeek[week])
	}

	return weeklyData, nil
}
