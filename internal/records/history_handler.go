package records

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/musclelog/backend/internal/auth"
	"github.com/musclelog/backend/internal/telemetry/tracing"
	"github.com/musclelog/backend/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=history_mocks_test.go -package=records_test

type historyRepo interface {
	Dates(ctx context.Context, userID string) ([]string, error)
	DailyHistory(ctx context.Context, userID string, day time.Time) ([]HistoryItem, error)
	CategoryTotals(ctx context.Context, userID string) ([]CategoryTotal, error)
	OverallTotal(ctx context.Context, userID string) (float64, error)
}

// HistoryHandler serves the read-only history and stats views.
type HistoryHandler struct {
	repo     historyRepo
	analyzer *Analyzer
}

func NewHistoryHandler(repo historyRepo, analyzer *Analyzer) *HistoryHandler {
	return &HistoryHandler{
		repo:     repo,
		analyzer: analyzer,
	}
}

type datesResponse struct {
	Dates []string `json:"dates"`
}

func (handler *HistoryHandler) HandleDates(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.dates")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	dates, err := handler.repo.Dates(ctx, userID)
	if err != nil {
		log.Errorf("failed to get workout dates for user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to get workout dates", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(datesResponse{Dates: dates})
	if err != nil {
		log.Errorf("failed to marshal workout dates: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

type dailyHistoryResponse struct {
	DailyHistory []HistoryItem `json:"dailyHistory"`
}

func (handler *HistoryHandler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.daily")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	dateParam := r.URL.Query().Get("date")
	if dateParam == "" {
		pkg.SendJSONError(w, "date is required", http.StatusBadRequest)
		return
	}
	day, err := time.Parse("2006-01-02", dateParam)
	if err != nil {
		pkg.SendJSONError(w, "date invalid, use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	items, err := handler.repo.DailyHistory(ctx, userID, day)
	if err != nil {
		log.Errorf("failed to get daily history for user [%s] [%s]: %s", userID, dateParam, err)
		pkg.SendJSONError(w, "failed to get daily history", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(dailyHistoryResponse{DailyHistory: items})
	if err != nil {
		log.Errorf("failed to marshal daily history: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

type totalsResponse struct {
	CategoryTotals []CategoryTotal `json:"categoryTotals"`
	OverallTotal   float64         `json:"overallTotal"`
}

func (handler *HistoryHandler) HandleTotals(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.totals")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	categoryTotals, err := handler.repo.CategoryTotals(ctx, userID)
	if err != nil {
		log.Errorf("failed to get category totals for user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to get totals", http.StatusInternalServerError)
		return
	}

	overall, err := handler.repo.OverallTotal(ctx, userID)
	if err != nil {
		log.Errorf("failed to get overall total for user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to get totals", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(totalsResponse{
		CategoryTotals: categoryTotals,
		OverallTotal:   overall,
	})
	if err != nil {
		log.Errorf("failed to marshal totals: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

type weeklyResponse struct {
	WeeklyData []WeekRow `json:"weeklyData"`
}

func (handler *HistoryHandler) HandleWeekly(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.history.weekly")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	weeklyData, err := handler.analyzer.WeeklyData(ctx, userID)
	if err != nil {
		log.Errorf("failed to get weekly data for user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to get weekly data", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(weeklyResponse{WeeklyData: weeklyData})
	if err != nil {
		log.Errorf("failed to marshal weekly data: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}
