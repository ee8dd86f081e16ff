package records

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/musclelog/backend/internal/auth"
	"github.com/musclelog/backend/internal/telemetry/metrics"
	"github.com/musclelog/backend/internal/telemetry/tracing"
	"github.com/musclelog/backend/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=records_mocks_test.go -package=records_test

type recordsRepo interface {
	Add(ctx context.Context, record Record) (*Record, error)
	Update(ctx context.Context, userID string, id int, weight float64, reps int) error
	Delete(ctx context.Context, userID string, id int) error
	DailySummary(ctx context.Context, userID string) ([]SummaryItem, error)
}

type Handler struct {
	repo    recordsRepo
	metrics *metrics.Manager
}

func NewHandler(repo recordsRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
	}
}

type addRecordRequest struct {
	ExerciseID int     `json:"exercise_id"`
	Weight     float64 `json:"weight"`
	Reps       int     `json:"reps"`
}

type addRecordResponse struct {
	Message     string  `json:"message"`
	MuscleValue float64 `json:"muscle_value"`
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var params addRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Tracef("new muscle record, unmarshal json params: %s", err)
		pkg.SendJSONError(w, "add muscle record failed", http.StatusBadRequest)
		return
	}

	if params.ExerciseID <= 0 || params.Weight <= 0 || params.Reps <= 0 {
		pkg.SendJSONError(w, "exercise, weight and reps are required", http.StatusBadRequest)
		return
	}

	record, err := handler.repo.Add(ctx, Record{
		UserID:     userID,
		ExerciseID: params.ExerciseID,
		Weight:     params.Weight,
		Reps:       params.Reps,
	})
	if err != nil {
		log.Errorf("failed to add muscle record for user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to add muscle record", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterMuscleRecords.Inc()

	respJson, err := json.Marshal(addRecordResponse{
		Message:     "muscle record saved",
		MuscleValue: record.MuscleValue,
	})
	if err != nil {
		log.Errorf("failed to marshal add record response: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf(
		"muscle record %d saved for user [%s]: %.1f x %d = %.1f",
		record.ID, userID, record.Weight, record.Reps, record.MuscleValue,
	)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

type dailySummaryResponse struct {
	Records          []SummaryItem `json:"records"`
	TotalMuscleValue float64       `json:"totalMuscleValue"`
}

func (handler *Handler) HandleDailySummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.dailySummary")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := handler.repo.DailySummary(ctx, userID)
	if err != nil {
		log.Errorf("failed to get daily summary for user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to get daily summary", http.StatusInternalServerError)
		return
	}

	if len(items) == 0 {
		pkg.SendJSONMessage(w, "no records for today", http.StatusNotFound)
		return
	}

	var total float64
	for _, item := range items {
		total += item.MuscleValue
	}

	respJson, err := json.Marshal(dailySummaryResponse{
		Records:          items,
		TotalMuscleValue: total,
	})
	if err != nil {
		log.Errorf("failed to marshal daily summary: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

type updateRecordRequest struct {
	Weight float64 `json:"weight"`
	Reps   int     `json:"reps"`
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["record_id"])
	if err != nil {
		pkg.SendJSONError(w, "record id invalid", http.StatusBadRequest)
		return
	}

	var params updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Tracef("update muscle record, unmarshal json params: %s", err)
		pkg.SendJSONError(w, "update muscle record failed", http.StatusBadRequest)
		return
	}

	if params.Weight <= 0 || params.Reps <= 0 {
		pkg.SendJSONError(w, "weight and reps are required", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, userID, id, params.Weight, params.Reps); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			log.Debugf("muscle record %d not found for user [%s]", id, userID)
			pkg.SendJSONError(w, "muscle record not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update muscle record %d: %s", id, err)
		pkg.SendJSONError(w, "failed to update muscle record", http.StatusInternalServerError)
		return
	}

	pkg.SendJSONMessage(w, "muscle record updated", http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.records.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := strconv.Atoi(mux.Vars(r)["record_id"])
	if err != nil {
		pkg.SendJSONError(w, "record id invalid", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			log.Debugf("muscle record %d not found for user [%s]", id, userID)
			pkg.SendJSONError(w, "muscle record not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete muscle record %d: %s", id, err)
		pkg.SendJSONError(w, "failed to delete muscle record", http.StatusInternalServerError)
		return
	}

	pkg.SendJSONMessage(w, "muscle record deleted", http.StatusOK)
}
