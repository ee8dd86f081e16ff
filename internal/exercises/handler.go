package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/musclelog/backend/internal/auth"
	"github.com/musclelog/backend/internal/telemetry/tracing"
	"github.com/musclelog/backend/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=exercises_mocks_test.go -package=exercises_test

type exercisesRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	ListByCategory(ctx context.Context, userID, category string) ([]Exercise, error)
	Delete(ctx context.Context, userID string, id int) error
}

type Handler struct {
	repo exercisesRepo
}

func NewHandler(repo exercisesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleListByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.listByCategory")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	category := mux.Vars(r)["category"]
	if category == "" {
		pkg.SendJSONError(w, "category empty", http.StatusBadRequest)
		return
	}

	exercisesList, err := handler.repo.ListByCategory(ctx, userID, category)
	if err != nil {
		log.Errorf("failed to list exercises [%s] [%s]: %s", userID, category, err)
		pkg.SendJSONError(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	exercisesJson, err := json.Marshal(exercisesList)
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, exercisesJson)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var exercise Exercise
	if err := json.NewDecoder(r.Body).Decode(&exercise); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		pkg.SendJSONError(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	if exercise.Name == "" || exercise.Category == "" {
		pkg.SendJSONError(w, "exercise name and category are required", http.StatusBadRequest)
		return
	}

	exercise.UserID = userID

	// duplicates of (user, category, name) are deliberately not rejected
	if _, err := handler.repo.Add(ctx, exercise); err != nil {
		log.Errorf("failed to add exercise [%s] [%s]: %s", exercise.Category, exercise.Name, err)
		pkg.SendJSONError(w, "failed to add exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: [%s] [%s] for user [%s]", exercise.Category, exercise.Name, userID)
	pkg.SendJSONMessage(w, "exercise added", http.StatusCreated)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	idStr := mux.Vars(r)["exercise_id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		pkg.SendJSONError(w, "exercise id invalid", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			log.Debugf("exercise %d not found for user [%s]", id, userID)
			pkg.SendJSONError(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete exercise %d: %s", id, err)
		pkg.SendJSONError(w, "failed to delete exercise", http.StatusInternalServerError)
		return
	}

	pkg.SendJSONMessage(w, "exercise deleted", http.StatusOK)
}
