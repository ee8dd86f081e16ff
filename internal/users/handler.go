package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	log "github.com/sirupsen/logrus"

	"github.com/musclelog/backend/internal/auth"
	"github.com/musclelog/backend/internal/telemetry/metrics"
	"github.com/musclelog/backend/internal/telemetry/tracing"
	"github.com/musclelog/backend/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=users_mocks_test.go -package=users_test

type usersRepo interface {
	Create(ctx context.Context, userID, passwordHash string) error
	Get(ctx context.Context, userID string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	Delete(ctx context.Context, userID string) error
	Stats(ctx context.Context, userID string) (*Stats, error)
}

var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9]{5,}$`)

// passwordIsValid checks the password policy: at least 8 characters,
// alphanumeric only, with at least one lowercase letter, one uppercase
// letter and one digit.
func passwordIsValid(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLower, hasUpper, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= '0' && c <= '9':
			hasDigit = true
		default:
			return false
		}
	}
	return hasLower && hasUpper && hasDigit
}

type Handler struct {
	repo    usersRepo
	tokens  *auth.TokenService
	metrics *metrics.Manager
}

func NewHandler(repo usersRepo, tokens *auth.TokenService, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		tokens:  tokens,
		metrics: metricsManager,
	}
}

type registerRequest struct {
	UserID          string `json:"user_id"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.register")
	defer span.End()

	var params registerRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		pkg.SendJSONError(w, "register failed", http.StatusBadRequest)
		return
	}

	if params.UserID == "" || params.Password == "" || params.ConfirmPassword == "" {
		pkg.SendJSONError(w, "all fields are required", http.StatusBadRequest)
		return
	}
	if params.Password != params.ConfirmPassword {
		pkg.SendJSONError(w, "passwords do not match", http.StatusBadRequest)
		return
	}
	if !userIDRegex.MatchString(params.UserID) {
		pkg.SendJSONError(w, "user id must be at least 5 alphanumeric characters", http.StatusBadRequest)
		return
	}
	if !passwordIsValid(params.Password) {
		pkg.SendJSONError(
			w,
			"password must be at least 8 characters, with an uppercase letter, a lowercase letter and a digit",
			http.StatusBadRequest,
		)
		return
	}

	passwordHash, err := pkg.HashPassword(params.Password)
	if err != nil {
		log.Errorf("register, failed to hash password: %s", err)
		pkg.SendJSONError(w, "register failed", http.StatusInternalServerError)
		return
	}

	if err := handler.repo.Create(ctx, params.UserID, passwordHash); err != nil {
		if errors.Is(err, ErrUserExists) {
			pkg.SendJSONError(w, "user id already taken", http.StatusBadRequest)
			return
		}
		log.Errorf("register, failed to create user [%s]: %s", params.UserID, err)
		pkg.SendJSONError(w, "register failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterRegisteredUsers.Inc()

	log.Debugf("new user registered: [%s]", params.UserID)
	pkg.SendJSONMessage(w, "user registered", http.StatusCreated)
}

func loginSourceIP(r *http.Request) string {
	ipAddr, err := pkg.ReadUserIP(r)
	if err != nil {
		return "unknown"
	}
	return ipAddr
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	var params loginRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		pkg.SendJSONError(w, "login failed", http.StatusBadRequest)
		return
	}

	if params.UserID == "" || params.Password == "" {
		pkg.SendJSONError(w, "all fields are required", http.StatusBadRequest)
		return
	}

	// an unknown user and a wrong password get the same response, the
	// client must not be able to probe which user ids exist
	user, err := handler.repo.Get(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Warnf("failed login for unknown user [%s] from [%s]", params.UserID, loginSourceIP(r))
			pkg.SendJSONError(w, "user id or password incorrect", http.StatusBadRequest)
			return
		}
		log.Errorf("login, failed to get user [%s]: %s", params.UserID, err)
		pkg.SendJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(params.Password, user.Password) {
		log.Warnf("failed login for user [%s] from [%s]", user.UserID, loginSourceIP(r))
		pkg.SendJSONError(w, "user id or password incorrect", http.StatusBadRequest)
		return
	}

	token, err := handler.tokens.Generate(user.UserID)
	if err != nil {
		log.Errorf("login, failed to generate token for [%s]: %s", user.UserID, err)
		pkg.SendJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(loginResponse{
		Message: "login successful",
		Token:   token,
		UserID:  user.UserID,
	})
	if err != nil {
		log.Errorf("login, failed to marshal response: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Debugf("user [%s] logged in", user.UserID)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (handler *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.changePassword")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var params changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		log.Tracef("change password, unmarshal json params: %s", err)
		pkg.SendJSONError(w, "change password failed", http.StatusBadRequest)
		return
	}

	if params.CurrentPassword == "" || params.NewPassword == "" {
		pkg.SendJSONError(w, "all fields are required", http.StatusBadRequest)
		return
	}
	if !passwordIsValid(params.NewPassword) {
		pkg.SendJSONError(
			w,
			"password must be at least 8 characters, with an uppercase letter, a lowercase letter and a digit",
			http.StatusBadRequest,
		)
		return
	}

	user, err := handler.repo.Get(ctx, userID)
	if err != nil {
		log.Errorf("change password, failed to get user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "change password failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(params.CurrentPassword, user.Password) {
		pkg.SendJSONError(w, "current password incorrect", http.StatusUnauthorized)
		return
	}

	passwordHash, err := pkg.HashPassword(params.NewPassword)
	if err != nil {
		log.Errorf("change password, failed to hash password: %s", err)
		pkg.SendJSONError(w, "change password failed", http.StatusInternalServerError)
		return
	}

	if err := handler.repo.UpdatePassword(ctx, userID, passwordHash); err != nil {
		log.Errorf("change password, failed to update user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "change password failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("user [%s] changed password", userID)
	pkg.SendJSONMessage(w, "password changed", http.StatusOK)
}

func (handler *Handler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.deleteAccount")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := handler.repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.SendJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete account [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to delete account", http.StatusInternalServerError)
		return
	}

	log.Debugf("account [%s] deleted, with all its exercises and records", userID)
	pkg.SendJSONMessage(w, "account deleted", http.StatusOK)
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.stats")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.SendJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	stats, err := handler.repo.Stats(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.SendJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get stats for user [%s]: %s", userID, err)
		pkg.SendJSONError(w, "failed to get stats", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(stats)
	if err != nil {
		log.Errorf("failed to marshal stats: %s", err)
		pkg.SendJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}
