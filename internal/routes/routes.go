package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gitlab.com/commonsward/commune/internal/db"
	"gitlab.com/commonsward/commune/internal/models"
)

type ctxKey int

const (
	UserHCtxKey ctxKey = iota
	SpaceHCtxKey
)

type Routes struct {
	db      *db.SharedDB
	gateway models.PaymentGateway
	logger  zerolog.Logger
}

func NewRouter(database *db.SharedDB, gateway models.PaymentGateway, logger zerolog.Logger) chi.Router {
	routes := &Routes{db: database, gateway: gateway, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(hlog.NewHandler(logger))
	r.Use(routes.UserCtx)

	r.Post("/signup", routes.AppHandler(routes.PostSignup))
	r.Post("/login", routes.AppHandler(routes.PostLogin))
	r.With(routes.EnforceAuth).Post("/signout", routes.AppHandler(routes.PostSignout))

	r.Route("/users", routes.UserRouter)
	r.Route("/spaces", routes.SpaceRouter)
	r.Route("/billing", routes.BillingRouter)

	return r
}

type AppError struct {
	Message string
	Code    int
	Cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

// appErrorFor maps domain error kinds to HTTP responses; each kind in
// internal/models stays a distinct, user-displayable condition.
func appErrorFor(err error) *AppError {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNotAMember):
		return &AppError{Message: err.Error(), Code: http.StatusNotFound, Cause: err}
	case errors.Is(err, models.ErrNotAuthorized),
		errors.Is(err, models.ErrForbidden),
		errors.Is(err, models.ErrVisibilityDenied):
		return &AppError{Message: err.Error(), Code: http.StatusForbidden, Cause: err}
	case errors.Is(err, models.ErrAlreadyMember),
		errors.Is(err, models.ErrDuplicatePending),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrEmailAlreadyUsed):
		return &AppError{Message: err.Error(), Code: http.StatusConflict, Cause: err}
	case errors.Is(err, models.ErrInvalidFormat), errors.Is(err, models.ErrBadReferralCode):
		return &AppError{Message: err.Error(), Code: http.StatusBadRequest, Cause: err}
	default:
		return &AppError{Cause: err}
	}
}

func (routes *Routes) AppHandler(handler func(w http.ResponseWriter, r *http.Request) *AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appErr := handler(w, r)
		if appErr == nil {
			return
		}
		if appErr.Code == 0 {
			appErr.Code = http.StatusInternalServerError
		}
		if appErr.Message == "" {
			appErr.Message = "internal server error"
		}
		hlog.FromRequest(r).
			Error().
			Str("request_id", middleware.GetReqID(r.Context())).
			Err(appErr.Cause).
			Msg(appErr.Message)
		renderJSON(w, appErr.Code, map[string]string{"error": appErr.Message})
	}
}

func renderJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// UserCtx resolves the bearer token to a user handle when present; routes
// that require one gate on EnforceAuth.
func (routes *Routes) UserCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token != "" {
			uH, err := routes.db.GetUserH(r.Context(), token)
			if err == nil {
				ctx := context.WithValue(r.Context(), UserHCtxKey, &uH)
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (routes *Routes) EnforceAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(UserHCtxKey).(*db.UserH); !ok {
			renderJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}

func userH(r *http.Request) *db.UserH {
	uH, _ := r.Context().Value(UserHCtxKey).(*db.UserH)
	return uH
}
