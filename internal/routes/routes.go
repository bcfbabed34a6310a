package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/devflowhq/devflow/internal/db"
	"github.com/devflowhq/devflow/internal/models"
)

type Routes struct {
	db     *db.SharedDB
	logger zerolog.Logger
}

func NewRouter(config *models.EnvConfig, sdb *db.SharedDB, logger zerolog.Logger) chi.Router {
	routes := &Routes{db: sdb, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", duration).
			Send()
	}))
	r.Use(routes.authContext)

	r.Post("/signup", AppHandler(routes.PostSignup))
	r.Post("/login", AppHandler(routes.PostLogin))
	r.Post("/signout", AppHandler(routes.PostSignout))

	r.Route("/questions", func(r chi.Router) {
		r.Post("/", AppHandler(routes.PostQuestion))
		r.Get("/{questionID}", AppHandler(routes.GetQuestion))
		r.Put("/{questionID}", AppHandler(routes.PutQuestion))
		r.Delete("/{questionID}", AppHandler(routes.DeleteQuestion))
		r.Post("/{questionID}/views", AppHandler(routes.PostQuestionView))
		r.Post("/{questionID}/save", AppHandler(routes.PostQuestionSave))
		r.Get("/{questionID}/save", AppHandler(routes.GetQuestionSave))
		r.Get("/{questionID}/answers", AppHandler(routes.GetAnswers))
	})
	r.Route("/answers", func(r chi.Router) {
		r.Post("/", AppHandler(routes.PostAnswer))
		r.Delete("/{answerID}", AppHandler(routes.DeleteAnswer))
	})
	r.Route("/votes", func(r chi.Router) {
		r.Post("/", AppHandler(routes.PostVote))
		r.Get("/state", AppHandler(routes.GetVoteState))
	})
	r.Get("/tags", AppHandler(routes.GetTags))
	r.Get("/users/{userID}/stats", AppHandler(routes.GetUserStats))

	return r
}

type AppError struct {
	Message string
	Code    int
	Cause   error
}

type errorBody struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
	Status  int         `json:"status,omitempty"`
}

// AppHandler wraps a handler returning *AppError into the uniform JSON
// envelope: {success:true,data} on the happy path, {success:false,error,
// status} otherwise.
func AppHandler(handler func(w http.ResponseWriter, r *http.Request) *AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appErr := handler(w, r)
		if appErr == nil {
			return
		}
		if appErr.Code == 0 {
			appErr.Code = http.StatusInternalServerError
		}
		if appErr.Message == "" {
			appErr.Message = "Internal server error"
		}
		hlog.FromRequest(r).
			Error().
			Str("request_id", middleware.GetReqID(r.Context())).
			Err(appErr.Cause).
			Msg(appErr.Message)

		writeJSON(w, appErr.Code, response{
			Success: false,
			Error:   &errorBody{Message: appErr.Message},
			Status:  appErr.Code,
		})
	}
}

func respond(w http.ResponseWriter, code int, data interface{}) *AppError {
	writeJSON(w, code, response{Success: true, Data: data})
	return nil
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// appError classifies db-layer errors into the envelope's status codes.
func appError(err error) *AppError {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return &AppError{Message: err.Error(), Code: http.StatusNotFound, Cause: err}
	case errors.Is(err, db.ErrUnauthorized):
		return &AppError{Message: err.Error(), Code: http.StatusUnauthorized, Cause: err}
	case errors.Is(err, db.ErrForbidden):
		return &AppError{Message: err.Error(), Code: http.StatusForbidden, Cause: err}
	case errors.Is(err, db.ErrEmailAlreadyUsed),
		errors.Is(err, db.ErrInvalidFormat),
		errors.Is(err, db.ErrTooManyTags):
		return &AppError{Message: err.Error(), Code: http.StatusBadRequest, Cause: err}
	default:
		return &AppError{Cause: err}
	}
}

func badRequest(msg string) *AppError {
	return &AppError{Message: msg, Code: http.StatusBadRequest}
}

type ctxKey int

const userCtxKey ctxKey = 0

// authContext resolves a Bearer token into the acting user, when present.
// Handlers that need an identity check currentUser themselves.
func (routes *Routes) authContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			user, err := routes.db.UserByToken(r.Context(), token)
			if err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userCtxKey, user))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userCtxKey).(*models.User)
	return user
}

func currentUserID(r *http.Request) int {
	if user := currentUser(r); user != nil {
		return user.ID
	}
	return 0
}
