package routes

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/devflowhq/devflow/internal/models"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (routes *Routes) PostSignup(w http.ResponseWriter, r *http.Request) *AppError {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("malformed signup request")
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		return badRequest("name, email and a password of at least 8 characters are required")
	}

	user := &models.User{Name: req.Name, Email: req.Email}
	if err := routes.db.CreateUser(r.Context(), user, req.Password); err != nil {
		return appError(err)
	}
	return respond(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (routes *Routes) PostLogin(w http.ResponseWriter, r *http.Request) *AppError {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("malformed login request")
	}

	token, err := routes.db.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, map[string]string{"token": token})
}

func (routes *Routes) PostSignout(w http.ResponseWriter, r *http.Request) *AppError {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return badRequest("missing bearer token")
	}
	if err := routes.db.Signout(r.Context(), token); err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, nil)
}

func (routes *Routes) GetUserStats(w http.ResponseWriter, r *http.Request) *AppError {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil || userID <= 0 {
		return badRequest("invalid user id")
	}
	stats, err := routes.db.UserStats(r.Context(), userID)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, stats)
}
