package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type answerRequest struct {
	QuestionID int    `json:"questionId"`
	Content    string `json:"content"`
}

func (routes *Routes) PostAnswer(w http.ResponseWriter, r *http.Request) *AppError {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("malformed answer")
	}
	if req.QuestionID <= 0 {
		return badRequest("questionId is required")
	}
	if req.Content == "" {
		return badRequest("content is required")
	}

	a, err := routes.db.CreateAnswer(r.Context(), currentUserID(r), req.QuestionID, req.Content)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusCreated, a)
}

func (routes *Routes) DeleteAnswer(w http.ResponseWriter, r *http.Request) *AppError {
	answerID, err := strconv.Atoi(chi.URLParam(r, "answerID"))
	if err != nil || answerID <= 0 {
		return badRequest("invalid answer id")
	}
	if err := routes.db.DeleteAnswer(r.Context(), answerID, currentUserID(r)); err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, nil)
}

func (routes *Routes) GetAnswers(w http.ResponseWriter, r *http.Request) *AppError {
	questionID, appErr := questionIDParam(r)
	if appErr != nil {
		return appErr
	}
	answers, err := routes.db.ListAnswers(r.Context(), questionID)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, answers)
}
