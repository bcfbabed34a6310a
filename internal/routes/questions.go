package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/devflowhq/devflow/internal/db"
)

type questionRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (req questionRequest) validate() *AppError {
	if req.Title == "" {
		return badRequest("title is required")
	}
	if req.Content == "" {
		return badRequest("content is required")
	}
	if len(req.Tags) == 0 || len(req.Tags) > db.LimitMaxTags {
		return badRequest("between 1 and 5 tags are required")
	}
	for _, tag := range req.Tags {
		if len(tag) == 0 || len(tag) > db.LimitMaxTagLen {
			return badRequest("tag names must be 1-30 characters")
		}
	}
	return nil
}

func questionIDParam(r *http.Request) (int, *AppError) {
	id, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil || id <= 0 {
		return 0, badRequest("invalid question id")
	}
	return id, nil
}

func (routes *Routes) PostQuestion(w http.ResponseWriter, r *http.Request) *AppError {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("malformed question")
	}
	if appErr := req.validate(); appErr != nil {
		return appErr
	}

	q, err := routes.db.CreateQuestion(r.Context(), currentUserID(r), req.Title, req.Content, req.Tags)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusCreated, q)
}

func (routes *Routes) PutQuestion(w http.ResponseWriter, r *http.Request) *AppError {
	questionID, appErr := questionIDParam(r)
	if appErr != nil {
		return appErr
	}
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("malformed question")
	}
	if appErr := req.validate(); appErr != nil {
		return appErr
	}

	q, err := routes.db.EditQuestion(r.Context(), questionID, currentUserID(r), req.Title, req.Content, req.Tags)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, q)
}

func (routes *Routes) GetQuestion(w http.ResponseWriter, r *http.Request) *AppError {
	questionID, appErr := questionIDParam(r)
	if appErr != nil {
		return appErr
	}
	q, err := routes.db.GetQuestion(r.Context(), questionID)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, q)
}

func (routes *Routes) DeleteQuestion(w http.ResponseWriter, r *http.Request) *AppError {
	questionID, appErr := questionIDParam(r)
	if appErr != nil {
		return appErr
	}
	if err := routes.db.DeleteQuestion(r.Context(), questionID, currentUserID(r)); err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, nil)
}

func (routes *Routes) PostQuestionView(w http.ResponseWriter, r *http.Request) *AppError {
	questionID, appErr := questionIDParam(r)
	if appErr != nil {
		return appErr
	}
	views, err := routes.db.IncrementViews(r.Context(), questionID)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, map[string]int{"views": views})
}

func (routes *Routes) PostQuestionSave(w http.ResponseWriter, r *http.Request) *AppError {
	questionID, appErr := questionIDParam(r)
	if appErr != nil {
		return appErr
	}
	saved, err := routes.db.ToggleSave(r.Context(), currentUserID(r), questionID)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, map[string]bool{"saved": saved})
}

func (routes *Routes) GetQuestionSave(w http.ResponseWriter, r *http.Request) *AppError {
	questionID, appErr := questionIDParam(r)
	if appErr != nil {
		return appErr
	}
	saved, err := routes.db.BookmarkState(r.Context(), currentUserID(r), questionID)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, map[string]bool{"saved": saved})
}

func (routes *Routes) GetTags(w http.ResponseWriter, r *http.Request) *AppError {
	tags, err := routes.db.ListTags(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, tags)
}
