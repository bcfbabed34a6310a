package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"github.com/devflowhq/devflow/internal/models"
)

type voteRequest struct {
	TargetID   int    `json:"targetId"`
	TargetType string `json:"targetType"`
	VoteType   string `json:"voteType"`
}

func (req voteRequest) validate() *AppError {
	if req.TargetID <= 0 {
		return badRequest("targetId is required")
	}
	switch models.TargetType(req.TargetType) {
	case models.TargetQuestion, models.TargetAnswer:
	default:
		return badRequest("targetType must be question or answer")
	}
	switch models.VoteType(req.VoteType) {
	case models.VoteTypeUpvote, models.VoteTypeDownvote:
	default:
		return badRequest("voteType must be upvote or downvote")
	}
	return nil
}

func (routes *Routes) PostVote(w http.ResponseWriter, r *http.Request) *AppError {
	actorID := currentUserID(r)
	if actorID == 0 {
		return &AppError{Message: "not authenticated", Code: http.StatusUnauthorized}
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return badRequest("malformed vote request")
	}
	if appErr := req.validate(); appErr != nil {
		return appErr
	}

	err := routes.db.RecordVote(r.Context(), actorID,
		req.TargetID, models.TargetType(req.TargetType), models.VoteType(req.VoteType))
	if err != nil {
		return appError(err)
	}

	// Signal for whoever renders this target that its page is stale.
	hlog.FromRequest(r).Debug().
		Str("target_type", req.TargetType).
		Int("target_id", req.TargetID).
		Msg("vote recorded, target view stale")

	return respond(w, http.StatusOK, nil)
}

func (routes *Routes) GetVoteState(w http.ResponseWriter, r *http.Request) *AppError {
	actorID := currentUserID(r)
	if actorID == 0 {
		return &AppError{Message: "not authenticated", Code: http.StatusUnauthorized}
	}

	targetID, err := strconv.Atoi(r.URL.Query().Get("targetId"))
	if err != nil {
		return badRequest("targetId is required")
	}
	targetType := models.TargetType(r.URL.Query().Get("targetType"))
	if targetType != models.TargetQuestion && targetType != models.TargetAnswer {
		return badRequest("targetType must be question or answer")
	}

	state, err := routes.db.VoteState(r.Context(), actorID, targetID, targetType)
	if err != nil {
		return appError(err)
	}
	return respond(w, http.StatusOK, map[string]models.VoteState{"state": state})
}
