package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devflowhq/devflow/internal/db"
)

func TestAppHandlerErrorEnvelope(t *testing.T) {
	require := require.New(t)

	handler := AppHandler(func(w http.ResponseWriter, r *http.Request) *AppError {
		return appError(db.ErrNotFound)
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/questions/1", nil))

	require.Equal(http.StatusNotFound, rec.Code)
	var body response
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(body.Success)
	require.Equal(http.StatusNotFound, body.Status)
	require.NotNil(body.Error)
	require.NotEmpty(body.Error.Message)
}

func TestAppHandlerSuccessEnvelope(t *testing.T) {
	require := require.New(t)

	handler := AppHandler(func(w http.ResponseWriter, r *http.Request) *AppError {
		return respond(w, http.StatusOK, map[string]int{"views": 3})
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(http.StatusOK, rec.Code)
	var body response
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(body.Success)
	require.Nil(body.Error)
}

func TestAppErrorClassification(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{db.ErrNotFound, http.StatusNotFound},
		{db.ErrUnauthorized, http.StatusUnauthorized},
		{db.ErrForbidden, http.StatusForbidden},
		{db.ErrTooManyTags, http.StatusBadRequest},
		{errors.New("pool broken"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		appErr := appError(c.err)
		if appErr.Code == 0 {
			appErr.Code = http.StatusInternalServerError
		}
		require.Equal(t, c.code, appErr.Code, "for %v", c.err)
	}
}

func TestVoteRequestValidate(t *testing.T) {
	valid := voteRequest{TargetID: 1, TargetType: "question", VoteType: "upvote"}
	require.Nil(t, valid.validate())

	invalid := []voteRequest{
		{TargetID: 0, TargetType: "question", VoteType: "upvote"},
		{TargetID: 1, TargetType: "comment", VoteType: "upvote"},
		{TargetID: 1, TargetType: "answer", VoteType: "sideways"},
	}
	for _, req := range invalid {
		require.NotNil(t, req.validate(), "%+v should be invalid", req)
	}
}
