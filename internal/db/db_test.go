package db

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/devflowhq/devflow/internal/models"
)

var testDB SharedDB

func TestMain(m *testing.M) {
	// Migrations load from file://migrations relative to the repo root.
	if err := os.Chdir("./../.."); err != nil {
		panic(err)
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("devflow"),
		tcpostgres.WithUsername("devflow"),
		tcpostgres.WithPassword("devflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Println("skipping db tests, no container runtime:", err)
		os.Exit(0)
	}

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	if err := MigrateUp(dbURL); err != nil {
		panic(err)
	}
	config := &models.EnvConfig{DatabaseURL: dbURL, Debug: true}
	testDB, err = Connect(ctx, config)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

var userSeq int64

func mockUser(t *testing.T) *models.User {
	t.Helper()
	n := atomic.AddInt64(&userSeq, 1)
	user := &models.User{
		Name:  fmt.Sprintf("Pippo %d", n),
		Email: fmt.Sprintf("pippo%d@strana.com", n),
	}
	err := testDB.CreateUser(context.Background(), user, "secret-password")
	require.NoError(t, err)
	return user
}

func mockQuestion(t *testing.T, authorID int, tags ...string) *models.Question {
	t.Helper()
	if tags == nil {
		tags = []string{"banana", "fruit"}
	}
	q, err := testDB.CreateQuestion(context.Background(), authorID,
		"Is banana the best fruit?",
		"Asking for a friend who only eats bananas.",
		tags)
	require.NoError(t, err)
	return q
}

func TestVoteToggleAndFlip(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)
	q := mockQuestion(t, user.ID)

	// Upvote: 0 -> 1.
	err := testDB.RecordVote(ctx, user.ID, q.ID, models.TargetQuestion, models.VoteTypeUpvote)
	require.NoError(err)
	got, err := testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	require.Equal(1, got.Upvotes)
	require.Equal(0, got.Downvotes)

	// Same direction again removes the vote: 1 -> 0, no ledger row left.
	err = testDB.RecordVote(ctx, user.ID, q.ID, models.TargetQuestion, models.VoteTypeUpvote)
	require.NoError(err)
	got, err = testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	require.Equal(0, got.Upvotes)
	up, down, err := testDB.CountVotes(ctx, q.ID, models.TargetQuestion)
	require.NoError(err)
	require.Zero(up)
	require.Zero(down)

	// Downvote after un-voting: downvotes 0 -> 1, upvotes stays 0.
	err = testDB.RecordVote(ctx, user.ID, q.ID, models.TargetQuestion, models.VoteTypeDownvote)
	require.NoError(err)
	got, err = testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	require.Equal(0, got.Upvotes)
	require.Equal(1, got.Downvotes)

	// Flip: exactly one counter down, the other up.
	err = testDB.RecordVote(ctx, user.ID, q.ID, models.TargetQuestion, models.VoteTypeUpvote)
	require.NoError(err)
	got, err = testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	require.Equal(1, got.Upvotes)
	require.Equal(0, got.Downvotes)

	state, err := testDB.VoteState(ctx, user.ID, q.ID, models.TargetQuestion)
	require.NoError(err)
	require.Equal(models.VoteStateUpvoted, state)
}

func TestVoteOnAnswer(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	asker := mockUser(t)
	answerer := mockUser(t)
	q := mockQuestion(t, asker.ID)
	a, err := testDB.CreateAnswer(ctx, answerer.ID, q.ID, "Yes, objectively.")
	require.NoError(err)

	err = testDB.RecordVote(ctx, asker.ID, a.ID, models.TargetAnswer, models.VoteTypeUpvote)
	require.NoError(err)

	answers, err := testDB.ListAnswers(ctx, q.ID)
	require.NoError(err)
	require.Len(answers, 1)
	require.Equal(1, answers[0].Upvotes)

	// The question's own counters are untouched.
	got, err := testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	require.Zero(got.Upvotes)
}

func TestVoteConcurrentDistinctActors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	author := mockUser(t)
	q := mockQuestion(t, author.ID)

	const n = 8
	users := make([]*models.User, n)
	for i := range users {
		users[i] = mockUser(t)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, u := range users {
		wg.Add(1)
		go func(i int, actorID int) {
			defer wg.Done()
			voteType := models.VoteTypeUpvote
			if i%2 == 1 {
				voteType = models.VoteTypeDownvote
			}
			errs[i] = testDB.RecordVote(ctx, actorID, q.ID, models.TargetQuestion, voteType)
		}(i, u.ID)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(err)
	}

	// No lost updates: the denormalized counters equal the ledger counts.
	got, err := testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	up, down, err := testDB.CountVotes(ctx, q.ID, models.TargetQuestion)
	require.NoError(err)
	require.Equal(up, got.Upvotes)
	require.Equal(down, got.Downvotes)
	require.Equal(n, up+down)
}

func TestVoteErrors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)

	err := testDB.RecordVote(ctx, user.ID, 999999, models.TargetQuestion, models.VoteTypeUpvote)
	require.ErrorIs(err, ErrNotFound)

	err = testDB.RecordVote(ctx, 0, 1, models.TargetQuestion, models.VoteTypeUpvote)
	require.ErrorIs(err, ErrUnauthorized)

	err = testDB.RecordVote(ctx, user.ID, 1, models.TargetType("comment"), models.VoteTypeUpvote)
	require.ErrorIs(err, ErrInvalidFormat)
}

func tagCount(t *testing.T, name string) int {
	t.Helper()
	tag, err := testDB.GetTagByName(context.Background(), name)
	require.NoError(t, err)
	return tag.QuestionCount
}

func TestCreateQuestionTags(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)

	q, err := testDB.CreateQuestion(ctx, user.ID,
		"How do I center a div?", "Asking seriously.",
		[]string{"react", "js"})
	require.NoError(err)
	require.Len(q.TagIDs, 2)
	require.ElementsMatch([]string{"react", "js"}, q.Tags)
	require.Equal(1, tagCount(t, "react"))
	require.Equal(1, tagCount(t, "js"))

	// Same names, different case: same tag rows, counts incremented once.
	_, err = testDB.CreateQuestion(ctx, user.ID,
		"Why is my div off-center?", "Follow-up.",
		[]string{"React", "JS"})
	require.NoError(err)
	require.Equal(2, tagCount(t, "react"))
	require.Equal(2, tagCount(t, "js"))
}

func TestEditQuestionTags(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)
	q := mockQuestion(t, user.ID, "tango-react", "tango-js")

	reactBefore := tagCount(t, "tango-react")
	jsBefore := tagCount(t, "tango-js")

	edited, err := testDB.EditQuestion(ctx, q.ID, user.ID,
		q.Title, q.Content, []string{"tango-js", "tango-go"})
	require.NoError(err)
	require.ElementsMatch([]string{"tango-js", "tango-go"}, edited.Tags)
	require.Len(edited.TagIDs, 2)

	require.Equal(reactBefore-1, tagCount(t, "tango-react"))
	require.Equal(jsBefore, tagCount(t, "tango-js"))
	require.Equal(1, tagCount(t, "tango-go"))

	// Reconciling the same set again changes nothing.
	_, err = testDB.EditQuestion(ctx, q.ID, user.ID,
		q.Title, q.Content, []string{"tango-js", "tango-go"})
	require.NoError(err)
	require.Equal(jsBefore, tagCount(t, "tango-js"))
	require.Equal(1, tagCount(t, "tango-go"))
}

func TestRemoveAllTags(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)
	q := mockQuestion(t, user.ID, "whiskey-a", "whiskey-b")

	edited, err := testDB.EditQuestion(ctx, q.ID, user.ID, q.Title, q.Content, nil)
	require.NoError(err)
	require.Empty(edited.TagIDs)

	// Tag rows stay in the vocabulary with question_count back to zero.
	require.Equal(0, tagCount(t, "whiskey-a"))
	require.Equal(0, tagCount(t, "whiskey-b"))
}

func TestEditQuestionAuth(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	owner := mockUser(t)
	other := mockUser(t)
	q := mockQuestion(t, owner.ID)

	_, err := testDB.EditQuestion(ctx, q.ID, other.ID, "Hijacked", "Nope", []string{"x"})
	require.ErrorIs(err, ErrForbidden)

	_, err = testDB.EditQuestion(ctx, 999999, owner.ID, "Gone", "Nope", []string{"x"})
	require.ErrorIs(err, ErrNotFound)
}

func TestAnswerCounters(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	asker := mockUser(t)
	answerer := mockUser(t)
	q := mockQuestion(t, asker.ID)

	a1, err := testDB.CreateAnswer(ctx, answerer.ID, q.ID, "First answer")
	require.NoError(err)
	_, err = testDB.CreateAnswer(ctx, answerer.ID, q.ID, "Second answer")
	require.NoError(err)

	got, err := testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	require.Equal(2, got.Answers)

	require.ErrorIs(testDB.DeleteAnswer(ctx, a1.ID, asker.ID), ErrForbidden)
	require.NoError(testDB.DeleteAnswer(ctx, a1.ID, answerer.ID))

	got, err = testDB.GetQuestion(ctx, q.ID)
	require.NoError(err)
	require.Equal(1, got.Answers)

	_, err = testDB.CreateAnswer(ctx, answerer.ID, 999999, "Orphan")
	require.ErrorIs(err, ErrNotFound)
}

func TestDeleteQuestionCleansUp(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	owner := mockUser(t)
	voter := mockUser(t)
	q := mockQuestion(t, owner.ID, "victor-a", "victor-b")

	a, err := testDB.CreateAnswer(ctx, voter.ID, q.ID, "An answer")
	require.NoError(err)
	require.NoError(testDB.RecordVote(ctx, voter.ID, q.ID, models.TargetQuestion, models.VoteTypeUpvote))
	require.NoError(testDB.RecordVote(ctx, owner.ID, a.ID, models.TargetAnswer, models.VoteTypeUpvote))

	countBefore := tagCount(t, "victor-a")

	require.ErrorIs(testDB.DeleteQuestion(ctx, q.ID, voter.ID), ErrForbidden)
	require.NoError(testDB.DeleteQuestion(ctx, q.ID, owner.ID))

	_, err = testDB.GetQuestion(ctx, q.ID)
	require.ErrorIs(err, ErrNotFound)
	require.Equal(countBefore-1, tagCount(t, "victor-a"))

	up, down, err := testDB.CountVotes(ctx, q.ID, models.TargetQuestion)
	require.NoError(err)
	require.Zero(up + down)
	up, down, err = testDB.CountVotes(ctx, a.ID, models.TargetAnswer)
	require.NoError(err)
	require.Zero(up + down)
}

func TestUserStats(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)
	voter := mockUser(t)

	q := mockQuestion(t, user.ID, "stats-tag")
	_, err := testDB.CreateAnswer(ctx, user.ID, q.ID, "Answering my own question")
	require.NoError(err)
	require.NoError(testDB.RecordVote(ctx, voter.ID, q.ID, models.TargetQuestion, models.VoteTypeUpvote))
	_, err = testDB.IncrementViews(ctx, q.ID)
	require.NoError(err)

	stats, err := testDB.UserStats(ctx, user.ID)
	require.NoError(err)
	require.Equal(1, stats.TotalQuestions)
	require.Equal(1, stats.TotalAnswers)
	// One question, one answer and one combined upvote each clear bronze;
	// a single view clears nothing.
	require.Equal(models.BadgeCounts{Bronze: 3}, stats.Badges)

	_, err = testDB.UserStats(ctx, 999999)
	require.ErrorIs(err, ErrNotFound)
}

func TestToggleSave(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)
	q := mockQuestion(t, user.ID)

	saved, err := testDB.ToggleSave(ctx, user.ID, q.ID)
	require.NoError(err)
	require.True(saved)

	state, err := testDB.BookmarkState(ctx, user.ID, q.ID)
	require.NoError(err)
	require.True(state)

	saved, err = testDB.ToggleSave(ctx, user.ID, q.ID)
	require.NoError(err)
	require.False(saved)

	_, err = testDB.ToggleSave(ctx, user.ID, 999999)
	require.ErrorIs(err, ErrNotFound)
}

func TestAuth(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	user := mockUser(t)

	// Duplicate email is rejected.
	dup := &models.User{Name: "Copy", Email: user.Email}
	require.ErrorIs(testDB.CreateUser(ctx, dup, "secret-password"), ErrEmailAlreadyUsed)

	bad := &models.User{Name: "Bad", Email: "not-an-email"}
	require.ErrorIs(testDB.CreateUser(ctx, bad, "secret-password"), ErrInvalidFormat)

	_, err := testDB.Login(ctx, user.Email, "wrong-password")
	require.ErrorIs(err, ErrUnauthorized)

	token, err := testDB.Login(ctx, user.Email, "secret-password")
	require.NoError(err)

	resolved, err := testDB.UserByToken(ctx, token)
	require.NoError(err)
	require.Equal(user.ID, resolved.ID)

	require.NoError(testDB.Signout(ctx, token))
	_, err = testDB.UserByToken(ctx, token)
	require.ErrorIs(err, ErrUnauthorized)
}
