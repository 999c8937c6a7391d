package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nascon-platform/internal/broker"
	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
	"nascon-platform/internal/testutil"
)

// registerAll registers n fresh participants and returns their participant ids
// in registration order.
func registerAll(t *testing.T, e env, eventID, n int) []int {
	t.Helper()
	ids := make([]int, 0, n)
	for _, u := range e.fx.Users(model.RoleParticipant, n) {
		pid, err := e.svc.Register(context.Background(), u, eventID)
		require.NoError(t, err)
		ids = append(ids, pid)
	}
	return ids
}

func TestSubmitScore_Upsert(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{})
	judge := e.fx.Judge(eventID)
	pid := registerAll(t, e, eventID, 1)[0]

	in := model.ScoreInput{EventID: eventID, ParticipantID: pid, Score: 72.5, Comments: "solid"}
	first, err := e.svc.SubmitScore(ctx, judge, in)
	require.NoError(t, err)
	again, err := e.svc.SubmitScore(ctx, judge, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "repeating a submission keeps the row")

	in.Score = 88
	in.Comments = ""
	_, err = e.svc.SubmitScore(ctx, judge, in)
	require.NoError(t, err)

	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM judging WHERE event_id = $1", eventID))
	scores, err := e.svc.EventScores(ctx, eventID, judge)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.NotNil(t, scores[0].Score)
	assert.InDelta(t, 88, *scores[0].Score, 0.001)
	assert.Nil(t, scores[0].Comments)
	assert.Equal(t, 3, e.pub.Count(broker.ScoreSubmitted))
}

func TestSubmitScore_ReturnsStoredPrecision(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{})
	judge := e.fx.Judge(eventID)
	pid := registerAll(t, e, eventID, 1)[0]

	sc, err := e.svc.SubmitScore(ctx, judge, model.ScoreInput{EventID: eventID, ParticipantID: pid, Score: 99.999})
	require.NoError(t, err)
	require.NotNil(t, sc.Score)
	assert.InDelta(t, 100, *sc.Score, 0.0001, "the response carries the value stored at two decimals")

	scores, err := e.svc.EventScores(ctx, eventID, judge)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, *sc.Score, *scores[0].Score)
}

func TestSubmitScore_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{})
	judge := e.fx.Judge(eventID)
	pid := registerAll(t, e, eventID, 1)[0]

	otherEvent := e.fx.Event(testutil.EventSpec{})
	outsider := e.fx.Judge(otherEvent)

	tests := []struct {
		name    string
		judgeID int
		in      model.ScoreInput
		want    error
	}{
		{"above range", judge, model.ScoreInput{EventID: eventID, ParticipantID: pid, Score: 100.5}, service.ErrInvalidScore},
		{"negative", judge, model.ScoreInput{EventID: eventID, ParticipantID: pid, Score: -1}, service.ErrInvalidScore},
		{"unknown event", judge, model.ScoreInput{EventID: 999, ParticipantID: pid, Score: 50}, service.ErrEventNotFound},
		{"participant of another event", outsider, model.ScoreInput{EventID: otherEvent, ParticipantID: pid, Score: 50}, service.ErrParticipantNotFound},
		{"judge not assigned", outsider, model.ScoreInput{EventID: eventID, ParticipantID: pid, Score: 50}, service.ErrJudgeNotAssigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.SubmitScore(ctx, tt.judgeID, tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM judging WHERE score IS NOT NULL"))
}

func TestLeaderboard_TieBreakAndUnscored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{})
	judge := e.fx.Judge(eventID)
	pids := registerAll(t, e, eventID, 4)
	a, b, c, unscored := pids[0], pids[1], pids[2], pids[3]

	for pid, sc := range map[int]float64{a: 90, b: 95, c: 95} {
		_, err := e.svc.SubmitScore(ctx, judge, model.ScoreInput{EventID: eventID, ParticipantID: pid, Score: sc})
		require.NoError(t, err)
	}

	board, err := e.svc.Leaderboard(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, board, 4)

	order := make([]int, len(board))
	for i, entry := range board {
		order[i] = entry.ParticipantID
		assert.Equal(t, i+1, entry.Rank)
	}
	assert.Equal(t, []int{b, c, a, unscored}, order)
	require.NotNil(t, board[0].AverageScore)
	assert.InDelta(t, 95, *board[0].AverageScore, 0.001)
	assert.Nil(t, board[3].AverageScore)
	assert.Zero(t, board[3].ScoreCount)
}

func TestLeaderboard_AveragesAcrossJudges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{})
	j1 := e.fx.Judge(eventID)
	j2 := e.fx.Judge(eventID)
	j3 := e.fx.Judge(eventID)
	pid := registerAll(t, e, eventID, 1)[0]

	for judge, sc := range map[int]float64{j1: 70, j2: 80, j3: 81} {
		_, err := e.svc.SubmitScore(ctx, judge, model.ScoreInput{EventID: eventID, ParticipantID: pid, Score: sc})
		require.NoError(t, err)
	}

	board, err := e.svc.Leaderboard(ctx, eventID)
	require.NoError(t, err)
	require.Len(t, board, 1)
	require.NotNil(t, board[0].AverageScore)
	assert.InDelta(t, 77, *board[0].AverageScore, 0.001)
	assert.Equal(t, 3, board[0].ScoreCount)

	_, err = e.svc.Leaderboard(ctx, 999)
	require.ErrorIs(t, err, service.ErrEventNotFound)
}

func TestJudgeOverview(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	judge := e.fx.User(model.RoleJudge)

	ov, err := e.svc.JudgeOverview(ctx, judge)
	require.NoError(t, err)
	assert.Equal(t, model.JudgeOverview{}, ov)

	first := e.fx.Event(testutil.EventSpec{})
	second := e.fx.Event(testutil.EventSpec{})
	for _, ev := range []int{first, second} {
		_, err := e.pool.Exec(ctx, "INSERT INTO event_judges(event_id, judge_id) VALUES ($1, $2)", ev, judge)
		require.NoError(t, err)
	}
	firstPIDs := registerAll(t, e, first, 2)
	registerAll(t, e, second, 1)

	_, err = e.svc.SubmitScore(ctx, judge, model.ScoreInput{EventID: first, ParticipantID: firstPIDs[0], Score: 60})
	require.NoError(t, err)

	ov, err = e.svc.JudgeOverview(ctx, judge)
	require.NoError(t, err)
	assert.Equal(t, model.JudgeOverview{EventsAssigned: 2, PendingScores: 2, Results: 1}, ov)

	assigned, err := e.svc.AssignedEvents(ctx, judge)
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	assert.Equal(t, first, assigned[0].EventID)
	assert.Equal(t, 2, assigned[0].ParticipantCount)
	assert.Equal(t, 1, assigned[0].ScoredCount)

	results, err := e.svc.JudgeResults(ctx, judge)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, firstPIDs[0], results[0].WinnerParticipantID)
}

func TestEventJudgingStats(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{})
	judge := e.fx.Judge(eventID)
	pids := registerAll(t, e, eventID, 3)

	for i, sc := range []float64{40, 60} {
		_, err := e.svc.SubmitScore(ctx, judge, model.ScoreInput{EventID: eventID, ParticipantID: pids[i], Score: sc})
		require.NoError(t, err)
	}

	st, err := e.svc.EventJudgingStats(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalScores)
	assert.Equal(t, 1, st.JudgeCount)
	assert.Equal(t, 3, st.ParticipantCount)
	require.NotNil(t, st.AverageScore)
	assert.InDelta(t, 50, *st.AverageScore, 0.001)
}
