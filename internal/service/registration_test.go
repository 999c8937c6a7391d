package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/broker"
	"nascon-platform/internal/model"
	"nascon-platform/internal/service"
	"nascon-platform/internal/testutil"
)

type env struct {
	pool *pgxpool.Pool
	svc  *service.Service
	fx   *testutil.Fixtures
	pub  *testutil.RecordingPublisher
}

func newEnv(t *testing.T) env {
	t.Helper()
	pool := testutil.Postgres(t)
	pub := &testutil.RecordingPublisher{}
	return env{
		pool: pool,
		svc:  service.New(pool, zerolog.Nop(), service.WithPublisher(pub)),
		fx:   testutil.NewFixtures(t, pool),
		pub:  pub,
	}
}

func TestRegister_Success(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{MaxParticipants: 10, Fee: 25})
	judgeA := e.fx.Judge(eventID)
	judgeB := e.fx.Judge(eventID)
	user := e.fx.User(model.RoleParticipant)

	pid, err := e.svc.Register(ctx, user, eventID)
	require.NoError(t, err)
	assert.Positive(t, pid)

	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM participants WHERE event_id = $1", eventID))
	// one placeholder row per assigned judge
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM judging WHERE participant_id = $1 AND judge_id = $2 AND score IS NULL", pid, judgeA))
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM judging WHERE participant_id = $1 AND judge_id = $2 AND score IS NULL", pid, judgeB))
	assert.Equal(t, 1, e.fx.Count(
		"SELECT COUNT(*) FROM payments WHERE user_id = $1 AND event_id = $2 AND payment_type = 'registration' AND status = 'pending' AND amount = 25",
		user, eventID))
	assert.Equal(t, 1, e.pub.Count(broker.ParticipantRegistered))
}

func TestRegister_FreeEventHasNoPayment(t *testing.T) {
	e := newEnv(t)
	eventID := e.fx.Event(testutil.EventSpec{})
	e.fx.Judge(eventID)
	user := e.fx.User(model.RoleParticipant)

	_, err := e.svc.Register(context.Background(), user, eventID)
	require.NoError(t, err)
	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM payments WHERE user_id = $1", user))
}

func TestRegister_TwentyFirstFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{MaxParticipants: 20})
	e.fx.Judge(eventID)

	for _, u := range e.fx.Users(model.RoleParticipant, 20) {
		_, err := e.svc.Register(ctx, u, eventID)
		require.NoError(t, err)
	}

	late := e.fx.User(model.RoleParticipant)
	_, err := e.svc.Register(ctx, late, eventID)
	require.ErrorIs(t, err, service.ErrEventFull)
	assert.Equal(t, apperr.CapacityExceeded, apperr.KindOf(err))

	assert.Equal(t, 20, e.fx.Count("SELECT COUNT(*) FROM participants WHERE event_id = $1", eventID))
	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM participants WHERE user_id = $1", late))
}

func TestRegister_ConcurrentNeverOverfills(t *testing.T) {
	e := newEnv(t)
	const capacity, contenders = 20, 60
	eventID := e.fx.Event(testutil.EventSpec{MaxParticipants: capacity, Fee: 10})
	e.fx.Judge(eventID)
	users := e.fx.Users(model.RoleParticipant, contenders)

	var ok, full, other atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, u := range users {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			<-start
			_, err := e.svc.Register(context.Background(), userID, eventID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, service.ErrEventFull):
				full.Add(1)
			default:
				other.Add(1)
				t.Errorf("unexpected error: %v", err)
			}
		}(u)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, capacity, ok.Load())
	assert.EqualValues(t, contenders-capacity, full.Load())
	assert.Zero(t, other.Load())
	assert.Equal(t, capacity, e.fx.Count("SELECT COUNT(*) FROM participants WHERE event_id = $1", eventID))
	assert.Equal(t, capacity, e.fx.Count("SELECT COUNT(*) FROM judging WHERE event_id = $1", eventID))
	assert.Equal(t, capacity, e.fx.Count("SELECT COUNT(*) FROM payments WHERE event_id = $1", eventID))
}

func TestRegister_Duplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{Fee: 5})
	e.fx.Judge(eventID)
	user := e.fx.User(model.RoleParticipant)

	_, err := e.svc.Register(ctx, user, eventID)
	require.NoError(t, err)

	_, err = e.svc.Register(ctx, user, eventID)
	require.ErrorIs(t, err, service.ErrAlreadyRegistered)
	assert.Equal(t, apperr.DuplicateAction, apperr.KindOf(err))

	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM participants WHERE user_id = $1", user))
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM judging WHERE event_id = $1", eventID))
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM payments WHERE user_id = $1", user))
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	e := newEnv(t)
	eventID := e.fx.Event(testutil.EventSpec{})
	e.fx.Judge(eventID)
	user := e.fx.User(model.RoleParticipant)

	var ok, dup atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.svc.Register(context.Background(), user, eventID)
			if err == nil {
				ok.Add(1)
			} else if errors.Is(err, service.ErrAlreadyRegistered) {
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 9, dup.Load())
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM participants WHERE user_id = $1", user))
}

func TestRegister_NoJudgeRollsBack(t *testing.T) {
	e := newEnv(t)
	eventID := e.fx.Event(testutil.EventSpec{Fee: 40})
	user := e.fx.User(model.RoleParticipant)

	_, err := e.svc.Register(context.Background(), user, eventID)
	require.ErrorIs(t, err, service.ErrNoJudgeAssigned)
	assert.Equal(t, apperr.PrecursorMissing, apperr.KindOf(err))

	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM participants"))
	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM payments"))
	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM judging"))
	assert.Zero(t, e.pub.Count(broker.ParticipantRegistered))
}

func TestRegister_UnknownEventAndUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := e.fx.User(model.RoleParticipant)

	_, err := e.svc.Register(ctx, user, 999)
	require.ErrorIs(t, err, service.ErrEventNotFound)

	eventID := e.fx.Event(testutil.EventSpec{})
	e.fx.Judge(eventID)
	_, err = e.svc.Register(ctx, 999, eventID)
	require.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUnregister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	eventID := e.fx.Event(testutil.EventSpec{Fee: 15})
	e.fx.Judge(eventID)
	user := e.fx.User(model.RoleParticipant)

	require.ErrorIs(t, e.svc.Unregister(ctx, user, eventID), service.ErrNotRegistered)

	_, err := e.svc.Register(ctx, user, eventID)
	require.NoError(t, err)
	require.NoError(t, e.svc.Unregister(ctx, user, eventID))

	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM participants WHERE event_id = $1", eventID))
	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM judging WHERE event_id = $1", eventID))
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM payments WHERE user_id = $1 AND status = 'failed'", user))

	// re-registering opens a fresh pending payment
	_, err = e.svc.Register(ctx, user, eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, e.fx.Count("SELECT COUNT(*) FROM payments WHERE user_id = $1 AND status = 'pending'", user))
}

func TestAssignJudge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	organizer := e.fx.User(model.RoleOrganizer)
	eventID := e.fx.Event(testutil.EventSpec{OrganizerID: organizer})
	first := e.fx.Judge(eventID)
	users := e.fx.Users(model.RoleParticipant, 3)
	for _, u := range users {
		_, err := e.svc.Register(ctx, u, eventID)
		require.NoError(t, err)
	}

	owner := model.Actor{UserID: organizer, Role: model.RoleOrganizer}
	stranger := model.Actor{UserID: e.fx.User(model.RoleOrganizer), Role: model.RoleOrganizer}
	second := e.fx.User(model.RoleJudge)

	require.ErrorIs(t, e.svc.AssignJudge(ctx, stranger, eventID, second), service.ErrNotEventOwner)
	require.ErrorIs(t, e.svc.AssignJudge(ctx, owner, eventID, users[0]), service.ErrNotJudge)

	require.NoError(t, e.svc.AssignJudge(ctx, owner, eventID, second))
	require.NoError(t, e.svc.AssignJudge(ctx, owner, eventID, second), "repeat assignment is a no-op")
	assert.Equal(t, 3, e.fx.Count("SELECT COUNT(*) FROM judging WHERE judge_id = $1", second))

	judges, err := e.svc.EventJudges(ctx, eventID)
	require.NoError(t, err)
	assert.Len(t, judges, 2)

	require.NoError(t, e.svc.UnassignJudge(ctx, owner, eventID, second))
	assert.Zero(t, e.fx.Count("SELECT COUNT(*) FROM judging WHERE judge_id = $1", second))
	assert.Equal(t, 3, e.fx.Count("SELECT COUNT(*) FROM judging WHERE judge_id = $1", first))
	require.ErrorIs(t, e.svc.UnassignJudge(ctx, owner, eventID, second), service.ErrAssignmentNotFound)
}
