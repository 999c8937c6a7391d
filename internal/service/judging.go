package service

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"

	"nascon-platform/internal/broker"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

type ScorePayload struct {
	EventID       int     `json:"event_id"`
	JudgeID       int     `json:"judge_id"`
	ParticipantID int     `json:"participant_id"`
	Score         float64 `json:"score"`
}

// SubmitScore records judgeID's score for a participant of the event. It is
// an upsert on (event, judge, participant): repeating a submission leaves the
// same row, and a later submission replaces the earlier one.
func (s *Service) SubmitScore(ctx context.Context, judgeID int, in model.ScoreInput) (sc model.Score, err error) {
	ctx, span := s.startSpan(ctx, "Service.SubmitScore",
		attribute.Int("event.id", in.EventID),
		attribute.Int("judge.id", judgeID),
		attribute.Int("participant.id", in.ParticipantID),
	)
	defer func() {
		endSpan(span, err)
		s.logResult("submit_score", err, map[string]any{
			"event_id": in.EventID, "judge_id": judgeID, "participant_id": in.ParticipantID,
		})
	}()

	if !ValidScore(in.Score) {
		return sc, ErrInvalidScore
	}
	if err := s.eventExists(ctx, in.EventID); err != nil {
		return sc, err
	}

	var registered, assigned bool
	if err := s.db.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM participants WHERE participant_id = $2 AND event_id = $1),
			EXISTS (SELECT 1 FROM event_judges WHERE judge_id = $3 AND event_id = $1)`,
		in.EventID, in.ParticipantID, judgeID,
	).Scan(&registered, &assigned); err != nil {
		return sc, fmt.Errorf("check score target: %w", err)
	}
	if !registered {
		return sc, ErrParticipantNotFound
	}
	if !assigned {
		return sc, ErrJudgeNotAssigned
	}

	var comments *string
	if c := strings.TrimSpace(in.Comments); c != "" {
		comments = &c
	}

	sc = model.Score{
		EventID:       in.EventID,
		JudgeID:       judgeID,
		ParticipantID: in.ParticipantID,
		Comments:      comments,
	}
	err = s.db.QueryRow(ctx, `
		INSERT INTO judging(event_id, judge_id, participant_id, score, comments)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, judge_id, participant_id)
		DO UPDATE SET score = EXCLUDED.score, comments = EXCLUDED.comments, updated_at = now()
		RETURNING judging_id, score::float8, updated_at`,
		in.EventID, judgeID, in.ParticipantID, in.Score, comments,
	).Scan(&sc.ID, &sc.Score, &sc.UpdatedAt)
	if _, ok := db.ForeignKeyViolation(err); ok {
		// participant unregistered between the check and the write
		return model.Score{}, ErrParticipantNotFound.With(err)
	}
	if err != nil {
		return model.Score{}, fmt.Errorf("upsert score: %w", err)
	}

	s.metrics.ObserveScore()
	s.audit(ctx, &judgeID, "score_submit",
		fmt.Sprintf("event %d participant %d score %.2f", in.EventID, in.ParticipantID, *sc.Score))
	s.publish(ctx, broker.ScoreSubmitted, ScorePayload{
		EventID:       in.EventID,
		JudgeID:       judgeID,
		ParticipantID: in.ParticipantID,
		Score:         *sc.Score,
	})
	return sc, nil
}

// Leaderboard ranks every participant of the event by the mean of their
// non-null scores, rounded to two decimals.
func (s *Service) Leaderboard(ctx context.Context, eventID int) (_ []model.LeaderboardEntry, err error) {
	ctx, span := s.startSpan(ctx, "Service.Leaderboard", attribute.Int("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}
	entries, err := db.Select[model.LeaderboardEntry](ctx, s.db, db.Psql.
		Select(
			"p.participant_id", "p.user_id", "u.name AS participant_name",
			"ROUND(AVG(j.score), 2)::float8 AS average_score",
			"COUNT(j.score) AS score_count",
		).
		From("participants p").
		Join("users u ON u.user_id = p.user_id").
		LeftJoin("judging j ON j.participant_id = p.participant_id AND j.event_id = p.event_id").
		Where("p.event_id = ?", eventID).
		GroupBy("p.participant_id", "p.user_id", "u.name"))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return RankLeaderboard(entries), nil
}

// judgeEventsCTE is the set of events a judge works on: those they are
// assigned to plus any holding one of their judging rows.
const judgeEventsCTE = `
	WITH judge_events AS (
		SELECT event_id FROM event_judges WHERE judge_id = $1
		UNION
		SELECT event_id FROM judging WHERE judge_id = $1
	)`

func (s *Service) JudgeOverview(ctx context.Context, judgeID int) (model.JudgeOverview, error) {
	var ov model.JudgeOverview
	err := s.db.QueryRow(ctx, judgeEventsCTE+`
		SELECT
			(SELECT COUNT(*) FROM judge_events),
			(SELECT COUNT(*)
			   FROM participants p
			  WHERE p.event_id IN (SELECT event_id FROM judge_events)
			    AND NOT EXISTS (
			        SELECT 1 FROM judging j
			         WHERE j.judge_id = $1
			           AND j.participant_id = p.participant_id
			           AND j.score IS NOT NULL)),
			(SELECT COUNT(DISTINCT event_id) FROM judging WHERE judge_id = $1 AND score IS NOT NULL)`,
		judgeID,
	).Scan(&ov.EventsAssigned, &ov.PendingScores, &ov.Results)
	if err != nil {
		return ov, fmt.Errorf("judge overview: %w", err)
	}
	return ov, nil
}

func (s *Service) AssignedEvents(ctx context.Context, judgeID int) ([]model.AssignedEvent, error) {
	rows, err := s.db.Query(ctx, judgeEventsCTE+`
		SELECT
			e.event_id, e.event_name, e.category, e.event_date, e.status,
			(SELECT COUNT(*) FROM participants p WHERE p.event_id = e.event_id) AS participant_count,
			(SELECT COUNT(*) FROM judging j
			  WHERE j.event_id = e.event_id AND j.judge_id = $1 AND j.score IS NOT NULL) AS scored_count
		FROM events e
		JOIN judge_events je ON je.event_id = e.event_id
		ORDER BY e.event_date, e.event_id`,
		judgeID,
	)
	if err != nil {
		return nil, fmt.Errorf("assigned events: %w", err)
	}
	return db.Collect[model.AssignedEvent](rows)
}

// JudgeResults lists, for every event the judge has scored in, the current
// leader across all judges.
func (s *Service) JudgeResults(ctx context.Context, judgeID int) ([]model.JudgeResult, error) {
	rows, err := s.db.Query(ctx, `
		WITH judged AS (
			SELECT DISTINCT event_id FROM judging WHERE judge_id = $1 AND score IS NOT NULL
		), means AS (
			SELECT j.event_id, j.participant_id, ROUND(AVG(j.score), 2) AS mean
			FROM judging j
			JOIN judged USING (event_id)
			WHERE j.score IS NOT NULL
			GROUP BY j.event_id, j.participant_id
		)
		SELECT DISTINCT ON (m.event_id)
			m.event_id, e.event_name, m.participant_id AS winner_participant_id,
			u.name AS winner_name, m.mean::float8 AS average_score
		FROM means m
		JOIN events e ON e.event_id = m.event_id
		JOIN participants p ON p.participant_id = m.participant_id
		JOIN users u ON u.user_id = p.user_id
		ORDER BY m.event_id, m.mean DESC, m.participant_id`,
		judgeID,
	)
	if err != nil {
		return nil, fmt.Errorf("judge results: %w", err)
	}
	return db.Collect[model.JudgeResult](rows)
}

func scoreSelect() sq.SelectBuilder {
	return db.Psql.
		Select(
			"j.judging_id", "j.event_id", "j.judge_id", "ju.name AS judge_name",
			"j.participant_id", "pu.name AS participant_name",
			"j.score::float8 AS score", "j.comments", "j.updated_at",
		).
		From("judging j").
		Join("users ju ON ju.user_id = j.judge_id").
		Join("participants p ON p.participant_id = j.participant_id").
		Join("users pu ON pu.user_id = p.user_id").
		OrderBy("j.participant_id", "j.judge_id")
}

// EventScores lists every judging row of the event. With judgeID > 0 only
// that judge's rows are returned.
func (s *Service) EventScores(ctx context.Context, eventID, judgeID int) ([]model.Score, error) {
	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}
	q := scoreSelect().Where("j.event_id = ?", eventID)
	if judgeID > 0 {
		q = q.Where("j.judge_id = ?", judgeID)
	}
	return db.Select[model.Score](ctx, s.db, q)
}

func (s *Service) EventJudgingStats(ctx context.Context, eventID int) (model.JudgingStats, error) {
	if err := s.eventExists(ctx, eventID); err != nil {
		return model.JudgingStats{}, err
	}
	st := model.JudgingStats{EventID: eventID}
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(score),
			ROUND(AVG(score), 2)::float8,
			MAX(score)::float8,
			MIN(score)::float8,
			COUNT(DISTINCT judge_id),
			COUNT(DISTINCT participant_id)
		FROM judging WHERE event_id = $1`,
		eventID,
	).Scan(&st.TotalScores, &st.AverageScore, &st.HighestScore, &st.LowestScore, &st.JudgeCount, &st.ParticipantCount)
	if err != nil {
		return st, fmt.Errorf("judging stats: %w", err)
	}
	return st, nil
}
