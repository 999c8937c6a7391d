package service

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"nascon-platform/internal/broker"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

// ScheduleRounds sets the prelims, semifinals and finals dates of an event,
// replacing any earlier schedule. Rounds are held at the event's venue and
// may share a date but never run out of order.
func (s *Service) ScheduleRounds(ctx context.Context, actor model.Actor, eventID int, sched model.RoundSchedule) ([]model.EventRound, error) {
	if sched.Semifinals.Before(sched.Prelims) || sched.Finals.Before(sched.Semifinals) {
		return nil, ErrRoundOrder
	}

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		organizerID, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.UserID != organizerID {
			return ErrNotEventOwner
		}

		q := db.Psql.
			Insert("event_rounds").
			Columns("event_id", "round_name", "round_date", "venue_id")
		for _, r := range []struct {
			name string
			date any
		}{
			{model.RoundPrelims, sched.Prelims},
			{model.RoundSemifinals, sched.Semifinals},
			{model.RoundFinals, sched.Finals},
		} {
			q = q.Values(eventID, r.name, r.date, sq.Expr("(SELECT venue_id FROM events WHERE event_id = ?)", eventID))
		}
		q = q.Suffix("ON CONFLICT (event_id, round_name) DO UPDATE SET round_date = EXCLUDED.round_date, venue_id = EXCLUDED.venue_id")
		if _, err := db.Exec(ctx, tx, q); err != nil {
			return fmt.Errorf("upsert rounds: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &actor.UserID, "rounds_schedule", fmt.Sprintf("event %d finals %s", eventID, sched.Finals.Format("2006-01-02")))
	s.publish(ctx, broker.RoundsScheduled, map[string]any{
		"event_id":        eventID,
		"prelims_date":    sched.Prelims.Format("2006-01-02"),
		"semifinals_date": sched.Semifinals.Format("2006-01-02"),
		"finals_date":     sched.Finals.Format("2006-01-02"),
	})
	return s.EventRounds(ctx, eventID)
}

// EventRounds lists the scheduled rounds of an event in running order. An
// event without a schedule yields an empty list.
func (s *Service) EventRounds(ctx context.Context, eventID int) ([]model.EventRound, error) {
	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}
	return db.Select[model.EventRound](ctx, s.db, db.Psql.
		Select("r.round_id", "r.event_id", "r.round_name", "r.round_date", "r.venue_id", "v.venue_name", "r.created_at").
		From("event_rounds r").
		LeftJoin("venues v ON v.venue_id = r.venue_id").
		Where(sq.Eq{"r.event_id": eventID}).
		OrderBy("r.round_date", "array_position(ARRAY['prelims','semifinals','finals'], r.round_name)"))
}
