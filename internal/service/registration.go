package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"nascon-platform/internal/broker"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

type RegistrationPayload struct {
	ParticipantID int `json:"participant_id"`
	UserID        int `json:"user_id"`
	EventID       int `json:"event_id"`
	JudgeRows     int `json:"judge_rows,omitempty"`
}

// Register enrols userID in eventID. The event row is locked for the whole
// transaction, so concurrent registrations for one event are serialized and
// the participant count can never pass max_participants.
func (s *Service) Register(ctx context.Context, userID, eventID int) (participantID int, err error) {
	ctx, span := s.startSpan(ctx, "Service.Register", attribute.Int("event.id", eventID), attribute.Int("user.id", userID))
	var judgeRows int64
	defer func() {
		endSpan(span, err)
		s.metrics.ObserveRegistration(err)
		s.logResult("register", err, map[string]any{"event_id": eventID, "user_id": userID})
	}()

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var maxParticipants int
		var fee float64
		err := tx.QueryRow(ctx,
			"SELECT max_participants, registration_fee FROM events WHERE event_id = $1 FOR UPDATE",
			eventID,
		).Scan(&maxParticipants, &fee)
		if db.IsNoRows(err) {
			return ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}

		var registered int
		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM participants WHERE event_id = $1", eventID,
		).Scan(&registered); err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if registered >= maxParticipants {
			return ErrEventFull
		}

		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM participants WHERE user_id = $1 AND event_id = $2)",
			userID, eventID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check registration: %w", err)
		}
		if exists {
			return ErrAlreadyRegistered
		}

		err = tx.QueryRow(ctx,
			"INSERT INTO participants(user_id, event_id) VALUES ($1, $2) RETURNING participant_id",
			userID, eventID,
		).Scan(&participantID)
		if _, ok := db.UniqueViolation(err); ok {
			return ErrAlreadyRegistered.With(err)
		}
		if _, ok := db.ForeignKeyViolation(err); ok {
			return ErrUserNotFound.With(err)
		}
		if err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}

		if fee > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO payments(user_id, event_id, amount, payment_type, status)
				SELECT $1, $2, $3, 'registration', 'pending'
				WHERE NOT EXISTS (
					SELECT 1 FROM payments
					WHERE user_id = $1 AND event_id = $2
					  AND payment_type = 'registration' AND status <> 'failed'
				)`,
				userID, eventID, fee,
			); err != nil {
				return fmt.Errorf("insert registration payment: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO judging(event_id, judge_id, participant_id)
			SELECT event_id, judge_id, $2 FROM event_judges WHERE event_id = $1`,
			eventID, participantID,
		)
		if err != nil {
			return fmt.Errorf("seed judging rows: %w", err)
		}
		judgeRows = tag.RowsAffected()
		if judgeRows == 0 {
			return ErrNoJudgeAssigned
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.audit(ctx, &userID, "event_register", fmt.Sprintf("registered for event %d as participant %d", eventID, participantID))
	s.publish(ctx, broker.ParticipantRegistered, RegistrationPayload{
		ParticipantID: participantID,
		UserID:        userID,
		EventID:       eventID,
		JudgeRows:     int(judgeRows),
	})
	return participantID, nil
}

// Unregister removes the registration together with its judging rows and
// fails any pending registration payment.
func (s *Service) Unregister(ctx context.Context, userID, eventID int) (err error) {
	ctx, span := s.startSpan(ctx, "Service.Unregister", attribute.Int("event.id", eventID), attribute.Int("user.id", userID))
	defer func() {
		endSpan(span, err)
		s.logResult("unregister", err, map[string]any{"event_id": eventID, "user_id": userID})
	}()

	var participantID int
	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := lockEvent(ctx, tx, eventID); err != nil {
			return err
		}
		err := tx.QueryRow(ctx,
			"DELETE FROM participants WHERE user_id = $1 AND event_id = $2 RETURNING participant_id",
			userID, eventID,
		).Scan(&participantID)
		if db.IsNoRows(err) {
			return ErrNotRegistered
		}
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE payments SET status = 'failed'
			WHERE user_id = $1 AND event_id = $2
			  AND payment_type = 'registration' AND status = 'pending'`,
			userID, eventID,
		); err != nil {
			return fmt.Errorf("fail registration payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, &userID, "event_unregister", fmt.Sprintf("left event %d", eventID))
	s.publish(ctx, broker.ParticipantUnregistered, RegistrationPayload{
		ParticipantID: participantID,
		UserID:        userID,
		EventID:       eventID,
	})
	return nil
}

// AssignJudge makes judgeID a judge of eventID and seeds a placeholder
// judging row for every participant already registered. Repeating it is a
// no-op.
func (s *Service) AssignJudge(ctx context.Context, actor model.Actor, eventID, judgeID int) (err error) {
	ctx, span := s.startSpan(ctx, "Service.AssignJudge", attribute.Int("event.id", eventID), attribute.Int("judge.id", judgeID))
	defer func() {
		endSpan(span, err)
		s.logResult("assign_judge", err, map[string]any{"event_id": eventID, "judge_id": judgeID})
	}()

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		organizerID, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.UserID != organizerID {
			return ErrNotEventOwner
		}

		var role model.Role
		err = tx.QueryRow(ctx, "SELECT role FROM users WHERE user_id = $1", judgeID).Scan(&role)
		if db.IsNoRows(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load judge: %w", err)
		}
		if role != model.RoleJudge {
			return ErrNotJudge
		}

		if _, err := tx.Exec(ctx,
			"INSERT INTO event_judges(event_id, judge_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			eventID, judgeID,
		); err != nil {
			return fmt.Errorf("insert event judge: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO judging(event_id, judge_id, participant_id)
			SELECT event_id, $2, participant_id FROM participants WHERE event_id = $1
			ON CONFLICT (event_id, judge_id, participant_id) DO NOTHING`,
			eventID, judgeID,
		); err != nil {
			return fmt.Errorf("seed judging rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, &actor.UserID, "judge_assign", fmt.Sprintf("judge %d assigned to event %d", judgeID, eventID))
	return nil
}

// UnassignJudge removes the assignment and the judge's unscored rows.
// Scores already given stay in the event's results.
func (s *Service) UnassignJudge(ctx context.Context, actor model.Actor, eventID, judgeID int) (err error) {
	ctx, span := s.startSpan(ctx, "Service.UnassignJudge", attribute.Int("event.id", eventID), attribute.Int("judge.id", judgeID))
	defer func() { endSpan(span, err) }()

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		organizerID, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.UserID != organizerID {
			return ErrNotEventOwner
		}
		tag, err := tx.Exec(ctx, "DELETE FROM event_judges WHERE event_id = $1 AND judge_id = $2", eventID, judgeID)
		if err != nil {
			return fmt.Errorf("delete event judge: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrAssignmentNotFound
		}
		if _, err := tx.Exec(ctx,
			"DELETE FROM judging WHERE event_id = $1 AND judge_id = $2 AND score IS NULL",
			eventID, judgeID,
		); err != nil {
			return fmt.Errorf("delete pending judging rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, &actor.UserID, "judge_unassign", fmt.Sprintf("judge %d removed from event %d", judgeID, eventID))
	return nil
}

func (s *Service) EventJudges(ctx context.Context, eventID int) ([]model.Judge, error) {
	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}
	return db.Select[model.Judge](ctx, s.db, db.Psql.
		Select("ej.judge_id", "u.name", "u.email", "ej.assigned_at").
		From("event_judges ej").
		Join("users u ON u.user_id = ej.judge_id").
		Where("ej.event_id = ?", eventID).
		OrderBy("ej.assigned_at", "ej.judge_id"))
}

// lockEvent takes the row lock every capacity-sensitive write on an event
// goes through and returns the event's organizer.
func lockEvent(ctx context.Context, tx pgx.Tx, eventID int) (int, error) {
	var organizerID int
	err := tx.QueryRow(ctx, "SELECT organizer_id FROM events WHERE event_id = $1 FOR UPDATE", eventID).Scan(&organizerID)
	if db.IsNoRows(err) {
		return 0, ErrEventNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock event: %w", err)
	}
	return organizerID, nil
}

func (s *Service) eventExists(ctx context.Context, eventID int) error {
	var exists bool
	if err := s.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM events WHERE event_id = $1)", eventID).Scan(&exists); err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return ErrEventNotFound
	}
	return nil
}
