package service

import (
	"context"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

func eventSelect() sq.SelectBuilder {
	return db.Psql.
		Select(
			"e.event_id", "e.event_name", "e.description", "e.category", "e.event_date",
			"e.venue_id", "v.venue_name", "e.max_participants", "e.registration_fee::float8 AS registration_fee",
			"e.organizer_id", "e.status", "e.created_at",
			"(SELECT COUNT(*) FROM participants p WHERE p.event_id = e.event_id) AS registered_count",
		).
		From("events e").
		Join("venues v ON v.venue_id = e.venue_id")
}

func (s *Service) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	q := eventSelect().OrderBy("e.event_date", "e.event_id")
	if f.Category != "" {
		q = q.Where(sq.Eq{"e.category": f.Category})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"e.status": f.Status})
	}
	if f.OrganizerID > 0 {
		q = q.Where(sq.Eq{"e.organizer_id": f.OrganizerID})
	}
	return db.Select[model.Event](ctx, s.db, q)
}

func (s *Service) GetEvent(ctx context.Context, id int) (model.Event, error) {
	e, err := db.Get[model.Event](ctx, s.db, eventSelect().Where(sq.Eq{"e.event_id": id}))
	if db.IsNoRows(err) {
		return e, ErrEventNotFound
	}
	if err != nil {
		return e, fmt.Errorf("load event: %w", err)
	}
	return e, nil
}

func validateEventInput(in model.EventInput) error {
	if !model.ValidCategory(in.Category) {
		return ErrInvalidCategory
	}
	if in.Status != "" && !slices.Contains(model.EventStatuses, in.Status) {
		return ErrInvalidStatus
	}
	if in.MaxParticipants <= 0 {
		return apperr.New(apperr.InvalidInput, "Max participants must be positive")
	}
	if in.RegistrationFee < 0 {
		return apperr.New(apperr.InvalidInput, "Registration fee cannot be negative")
	}
	return nil
}

// mapEventWriteErr translates constraint failures of event inserts and
// updates.
func mapEventWriteErr(err error) error {
	if c, ok := db.UniqueViolation(err); ok && c == "events_venue_date_key" {
		return ErrVenueBooked.With(err)
	}
	if c, ok := db.ForeignKeyViolation(err); ok && c == "events_venue_id_fkey" {
		return ErrVenueNotFound.With(err)
	}
	return err
}

func (s *Service) CreateEvent(ctx context.Context, actor model.Actor, in model.EventInput) (model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return model.Event{}, err
	}
	if in.Status == "" {
		in.Status = model.EventUpcoming
	}

	var id int
	err := db.QueryRow(ctx, s.db, db.Psql.
		Insert("events").
		Columns("event_name", "description", "category", "event_date", "venue_id",
			"max_participants", "registration_fee", "organizer_id", "status").
		Values(in.Name, in.Description, in.Category, in.Date, in.VenueID,
			in.MaxParticipants, in.RegistrationFee, actor.UserID, in.Status).
		Suffix("RETURNING event_id"),
	).Scan(&id)
	if err != nil {
		if mapped := mapEventWriteErr(err); mapped != err {
			return model.Event{}, mapped
		}
		return model.Event{}, fmt.Errorf("insert event: %w", err)
	}

	s.audit(ctx, &actor.UserID, "event_create", fmt.Sprintf("event %d %q", id, in.Name))
	return s.GetEvent(ctx, id)
}

// UpdateEvent rewrites an event. Only its organizer or an admin may do so,
// and max_participants may not drop below the current registrations.
func (s *Service) UpdateEvent(ctx context.Context, actor model.Actor, id int, in model.EventInput) (model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return model.Event{}, err
	}

	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		organizerID, err := lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.UserID != organizerID {
			return ErrNotEventOwner
		}

		var registered int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM participants WHERE event_id = $1", id).Scan(&registered); err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if in.MaxParticipants < registered {
			return ErrBelowRegistered
		}

		set := map[string]any{
			"event_name":       in.Name,
			"description":      in.Description,
			"category":         in.Category,
			"event_date":       in.Date,
			"venue_id":         in.VenueID,
			"max_participants": in.MaxParticipants,
			"registration_fee": in.RegistrationFee,
		}
		if in.Status != "" {
			set["status"] = in.Status
		}
		_, err = db.Exec(ctx, tx, db.Psql.Update("events").SetMap(set).Where(sq.Eq{"event_id": id}))
		if err != nil {
			if mapped := mapEventWriteErr(err); mapped != err {
				return mapped
			}
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}

	s.audit(ctx, &actor.UserID, "event_update", fmt.Sprintf("event %d", id))
	return s.GetEvent(ctx, id)
}

var eventDependents = []struct{ table, what string }{
	{"participants", "registered participants"},
	{"sponsorships", "sponsorships"},
	{"payments", "payments"},
}

// DeleteEvent removes an event with no participants, sponsorships or
// payments. Its judge assignments go with it.
func (s *Service) DeleteEvent(ctx context.Context, actor model.Actor, id int) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		organizerID, err := lockEvent(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() && actor.UserID != organizerID {
			return ErrNotEventOwner
		}
		for _, d := range eventDependents {
			var n int
			if err := db.QueryRow(ctx, tx, db.Psql.
				Select("COUNT(*)").From(d.table).Where(sq.Eq{"event_id": id}),
			).Scan(&n); err != nil {
				return fmt.Errorf("count %s: %w", d.table, err)
			}
			if n > 0 {
				return hasDependents("Cannot delete event with " + d.what)
			}
		}
		if _, err := tx.Exec(ctx, "DELETE FROM judging WHERE event_id = $1", id); err != nil {
			return fmt.Errorf("delete judging rows: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM event_judges WHERE event_id = $1", id); err != nil {
			return fmt.Errorf("delete event judges: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM events WHERE event_id = $1", id); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, &actor.UserID, "event_delete", fmt.Sprintf("event %d", id))
	return nil
}

func (s *Service) EventParticipants(ctx context.Context, eventID int) ([]model.Participant, error) {
	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}
	return db.Select[model.Participant](ctx, s.db, db.Psql.
		Select("p.participant_id", "p.user_id", "p.event_id", "u.name", "u.email", "p.registration_date").
		From("participants p").
		Join("users u ON u.user_id = p.user_id").
		Where(sq.Eq{"p.event_id": eventID}).
		OrderBy("p.participant_id"))
}

func (s *Service) EventStats(ctx context.Context, eventID int) (model.EventStats, error) {
	st := model.EventStats{EventID: eventID}
	err := s.db.QueryRow(ctx, `
		SELECT
			e.max_participants,
			(SELECT COUNT(*) FROM participants WHERE event_id = e.event_id),
			(SELECT COUNT(*) FROM event_judges WHERE event_id = e.event_id),
			(SELECT COUNT(*) FROM sponsorships WHERE event_id = e.event_id),
			(SELECT ROUND(AVG(score), 2)::float8 FROM judging WHERE event_id = e.event_id),
			(SELECT COALESCE(SUM(amount), 0)::float8 FROM payments
			  WHERE event_id = e.event_id AND status = 'completed')
		FROM events e WHERE e.event_id = $1`,
		eventID,
	).Scan(&st.MaxParticipants, &st.RegisteredCount, &st.JudgeCount, &st.SponsorCount, &st.AverageScore, &st.Revenue)
	if db.IsNoRows(err) {
		return st, ErrEventNotFound
	}
	if err != nil {
		return st, fmt.Errorf("event stats: %w", err)
	}
	st.RemainingSlots = st.MaxParticipants - st.RegisteredCount
	return st, nil
}
