package service

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

var venueColumns = []string{"venue_id", "venue_name", "capacity", "facilities", "location", "created_at"}

func (s *Service) ListVenues(ctx context.Context) ([]model.Venue, error) {
	return db.Select[model.Venue](ctx, s.db, db.Psql.Select(venueColumns...).From("venues").OrderBy("venue_name", "venue_id"))
}

func (s *Service) GetVenue(ctx context.Context, id int) (model.Venue, error) {
	v, err := db.Get[model.Venue](ctx, s.db, db.Psql.Select(venueColumns...).From("venues").Where(sq.Eq{"venue_id": id}))
	if db.IsNoRows(err) {
		return v, ErrVenueNotFound
	}
	if err != nil {
		return v, fmt.Errorf("load venue: %w", err)
	}
	return v, nil
}

func (s *Service) CreateVenue(ctx context.Context, actor model.Actor, in model.VenueInput) (model.Venue, error) {
	if in.Capacity <= 0 {
		return model.Venue{}, apperr.New(apperr.InvalidInput, "Capacity must be positive")
	}
	v, err := db.Get[model.Venue](ctx, s.db, db.Psql.
		Insert("venues").
		Columns("venue_name", "capacity", "facilities", "location").
		Values(in.Name, in.Capacity, in.Facilities, in.Location).
		Suffix("RETURNING venue_id, venue_name, capacity, facilities, location, created_at"))
	if err != nil {
		return v, fmt.Errorf("insert venue: %w", err)
	}
	s.audit(ctx, &actor.UserID, "venue_create", fmt.Sprintf("venue %d %q", v.ID, v.Name))
	return v, nil
}

func (s *Service) UpdateVenue(ctx context.Context, actor model.Actor, id int, in model.VenueInput) (model.Venue, error) {
	if in.Capacity <= 0 {
		return model.Venue{}, apperr.New(apperr.InvalidInput, "Capacity must be positive")
	}
	v, err := db.Get[model.Venue](ctx, s.db, db.Psql.
		Update("venues").
		SetMap(map[string]any{
			"venue_name": in.Name,
			"capacity":   in.Capacity,
			"facilities": in.Facilities,
			"location":   in.Location,
		}).
		Where(sq.Eq{"venue_id": id}).
		Suffix("RETURNING venue_id, venue_name, capacity, facilities, location, created_at"))
	if db.IsNoRows(err) {
		return v, ErrVenueNotFound
	}
	if err != nil {
		return v, fmt.Errorf("update venue: %w", err)
	}
	s.audit(ctx, &actor.UserID, "venue_update", fmt.Sprintf("venue %d", id))
	return v, nil
}

func (s *Service) DeleteVenue(ctx context.Context, actor model.Actor, id int) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var locked int
		err := tx.QueryRow(ctx, "SELECT venue_id FROM venues WHERE venue_id = $1 FOR UPDATE", id).Scan(&locked)
		if db.IsNoRows(err) {
			return ErrVenueNotFound
		}
		if err != nil {
			return fmt.Errorf("lock venue: %w", err)
		}
		var events int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM events WHERE venue_id = $1", id).Scan(&events); err != nil {
			return fmt.Errorf("count venue events: %w", err)
		}
		if events > 0 {
			return hasDependents("Cannot delete venue with scheduled events")
		}
		if _, err := tx.Exec(ctx, "DELETE FROM venues WHERE venue_id = $1", id); err != nil {
			return fmt.Errorf("delete venue: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, &actor.UserID, "venue_delete", fmt.Sprintf("venue %d", id))
	return nil
}

// VenueSchedule lists the venue's events by date.
func (s *Service) VenueSchedule(ctx context.Context, venueID int) ([]model.Event, error) {
	if _, err := s.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}
	return db.Select[model.Event](ctx, s.db, eventSelect().
		Where(sq.Eq{"e.venue_id": venueID}).
		OrderBy("e.event_date"))
}
