package service

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/broker"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

type BookingPayload struct {
	BookingID       int     `json:"booking_id,omitempty"`
	UserID          int     `json:"user_id"`
	AccommodationID int     `json:"accommodation_id"`
	Amount          float64 `json:"amount,omitempty"`
}

func accommodationSelect() sq.SelectBuilder {
	return db.Psql.
		Select(
			"a.accommodation_id", "a.room_type", "a.capacity", "a.price_per_night",
			"a.available_rooms", "a.created_at",
			"COUNT(ua.booking_id) AS current_bookings",
			"a.capacity - COUNT(ua.booking_id) AS remaining_rooms",
		).
		From("accommodations a").
		LeftJoin("user_accommodations ua ON ua.accommodation_id = a.accommodation_id").
		GroupBy("a.accommodation_id")
}

// ListAccommodations returns every room type with live occupancy. With
// onlyAvailable set, full ones are left out.
func (s *Service) ListAccommodations(ctx context.Context, onlyAvailable bool) ([]model.Accommodation, error) {
	q := accommodationSelect().OrderBy("a.price_per_night", "a.accommodation_id")
	if onlyAvailable {
		q = q.Having("a.capacity - COUNT(ua.booking_id) > 0")
	}
	return db.Select[model.Accommodation](ctx, s.db, q)
}

func (s *Service) GetAccommodation(ctx context.Context, id int) (model.Accommodation, error) {
	a, err := db.Get[model.Accommodation](ctx, s.db, accommodationSelect().Where("a.accommodation_id = ?", id))
	if db.IsNoRows(err) {
		return a, ErrAccommodationNotFound
	}
	return a, err
}

func (s *Service) CreateAccommodation(ctx context.Context, actor model.Actor, in model.AccommodationInput) (model.Accommodation, error) {
	var id int
	err := s.db.QueryRow(ctx, `
		INSERT INTO accommodations(room_type, capacity, price_per_night, available_rooms)
		VALUES ($1, $2, $3, $2) RETURNING accommodation_id`,
		in.RoomType, in.Capacity, in.PricePerNight,
	).Scan(&id)
	if _, ok := db.CheckViolation(err); ok {
		return model.Accommodation{}, apperr.Wrap(apperr.InvalidInput, "Capacity and price must be positive", err)
	}
	if err != nil {
		return model.Accommodation{}, fmt.Errorf("insert accommodation: %w", err)
	}
	s.audit(ctx, &actor.UserID, "accommodation_create", fmt.Sprintf("accommodation %d (%s)", id, in.RoomType))
	return s.GetAccommodation(ctx, id)
}

// UpdateAccommodation rewrites the room type. Capacity may not drop below the
// rooms already booked, and available_rooms is recomputed from it.
func (s *Service) UpdateAccommodation(ctx context.Context, actor model.Actor, id int, in model.AccommodationInput) (model.Accommodation, error) {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := lockAccommodation(ctx, tx, id); err != nil {
			return err
		}
		booked, err := countBookings(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Capacity < booked {
			return ErrCapacityBelowBookings
		}
		_, err = tx.Exec(ctx, `
			UPDATE accommodations
			SET room_type = $2, capacity = $3, price_per_night = $4, available_rooms = $3 - $5
			WHERE accommodation_id = $1`,
			id, in.RoomType, in.Capacity, in.PricePerNight, booked,
		)
		if _, ok := db.CheckViolation(err); ok {
			return apperr.Wrap(apperr.InvalidInput, "Capacity and price must be positive", err)
		}
		if err != nil {
			return fmt.Errorf("update accommodation: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Accommodation{}, err
	}
	s.audit(ctx, &actor.UserID, "accommodation_update", fmt.Sprintf("accommodation %d", id))
	return s.GetAccommodation(ctx, id)
}

func (s *Service) DeleteAccommodation(ctx context.Context, actor model.Actor, id int) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := lockAccommodation(ctx, tx, id); err != nil {
			return err
		}
		booked, err := countBookings(ctx, tx, id)
		if err != nil {
			return err
		}
		if booked > 0 {
			return hasDependents("Cannot delete accommodation with active bookings")
		}
		if _, err := tx.Exec(ctx, "DELETE FROM accommodations WHERE accommodation_id = $1", id); err != nil {
			return fmt.Errorf("delete accommodation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, &actor.UserID, "accommodation_delete", fmt.Sprintf("accommodation %d", id))
	return nil
}

// Book reserves one room of accommodationID for userID and opens a pending
// payment for one night. The accommodation row lock serializes bookings of
// the same room type; the unique user index rejects a second booking made
// concurrently on another room type.
func (s *Service) Book(ctx context.Context, userID, accommodationID int) (booking model.Booking, err error) {
	ctx, span := s.startSpan(ctx, "Service.Book", attribute.Int("accommodation.id", accommodationID), attribute.Int("user.id", userID))
	defer func() {
		endSpan(span, err)
		s.metrics.ObserveBooking(err)
		s.logResult("book", err, map[string]any{"accommodation_id": accommodationID, "user_id": userID})
	}()

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		acc, err := lockAccommodation(ctx, tx, accommodationID)
		if err != nil {
			return err
		}
		booked, err := countBookings(ctx, tx, accommodationID)
		if err != nil {
			return err
		}
		if acc.Capacity-booked <= 0 {
			return ErrAccommodationFull
		}

		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM user_accommodations WHERE user_id = $1)", userID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check booking: %w", err)
		}
		if exists {
			return ErrAlreadyBooked
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO user_accommodations(user_id, accommodation_id) VALUES ($1, $2)
			RETURNING booking_id, user_id, accommodation_id, booked_at`,
			userID, accommodationID,
		).Scan(&booking.ID, &booking.UserID, &booking.AccommodationID, &booking.BookedAt)
		if _, ok := db.UniqueViolation(err); ok {
			return ErrAlreadyBooked.With(err)
		}
		if _, ok := db.ForeignKeyViolation(err); ok {
			return ErrUserNotFound.With(err)
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		booking.RoomType = acc.RoomType
		booking.PricePerNight = acc.PricePerNight

		if _, err := tx.Exec(ctx,
			"UPDATE accommodations SET available_rooms = capacity - $2 WHERE accommodation_id = $1",
			accommodationID, booked+1,
		); err != nil {
			return fmt.Errorf("update available rooms: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO payments(user_id, amount, payment_type, status)
			VALUES ($1, $2, 'accommodation', 'pending')`,
			userID, acc.PricePerNight,
		); err != nil {
			return fmt.Errorf("insert accommodation payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.audit(ctx, &userID, "accommodation_book", fmt.Sprintf("booked accommodation %d", accommodationID))
	s.publish(ctx, broker.AccommodationBooked, BookingPayload{
		BookingID:       booking.ID,
		UserID:          userID,
		AccommodationID: accommodationID,
		Amount:          booking.PricePerNight,
	})
	return booking, nil
}

// Cancel releases the user's booking of accommodationID and fails their
// pending accommodation payments. A missing booking changes nothing.
func (s *Service) Cancel(ctx context.Context, userID, accommodationID int) (err error) {
	ctx, span := s.startSpan(ctx, "Service.Cancel", attribute.Int("accommodation.id", accommodationID), attribute.Int("user.id", userID))
	defer func() {
		endSpan(span, err)
		s.logResult("cancel_booking", err, map[string]any{"accommodation_id": accommodationID, "user_id": userID})
	}()

	err = db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := lockAccommodation(ctx, tx, accommodationID); err != nil {
			if errors.Is(err, ErrAccommodationNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		tag, err := tx.Exec(ctx,
			"DELETE FROM user_accommodations WHERE user_id = $1 AND accommodation_id = $2",
			userID, accommodationID,
		)
		if err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrBookingNotFound
		}
		if _, err := tx.Exec(ctx, `
			UPDATE accommodations
			SET available_rooms = capacity - (
				SELECT COUNT(*) FROM user_accommodations WHERE accommodation_id = $1
			)
			WHERE accommodation_id = $1`,
			accommodationID,
		); err != nil {
			return fmt.Errorf("update available rooms: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE payments SET status = 'failed'
			WHERE user_id = $1 AND payment_type = 'accommodation' AND status = 'pending'`,
			userID,
		); err != nil {
			return fmt.Errorf("fail accommodation payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, &userID, "accommodation_cancel", fmt.Sprintf("cancelled accommodation %d", accommodationID))
	s.publish(ctx, broker.AccommodationCancelled, BookingPayload{UserID: userID, AccommodationID: accommodationID})
	return nil
}

func (s *Service) UserBookings(ctx context.Context, userID int) ([]model.Booking, error) {
	return db.Select[model.Booking](ctx, s.db, db.Psql.
		Select("ua.booking_id", "ua.user_id", "ua.accommodation_id", "a.room_type", "a.price_per_night", "ua.booked_at").
		From("user_accommodations ua").
		Join("accommodations a ON a.accommodation_id = ua.accommodation_id").
		Where("ua.user_id = ?", userID).
		OrderBy("ua.booked_at DESC"))
}

func (s *Service) AccommodationStats(ctx context.Context) (model.AccommodationStats, error) {
	var st model.AccommodationStats
	err := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(capacity), 0),
			COALESCE(SUM(available_rooms), 0),
			COALESCE(AVG(price_per_night), 0)::float8,
			COUNT(DISTINCT room_type),
			(SELECT COUNT(*) FROM user_accommodations)
		FROM accommodations`,
	).Scan(&st.TotalAccommodations, &st.TotalCapacity, &st.TotalAvailable, &st.AveragePrice, &st.RoomTypes, &st.TotalBookings)
	if err != nil {
		return st, fmt.Errorf("accommodation stats: %w", err)
	}
	if st.TotalCapacity > 0 {
		st.OccupancyRate = float64(st.TotalBookings) / float64(st.TotalCapacity)
	}
	return st, nil
}

type lockedAccommodation struct {
	RoomType      string
	Capacity      int
	PricePerNight float64
}

func lockAccommodation(ctx context.Context, tx pgx.Tx, id int) (lockedAccommodation, error) {
	var a lockedAccommodation
	err := tx.QueryRow(ctx,
		"SELECT room_type, capacity, price_per_night FROM accommodations WHERE accommodation_id = $1 FOR UPDATE",
		id,
	).Scan(&a.RoomType, &a.Capacity, &a.PricePerNight)
	if db.IsNoRows(err) {
		return a, ErrAccommodationNotFound
	}
	if err != nil {
		return a, fmt.Errorf("lock accommodation: %w", err)
	}
	return a, nil
}

func countBookings(ctx context.Context, q db.Querier, accommodationID int) (int, error) {
	var n int
	if err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM user_accommodations WHERE accommodation_id = $1", accommodationID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return n, nil
}
