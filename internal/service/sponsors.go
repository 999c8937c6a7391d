package service

import (
	"context"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/broker"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

var sponsorColumns = []string{
	"sponsor_id", "company_name", "contact_person", "email", "phone",
	"sponsorship_level", "user_id", "created_at",
}

/* ===================== SPONSORS ===================== */

func (s *Service) ListSponsors(ctx context.Context, level string) ([]model.Sponsor, error) {
	q := db.Psql.Select(sponsorColumns...).From("sponsors").OrderBy("company_name", "sponsor_id")
	if level != "" {
		q = q.Where(sq.Eq{"sponsorship_level": level})
	}
	return db.Select[model.Sponsor](ctx, s.db, q)
}

func (s *Service) GetSponsor(ctx context.Context, id int) (model.Sponsor, error) {
	sp, err := db.Get[model.Sponsor](ctx, s.db, db.Psql.Select(sponsorColumns...).From("sponsors").Where(sq.Eq{"sponsor_id": id}))
	if db.IsNoRows(err) {
		return sp, ErrSponsorNotFound
	}
	if err != nil {
		return sp, fmt.Errorf("load sponsor: %w", err)
	}
	return sp, nil
}

// CreateSponsor registers a sponsor company. A sponsor-role caller always
// creates the profile for themselves; admins may link any user or none.
func (s *Service) CreateSponsor(ctx context.Context, actor model.Actor, in model.SponsorInput) (model.Sponsor, error) {
	if in.SponsorshipLevel == "" {
		in.SponsorshipLevel = model.PackageSilver
	}
	if !slices.Contains(model.Packages, in.SponsorshipLevel) {
		return model.Sponsor{}, ErrInvalidPackage
	}
	if !actor.IsAdmin() {
		in.UserID = &actor.UserID
	}

	sp, err := db.Get[model.Sponsor](ctx, s.db, db.Psql.
		Insert("sponsors").
		Columns("company_name", "contact_person", "email", "phone", "sponsorship_level", "user_id").
		Values(in.CompanyName, in.ContactPerson, normalizeEmail(in.Email), in.Phone, in.SponsorshipLevel, in.UserID).
		Suffix("RETURNING "+joinColumns(sponsorColumns)))
	if _, ok := db.UniqueViolation(err); ok {
		return sp, ErrSponsorProfileTaken.With(err)
	}
	if _, ok := db.ForeignKeyViolation(err); ok {
		return sp, ErrUserNotFound.With(err)
	}
	if err != nil {
		return sp, fmt.Errorf("insert sponsor: %w", err)
	}
	s.audit(ctx, &actor.UserID, "sponsor_create", fmt.Sprintf("sponsor %d %q", sp.ID, sp.CompanyName))
	return sp, nil
}

func (s *Service) UpdateSponsor(ctx context.Context, actor model.Actor, id int, in model.SponsorInput) (model.Sponsor, error) {
	cur, err := s.GetSponsor(ctx, id)
	if err != nil {
		return cur, err
	}
	if err := canManageSponsor(actor, cur); err != nil {
		return cur, err
	}
	if in.SponsorshipLevel == "" {
		in.SponsorshipLevel = cur.SponsorshipLevel
	}
	if !slices.Contains(model.Packages, in.SponsorshipLevel) {
		return model.Sponsor{}, ErrInvalidPackage
	}

	sp, err := db.Get[model.Sponsor](ctx, s.db, db.Psql.
		Update("sponsors").
		SetMap(map[string]any{
			"company_name":      in.CompanyName,
			"contact_person":    in.ContactPerson,
			"email":             normalizeEmail(in.Email),
			"phone":             in.Phone,
			"sponsorship_level": in.SponsorshipLevel,
		}).
		Where(sq.Eq{"sponsor_id": id}).
		Suffix("RETURNING "+joinColumns(sponsorColumns)))
	if db.IsNoRows(err) {
		return sp, ErrSponsorNotFound
	}
	if err != nil {
		return sp, fmt.Errorf("update sponsor: %w", err)
	}
	s.audit(ctx, &actor.UserID, "sponsor_update", fmt.Sprintf("sponsor %d", id))
	return sp, nil
}

func (s *Service) DeleteSponsor(ctx context.Context, actor model.Actor, id int) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var locked int
		err := tx.QueryRow(ctx, "SELECT sponsor_id FROM sponsors WHERE sponsor_id = $1 FOR UPDATE", id).Scan(&locked)
		if db.IsNoRows(err) {
			return ErrSponsorNotFound
		}
		if err != nil {
			return fmt.Errorf("lock sponsor: %w", err)
		}
		var n int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM sponsorships WHERE sponsor_id = $1", id).Scan(&n); err != nil {
			return fmt.Errorf("count sponsorships: %w", err)
		}
		if n > 0 {
			return hasDependents("Cannot delete sponsor with existing sponsorships")
		}
		if _, err := tx.Exec(ctx, "DELETE FROM sponsors WHERE sponsor_id = $1", id); err != nil {
			return fmt.Errorf("delete sponsor: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, &actor.UserID, "sponsor_delete", fmt.Sprintf("sponsor %d", id))
	return nil
}

func canManageSponsor(actor model.Actor, sp model.Sponsor) error {
	if actor.IsAdmin() {
		return nil
	}
	if sp.UserID == nil || *sp.UserID != actor.UserID {
		return ErrNotSponsorOwner
	}
	return nil
}

/* ===================== SPONSORSHIPS ===================== */

func sponsorshipSelect() sq.SelectBuilder {
	return db.Psql.
		Select(
			"ss.sponsorship_id", "ss.sponsor_id", "sp.company_name", "ss.event_id", "e.event_name",
			"ss.package", "ss.amount::float8 AS amount", "ss.status", "ss.created_at",
		).
		From("sponsorships ss").
		Join("sponsors sp ON sp.sponsor_id = ss.sponsor_id").
		Join("events e ON e.event_id = ss.event_id").
		OrderBy("ss.sponsorship_id")
}

// ListSponsorships filters by sponsor and/or event when the ids are positive.
func (s *Service) ListSponsorships(ctx context.Context, sponsorID, eventID int) ([]model.Sponsorship, error) {
	q := sponsorshipSelect()
	if sponsorID > 0 {
		q = q.Where(sq.Eq{"ss.sponsor_id": sponsorID})
	}
	if eventID > 0 {
		q = q.Where(sq.Eq{"ss.event_id": eventID})
	}
	return db.Select[model.Sponsorship](ctx, s.db, q)
}

func (s *Service) getSponsorship(ctx context.Context, id int) (model.Sponsorship, error) {
	ss, err := db.Get[model.Sponsorship](ctx, s.db, sponsorshipSelect().Where(sq.Eq{"ss.sponsorship_id": id}))
	if db.IsNoRows(err) {
		return ss, ErrSponsorshipNotFound
	}
	if err != nil {
		return ss, fmt.Errorf("load sponsorship: %w", err)
	}
	return ss, nil
}

// CreateSponsorship books a package on an event and, when the sponsor is
// linked to a user account, opens a pending sponsorship payment for it.
func (s *Service) CreateSponsorship(ctx context.Context, actor model.Actor, in model.SponsorshipInput) (model.Sponsorship, error) {
	if !slices.Contains(model.Packages, in.Package) {
		return model.Sponsorship{}, ErrInvalidPackage
	}
	if in.Amount < 0 {
		return model.Sponsorship{}, apperr.New(apperr.InvalidInput, "Amount cannot be negative")
	}

	var id int
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var sp model.Sponsor
		err := tx.QueryRow(ctx, "SELECT sponsor_id, user_id FROM sponsors WHERE sponsor_id = $1", in.SponsorID).Scan(&sp.ID, &sp.UserID)
		if db.IsNoRows(err) {
			return ErrSponsorNotFound
		}
		if err != nil {
			return fmt.Errorf("load sponsor: %w", err)
		}
		if err := canManageSponsor(actor, sp); err != nil {
			return err
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO sponsorships(sponsor_id, event_id, package, amount)
			VALUES ($1, $2, $3, $4) RETURNING sponsorship_id`,
			in.SponsorID, in.EventID, in.Package, in.Amount,
		).Scan(&id)
		if _, ok := db.UniqueViolation(err); ok {
			return ErrAlreadySponsoring.With(err)
		}
		if _, ok := db.ForeignKeyViolation(err); ok {
			return ErrEventNotFound.With(err)
		}
		if err != nil {
			return fmt.Errorf("insert sponsorship: %w", err)
		}

		if sp.UserID != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO payments(user_id, event_id, amount, payment_type, status)
				VALUES ($1, $2, $3, 'sponsorship', 'pending')`,
				*sp.UserID, in.EventID, in.Amount,
			); err != nil {
				return fmt.Errorf("insert sponsorship payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.Sponsorship{}, err
	}

	s.audit(ctx, &actor.UserID, "sponsorship_create", fmt.Sprintf("sponsorship %d: sponsor %d event %d", id, in.SponsorID, in.EventID))
	s.publish(ctx, broker.SponsorshipCreated, map[string]any{
		"sponsorship_id": id,
		"sponsor_id":     in.SponsorID,
		"event_id":       in.EventID,
		"package":        in.Package,
		"amount":         in.Amount,
	})
	return s.getSponsorship(ctx, id)
}

func (s *Service) UpdateSponsorshipStatus(ctx context.Context, actor model.Actor, id int, status string) (model.Sponsorship, error) {
	if status != model.SponsorshipPending && status != model.SponsorshipConfirmed {
		return model.Sponsorship{}, ErrInvalidStatus
	}
	tag, err := s.db.Exec(ctx, "UPDATE sponsorships SET status = $2 WHERE sponsorship_id = $1", id, status)
	if err != nil {
		return model.Sponsorship{}, fmt.Errorf("update sponsorship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Sponsorship{}, ErrSponsorshipNotFound
	}
	s.audit(ctx, &actor.UserID, "sponsorship_status", fmt.Sprintf("sponsorship %d -> %s", id, status))
	return s.getSponsorship(ctx, id)
}

func (s *Service) DeleteSponsorship(ctx context.Context, actor model.Actor, id int) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM sponsorships WHERE sponsorship_id = $1", id)
	if err != nil {
		return fmt.Errorf("delete sponsorship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSponsorshipNotFound
	}
	s.audit(ctx, &actor.UserID, "sponsorship_delete", fmt.Sprintf("sponsorship %d", id))
	return nil
}

func (s *Service) SponsorshipStats(ctx context.Context) ([]model.PackageStats, error) {
	return db.Select[model.PackageStats](ctx, s.db, db.Psql.
		Select("package", "COUNT(*) AS count", "COALESCE(SUM(amount), 0)::float8 AS total_amount").
		From("sponsorships").
		GroupBy("package").
		OrderBy("total_amount DESC"))
}
