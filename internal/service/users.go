package service

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

const bcryptCost = 10

var userColumns = []string{"user_id", "name", "email", "role", "status", "password_hash", "created_at", "updated_at"}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) CreateUser(ctx context.Context, in model.NewUser) (model.User, error) {
	if !in.Role.Valid() {
		return model.User{}, ErrInvalidRole
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := db.Get[model.User](ctx, s.db, db.Psql.
		Insert("users").
		Columns("name", "email", "password_hash", "role").
		Values(strings.TrimSpace(in.Name), normalizeEmail(in.Email), string(hash), in.Role).
		Suffix("RETURNING "+strings.Join(userColumns, ", ")))
	if _, ok := db.UniqueViolation(err); ok {
		return model.User{}, ErrEmailTaken.With(err)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}

	s.audit(ctx, &u.ID, "register", fmt.Sprintf("user registered as %s", u.Role))
	return u, nil
}

// Authenticate checks the credentials and returns the matching active user.
// Unknown emails and wrong passwords give the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := db.Get[model.User](ctx, s.db, db.Psql.
		Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": normalizeEmail(email)}))
	if db.IsNoRows(err) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return model.User{}, ErrInvalidCredentials
	}
	if u.Status != model.UserActive {
		return model.User{}, ErrAccountInactive
	}

	s.audit(ctx, &u.ID, "login", "success")
	return u, nil
}

// Reauthenticate reloads the user behind a refresh token. Deleted and
// deactivated accounts cannot renew their session.
func (s *Service) Reauthenticate(ctx context.Context, id int) (model.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if u.Status != model.UserActive {
		return model.User{}, ErrAccountInactive
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int) (model.User, error) {
	u, err := db.Get[model.User](ctx, s.db, db.Psql.Select(userColumns...).From("users").Where(sq.Eq{"user_id": id}))
	if db.IsNoRows(err) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, error) {
	q := db.Psql.Select(userColumns...).From("users").OrderBy("user_id")
	if f.Role != "" {
		q = q.Where(sq.Eq{"role": f.Role})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	return db.Select[model.User](ctx, s.db, q)
}

// UpdateProfile lets a user change their own name, email or password. A new
// password requires the current one.
func (s *Service) UpdateProfile(ctx context.Context, userID int, in model.ProfileUpdate) (model.User, error) {
	cur, err := s.GetUser(ctx, userID)
	if err != nil {
		return cur, err
	}

	set := map[string]any{"updated_at": sq.Expr("now()")}
	if name := strings.TrimSpace(in.Name); name != "" {
		set["name"] = name
	}
	if email := normalizeEmail(in.Email); email != "" {
		set["email"] = email
	}
	if in.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(cur.PasswordHash), []byte(in.CurrentPassword)) != nil {
			return model.User{}, ErrWrongPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcryptCost)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		set["password_hash"] = string(hash)
	}

	u, err := s.updateUser(ctx, userID, set)
	if err != nil {
		return u, err
	}
	s.audit(ctx, &userID, "profile_update", "profile updated")
	return u, nil
}

// UpdateUser applies an admin patch.
func (s *Service) UpdateUser(ctx context.Context, actor model.Actor, id int, p model.UserPatch) (model.User, error) {
	set := map[string]any{"updated_at": sq.Expr("now()")}
	if p.Name != nil {
		set["name"] = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		set["email"] = normalizeEmail(*p.Email)
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return model.User{}, ErrInvalidRole
		}
		set["role"] = *p.Role
	}
	if p.Status != nil {
		if *p.Status != model.UserActive && *p.Status != model.UserInactive {
			return model.User{}, ErrInvalidStatus
		}
		set["status"] = *p.Status
	}

	u, err := s.updateUser(ctx, id, set)
	if err != nil {
		return u, err
	}
	s.audit(ctx, &actor.UserID, "user_update", fmt.Sprintf("user %d updated", id))
	return u, nil
}

func (s *Service) updateUser(ctx context.Context, id int, set map[string]any) (model.User, error) {
	u, err := db.Get[model.User](ctx, s.db, db.Psql.
		Update("users").
		SetMap(set).
		Where(sq.Eq{"user_id": id}).
		Suffix("RETURNING "+strings.Join(userColumns, ", ")))
	if db.IsNoRows(err) {
		return u, ErrUserNotFound
	}
	if _, ok := db.UniqueViolation(err); ok {
		return u, ErrEmailTaken.With(err)
	}
	if err != nil {
		return u, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// userDependents names the tables that keep a user from being deleted.
var userDependents = []struct{ table, column, what string }{
	{"participants", "user_id", "event registrations"},
	{"payments", "user_id", "payments"},
	{"user_accommodations", "user_id", "accommodation bookings"},
	{"events", "organizer_id", "organized events"},
	{"event_judges", "judge_id", "judge assignments"},
	{"judging", "judge_id", "submitted scores"},
	{"sponsors", "user_id", "a sponsor profile"},
}

func (s *Service) DeleteUser(ctx context.Context, actor model.Actor, id int) error {
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var locked int
		err := tx.QueryRow(ctx, "SELECT user_id FROM users WHERE user_id = $1 FOR UPDATE", id).Scan(&locked)
		if db.IsNoRows(err) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		for _, d := range userDependents {
			var n int
			if err := db.QueryRow(ctx, tx, db.Psql.
				Select("COUNT(*)").From(d.table).Where(sq.Eq{d.column: id}),
			).Scan(&n); err != nil {
				return fmt.Errorf("count %s: %w", d.table, err)
			}
			if n > 0 {
				return hasDependents("Cannot delete user with " + d.what)
			}
		}
		_, err = tx.Exec(ctx, "DELETE FROM users WHERE user_id = $1", id)
		if _, ok := db.ForeignKeyViolation(err); ok {
			return apperr.Wrap(apperr.HasDependents, "Cannot delete user with related records", err)
		}
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.audit(ctx, &actor.UserID, "user_delete", fmt.Sprintf("user %d deleted", id))
	return nil
}

func (s *Service) UserStats(ctx context.Context) ([]model.RoleCount, error) {
	return db.Select[model.RoleCount](ctx, s.db, db.Psql.
		Select("role", "COUNT(*) AS count").
		From("users").
		GroupBy("role").
		OrderBy("role"))
}

func (s *Service) UserEvents(ctx context.Context, userID int) ([]model.UserEvent, error) {
	return db.Select[model.UserEvent](ctx, s.db, db.Psql.
		Select(
			"p.participant_id", "e.event_id", "e.event_name", "e.category",
			"e.event_date", "e.status", "p.registration_date",
		).
		From("participants p").
		Join("events e ON e.event_id = p.event_id").
		Where(sq.Eq{"p.user_id": userID}).
		OrderBy("e.event_date", "e.event_id"))
}
