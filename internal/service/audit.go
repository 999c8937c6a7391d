package service

import (
	"context"

	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

// audit records a completed action. It runs after commit and is best effort.
func (s *Service) audit(ctx context.Context, actorID *int, action, details string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if _, err := s.db.Exec(ctx,
		"INSERT INTO activity_logs(actor_id, action, details) VALUES ($1, $2, $3)",
		actorID, action, details,
	); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("write activity log")
	}
}

const maxActivityLimit = 500

// ActivityLog lists the newest entries first, optionally for one actor.
func (s *Service) ActivityLog(ctx context.Context, actorID, limit int) ([]model.ActivityLog, error) {
	switch {
	case limit <= 0:
		limit = 100
	case limit > maxActivityLimit:
		limit = maxActivityLimit
	}
	q := db.Psql.
		Select("log_id", "actor_id", "action", "details", "created_at").
		From("activity_logs").
		OrderBy("log_id DESC").
		Limit(uint64(limit))
	if actorID > 0 {
		q = q.Where("actor_id = ?", actorID)
	}
	return db.Select[model.ActivityLog](ctx, s.db, q)
}
