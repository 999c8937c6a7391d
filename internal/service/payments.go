package service

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"nascon-platform/internal/broker"
	"nascon-platform/internal/db"
	"nascon-platform/internal/model"
)

var paymentColumns = []string{
	"payment_id", "user_id", "event_id", "amount::float8 AS amount",
	"payment_type", "status", "payment_date", "created_at",
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func (s *Service) ListPayments(ctx context.Context, f model.PaymentFilter) ([]model.Payment, error) {
	q := db.Psql.Select(paymentColumns...).From("payments").OrderBy("payment_id DESC")
	if f.UserID > 0 {
		q = q.Where(sq.Eq{"user_id": f.UserID})
	}
	if f.EventID > 0 {
		q = q.Where(sq.Eq{"event_id": f.EventID})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	if f.PaymentType != "" {
		q = q.Where(sq.Eq{"payment_type": f.PaymentType})
	}
	return db.Select[model.Payment](ctx, s.db, q)
}

func (s *Service) GetPayment(ctx context.Context, id int) (model.Payment, error) {
	p, err := db.Get[model.Payment](ctx, s.db, db.Psql.Select(paymentColumns...).From("payments").Where(sq.Eq{"payment_id": id}))
	if db.IsNoRows(err) {
		return p, ErrPaymentNotFound
	}
	if err != nil {
		return p, fmt.Errorf("load payment: %w", err)
	}
	return p, nil
}

// UpdatePaymentStatus settles a simulated payment. Completing it stamps
// payment_date. Completed and failed are terminal: a failed payment is never
// reopened, since its registration or booking may already carry a new one.
func (s *Service) UpdatePaymentStatus(ctx context.Context, actor model.Actor, id int, status string) (model.Payment, error) {
	switch status {
	case model.PaymentPending, model.PaymentCompleted, model.PaymentFailed:
	default:
		return model.Payment{}, ErrInvalidStatus
	}

	var p model.Payment
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var cur string
		err := tx.QueryRow(ctx, "SELECT status FROM payments WHERE payment_id = $1 FOR UPDATE", id).Scan(&cur)
		if db.IsNoRows(err) {
			return ErrPaymentNotFound
		}
		if err != nil {
			return fmt.Errorf("lock payment: %w", err)
		}
		if cur == model.PaymentCompleted && status != model.PaymentCompleted {
			return ErrPaymentSettled
		}
		if cur == model.PaymentFailed && status != model.PaymentFailed {
			return ErrPaymentClosed
		}

		p, err = db.Get[model.Payment](ctx, tx, db.Psql.
			Update("payments").
			Set("status", status).
			Set("payment_date", sq.Expr("CASE WHEN ? = 'completed' THEN COALESCE(payment_date, now()) ELSE payment_date END", status)).
			Where(sq.Eq{"payment_id": id}).
			Suffix("RETURNING "+joinColumns(paymentColumns)))
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}

	s.audit(ctx, &actor.UserID, "payment_status", fmt.Sprintf("payment %d -> %s", id, status))
	s.publish(ctx, broker.PaymentStatusChanged, map[string]any{
		"payment_id":   p.ID,
		"user_id":      p.UserID,
		"payment_type": p.PaymentType,
		"status":       p.Status,
		"amount":       p.Amount,
	})
	return p, nil
}

func (s *Service) PaymentStats(ctx context.Context) ([]model.PaymentTotals, error) {
	return db.Select[model.PaymentTotals](ctx, s.db, db.Psql.
		Select("payment_type", "status", "COUNT(*) AS count", "COALESCE(SUM(amount), 0)::float8 AS total_amount").
		From("payments").
		GroupBy("payment_type", "status").
		OrderBy("payment_type", "status"))
}
