// Package service holds the NASCON business operations. Every operation that
// checks state and then mutates it runs in a single transaction.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"nascon-platform/internal/apperr"
	"nascon-platform/internal/broker"
	"nascon-platform/internal/telemetry"
)

// sideEffectTimeout bounds the post-commit audit write and event publish.
const sideEffectTimeout = 2 * time.Second

type Service struct {
	db      *pgxpool.Pool
	log     zerolog.Logger
	pub     broker.Publisher
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

type Option func(*Service)

func WithPublisher(p broker.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.pub = p
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(db *pgxpool.Pool, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		log:    log.With().Str("component", "service").Logger(),
		pub:    broker.Nop{},
		tracer: otel.Tracer("nascon-platform/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span. Domain rejections are not span errors.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if apperr.KindOf(err) == apperr.Unknown {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

// publish emits a domain event; failures are logged and never undo the
// committed change. It outlives a cancelled request but not a stalled broker.
func (s *Service) publish(ctx context.Context, key string, payload any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.pub.Publish(ctx, key, payload); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("publish domain event")
	}
}

// logResult logs failed operations: unknown errors at error level, domain
// rejections at info.
func (s *Service) logResult(op string, err error, fields map[string]any) {
	if err == nil {
		return
	}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.Unknown {
		s.log.Info().Str("op", op).Str("kind", string(ae.Kind)).Fields(fields).Msg(ae.Message)
		return
	}
	s.log.Error().Err(err).Str("op", op).Fields(fields).Msg("operation failed")
}
