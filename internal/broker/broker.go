// Package broker publishes domain events to RabbitMQ after their
// transactions commit.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Routing keys of the published events.
const (
	ParticipantRegistered   = "participant.registered"
	ParticipantUnregistered = "participant.unregistered"
	AccommodationBooked     = "accommodation.booked"
	AccommodationCancelled  = "accommodation.cancelled"
	ScoreSubmitted          = "score.submitted"
	PaymentStatusChanged    = "payment.status_changed"
	SponsorshipCreated      = "sponsorship.created"
	RoundsScheduled         = "event.rounds_scheduled"
)

type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
	Close() error
}

// Nop drops every event. It is used when no broker URL is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                                { return nil }

// Envelope is the JSON body of every published message.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

func encode(key string, payload any, now time.Time) (Envelope, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal %s payload: %w", key, err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       key,
		OccurredAt: now.UTC(),
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, fmt.Errorf("marshal %s envelope: %w", key, err)
	}
	return env, body, nil
}

// Rabbit publishes over one channel. Publishes share it; Close takes it
// exclusively.
type Rabbit struct {
	mu       sync.RWMutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

// Dial connects and declares a durable topic exchange.
func Dial(url, exchange string, log zerolog.Logger) (*Rabbit, error) {
	log = log.With().Str("component", "broker").Logger()

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("rabbitmq publisher ready")
	return &Rabbit{conn: conn, channel: ch, exchange: exchange, log: log}, nil
}

func (r *Rabbit) Publish(ctx context.Context, key string, payload any) error {
	env, body, err := encode(key, payload, time.Now())
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	err = r.channel.PublishWithContext(ctx,
		r.exchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    env.ID,
			Timestamp:    env.OccurredAt,
			Type:         key,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	r.log.Debug().Str("key", key).Str("id", env.ID).Msg("event published")
	return nil
}

func (r *Rabbit) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
