package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/unispace/internal/utils"
)

// Publisher sends promotion events to a durable queue. It dials per
// publish; promotions are rare enough that a pooled connection is not
// worth the reconnect logic.
type Publisher struct {
	url   string
	queue string
}

func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// PublishPromoted never panics; the error is logged and returned so the
// caller may ignore it.
func (p *Publisher) PublishPromoted(ctx context.Context, ev ReservationPromotedEvent) error {
	log := utils.Logger.WithField("queue", p.queue)
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		log.WithError(err).Warn("rabbitmq: publish failed")
	}
	return err
}

// NopPublisher drops events; used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishPromoted(context.Context, ReservationPromotedEvent) error { return nil }
