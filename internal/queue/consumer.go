package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/unispace/internal/utils"
)

// AuditConsumer appends one line per promotion event to
// <dir>/promotion.log.
type AuditConsumer struct {
	url   string
	queue string
	dir   string
}

func NewAuditConsumer(url, queue, dir string) *AuditConsumer {
	return &AuditConsumer{url: url, queue: queue, dir: dir}
}

// Run consumes until ctx is cancelled, reconnecting with capped
// exponential backoff whenever the broker goes away.
func (c *AuditConsumer) Run(ctx context.Context) error {
	log := utils.Logger.WithField("component", "promotion-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.WithError(err).Warnf("dial failed; retrying in %s", backoff)
			if !sleepCtx(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return nil
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		utils.Logger.WithError(err).Warn("promotion-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				utils.Logger.WithError(err).Warn("promotion-consumer: handle message failed")
				_ = d.Nack(false, false) // poison message; do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AuditConsumer) handle(body []byte) error {
	var ev ReservationPromotedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "promotion.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatAuditLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatAuditLine(ev ReservationPromotedEvent) string {
	return fmt.Sprintf("[%s] Reservation promoted | reservation_id=%d | occupancy_id=%d | classroom_id=%d | user_id=%d | window=%s..%s\n",
		ev.PromotedAt, ev.ReservationID, ev.OccupancyID, ev.ClassroomID, ev.UserID, ev.StartsAt, ev.EndsAt)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
