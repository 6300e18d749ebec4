package live

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/utils"
)

// Channel is the Redis pub/sub channel shared by all API instances.
const Channel = "unispace:notifications"

type envelope struct {
	UserID  uint64          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// RedisBridge fans pushes out through Redis so that a notification created
// on one instance reaches sockets held by any other. Publishing only
// happens while Run holds a live subscription; otherwise pushes go
// straight to the local hub.
type RedisBridge struct {
	rdb     *redis.Client
	hub     *Hub
	healthy atomic.Bool
}

func NewRedisBridge(rdb *redis.Client, hub *Hub) *RedisBridge {
	return &RedisBridge{rdb: rdb, hub: hub}
}

// Healthy reports whether Run is subscribed and relaying.
func (b *RedisBridge) Healthy() bool { return b.healthy.Load() }

// Push publishes n. Without a relaying subscriber, or when Redis rejects
// the publish, the frame is delivered to local sessions only.
func (b *RedisBridge) Push(ctx context.Context, userID uint64, n model.Notification) {
	payload, err := EncodeNotification(n)
	if err != nil {
		utils.Logger.WithError(err).WithField("user_id", userID).Error("encode live notification")
		return
	}
	if !b.healthy.Load() {
		b.hub.Deliver(userID, payload)
		return
	}
	msg, err := json.Marshal(envelope{UserID: userID, Payload: payload})
	if err == nil {
		err = b.rdb.Publish(ctx, Channel, msg).Err()
	}
	if err != nil {
		utils.Logger.WithError(err).WithField("user_id", userID).Warn("live publish failed, delivering locally")
		b.hub.Deliver(userID, payload)
	}
}

// Run relays channel messages into the local hub until ctx ends.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, Channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.healthy.Store(true)
	defer b.healthy.Store(false)
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil || env.UserID == 0 {
				utils.Logger.WithField("channel", msg.Channel).Warn("dropping malformed live message")
				continue
			}
			b.hub.Deliver(env.UserID, env.Payload)
		}
	}
}
