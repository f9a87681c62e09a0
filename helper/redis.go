package helper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"grocery_store/config"
	"grocery_store/model"
)

func NewRedisClient(settings config.RedisSettings) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     settings.Addr,
		Password: settings.Password,
	})
}

// NotificationChannel is the pub/sub channel a recipient's live feed listens on.
func NotificationChannel(prefix string, recipientID uint) string {
	return fmt.Sprintf("%s:%d", prefix, recipientID)
}

// RedisPublisher fans notifications out to websocket listeners.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

func (p *RedisPublisher) Publish(ctx context.Context, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, NotificationChannel(p.prefix, n.RecipientID), payload).Err()
}

// Subscribe opens the recipient's channel. The caller closes the returned PubSub.
func (p *RedisPublisher) Subscribe(ctx context.Context, recipientID uint) *redis.PubSub {
	return p.client.Subscribe(ctx, NotificationChannel(p.prefix, recipientID))
}
