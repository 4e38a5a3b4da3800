package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const relayPublishTimeout = 2 * time.Second

type relayFrame struct {
	Origin    string          `json:"origin"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// RedisRelay shares envelopes between instances over a Redis pub/sub channel.
// Messages are delivered to the local hub immediately and forwarded to the
// other instances, which hand them to their own hubs.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   *Hub
	origin  string
	log     logrus.FieldLogger
}

func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("notify.NewRedisClient: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("notify.NewRedisClient: failed to ping server: %w", err)
	}
	return client, nil
}

func NewRedisRelay(client *redis.Client, channel string, local *Hub, log logrus.FieldLogger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		local:   local,
		origin:  uuid.New().String(),
		log:     log,
	}
}

func (r *RedisRelay) Publish(topic string, payload any) {
	now := time.Now()
	r.local.enqueue(Envelope{Topic: topic, Payload: payload, Timestamp: now})

	data, err := json.Marshal(payload)
	if err != nil {
		r.log.WithField("topic", topic).Errorf("could not marshal relay payload: %s", err)
		return
	}
	frame, err := json.Marshal(relayFrame{Origin: r.origin, Topic: topic, Payload: data, Timestamp: now})
	if err != nil {
		r.log.WithField("topic", topic).Errorf("could not marshal relay frame: %s", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), relayPublishTimeout)
		defer cancel()
		if err := r.client.Publish(ctx, r.channel, frame).Err(); err != nil {
			r.log.WithField("topic", topic).Warnf("redis relay publish failed: %s", err)
		}
	}()
}

// Run forwards frames published by other instances to the local hub until
// ctx is canceled.
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.forward(msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(data string) {
	var frame relayFrame
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		r.log.Warnf("dropping malformed relay frame: %s", err)
		return
	}
	if frame.Origin == r.origin {
		return
	}
	r.local.enqueue(Envelope{Topic: frame.Topic, Payload: frame.Payload, Timestamp: frame.Timestamp})
}
