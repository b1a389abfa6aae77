package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type redisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) Broker {
	return &redisBroker{client: client}
}

func (b *redisBroker) Publish(ctx context.Context, msg *entity.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, Channel(msg.ConversationID), payload).Err()
}

func (b *redisBroker) Subscribe(ctx context.Context, conversationID uuid.UUID) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, Channel(conversationID))

	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to redis channel: %w", err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		out:    make(chan entity.Message, subscriptionBuffer),
		done:   make(chan struct{}),
	}
	go sub.forward()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan entity.Message
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) forward() {
	defer close(s.out)
	for raw := range s.pubsub.Channel() {
		var msg entity.Message
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			log.Warn().Err(err).Str("channel", raw.Channel).Msg("dropping malformed message payload")
			continue
		}
		select {
		case s.out <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan entity.Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
