package broker

import (
	"context"
	"sync"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const subscriptionBuffer = 256

// Hub is an in-process Broker for single-instance deployments without Redis.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*hubSubscription]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uuid.UUID]map[*hubSubscription]struct{})}
}

func (h *Hub) Publish(_ context.Context, msg *entity.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.rooms[msg.ConversationID] {
		if !offer(sub.out, *msg) {
			log.Warn().Str("conversation_id", msg.ConversationID.String()).Int64("seq", msg.Seq).Msg("subscriber buffer full, oldest message evicted")
		}
	}
	return nil
}

// offer queues m, evicting the oldest buffered message when full. The newest
// message always lands, so a lagging reader sees the seq jump right away and
// reloads from storage. Reports false when something was evicted.
func offer(out chan entity.Message, m entity.Message) bool {
	select {
	case out <- m:
		return true
	default:
	}

	select {
	case <-out:
	default:
	}
	select {
	case out <- m:
	default:
	}
	return false
}

func (h *Hub) Subscribe(_ context.Context, conversationID uuid.UUID) (Subscription, error) {
	sub := &hubSubscription{
		hub:            h,
		conversationID: conversationID,
		out:            make(chan entity.Message, subscriptionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[*hubSubscription]struct{})
		h.rooms[conversationID] = room
	}
	room[sub] = struct{}{}
	return sub, nil
}

// Subscribers reports the live subscription count of a conversation.
func (h *Hub) Subscribers(conversationID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

func (h *Hub) remove(sub *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sub.conversationID]
	if _, ok := room[sub]; !ok {
		return
	}
	delete(room, sub)
	close(sub.out)
	if len(room) == 0 {
		delete(h.rooms, sub.conversationID)
	}
}

type hubSubscription struct {
	hub            *Hub
	conversationID uuid.UUID
	out            chan entity.Message
	once           sync.Once
}

func (s *hubSubscription) Messages() <-chan entity.Message {
	return s.out
}

func (s *hubSubscription) Close() error {
	s.once.Do(func() { s.hub.remove(s) })
	return nil
}
