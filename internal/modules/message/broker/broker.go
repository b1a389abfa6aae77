package broker

import (
	"context"
	"fmt"

	"anoa.com/scholarhub/internal/entity"
	"github.com/google/uuid"
)

// Broker fans committed messages out to live subscribers of a conversation.
// Delivery is best effort: a subscriber that falls behind loses its oldest
// buffered messages, never the latest one, and detects the gap through the
// sequence number and reloads from storage.
type Broker interface {
	Publish(ctx context.Context, msg *entity.Message) error
	Subscribe(ctx context.Context, conversationID uuid.UUID) (Subscription, error)
}

type Subscription interface {
	// Messages is closed when the subscription ends.
	Messages() <-chan entity.Message
	Close() error
}

func Channel(conversationID uuid.UUID) string {
	return fmt.Sprintf("conversation_messages:%s", conversationID.String())
}
