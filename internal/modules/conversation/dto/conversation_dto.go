package dto

import "anoa.com/scholarhub/internal/entity"

type ConversationSummary struct {
	*entity.Conversation
	LastMessage *entity.Message `json:"last_message,omitempty"`
	// Partner is the other member of a direct conversation.
	Partner *entity.Profile `json:"partner,omitempty"`
}
