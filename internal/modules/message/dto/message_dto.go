package dto

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListQuery pages through a conversation. AfterSeq takes precedence over
// BeforeSeq; with neither set the latest messages are returned.
type ListQuery struct {
	AfterSeq  int64 `form:"after_seq" binding:"min=0"`
	BeforeSeq int64 `form:"before_seq" binding:"min=0"`
	Limit     int   `form:"limit" binding:"min=0,max=200"`
}

// InboundFrame is what websocket clients send.
type InboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type OutboundFrame struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}
