package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"anoa.com/scholarhub/internal/modules/message/dto"
	message "anoa.com/scholarhub/internal/modules/message/service"
	"anoa.com/scholarhub/pkg/apperror"
	"anoa.com/scholarhub/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	readLimit  = 16 << 10
)

type MessageHandler struct {
	service  message.MessageService
	upgrader websocket.Upgrader
}

func NewMessageHandler(service message.MessageService, allowedOrigin func(origin string) bool) *MessageHandler {
	return &MessageHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == nil || allowedOrigin(origin)
			},
		},
	}
}

func (h *MessageHandler) List(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	messages, err := h.service.List(c.Request.Context(), actor, conversationID, query)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": messages})
}

func (h *MessageHandler) Send(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	msg, err := h.service.Send(c.Request.Context(), actor, conversationID, req.Content)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

// Stream upgrades to a websocket that replays history after after_seq and
// then pushes new messages. Clients may send {"type":"message","content":...}.
func (h *MessageHandler) Stream(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var afterSeq int64
	if raw := c.Query("after_seq"); raw != "" {
		afterSeq, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || afterSeq < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid after_seq"})
			return
		}
	}

	// Refuse before upgrading so the client sees a proper status code.
	if _, err := h.service.List(c.Request.Context(), actor, conversationID, dto.ListQuery{AfterSeq: afterSeq, Limit: 1}); err != nil {
		response.ResponseError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade websocket")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := make(chan dto.OutboundFrame, 32)
	go writePump(ctx, cancel, conn, out)
	go h.readPump(ctx, cancel, conn, actor, conversationID, out)

	deliver := func(m entity.Message) error {
		select {
		case out <- dto.OutboundFrame{Type: "message", Data: m}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err = h.service.Stream(ctx, actor, conversationID, afterSeq, deliver)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("conversation_id", conversationID.String()).Msg("message stream ended")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "stream ended"),
			time.Now().Add(writeWait))
	}
}

func (h *MessageHandler) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, actor entity.Actor, conversationID uuid.UUID, out chan<- dto.OutboundFrame) {
	defer cancel()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in dto.InboundFrame
		if err := conn.ReadJSON(&in); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				continue
			}
			return
		}
		if in.Type != "message" {
			continue
		}

		// the stored message comes back through the stream
		if _, err := h.service.Send(ctx, actor, conversationID, in.Content); err != nil {
			frame := dto.OutboundFrame{Type: "error", Error: err.Error()}
			var verr *apperror.ValidationError
			if errors.As(err, &verr) {
				frame.Data = verr.Fields
			}
			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}

func writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan dto.OutboundFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
