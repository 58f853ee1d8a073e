package handler

import (
	"fmt"
	"time"

	"github.com/bitfantasy/linelog/internal/sse"
	"github.com/gin-gonic/gin"
)

// SSEHandler SSE连接处理器
type SSEHandler struct {
	hub *sse.Hub
}

// NewSSEHandler 创建SSE处理器
func NewSSEHandler() *SSEHandler {
	return &SSEHandler{hub: sse.GlobalHub}
}

// Stream SSE事件流
// GET /api/events
func (h *SSEHandler) Stream(c *gin.Context) {
	clientID := fmt.Sprintf("client_%d", time.Now().UnixNano())

	client := &sse.Client{
		ID:     clientID,
		Events: make(chan sse.Event, 64),
	}

	h.hub.Register(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString("event: connected\ndata: {\"client_id\":\"" + clientID + "\"}\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			h.hub.Unregister(clientID)
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, event.Data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
