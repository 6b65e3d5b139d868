package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/csvshare-backend/internal/realtime"
)

type RealtimeHandler struct {
	endpoint *realtime.Endpoint
}

func NewRealtimeHandler(endpoint *realtime.Endpoint) *RealtimeHandler {
	return &RealtimeHandler{endpoint: endpoint}
}

// GET /ws. Blocks until the client disconnects.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	h.endpoint.ServeHTTP(c.Writer, c.Request)
}
