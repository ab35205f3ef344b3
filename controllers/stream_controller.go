package controllers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const streamHeartbeat = 25 * time.Second

type StreamController struct{ *Srv }

func NewStreamController(s *Srv) *StreamController { return &StreamController{Srv: s} }

// GET /api/stream 推送完整快照（SSE），连接建立时先推一次
func (sc *StreamController) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	snaps, err := sc.Engine.Subscribe(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-snaps:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case t := <-heartbeat.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			return true
		}
	})
}
