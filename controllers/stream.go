package controllers

import (
	"io"

	"github.com/gin-gonic/gin"
)

// stream writes every snapshot from ch as a server-sent "snapshot" event until ch closes or the client leaves.
func stream[T any](c *gin.Context, ch <-chan []T) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
