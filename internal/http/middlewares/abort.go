package middlewares

import "github.com/gin-gonic/gin"

// Keys stored on *gin.Context.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "auth.user_id"
	CtxUsername  = "auth.username"
	CtxRole      = "auth.role"
)

// abort writes the same error envelope the handlers use and stops the chain.
func abort(c *gin.Context, status int, code, message string) {
	body := gin.H{"code": code, "message": message}
	if reqID := c.GetString(CtxRequestID); reqID != "" {
		body["requestId"] = reqID
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
